package transit

import (
	"github.com/matryer/is"
	"reflect"
	"testing"
)

func TestGroupArrivals(t *testing.T) {
	tests := []struct {
		name     string
		arrivals []Arrival
		want     []ArrivalGroup
	}{
		{
			name:     "no arrivals",
			arrivals: nil,
			want:     []ArrivalGroup{},
		},
		{
			name: "same destination sorted by minutes",
			arrivals: []Arrival{
				{Route: "22", Destination: "Howard", Minutes: 12, StopId: 1001},
				{Route: "22", Destination: "Howard", Minutes: 4, StopId: 1001},
			},
			want: []ArrivalGroup{
				{
					Destination: "Howard",
					Arrivals: []Arrival{
						{Route: "22", Destination: "Howard", Minutes: 4, StopId: 1001},
						{Route: "22", Destination: "Howard", Minutes: 12, StopId: 1001},
					},
				},
			},
		},
		{
			name: "related stops merged and split by exact destination",
			arrivals: []Arrival{
				{Route: "22", Destination: "Howard", Minutes: 9, StopId: 1001},
				{Route: "22", Destination: "Harrison", Minutes: 2, StopId: 1002},
				{Route: "22", Destination: "Howard", Minutes: 1, StopId: 1002},
				{Route: "22", Destination: "howard", Minutes: 0, StopId: 1001},
			},
			want: []ArrivalGroup{
				{
					Destination: "howard",
					Arrivals:    []Arrival{{Route: "22", Destination: "howard", Minutes: 0, StopId: 1001}},
				},
				{
					Destination: "Howard",
					Arrivals: []Arrival{
						{Route: "22", Destination: "Howard", Minutes: 1, StopId: 1002},
						{Route: "22", Destination: "Howard", Minutes: 9, StopId: 1001},
					},
				},
				{
					Destination: "Harrison",
					Arrivals:    []Arrival{{Route: "22", Destination: "Harrison", Minutes: 2, StopId: 1002}},
				},
			},
		},
		{
			name: "due and negative minutes sort first",
			arrivals: []Arrival{
				{Route: "Red", Destination: "95th/Dan Ryan", Minutes: 3},
				{Route: "Red", Destination: "95th/Dan Ryan", Minutes: -1},
				{Route: "Red", Destination: "95th/Dan Ryan", Minutes: 0},
			},
			want: []ArrivalGroup{
				{
					Destination: "95th/Dan Ryan",
					Arrivals: []Arrival{
						{Route: "Red", Destination: "95th/Dan Ryan", Minutes: -1},
						{Route: "Red", Destination: "95th/Dan Ryan", Minutes: 0},
						{Route: "Red", Destination: "95th/Dan Ryan", Minutes: 3},
					},
				},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GroupArrivals(tt.arrivals)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("GroupArrivals() got = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCopyGroups(t *testing.T) {
	is := is.New(t)
	groups := []ArrivalGroup{{Destination: "Howard", Arrivals: []Arrival{{Route: "22", Destination: "Howard"}}}}
	copied := CopyGroups(groups)
	copied[0].Arrivals[0].Route = "36"
	is.Equal(groups[0].Arrivals[0].Route, "22") // original untouched
	is.True(CopyGroups(nil) != nil)
}
