package stopmonitor

import (
	"testing"
	"time"
)

func Test_transitHolidayCalendar_isHolidayService(t *testing.T) {
	central := time.FixedZone("CST", -6*60*60)
	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{name: "christmas", at: time.Date(2026, 12, 25, 12, 0, 0, 0, central), want: true},
		{name: "thanksgiving", at: time.Date(2026, 11, 26, 7, 0, 0, 0, central), want: true},
		{name: "independence day observed on friday", at: time.Date(2026, 7, 3, 9, 0, 0, 0, central), want: true},
		{name: "sunday", at: time.Date(2026, 10, 18, 15, 0, 0, 0, central), want: true},
		{name: "weekday", at: time.Date(2026, 12, 22, 12, 0, 0, 0, central), want: false},
		{name: "saturday", at: time.Date(2026, 10, 17, 12, 0, 0, 0, central), want: false},
		{name: "holiday without sunday service", at: time.Date(2026, 1, 19, 8, 0, 0, 0, central), want: false},
		{name: "evaluated in agency time zone", at: time.Date(2026, 12, 26, 3, 0, 0, 0, time.UTC), want: true},
	}
	calendar := makeTransitHolidayCalendar(central)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := calendar.isHolidayService(tt.at); got != tt.want {
				t.Errorf("isHolidayService() = %v, want %v", got, tt.want)
			}
		})
	}
}
