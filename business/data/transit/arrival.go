package transit

import "sort"

// Arrival is a single arrival prediction reported by the upstream provider for a stop.
// Minutes may be zero or negative when the vehicle is due.
type Arrival struct {
	Route       string `json:"route" yaml:"route" validate:"required"`
	Destination string `json:"destination" yaml:"destination" validate:"required"`
	ArrivalTime string `json:"arrival_time" yaml:"arrival_time"`
	Minutes     int    `json:"minutes" yaml:"minutes"`
	IsDelayed   bool   `json:"is_delayed" yaml:"is_delayed"`
	RouteColor  string `json:"route_color,omitempty" yaml:"route_color,omitempty"`
	StopId      int    `json:"stop_id,omitempty" yaml:"stop_id,omitempty" validate:"gte=0"`
}

// ArrivalGroup holds all arrivals heading to the same destination ordered by Minutes
type ArrivalGroup struct {
	Destination string    `json:"destination" yaml:"destination"`
	Arrivals    []Arrival `json:"arrivals" yaml:"arrivals"`
}

// GroupArrivals collects arrivals into ArrivalGroups keyed by exact Destination.
// Arrivals within a group are sorted ascending by Minutes, keeping reported order for ties.
// Groups are ordered by their soonest arrival, then by destination.
func GroupArrivals(arrivals []Arrival) []ArrivalGroup {
	byDestination := make(map[string]int)
	groups := make([]ArrivalGroup, 0)
	for _, arrival := range arrivals {
		index, present := byDestination[arrival.Destination]
		if !present {
			index = len(groups)
			byDestination[arrival.Destination] = index
			groups = append(groups, ArrivalGroup{Destination: arrival.Destination})
		}
		groups[index].Arrivals = append(groups[index].Arrivals, arrival)
	}

	for g := range groups {
		groupArrivals := groups[g].Arrivals
		sort.SliceStable(groupArrivals, func(i, j int) bool {
			return groupArrivals[i].Minutes < groupArrivals[j].Minutes
		})
	}
	sort.SliceStable(groups, func(i, j int) bool {
		first, second := groups[i].Arrivals[0].Minutes, groups[j].Arrivals[0].Minutes
		if first != second {
			return first < second
		}
		return groups[i].Destination < groups[j].Destination
	})
	return groups
}

// CopyGroups returns a deep copy of groups, never nil
func CopyGroups(groups []ArrivalGroup) []ArrivalGroup {
	result := make([]ArrivalGroup, 0, len(groups))
	for _, group := range groups {
		result = append(result, ArrivalGroup{
			Destination: group.Destination,
			Arrivals:    append([]Arrival{}, group.Arrivals...),
		})
	}
	return result
}
