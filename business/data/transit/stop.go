// Package transit contains the stop and arrival records exchanged between the stop monitor and the transit api
package transit

import (
	"fmt"
	"math"
)

// Stop is a transit stop as returned by a nearby stop search.
// RelatedStopIds is computed when the stop is selected for monitoring, a search never supplies it
// except for bus stops consolidated on the server.
type Stop struct {
	StopId         int      `json:"stop_id" yaml:"stop_id" validate:"gt=0"`
	StopName       string   `json:"stop_name" yaml:"stop_name" validate:"required"`
	Latitude       float64  `json:"latitude" yaml:"latitude" validate:"gte=-90,lte=90"`
	Longitude      float64  `json:"longitude" yaml:"longitude" validate:"gte=-180,lte=180"`
	Routes         []string `json:"routes" yaml:"routes" validate:"dive,required"`
	Distance       float64  `json:"distance" yaml:"distance" validate:"gte=0"`
	RelatedStopIds []int    `json:"related_stop_ids,omitempty" yaml:"related_stop_ids,omitempty" validate:"dive,gt=0"`
}

// String implements Stringer interface for Stop
func (s Stop) String() string {
	return fmt.Sprintf("Stop{id:%d, name:%q, routes:%v, related:%v}", s.StopId, s.StopName, s.Routes,
		s.RelatedStopIds)
}

// SharesRoute returns true if s and other have at least one route in common
func (s *Stop) SharesRoute(other *Stop) bool {
	for _, route := range s.Routes {
		for _, otherRoute := range other.Routes {
			if route == otherRoute {
				return true
			}
		}
	}
	return false
}

// IsRelatedTo returns true if stopId is listed in RelatedStopIds
func (s *Stop) IsRelatedTo(stopId int) bool {
	for _, id := range s.RelatedStopIds {
		if id == stopId {
			return true
		}
	}
	return false
}

// AllStopIds returns StopId followed by each RelatedStopIds entry
func (s *Stop) AllStopIds() []int {
	result := make([]int, 0, len(s.RelatedStopIds)+1)
	result = append(result, s.StopId)
	return append(result, s.RelatedStopIds...)
}

// Copy returns a Stop that shares no slices with s
func (s Stop) Copy() Stop {
	result := s
	if s.Routes != nil {
		result.Routes = append([]string{}, s.Routes...)
	}
	if s.RelatedStopIds != nil {
		result.RelatedStopIds = append([]int{}, s.RelatedStopIds...)
	}
	return result
}

// CopyStops returns a deep copy of stops, never nil
func CopyStops(stops []Stop) []Stop {
	result := make([]Stop, 0, len(stops))
	for _, stop := range stops {
		result = append(result, stop.Copy())
	}
	return result
}

// NearbyStops is the result of a nearby stop search, grouped by mode
type NearbyStops struct {
	TrainStops []Stop `json:"train_stops" yaml:"train_stops"`
	BusStops   []Stop `json:"bus_stops" yaml:"bus_stops"`
}

// All returns train stops followed by bus stops
func (n *NearbyStops) All() []Stop {
	result := make([]Stop, 0, len(n.TrainStops)+len(n.BusStops))
	result = append(result, n.TrainStops...)
	return append(result, n.BusStops...)
}

// Find returns the stop with stopId, if present
func (n *NearbyStops) Find(stopId int) (Stop, bool) {
	for _, stop := range n.All() {
		if stop.StopId == stopId {
			return stop, true
		}
	}
	return Stop{}, false
}

// earthRadiusMiles used by DistanceMiles
const earthRadiusMiles = 3959.87433

// DistanceMiles calculates the great circle distance in miles between two points using the haversine formula
func DistanceMiles(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Asin(math.Sqrt(a))

	return earthRadiusMiles * c
}
