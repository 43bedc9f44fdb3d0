// Package grouping relates stops that riders treat as one boarding location,
// such as the two sides of a street served by the same route.
package grouping

import "github.com/OpenTransitTools/stopwatch/business/data/transit"

// Relate returns the ids of stops in universe that share candidate's stop name and at least one of its routes.
// candidate itself is never included even when present in universe. Ids are de-duplicated and kept in universe order.
// A candidate without routes has no related stops.
func Relate(candidate transit.Stop, universe []transit.Stop) []int {
	result := make([]int, 0)
	if len(candidate.Routes) == 0 {
		return result
	}
	seen := make(map[int]bool)
	for i := range universe {
		stop := &universe[i]
		if stop.StopId == candidate.StopId || seen[stop.StopId] {
			continue
		}
		if stop.StopName != candidate.StopName || !candidate.SharesRoute(stop) {
			continue
		}
		seen[stop.StopId] = true
		result = append(result, stop.StopId)
	}
	return result
}

// Attach returns a copy of candidate with RelatedStopIds extended by the stops Relate finds in universe.
// Ids already carried by candidate are kept first.
func Attach(candidate transit.Stop, universe []transit.Stop) transit.Stop {
	result := candidate.Copy()
	related := make([]int, 0, len(candidate.RelatedStopIds))
	seen := map[int]bool{candidate.StopId: true}
	for _, id := range candidate.RelatedStopIds {
		if !seen[id] {
			seen[id] = true
			related = append(related, id)
		}
	}
	for _, id := range Relate(candidate, universe) {
		if !seen[id] {
			seen[id] = true
			related = append(related, id)
		}
	}
	result.RelatedStopIds = nil
	if len(related) > 0 {
		result.RelatedStopIds = related
	}
	return result
}
