// Package catalog loads the transit agency's stop and route list and answers nearby stop searches
package catalog

import (
	"github.com/OpenTransitTools/stopwatch/business/data/transit"
	"sort"
)

// StopType classifies a stop by its id range
type StopType int

const (
	UnknownStop StopType = iota
	// BusStop ids below 30000
	BusStop
	// TrainPlatform ids from 30000 to 39999, one per direction at a station
	TrainPlatform
	// TrainStation ids from 40000 to 49999, parent of the station's platforms
	TrainStation
)

// String implements Stringer interface for StopType
func (s StopType) String() string {
	switch s {
	case BusStop:
		return "bus"
	case TrainPlatform:
		return "train"
	case TrainStation:
		return "parent_train"
	}
	return "unknown"
}

// Classify returns the StopType of stopId
func Classify(stopId int) StopType {
	switch {
	case stopId <= 0:
		return UnknownStop
	case stopId < 30000:
		return BusStop
	case stopId < 40000:
		return TrainPlatform
	case stopId < 50000:
		return TrainStation
	}
	return UnknownStop
}

// ParentStopId returns the station id of a train platform, other stops are their own parent
func ParentStopId(stopId int) int {
	if Classify(stopId) == TrainPlatform {
		return 40000 + (stopId - 30000)
	}
	return stopId
}

// Entry is one row of the stop list, a stop served by a route
type Entry struct {
	RouteId           string
	RouteCode         string
	StopName          string
	StopId            int
	Latitude          float64
	Longitude         float64
	HeadingDegrees    float64
	TransferToRouteId string
	Type              StopType
	ParentStopId      int
}

// Catalog is an immutable, loaded stop list
type Catalog struct {
	entries   []Entry
	stopNames map[int]string
}

// New builds Catalog from entries
func New(entries []Entry) *Catalog {
	c := Catalog{
		entries:   make([]Entry, 0, len(entries)),
		stopNames: make(map[int]string),
	}
	for _, entry := range entries {
		entry.Type = Classify(entry.StopId)
		entry.ParentStopId = ParentStopId(entry.StopId)
		c.entries = append(c.entries, entry)
		if _, present := c.stopNames[entry.StopId]; !present {
			c.stopNames[entry.StopId] = entry.StopName
		}
	}
	return &c
}

// Len returns the number of entries
func (c *Catalog) Len() int {
	return len(c.entries)
}

// StopName returns the name of stopId
func (c *Catalog) StopName(stopId int) (string, bool) {
	name, present := c.stopNames[stopId]
	return name, present
}

// Nearby returns stations and bus stops within query.Radius miles of the query point, each list ordered by distance.
// Rows of the same station are merged with their routes combined. Bus stops sharing a name and route are
// consolidated into the nearest one, listing the others as its related stops.
func (c *Catalog) Nearby(query transit.NearbyQuery) transit.NearbyStops {
	stations := make(map[int]*transit.Stop)
	stationOrder := make([]int, 0)

	type busKey struct {
		name  string
		route string
	}
	busGroups := make(map[busKey][]*transit.Stop)
	busOrder := make([]busKey, 0)

	for i := range c.entries {
		entry := &c.entries[i]
		if entry.Type != TrainStation && entry.Type != BusStop {
			continue
		}
		distance := transit.DistanceMiles(query.Lat, query.Lon, entry.Latitude, entry.Longitude)
		if distance > query.Radius {
			continue
		}

		if entry.Type == TrainStation {
			station, present := stations[entry.StopId]
			if !present {
				station = entryStop(entry, distance)
				stations[entry.StopId] = station
				stationOrder = append(stationOrder, entry.StopId)
				continue
			}
			if !containsString(station.Routes, entry.RouteId) {
				station.Routes = append(station.Routes, entry.RouteId)
			}
			continue
		}

		key := busKey{name: entry.StopName, route: entry.RouteId}
		if _, present := busGroups[key]; !present {
			busOrder = append(busOrder, key)
		}
		busGroups[key] = append(busGroups[key], entryStop(entry, distance))
	}

	result := transit.NearbyStops{
		TrainStops: make([]transit.Stop, 0, len(stationOrder)),
		BusStops:   make([]transit.Stop, 0, len(busOrder)),
	}
	for _, stopId := range stationOrder {
		result.TrainStops = append(result.TrainStops, *stations[stopId])
	}
	for _, key := range busOrder {
		result.BusStops = append(result.BusStops, consolidate(busGroups[key]))
	}

	sort.SliceStable(result.TrainStops, func(i, j int) bool {
		return result.TrainStops[i].Distance < result.TrainStops[j].Distance
	})
	sort.SliceStable(result.BusStops, func(i, j int) bool {
		return result.BusStops[i].Distance < result.BusStops[j].Distance
	})
	return result
}

// consolidate returns the nearest of stops with the ids of the others as RelatedStopIds
func consolidate(stops []*transit.Stop) transit.Stop {
	primary := stops[0]
	for _, stop := range stops[1:] {
		if stop.Distance < primary.Distance {
			primary = stop
		}
	}
	result := *primary
	for _, stop := range stops {
		if stop.StopId != primary.StopId && !result.IsRelatedTo(stop.StopId) {
			result.RelatedStopIds = append(result.RelatedStopIds, stop.StopId)
		}
	}
	return result
}

func entryStop(entry *Entry, distance float64) *transit.Stop {
	return &transit.Stop{
		StopId:    entry.ParentStopId,
		StopName:  entry.StopName,
		Latitude:  entry.Latitude,
		Longitude: entry.Longitude,
		Routes:    []string{entry.RouteId},
		Distance:  distance,
	}
}

func containsString(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
