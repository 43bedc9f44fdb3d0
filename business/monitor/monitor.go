// Package monitor keeps the set of monitored stops and polls live arrivals for each of them
package monitor

import (
	"context"
	"fmt"
	"github.com/OpenTransitTools/stopwatch/business/data/transit"
	"github.com/OpenTransitTools/stopwatch/business/grouping"
	"log"
	"sync"
)

// StopSearcher finds stops near a point
type StopSearcher interface {
	SearchStops(ctx context.Context, query transit.NearbyQuery) (transit.NearbyStops, error)
}

// Monitor ties a nearby stop search, the Store and the Supervisor together.
// Stops are selected from the most recent search, which is also the set used to find related stops.
type Monitor struct {
	log        *log.Logger
	searcher   StopSearcher
	store      *Store
	supervisor *Supervisor

	mu         sync.Mutex
	lastSearch []transit.Stop
}

// NewMonitor builds Monitor, call Init before use
func NewMonitor(log *log.Logger, searcher StopSearcher, store *Store, supervisor *Supervisor) *Monitor {
	return &Monitor{
		log:        log,
		searcher:   searcher,
		store:      store,
		supervisor: supervisor,
	}
}

// Init loads the saved monitored stops and starts polling their arrivals
func (m *Monitor) Init(ctx context.Context) []transit.Stop {
	stops := m.store.Load(ctx)
	m.supervisor.Sync(stops)
	return stops
}

// Search runs a nearby stop search and keeps its result for Select.
// On failure the previous result is discarded.
func (m *Monitor) Search(ctx context.Context, query transit.NearbyQuery) (transit.NearbyStops, error) {
	nearby, err := m.searcher.SearchStops(ctx, query)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.lastSearch = nil
		return transit.NearbyStops{TrainStops: []transit.Stop{}, BusStops: []transit.Stop{}}, err
	}
	m.lastSearch = transit.CopyStops(nearby.All())
	return nearby, nil
}

// Select starts monitoring stopId from the last search, relating it to stops of the same name and route.
// added is false if the stop or one related to it is already monitored.
// err is InvalidInput when stopId was not in the last search result, or a PersistenceWriteFailure when the
// stop was added but could not be saved.
func (m *Monitor) Select(ctx context.Context, stopId int) (stops []transit.Stop, added bool, err error) {
	m.mu.Lock()
	universe := transit.CopyStops(m.lastSearch)
	m.mu.Unlock()

	var candidate *transit.Stop
	for i := range universe {
		if universe[i].StopId == stopId {
			candidate = &universe[i]
			break
		}
	}
	if candidate == nil {
		return m.store.Stops(), false, transit.InvalidField("select stop", "stop_id",
			fmt.Sprintf("stop %d is not in the last search result", stopId))
	}

	stops, added, err = m.store.Add(ctx, grouping.Attach(*candidate, universe))
	if added {
		m.supervisor.Sync(stops)
	}
	return stops, added, err
}

// Remove stops monitoring stopId. err is a PersistenceWriteFailure when the change could not be saved.
func (m *Monitor) Remove(ctx context.Context, stopId int) ([]transit.Stop, error) {
	stops, err := m.store.Remove(ctx, stopId)
	m.supervisor.Sync(stops)
	return stops, err
}

// Stops returns the monitored stops
func (m *Monitor) Stops() []transit.Stop {
	return m.store.Stops()
}

// LastSearch returns the stops found by the last successful search
func (m *Monitor) LastSearch() []transit.Stop {
	m.mu.Lock()
	defer m.mu.Unlock()
	return transit.CopyStops(m.lastSearch)
}

// Boards returns the arrival Snapshot for each monitored stop
func (m *Monitor) Boards() []Snapshot {
	return m.supervisor.Snapshots()
}

// Close stops all arrival polling
func (m *Monitor) Close() {
	m.supervisor.Close()
}
