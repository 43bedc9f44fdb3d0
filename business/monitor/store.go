package monitor

import (
	"context"
	"github.com/OpenTransitTools/stopwatch/business/data/transit"
	"log"
	"sync"
)

// Persister reads and writes the complete set of monitored stops
type Persister interface {
	LoadMonitoredStops(ctx context.Context) ([]transit.Stop, error)
	SaveMonitoredStops(ctx context.Context, stops []transit.Stop) error
}

// Store owns the ordered set of monitored stops and keeps Persister in sync with it.
// At most one stop per equivalence class is held: stops related through RelatedStopIds in either
// direction are never monitored together.
type Store struct {
	log       *log.Logger
	persister Persister
	mu        sync.Mutex
	stops     []transit.Stop
}

// NewStore builds an empty Store, call Load to read the saved set
func NewStore(log *log.Logger, persister Persister) *Store {
	return &Store{
		log:       log,
		persister: persister,
		stops:     make([]transit.Stop, 0),
	}
}

// Load replaces the current set with the one saved by Persister.
// A failed read is logged as PersistenceReadFailure and results in an empty set.
func (s *Store) Load(ctx context.Context) []transit.Stop {
	s.mu.Lock()
	defer s.mu.Unlock()

	loaded, err := s.persister.LoadMonitoredStops(ctx)
	if err != nil {
		err = transit.NewError(transit.PersistenceReadFailure, "load monitored stops", err)
		s.log.Printf("starting with no monitored stops, error:%v", err)
		s.stops = make([]transit.Stop, 0)
		return transit.CopyStops(s.stops)
	}

	s.stops = make([]transit.Stop, 0, len(loaded))
	for _, stop := range loaded {
		if s.conflictsLocked(&stop) {
			s.log.Printf("ignoring saved stop %d, already monitored through a related stop", stop.StopId)
			continue
		}
		s.stops = append(s.stops, stop.Copy())
	}
	s.log.Printf("loaded %d monitored stops", len(s.stops))
	return transit.CopyStops(s.stops)
}

// Add appends stop unless it, or a stop related to it, is already monitored.
// added is false when the set is unchanged. When the new set cannot be saved the addition is kept and
// warning carries a PersistenceWriteFailure.
func (s *Store) Add(ctx context.Context, stop transit.Stop) (stops []transit.Stop, added bool, warning error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conflictsLocked(&stop) {
		return transit.CopyStops(s.stops), false, nil
	}
	s.stops = append(s.stops, stop.Copy())
	s.log.Printf("monitoring %v", stop)
	return transit.CopyStops(s.stops), true, s.saveLocked(ctx, "add monitored stop")
}

// Remove drops the stop with stopId. Stops related to it are not removed.
// Removing a stop that is not monitored leaves the set and Persister untouched.
func (s *Store) Remove(ctx context.Context, stopId int) (stops []transit.Stop, warning error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	index := -1
	for i := range s.stops {
		if s.stops[i].StopId == stopId {
			index = i
			break
		}
	}
	if index < 0 {
		return transit.CopyStops(s.stops), nil
	}
	remaining := make([]transit.Stop, 0, len(s.stops)-1)
	remaining = append(remaining, s.stops[:index]...)
	s.stops = append(remaining, s.stops[index+1:]...)
	s.log.Printf("no longer monitoring stop %d", stopId)
	return transit.CopyStops(s.stops), s.saveLocked(ctx, "remove monitored stop")
}

// Stops returns a copy of the monitored set in the order stops were added
func (s *Store) Stops() []transit.Stop {
	s.mu.Lock()
	defer s.mu.Unlock()
	return transit.CopyStops(s.stops)
}

// conflictsLocked returns true if stop is already monitored, lists a monitored stop as related,
// or is listed as related by a monitored stop
func (s *Store) conflictsLocked(stop *transit.Stop) bool {
	for i := range s.stops {
		monitored := &s.stops[i]
		if monitored.StopId == stop.StopId ||
			stop.IsRelatedTo(monitored.StopId) ||
			monitored.IsRelatedTo(stop.StopId) {
			return true
		}
	}
	return false
}

// saveLocked writes the full set through Persister, returning a PersistenceWriteFailure on error
func (s *Store) saveLocked(ctx context.Context, op string) error {
	err := s.persister.SaveMonitoredStops(ctx, transit.CopyStops(s.stops))
	if err != nil {
		err = transit.NewError(transit.PersistenceWriteFailure, op, err)
		s.log.Printf("monitored stops changed locally but were not saved, error:%v", err)
		return err
	}
	return nil
}
