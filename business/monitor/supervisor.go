package monitor

import (
	"context"
	"github.com/OpenTransitTools/stopwatch/business/data/transit"
	"log"
	"reflect"
	"sync"
	"time"
)

// Supervisor runs one Aggregator per monitored stop
type Supervisor struct {
	log      *log.Logger
	ctx      context.Context
	fetcher  ArrivalFetcher
	interval time.Duration
	onUpdate func(Snapshot)

	mu          sync.Mutex
	order       []int
	aggregators map[int]*Aggregator
	retired     []*Aggregator
	closed      bool
}

// NewSupervisor builds a Supervisor whose Aggregators poll until ctx is done or they are stopped
func NewSupervisor(ctx context.Context,
	log *log.Logger,
	fetcher ArrivalFetcher,
	interval time.Duration,
	onUpdate func(Snapshot)) *Supervisor {
	return &Supervisor{
		log:         log,
		ctx:         ctx,
		fetcher:     fetcher,
		interval:    interval,
		onUpdate:    onUpdate,
		aggregators: make(map[int]*Aggregator),
	}
}

// Sync starts Aggregators for stops not yet polled and stops those no longer present in stops.
// A stop whose related stops changed is restarted.
func (s *Supervisor) Sync(stops []transit.Stop) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.retired = exitedRemoved(s.retired)

	wanted := make(map[int]transit.Stop, len(stops))
	order := make([]int, 0, len(stops))
	for _, stop := range stops {
		if _, present := wanted[stop.StopId]; present {
			continue
		}
		wanted[stop.StopId] = stop
		order = append(order, stop.StopId)
	}

	for stopId, aggregator := range s.aggregators {
		stop, present := wanted[stopId]
		if present && reflect.DeepEqual(aggregator.stop.AllStopIds(), stop.AllStopIds()) {
			continue
		}
		aggregator.Stop()
		s.retired = append(s.retired, aggregator)
		delete(s.aggregators, stopId)
		s.log.Printf("stopped arrival polling for stop %d", stopId)
	}

	for _, stopId := range order {
		if _, present := s.aggregators[stopId]; present {
			continue
		}
		aggregator := NewAggregator(s.log, wanted[stopId], s.fetcher, s.interval, s.onUpdate)
		s.aggregators[stopId] = aggregator
		aggregator.Start(s.ctx)
		s.log.Printf("started arrival polling for %v", wanted[stopId])
	}
	s.order = order
}

// Snapshots returns the Snapshot of every running Aggregator in monitored order
func (s *Supervisor) Snapshots() []Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]Snapshot, 0, len(s.order))
	for _, stopId := range s.order {
		if aggregator, present := s.aggregators[stopId]; present {
			result = append(result, aggregator.Snapshot())
		}
	}
	return result
}

// Close stops all Aggregators and waits for their polling loops to exit
func (s *Supervisor) Close() {
	s.mu.Lock()
	s.closed = true
	waitFor := s.retired
	for _, aggregator := range s.aggregators {
		aggregator.Stop()
		waitFor = append(waitFor, aggregator)
	}
	s.aggregators = make(map[int]*Aggregator)
	s.order = nil
	s.retired = nil
	s.mu.Unlock()

	for _, aggregator := range waitFor {
		aggregator.Wait()
	}
}

// exitedRemoved returns aggregators whose polling loop is still running, reusing the backing array
func exitedRemoved(aggregators []*Aggregator) []*Aggregator {
	running := aggregators[:0]
	for _, aggregator := range aggregators {
		select {
		case <-aggregator.Done():
		default:
			running = append(running, aggregator)
		}
	}
	for i := len(running); i < len(aggregators); i++ {
		aggregators[i] = nil
	}
	return running
}
