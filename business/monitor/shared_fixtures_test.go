package monitor

import (
	"context"
	"errors"
	"github.com/OpenTransitTools/stopwatch/business/data/transit"
	"log"
	"strings"
	"sync"
	"time"
)

type testLogWriter struct {
	mu       sync.Mutex
	logLines []string
	log      *log.Logger
}

func makeTestLogWriter() *testLogWriter {
	logWriter := testLogWriter{
		logLines: make([]string, 0),
	}
	logger := log.New(&logWriter, "STOP_MONITOR : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logWriter.log = logger
	return &logWriter
}

func (t *testLogWriter) Write(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.logLines = append(t.logLines, string(p))
	return len(p), nil
}

// contains returns true if any log line contains text
func (t *testLogWriter) contains(text string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, line := range t.logLines {
		if strings.Contains(line, text) {
			return true
		}
	}
	return false
}

// testPersister keeps the saved snapshot in memory
type testPersister struct {
	mu        sync.Mutex
	saved     []transit.Stop
	saveCount int
	loadErr   error
	saveErr   error
}

func (p *testPersister) LoadMonitoredStops(_ context.Context) ([]transit.Stop, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loadErr != nil {
		return nil, p.loadErr
	}
	return transit.CopyStops(p.saved), nil
}

func (p *testPersister) SaveMonitoredStops(_ context.Context, stops []transit.Stop) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saveCount++
	if p.saveErr != nil {
		return p.saveErr
	}
	p.saved = transit.CopyStops(stops)
	return nil
}

func (p *testPersister) savedStops() ([]transit.Stop, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return transit.CopyStops(p.saved), p.saveCount
}

type fetchCall struct {
	stopId         int
	relatedStopIds []int
	at             time.Time
}

type fetchResult struct {
	arrivals []transit.Arrival
	err      error
}

// testFetcher returns results in order, repeating the last one once exhausted.
// When release is not nil each fetch waits for it, ignoring cancellation.
type testFetcher struct {
	mu      sync.Mutex
	results []fetchResult
	next    int
	calls   chan fetchCall
	release chan struct{}
}

func newTestFetcher(results ...fetchResult) *testFetcher {
	return &testFetcher{
		results: results,
		calls:   make(chan fetchCall, 100),
	}
}

func (f *testFetcher) FetchArrivals(_ context.Context, stopId int, relatedStopIds []int) ([]transit.Arrival, error) {
	select {
	case f.calls <- fetchCall{stopId: stopId, relatedStopIds: relatedStopIds, at: time.Now()}:
	default:
	}
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.results) == 0 {
		return []transit.Arrival{}, nil
	}
	result := f.results[f.next]
	if f.next < len(f.results)-1 {
		f.next++
	}
	return result.arrivals, result.err
}

// testSearcher returns nearby or err
type testSearcher struct {
	nearby transit.NearbyStops
	err    error
	calls  int
}

func (s *testSearcher) SearchStops(_ context.Context, _ transit.NearbyQuery) (transit.NearbyStops, error) {
	s.calls++
	return s.nearby, s.err
}

// updateCollector returns an onUpdate func sending to a buffered channel without blocking
func updateCollector() (func(Snapshot), chan Snapshot) {
	updates := make(chan Snapshot, 100)
	return func(snapshot Snapshot) {
		select {
		case updates <- snapshot:
		default:
		}
	}, updates
}

var errUpstream = errors.New("HTTP 503 Service Unavailable")

func howardArrivals() []transit.Arrival {
	return []transit.Arrival{
		{Route: "22", Destination: "Howard", Minutes: 12, StopId: 1001},
		{Route: "22", Destination: "Howard", Minutes: 4, StopId: 1001},
	}
}

func stateLakeStops() transit.NearbyStops {
	return transit.NearbyStops{
		TrainStops: []transit.Stop{
			{StopId: 40260, StopName: "State/Lake", Latitude: 41.88574, Longitude: -87.627835,
				Routes: []string{"Brown", "Green", "Orange", "Pink", "Purple"}, Distance: 0.5},
		},
		BusStops: []transit.Stop{
			{StopId: 1001, StopName: "State/Lake", Latitude: 41.885, Longitude: -87.6278,
				Routes: []string{"22"}, Distance: 0.49},
			{StopId: 1002, StopName: "State/Lake", Latitude: 41.8852, Longitude: -87.6276,
				Routes: []string{"22"}, Distance: 0.5},
		},
	}
}
