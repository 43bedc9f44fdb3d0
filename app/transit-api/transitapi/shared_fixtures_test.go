package transitapi

import (
	"context"
	"errors"
	"github.com/OpenTransitTools/stopwatch/business/catalog"
	"github.com/OpenTransitTools/stopwatch/business/data/transit"
	"log"
	"strings"
	"sync"
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
	logger := log.New(&logWriter, "TRANSIT_API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logWriter.log = logger
	return &logWriter
}

func (t *testLogWriter) Write(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.logLines = append(t.logLines, string(p))
	return len(p), nil
}

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

// testLoader serves a fixed catalog, refreshes are counted
type testLoader struct {
	mu        sync.Mutex
	current   *catalog.Catalog
	refreshes int
}

func (t *testLoader) Current() *catalog.Catalog {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

func (t *testLoader) Refresh(_ context.Context) (*catalog.Catalog, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.refreshes++
	if t.current == nil {
		return nil, errors.New("no stop file")
	}
	return t.current, nil
}

func (t *testLoader) refreshCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.refreshes
}

func stateLakeCatalog() *catalog.Catalog {
	return catalog.New([]catalog.Entry{
		{RouteId: "22", RouteCode: "22", StopName: "State/Lake", StopId: 1001, Latitude: 41.8850, Longitude: -87.6278},
		{RouteId: "22", RouteCode: "22", StopName: "State/Lake", StopId: 1002, Latitude: 41.8848, Longitude: -87.6281},
		{RouteId: "Brown", RouteCode: "Brn", StopName: "State/Lake", StopId: 40260, Latitude: 41.88574,
			Longitude: -87.627835},
		{RouteId: "Green", RouteCode: "G", StopName: "State/Lake", StopId: 40260, Latitude: 41.88574,
			Longitude: -87.627835},
	})
}

type arrivalRequest struct {
	stopId         int
	relatedStopIds []int
}

// testArrivalSource returns arrivals or err, recording each request
type testArrivalSource struct {
	mu       sync.Mutex
	arrivals []transit.Arrival
	err      error
	requests []arrivalRequest
}

func (t *testArrivalSource) Arrivals(_ context.Context, stopId int, relatedStopIds []int) ([]transit.Arrival, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.requests = append(t.requests, arrivalRequest{stopId: stopId, relatedStopIds: relatedStopIds})
	if t.err != nil {
		return nil, t.err
	}
	return t.arrivals, nil
}

func (t *testArrivalSource) requestList() []arrivalRequest {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]arrivalRequest{}, t.requests...)
}

// testStorage keeps stops in memory, failing with loadErr and saveErr when set
type testStorage struct {
	mu      sync.Mutex
	stops   []transit.Stop
	loadErr error
	saveErr error
	saves   int
}

func (t *testStorage) LoadMonitoredStops(_ context.Context) ([]transit.Stop, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.loadErr != nil {
		return nil, t.loadErr
	}
	return transit.CopyStops(t.stops), nil
}

func (t *testStorage) SaveMonitoredStops(_ context.Context, stops []transit.Stop) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.saves++
	if t.saveErr != nil {
		return t.saveErr
	}
	t.stops = transit.CopyStops(stops)
	return nil
}

func (t *testStorage) saveCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.saves
}
