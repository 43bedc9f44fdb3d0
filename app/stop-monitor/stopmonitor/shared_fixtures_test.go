package stopmonitor

import (
	"context"
	"github.com/OpenTransitTools/stopwatch/business/data/transit"
	"github.com/OpenTransitTools/stopwatch/business/monitor"
	"log"
	"strings"
	"sync"
	"testing"
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

type testSearcher struct {
	nearby transit.NearbyStops
	err    error
}

func (s *testSearcher) SearchStops(_ context.Context, _ transit.NearbyQuery) (transit.NearbyStops, error) {
	return s.nearby, s.err
}

type testPersister struct {
	mu      sync.Mutex
	saved   []transit.Stop
	saveErr error
}

func (p *testPersister) LoadMonitoredStops(_ context.Context) ([]transit.Stop, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return transit.CopyStops(p.saved), nil
}

func (p *testPersister) SaveMonitoredStops(_ context.Context, stops []transit.Stop) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.saveErr != nil {
		return p.saveErr
	}
	p.saved = transit.CopyStops(stops)
	return nil
}

// testFetcher returns the same arrivals for every stop
type testFetcher struct {
	arrivals []transit.Arrival
	err      error
}

func (f *testFetcher) FetchArrivals(_ context.Context, _ int, _ []int) ([]transit.Arrival, error) {
	return f.arrivals, f.err
}

func stateLakeStops() transit.NearbyStops {
	return transit.NearbyStops{
		TrainStops: []transit.Stop{
			{StopId: 40260, StopName: "State/Lake", Latitude: 41.88574, Longitude: -87.627835,
				Routes: []string{"Brown", "Green"}, Distance: 0.54},
		},
		BusStops: []transit.Stop{
			{StopId: 1002, StopName: "State/Lake", Latitude: 41.8848, Longitude: -87.6281,
				Routes: []string{"22"}, Distance: 0.47},
			{StopId: 1001, StopName: "State/Lake", Latitude: 41.8850, Longitude: -87.6278,
				Routes: []string{"22"}, Distance: 0.49},
		},
	}
}

func howardArrivals() []transit.Arrival {
	return []transit.Arrival{
		{Route: "22", Destination: "Howard", Minutes: 12, StopId: 1001},
		{Route: "22", Destination: "Howard", Minutes: 4, StopId: 1002},
		{Route: "22", Destination: "Harrison", Minutes: 0, IsDelayed: true, StopId: 1002},
	}
}

// syncBuffer is a strings.Builder safe for concurrent writes and reads
type syncBuffer struct {
	mu sync.Mutex
	sb strings.Builder
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sb.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sb.String()
}

type testApp struct {
	app       *App
	monitor   *monitor.Monitor
	persister *testPersister
	updates   <-chan monitor.Snapshot
	out       *syncBuffer
	logWriter *testLogWriter
}

// makeTestApp builds App over in memory collaborators, polling every hour so only the first poll runs
func makeTestApp(t *testing.T, format Format, persister *testPersister, fetcher *testFetcher) *testApp {
	logWriter := makeTestLogWriter()
	onUpdate, updates := MakeUpdateFeed(logWriter.log, 100)
	supervisor := monitor.NewSupervisor(context.Background(), logWriter.log, fetcher, time.Hour, onUpdate)
	stopMonitor := monitor.NewMonitor(logWriter.log, &testSearcher{nearby: stateLakeStops()},
		monitor.NewStore(logWriter.log, persister), supervisor)
	t.Cleanup(stopMonitor.Close)
	stopMonitor.Init(context.Background())

	out := &syncBuffer{}
	app := NewApp(logWriter.log, stopMonitor, NewPrinter(out, format), time.UTC)
	app.now = func() time.Time {
		return time.Date(2026, 10, 14, 8, 30, 0, 0, time.UTC)
	}
	return &testApp{
		app:       app,
		monitor:   stopMonitor,
		persister: persister,
		updates:   updates,
		out:       out,
		logWriter: logWriter,
	}
}
