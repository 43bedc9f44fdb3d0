package stopmonitor

import (
	"context"
	"errors"
	"github.com/OpenTransitTools/stopwatch/business/data/transit"
	"github.com/matryer/is"
	"os"
	"strings"
	"testing"
	"time"
)

var stateLakeQuery = transit.NearbyQuery{Lat: 41.8781, Lon: -87.6298, Radius: 1}

func TestApp_Add(t *testing.T) {
	is := is.New(t)
	persister := &testPersister{}
	tApp := makeTestApp(t, TextFormat, persister, &testFetcher{})

	is.NoErr(tApp.app.Add(context.Background(), stateLakeQuery, 1002))
	is.True(strings.Contains(tApp.out.String(), "1002   State/Lake (22) 0.47 mi related: 1001\n"))
	saved := transit.CopyStops(persister.saved)
	is.Equal(len(saved), 1)
	is.Equal(saved[0].RelatedStopIds, []int{1001})

	// related to a monitored stop
	is.NoErr(tApp.app.Add(context.Background(), stateLakeQuery, 1001))
	is.True(tApp.logWriter.contains("stop 1001 or a stop related to it is already monitored"))
	is.Equal(len(tApp.monitor.Stops()), 1)

	// same name, no shared route
	is.NoErr(tApp.app.Add(context.Background(), stateLakeQuery, 40260))
	stops := tApp.monitor.Stops()
	is.Equal(len(stops), 2)
	is.Equal(stops[1].StopId, 40260)
	is.Equal(len(stops[1].RelatedStopIds), 0)
}

func TestApp_Add_notInSearch(t *testing.T) {
	is := is.New(t)
	tApp := makeTestApp(t, TextFormat, &testPersister{}, &testFetcher{})

	err := tApp.app.Add(context.Background(), stateLakeQuery, 40900)
	is.True(transit.IsKind(err, transit.InvalidInput))
	is.Equal(len(tApp.monitor.Stops()), 0)
}

func TestApp_Add_saveFailure(t *testing.T) {
	is := is.New(t)
	persister := &testPersister{saveErr: errors.New("HTTP 500")}
	tApp := makeTestApp(t, TextFormat, persister, &testFetcher{})

	is.NoErr(tApp.app.Add(context.Background(), stateLakeQuery, 1002))
	is.True(tApp.logWriter.contains("warning:"))
	is.Equal(len(tApp.monitor.Stops()), 1)
}

func TestApp_Remove(t *testing.T) {
	is := is.New(t)
	persister := &testPersister{saved: []transit.Stop{stateLakeStops().TrainStops[0]}}
	tApp := makeTestApp(t, JSONFormat, persister, &testFetcher{})

	is.NoErr(tApp.app.Remove(context.Background(), 40260))
	is.Equal(tApp.out.String(), "[]\n")
	is.Equal(len(persister.saved), 0)

	// removing again changes nothing
	is.NoErr(tApp.app.Remove(context.Background(), 40260))
}

func TestApp_List(t *testing.T) {
	is := is.New(t)
	monitored := stateLakeStops().BusStops[0]
	monitored.RelatedStopIds = []int{1001}
	persister := &testPersister{saved: []transit.Stop{monitored}}
	tApp := makeTestApp(t, TextFormat, persister, &testFetcher{arrivals: howardArrivals()})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	is.NoErr(tApp.app.List(ctx, tApp.updates))
	is.Equal(tApp.out.String(), "State/Lake (1002) 22 [ready]\n"+
		"  Harrison: due (delayed)\n"+
		"  Howard: 4 min, 12 min\n")
}

func TestApp_List_noStops(t *testing.T) {
	is := is.New(t)
	tApp := makeTestApp(t, TextFormat, &testPersister{}, &testFetcher{})

	is.NoErr(tApp.app.List(context.Background(), tApp.updates))
	is.Equal(tApp.out.String(), "No monitored stops\n")
}

func TestApp_List_upstreamFailure(t *testing.T) {
	is := is.New(t)
	persister := &testPersister{saved: []transit.Stop{stateLakeStops().TrainStops[0]}}
	tApp := makeTestApp(t, TextFormat, persister, &testFetcher{err: errors.New("HTTP 502")})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	is.NoErr(tApp.app.List(ctx, tApp.updates))
	out := tApp.out.String()
	is.True(strings.HasPrefix(out, "State/Lake (40260) Brown, Green [degraded]\n  no arrivals\n"))
	is.True(strings.Contains(out, "unavailable: "))
}

// testDestination passes published boards to a channel
type testDestination struct {
	boards chan Board
	err    error
}

func (d *testDestination) Publish(board *Board) error {
	if d.err != nil {
		return d.err
	}
	d.boards <- *board
	return nil
}

func TestApp_Watch(t *testing.T) {
	is := is.New(t)
	monitored := stateLakeStops().BusStops[0]
	persister := &testPersister{saved: []transit.Stop{monitored}}
	tApp := makeTestApp(t, JSONFormat, persister, &testFetcher{arrivals: howardArrivals()})

	destination := &testDestination{boards: make(chan Board, 10)}
	publisher := NewBoardPublisher(tApp.logWriter.log, destination)
	shutdown := make(chan os.Signal, 1)
	done := make(chan error, 1)
	go func() {
		done <- tApp.app.Watch(tApp.updates, publisher, shutdown)
	}()

	select {
	case board := <-destination.boards:
		is.Equal(board.StopId, 1002)
		is.Equal(board.State, "Ready")
		is.Equal(len(board.Groups), 2)
		is.Equal(board.Groups[0].Destination, "Harrison")
		is.True(board.LastSuccess != nil)
		is.True(!board.HolidayService)
	case <-time.After(5 * time.Second):
		t.Fatal("no board published")
	}

	shutdown <- os.Interrupt
	select {
	case err := <-done:
		is.NoErr(err)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after shutdown signal")
	}
	out := tApp.out.String()
	is.True(strings.Contains(out, `"stop_id": 1002`))
	is.True(strings.Contains(out, `"holiday_service": false`))
	is.True(tApp.logWriter.contains("Exiting watch on shutdown signal"))
}
