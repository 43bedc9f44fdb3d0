package monitor

import (
	"context"
	"errors"
	"github.com/OpenTransitTools/stopwatch/business/data/transit"
	"github.com/matryer/is"
	"testing"
	"time"
)

func makeTestMonitor(searcher *testSearcher, persister *testPersister, fetcher *testFetcher) *Monitor {
	log := makeTestLogWriter().log
	supervisor := NewSupervisor(context.Background(), log, fetcher, time.Hour, nil)
	return NewMonitor(log, searcher, NewStore(log, persister), supervisor)
}

func TestMonitor_selectRelatedStopsOnce(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	persister := &testPersister{}
	monitor := makeTestMonitor(&testSearcher{nearby: stateLakeStops()}, persister, newTestFetcher())
	defer monitor.Close()
	is.Equal(len(monitor.Init(ctx)), 0)

	query, err := transit.ParseNearbyQuery("41.8781", "-87.6298", "0.5")
	is.NoErr(err)
	_, err = monitor.Search(ctx, query)
	is.NoErr(err)

	stops, added, err := monitor.Select(ctx, 1001)
	is.NoErr(err)
	is.True(added)
	is.Equal(len(stops), 1)
	is.Equal(stops[0].RelatedStopIds, []int{1002})

	// the opposite direction is the same monitoring point
	stops, added, err = monitor.Select(ctx, 1002)
	is.NoErr(err)
	is.True(!added)
	is.Equal(len(stops), 1)

	saved, _ := persister.savedStops()
	is.Equal(stopIds(saved), []int{1001})
	is.Equal(snapshotIds(monitor.Boards()), []int{1001})
}

func TestMonitor_selectEitherDirection(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	monitor := makeTestMonitor(&testSearcher{nearby: stateLakeStops()}, &testPersister{}, newTestFetcher())
	defer monitor.Close()
	monitor.Init(ctx)
	_, err := monitor.Search(ctx, transit.NearbyQuery{Lat: 41.8781, Lon: -87.6298, Radius: 0.5})
	is.NoErr(err)

	stops, added, _ := monitor.Select(ctx, 1002)
	is.True(added)
	is.Equal(stops[0].RelatedStopIds, []int{1001})
	_, added, _ = monitor.Select(ctx, 1001)
	is.True(!added)

	// train station has no same named bus routes
	stops, added, _ = monitor.Select(ctx, 40260)
	is.True(added)
	is.Equal(stopIds(stops), []int{1002, 40260})
	is.Equal(stops[1].RelatedStopIds, nil)
}

func TestMonitor_searchFailureClearsLastSearch(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	searcher := &testSearcher{nearby: stateLakeStops()}
	monitor := makeTestMonitor(searcher, &testPersister{}, newTestFetcher())
	defer monitor.Close()
	monitor.Init(ctx)

	_, err := monitor.Search(ctx, transit.NearbyQuery{Lat: 41.8781, Lon: -87.6298, Radius: 0.5})
	is.NoErr(err)
	is.Equal(len(monitor.LastSearch()), 3)

	searcher.err = transit.NewError(transit.UpstreamUnavailable, "search stops", errors.New("HTTP 502"))
	nearby, err := monitor.Search(ctx, transit.NearbyQuery{Lat: 41.8781, Lon: -87.6298, Radius: 0.5})
	is.Equal(transit.KindOf(err), transit.UpstreamUnavailable)
	is.Equal(len(nearby.All()), 0)
	is.Equal(len(monitor.LastSearch()), 0)

	_, added, err := monitor.Select(ctx, 1001)
	is.True(!added)
	is.Equal(transit.KindOf(err), transit.InvalidInput)
}

func TestMonitor_initAndRemove(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	persister := &testPersister{saved: []transit.Stop{
		{StopId: 1001, StopName: "State/Lake", Routes: []string{"22"}, RelatedStopIds: []int{1002}},
		{StopId: 40260, StopName: "State/Lake", Routes: []string{"Brown"}},
	}}
	fetcher := newTestFetcher(fetchResult{arrivals: howardArrivals()})
	monitor := makeTestMonitor(&testSearcher{}, persister, fetcher)
	defer monitor.Close()

	is.Equal(stopIds(monitor.Init(ctx)), []int{1001, 40260})
	is.Equal(snapshotIds(monitor.Boards()), []int{1001, 40260})

	stops, err := monitor.Remove(ctx, 1001)
	is.NoErr(err)
	is.Equal(stopIds(stops), []int{40260})
	is.Equal(snapshotIds(monitor.Boards()), []int{40260})
	is.Equal(stopIds(monitor.Stops()), []int{40260})

	stops, err = monitor.Remove(ctx, 1001)
	is.NoErr(err)
	is.Equal(len(stops), 1)
}

func TestMonitor_initWithUnreadableStorage(t *testing.T) {
	is := is.New(t)
	monitor := makeTestMonitor(&testSearcher{}, &testPersister{loadErr: errors.New("HTTP 500")}, newTestFetcher())
	defer monitor.Close()
	is.Equal(len(monitor.Init(context.Background())), 0)
	is.Equal(len(monitor.Boards()), 0)
}
