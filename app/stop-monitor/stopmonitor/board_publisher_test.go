package stopmonitor

import (
	"errors"
	"github.com/OpenTransitTools/stopwatch/business/data/transit"
	"github.com/OpenTransitTools/stopwatch/business/monitor"
	"github.com/matryer/is"
	"testing"
	"time"
)

func TestBoardPublisher_Publish(t *testing.T) {
	is := is.New(t)
	logWriter := makeTestLogWriter()
	destination := &testDestination{boards: make(chan Board, 1)}
	board := testBoard()

	NewBoardPublisher(logWriter.log, destination).Publish(&board)
	is.Equal(<-destination.boards, board)

	failing := &testDestination{err: errors.New("nats: connection closed")}
	NewBoardPublisher(logWriter.log, failing).Publish(&board)
	is.True(logWriter.contains("Error publishing board for stop 1002"))
}

func Test_makeBoard(t *testing.T) {
	is := is.New(t)
	now := time.Date(2026, 10, 18, 15, 0, 0, 0, time.UTC)

	stop := stateLakeStops().TrainStops[0]
	board := makeBoard(monitor.Snapshot{
		StopId: stop.StopId,
		Stop:   stop,
		State:  monitor.Degraded,
		Err:    transit.NewError(transit.UpstreamUnavailable, "fetch arrivals for stop 40260", errors.New("HTTP 502")),
	}, true, now)
	is.Equal(board.StopName, "State/Lake")
	is.Equal(board.State, "Degraded")
	is.Equal(board.Groups, []transit.ArrivalGroup{})
	is.True(board.LastSuccess == nil)
	is.True(board.Error != "")
	is.True(board.HolidayService)
	is.Equal(board.GeneratedAt, now)
}
