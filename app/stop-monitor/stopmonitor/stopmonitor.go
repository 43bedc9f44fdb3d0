// Package stopmonitor runs the stop monitor commands: searching for stops, choosing which to monitor and
// printing or publishing their arrival boards
package stopmonitor

import (
	"context"
	"fmt"
	"github.com/OpenTransitTools/stopwatch/business/data/transit"
	"github.com/OpenTransitTools/stopwatch/business/monitor"
	logger "log"
	"os"
	"time"
)

// MakeUpdateFeed returns an update func for monitor.NewSupervisor and the channel it sends to.
// Updates are dropped, and logged, when the channel is full.
func MakeUpdateFeed(log *logger.Logger, size int) (func(monitor.Snapshot), <-chan monitor.Snapshot) {
	updates := make(chan monitor.Snapshot, size)
	return func(snapshot monitor.Snapshot) {
		select {
		case updates <- snapshot:
		default:
			log.Printf("dropping board update for stop %d, update feed is full", snapshot.StopId)
		}
	}, updates
}

// App runs commands against a monitor.Monitor, printing results with a Printer
type App struct {
	log      *logger.Logger
	monitor  *monitor.Monitor
	printer  *Printer
	holidays *transitHolidayCalendar
	now      func() time.Time
}

// NewApp builds App. location is used to decide if holiday service is running.
func NewApp(log *logger.Logger, stopMonitor *monitor.Monitor, printer *Printer, location *time.Location) *App {
	return &App{
		log:      log,
		monitor:  stopMonitor,
		printer:  printer,
		holidays: makeTransitHolidayCalendar(location),
		now:      time.Now,
	}
}

// Search prints stops near query
func (a *App) Search(ctx context.Context, query transit.NearbyQuery) error {
	nearby, err := a.monitor.Search(ctx, query)
	if err != nil {
		return fmt.Errorf("searching for stops: %w", err)
	}
	return a.printer.PrintNearby(nearby)
}

// Add searches near query and starts monitoring stopId from the result, then prints the monitored stops.
// Nothing changes when stopId or a stop related to it is already monitored.
func (a *App) Add(ctx context.Context, query transit.NearbyQuery, stopId int) error {
	if _, err := a.monitor.Search(ctx, query); err != nil {
		return fmt.Errorf("searching for stops: %w", err)
	}
	stops, added, err := a.monitor.Select(ctx, stopId)
	if transit.IsKind(err, transit.InvalidInput) {
		return err
	}
	if err != nil {
		a.log.Printf("warning: %v", err)
	}
	if added {
		a.log.Printf("monitoring stop %d", stopId)
	} else {
		a.log.Printf("stop %d or a stop related to it is already monitored", stopId)
	}
	return a.printer.PrintStops(stops)
}

// Remove stops monitoring stopId and prints the monitored stops
func (a *App) Remove(ctx context.Context, stopId int) error {
	stops, err := a.monitor.Remove(ctx, stopId)
	if err != nil {
		a.log.Printf("warning: %v", err)
	}
	return a.printer.PrintStops(stops)
}

// List waits for the first poll of every monitored stop, or ctx to end, then prints their boards
func (a *App) List(ctx context.Context, updates <-chan monitor.Snapshot) error {
	pending := make(map[int]bool)
	for _, stop := range a.monitor.Stops() {
		pending[stop.StopId] = true
	}
	for len(pending) > 0 {
		select {
		case <-ctx.Done():
			a.log.Printf("printing boards before %d stops were polled", len(pending))
			return a.printer.PrintBoards(a.boards(a.monitor.Boards()))
		case snapshot := <-updates:
			delete(pending, snapshot.StopId)
		}
	}
	return a.printer.PrintBoards(a.boards(a.monitor.Boards()))
}

// Watch prints each board update, and publishes it when publisher is not nil, until shutdownSignal
func (a *App) Watch(updates <-chan monitor.Snapshot, publisher *BoardPublisher, shutdownSignal chan os.Signal) error {
	stops := a.monitor.Stops()
	if len(stops) == 0 {
		a.log.Printf("no stops are monitored, add one with the add command")
	}
	a.log.Printf("watching %d stops", len(stops))
	for {
		select {
		case <-shutdownSignal:
			a.log.Printf("Exiting watch on shutdown signal")
			return nil
		case snapshot := <-updates:
			board := a.board(snapshot)
			if err := a.printer.PrintBoard(&board); err != nil {
				return fmt.Errorf("printing board: %w", err)
			}
			if publisher != nil {
				publisher.Publish(&board)
			}
		}
	}
}

func (a *App) board(snapshot monitor.Snapshot) Board {
	now := a.now()
	return makeBoard(snapshot, a.holidays.isHolidayService(now), now)
}

func (a *App) boards(snapshots []monitor.Snapshot) []Board {
	result := make([]Board, 0, len(snapshots))
	for _, snapshot := range snapshots {
		result = append(result, a.board(snapshot))
	}
	return result
}
