package monitor

import (
	"context"
	"fmt"
	"github.com/OpenTransitTools/stopwatch/business/data/transit"
	"log"
	"sync"
	"time"
)

// DefaultInterval between the start of two arrival polls for a monitored stop
const DefaultInterval = 30 * time.Second

// State of an Aggregator
type State int

const (
	// Idle created but not yet started
	Idle State = iota
	// Polling a fetch is in flight
	Polling
	// Ready the last fetch succeeded
	Ready
	// Degraded the last fetch failed, groups from the last success are retained
	Degraded
	// Stopped no further fetches will be made
	Stopped
)

// String implements Stringer interface for State
func (s State) String() string {
	switch s {
	case Polling:
		return "Polling"
	case Ready:
		return "Ready"
	case Degraded:
		return "Degraded"
	case Stopped:
		return "Stopped"
	}
	return "Idle"
}

// MarshalText reports State by name in json and yaml output
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ArrivalFetcher retrieves current arrivals for stopId and its related stops in a single call
type ArrivalFetcher interface {
	FetchArrivals(ctx context.Context, stopId int, relatedStopIds []int) ([]transit.Arrival, error)
}

// Snapshot is the view of an Aggregator at a point in time.
// Groups holds the result of the last successful poll, even while Degraded.
type Snapshot struct {
	StopId      int                    `json:"stop_id" yaml:"stop_id"`
	Stop        transit.Stop           `json:"stop" yaml:"stop"`
	State       State                  `json:"state" yaml:"state"`
	Groups      []transit.ArrivalGroup `json:"groups" yaml:"groups"`
	Err         error                  `json:"-" yaml:"-"`
	LastAttempt time.Time              `json:"last_attempt" yaml:"last_attempt"`
	LastSuccess time.Time              `json:"last_success" yaml:"last_success"`
}

// HasData returns true if a poll has ever succeeded
func (s *Snapshot) HasData() bool {
	return !s.LastSuccess.IsZero()
}

// Aggregator polls arrivals for one monitored stop and its related stops, grouping them by destination.
// Polls are sequential, each starting Interval after the start of the previous one.
type Aggregator struct {
	log         *log.Logger
	stop        transit.Stop
	fetcher     ArrivalFetcher
	interval    time.Duration
	onUpdate    func(Snapshot)
	instruments *pollInstruments

	// notifyMu is held while a poll result is applied and delivered, ordering Stop against onUpdate
	notifyMu    sync.Mutex
	mu          sync.Mutex
	state       State
	groups      []transit.ArrivalGroup
	err         error
	lastAttempt time.Time
	lastSuccess time.Time
	started     bool
	stopped     bool
	cancel      context.CancelFunc
	done        chan struct{}
}

// NewAggregator builds an Idle Aggregator for stop. An interval of zero or less uses DefaultInterval.
// onUpdate, if not nil, is called with a Snapshot after each poll result is applied.
// It is never called once Stop has returned and must not call Stop itself.
func NewAggregator(log *log.Logger,
	stop transit.Stop,
	fetcher ArrivalFetcher,
	interval time.Duration,
	onUpdate func(Snapshot)) *Aggregator {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Aggregator{
		log:         log,
		stop:        stop.Copy(),
		fetcher:     fetcher,
		interval:    interval,
		onUpdate:    onUpdate,
		instruments: newPollInstruments(log),
		groups:      make([]transit.ArrivalGroup, 0),
		done:        make(chan struct{}),
	}
}

// StopId of the monitored stop
func (a *Aggregator) StopId() int {
	return a.stop.StopId
}

// Start begins polling immediately. ctx bounds the lifetime of the polling loop.
// Calling Start more than once, or after Stop, has no effect.
func (a *Aggregator) Start(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started || a.stopped {
		return
	}
	a.started = true
	a.state = Polling
	ctx, a.cancel = context.WithCancel(ctx)
	go a.run(ctx)
}

// Stop ends polling. An in-flight fetch is cancelled and its result discarded. An update being delivered
// completes before Stop returns; Stop does not wait for the polling loop to exit, see Wait.
func (a *Aggregator) Stop() {
	a.notifyMu.Lock()
	defer a.notifyMu.Unlock()
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		return
	}
	a.stopped = true
	a.state = Stopped
	if a.cancel != nil {
		a.cancel()
	}
	if !a.started {
		close(a.done)
	}
}

// Wait blocks until the polling loop has exited after Stop
func (a *Aggregator) Wait() {
	<-a.done
}

// Done is closed when the polling loop has exited
func (a *Aggregator) Done() <-chan struct{} {
	return a.done
}

// Snapshot returns the current view of the Aggregator
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

func (a *Aggregator) snapshotLocked() Snapshot {
	return Snapshot{
		StopId:      a.stop.StopId,
		Stop:        a.stop.Copy(),
		State:       a.state,
		Groups:      transit.CopyGroups(a.groups),
		Err:         a.err,
		LastAttempt: a.lastAttempt,
		LastSuccess: a.lastSuccess,
	}
}

// run polls until ctx is cancelled, leaving the Aggregator Stopped
func (a *Aggregator) run(ctx context.Context) {
	defer close(a.done)
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			a.markStopped()
			return
		case <-timer.C:
		}

		// mark the time we start working
		start := time.Now()
		a.poll(ctx, start)

		// next poll is measured from the start of this one
		timer.Reset(nextPollDelay(a.interval, time.Since(start)))
	}
}

// markStopped records that polling ended because the context bounding it was cancelled
func (a *Aggregator) markStopped() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.stopped {
		a.log.Printf("arrival polling for stop %d ended, context done", a.stop.StopId)
	}
	a.stopped = true
	a.state = Stopped
}

// nextPollDelay returns how long to wait before the next poll when the last one took workTook.
// Zero if the work took the whole interval or more.
func nextPollDelay(interval time.Duration, workTook time.Duration) time.Duration {
	if workTook >= interval {
		return 0
	}
	return interval - workTook
}

// poll fetches arrivals and applies the result unless the Aggregator was stopped, or ctx cancelled,
// while the fetch was in flight
func (a *Aggregator) poll(ctx context.Context, start time.Time) {
	a.mu.Lock()
	if a.stopped || ctx.Err() != nil {
		a.mu.Unlock()
		return
	}
	a.state = Polling
	a.lastAttempt = start
	a.mu.Unlock()

	spanCtx, span := a.instruments.startPoll(ctx, a.stop.StopId, a.stop.RelatedStopIds)
	arrivals, err := a.fetcher.FetchArrivals(spanCtx, a.stop.StopId, a.stop.RelatedStopIds)
	a.instruments.endPoll(spanCtx, span, start, len(arrivals), err)

	var groups []transit.ArrivalGroup
	if err == nil {
		groups = transit.GroupArrivals(arrivals)
	} else if transit.KindOf(err) == transit.UnknownError {
		err = transit.NewError(transit.UpstreamUnavailable, fmt.Sprintf("fetch arrivals for stop %d", a.stop.StopId), err)
	}

	a.notifyMu.Lock()
	defer a.notifyMu.Unlock()
	a.mu.Lock()
	if a.stopped || ctx.Err() != nil {
		a.mu.Unlock()
		a.log.Printf("discarding arrivals for stop %d received after stop", a.stop.StopId)
		return
	}
	if err != nil {
		a.state = Degraded
		a.err = err
	} else {
		a.state = Ready
		a.err = nil
		a.groups = groups
		a.lastSuccess = time.Now()
	}
	snapshot := a.snapshotLocked()
	a.mu.Unlock()

	if err != nil {
		a.log.Printf("arrivals for stop %d unavailable, keeping %d previous groups. error:%v", a.stop.StopId,
			len(snapshot.Groups), err)
	}
	if a.onUpdate != nil {
		a.onUpdate(snapshot)
	}
}
