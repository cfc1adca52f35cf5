package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

const (
	DefaultPollInterval = 3 * time.Second
	DefaultDragGrace    = 500 * time.Millisecond
	DefaultInputGrace   = 100 * time.Millisecond
)

// TickResult says what a scheduled tick did.
type TickResult int

const (
	Fetched TickResult = iota
	Suspended
	InFlight
	NoList
	Failed
)

func (r TickResult) String() string {
	switch r {
	case Fetched:
		return "fetched"
	case Suspended:
		return "suspended"
	case InFlight:
		return "in-flight"
	case NoList:
		return "no-list"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Timer is the part of *time.Timer the scheduler uses.
type Timer interface {
	Stop() bool
}

type SchedulerOptions struct {
	Interval   time.Duration
	DragGrace  time.Duration
	InputGrace time.Duration
	Logger     *slog.Logger
}

// Scheduler polls the engine's active list and suspends polling while the
// user interacts. Ticks that arrive while suspended are dropped.
//
// Interactions nest: every BeginInteraction needs its own End call, and
// polling resumes when the last one has ended.
type Scheduler struct {
	eng        *Engine
	interval   time.Duration
	dragGrace  time.Duration
	inputGrace time.Duration
	log        *slog.Logger

	// AfterFunc schedules grace-delayed resumes; tests replace it.
	AfterFunc func(d time.Duration, f func()) Timer

	mu    sync.Mutex
	depth int
}

func NewScheduler(e *Engine, opts SchedulerOptions) *Scheduler {
	s := &Scheduler{
		eng:        e,
		interval:   opts.Interval,
		dragGrace:  opts.DragGrace,
		inputGrace: opts.InputGrace,
		log:        opts.Logger,
		AfterFunc: func(d time.Duration, f func()) Timer {
			return time.AfterFunc(d, f)
		},
	}
	if s.interval <= 0 {
		s.interval = DefaultPollInterval
	}
	if s.dragGrace <= 0 {
		s.dragGrace = DefaultDragGrace
	}
	if s.inputGrace <= 0 {
		s.inputGrace = DefaultInputGrace
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s
}

func (s *Scheduler) Interval() time.Duration { return s.interval }

// BeginInteraction suspends polling until the matching End call.
func (s *Scheduler) BeginInteraction() {
	s.mu.Lock()
	s.depth++
	s.eng.setInteracting(true)
	s.mu.Unlock()
}

// EndInteraction ends one interaction immediately.
func (s *Scheduler) EndInteraction() {
	s.mu.Lock()
	s.releaseLocked()
	s.mu.Unlock()
}

// EndInteractionAfter ends one interaction once d has elapsed. Interactions
// begun in the meantime keep polling suspended.
func (s *Scheduler) EndInteractionAfter(d time.Duration) {
	if d <= 0 {
		s.EndInteraction()
		return
	}
	s.AfterFunc(d, s.EndInteraction)
}

func (s *Scheduler) releaseLocked() {
	if s.depth > 0 {
		s.depth--
	}
	s.eng.setInteracting(s.depth > 0)
}

// EndDrag resumes after the drag grace delay, leaving time for the move
// request that is still in flight.
func (s *Scheduler) EndDrag() { s.EndInteractionAfter(s.dragGrace) }

// EndInput resumes after an input loses focus.
func (s *Scheduler) EndInput() { s.EndInteractionAfter(s.inputGrace) }

// Suspended reports whether polling is currently suspended.
func (s *Scheduler) Suspended() bool {
	return s.eng.Session().Interacting
}

// Tick performs one scheduled refresh. Failures are logged and otherwise
// ignored; the next tick retries.
func (s *Scheduler) Tick(ctx context.Context) TickResult {
	_, err := s.eng.BackgroundRefresh(ctx)
	switch {
	case err == nil:
		return Fetched
	case errors.Is(err, errSuspended):
		return Suspended
	case errors.Is(err, ErrRefreshInFlight):
		return InFlight
	case errors.Is(err, ErrNoList):
		return NoList
	default:
		s.log.Debug("background refresh failed", slog.Any("err", err))
		return Failed
	}
}

// Run ticks every interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			s.Tick(ctx)
		}
	}
}
