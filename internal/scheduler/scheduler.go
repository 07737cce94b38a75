package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/erfi/goload/internal/config"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Iteration is one virtual-user cycle body: pick a target, issue the request,
// record the outcome. ctx is cancelled only when the run abandons its workers,
// never when a single worker retires.
type Iteration func(ctx context.Context)

// Options configures a Scheduler
type Options struct {
	Stages      []config.Stage
	Tick        time.Duration
	GracePeriod time.Duration
	Sleep       time.Duration
	MaxRPS      float64

	// OnAbandon runs once if workers are still busy when the grace period
	// ends, before their in-flight requests are cancelled.
	OnAbandon func()
}

// Result summarizes how the run ended
type Result struct {
	Elapsed     time.Duration
	Spawned     int64
	Peak        int64
	Interrupted bool
	Abandoned   int64
}

// Scheduler drives the number of live workers along the stage plan
type Scheduler struct {
	opts    Options
	iterate Iteration
	limiter *rate.Limiter

	mu     sync.Mutex
	active []*worker
	wg     sync.WaitGroup

	desired atomic.Int64
	live    atomic.Int64
	running atomic.Int64
	spawned atomic.Int64
	peak    atomic.Int64
}

type worker struct {
	id     int64
	ctx    context.Context
	retire context.CancelFunc
}

// New creates a scheduler that runs iterate in every worker
func New(opts Options, iterate Iteration) *Scheduler {
	if opts.Tick <= 0 {
		opts.Tick = 100 * time.Millisecond
	}

	s := &Scheduler{opts: opts, iterate: iterate}
	if opts.MaxRPS > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(opts.MaxRPS), 1)
	}
	return s
}

// Run executes the stage plan and blocks until every worker has retired or
// the grace period after the last stage has expired. Cancelling ctx ends the
// plan early and starts the same drain.
func (s *Scheduler) Run(ctx context.Context) Result {
	// Requests outlive parent cancellation so retiring workers can finish
	// them; they are cancelled only on abandonment.
	reqCtx, abandon := context.WithCancel(context.WithoutCancel(ctx))
	defer abandon()

	start := time.Now()
	total := TotalDuration(s.opts.Stages)
	res := Result{}

	log.Debug().
		Int("stages", len(s.opts.Stages)).
		Dur("total", total).
		Dur("grace", s.opts.GracePeriod).
		Msg("scheduler started")

	if total > 0 {
		res.Interrupted = s.follow(ctx, reqCtx, start, total)
	}

	s.reconcile(reqCtx, 0)
	if !s.drain(s.opts.GracePeriod) {
		res.Abandoned = s.running.Load()
		log.Warn().
			Int64("workers", res.Abandoned).
			Dur("grace", s.opts.GracePeriod).
			Msg("grace period expired, abandoning in-flight requests")
		if s.opts.OnAbandon != nil {
			s.opts.OnAbandon()
		}
		abandon()
	}

	res.Elapsed = time.Since(start)
	res.Spawned = s.spawned.Load()
	res.Peak = s.peak.Load()
	return res
}

// follow reconciles on every tick until the plan ends. It reports whether the
// plan was cut short by ctx.
func (s *Scheduler) follow(ctx, reqCtx context.Context, start time.Time, total time.Duration) bool {
	ticker := time.NewTicker(s.opts.Tick)
	defer ticker.Stop()
	end := time.NewTimer(total)
	defer end.Stop()

	s.reconcile(reqCtx, DesiredAt(s.opts.Stages, 0))

	for {
		select {
		case <-ctx.Done():
			log.Info().Dur("elapsed", time.Since(start)).Msg("run interrupted, draining workers")
			return true
		case <-end.C:
			return false
		case <-ticker.C:
			s.reconcile(reqCtx, DesiredAt(s.opts.Stages, time.Since(start)))
		}
	}
}

// reconcile spawns or retires workers until the live count matches desired.
// The most recently spawned workers retire first.
func (s *Scheduler) reconcile(reqCtx context.Context, desired int) {
	s.desired.Store(int64(desired))

	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.active) < desired {
		s.spawn(reqCtx)
	}
	for len(s.active) > desired {
		last := len(s.active) - 1
		s.active[last].retire()
		s.active[last] = nil
		s.active = s.active[:last]
	}

	n := int64(len(s.active))
	s.live.Store(n)
	if n > s.peak.Load() {
		s.peak.Store(n)
	}
}

// spawn starts one worker. Callers hold s.mu.
func (s *Scheduler) spawn(reqCtx context.Context) {
	ctx, retire := context.WithCancel(reqCtx)
	w := &worker{id: s.spawned.Add(1), ctx: ctx, retire: retire}
	s.active = append(s.active, w)

	s.wg.Add(1)
	s.running.Add(1)
	go s.work(reqCtx, w)
}

// work is the virtual-user loop. Retirement is observed before a cycle
// starts, while waiting on the rate limiter, and during the post-request
// sleep; an in-flight iteration always runs to completion.
func (s *Scheduler) work(reqCtx context.Context, w *worker) {
	defer s.wg.Done()
	defer s.running.Add(-1)
	defer w.retire()

	var sleep *time.Timer
	for {
		if w.ctx.Err() != nil {
			return
		}

		if s.limiter != nil {
			if err := s.limiter.Wait(w.ctx); err != nil {
				return
			}
		}

		s.iterate(reqCtx)

		if s.opts.Sleep <= 0 {
			continue
		}

		if sleep == nil {
			sleep = time.NewTimer(s.opts.Sleep)
		} else {
			sleep.Reset(s.opts.Sleep)
		}
		select {
		case <-sleep.C:
		case <-w.ctx.Done():
			sleep.Stop()
			return
		}
	}
}

// drain waits up to grace for every worker goroutine to exit
func (s *Scheduler) drain(grace time.Duration) bool {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	default:
	}

	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}

// Desired returns the current target concurrency
func (s *Scheduler) Desired() int64 { return s.desired.Load() }

// Active returns the number of workers not told to retire
func (s *Scheduler) Active() int64 { return s.live.Load() }

// Running returns the number of worker goroutines still alive, including
// retiring ones finishing their last request
func (s *Scheduler) Running() int64 { return s.running.Load() }
