package tasks

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lysyi3m/rent-comb/app/apperr"
	"github.com/lysyi3m/rent-comb/app/cache"
	"github.com/lysyi3m/rent-comb/app/listing"
	"github.com/lysyi3m/rent-comb/app/notify"
)

const (
	CycleTimeout = 5 * time.Minute

	// StopTimeout is how long Stop waits for a running cycle before
	// cancelling it.
	StopTimeout = 8 * time.Second
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

// Status is a point-in-time copy of the poll loop state.
type Status struct {
	Profile      string        `json:"profile"`
	Cycles       int64         `json:"cycles"`
	Failures     int64         `json:"failures"`
	LastCycleAt  *time.Time    `json:"last_cycle_at,omitempty"`
	LastDuration time.Duration `json:"last_duration"`
	LastError    string        `json:"last_error,omitempty"`
	LastReport   CycleReport   `json:"last_report"`
	Totals       notify.Stats  `json:"totals"`
	Pending      int           `json:"pending"`
	Entries      []cache.Entry `json:"-"`
}

// Scheduler runs poll cycles one at a time on a single goroutine. The wait
// between cycles starts when a cycle ends and is cut short by Stop.
type Scheduler struct {
	profile  *listing.Profile
	fetcher  Fetcher
	cache    *cache.ListingCache
	gate     *notify.Gate
	interval time.Duration

	ctx         context.Context
	cancel      context.CancelFunc
	abortCycle  context.CancelFunc
	cycleCtx    context.Context
	stopTimeout time.Duration
	running     atomic.Bool
	wg          sync.WaitGroup

	mu     sync.RWMutex
	status Status
}

func NewScheduler(profile *listing.Profile, fetcher Fetcher, c *cache.ListingCache, gate *notify.Gate,
	interval time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	cycleCtx, abortCycle := context.WithCancel(context.Background())

	return &Scheduler{
		profile:     profile,
		fetcher:     fetcher,
		cache:       c,
		gate:        gate,
		interval:    interval,
		ctx:         ctx,
		cancel:      cancel,
		cycleCtx:    cycleCtx,
		abortCycle:  abortCycle,
		stopTimeout: StopTimeout,
		status:      Status{Profile: profile.Name},
	}
}

func (s *Scheduler) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		timer := time.NewTimer(0)
		defer timer.Stop()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-timer.C:
				s.runCycle()
				timer.Reset(s.interval)
			}
		}
	}()
}

// Stop cancels the wait between cycles and lets a running cycle finish. A
// cycle still running after StopTimeout is cancelled.
func (s *Scheduler) Stop() {
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	if s.running.Load() {
		slog.Info("Waiting for running cycle to finish", "profile", s.profile.Name, "timeout", s.stopTimeout)
	}

	select {
	case <-done:
	case <-time.After(s.stopTimeout):
		slog.Warn("Cycle did not finish in time, cancelling", "profile", s.profile.Name)
		s.abortCycle()
		<-done
	}

	s.abortCycle()
}

func (s *Scheduler) GetStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := s.status
	status.Entries = append([]cache.Entry(nil), s.status.Entries...)
	return status
}

func (s *Scheduler) runCycle() {
	s.running.Store(true)
	defer s.running.Store(false)

	task := NewPollTask(s.profile, s.fetcher, s.cache, s.gate)
	task.Start()

	// Shutdown does not interrupt a started cycle; only Stop's deadline does.
	ctx, cancel := context.WithTimeout(s.cycleCtx, CycleTimeout)
	defer cancel()

	err := task.Execute(ctx)
	duration := task.GetDuration()

	logTaskResult(task, err, duration)
	if err == nil {
		slog.Debug("Cycle report", "id", task.GetID(), "found", task.Report.Found,
			"parsed", task.Report.Parsed, "notified", task.Report.Notify.Notified)
	}

	s.publish(task, err, duration)
}

// logTaskResult logs the outcome of a task. Transport failures are the site
// being unreachable and are logged as warnings.
func logTaskResult(task TaskInterface, err error, duration time.Duration) {
	attrs := []any{"type", string(task.GetType()), "id", task.GetID(), "profile", task.GetProfileName(),
		"duration", duration}

	switch {
	case err == nil:
		slog.Info("Task completed", attrs...)
	case apperr.Is(err, apperr.KindTransport):
		slog.Warn("Task failed", append(attrs, "kind", apperr.KindTransport, "error", err)...)
	default:
		slog.Error("Task failed", append(attrs, "kind", apperr.KindOf(err), "error", err)...)
	}
}

func (s *Scheduler) publish(task *PollTask, err error, duration time.Duration) {
	entries := s.cache.Snapshot()
	pending := s.gate.Pending()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.status.Cycles++
	s.status.LastCycleAt = task.StartedAt
	s.status.LastDuration = duration
	s.status.Pending = pending
	s.status.Entries = entries

	if err != nil {
		s.status.Failures++
		s.status.LastError = err.Error()
		return
	}

	s.status.LastError = ""
	s.status.LastReport = task.Report
	s.status.Totals.Examined += task.Report.Notify.Examined
	s.status.Totals.Notified += task.Report.Notify.Notified
	s.status.Totals.Skipped += task.Report.Notify.Skipped
	s.status.Totals.Absorbed += task.Report.Notify.Absorbed
	s.status.Totals.Failed += task.Report.Notify.Failed
}
