package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vigilhq/vigil/internal/domain"
	"github.com/vigilhq/vigil/internal/incident"
	"github.com/vigilhq/vigil/internal/notify"
	"github.com/vigilhq/vigil/internal/probe"
	"github.com/vigilhq/vigil/internal/repo"
)

const (
	defaultConcurrency = 5
	defaultRetention   = 7 * 24 * time.Hour
)

// Runner executes one full check cycle: fan out probes under a bounded
// concurrency ceiling, persist outcomes, correlate incidents, prune old
// rows, then dispatch notifications in the background.
type Runner struct {
	Logger      *zap.Logger
	Monitors    repo.MonitorStore
	Results     repo.ResultStore
	Checker     probe.Checker
	Correlator  *incident.Correlator
	Dispatcher  *notify.Dispatcher
	Concurrency int
	Retention   time.Duration

	// Serializes overlapping triggers; the correlator's dedup guarantee
	// assumes a single batch in flight per process.
	mu sync.Mutex
}

func NewRunner(
	logger *zap.Logger,
	monitors repo.MonitorStore,
	results repo.ResultStore,
	checker probe.Checker,
	correlator *incident.Correlator,
	dispatcher *notify.Dispatcher,
	concurrency int,
	retention time.Duration,
) *Runner {
	if concurrency < 1 {
		concurrency = defaultConcurrency
	}
	if retention <= 0 {
		retention = defaultRetention
	}
	return &Runner{
		Logger:      logger,
		Monitors:    monitors,
		Results:     results,
		Checker:     checker,
		Correlator:  correlator,
		Dispatcher:  dispatcher,
		Concurrency: concurrency,
		Retention:   retention,
	}
}

// BatchReport summarizes one completed batch.
type BatchReport struct {
	Checked  int
	Outcomes []domain.CheckOutcome
}

// RunBatch checks every enabled monitor exactly once. It returns an
// error only when persistence fails; individual probe failures are data,
// not errors. With zero enabled monitors it returns immediately and
// skips every downstream step.
func (r *Runner) RunBatch(ctx context.Context) (BatchReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	monitors, err := r.Monitors.ListEnabled(ctx)
	if err != nil {
		return BatchReport{}, fmt.Errorf("list enabled monitors: %w", err)
	}
	if len(monitors) == 0 {
		return BatchReport{Checked: 0}, nil
	}

	outcomes := r.probeAll(ctx, monitors)

	if err := r.Results.AppendBatch(ctx, outcomes); err != nil {
		return BatchReport{}, fmt.Errorf("persist outcomes: %w", err)
	}

	// Synchronous: dedup depends on correlator serialization in-process.
	opened := r.Correlator.Correlate(ctx, monitors, outcomes)

	cutoff := time.Now().UTC().Add(-r.Retention)
	if err := r.Results.DeleteOlderThan(ctx, cutoff); err != nil {
		return BatchReport{}, fmt.Errorf("prune outcomes: %w", err)
	}

	if r.Dispatcher != nil {
		r.Dispatcher.Dispatch(monitors, outcomes)
	}

	r.Logger.Info("batch_completed",
		zap.Int("checked", len(monitors)),
		zap.Int("incidents_opened", opened),
	)
	return BatchReport{Checked: len(monitors), Outcomes: outcomes}, nil
}

// probeAll fans the monitors out to the checker under the concurrency
// ceiling and always produces exactly one outcome per monitor, in input
// order. A panicking probe slot becomes an error outcome for that
// monitor instead of taking the batch down.
func (r *Runner) probeAll(ctx context.Context, monitors []domain.Monitor) []domain.CheckOutcome {
	outcomes := make([]domain.CheckOutcome, len(monitors))
	sem := make(chan struct{}, r.Concurrency)
	var wg sync.WaitGroup

	for i, m := range monitors {
		i, m := i, m
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer func() { <-sem }()
			defer wg.Done()
			defer func() {
				if p := recover(); p != nil {
					outcomes[i] = domain.CheckOutcome{
						MonitorID:  m.ID,
						Kind:       domain.OutcomeError,
						Message:    fmt.Sprintf("probe panic: %v", p),
						ExecutedAt: time.Now().UTC(),
					}
					r.Logger.Error("probe_panic",
						zap.String("monitor_id", string(m.ID)),
						zap.Any("panic", p),
					)
				}
			}()
			outcomes[i] = r.Checker.Check(ctx, m)
		}()
	}

	wg.Wait()
	return outcomes
}

// Run drives RunBatch on a fixed interval until ctx is cancelled. It is
// the in-process alternative to an external cron trigger; it does an
// immediate pass, then runs each tick.
func (r *Runner) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		r.Logger.Info("interval_runner_disabled")
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	r.runLogged(ctx)

	for {
		select {
		case <-ctx.Done():
			r.Logger.Info("interval_runner_stopped")
			return
		case <-t.C:
			r.runLogged(ctx)
		}
	}
}

func (r *Runner) runLogged(ctx context.Context) {
	if _, err := r.RunBatch(ctx); err != nil {
		r.Logger.Warn("batch_failed", zap.Error(err))
	}
}
