package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/erfi/goload/internal/client"
	"github.com/erfi/goload/internal/config"
	"github.com/erfi/goload/internal/metrics"
	"github.com/erfi/goload/internal/output"
	"github.com/erfi/goload/internal/scheduler"
	"github.com/erfi/goload/internal/target"
	"github.com/erfi/goload/internal/threshold"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/ksuid"
	"golang.org/x/sync/errgroup"
)

// ErrThresholdsFailed matches every *ThresholdsError with errors.Is
var ErrThresholdsFailed = errors.New("thresholds violated")

// ThresholdsError is returned by Run when the verdict failed. The report has
// already been written.
type ThresholdsError struct {
	Verdict threshold.Verdict
}

func (e *ThresholdsError) Error() string {
	names := make([]string, len(e.Verdict.Violated))
	for i, id := range e.Verdict.Violated {
		names[i] = string(id)
	}
	return fmt.Sprintf("%v: %s", ErrThresholdsFailed, strings.Join(names, ", "))
}

func (e *ThresholdsError) Is(target error) bool {
	return target == ErrThresholdsFailed
}

// ExitCode is the process status for the failed verdict
func (e *ThresholdsError) ExitCode() int {
	return e.Verdict.ExitCode()
}

// Options contains presentation settings that are not part of the run config
type Options struct {
	OutputFormat string
	Verbose      bool
	Out          io.Writer
}

// App represents one load test run
type App struct {
	config     *config.Config
	runID      string
	logger     zerolog.Logger
	selector   *target.Selector
	client     *client.Client
	executor   *client.Executor
	aggregator *metrics.Aggregator
	formatter  output.Formatter
	out        io.Writer
}

// New validates cfg and wires the run components. Every error it returns is a
// *config.Error; no request has been issued at that point.
func New(cfg *config.Config, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	selector, err := target.New(cfg.TargetPool, target.NewSource(cfg.Seed))
	if err != nil {
		return nil, config.NewError(err, err.Error())
	}

	formatter, err := output.GetFormatter(opts.OutputFormat, opts.Verbose)
	if err != nil {
		return nil, config.NewError(err, err.Error())
	}

	resolveMap, err := client.ParseResolveHosts(cfg.Resolve)
	if err != nil {
		return nil, config.NewError(err, err.Error())
	}

	// Pool one idle connection per virtual user at peak
	peak := max(scheduler.Peak(cfg.Stages), 1)
	httpClient := client.NewClient(&client.Config{
		Timeout:        cfg.RequestTimeout(),
		Insecure:       cfg.Insecure,
		MaxIdleConns:   peak,
		MaxIdlePerHost: peak,
		ResolveMap:     resolveMap,
	})

	executor := client.NewExecutor(httpClient, client.ExecutorConfig{
		BaseURL:      cfg.BaseURL,
		SLA:          cfg.SLA(),
		MaxBodyBytes: cfg.MaxBodyBytes,
		RequestName:  cfg.RequestName,
	})

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	runID := ksuid.New().String()

	return &App{
		config:     cfg,
		runID:      runID,
		logger:     log.With().Str("run_id", runID).Logger(),
		selector:   selector,
		client:     httpClient,
		executor:   executor,
		aggregator: metrics.NewAggregator(),
		formatter:  formatter,
		out:        out,
	}, nil
}

// RunID returns the identifier attached to every log line of this run
func (a *App) RunID() string {
	return a.runID
}

// Run executes the stage plan, then writes the report. It returns a
// *ThresholdsError when the verdict fails and a *metrics.AggregationError
// if the collected metrics are inconsistent. Cancelling ctx stops the plan
// early; the report still covers every request that completed.
func (a *App) Run(ctx context.Context) (*output.Report, error) {
	defer a.client.CloseIdleConnections()

	ctx = a.logger.WithContext(ctx)
	started := time.Now()

	a.logger.Info().
		Str("base_url", a.config.BaseURL).
		Int("targets", a.selector.Size()).
		Int("stages", len(a.config.Stages)).
		Int("peak_vus", scheduler.Peak(a.config.Stages)).
		Dur("duration", a.config.TotalDuration()).
		Msg("load test started")

	sched := scheduler.New(scheduler.Options{
		Stages:      a.config.Stages,
		Tick:        a.config.Tick(),
		GracePeriod: a.config.GracePeriod(),
		Sleep:       a.config.PostRequestSleep(),
		MaxRPS:      a.config.MaxRPS,
		OnAbandon:   a.aggregator.Seal,
	}, a.iterate)

	var result scheduler.Result
	done := make(chan struct{})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(done)
		result = sched.Run(gctx)
		return nil
	})
	if interval := a.config.ProgressInterval(); interval > 0 {
		g.Go(func() error {
			return a.reportProgress(gctx, done, sched, interval)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	a.aggregator.Seal()
	snap, err := a.aggregator.Snapshot()
	if err != nil {
		a.logger.Error().Err(err).Msg("aggregated metrics are inconsistent, aborting")
		return nil, err
	}

	verdict := threshold.Evaluate(snap, threshold.FromConfig(a.config.Thresholds))

	report := &output.Report{
		RunID:   a.runID,
		Name:    a.config.RequestName,
		BaseURL: a.config.BaseURL,
		Started: started,
		Stages:  a.config.Stages,
		Run:     output.NewRunInfo(result),
		Metrics: snap,
		Verdict: verdict,
	}

	a.logger.Info().
		Int64("requests", snap.Count).
		Int64("failures", snap.FailureCount).
		Dur("elapsed", result.Elapsed).
		Bool("interrupted", result.Interrupted).
		Bool("passed", verdict.Passed).
		Msg("load test finished")

	if err := a.formatter.Write(a.out, report); err != nil {
		return report, fmt.Errorf("failed to format output: %w", err)
	}

	if verdict.ExitCode() != 0 {
		for _, r := range verdict.Results {
			if !r.Passed {
				a.logger.Warn().
					Str("threshold", string(r.ID)).
					Float64("observed", r.Observed).
					Float64("limit", r.Limit).
					Msg("threshold violated")
			}
		}
		return report, &ThresholdsError{Verdict: verdict}
	}

	return report, nil
}

// iterate is one virtual-user cycle
func (a *App) iterate(ctx context.Context) {
	id := a.selector.Next()
	outcome := a.executor.Execute(ctx, id)
	if !a.aggregator.Record(outcome) {
		a.logger.Debug().Str("target", id).Msg("outcome discarded after seal")
	}
}

// reportProgress logs a live summary every interval until the scheduler is
// done. An inconsistent snapshot aborts the run.
func (a *App) reportProgress(ctx context.Context, done <-chan struct{}, sched *scheduler.Scheduler, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			snap, err := a.aggregator.Snapshot()
			if err != nil {
				a.logger.Error().Err(err).Msg("aggregated metrics are inconsistent, aborting")
				return err
			}

			a.logger.Info().
				Dur("elapsed", time.Duration(snap.Elapsed).Round(time.Second)).
				Int64("desired_vus", sched.Desired()).
				Int64("active_vus", sched.Active()).
				Int64("running_vus", sched.Running()).
				Int64("requests", snap.Count).
				Int64("failures", snap.FailureCount).
				Float64("rps", snap.Throughput).
				Dur("p95", time.Duration(snap.P95)).
				Msg("progress")
		}
	}
}
