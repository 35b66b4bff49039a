package loadtest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/gazecluster/pkg/logger"
)

const (
	roleStudent = "student"
	roleTeacher = "teacher"

	directoryPermission = 0o750
	resultsPermission   = 0o600
)

// Report is the outcome of a run.
type Report struct {
	Students Summary
	Teachers Summary
	// LastAggregate is the final successful teacher response, if any.
	LastAggregate *AggregateResult
	Duration      time.Duration
}

// Run checks service health, then drives students and teachers
// concurrently until each has issued cfg.Rounds requests.
func Run(ctx context.Context, cfg *Config) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := logger.Get().Named("loadtest")
	start := time.Now()

	log.Info(ctx, "starting gaze load test",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("students", cfg.Students),
		logger.Int("teachers", cfg.Teachers),
		logger.Int("rounds", cfg.Rounds),
		logger.String("interval", cfg.Interval.String()),
	)

	client := NewClient(cfg.BaseURL, cfg.Timeout)
	if err := client.Health(ctx); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	gen := NewGenerator(cfg.Seed, cfg.Clusters)
	students := NewRecorder(roleStudent)
	teachers := NewRecorder(roleTeacher)
	lastAgg := make(chan AggregateResult, 1)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < cfg.Students; i++ {
		sessionID := gen.SessionID()
		g.Go(func() error {
			return runStudent(gctx, cfg, client, gen, sessionID, students, log)
		})
	}
	for i := 0; i < cfg.Teachers; i++ {
		g.Go(func() error {
			return runTeacher(gctx, cfg, client, teachers, lastAgg, log)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load test interrupted: %w", err)
	}

	report := &Report{
		Students: students.Summary(),
		Teachers: teachers.Summary(),
		Duration: time.Since(start),
	}
	select {
	case agg := <-lastAgg:
		report.LastAggregate = &agg
	default:
	}

	log.Info(ctx, "load test completed",
		logger.String("students", report.Students.String()),
		logger.String("teachers", report.Teachers.String()),
		logger.String("duration", report.Duration.String()),
	)

	if cfg.ResultsFile != "" {
		if err := appendResults(cfg.ResultsFile, report); err != nil {
			log.Warn(ctx, "failed to write results file", logger.Error(err))
		}
	}
	return report, nil
}

func runStudent(ctx context.Context, cfg *Config, client *Client, gen *Generator, sessionID string, rec *Recorder, log logger.Logger) error {
	for round := 0; round < cfg.Rounds; round++ {
		took, err := client.Submit(ctx, gen.Batch(sessionID, cfg.Fixations))
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			rec.Failure()
			if cfg.Verbose {
				log.Warn(ctx, "submit failed", logger.String("session", sessionID), logger.Error(err))
			}
		} else {
			rec.Success(took)
		}
		if round == cfg.Rounds-1 {
			break
		}
		if err := pause(ctx, cfg.Interval); err != nil {
			return err
		}
	}
	return nil
}

func runTeacher(ctx context.Context, cfg *Config, client *Client, rec *Recorder, last chan AggregateResult, log logger.Logger) error {
	for round := 0; round < cfg.Rounds; round++ {
		agg, took, err := client.Aggregate(ctx)
		switch {
		case err == nil:
			rec.Success(took)
			keepLatest(last, agg)
			if cfg.Verbose {
				log.Info(ctx, "aggregate",
					logger.Int("points", len(agg.Fixations)),
					logger.Int("k", agg.K),
					logger.Float64("silhouette", agg.Silhouette),
				)
			}
		case errors.Is(err, ErrNoData):
			rec.Empty()
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			rec.Failure()
			if cfg.Verbose {
				log.Warn(ctx, "aggregate failed", logger.Error(err))
			}
		}
		if round == cfg.Rounds-1 {
			break
		}
		if err := pause(ctx, cfg.Interval); err != nil {
			return err
		}
	}
	return nil
}

// keepLatest replaces whatever is buffered in ch with v.
func keepLatest(ch chan AggregateResult, v AggregateResult) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// appendResults writes one line per role to path, creating it if needed.
func appendResults(path string, r *Report) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, resultsPermission)
	if err != nil {
		return fmt.Errorf("failed to open results file: %w", err)
	}
	stamp := time.Now().UTC().Format(time.RFC3339)
	_, werr := fmt.Fprintf(f, "%s %s\n%s %s\n", stamp, r.Students, stamp, r.Teachers)
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	return werr
}
