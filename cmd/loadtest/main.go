package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/gazecluster/internal/loadtest"
	"github.com/okian/gazecluster/pkg/logger"
)

// Default configuration constants.
const (
	defaultStudents  = 30
	defaultTeachers  = 2
	defaultRounds    = 225
	defaultInterval  = time.Second
	defaultFixations = 10
	defaultClusters  = 4
	defaultTimeout   = 30 * time.Second
	defaultDeadline  = 30 * time.Minute
)

var (
	cfg      loadtest.Config
	logLevel string
	deadline time.Duration
)

func init() {
	flags := rootCmd.Flags()
	flags.StringVarP(&cfg.BaseURL, "url", "u", "http://localhost:9000", "Base URL of the aggregator")
	flags.IntVarP(&cfg.Students, "students", "s", defaultStudents, "Number of simulated students")
	flags.IntVarP(&cfg.Teachers, "teachers", "t", defaultTeachers, "Number of simulated teachers")
	flags.IntVarP(&cfg.Rounds, "rounds", "r", defaultRounds, "Requests per participant")
	flags.DurationVarP(&cfg.Interval, "interval", "i", defaultInterval, "Pause between a participant's requests")
	flags.IntVar(&cfg.Fixations, "fixations", defaultFixations, "Fixations per student batch")
	flags.IntVar(&cfg.Clusters, "clusters", defaultClusters, "Gaze hot spots to draw fixations from")
	flags.DurationVar(&cfg.Timeout, "timeout", defaultTimeout, "HTTP request timeout")
	flags.StringVarP(&cfg.ResultsFile, "output", "o", "", "Append per-role summaries to this file")
	flags.Uint64Var(&cfg.Seed, "seed", uint64(time.Now().UnixNano()), "Generator seed")
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", false, "Log every failed request")
	flags.StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flags.DurationVar(&deadline, "deadline", defaultDeadline, "Abort the whole run after this long")
}

var rootCmd = &cobra.Command{
	Use:   "loadtest",
	Short: "Load test a gaze aggregator",
	Long: `loadtest simulates students posting clustered gaze batches and teachers
polling the clustered aggregate, then reports per-role mean and p95 latency.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := logger.InitWithOptions(logger.Options{Level: logLevel, Format: "console"}); err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx, cancel := context.WithTimeout(ctx, deadline)
		defer cancel()

		_, err := loadtest.Run(ctx, &cfg)
		return err
	},
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
