package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/common/model"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jihwankim/chaos-scheduler/pkg/config"
	"github.com/jihwankim/chaos-scheduler/pkg/core/cleanup"
	"github.com/jihwankim/chaos-scheduler/pkg/core/scheduler"
	"github.com/jihwankim/chaos-scheduler/pkg/emergency"
	"github.com/jihwankim/chaos-scheduler/pkg/faults"
	"github.com/jihwankim/chaos-scheduler/pkg/monitoring/metrics"
	"github.com/jihwankim/chaos-scheduler/pkg/profile"
	"github.com/jihwankim/chaos-scheduler/pkg/reporting"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Args:  cobra.NoArgs,
	Short: "Run a fault profile",
	Long: `Runs the configured fault profile until --duration elapses, the process
receives SIGINT/SIGTERM or the emergency stop file appears. The network is
cleared on every exit path and a JSON report is written to the output dir.

Examples:
  chaos-scheduler run --profile faulty --duration 10m --target 'l2-el-*'
  chaos-scheduler run --profile mixed --seed 42 --dry-run`,
	RunE: runSchedule,
}

func init() {
	runCmd.Flags().String("profile", "", "profile name (overrides config)")
	runCmd.Flags().String("duration", "", "stop after this long, e.g. 10m (0 runs until interrupted)")
	runCmd.Flags().Int64("seed", 0, "random seed for meta-fault draws (0 = auto)")
	runCmd.Flags().String("backend", "", "backend type: docker, local or dry_run (overrides config)")
	runCmd.Flags().StringArray("target", nil, "container name pattern, repeatable (overrides config)")
	runCmd.Flags().String("enclave", "", "Kurtosis enclave name (overrides config)")
	runCmd.Flags().String("format", "text", "progress output format (text, json)")
	runCmd.Flags().Bool("dry-run", false, "record faults without touching the network")
}

func runSchedule(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := applyRunFlags(cmd, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := newLogger(cfg)
	outputFormat, _ := cmd.Flags().GetString("format")

	preset, err := profile.Lookup(cfg.Scheduler.Profile)
	if err != nil {
		return err
	}

	env, err := buildBackend(cfg, logger)
	if err != nil {
		return err
	}

	reg := faults.NewRegistry(env.backend,
		faults.WithPartitionDefaults(cfg.PartitionParams()),
		faults.WithLatencyDefaults(cfg.LatencyParams()),
	)

	seed := cfg.Scheduler.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	prof, err := preset.Factory(reg, rand.New(rand.NewSource(seed)))
	if err != nil {
		return fmt.Errorf("failed to build profile %s: %w", preset.Name, err)
	}

	coord := cleanup.New(reg.ClearNetworkFaults(), logger)
	if env.release != nil {
		coord.Register("backend", env.release)
	}

	var recorder *metrics.Recorder
	if cfg.Metrics.Enabled {
		recorder = metrics.New()
	}

	storage, err := reporting.NewStorage(cfg.Reporting.OutputDir, cfg.Reporting.KeepLastN, logger)
	if err != nil {
		return fmt.Errorf("failed to create storage: %w", err)
	}

	progress := reporting.NewProgressReporter(reporting.OutputFormat(outputFormat), os.Stdout, logger)
	sched := scheduler.New(cfg.SchedulerOptions(),
		scheduler.WithLogger(logger),
		scheduler.WithMetrics(recorder),
		scheduler.WithCleanup(coord),
		scheduler.WithFireHook(func(ev scheduler.FireEvent) {
			progress.ReportFire(convertFire(ev))
		}),
	)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	stop := emergency.New(emergency.Config{
		StopFile:             cfg.Emergency.StopFile,
		PollInterval:         time.Duration(cfg.Emergency.PollInterval),
		EnableSignalHandlers: true,
		Logger:               logger,
	})
	if err := stop.RemoveStopFile(); err != nil {
		logger.Warn("Failed to remove stale stop file", "path", stop.GetStopFilePath(), "error", err)
	}
	stop.OnStop(func(string) { cancel() })
	stop.Start(ctx)

	runID := uuid.New().String()
	logger.Info("Chaos scheduler starting",
		"run_id", runID,
		"profile", prof.Name(),
		"backend", cfg.Backend.Type,
		"seed", seed,
	)
	progress.ReportRunStarted(runID, prof.Name(), prof.Len())

	var result *scheduler.Result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		var runErr error
		result, runErr = sched.Run(gctx, prof)
		return runErr
	})
	if recorder != nil {
		g.Go(func() error {
			logger.Info("Serving metrics", "address", cfg.Metrics.ListenAddress)
			return recorder.Serve(gctx, cfg.Metrics.ListenAddress)
		})
	}
	runErr := g.Wait()

	if result == nil {
		return fmt.Errorf("chaos run failed: %w", runErr)
	}

	report := &reporting.RunReport{
		RunID:      runID,
		Profile:    result.Profile,
		Backend:    cfg.Backend.Type,
		StartTime:  result.StartedAt,
		EndTime:    result.EndedAt,
		Duration:   result.EndedAt.Sub(result.StartedAt).Round(time.Millisecond).String(),
		Status:     convertStatus(result.Reason, runErr),
		StopReason: result.Reason,
		Message:    stop.Reason(),
		Fires:      convertFires(result.Fires),
		Triggers:   convertStats(prof, result.Stats),
		Cleanup:    convertCleanup(result.Cleanup, result.Audit),
	}
	if runErr != nil {
		report.Errors = []string{runErr.Error()}
	}
	if env.targets != nil {
		targetCtx, cancelTargets := context.WithTimeout(context.Background(), 10*time.Second)
		targets, err := env.targets(targetCtx)
		cancelTargets()
		if err != nil {
			logger.Warn("Failed to list targets for report", "error", err)
		}
		report.Targets = convertTargets(targets)
	}

	progress.ReportCleanupCompleted(result.Cleanup.Succeeded, result.Cleanup.Failed)

	if _, err := storage.SaveReport(report); err != nil {
		logger.Warn("Failed to save report", "error", err)
	}
	formatter := reporting.NewFormatter(logger)
	for _, format := range cfg.Reporting.Formats {
		if reporting.ReportFormat(format) == reporting.ReportFormatJSON {
			continue
		}
		path := reporting.GetReportPath(report, reporting.ReportFormat(format), storage.OutputDir())
		if err := formatter.GenerateReport(report, reporting.ReportFormat(format), path); err != nil {
			logger.Warn("Failed to generate report", "format", format, "error", err)
		}
	}

	progress.ReportRunCompleted(report)

	if runErr != nil {
		return fmt.Errorf("chaos run failed: %w", runErr)
	}
	return nil
}

// applyRunFlags overrides config values with the flags that were set.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	if flags.Changed("profile") {
		cfg.Scheduler.Profile, _ = flags.GetString("profile")
	}
	if flags.Changed("duration") {
		raw, _ := flags.GetString("duration")
		d, err := model.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid --duration: %w", err)
		}
		cfg.Scheduler.Duration = d
	}
	if flags.Changed("seed") {
		cfg.Scheduler.Seed, _ = flags.GetInt64("seed")
	}
	if flags.Changed("backend") {
		cfg.Backend.Type, _ = flags.GetString("backend")
	}
	if flags.Changed("target") {
		cfg.Targets, _ = flags.GetStringArray("target")
	}
	if flags.Changed("enclave") {
		cfg.Kurtosis.EnclaveName, _ = flags.GetString("enclave")
	}
	if dryRun, _ := flags.GetBool("dry-run"); dryRun {
		cfg.Backend.Type = config.BackendDryRun
	}
	return nil
}
