package commands

import (
	"context"
	"errors"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/nguyentantai21042004/meeting-flow/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Process recordings dropped into the input folder",
	Long: `Watch paths.input and process every new recording with the configured
enrollment directory and language. Processed recordings are moved to
paths.archived. Press Ctrl+C to stop; running jobs finish first.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		log.Info(ctx, "========================================")
		log.Info(ctx, "Meeting Processing Pipeline")
		log.Info(ctx, "========================================")
		log.Info(ctx, "System: %s/%s", runtime.GOOS, runtime.GOARCH)
		log.Info(ctx, "CPU Cores: %d", runtime.NumCPU())
		log.Info(ctx, "Max Concurrent Processing: %d", cfg.Performance.MaxConcurrent)

		if err := ensureDirectories(cfg); err != nil {
			return err
		}

		a, err := newApp(cfg, log)
		if err != nil {
			return err
		}
		proc, jobs, err := a.processor()
		if err != nil {
			return err
		}
		defer jobs.Close()

		w, err := watcher.New(watcher.Options{
			Dir:           cfg.Paths.Input,
			MaxConcurrent: cfg.Performance.MaxConcurrent,
			Backlog:       true,
		}, proc.Process, log)
		if err != nil {
			return err
		}
		defer w.Stop()

		log.Info(ctx, "========================================")
		log.Info(ctx, "Meeting pipeline is ready!")
		log.Info(ctx, "Monitoring: %s", cfg.Paths.Input)
		log.Info(ctx, "Output: %s", cfg.Paths.Output)
		log.Info(ctx, "Enrollment: %s", cfg.Speaker.EnrollDir)
		log.Info(ctx, "Transcription: %s (%s)", cfg.Transcription.Backend, cfg.Transcription.Language)
		log.Info(ctx, "Summary: %s", cfg.Summary.Provider)
		log.Info(ctx, "Press Ctrl+C to stop")
		log.Info(ctx, "========================================")

		// Start returns once the signal context is cancelled and running
		// jobs have drained.
		err = w.Start(ctx)
		if errors.Is(err, context.Canceled) {
			log.Info(context.Background(), "Meeting pipeline stopped")
			return nil
		}
		return err
	},
}
