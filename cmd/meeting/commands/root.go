package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nguyentantai21042004/meeting-flow/internal/config"
	"github.com/nguyentantai21042004/meeting-flow/internal/logger"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "meeting",
	Short: "Meeting transcription with speaker identification",
	Long: `Meeting transcription with speaker identification.

Recordings are transcribed, split into speaker turns, and every turn is
matched against the enrolled speaker database. Results are written as
JSON, plain text and a DOCX meeting minutes document.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the config file")

	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(enrollCmd)
	rootCmd.AddCommand(listSpeakersCmd)
	rootCmd.AddCommand(removeSpeakerCmd)
	rootCmd.AddCommand(renameSpeakerCmd)
	rootCmd.AddCommand(clearDBCmd)
	rootCmd.AddCommand(cacheInfoCmd)
	rootCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(jobsCmd)
	jobsCmd.AddCommand(jobsDeleteCmd)
}

// loadConfig reads the config file and builds the logger from it.
func loadConfig() (*config.Config, logger.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, logger.New(cfg.Logging.Level, cfg.Logging.Format), nil
}

// ensureDirectories creates required directories if they don't exist
func ensureDirectories(cfg *config.Config) error {
	dirs := []string{
		cfg.Paths.Input,
		cfg.Paths.Output,
		cfg.Paths.Archived,
		cfg.Paths.Temp,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	return nil
}
