package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nguyentantai21042004/meeting-flow/internal/modelcache"
)

var cacheInfoCmd = &cobra.Command{
	Use:   "cache-info",
	Short: "Show model cache state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cache, err := openCache()
		if err != nil {
			return err
		}
		info := cache.Info()

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, strings.Repeat("=", 70))
		fmt.Fprintln(out, "MODEL CACHE INFORMATION")
		fmt.Fprintln(out, strings.Repeat("=", 70))
		fmt.Fprintf(out, "Cache Directory: %s\n", info.CacheDir)
		fmt.Fprintf(out, "Memory Cached Models: %d\n", info.MemoryCount)
		fmt.Fprintf(out, "Disk Cached Models: %d\n", info.DiskMetadataCount)
		fmt.Fprintf(out, "Cache Size: %.2f MB\n", float64(info.DiskSizeBytes)/(1024*1024))
		if len(info.Keys) > 0 {
			fmt.Fprintf(out, "Cached Models: %s\n", strings.Join(info.Keys, ", "))
		}
		fmt.Fprintln(out, strings.Repeat("=", 70))
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "cache-clear [key]",
	Short: "Clear one cached model or all of them",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cache, err := openCache()
		if err != nil {
			return err
		}
		if len(args) == 1 {
			if err := cache.Clear(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[OK] Model '%s' cache cleared\n", args[0])
			return nil
		}
		if err := cache.ClearAll(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "[OK] All cached models cleared")
		return nil
	},
}

func openCache() (*modelcache.Cache, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return modelcache.Open(cfg.Cache.Dir, log)
}
