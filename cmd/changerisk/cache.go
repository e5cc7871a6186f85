package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/rohankatakam/changerisk/internal/cache"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the analysis cache",
}

var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cached tables and their snapshot hashes",
	RunE:  runCacheStatus,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [table...]",
	Short: "Remove cache entries (all of them when no table is named)",
	RunE:  runCacheClear,
}

func init() {
	cacheCmd.AddCommand(cacheStatusCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

func openCache() (*cache.Cache, error) {
	index, err := cache.OpenIndex(cfg.Cache.Directory, cfg.Cache.Backend)
	if err != nil {
		return nil, fmt.Errorf("open cache index: %w", err)
	}
	return cache.New(index, nil, logger), nil
}

func runCacheStatus(cmd *cobra.Command, args []string) error {
	c, err := openCache()
	if err != nil {
		return err
	}
	defer c.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Analysis Cache")
	fmt.Fprintln(out, strings.Repeat("=", 50))
	fmt.Fprintf(out, "  Directory: %s\n", cfg.Cache.Directory)
	fmt.Fprintf(out, "  Backend:   %s\n", backendName(cfg.Cache.Backend))
	fmt.Fprintf(out, "  Enabled:   %t\n", cfg.Cache.Enabled)
	if size, err := cache.DirSize(cfg.Cache.Directory); err == nil {
		fmt.Fprintf(out, "  Size:      %s\n", formatBytes(size))
	}

	entries, err := c.Entries()
	if err != nil {
		return fmt.Errorf("read cache index: %w", err)
	}
	fmt.Fprintln(out)
	if len(entries) == 0 {
		fmt.Fprintln(out, "  No cached tables (run 'changerisk analyze')")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  TABLE\tHASH\tCACHED AT\tOUTPUT")
	for _, e := range entries {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", e.Name, shortHash(e.Hash), e.Timestamp.Local().Format("2006-01-02 15:04:05"), e.OutputRef)
	}
	return tw.Flush()
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	c, err := openCache()
	if err != nil {
		return err
	}
	defer c.Close()

	if len(args) == 0 {
		if err := c.Clear(); err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared")
		return nil
	}
	for _, table := range args {
		if err := c.Invalidate(table); err != nil {
			return fmt.Errorf("invalidate %s: %w", table, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Invalidated %s\n", table)
	}
	return nil
}

func backendName(b string) string {
	if b == "" {
		return cache.BackendJSON
	}
	return b
}

func shortHash(h string) string {
	return h[:min(12, len(h))]
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
