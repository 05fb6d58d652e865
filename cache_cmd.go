package main

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/ughealth/healthguide/internal/cache"
	"github.com/ughealth/healthguide/internal/config"
)

var (
	cacheCmd = &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the response cache",
		Args:  cobra.NoArgs,
	}

	cacheStatsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Show what the disk cache holds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return cacheStats(cmd.OutOrStdout(), cfg)
		},
	}

	cacheClearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Delete every cached translation and audio clip",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return cacheClear(cmd.OutOrStdout(), cfg)
		},
	}
)

func init() {
	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd)
}

const memoryOnlyNote = "The cache is memory-only; set cache.dir to keep responses between runs."

func cacheStats(w io.Writer, cfg *config.Config) error {
	if cfg.Cache.Dir == "" {
		_, err := fmt.Fprintln(w, memoryOnlyNote)
		return err
	}
	store, err := openCache(cfg)
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck

	st, _ := store.LevelStats(cache.LevelDisk)
	_, err = fmt.Fprintf(w, "%s %s\n%s %s of %s\n%s %d\n",
		keyword("Directory:"), cfg.Cache.Dir,
		keyword("Size:"), humanize.Bytes(uint64(st.Size)), humanize.Bytes(uint64(st.Capacity)), //nolint:gosec
		keyword("Items:"), st.ItemCount,
	)
	if err == nil && !cfg.Cache.Enabled {
		_, err = fmt.Fprintln(w, warning("Caching is disabled; these entries are not used."))
	}
	return err
}

func cacheClear(w io.Writer, cfg *config.Config) error {
	if cfg.Cache.Dir == "" {
		_, err := fmt.Fprintln(w, memoryOnlyNote)
		return err
	}
	store, err := openCache(cfg)
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck

	freed := store.Size()
	if err := store.Clear(); err != nil {
		return fmt.Errorf("unable to clear cache: %w", err)
	}
	_, err = fmt.Fprintf(w, "Cleared %s from %s\n", humanize.Bytes(uint64(freed)), cfg.Cache.Dir) //nolint:gosec
	return err
}
