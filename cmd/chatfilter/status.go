package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"chatfilter/internal/config"
	"chatfilter/internal/snapshot"
	"chatfilter/internal/store"

	"github.com/spf13/cobra"
)

func statusCmd() *cobra.Command {
	var skipStore bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check the config, snapshot and message store",
		Long: `Reports whether a snapshot exists (and how old it is) and whether the
message store is reachable. A present snapshot is always used as-is; delete
it to force the next run to query the store again.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, cfgPath, err := setup()
			if err != nil {
				printFail("Config", err.Error())
				return nil
			}
			fmt.Printf("chatfilter status v%s\n\n", version)

			if _, err := os.Stat(cfgPath); err != nil {
				printWarn("Config", fmt.Sprintf("%s not found, using defaults", cfgPath))
			} else {
				printPass("Config", cfgPath)
			}

			checkSnapshot(cfg.Snapshot.Path)

			if skipStore {
				return nil
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			checkStore(ctx, cfg)
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipStore, "skip-store", false, "do not try to connect to the message store")
	return cmd
}

func checkSnapshot(path string) {
	ok, err := snapshot.Exists(path)
	switch {
	case err != nil:
		printFail("Snapshot", err.Error())
		return
	case !ok:
		printWarn("Snapshot", fmt.Sprintf("none at %s, next run queries the store", path))
		return
	}

	info, err := snapshot.Stat(path)
	if err != nil {
		printFail("Snapshot", err.Error())
		return
	}
	age := time.Since(info.WrittenAt).Truncate(time.Second)
	printPass("Snapshot", fmt.Sprintf("%s (%d rows, %s, written %s ago)", info.Path, info.Rows, humanSize(info.Size), age))
}

func checkStore(ctx context.Context, cfg *config.Config) {
	label := "Store (" + cfg.Store.Driver + ")"
	dsn := config.Sanitize(cfg).Store.DSN

	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN, logger)
	if err != nil {
		printFail(label, err.Error())
		return
	}
	defer st.Close()

	if err := st.Ping(ctx); err != nil {
		printFail(label, err.Error())
		return
	}
	printPass(label, dsn)
}

func printPass(check, detail string) {
	fmt.Printf("  [PASS] %-20s %s\n", check, detail)
}

func printFail(check, detail string) {
	fmt.Printf("  [FAIL] %-20s %s\n", check, detail)
}

func printWarn(check, detail string) {
	fmt.Printf("  [WARN] %-20s %s\n", check, detail)
}

func humanSize(bytes int64) string {
	const (
		kb = 1024
		mb = 1024 * kb
		gb = 1024 * mb
	)
	switch {
	case bytes >= gb:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(gb))
	case bytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(mb))
	case bytes >= kb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(kb))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
