package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"chatfilter/internal/classifier"
	"chatfilter/internal/config"
	"chatfilter/internal/domain"
	"chatfilter/internal/export"

	"github.com/spf13/cobra"
)

func exportCmd() *cobra.Command {
	var (
		outputPath string
		format     string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the messages that pass the filter as text, JSON lines or chat turns",
		Long: `Loads messages the same way as analyze and writes every clean message in
original order. Spam is skipped.

Formats:
  text   message content separated by blank lines
  jsonl  one {createdAt, authorId, content} object per line
  sft    consecutive messages by one author merged into a turn, turns paired
         as user/assistant conversations, custom emoji reduced to :name: and
         mentions replaced with @user`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			cfg, _, err := setup()
			if err != nil {
				return err
			}
			msgs, err := loadMessages(cfg)
			if err != nil {
				return err
			}
			p := classifier.Split(msgs, classifier.New(cfg.Filter.Thresholds()))

			var n int
			err = writeOutput(cmd.OutOrStdout(), outputPath, func(w io.Writer) error {
				var werr error
				n, werr = export.Write(w, f, p.CleanMessages())
				return werr
			})
			if err != nil {
				return err
			}
			logger.Info("exported clean messages", "format", f, "records", n, "skipped", len(p.Removed), "output", outputOrStdout(outputPath))
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().StringVarP(&format, "format", "f", string(export.FormatJSONL), "export format: text, jsonl or sft")
	return cmd
}

func emojisCmd() *cobra.Command {
	var (
		outputPath string
		top        int
	)

	cmd := &cobra.Command{
		Use:   "emojis",
		Short: "List the most used custom emoji",
		Long:  "Counts <:name:id> custom emoji across every loaded message, spam included, and prints the most frequent by name.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := setup()
			if err != nil {
				return err
			}
			msgs, err := loadMessages(cfg)
			if err != nil {
				return err
			}

			counts := export.TopEmojis(msgs, top)
			if err := writeOutput(cmd.OutOrStdout(), outputPath, func(w io.Writer) error {
				return export.WriteEmojis(w, counts)
			}); err != nil {
				return err
			}
			logger.Info("counted emoji", "listed", len(counts), "output", outputOrStdout(outputPath))
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().IntVarP(&top, "top", "n", 15, "number of emoji to list (0 for all)")
	return cmd
}

// loadMessages loads the dataset the same way analyze does, from the snapshot
// when present and from the store otherwise.
func loadMessages(cfg *config.Config) ([]domain.Message, error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	msgs, _, err := newLoader(cfg, logger).Load(ctx)
	return msgs, err
}

// writeOutput hands write stdout when path is empty and a file otherwise.
func writeOutput(stdout io.Writer, path string, write func(io.Writer) error) error {
	if path == "" {
		return write(stdout)
	}
	return writeFile(path, write)
}

// writeFile creates path (and its parent directory) and runs write against a
// buffered writer. Flush and close errors are returned.
func writeFile(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	bw := bufio.NewWriter(f)
	if err := write(bw); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

func outputOrStdout(path string) string {
	if path == "" {
		return "stdout"
	}
	return path
}
