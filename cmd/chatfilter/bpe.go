package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"chatfilter/internal/bpe"
	"chatfilter/internal/classifier"

	"github.com/spf13/cobra"
)

const defaultBPEPath = "data/msg.bpe"

func bpeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bpe",
		Short: "Build or inspect a byte-pair encoding table learned from clean messages",
	}
	cmd.AddCommand(bpeBuildCmd())
	cmd.AddCommand(bpeShowCmd())
	return cmd
}

func bpeBuildCmd() *cobra.Command {
	var (
		outputPath string
		maxMerges  int
		show       bool
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Learn merges from the concatenated clean messages and save the table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := setup()
			if err != nil {
				return err
			}
			msgs, err := loadMessages(cfg)
			if err != nil {
				return err
			}
			p := classifier.Split(msgs, classifier.New(cfg.Filter.Thresholds()))

			var corpus strings.Builder
			for _, l := range p.Clean {
				corpus.WriteString(l.Message.Content)
			}

			logger.Info("building bpe table", "messages", len(p.Clean), "bytes", corpus.Len(), "max_merges", maxMerges)
			tbl := bpe.Build([]byte(corpus.String()), maxMerges)

			if err := writeFile(outputPath, func(w io.Writer) error { return bpe.Encode(w, tbl) }); err != nil {
				return fmt.Errorf("save bpe table: %w", err)
			}
			logger.Info("bpe table saved", "path", outputPath, "merges", tbl.Merges())

			if show {
				return tbl.Print(cmd.OutOrStdout())
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", defaultBPEPath, "table file to write")
	cmd.Flags().IntVar(&maxMerges, "max-merges", 0, "stop after this many merges (0: until no pair repeats)")
	cmd.Flags().BoolVar(&show, "print", false, "print the learned merges")
	return cmd
}

func bpeShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [file]",
		Short: "Load a saved table and print its merges",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := defaultBPEPath
			if len(args) == 1 {
				path = args[0]
			}
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open bpe table: %w", err)
			}
			defer f.Close()

			tbl, err := bpe.Decode(f)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			return tbl.Print(cmd.OutOrStdout())
		},
	}
}
