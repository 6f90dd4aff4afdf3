// Package report turns a classified message set into the human-readable
// summary printed by the CLI.
package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"chatfilter/internal/classifier"
	"chatfilter/internal/domain"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Options control how many sample rows are printed and how wide previews are.
type Options struct {
	RemovedSamples int
	CleanSamples   int
	PreviewWidth   int
}

func DefaultOptions() Options {
	return Options{RemovedSamples: 10, CleanSamples: 5, PreviewWidth: 60}
}

// Report is the result of classifying a whole dataset.
type Report struct {
	Original  int
	Partition classifier.Partition
	ByRule    map[classifier.Rule]int
	opts      Options
}

// Build classifies msgs and tallies removals per rule.
func Build(msgs []domain.Message, c *classifier.Classifier, opts Options) *Report {
	p := classifier.Split(msgs, c)
	byRule := make(map[classifier.Rule]int)
	for _, l := range p.Removed {
		byRule[l.Verdict.Rule]++
	}
	return &Report{Original: len(msgs), Partition: p, ByRule: byRule, opts: opts}
}

// CleanCount is the number of messages the filter kept.
func (r *Report) CleanCount() int { return len(r.Partition.Clean) }

// RemovedSample returns the first n removed messages in input order.
func (r *Report) RemovedSample(n int) []classifier.Labeled {
	if n > len(r.Partition.Removed) {
		n = len(r.Partition.Removed)
	}
	return r.Partition.Removed[:max(n, 0)]
}

// LongestClean returns the n clean messages with the longest content,
// longest first. Ties keep their input order.
func (r *Report) LongestClean(n int) []classifier.Labeled {
	sorted := append([]classifier.Labeled(nil), r.Partition.Clean...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return utf8.RuneCountInString(sorted[i].Message.Content) > utf8.RuneCountInString(sorted[j].Message.Content)
	})
	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:max(n, 0)]
}

// Write prints the summary counts followed by the sample tables.
func (r *Report) Write(w io.Writer) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Original Count: %d\n", r.Original)
	fmt.Fprintf(&sb, "Cleaned Count:  %d\n", r.CleanCount())
	for _, rule := range classifier.SpamRules {
		fmt.Fprintf(&sb, "  removed by %-12s %d\n", string(rule)+":", r.ByRule[rule])
	}

	sb.WriteString("\n--- Examples of REMOVED messages ---\n")
	sb.WriteString(r.renderRows(r.RemovedSample(r.opts.RemovedSamples), true))

	sb.WriteString("\n--- Samples of CLEANED messages ---\n")
	sb.WriteString(r.renderRows(r.LongestClean(r.opts.CleanSamples), false))

	_, err := io.WriteString(w, sb.String())
	return err
}

func (r *Report) renderRows(rows []classifier.Labeled, withRule bool) string {
	if len(rows) == 0 {
		return "(none)\n"
	}

	headers := []string{"#", "createdAt", "authorId", "chars", "entropy", "content"}
	if withRule {
		headers = append(headers, "rule")
	}

	data := make([][]string, 0, len(rows))
	for _, l := range rows {
		row := []string{
			strconv.Itoa(l.Index),
			formatTime(l.Message.CreatedAt),
			l.Message.AuthorID,
			strconv.Itoa(utf8.RuneCountInString(l.Message.Content)),
			strconv.FormatFloat(classifier.Entropy(l.Message.Content), 'f', 2, 64),
			Preview(l.Message.Content, r.opts.PreviewWidth),
		}
		if withRule {
			row = append(row, string(l.Verdict.Rule))
		}
		data = append(data, row)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(data...)
	return t.Render() + "\n"
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "NaT"
	}
	return t.Format("2006-01-02 15:04:05")
}

// Preview shortens content to width characters on a single line.
func Preview(content string, width int) string {
	s := strings.NewReplacer("\r", `\r`, "\n", `\n`, "\t", " ").Replace(content)
	if width <= 0 || utf8.RuneCountInString(s) <= width {
		return s
	}
	runes := []rune(s)
	return string(runes[:width-1]) + "…"
}
