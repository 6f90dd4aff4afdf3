package report

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"chatfilter/internal/classifier"
	"chatfilter/internal/domain"
)

func messages(texts ...string) []domain.Message {
	base := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	msgs := make([]domain.Message, len(texts))
	for i, text := range texts {
		msgs[i] = domain.Message{CreatedAt: base.Add(time.Duration(i) * time.Minute), Content: text, AuthorID: fmt.Sprintf("a%d", i)}
	}
	return msgs
}

func TestBuild_Counts(t *testing.T) {
	msgs := messages(
		"hi",
		"a a a a a a a a a a",
		strings.Repeat("x\n", 20),
		"one two three four five six",
	)
	r := Build(msgs, classifier.New(classifier.DefaultThresholds()), DefaultOptions())

	if r.Original != 4 || r.CleanCount() != 2 {
		t.Fatalf("original=%d clean=%d", r.Original, r.CleanCount())
	}
	if r.ByRule[classifier.RuleRepetition] != 1 || r.ByRule[classifier.RuleNewlines] != 1 {
		t.Errorf("byRule = %v", r.ByRule)
	}
	if r.CleanCount()+len(r.Partition.Removed) != r.Original {
		t.Error("partition incomplete")
	}
}

func TestRemovedSample_FirstTenInOrder(t *testing.T) {
	var texts []string
	for i := 0; i < 15; i++ {
		texts = append(texts, strings.Repeat(fmt.Sprintf("s%d ", i), 8))
	}
	r := Build(messages(texts...), classifier.New(classifier.DefaultThresholds()), DefaultOptions())

	got := r.RemovedSample(10)
	if len(got) != 10 {
		t.Fatalf("sample size = %d", len(got))
	}
	for i, l := range got {
		if l.Index != i {
			t.Errorf("sample[%d].Index = %d", i, l.Index)
		}
	}
	if n := len(r.RemovedSample(100)); n != 15 {
		t.Errorf("oversized sample = %d, want 15", n)
	}
}

func TestLongestClean_StableDescending(t *testing.T) {
	r := Build(messages(
		"short",
		"a medium length one",
		"tie-1 xxxxxxxxxxxxx",
		"the longest clean message of all here",
		"tie-2 yyyyyyyyyyyyy",
	), classifier.New(classifier.DefaultThresholds()), DefaultOptions())

	got := r.LongestClean(4)
	wantIdx := []int{3, 1, 2, 4}
	if len(got) != len(wantIdx) {
		t.Fatalf("len = %d", len(got))
	}
	for i, l := range got {
		if l.Index != wantIdx[i] {
			t.Errorf("position %d: index %d, want %d", i, l.Index, wantIdx[i])
		}
	}
	if r.Partition.Clean[0].Index != 0 {
		t.Error("LongestClean must not reorder the partition")
	}
}

func TestWrite_Layout(t *testing.T) {
	r := Build(messages("hello world", "b b b b b b b"), classifier.New(classifier.DefaultThresholds()), DefaultOptions())

	var sb strings.Builder
	if err := r.Write(&sb); err != nil {
		t.Fatal(err)
	}
	out := sb.String()

	for _, want := range []string{
		"Original Count: 2\n",
		"Cleaned Count:  1\n",
		"--- Examples of REMOVED messages ---",
		"--- Samples of CLEANED messages ---",
		"b b b b b b b",
		"hello world",
		"repetition",
		"2024-06-01 09:00:00",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "REMOVED") > strings.Index(out, "CLEANED") {
		t.Error("removed section must precede cleaned section")
	}
}

func TestWrite_RuleCountsAligned(t *testing.T) {
	r := Build(messages("a a a a a a a a"), classifier.New(classifier.DefaultThresholds()), DefaultOptions())
	var sb strings.Builder
	if err := r.Write(&sb); err != nil {
		t.Fatal(err)
	}

	col := -1
	for _, line := range strings.Split(sb.String(), "\n") {
		if !strings.HasPrefix(line, "  removed by ") {
			continue
		}
		at := strings.LastIndex(line, " ") + 1
		if col == -1 {
			col = at
		} else if at != col {
			t.Errorf("count column %d in %q, want %d", at, line, col)
		}
		if line[at-2] != ' ' {
			t.Errorf("rule name runs into the count: %q", line)
		}
	}
	if col == -1 {
		t.Fatal("no per-rule lines written")
	}
}

func TestWrite_NoRemoved(t *testing.T) {
	r := Build(messages("fine"), classifier.New(classifier.DefaultThresholds()), DefaultOptions())
	var sb strings.Builder
	if err := r.Write(&sb); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(sb.String(), "(none)") {
		t.Errorf("expected empty marker:\n%s", sb.String())
	}
}

func TestPreview(t *testing.T) {
	cases := []struct {
		in    string
		width int
		want  string
	}{
		{"plain", 10, "plain"},
		{"a\nb", 10, `a\nb`},
		{"abcdefghij", 5, "abcd…"},
		{"ééééé", 3, "éé…"},
		{"anything", 0, "anything"},
	}
	for _, tc := range cases {
		if got := Preview(tc.in, tc.width); got != tc.want {
			t.Errorf("Preview(%q, %d) = %q, want %q", tc.in, tc.width, got, tc.want)
		}
	}
}
