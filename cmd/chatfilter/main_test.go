package main

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"chatfilter/internal/export"

	_ "modernc.org/sqlite"
)

const snowflake = "1234567890123456789"

type fixtureRow struct {
	content string
	author  int
}

var fixtureRows = []fixtureRow{
	{"hi", 0},
	{strings.Repeat("<:fire:"+snowflake+"> ", 5), 1},
	{"a perfectly ordinary message about lunch plans", 2},
	{strings.Repeat("line\n", 20), 3},
	{"nice one <:wave:" + snowflake + ">", 2},
}

// writeFixture creates a sqlite message store and a YAML config pointing at it.
func writeFixture(t *testing.T) (cfgFile, snapPath string) {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "msg.sqlite")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if _, err := db.Exec(`CREATE TABLE messages (createdAt TEXT, content TEXT, authorId INTEGER)`); err != nil {
		t.Fatal(err)
	}
	for i, r := range fixtureRows {
		if _, err := db.Exec(`INSERT INTO messages VALUES (?, ?, ?)`, fmt.Sprintf("2024-04-0%d 12:00:00", i+1), r.content, r.author); err != nil {
			t.Fatal(err)
		}
	}

	snapPath = filepath.Join(dir, "analysis", "messages.snapshot")
	cfgFile = filepath.Join(dir, "chatfilter.yaml")
	cfg := fmt.Sprintf("general:\n  logLevel: warn\nstore:\n  driver: sqlite\n  dsn: %s\nsnapshot:\n  path: %s\n", dbPath, snapPath)
	if err := os.WriteFile(cfgFile, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	return cfgFile, snapPath
}

// execute runs the root command with args and returns what it wrote to stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	logger = newLogger("warn")
	t.Cleanup(func() { configPath, metricsOut = "", "" })

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRunAnalyze_EndToEnd(t *testing.T) {
	cfgFile, snapPath := writeFixture(t)
	promPath := filepath.Join(t.TempDir(), "chatfilter.prom")

	out, err := execute(t, "analyze", "--config", cfgFile, "--metrics-out", promPath)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	for _, want := range []string{"Original Count: 5", "Cleaned Count:  3", "lunch plans"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
	if _, err := os.Stat(snapPath); err != nil {
		t.Errorf("snapshot not created: %v", err)
	}

	prom, err := os.ReadFile(promPath)
	if err != nil {
		t.Fatalf("metrics file: %v", err)
	}
	if !strings.Contains(string(prom), "chatfilter_messages_total") {
		t.Errorf("metrics output missing totals:\n%s", prom)
	}
}

func TestRoot_DefaultsToAnalyze(t *testing.T) {
	cfgFile, _ := writeFixture(t)
	promPath := filepath.Join(t.TempDir(), "metrics", "run.prom")

	out, err := execute(t, "--config", cfgFile, "--metrics-out", promPath)
	if err != nil {
		t.Fatalf("root: %v", err)
	}
	if !strings.Contains(out, "Original Count: 5") {
		t.Errorf("root command did not print the report:\n%s", out)
	}
	if _, err := os.Stat(promPath); err != nil {
		t.Errorf("metrics file not written: %v", err)
	}
}

func TestExport_Text(t *testing.T) {
	cfgFile, _ := writeFixture(t)

	out, err := execute(t, "export", "--config", cfgFile, "--format", "text")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	want := "hi\n\na perfectly ordinary message about lunch plans\n\nnice one <:wave:" + snowflake + ">\n\n"
	if out != want {
		t.Errorf("text export = %q, want %q", out, want)
	}
}

func TestExport_SFTToFile(t *testing.T) {
	cfgFile, _ := writeFixture(t)
	outPath := filepath.Join(t.TempDir(), "out", "msg.jsonl")

	if _, err := execute(t, "export", "--config", cfgFile, "--format", "sft", "-o", outPath); err != nil {
		t.Fatalf("export: %v", err)
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("conversations = %d:\n%s", len(lines), data)
	}
	var conv export.Conversation
	if err := json.Unmarshal([]byte(lines[0]), &conv); err != nil {
		t.Fatal(err)
	}
	if len(conv.Messages) != 2 {
		t.Fatalf("turns = %+v", conv.Messages)
	}
	if conv.Messages[0].Role != "user" || conv.Messages[0].Content != "hi" {
		t.Errorf("user turn = %+v", conv.Messages[0])
	}
	wantReply := "a perfectly ordinary message about lunch plans\nnice one :wave:"
	if conv.Messages[1].Role != "assistant" || conv.Messages[1].Content != wantReply {
		t.Errorf("assistant turn = %+v", conv.Messages[1])
	}
}

func TestExport_UnknownFormat(t *testing.T) {
	cfgFile, snapPath := writeFixture(t)
	if _, err := execute(t, "export", "--config", cfgFile, "--format", "csv"); err == nil {
		t.Fatal("expected error for unknown format")
	}
	if _, err := os.Stat(snapPath); !os.IsNotExist(err) {
		t.Error("a rejected format should not load anything")
	}
}

func TestEmojis_CountsSpamToo(t *testing.T) {
	cfgFile, _ := writeFixture(t)

	out, err := execute(t, "emojis", "--config", cfgFile)
	if err != nil {
		t.Fatalf("emojis: %v", err)
	}
	if out != ":fire:\t5\n:wave:\t1\n" {
		t.Errorf("emojis = %q", out)
	}
}

func TestBPE_BuildAndShow(t *testing.T) {
	cfgFile, _ := writeFixture(t)
	tablePath := filepath.Join(t.TempDir(), "tables", "msg.bpe")

	if _, err := execute(t, "bpe", "build", "--config", cfgFile, "-o", tablePath); err != nil {
		t.Fatalf("bpe build: %v", err)
	}
	if _, err := os.Stat(tablePath); err != nil {
		t.Fatalf("table not written: %v", err)
	}

	out, err := execute(t, "bpe", "show", tablePath)
	if err != nil {
		t.Fatalf("bpe show: %v", err)
	}
	if !strings.HasPrefix(out, "BPE table of size ") || strings.Count(out, "\n") < 2 {
		t.Errorf("show output:\n%s", out)
	}
}

func TestWriteFile_ReportsFlushError(t *testing.T) {
	if _, err := os.Stat("/dev/full"); err != nil {
		t.Skip("/dev/full not available")
	}
	err := writeFile("/dev/full", func(w io.Writer) error {
		_, err := io.WriteString(w, "does not fit")
		return err
	})
	if err == nil {
		t.Fatal("expected the failed flush to be reported")
	}
}

func TestWriteFile_PropagatesWriteError(t *testing.T) {
	boom := errors.New("boom")
	path := filepath.Join(t.TempDir(), "out.txt")
	if err := writeFile(path, func(io.Writer) error { return boom }); !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
}

func TestSetup_ExplicitMissingConfigFails(t *testing.T) {
	configPath = filepath.Join(t.TempDir(), "absent.yaml")
	logger = newLogger("warn")
	t.Cleanup(func() { configPath = "" })

	if _, _, err := setup(); err == nil {
		t.Fatal("expected error for explicit missing config")
	}
}

func TestHumanSize(t *testing.T) {
	cases := map[int64]string{
		512:             "512 B",
		2048:            "2.0 KB",
		5 * 1024 * 1024: "5.0 MB",
	}
	for in, want := range cases {
		if got := humanSize(in); got != want {
			t.Errorf("humanSize(%d) = %q, want %q", in, got, want)
		}
	}
}
