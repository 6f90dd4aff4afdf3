// Package snapshot stores the loaded message table on disk in a columnar
// layout so later runs can skip the relational store entirely.
package snapshot

import (
	"compress/gzip"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"chatfilter/internal/domain"
)

const formatVersion = 1

// ErrVersion is returned when a snapshot was written by an incompatible format.
var ErrVersion = errors.New("snapshot: unsupported format version")

// table is the on-disk form: one slice per column.
type table struct {
	Version   int
	WrittenAt time.Time
	Seconds   []int64
	Nanos     []int32
	Content   []string
	AuthorID  []string
}

// Info describes a snapshot file without handing back its rows.
type Info struct {
	Path      string
	Size      int64
	WrittenAt time.Time
	Rows      int
}

// Exists reports whether a snapshot file is present at path.
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat snapshot %s: %w", path, err)
}

// Write persists msgs at path, creating parent directories as needed.
// The file is written under a temporary name and renamed into place.
func Write(path string, msgs []domain.Message) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create snapshot directory %s: %w", dir, err)
	}

	tbl := table{
		Version:   formatVersion,
		WrittenAt: time.Now().UTC(),
		Seconds:   make([]int64, len(msgs)),
		Nanos:     make([]int32, len(msgs)),
		Content:   make([]string, len(msgs)),
		AuthorID:  make([]string, len(msgs)),
	}
	for i, m := range msgs {
		tbl.Seconds[i] = m.CreatedAt.Unix()
		tbl.Nanos[i] = int32(m.CreatedAt.Nanosecond())
		tbl.Content[i] = m.Content
		tbl.AuthorID[i] = m.AuthorID
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	gz := gzip.NewWriter(tmp)
	if err := gob.NewEncoder(gz).Encode(&tbl); err != nil {
		tmp.Close()
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := gz.Close(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("install snapshot: %w", err)
	}
	return nil
}

// Read loads every row from the snapshot at path.
func Read(path string) ([]domain.Message, error) {
	tbl, err := readTable(path)
	if err != nil {
		return nil, err
	}

	msgs := make([]domain.Message, len(tbl.Content))
	for i := range msgs {
		msgs[i] = domain.Message{
			CreatedAt: time.Unix(tbl.Seconds[i], int64(tbl.Nanos[i])).UTC(),
			Content:   tbl.Content[i],
			AuthorID:  tbl.AuthorID[i],
		}
	}
	return msgs, nil
}

// Stat decodes the snapshot header and row count.
func Stat(path string) (Info, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return Info{}, fmt.Errorf("stat snapshot %s: %w", path, err)
	}
	tbl, err := readTable(path)
	if err != nil {
		return Info{}, err
	}
	return Info{
		Path:      path,
		Size:      fi.Size(),
		WrittenAt: tbl.WrittenAt,
		Rows:      len(tbl.Content),
	}, nil
}

func readTable(path string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", path, err)
	}
	defer gz.Close()

	var tbl table
	if err := gob.NewDecoder(gz).Decode(&tbl); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	if tbl.Version != formatVersion {
		return nil, fmt.Errorf("%w: %d", ErrVersion, tbl.Version)
	}
	n := len(tbl.Content)
	if len(tbl.Seconds) != n || len(tbl.Nanos) != n || len(tbl.AuthorID) != n {
		return nil, fmt.Errorf("snapshot %s: column lengths differ", path)
	}
	return &tbl, nil
}
