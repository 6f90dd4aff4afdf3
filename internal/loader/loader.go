package loader

import (
	"context"
	"fmt"
	"log/slog"

	"chatfilter/internal/domain"
	"chatfilter/internal/metrics"
	"chatfilter/internal/snapshot"
)

// Origin says where a Load result came from.
type Origin string

const (
	OriginSnapshot Origin = "snapshot"
	OriginStore    Origin = "store"
)

type Config struct {
	Source       domain.MessageSource
	SnapshotPath string
	Logger       *slog.Logger
}

// Loader returns the message dataset, preferring the snapshot file over the
// relational store. A present snapshot is trusted as-is: there is no
// freshness check, and deleting the file is the only way to force a re-query.
type Loader struct {
	source domain.MessageSource
	path   string
	logger *slog.Logger
}

func New(cfg Config) *Loader {
	return &Loader{
		source: cfg.Source,
		path:   cfg.SnapshotPath,
		logger: cfg.Logger,
	}
}

func (l *Loader) Load(ctx context.Context) ([]domain.Message, Origin, error) {
	cached, err := snapshot.Exists(l.path)
	if err != nil {
		return nil, "", err
	}

	if cached {
		return l.fromSnapshot()
	}
	return l.fromStore(ctx)
}

func (l *Loader) fromSnapshot() ([]domain.Message, Origin, error) {
	msgs, err := snapshot.Read(l.path)
	if err != nil {
		return nil, "", fmt.Errorf("load snapshot: %w", err)
	}
	metrics.SnapshotHits.Inc()
	l.logger.Info("loaded snapshot", "path", l.path, "rows", len(msgs))
	return msgs, OriginSnapshot, nil
}

func (l *Loader) fromStore(ctx context.Context) ([]domain.Message, Origin, error) {
	msgs, err := l.source.LoadMessages(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("load from store: %w", err)
	}
	metrics.StoreQueries.Inc()
	if err := snapshot.Write(l.path, msgs); err != nil {
		return nil, "", fmt.Errorf("save snapshot: %w", err)
	}
	l.logger.Info("snapshot written", "path", l.path, "rows", len(msgs))
	return msgs, OriginStore, nil
}
