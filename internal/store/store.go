package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"chatfilter/internal/domain"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported values for the driver argument of Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Identifiers are quoted so Postgres keeps the camelCase column names.
const selectMessages = `SELECT "createdAt", "content", "authorId" FROM messages`

// SQLStore reads messages from a relational database.
type SQLStore struct {
	db     *sqlx.DB
	driver string
	logger *slog.Logger
}

type messageRow struct {
	CreatedAt any            `db:"createdAt"`
	Content   sql.NullString `db:"content"`
	AuthorID  sql.NullString `db:"authorId"`
}

// Open connects to the store and verifies the connection. SQLite databases are
// opened read-only, so a missing file is a connection error rather than a new
// empty database.
func Open(ctx context.Context, driver, dsn string, logger *slog.Logger) (*SQLStore, error) {
	var dataSource string
	switch driver {
	case DriverSQLite:
		dataSource = sqliteReadOnlyDSN(dsn)
	case DriverPostgres:
		dataSource = dsn
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", driver)
	}

	db, err := sqlx.ConnectContext(ctx, driver, dataSource)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to %s store: %w", driver, err)
	}

	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	logger.Debug("store connected", "driver", driver)
	return &SQLStore{db: db, driver: driver, logger: logger}, nil
}

// sqliteReadOnlyDSN turns a path or URI into a read-only file: URI, keeping any
// query parameters already present. An explicit mode= is left alone.
func sqliteReadOnlyDSN(dsn string) string {
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	path, query, hasQuery := strings.Cut(dsn, "?")
	if !hasQuery {
		return path + "?mode=ro"
	}
	for _, kv := range strings.Split(query, "&") {
		if strings.HasPrefix(kv, "mode=") {
			return dsn
		}
	}
	return dsn + "&mode=ro"
}

// LoadMessages runs the fixed read-only query and returns every row with
// createdAt parsed and content coerced to text.
func (s *SQLStore) LoadMessages(ctx context.Context) ([]domain.Message, error) {
	var rows []messageRow
	if err := s.db.SelectContext(ctx, &rows, selectMessages); err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}

	msgs := make([]domain.Message, 0, len(rows))
	for i, r := range rows {
		createdAt, err := ParseTimestamp(r.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("messages row %d: %w", i, err)
		}
		content := domain.NullContent
		if r.Content.Valid {
			content = r.Content.String
		}
		msgs = append(msgs, domain.Message{
			CreatedAt: createdAt,
			Content:   content,
			AuthorID:  r.AuthorID.String,
		})
	}

	s.logger.Info("loaded messages from store", "driver", s.driver, "rows", len(msgs))
	return msgs, nil
}

// Ping checks that the store is still reachable.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Source is a domain.MessageSource that connects on demand and disconnects
// after a single read, so nothing touches the store unless it is queried.
type Source struct {
	Driver string
	DSN    string
	Logger *slog.Logger
}

func (src Source) LoadMessages(ctx context.Context) ([]domain.Message, error) {
	st, err := Open(ctx, src.Driver, src.DSN, src.Logger)
	if err != nil {
		return nil, err
	}
	defer st.Close()
	return st.LoadMessages(ctx)
}
