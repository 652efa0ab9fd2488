package dataset

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const missLogSchema = `
CREATE TABLE IF NOT EXISTS missing_counties (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	county      TEXT NOT NULL,
	recorded_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS missing_counties_county ON missing_counties (county);
`

// SQLiteMissLog stores misses in a SQLite table instead of a text file.
type SQLiteMissLog struct {
	db    *sqlx.DB
	mu    sync.Mutex
	clock func() time.Time
}

type missRow struct {
	ID         int64  `db:"id"`
	County     string `db:"county"`
	RecordedAt string `db:"recorded_at"`
}

func NewSQLiteMissLog(dbPath string) (*SQLiteMissLog, error) {
	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(missLogSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteMissLog{db: db, clock: time.Now}, nil
}

func (s *SQLiteMissLog) Record(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO missing_counties (county, recorded_at) VALUES (:county, :recorded_at)`,
		missRow{County: missLine(key), RecordedAt: s.clock().UTC().Format(time.RFC3339Nano)})
	return err
}

func (s *SQLiteMissLog) Close() error {
	return s.db.Close()
}
