// Package sqlstore implements the durable tier of the leaderboard on
// PostgreSQL. Scores live in a plain user_score table and ranks are derived
// at query time with ROW_NUMBER() window functions, so the durable tier can
// answer every ranking query on its own when the cache is down.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/platforms/leaderboard/internal/adapters/repository"
	"github.com/platforms/leaderboard/internal/domain/rank"
	"github.com/platforms/leaderboard/pkg/metrics"
)

const tier = "durable"

const schema = `
CREATE TABLE IF NOT EXISTS user_score (
	id                      BIGSERIAL PRIMARY KEY,
	leaderboard_instance_id TEXT             NOT NULL,
	user_id                 TEXT             NOT NULL,
	score                   DOUBLE PRECISION NOT NULL,
	created_at              TIMESTAMPTZ      NOT NULL DEFAULT now(),
	updated_at              TIMESTAMPTZ      NOT NULL DEFAULT now(),
	UNIQUE (leaderboard_instance_id, user_id)
);

CREATE INDEX IF NOT EXISTS idx_user_score_instance_score
	ON user_score (leaderboard_instance_id, score);
`

// Config holds PostgreSQL connection configuration.
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultConfig returns sensible defaults for PostgreSQL configuration.
func DefaultConfig() Config {
	return Config{
		DSN:             "postgres://localhost:5432/leaderboard?sslmode=disable",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// Store implements repository.Store on top of PostgreSQL.
type Store struct {
	db *sqlx.DB
}

// New opens a connection pool and verifies connectivity.
func New(config Config) (*Store, error) {
	db, err := sqlx.Connect("postgres", config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)

	return &Store{db: db}, nil
}

// NewWithDB creates a Store using an existing database handle (useful for testing).
func NewWithDB(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the user_score table and its indexes if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate user_score: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// orderClause renders the ORDER BY terms for order. The user_id tie-break
// mirrors the sorted-set member order of the cache tier so both tiers agree
// on every rank.
func orderClause(order rank.Order) string {
	if order == rank.HighestFirst {
		return "score DESC, user_id DESC"
	}
	return "score ASC, user_id ASC"
}

// SaveScore implements repository.Store as an insert-or-update on the
// (instance, user) pair.
func (s *Store) SaveScore(ctx context.Context, instanceID, userID string, score float64) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreUpdateLatency(tier, float64(time.Since(start).Milliseconds()))
	}()

	const query = `
		INSERT INTO user_score (leaderboard_instance_id, user_id, score)
		VALUES ($1, $2, $3)
		ON CONFLICT (leaderboard_instance_id, user_id)
		DO UPDATE SET score = EXCLUDED.score, updated_at = now()`

	if _, err := s.db.ExecContext(ctx, query, instanceID, userID, score); err != nil {
		return fmt.Errorf("upsert score for %s/%s: %w", instanceID, userID, err)
	}
	return nil
}

type rankedRow struct {
	UserID   string  `db:"user_id"`
	Score    float64 `db:"score"`
	Position int64   `db:"position"`
}

// TopK implements repository.Store.
func (s *Store) TopK(ctx context.Context, instanceID string, limit, offset int64, order rank.Order) ([]repository.Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(tier, float64(time.Since(start).Milliseconds()))
	}()

	if limit <= 0 || offset < 0 {
		return []repository.Entry{}, nil
	}

	query := fmt.Sprintf(`
		WITH ranked AS (
			SELECT user_id, score,
			       ROW_NUMBER() OVER (ORDER BY %s) AS position
			FROM user_score
			WHERE leaderboard_instance_id = $1
		)
		SELECT user_id, score, position
		FROM ranked
		ORDER BY position
		LIMIT $2 OFFSET $3`, orderClause(order))

	var rows []rankedRow
	if err := s.db.SelectContext(ctx, &rows, query, instanceID, limit, offset); err != nil {
		return nil, fmt.Errorf("query top entries for %s: %w", instanceID, err)
	}
	return toEntries(rows), nil
}

// UserRank implements repository.Store.
func (s *Store) UserRank(ctx context.Context, instanceID, userID string, order rank.Order) (repository.Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(tier, float64(time.Since(start).Milliseconds()))
	}()

	query := fmt.Sprintf(`
		WITH ranked AS (
			SELECT user_id, score,
			       ROW_NUMBER() OVER (ORDER BY %s) AS position
			FROM user_score
			WHERE leaderboard_instance_id = $1
		)
		SELECT user_id, score, position
		FROM ranked
		WHERE user_id = $2`, orderClause(order))

	var row rankedRow
	if err := s.db.GetContext(ctx, &row, query, instanceID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return repository.Entry{}, repository.ErrNotFound
		}
		return repository.Entry{}, fmt.Errorf("query rank for %s/%s: %w", instanceID, userID, err)
	}
	return repository.Entry{UserID: row.UserID, Score: row.Score, Rank: row.Position}, nil
}

// AroundUser implements repository.Store. The window bounds come from the
// shared ranking engine, not from SQL arithmetic, so the cache tier produces
// the identical window for the same board state.
func (s *Store) AroundUser(ctx context.Context, instanceID, userID string, limit int64, order rank.Order) ([]repository.Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(tier, float64(time.Since(start).Milliseconds()))
	}()

	if limit <= 0 {
		return []repository.Entry{}, nil
	}

	center, err := s.UserRank(ctx, instanceID, userID, order)
	if err != nil {
		return nil, err
	}
	total, err := s.Count(ctx, instanceID)
	if err != nil {
		return nil, err
	}

	lo, hi := rank.WindowAround(center.Rank, limit, total)

	query := fmt.Sprintf(`
		WITH ranked AS (
			SELECT user_id, score,
			       ROW_NUMBER() OVER (ORDER BY %s) AS position
			FROM user_score
			WHERE leaderboard_instance_id = $1
		)
		SELECT user_id, score, position
		FROM ranked
		WHERE position BETWEEN $2 AND $3
		ORDER BY position`, orderClause(order))

	var rows []rankedRow
	if err := s.db.SelectContext(ctx, &rows, query, instanceID, lo, hi); err != nil {
		return nil, fmt.Errorf("query window for %s/%s: %w", instanceID, userID, err)
	}
	return toEntries(rows), nil
}

// Count implements repository.Store.
func (s *Store) Count(ctx context.Context, instanceID string) (int64, error) {
	var n int64
	err := s.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM user_score WHERE leaderboard_instance_id = $1`, instanceID)
	if err != nil {
		return 0, fmt.Errorf("count members for %s: %w", instanceID, err)
	}
	return n, nil
}

func toEntries(rows []rankedRow) []repository.Entry {
	entries := make([]repository.Entry, len(rows))
	for i, r := range rows {
		entries[i] = repository.Entry{UserID: r.UserID, Score: r.Score, Rank: r.Position}
	}
	return entries
}

var _ repository.Store = (*Store)(nil)
