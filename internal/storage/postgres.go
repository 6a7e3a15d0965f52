// internal/storage/postgres.go
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// postgres persists navigation states in PostgreSQL so any site instance can
// serve the thank-you page.
type postgres struct {
	db *pgxpool.Pool
}

// NewPostgres creates a new PostgreSQL storage implementation.
// It establishes a connection pool to the database and initializes the schema.
func NewPostgres(ctx context.Context, dsn string) (Store, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid database DSN: %w", err)
	}

	// Pool sizing for a handful of writes per lead
	config.MaxConns = 10
	config.MinConns = 1
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = time.Minute * 30
	config.HealthCheckPeriod = time.Minute

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &postgres{db: pool}, nil
}

// initSchema creates the nav_states table if it doesn't already exist.
func initSchema(ctx context.Context, db *pgxpool.Pool) error {
	schema := `
		CREATE TABLE IF NOT EXISTS nav_states (
		    token TEXT PRIMARY KEY,                  -- ULID handed to the browser
		    ebook_id BIGINT NOT NULL,
		    ebook_title TEXT NOT NULL,
		    download_url TEXT NOT NULL,
		    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		    expires_at TIMESTAMP WITH TIME ZONE NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_nav_states_expires_at ON nav_states(expires_at);
	`
	_, err := db.Exec(ctx, schema)
	return err
}

func (p *postgres) Close() {
	p.db.Close()
}

func (p *postgres) Ping(ctx context.Context) error {
	return p.db.Ping(ctx)
}

// Put inserts s. An existing token is a conflict.
func (p *postgres) Put(ctx context.Context, s NavState) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO nav_states (token, ebook_id, ebook_title, download_url, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := p.db.Exec(ctx, query, s.Token, s.EbookID, s.EbookTitle, s.DownloadURL, s.CreatedAt, s.ExpiresAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("failed to store navigation state: %w", err)
	}
	return nil
}

// Get returns the state for token unless it has expired.
func (p *postgres) Get(ctx context.Context, token string) (*NavState, error) {
	query := `SELECT token, ebook_id, ebook_title, download_url, created_at, expires_at
		FROM nav_states WHERE token = $1 AND expires_at > NOW()`
	var s NavState

	err := p.db.QueryRow(ctx, query, token).Scan(&s.Token, &s.EbookID, &s.EbookTitle, &s.DownloadURL, &s.CreatedAt, &s.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get navigation state: %w", err)
	}
	return &s, nil
}

// Purge deletes expired states and reports how many were removed.
func (p *postgres) Purge(ctx context.Context) (int64, error) {
	tag, err := p.db.Exec(ctx, `DELETE FROM nav_states WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("failed to purge navigation states: %w", err)
	}
	return tag.RowsAffected(), nil
}
