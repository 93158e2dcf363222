package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrSourceNotFound is returned when a source can't be found.
var ErrSourceNotFound = errors.New("source not found")

// Store persists sources in the pipeline database
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new source store backed by the given pool
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const sourceColumns = `id, uri, source_type, schedule, active, COALESCE(last_error, ''), last_scraped_at, created_at, updated_at`

func scanSource(row pgx.Row) (*Source, error) {
	var s Source
	err := row.Scan(
		&s.ID, &s.URI, &s.Type, &s.Schedule, &s.Active,
		&s.LastError, &s.LastScrapedAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSourceNotFound
		}
		return nil, err
	}
	return &s, nil
}

// Create inserts a new source after validating it
func (st *Store) Create(ctx context.Context, uri string, sourceType SourceType, schedule string) (*Source, error) {
	candidate := &Source{URI: uri, Type: sourceType, Schedule: schedule, Active: true}
	if err := candidate.Validate(); err != nil {
		return nil, err
	}

	row := st.pool.QueryRow(ctx,
		`INSERT INTO sources (uri, source_type, schedule)
		 VALUES ($1, $2, $3)
		 RETURNING `+sourceColumns,
		uri, sourceType, schedule,
	)
	src, err := scanSource(row)
	if err != nil {
		return nil, fmt.Errorf("failed to insert source: %w", err)
	}
	return src, nil
}

// GetByID returns the source with the given id
func (st *Store) GetByID(ctx context.Context, id int64) (*Source, error) {
	row := st.pool.QueryRow(ctx,
		`SELECT `+sourceColumns+` FROM sources WHERE id = $1`, id)
	return scanSource(row)
}

// List returns all sources ordered by id
func (st *Store) List(ctx context.Context) ([]Source, error) {
	return st.list(ctx, `SELECT `+sourceColumns+` FROM sources ORDER BY id`)
}

// ListActive returns all active sources ordered by id.
// Only active sources participate in schedule synchronization.
func (st *Store) ListActive(ctx context.Context) ([]Source, error) {
	return st.list(ctx, `SELECT `+sourceColumns+` FROM sources WHERE active ORDER BY id`)
}

func (st *Store) list(ctx context.Context, query string) ([]Source, error) {
	rows, err := st.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query sources: %w", err)
	}
	defer rows.Close()

	var out []Source
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		out = append(out, *src)
	}
	return out, rows.Err()
}

// Deactivate marks a source inactive. Its crontab entry is removed on the
// next synchronize run; existing artifacts are untouched.
func (st *Store) Deactivate(ctx context.Context, id int64) error {
	tag, err := st.pool.Exec(ctx,
		`UPDATE sources SET active = FALSE, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate source %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSourceNotFound
	}
	return nil
}

// TouchScraped records a successful fetch, advancing last_scraped_at and
// clearing any recorded fetch error.
func (st *Store) TouchScraped(ctx context.Context, id int64, at time.Time) error {
	tag, err := st.pool.Exec(ctx,
		`UPDATE sources SET last_scraped_at = $2, last_error = NULL, updated_at = now() WHERE id = $1`,
		id, at)
	if err != nil {
		return fmt.Errorf("failed to update last_scraped_at for source %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSourceNotFound
	}
	return nil
}

// RecordFetchFailure notes a fatal fetch failure against the source without
// touching last_scraped_at, so operators can tell "will retry on next tick"
// from "requires intervention".
func (st *Store) RecordFetchFailure(ctx context.Context, id int64, note string) error {
	tag, err := st.pool.Exec(ctx,
		`UPDATE sources SET last_error = $2, updated_at = now() WHERE id = $1`,
		id, note)
	if err != nil {
		return fmt.Errorf("failed to record fetch failure for source %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSourceNotFound
	}
	return nil
}
