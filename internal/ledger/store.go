package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists artifacts in the pipeline database
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new artifact store backed by the given pool
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const artifactColumns = `id, source_id, local_path, filename, mimetype, status, retry_count, COALESCE(notes, ''), scraped_at`

func scanArtifact(row pgx.Row) (*Artifact, error) {
	var a Artifact
	err := row.Scan(
		&a.ID, &a.SourceID, &a.LocalPath, &a.Filename, &a.Mimetype,
		&a.Status, &a.RetryCount, &a.Notes, &a.ScrapedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrArtifactNotFound
		}
		return nil, err
	}
	return &a, nil
}

// Insert records a newly fetched artifact with status SCRAPED.
// The backing file must already exist on durable storage; the ledger never
// references a payload that was not written first.
func (st *Store) Insert(ctx context.Context, a *Artifact) error {
	_, err := st.pool.Exec(ctx,
		`INSERT INTO artifacts (id, source_id, local_path, filename, mimetype, status, notes, scraped_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8)`,
		a.ID, a.SourceID, a.LocalPath, a.Filename, a.Mimetype, StatusScraped, a.Notes, a.ScrapedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert artifact: %w", err)
	}
	return nil
}

// SelectBatch returns up to limit claimable artifacts, oldest first: rows in
// SCRAPED status, plus FAILED rows with retries remaining under maxRetries.
func (st *Store) SelectBatch(ctx context.Context, limit, maxRetries int) ([]Artifact, error) {
	rows, err := st.pool.Query(ctx,
		`SELECT `+artifactColumns+` FROM artifacts
		 WHERE status = $1 OR (status = $2 AND retry_count < $3)
		 ORDER BY scraped_at ASC
		 LIMIT $4`,
		StatusScraped, StatusFailed, maxRetries, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query artifact batch: %w", err)
	}
	defer rows.Close()

	var out []Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan artifact: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// HasInFlight reports whether a SCRAPED or PROCESSING row already exists for
// the given source and filename. Local directory ingestion uses this to avoid
// re-importing a file whose previous version is still in the pipeline.
func (st *Store) HasInFlight(ctx context.Context, sourceID int64, filename string) (bool, error) {
	var exists bool
	err := st.pool.QueryRow(ctx,
		`SELECT EXISTS (
		    SELECT 1 FROM artifacts
		    WHERE source_id = $1 AND filename = $2 AND status IN ($3, $4)
		 )`,
		sourceID, filename, StatusScraped, StatusProcessing,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check in-flight artifacts: %w", err)
	}
	return exists, nil
}

// Claim transitions an artifact from the expected status to PROCESSING as a
// single compare-and-set. It succeeds only if the row is still in expected
// status at the moment of the update; a row already claimed by a concurrent
// invocation yields ErrClaimConflict.
func (st *Store) Claim(ctx context.Context, id uuid.UUID, expected Status) error {
	return st.transition(ctx, id,
		`UPDATE artifacts SET status = $3 WHERE id = $1 AND status = $2`,
		id, expected, StatusProcessing)
}

// MarkProcessed transitions a PROCESSING artifact to its terminal PROCESSED
// state and clears any failure notes.
func (st *Store) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	return st.transition(ctx, id,
		`UPDATE artifacts SET status = $3, notes = NULL WHERE id = $1 AND status = $2`,
		id, StatusProcessing, StatusProcessed)
}

// MarkFailed transitions a PROCESSING artifact to FAILED, incrementing its
// retry count and recording the failure detail in notes.
func (st *Store) MarkFailed(ctx context.Context, id uuid.UUID, note string) error {
	return st.transition(ctx, id,
		`UPDATE artifacts
		 SET status = $3, retry_count = retry_count + 1, notes = $4
		 WHERE id = $1 AND status = $2`,
		id, StatusProcessing, StatusFailed, note)
}

// transition applies a conditional update and maps a zero-row result to
// either ErrArtifactNotFound or ErrClaimConflict.
func (st *Store) transition(ctx context.Context, id uuid.UUID, query string, args ...any) error {
	tag, err := st.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to transition artifact %s: %w", id, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// Zero rows: either the row is gone or another invocation moved it first.
	var exists bool
	if err := st.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM artifacts WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to inspect artifact %s after conflict: %w", id, err)
	}
	if !exists {
		return ErrArtifactNotFound
	}
	return ErrClaimConflict
}
