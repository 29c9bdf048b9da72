// Package postgres persists refinement runs in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"aalr/domain/core"
	"aalr/domain/curve"
	"aalr/domain/series"
	"aalr/ports"
)

// RunRepository stores run artifacts in the fit_runs table
type RunRepository struct {
	db *sqlx.DB
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *sqlx.DB) *RunRepository {
	return &RunRepository{db: db}
}

// StoreRun appends a run artifact. Run IDs are unique, a repeated insert
// fails rather than overwriting history.
func (r *RunRepository) StoreRun(ctx context.Context, artifact curve.RunArtifact) error {
	query := `
		INSERT INTO fit_runs (
			run_id, fingerprint, sample_count, degree, interior_knots,
			coefficients, mask, converged, iterations, final_distance,
			dispersion, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	knotsJSON, err := json.Marshal(artifact.InteriorKnots)
	if err != nil {
		return fmt.Errorf("failed to marshal interior knots: %w", err)
	}
	coeffsJSON, err := json.Marshal(artifact.Coefficients)
	if err != nil {
		return fmt.Errorf("failed to marshal coefficients: %w", err)
	}
	maskJSON, err := json.Marshal(artifact.Mask)
	if err != nil {
		return fmt.Errorf("failed to marshal mask: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query,
		artifact.RunID.String(),
		artifact.Fingerprint.String(),
		artifact.SampleCount,
		artifact.Degree,
		knotsJSON,
		coeffsJSON,
		maskJSON,
		artifact.Converged,
		artifact.Iterations,
		artifact.FinalDistance,
		artifact.Dispersion,
		artifact.CreatedAt.Time(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// GetRun loads a single run artifact by ID
func (r *RunRepository) GetRun(ctx context.Context, runID core.RunID) (*curve.RunArtifact, error) {
	query := `
		SELECT run_id, fingerprint, sample_count, degree, interior_knots,
			   coefficients, mask, converged, iterations, final_distance,
			   dispersion, created_at
		FROM fit_runs
		WHERE run_id = $1`

	artifact, err := scanRun(r.db.QueryRowContext(ctx, query, runID.String()))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: %s", core.ErrRunNotFound, runID)
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return artifact, nil
}

// ListRuns returns stored runs, most recent first
func (r *RunRepository) ListRuns(ctx context.Context, filters ports.RunFilters) ([]curve.RunArtifact, error) {
	query := `
		SELECT run_id, fingerprint, sample_count, degree, interior_knots,
			   coefficients, mask, converged, iterations, final_distance,
			   dispersion, created_at
		FROM fit_runs`

	args := []interface{}{}
	if filters.Converged != nil {
		query += fmt.Sprintf(" WHERE converged = $%d", len(args)+1)
		args = append(args, *filters.Converged)
	}
	query += " ORDER BY created_at DESC, run_id DESC"
	if filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, filters.Limit)
	}
	if filters.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", len(args)+1)
		args = append(args, filters.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var artifacts []curve.RunArtifact
	for rows.Next() {
		artifact, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		artifacts = append(artifacts, *artifact)
	}
	return artifacts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*curve.RunArtifact, error) {
	var (
		artifact    curve.RunArtifact
		runID       string
		fingerprint string
		knotsJSON   []byte
		coeffsJSON  []byte
		maskJSON    []byte
		createdAt   time.Time
	)

	err := row.Scan(
		&runID,
		&fingerprint,
		&artifact.SampleCount,
		&artifact.Degree,
		&knotsJSON,
		&coeffsJSON,
		&maskJSON,
		&artifact.Converged,
		&artifact.Iterations,
		&artifact.FinalDistance,
		&artifact.Dispersion,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	artifact.RunID = core.RunID(runID)
	artifact.Fingerprint = core.DatasetFingerprint(fingerprint)
	artifact.CreatedAt = core.NewTimestamp(createdAt)

	if err := json.Unmarshal(knotsJSON, &artifact.InteriorKnots); err != nil {
		return nil, fmt.Errorf("failed to unmarshal interior knots: %w", err)
	}
	if err := json.Unmarshal(coeffsJSON, &artifact.Coefficients); err != nil {
		return nil, fmt.Errorf("failed to unmarshal coefficients: %w", err)
	}
	var mask series.Mask
	if err := json.Unmarshal(maskJSON, &mask); err != nil {
		return nil, fmt.Errorf("failed to unmarshal mask: %w", err)
	}
	artifact.Mask = mask
	artifact.ExcludedIndices = mask.ExcludedIndices()

	return &artifact, nil
}

var _ ports.RunLedger = (*RunRepository)(nil)
