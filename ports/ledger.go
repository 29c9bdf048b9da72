package ports

import (
	"context"

	"aalr/domain/core"
	"aalr/domain/curve"
)

// RunLedgerWriter provides append-only write access to run artifacts.
// This is the only way a fit run is recorded.
type RunLedgerWriter interface {
	StoreRun(ctx context.Context, artifact curve.RunArtifact) error
}

// RunLedgerReader provides read-only access to stored runs.
// Use this for queries and API access.
type RunLedgerReader interface {
	GetRun(ctx context.Context, runID core.RunID) (*curve.RunArtifact, error)
	ListRuns(ctx context.Context, filters RunFilters) ([]curve.RunArtifact, error)
}

// RunFilters for querying stored runs
type RunFilters struct {
	Converged *bool
	Limit     int
	Offset    int
}

// RunLedger combines read and write access
type RunLedger interface {
	RunLedgerWriter
	RunLedgerReader
}
