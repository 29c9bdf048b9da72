package curve

import (
	"aalr/domain/core"
	"aalr/domain/series"
)

// RunArtifact is the persisted record of one refinement run
type RunArtifact struct {
	RunID       core.RunID              `json:"run_id"`
	Fingerprint core.DatasetFingerprint `json:"fingerprint"`
	SampleCount int                     `json:"sample_count"`

	Degree        int       `json:"degree"`
	InteriorKnots []float64 `json:"interior_knots"`
	Coefficients  []float64 `json:"coefficients"`

	Mask            series.Mask `json:"mask"`
	ExcludedIndices []int       `json:"excluded_indices,omitempty"`

	Converged     bool    `json:"converged"`
	Iterations    int     `json:"iterations"`
	FinalDistance int     `json:"final_distance"`
	Dispersion    float64 `json:"dispersion"`

	CreatedAt core.Timestamp `json:"created_at"`
}
