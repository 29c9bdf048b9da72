package ports

import (
	"context"

	"aalr/domain/series"
)

// SeriesReader loads (x, y) samples from an external source into a validated
// Series. Implementations fail fast with core.ErrInvalidSeries semantics when
// the source content cannot form a valid sample set.
type SeriesReader interface {
	// Read loads the series at the given location (file path for the
	// CSV/Excel adapter).
	Read(ctx context.Context, location string) (*series.Series, error)
}
