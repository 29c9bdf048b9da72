package series

import (
	"encoding/json"

	"aalr/domain/core"
)

// ============================================================================
// MASK (Active/anomalous flags, one per sample)
// ============================================================================

// Mask holds one boolean per sample: true marks the point active (trusted),
// false marks it anomalous (excluded from fitting).
type Mask struct {
	bits []bool
}

// Run is a half-open index interval [Lo, Hi)
type Run struct {
	Lo int `json:"lo"`
	Hi int `json:"hi"`
}

// NewAllActive returns a mask of length n with every point active
func NewAllActive(n int) Mask {
	bits := make([]bool, n)
	for i := range bits {
		bits[i] = true
	}
	return Mask{bits: bits}
}

// FromBools copies bits into a new mask
func FromBools(bits []bool) Mask {
	return Mask{bits: append([]bool(nil), bits...)}
}

// Len returns the number of flags
func (m Mask) Len() int {
	return len(m.bits)
}

// Active reports whether index i is active
func (m Mask) Active(i int) bool {
	return m.bits[i]
}

// CountActive returns the number of active points
func (m Mask) CountActive() int {
	n := 0
	for _, b := range m.bits {
		if b {
			n++
		}
	}
	return n
}

// Clone returns an independent copy
func (m Mask) Clone() Mask {
	return FromBools(m.bits)
}

// Equal reports whether two masks have identical length and flags
func (m Mask) Equal(other Mask) bool {
	if len(m.bits) != len(other.bits) {
		return false
	}
	for i := range m.bits {
		if m.bits[i] != other.bits[i] {
			return false
		}
	}
	return true
}

// Hamming returns the number of positions where the two masks differ
func (m Mask) Hamming(other Mask) (int, error) {
	if len(m.bits) != len(other.bits) {
		return 0, core.NewSeriesErrorf("mask length mismatch: %d vs %d", len(m.bits), len(other.bits))
	}
	d := 0
	for i := range m.bits {
		if m.bits[i] != other.bits[i] {
			d++
		}
	}
	return d, nil
}

// And intersects two masks: a point stays active only if both masks agree
func (m Mask) And(other Mask) (Mask, error) {
	if len(m.bits) != len(other.bits) {
		return Mask{}, core.NewSeriesErrorf("mask length mismatch: %d vs %d", len(m.bits), len(other.bits))
	}
	bits := make([]bool, len(m.bits))
	for i := range m.bits {
		bits[i] = m.bits[i] && other.bits[i]
	}
	return Mask{bits: bits}, nil
}

// ExcludedRuns returns the maximal runs of consecutive excluded indices as
// half-open intervals. The result is empty when nothing is excluded.
func (m Mask) ExcludedRuns() []Run {
	var runs []Run
	inRun := false
	lo := 0
	for i, b := range m.bits {
		if !b && !inRun {
			inRun = true
			lo = i
		}
		if b && inRun {
			inRun = false
			runs = append(runs, Run{Lo: lo, Hi: i})
		}
	}
	if inRun {
		runs = append(runs, Run{Lo: lo, Hi: len(m.bits)})
	}
	return runs
}

// ExcludedIndices lists every excluded index in order
func (m Mask) ExcludedIndices() []int {
	var idx []int
	for i, b := range m.bits {
		if !b {
			idx = append(idx, i)
		}
	}
	return idx
}

// Bools returns a copy of the raw flags
func (m Mask) Bools() []bool {
	return append([]bool(nil), m.bits...)
}

// JSON marshaling as a plain bool array
func (m Mask) MarshalJSON() ([]byte, error) {
	if m.bits == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(m.bits)
}

func (m *Mask) UnmarshalJSON(data []byte) error {
	var bits []bool
	if err := json.Unmarshal(data, &bits); err != nil {
		return err
	}
	m.bits = bits
	return nil
}
