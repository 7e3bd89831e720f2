package sim

import "fmt"

type constError string

func (errStr constError) Error() string { return string(errStr) }

const (
	// ErrMissingDemandState is wrapped by ValuationError when a valuation function
	// needs demand state the registry does not hold.
	ErrMissingDemandState = constError("missing demand state")

	// ErrCapacityExceeded is returned by Buffer.Admit when the chunk does not fit.
	ErrCapacityExceeded = constError("buffer capacity exceeded")

	// ErrCapacityInvariant is wrapped by CapacityInvariantViolation.
	ErrCapacityInvariant = constError("capacity invariant violated")
)

// ValuationError reports that a gain could not be computed for a chunk at a cell.
// It aborts the remaining chunks of a CacheDecision call.
type ValuationError struct {
	Policy string
	Cell   CellID
	Chunk  ChunkID
	Err    error
}

func (e *ValuationError) Error() string {
	return fmt.Sprintf("valuation %s failed for chunk %s at cell %s: %v", e.Policy, e.Chunk, e.Cell, e.Err)
}

func (e *ValuationError) Unwrap() error { return e.Err }

// CapacityInvariantViolation reports a commit that would overflow a buffer.
// It can only happen if eviction returned a set that did not free enough space,
// so callers treat it as an internal consistency failure.
type CapacityInvariantViolation struct {
	Policy    string
	Cell      CellID
	Chunk     ChunkID
	Required  int64
	Available int64
}

func (e *CapacityInvariantViolation) Error() string {
	return fmt.Sprintf("%v: admitting chunk %s at cell %s under %s needs %d bytes, %d available",
		ErrCapacityInvariant, e.Chunk, e.Cell, e.Policy, e.Required, e.Available)
}

func (e *CapacityInvariantViolation) Unwrap() error { return ErrCapacityInvariant }
