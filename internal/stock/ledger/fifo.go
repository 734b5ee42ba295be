package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrFIFOViolation matches any *FIFOViolation via errors.Is.
	ErrFIFOViolation = errors.New("fifo violation")
	// ErrUnknownBatch is returned when the target batch is not in the list.
	ErrUnknownBatch = errors.New("batch not found in reconstruction")
)

// FIFOViolation rejects a sale against a batch while an earlier batch at the
// same shop still holds portions.
type FIFOViolation struct {
	Target   string
	Blocking Batch
}

func (v *FIFOViolation) Error() string {
	return fmt.Sprintf("sell batch %s first (%d portions remaining) before %s",
		v.Blocking.BatchNumber, v.Blocking.RemainingPortions, v.Target)
}

func (v *FIFOViolation) Is(target error) bool {
	return target == ErrFIFOViolation
}

// ValidateUpdate checks a proposed remaining count for targetBatch against the
// canonical FIFO order of batches.
//
// Increases and unchanged values are corrections and always pass, as does any
// update to the first batch. A decrease is rejected when a batch ahead of the
// target still has stock; the earliest such batch is reported.
func ValidateUpdate(batches []Batch, targetBatch string, newRemaining int) error {
	ordered := append([]Batch(nil), batches...)
	sortCanonical(ordered)

	idx := -1
	for i, b := range ordered {
		if b.BatchNumber == targetBatch {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownBatch, targetBatch)
	}
	if idx == 0 || newRemaining >= ordered[idx].RemainingPortions {
		return nil
	}

	for _, b := range ordered[:idx] {
		if b.RemainingPortions > 0 {
			return &FIFOViolation{Target: targetBatch, Blocking: b}
		}
	}
	return nil
}
