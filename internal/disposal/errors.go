package disposal

import "fmt"

// MissingLinkedTransferError reports a sale whose extrinsic id has no
// matching fee-transfer event; proceeds cannot be computed without it.
type MissingLinkedTransferError struct {
	ExtrinsicID string
}

func (e *MissingLinkedTransferError) Error() string {
	return fmt.Sprintf("no linked transfer event for extrinsic %s", e.ExtrinsicID)
}
