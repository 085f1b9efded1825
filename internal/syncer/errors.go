package syncer

import "kobo/internal/core"

// MutationError reports a mutation the façade refused. Message is the
// façade's human-readable error.
type MutationError struct {
	Op      string
	Message string
	Reason  core.Reason
}

func (e *MutationError) Error() string {
	if e.Message == "" {
		return e.Op + " failed"
	}
	return e.Message
}

// IsConflict reports whether the façade refused because of a referential or
// uniqueness conflict.
func (e *MutationError) IsConflict() bool {
	return e.Reason == core.ReasonConflict
}

func fromResult(op string, res core.Result) error {
	if res.Success {
		return nil
	}
	return &MutationError{Op: op, Message: res.Error, Reason: res.Reason}
}
