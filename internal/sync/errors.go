package sync

import "fmt"

// PreconditionError reports an operation attempted out of order, such as
// updating a record that was never created remotely or scheduling a campaign
// without a scheduled time. These are caller bugs, not remote failures.
type PreconditionError struct {
	Op     string
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func precondition(op, format string, args ...any) *PreconditionError {
	return &PreconditionError{Op: op, Reason: fmt.Sprintf(format, args...)}
}
