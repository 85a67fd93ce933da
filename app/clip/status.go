package clip

import (
	"errors"
	"fmt"
)

const (
	StatusPending     = "pending"
	StatusApproved    = "approved"
	StatusRejected    = "rejected"
	StatusNotRequired = "not_required"
)

var ErrInvalidTransition = errors.New("invalid approval status transition")

// not_required is terminal: it is set at creation when approval is
// disabled and never transitions.
var allowedTransitions = map[string]map[string]bool{
	StatusPending: {
		StatusApproved: true,
		StatusRejected: true,
	},
	StatusApproved:    {},
	StatusRejected:    {},
	StatusNotRequired: {},
}

func IsKnownStatus(status string) bool {
	_, ok := allowedTransitions[status]
	return ok
}

func CanTransition(from, to string) bool {
	next, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	return next[to]
}

// TransitionStatus applies an approval decision to a bundle, enforcing
// the pending -> {approved, rejected} state machine.
func TransitionStatus(b *Bundle, toStatus string) error {
	from := b.ApprovalStatus
	if !CanTransition(from, toStatus) {
		return fmt.Errorf("%w: %q -> %q (clip_id=%s)", ErrInvalidTransition, from, toStatus, b.ClipID)
	}
	b.ApprovalStatus = toStatus
	return nil
}
