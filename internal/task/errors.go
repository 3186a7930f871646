package task

import (
	"errors"
	"fmt"
)

// Lifecycle precondition failures. Handlers translate these to HTTP statuses;
// stores never swallow them.
var (
	ErrNotFound            = errors.New("not found")
	ErrTemplateUnavailable = errors.New("template is not available; finish the active instance or refresh the pool")
	ErrInstanceImmutable   = errors.New("details are frozen once the instance is done")
	ErrNotInReview         = errors.New("instance is not in review")
	ErrNotCollectible      = errors.New("only done instances can be collected")
	ErrTemplateInUse       = errors.New("template has instances and cannot be deleted")
)

// IllegalTransitionError names the source and attempted target of a move
// outside the transition table.
type IllegalTransitionError struct {
	From Status
	To   Status
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("cannot move from %s to %s", e.From, e.To)
}
