package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/enroltrack-backend/internal/types"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrNotAuthorized   = errors.New("not authorized")
	ErrPaymentRequired = errors.New("payment required")
)

// ConflictError signals a duplicate live enrolment on create without
// re-enrol. ExistingID lets the caller retry with re-enrol.
type ConflictError struct {
	ExistingID uuid.UUID
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("live enrolment already exists (id=%s)", e.ExistingID)
}

// SequenceViolationError rejects enrolling into a sequence-ordered sibling
// before its predecessors complete.
type SequenceViolationError struct {
	LoID        uuid.UUID
	BlockedByID uuid.UUID
}

func (e *SequenceViolationError) Error() string {
	return fmt.Sprintf("sequence violation: lo %s is blocked by incomplete sibling %s", e.LoID, e.BlockedByID)
}

// DependencyNotMetError rejects activating an enrolment whose declared
// dependency is not completed yet.
type DependencyNotMetError struct {
	LoID          uuid.UUID
	DependsOnLoID uuid.UUID
}

func (e *DependencyNotMetError) Error() string {
	return fmt.Sprintf("dependency not met: lo %s requires completion of %s", e.LoID, e.DependsOnLoID)
}

// InvalidTransitionError rejects a status regression attempted without
// privilege.
type InvalidTransitionError struct {
	From types.EnrolmentStatus
	To   types.EnrolmentStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition %s -> %s", e.From, e.To)
}

// StoreFailureError marks a transient store/lock failure that survived the
// lifecycle manager's single retry.
type StoreFailureError struct {
	Err error
}

func (e *StoreFailureError) Error() string {
	return fmt.Sprintf("store failure: %v", e.Err)
}

func (e *StoreFailureError) Unwrap() error { return e.Err }

// domainError reports whether err carries domain semantics and therefore
// must not be retried or re-wrapped as a store failure.
func domainError(err error) bool {
	if err == nil {
		return false
	}
	var (
		conflict   *ConflictError
		sequence   *SequenceViolationError
		dependency *DependencyNotMetError
		transition *InvalidTransitionError
	)
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrNotAuthorized),
		errors.Is(err, ErrPaymentRequired),
		errors.As(err, &conflict),
		errors.As(err, &sequence),
		errors.As(err, &dependency),
		errors.As(err, &transition):
		return true
	default:
		return false
	}
}
