package guard

import (
	"errors"

	"github.com/ppiankov/safeupdate/internal/model"
)

// Sentinels matched by errors.Is against a *RejectedError.
var (
	// ErrRejected matches every guard rejection.
	ErrRejected = errors.New("safeupdate: update rejected")

	// ErrEmptySelector matches rejections of empty selectors.
	ErrEmptySelector = errors.New("safeupdate: empty selector")

	// ErrNoModifierOperator matches rejections of modifiers without $-operators.
	ErrNoModifierOperator = errors.New("safeupdate: modifier has no $-operator")
)

// RejectedError is returned when the guard refuses an update. The store is
// never called for a rejected request.
type RejectedError struct {
	Code       int              `json:"code"`
	Kind       model.RejectKind `json:"kind"`
	Message    string           `json:"message"`
	Collection string           `json:"collection,omitempty"`
	PolicyID   string           `json:"policy_id,omitempty"`
}

func (e *RejectedError) Error() string {
	return e.Message
}

// Is lets errors.Is match ErrRejected and the sentinel for e.Kind.
func (e *RejectedError) Is(target error) bool {
	switch target {
	case ErrRejected:
		return true
	case ErrEmptySelector:
		return e.Kind == model.KindEmptySelector
	case ErrNoModifierOperator:
		return e.Kind == model.KindNoModifierOperator
	}
	return false
}

func newRejectedError(collection string, r model.GuardResult) *RejectedError {
	return &RejectedError{
		Code:       r.Code,
		Kind:       r.Kind,
		Message:    r.Reason,
		Collection: collection,
		PolicyID:   r.PolicyID,
	}
}

// IsRejected reports whether err (or anything it wraps) is a guard rejection.
func IsRejected(err error) bool {
	return errors.Is(err, ErrRejected)
}

// KindOf returns the rejection kind carried by err, or KindNone.
func KindOf(err error) model.RejectKind {
	var rej *RejectedError
	if errors.As(err, &rej) {
		return rej.Kind
	}
	return model.KindNone
}
