package types

import (
	"errors"
	"fmt"
)

// ErrInvalidIdentifier indicates a malformed user, item or notification ID
type ErrInvalidIdentifier struct {
	Field string
	Value string
}

func (e *ErrInvalidIdentifier) Error() string {
	return fmt.Sprintf("invalid %s", e.Field)
}

// ErrInvalidRating indicates a rating that is missing, non-integer or outside 1-5
type ErrInvalidRating struct {
	Value string
}

func (e *ErrInvalidRating) Error() string {
	return "rating must be an integer between 1 and 5"
}

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrNotFound indicates a missing profile, item or notification
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found", e.Resource)
}

// ErrSelfVerification indicates a user tried to verify their own profile
type ErrSelfVerification struct{}

func (e *ErrSelfVerification) Error() string {
	return "you cannot verify your own profile"
}

// ErrDuplicateVerification indicates the verifier already rated this item
type ErrDuplicateVerification struct {
	VerifierID string
	ItemID     string
}

func (e *ErrDuplicateVerification) Error() string {
	return "you have already verified this entry"
}

// ErrInsufficientCredit indicates the verifier has no credit left for the institute or company
type ErrInsufficientCredit struct {
	Category Category
	Key      string
}

func (e *ErrInsufficientCredit) Error() string {
	if e.Category == CategoryExperience {
		return "no verification credits available for this company"
	}
	return "no verification credits available for this institute"
}

// ErrForbidden indicates the caller does not own the resource
type ErrForbidden struct {
	Resource string
}

func (e *ErrForbidden) Error() string {
	return fmt.Sprintf("%s does not belong to you", e.Resource)
}

// ErrTransientStore wraps a database failure. Clients may retry; the server does not.
type ErrTransientStore struct {
	Op    string
	Cause error
}

func (e *ErrTransientStore) Error() string {
	return fmt.Sprintf("store error during %s: %v", e.Op, e.Cause)
}

func (e *ErrTransientStore) Unwrap() error {
	return e.Cause
}

// IsNotFound reports whether err is (or wraps) an ErrNotFound.
func IsNotFound(err error) bool {
	var nf *ErrNotFound
	return errors.As(err, &nf)
}
