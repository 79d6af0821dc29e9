package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"invalid identifier", &ErrInvalidIdentifier{Field: "target user id", Value: "x"}, "invalid target user id"},
		{"invalid rating", &ErrInvalidRating{Value: "6"}, "rating must be an integer between 1 and 5"},
		{"not found", &ErrNotFound{Resource: "education", ID: "e1"}, "education not found"},
		{"self verification", &ErrSelfVerification{}, "you cannot verify your own profile"},
		{"duplicate", &ErrDuplicateVerification{}, "you have already verified this entry"},
		{"no institute credit", &ErrInsufficientCredit{Category: CategoryEducation}, "no verification credits available for this institute"},
		{"no company credit", &ErrInsufficientCredit{Category: CategoryExperience}, "no verification credits available for this company"},
		{"forbidden", &ErrForbidden{Resource: "notification"}, "notification does not belong to you"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestErrTransientStore_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("verify: %w", &ErrTransientStore{Op: "verify", Cause: cause})
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(fmt.Errorf("wrap: %w", &ErrNotFound{Resource: "profile"})))
	assert.False(t, IsNotFound(&ErrForbidden{}))
	assert.False(t, IsNotFound(nil))
}
