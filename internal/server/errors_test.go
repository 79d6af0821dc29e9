package server

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/veridate/veridate/internal/types"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&types.ErrInvalidIdentifier{Field: "user id", Value: "x"}, http.StatusBadRequest},
		{&types.ErrInvalidRating{Value: "9"}, http.StatusBadRequest},
		{&types.ErrValidation{Field: "page", Message: "bad"}, http.StatusBadRequest},
		{&types.ErrSelfVerification{}, http.StatusForbidden},
		{&types.ErrForbidden{Resource: "notification"}, http.StatusForbidden},
		{&types.ErrNotFound{Resource: "profile", ID: "x"}, http.StatusNotFound},
		{&types.ErrDuplicateVerification{}, http.StatusConflict},
		{&types.ErrInsufficientCredit{Category: types.CategoryEducation, Key: "mit"}, http.StatusPaymentRequired},
		{fmt.Errorf("wrapped: %w", &types.ErrNotFound{Resource: "experience"}), http.StatusNotFound},
		{&types.ErrTransientStore{Op: "verify", Cause: errors.New("conn reset")}, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprintf("%T", tc.err), func(t *testing.T) {
			assert.Equal(t, tc.want, HTTPStatus(tc.err))
		})
	}
}

func TestWriteError_HidesInternalDetails(t *testing.T) {
	env := newTestEnv(t, nil)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/verify/credits", nil)
	env.srv.writeError(w, r, &types.ErrTransientStore{Op: "list credit buckets", Cause: errors.New("dial tcp 10.0.0.5:5432")})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeBody[map[string]string](t, w)
	assert.Equal(t, genericErrorMessage, body["message"])
	assert.NotContains(t, w.Body.String(), "10.0.0.5")

	w = httptest.NewRecorder()
	env.srv.writeError(w, r, &types.ErrNotFound{Resource: "profile", ID: "abc"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, decodeBody[map[string]string](t, w)["message"], "profile")
}
