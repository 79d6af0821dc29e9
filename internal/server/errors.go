package server

import (
	"errors"
	"net/http"

	"github.com/veridate/veridate/internal/types"
)

// genericErrorMessage is returned for server faults so internal details never reach clients.
const genericErrorMessage = "internal server error"

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		invalidID    *types.ErrInvalidIdentifier
		invalidRate  *types.ErrInvalidRating
		validation   *types.ErrValidation
		self         *types.ErrSelfVerification
		forbidden    *types.ErrForbidden
		notFound     *types.ErrNotFound
		duplicate    *types.ErrDuplicateVerification
		insufficient *types.ErrInsufficientCredit
	)
	switch {
	case errors.As(err, &invalidID), errors.As(err, &invalidRate), errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &self), errors.As(err, &forbidden):
		return http.StatusForbidden
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &duplicate):
		return http.StatusConflict
	case errors.As(err, &insufficient):
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err to a status and a {message} body. Server faults are logged with their
// cause and answered with a generic message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed",
			"request_id", requestIDFrom(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		s.errorResponse(w, status, genericErrorMessage)
		return
	}
	s.errorResponse(w, status, err.Error())
}
