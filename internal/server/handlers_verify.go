package server

import (
	"net/http"

	"github.com/veridate/veridate/internal/ledger"
	"github.com/veridate/veridate/internal/types"
	"github.com/veridate/veridate/internal/verification"
)

// handleVerify rates one education or experience item of another user's profile.
func (s *Server) handleVerify(category types.Category, itemParam string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		callerID, ok := s.callerID(w, r)
		if !ok {
			return
		}

		var req types.VerifyRequest
		if err := decodeJSON(w, r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}

		// An unusable rating goes to the engine as 0 so identifier errors are reported first.
		rating, err := verification.ParseRating(req.Rating)
		if err != nil {
			rating = 0
		}

		out, err := s.engine.Verify(r.Context(), verification.Request{
			VerifierID:   callerID,
			TargetUserID: r.PathValue("targetUserId"),
			ItemID:       r.PathValue(itemParam),
			Category:     category,
			Rating:       rating,
			Comment:      req.Comment,
		})
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.jsonResponse(w, http.StatusOK, out)
	}
}

// handleGetCredits returns the caller's ledger with recomputed totals.
func (s *Server) handleGetCredits(w http.ResponseWriter, r *http.Request) {
	callerID, ok := s.callerID(w, r)
	if !ok {
		return
	}
	// A caller without a profile has an empty ledger.
	buckets, err := s.store.ListCreditBuckets(r.Context(), callerID)
	if err != nil && !types.IsNotFound(err) {
		s.writeError(w, r, &types.ErrTransientStore{Op: "list credit buckets", Cause: err})
		return
	}
	s.jsonResponse(w, http.StatusOK, ledger.SummarizeBuckets(buckets))
}
