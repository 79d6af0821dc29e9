// Package verification implements peer verification of profile items: a rater scores an
// education or experience entry once, spending one credit from the matching ledger bucket.
package verification

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/veridate/veridate/internal/ids"
	"github.com/veridate/veridate/internal/logger"
	"github.com/veridate/veridate/internal/metrics"
	"github.com/veridate/veridate/internal/types"
)

// Store performs the atomic part of a verification. ApplyVerification must, in one unit:
// resolve the target item (ErrNotFound), reject an existing record for the same verifier and
// item (ErrDuplicateVerification), debit one credit from the verifier's bucket keyed by the
// item's institute/company (ErrInsufficientCredit), insert the record and increment the item's
// aggregate. Either every effect is applied or none is.
type Store interface {
	ApplyVerification(ctx context.Context, rec types.Verification) (*types.VerificationOutcome, error)
}

// Request is one verification attempt.
type Request struct {
	VerifierID   string
	TargetUserID string
	ItemID       string
	Category     types.Category
	Rating       int
	Comment      string
}

// Engine validates and executes verifications.
type Engine struct {
	store Store
	log   *logger.Logger
	now   func() time.Time
}

// NewEngine creates an Engine backed by store.
func NewEngine(store Store, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{
		store: store,
		log:   log.With("component", "verification"),
		now:   time.Now,
	}
}

// Verify validates req and, when valid, applies it atomically through the store.
// Validation failures never reach the store.
func (e *Engine) Verify(ctx context.Context, req Request) (*types.VerificationOutcome, error) {
	rec, err := e.prepare(req)
	if err != nil {
		e.observe(req.Category, err)
		return nil, err
	}

	out, err := e.store.ApplyVerification(ctx, rec)
	if err != nil {
		var transient *types.ErrTransientStore
		if !isDomainError(err) {
			e.log.Error("verification store failure",
				"verifier_id", rec.VerifierID,
				"item_id", rec.ItemID,
				"category", rec.Category,
				"error", err,
			)
			if !errors.As(err, &transient) {
				err = &types.ErrTransientStore{Op: "verify", Cause: err}
			}
		}
		e.observe(req.Category, err)
		return nil, err
	}

	e.observe(req.Category, nil)
	metrics.CreditsDebitedTotal.WithLabelValues(string(req.Category)).Inc()
	e.log.Info("item verified",
		"verifier_id", rec.VerifierID,
		"target_user_id", rec.TargetUserID,
		"item_id", rec.ItemID,
		"category", rec.Category,
		"rating", rec.Rating,
		"bucket_available", out.Verifier.Bucket.Available,
	)
	return out, nil
}

func (e *Engine) prepare(req Request) (types.Verification, error) {
	if !ids.Valid(req.VerifierID) {
		return types.Verification{}, &types.ErrInvalidIdentifier{Field: "verifier id", Value: req.VerifierID}
	}
	if !ids.Valid(req.TargetUserID) {
		return types.Verification{}, &types.ErrInvalidIdentifier{Field: "user id", Value: req.TargetUserID}
	}
	if !ids.Valid(req.ItemID) {
		return types.Verification{}, &types.ErrInvalidIdentifier{Field: string(req.Category) + " id", Value: req.ItemID}
	}
	if _, err := types.ParseCategory(string(req.Category)); err != nil {
		return types.Verification{}, &types.ErrValidation{Field: "category", Message: err.Error()}
	}
	if err := ValidateRating(req.Rating); err != nil {
		return types.Verification{}, err
	}

	comment := strings.TrimSpace(req.Comment)
	if utf8.RuneCountInString(comment) > types.MaxCommentLength {
		return types.Verification{}, &types.ErrValidation{Field: "comment", Message: "must be at most 2000 characters"}
	}

	if strings.EqualFold(req.VerifierID, req.TargetUserID) {
		return types.Verification{}, &types.ErrSelfVerification{}
	}

	return types.Verification{
		ID:           ids.New(),
		VerifierID:   strings.ToLower(req.VerifierID),
		TargetUserID: strings.ToLower(req.TargetUserID),
		ItemID:       strings.ToLower(req.ItemID),
		Category:     req.Category,
		Rating:       req.Rating,
		Comment:      comment,
		CreatedAt:    e.now().UTC(),
	}, nil
}

func (e *Engine) observe(category types.Category, err error) {
	metrics.VerificationsTotal.WithLabelValues(string(category), resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	var (
		invalidID    *types.ErrInvalidIdentifier
		invalidRate  *types.ErrInvalidRating
		validation   *types.ErrValidation
		notFound     *types.ErrNotFound
		self         *types.ErrSelfVerification
		duplicate    *types.ErrDuplicateVerification
		insufficient *types.ErrInsufficientCredit
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &invalidID):
		return "invalid_identifier"
	case errors.As(err, &invalidRate):
		return "invalid_rating"
	case errors.As(err, &validation):
		return "validation"
	case errors.As(err, &notFound):
		return "not_found"
	case errors.As(err, &self):
		return "self_verification"
	case errors.As(err, &duplicate):
		return "duplicate"
	case errors.As(err, &insufficient):
		return "insufficient_credit"
	default:
		return "store_error"
	}
}

func isDomainError(err error) bool {
	label := resultLabel(err)
	return label != "store_error" && label != "ok"
}
