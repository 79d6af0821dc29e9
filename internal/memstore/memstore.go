// Package memstore is an in-process store for profiles, credit ledgers, verifications and
// notifications. Each profile owns a map from item ID to item so writes touch a single item.
// One mutex serializes every compound check-and-write.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/veridate/veridate/internal/ledger"
	"github.com/veridate/veridate/internal/types"
)

type verificationKey struct {
	verifierID string
	itemID     string
}

type profileRecord struct {
	profile         types.Profile
	education       map[string]*types.EducationItem
	educationOrder  []string
	experience      map[string]*types.ExperienceItem
	experienceOrder []string
}

// Store implements the verification, notification and profile store contracts in memory.
type Store struct {
	mu            sync.Mutex
	profiles      map[string]*profileRecord
	verifications map[verificationKey]struct{}
	notifications map[string]*types.Notification
	notifOrder    []string
	now           func() time.Time
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		profiles:      make(map[string]*profileRecord),
		verifications: make(map[verificationKey]struct{}),
		notifications: make(map[string]*types.Notification),
		now:           time.Now,
	}
}

// Close is a no-op, present so the store can stand in for the database.
func (s *Store) Close() {}

// GetProfile returns a snapshot of the profile, or nil if it does not exist.
func (s *Store) GetProfile(_ context.Context, userID string) (*types.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.profiles[userID]
	if !ok {
		return nil, nil
	}
	return rec.snapshot(), nil
}

// UpsertProfile creates the profile or updates its personal info.
func (s *Store) UpsertProfile(_ context.Context, userID, fullName, headline string) (*types.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	rec, ok := s.profiles[userID]
	if !ok {
		rec = &profileRecord{
			profile: types.Profile{
				UserID:    userID,
				CreatedAt: now,
			},
			education:  make(map[string]*types.EducationItem),
			experience: make(map[string]*types.ExperienceItem),
		}
		s.profiles[userID] = rec
	}
	rec.profile.FullName = fullName
	rec.profile.Headline = headline
	rec.profile.UpdatedAt = now
	return rec.snapshot(), nil
}

// AddEducation appends an education item to the profile.
func (s *Store) AddEducation(_ context.Context, userID string, item *types.EducationItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.profiles[userID]
	if !ok {
		return &types.ErrNotFound{Resource: "profile", ID: userID}
	}
	stored := *item
	stored.Verifications = nil
	rec.education[item.ID] = &stored
	rec.educationOrder = append(rec.educationOrder, item.ID)
	rec.profile.UpdatedAt = s.now().UTC()
	return nil
}

// AddExperience appends an experience item to the profile.
func (s *Store) AddExperience(_ context.Context, userID string, item *types.ExperienceItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.profiles[userID]
	if !ok {
		return &types.ErrNotFound{Resource: "profile", ID: userID}
	}
	stored := *item
	stored.Verifications = nil
	rec.experience[item.ID] = &stored
	rec.experienceOrder = append(rec.experienceOrder, item.ID)
	rec.profile.UpdatedAt = s.now().UTC()
	return nil
}

// SetLineManager records the line manager on one experience item and returns the manager
// it replaced.
func (s *Store) SetLineManager(_ context.Context, userID, experienceID, managerID string) (*types.ExperienceItem, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.profiles[userID]
	if !ok {
		return nil, "", &types.ErrNotFound{Resource: "profile", ID: userID}
	}
	item, ok := rec.experience[experienceID]
	if !ok {
		return nil, "", &types.ErrNotFound{Resource: "experience", ID: experienceID}
	}
	previous := item.LineManagerID
	item.LineManagerID = managerID
	out := copyExperience(item)
	return &out, previous, nil
}

// GrantCredits adds available credits to the user's bucket for name.
func (s *Store) GrantCredits(_ context.Context, userID string, category types.Category, name string, amount int) (*types.CreditBucket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.profiles[userID]
	if !ok {
		return nil, &types.ErrNotFound{Resource: "profile", ID: userID}
	}
	bucket, err := ledger.Grant(&rec.profile, category, name, amount)
	if err != nil {
		return nil, err
	}
	out := *bucket
	return &out, nil
}

// ListCreditBuckets returns all of the user's buckets.
func (s *Store) ListCreditBuckets(_ context.Context, userID string) ([]types.CreditBucket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.profiles[userID]
	if !ok {
		return nil, &types.ErrNotFound{Resource: "profile", ID: userID}
	}
	out := make([]types.CreditBucket, 0, len(rec.profile.VerifyCredits.Education)+len(rec.profile.VerifyCredits.Experience))
	out = append(out, rec.profile.VerifyCredits.Education...)
	out = append(out, rec.profile.VerifyCredits.Experience...)
	return out, nil
}

// ApplyVerification checks and writes a verification under the store lock.
func (s *Store) ApplyVerification(_ context.Context, v types.Verification) (*types.VerificationOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, ok := s.profiles[v.TargetUserID]
	if !ok {
		return nil, &types.ErrNotFound{Resource: "profile", ID: v.TargetUserID}
	}

	var (
		key        string
		education  *types.EducationItem
		experience *types.ExperienceItem
	)
	switch v.Category {
	case types.CategoryEducation:
		education, ok = target.education[v.ItemID]
		if !ok {
			return nil, &types.ErrNotFound{Resource: "education", ID: v.ItemID}
		}
		key = education.InstituteKey
	case types.CategoryExperience:
		experience, ok = target.experience[v.ItemID]
		if !ok {
			return nil, &types.ErrNotFound{Resource: "experience", ID: v.ItemID}
		}
		key = experience.CompanyKey
	default:
		return nil, &types.ErrValidation{Field: "category", Message: "unknown category"}
	}

	vk := verificationKey{verifierID: v.VerifierID, itemID: v.ItemID}
	if _, exists := s.verifications[vk]; exists {
		return nil, &types.ErrDuplicateVerification{VerifierID: v.VerifierID, ItemID: v.ItemID}
	}

	verifier, ok := s.profiles[v.VerifierID]
	if !ok {
		return nil, &types.ErrInsufficientCredit{Category: v.Category, Key: key}
	}
	bucket, err := ledger.Debit(&verifier.profile, v.Category, key)
	if err != nil {
		return nil, err
	}

	v.VerifierName = verifier.profile.FullName
	s.verifications[vk] = struct{}{}

	out := &types.VerificationOutcome{
		Verifier: types.VerifierSummary{
			UserSummary: types.UserSummary{UserID: v.VerifierID, FullName: verifier.profile.FullName},
			Bucket:      *bucket,
		},
		Target: types.UserSummary{UserID: v.TargetUserID, FullName: target.profile.FullName},
		Record: v,
	}
	if education != nil {
		education.Verifications = append(education.Verifications, v)
		education.Rating.Count++
		education.Rating.Sum += v.Rating
		item := copyEducation(education)
		out.Education = &item
	} else {
		experience.Verifications = append(experience.Verifications, v)
		experience.Rating.Count++
		experience.Rating.Sum += v.Rating
		item := copyExperience(experience)
		out.Experience = &item
	}
	return out, nil
}

func (r *profileRecord) snapshot() *types.Profile {
	p := r.profile
	p.Education = make([]types.EducationItem, 0, len(r.educationOrder))
	for _, id := range r.educationOrder {
		p.Education = append(p.Education, copyEducation(r.education[id]))
	}
	p.Experience = make([]types.ExperienceItem, 0, len(r.experienceOrder))
	for _, id := range r.experienceOrder {
		p.Experience = append(p.Experience, copyExperience(r.experience[id]))
	}
	p.VerifyCredits = types.VerifyCredits{
		Education:  append([]types.CreditBucket{}, r.profile.VerifyCredits.Education...),
		Experience: append([]types.CreditBucket{}, r.profile.VerifyCredits.Experience...),
	}
	return &p
}

func copyEducation(item *types.EducationItem) types.EducationItem {
	out := *item
	out.Verifications = append([]types.Verification{}, item.Verifications...)
	return out
}

func copyExperience(item *types.ExperienceItem) types.ExperienceItem {
	out := *item
	out.Verifications = append([]types.Verification{}, item.Verifications...)
	return out
}
