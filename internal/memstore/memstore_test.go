package memstore

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridate/veridate/internal/ids"
	"github.com/veridate/veridate/internal/types"
)

func seedProfile(t *testing.T, s *Store, name string) string {
	t.Helper()
	id := ids.New()
	_, err := s.UpsertProfile(context.Background(), id, name, "")
	require.NoError(t, err)
	return id
}

func TestStore_ProfileLifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()
	id := ids.New()

	p, err := s.GetProfile(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, p)

	created, err := s.UpsertProfile(ctx, id, "Tom Target", "Engineer")
	require.NoError(t, err)
	assert.Equal(t, "Tom Target", created.FullName)
	assert.False(t, created.CreatedAt.IsZero())

	updated, err := s.UpsertProfile(ctx, id, "Tom T.", "")
	require.NoError(t, err)
	assert.Equal(t, "Tom T.", updated.FullName)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)

	edu := &types.EducationItem{ID: ids.New(), Institute: "MIT", InstituteKey: "mit"}
	require.NoError(t, s.AddEducation(ctx, id, edu))
	exp := &types.ExperienceItem{ID: ids.New(), Company: "Acme", CompanyKey: "acme", RoleTitle: "Engineer"}
	require.NoError(t, s.AddExperience(ctx, id, exp))

	p, err = s.GetProfile(ctx, id)
	require.NoError(t, err)
	require.Len(t, p.Education, 1)
	require.Len(t, p.Experience, 1)
	assert.Equal(t, "MIT", p.Education[0].Institute)
	assert.NotNil(t, p.Education[0].Verifications)

	p.Education[0].Institute = "changed"
	again, err := s.GetProfile(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "MIT", again.Education[0].Institute, "snapshots do not alias stored items")
}

func TestStore_AddItemsRequireProfile(t *testing.T) {
	s := New()
	ctx := context.Background()

	err := s.AddEducation(ctx, ids.New(), &types.EducationItem{ID: ids.New()})
	assert.True(t, types.IsNotFound(err))
	err = s.AddExperience(ctx, ids.New(), &types.ExperienceItem{ID: ids.New()})
	assert.True(t, types.IsNotFound(err))
	_, err = s.GrantCredits(ctx, ids.New(), types.CategoryEducation, "MIT", 1)
	assert.True(t, types.IsNotFound(err))
	_, err = s.ListCreditBuckets(ctx, ids.New())
	assert.True(t, types.IsNotFound(err))
}

func TestStore_SetLineManager(t *testing.T) {
	s := New()
	ctx := context.Background()
	owner := seedProfile(t, s, "Tom")
	expID := ids.New()
	require.NoError(t, s.AddExperience(ctx, owner, &types.ExperienceItem{ID: expID, Company: "Acme", CompanyKey: "acme"}))

	manager := ids.New()
	item, previous, err := s.SetLineManager(ctx, owner, expID, manager)
	require.NoError(t, err)
	assert.Equal(t, manager, item.LineManagerID)
	assert.Empty(t, previous)

	next := ids.New()
	_, previous, err = s.SetLineManager(ctx, owner, expID, next)
	require.NoError(t, err)
	assert.Equal(t, manager, previous)

	_, _, err = s.SetLineManager(ctx, owner, ids.New(), manager)
	assert.True(t, types.IsNotFound(err))
	_, _, err = s.SetLineManager(ctx, ids.New(), expID, manager)
	assert.True(t, types.IsNotFound(err))
}

func TestStore_SetLineManagerConcurrentReportsOneChange(t *testing.T) {
	s := New()
	ctx := context.Background()
	owner := seedProfile(t, s, "Tom")
	expID := ids.New()
	require.NoError(t, s.AddExperience(ctx, owner, &types.ExperienceItem{ID: expID, Company: "Acme", CompanyKey: "acme"}))

	manager := ids.New()
	const n = 16
	var (
		wg      sync.WaitGroup
		changed atomic.Int32
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, previous, err := s.SetLineManager(ctx, owner, expID, manager)
			if err == nil && previous != manager {
				changed.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, changed.Load())
}

func TestStore_GrantAndListCredits(t *testing.T) {
	s := New()
	ctx := context.Background()
	user := seedProfile(t, s, "Vera")

	b, err := s.GrantCredits(ctx, user, types.CategoryEducation, "MIT", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, b.Available)

	b, err = s.GrantCredits(ctx, user, types.CategoryEducation, "  mit ", 1)
	require.NoError(t, err)
	assert.Equal(t, 3, b.Available, "grants with the same key land in one bucket")

	_, err = s.GrantCredits(ctx, user, types.CategoryExperience, "Acme", 1)
	require.NoError(t, err)

	buckets, err := s.ListCreditBuckets(ctx, user)
	require.NoError(t, err)
	assert.Len(t, buckets, 2)

	_, err = s.GrantCredits(ctx, user, types.CategoryEducation, "MIT", 0)
	var verr *types.ErrValidation
	assert.ErrorAs(t, err, &verr)
}

func TestStore_ApplyVerification(t *testing.T) {
	s := New()
	ctx := context.Background()
	verifier := seedProfile(t, s, "Vera Verifier")
	target := seedProfile(t, s, "Tom Target")
	eduID := ids.New()
	require.NoError(t, s.AddEducation(ctx, target, &types.EducationItem{ID: eduID, Institute: "MIT", InstituteKey: "mit"}))
	_, err := s.GrantCredits(ctx, verifier, types.CategoryEducation, "MIT", 1)
	require.NoError(t, err)

	rec := types.Verification{
		ID:           ids.New(),
		VerifierID:   verifier,
		TargetUserID: target,
		ItemID:       eduID,
		Category:     types.CategoryEducation,
		Rating:       4,
		CreatedAt:    time.Now().UTC(),
	}
	out, err := s.ApplyVerification(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, "Vera Verifier", out.Verifier.FullName)
	assert.Equal(t, 0, out.Verifier.Bucket.Available)
	assert.Equal(t, 1, out.Verifier.Bucket.Used)
	require.NotNil(t, out.Education)
	assert.Nil(t, out.Experience)
	assert.Equal(t, types.Rating{Count: 1, Sum: 4}, out.Education.Rating)
	require.Len(t, out.Education.Verifications, 1)
	assert.Equal(t, "Vera Verifier", out.Education.Verifications[0].VerifierName)

	_, err = s.ApplyVerification(ctx, rec)
	var dup *types.ErrDuplicateVerification
	assert.ErrorAs(t, err, &dup)

	rec.ItemID = ids.New()
	_, err = s.ApplyVerification(ctx, rec)
	assert.True(t, types.IsNotFound(err))
}

func TestStore_ApplyVerificationWithoutCreditLeavesNoTrace(t *testing.T) {
	s := New()
	ctx := context.Background()
	verifier := seedProfile(t, s, "Vera")
	target := seedProfile(t, s, "Tom")
	expID := ids.New()
	require.NoError(t, s.AddExperience(ctx, target, &types.ExperienceItem{ID: expID, Company: "Acme", CompanyKey: "acme"}))

	_, err := s.ApplyVerification(ctx, types.Verification{
		ID: ids.New(), VerifierID: verifier, TargetUserID: target, ItemID: expID,
		Category: types.CategoryExperience, Rating: 5,
	})
	var insufficient *types.ErrInsufficientCredit
	require.ErrorAs(t, err, &insufficient)

	p, err := s.GetProfile(ctx, target)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Experience[0].Rating.Count)
	assert.Empty(t, p.Experience[0].Verifications)

	// a later grant makes the same pair verifiable
	_, err = s.GrantCredits(ctx, verifier, types.CategoryExperience, "Acme", 1)
	require.NoError(t, err)
	_, err = s.ApplyVerification(ctx, types.Verification{
		ID: ids.New(), VerifierID: verifier, TargetUserID: target, ItemID: expID,
		Category: types.CategoryExperience, Rating: 5,
	})
	assert.NoError(t, err)
}
