// Package ledger implements the per-institute/per-company verification credit buckets.
package ledger

import (
	"regexp"
	"strings"

	"github.com/veridate/veridate/internal/types"
)

var (
	punctuation = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	whitespace  = regexp.MustCompile(`\s+`)
)

// NormalizeKey derives the bucket identity from an institute or company name:
// lower-cased, punctuation stripped, whitespace collapsed.
func NormalizeKey(name string) string {
	key := strings.ToLower(name)
	key = punctuation.ReplaceAllString(key, "")
	key = whitespace.ReplaceAllString(key, " ")
	return strings.TrimSpace(key)
}

func bucketsFor(p *types.Profile, category types.Category) *[]types.CreditBucket {
	if category == types.CategoryExperience {
		return &p.VerifyCredits.Experience
	}
	return &p.VerifyCredits.Education
}

// FindBucket returns the bucket matching key (normalized before comparison), or nil.
func FindBucket(p *types.Profile, category types.Category, key string) *types.CreditBucket {
	key = NormalizeKey(key)
	buckets := bucketsFor(p, category)
	for i := range *buckets {
		if (*buckets)[i].Key == key {
			return &(*buckets)[i]
		}
	}
	return nil
}

// Debit moves one credit from available to used. The caller must hold whatever lock makes
// this atomic with the verification record insert.
func Debit(p *types.Profile, category types.Category, key string) (*types.CreditBucket, error) {
	bucket := FindBucket(p, category, key)
	if bucket == nil || bucket.Available <= 0 {
		return nil, &types.ErrInsufficientCredit{Category: category, Key: NormalizeKey(key)}
	}
	bucket.Available--
	bucket.Used++
	return bucket, nil
}

// CheckGrant validates a grant and returns the bucket key it targets.
func CheckGrant(name string, n int) (string, error) {
	key := NormalizeKey(name)
	if key == "" {
		return "", &types.ErrValidation{Field: "institute", Message: "name is empty after normalization"}
	}
	if n <= 0 {
		return "", &types.ErrValidation{Field: "amount", Message: "must be positive"}
	}
	return key, nil
}

// Grant adds n available credits to the bucket for name, creating it if needed.
func Grant(p *types.Profile, category types.Category, name string, n int) (*types.CreditBucket, error) {
	key, err := CheckGrant(name, n)
	if err != nil {
		return nil, err
	}
	if bucket := FindBucket(p, category, key); bucket != nil {
		bucket.Available += n
		return bucket, nil
	}
	buckets := bucketsFor(p, category)
	*buckets = append(*buckets, types.CreditBucket{
		Category:  category,
		Name:      strings.TrimSpace(name),
		Key:       key,
		Available: n,
	})
	return &(*buckets)[len(*buckets)-1], nil
}

// Summarize returns both categories with totals recomputed from the counters.
func Summarize(p *types.Profile) types.LedgerSummary {
	return types.LedgerSummary{
		Education:  summarizeCategory(p.VerifyCredits.Education),
		Experience: summarizeCategory(p.VerifyCredits.Experience),
	}
}

// SummarizeBuckets groups a flat bucket list by category.
func SummarizeBuckets(buckets []types.CreditBucket) types.LedgerSummary {
	var p types.Profile
	for _, b := range buckets {
		list := bucketsFor(&p, b.Category)
		*list = append(*list, b)
	}
	return Summarize(&p)
}

func summarizeCategory(buckets []types.CreditBucket) types.CategorySummary {
	out := types.CategorySummary{Buckets: make([]types.CreditBucket, 0, len(buckets))}
	for _, b := range buckets {
		out.Buckets = append(out.Buckets, b)
		out.Totals.Available += b.Available
		out.Totals.Used += b.Used
	}
	out.Totals.Total = out.Totals.Available + out.Totals.Used
	return out
}
