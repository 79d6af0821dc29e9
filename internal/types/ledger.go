package types

import "encoding/json"

// CreditBucket tracks how many verifications a user may still perform against entries tied
// to one institute (education) or company (experience). Total is derived, never stored.
type CreditBucket struct {
	Category  Category `json:"-"`
	Name      string   `json:"-"`
	Key       string   `json:"-"`
	Available int      `json:"available"`
	Used      int      `json:"used"`
}

// Total returns Available + Used.
func (b CreditBucket) Total() int {
	return b.Available + b.Used
}

// MarshalJSON names the identity fields after the bucket's category
// (institute/instituteKey or company/companyKey).
func (b CreditBucket) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"available": b.Available,
		"used":      b.Used,
		"total":     b.Total(),
	}
	if b.Category == CategoryExperience {
		out["company"] = b.Name
		out["companyKey"] = b.Key
	} else {
		out["institute"] = b.Name
		out["instituteKey"] = b.Key
	}
	return json.Marshal(out)
}

// VerifyCredits holds a user's buckets per category.
type VerifyCredits struct {
	Education  []CreditBucket `json:"education"`
	Experience []CreditBucket `json:"experience"`
}

// Buckets returns the slice for a category.
func (v *VerifyCredits) Buckets(c Category) []CreditBucket {
	if c == CategoryExperience {
		return v.Experience
	}
	return v.Education
}

// Totals is the derived sum over a set of buckets.
type Totals struct {
	Available int `json:"available"`
	Used      int `json:"used"`
	Total     int `json:"total"`
}

// CategorySummary is the ledger view for one category.
type CategorySummary struct {
	Buckets []CreditBucket `json:"buckets"`
	Totals  Totals         `json:"totals"`
}

// LedgerSummary is the ledger view for both categories.
type LedgerSummary struct {
	Education  CategorySummary `json:"education"`
	Experience CategorySummary `json:"experience"`
}
