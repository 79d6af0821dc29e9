package types

import "time"

// MaxCommentLength bounds verification comments.
const MaxCommentLength = 2000

// Verification is the durable record that one verifier rated one item exactly once.
type Verification struct {
	ID           string    `json:"id"`
	VerifierID   string    `json:"verifierId"`
	VerifierName string    `json:"verifierName,omitempty"`
	TargetUserID string    `json:"targetUserId"`
	ItemID       string    `json:"itemId"`
	Category     Category  `json:"category"`
	Rating       int       `json:"rating"`
	Comment      string    `json:"comment,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// UserSummary identifies a user in verification responses.
type UserSummary struct {
	UserID   string `json:"userId"`
	FullName string `json:"fullName"`
}

// VerifierSummary is the verifier's identity plus the post-debit bucket.
type VerifierSummary struct {
	UserSummary
	Bucket CreditBucket `json:"bucket"`
}

// VerificationOutcome is what a successful verification returns.
// Exactly one of Education and Experience is set, matching Record.Category.
type VerificationOutcome struct {
	Verifier   VerifierSummary `json:"verifier"`
	Target     UserSummary     `json:"target"`
	Education  *EducationItem  `json:"education,omitempty"`
	Experience *ExperienceItem `json:"experience,omitempty"`
	Record     Verification    `json:"-"`
}
