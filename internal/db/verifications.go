package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/veridate/veridate/internal/types"
)

// itemTable names the item table and bucket key column per category.
var itemTable = map[types.Category]struct {
	table  string
	keyCol string
}{
	types.CategoryEducation:  {"education_items", "institute_key"},
	types.CategoryExperience: {"experience_items", "company_key"},
}

// ApplyVerification performs the checks and writes of one verification in a transaction:
// target and item must exist, the pair must be new, and the verifier's bucket must have a
// credit. The debit is a conditional update and the pair is guarded by a unique constraint,
// so concurrent calls cannot double-spend or double-record.
func (db *DB) ApplyVerification(ctx context.Context, v types.Verification) (*types.VerificationOutcome, error) {
	meta, ok := itemTable[v.Category]
	if !ok {
		return nil, &types.ErrValidation{Field: "category", Message: "unknown category"}
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var targetName string
	err = tx.QueryRow(ctx, `SELECT full_name FROM profiles WHERE user_id = $1`, v.TargetUserID).Scan(&targetName)
	if err != nil {
		if isNoRows(err) {
			return nil, &types.ErrNotFound{Resource: "profile", ID: v.TargetUserID}
		}
		return nil, fmt.Errorf("failed to load target profile: %w", err)
	}

	// Lock the item row so aggregate updates on it serialize.
	var key string
	err = tx.QueryRow(ctx,
		`SELECT `+meta.keyCol+` FROM `+meta.table+` WHERE id = $1 AND user_id = $2 FOR UPDATE`,
		v.ItemID, v.TargetUserID,
	).Scan(&key)
	if err != nil {
		if isNoRows(err) {
			return nil, &types.ErrNotFound{Resource: string(v.Category), ID: v.ItemID}
		}
		return nil, fmt.Errorf("failed to load %s item: %w", v.Category, err)
	}

	var duplicate bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM verifications WHERE verifier_id = $1 AND item_id = $2)`,
		v.VerifierID, v.ItemID,
	).Scan(&duplicate)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing verification: %w", err)
	}
	if duplicate {
		return nil, &types.ErrDuplicateVerification{VerifierID: v.VerifierID, ItemID: v.ItemID}
	}

	var verifierName string
	err = tx.QueryRow(ctx, `SELECT full_name FROM profiles WHERE user_id = $1`, v.VerifierID).Scan(&verifierName)
	if err != nil {
		if isNoRows(err) {
			return nil, &types.ErrInsufficientCredit{Category: v.Category, Key: key}
		}
		return nil, fmt.Errorf("failed to load verifier profile: %w", err)
	}

	bucket, err := scanBucket(tx.QueryRow(ctx,
		`UPDATE credit_buckets SET available = available - 1, used = used + 1
		 WHERE user_id = $1 AND category = $2 AND key = $3 AND available > 0
		 RETURNING `+bucketColumns,
		v.VerifierID, string(v.Category), key,
	))
	if err != nil {
		if isNoRows(err) {
			return nil, &types.ErrInsufficientCredit{Category: v.Category, Key: key}
		}
		return nil, fmt.Errorf("failed to debit credit: %w", err)
	}

	v.VerifierName = verifierName
	_, err = tx.Exec(ctx,
		`INSERT INTO verifications (id, verifier_id, verifier_name, target_user_id, item_id, category,
		                            rating, comment, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		v.ID, v.VerifierID, v.VerifierName, v.TargetUserID, v.ItemID, string(v.Category),
		v.Rating, v.Comment, v.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, &types.ErrDuplicateVerification{VerifierID: v.VerifierID, ItemID: v.ItemID}
		}
		return nil, fmt.Errorf("failed to insert verification: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE `+meta.table+` SET rating_count = rating_count + 1, rating_sum = rating_sum + $2 WHERE id = $1`,
		v.ItemID, v.Rating,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update rating aggregate: %w", err)
	}

	out := &types.VerificationOutcome{
		Verifier: types.VerifierSummary{
			UserSummary: types.UserSummary{UserID: v.VerifierID, FullName: verifierName},
			Bucket:      bucket,
		},
		Target: types.UserSummary{UserID: v.TargetUserID, FullName: targetName},
		Record: v,
	}

	records, err := itemVerifications(ctx, tx, v.ItemID)
	if err != nil {
		return nil, err
	}
	if v.Category == types.CategoryEducation {
		item, err := scanEducation(tx.QueryRow(ctx,
			`SELECT `+educationColumns+` FROM education_items WHERE id = $1`, v.ItemID))
		if err != nil {
			return nil, fmt.Errorf("failed to reload education item: %w", err)
		}
		item.Verifications = records
		out.Education = &item
	} else {
		item, err := getExperience(ctx, tx, v.ItemID)
		if err != nil {
			return nil, err
		}
		item.Verifications = records
		out.Experience = item
	}

	if err := tx.Commit(ctx); err != nil {
		if isUniqueViolation(err) {
			return nil, &types.ErrDuplicateVerification{VerifierID: v.VerifierID, ItemID: v.ItemID}
		}
		return nil, fmt.Errorf("failed to commit verification: %w", err)
	}
	return out, nil
}

const verificationColumns = `id, verifier_id, verifier_name, target_user_id, item_id, category,
	rating, comment, created_at`

func scanVerification(row pgx.Row) (types.Verification, error) {
	var (
		v        types.Verification
		category string
	)
	err := row.Scan(&v.ID, &v.VerifierID, &v.VerifierName, &v.TargetUserID, &v.ItemID, &category,
		&v.Rating, &v.Comment, &v.CreatedAt)
	v.Category = types.Category(category)
	return v, err
}

func itemVerifications(ctx context.Context, q querier, itemID string) ([]types.Verification, error) {
	rows, err := q.Query(ctx,
		`SELECT `+verificationColumns+` FROM verifications WHERE item_id = $1 ORDER BY created_at, id`,
		itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list verifications: %w", err)
	}
	defer rows.Close()

	out := []types.Verification{}
	for rows.Next() {
		v, err := scanVerification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan verification: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// listVerifications returns every record on the user's items, keyed by item ID.
func listVerifications(ctx context.Context, q querier, targetUserID string) (map[string][]types.Verification, error) {
	rows, err := q.Query(ctx,
		`SELECT `+verificationColumns+` FROM verifications WHERE target_user_id = $1 ORDER BY created_at, id`,
		targetUserID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list verifications: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]types.Verification)
	for rows.Next() {
		v, err := scanVerification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan verification: %w", err)
		}
		out[v.ItemID] = append(out[v.ItemID], v)
	}
	return out, rows.Err()
}
