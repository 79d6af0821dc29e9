package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/veridate/veridate/internal/ledger"
	"github.com/veridate/veridate/internal/types"
)

const bucketColumns = `category, name, key, available, used`

// GrantCredits adds available credits to the user's bucket for name, creating it on first
// grant.
func (db *DB) GrantCredits(ctx context.Context, userID string, category types.Category, name string, amount int) (*types.CreditBucket, error) {
	key, err := ledger.CheckGrant(name, amount)
	if err != nil {
		return nil, err
	}

	b, err := scanBucket(db.pool.QueryRow(ctx,
		`INSERT INTO credit_buckets (user_id, category, key, name, available)
		 SELECT user_id, $2, $3, $4, $5 FROM profiles WHERE user_id = $1
		 ON CONFLICT (user_id, category, key) DO UPDATE SET
		     available = credit_buckets.available + EXCLUDED.available
		 RETURNING `+bucketColumns,
		userID, string(category), key, strings.TrimSpace(name), amount,
	))
	if err != nil {
		if isNoRows(err) {
			return nil, &types.ErrNotFound{Resource: "profile", ID: userID}
		}
		return nil, fmt.Errorf("failed to grant credits: %w", err)
	}
	return &b, nil
}

// ListCreditBuckets returns all of the user's buckets.
func (db *DB) ListCreditBuckets(ctx context.Context, userID string) ([]types.CreditBucket, error) {
	exists, err := db.profileExists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, &types.ErrNotFound{Resource: "profile", ID: userID}
	}
	return listBuckets(ctx, db.pool, userID)
}

func listBuckets(ctx context.Context, q querier, userID string) ([]types.CreditBucket, error) {
	rows, err := q.Query(ctx,
		`SELECT `+bucketColumns+` FROM credit_buckets WHERE user_id = $1 ORDER BY created_at, key`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list credit buckets: %w", err)
	}
	defer rows.Close()

	buckets := []types.CreditBucket{}
	for rows.Next() {
		b, err := scanBucket(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan credit bucket: %w", err)
		}
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}

func scanBucket(row pgx.Row) (types.CreditBucket, error) {
	var (
		b        types.CreditBucket
		category string
	)
	err := row.Scan(&category, &b.Name, &b.Key, &b.Available, &b.Used)
	b.Category = types.Category(category)
	return b, err
}
