package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/veridate/veridate/internal/types"
)

// GetProfile loads a profile with its items, their verification records and the credit
// ledger. Returns nil, nil when the profile does not exist.
func (db *DB) GetProfile(ctx context.Context, userID string) (*types.Profile, error) {
	var p types.Profile
	err := db.pool.QueryRow(ctx,
		`SELECT user_id, full_name, headline, created_at, updated_at
		 FROM profiles WHERE user_id = $1`,
		userID,
	).Scan(&p.UserID, &p.FullName, &p.Headline, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	if p.Education, err = listEducation(ctx, db.pool, userID); err != nil {
		return nil, err
	}
	if p.Experience, err = listExperience(ctx, db.pool, userID); err != nil {
		return nil, err
	}

	records, err := listVerifications(ctx, db.pool, userID)
	if err != nil {
		return nil, err
	}
	for i := range p.Education {
		p.Education[i].Verifications = appendRecords(p.Education[i].Verifications, records[p.Education[i].ID])
	}
	for i := range p.Experience {
		p.Experience[i].Verifications = appendRecords(p.Experience[i].Verifications, records[p.Experience[i].ID])
	}

	buckets, err := listBuckets(ctx, db.pool, userID)
	if err != nil {
		return nil, err
	}
	p.VerifyCredits = types.VerifyCredits{
		Education:  []types.CreditBucket{},
		Experience: []types.CreditBucket{},
	}
	for _, b := range buckets {
		if b.Category == types.CategoryExperience {
			p.VerifyCredits.Experience = append(p.VerifyCredits.Experience, b)
		} else {
			p.VerifyCredits.Education = append(p.VerifyCredits.Education, b)
		}
	}
	return &p, nil
}

// UpsertProfile creates the profile or updates its personal info.
func (db *DB) UpsertProfile(ctx context.Context, userID, fullName, headline string) (*types.Profile, error) {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO profiles (user_id, full_name, headline)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id) DO UPDATE SET
		     full_name = $2,
		     headline = $3,
		     updated_at = NOW()`,
		userID, fullName, headline,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert profile: %w", err)
	}
	return db.GetProfile(ctx, userID)
}

// AddEducation appends an education item to the profile.
func (db *DB) AddEducation(ctx context.Context, userID string, item *types.EducationItem) error {
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	tag, err := db.pool.Exec(ctx,
		`INSERT INTO education_items (id, user_id, institute, institute_key, degree, field_of_study,
		                              start_date, end_date, created_at)
		 SELECT $1, user_id, $3, $4, $5, $6, $7, $8, $9 FROM profiles WHERE user_id = $2`,
		item.ID, userID, item.Institute, item.InstituteKey, item.Degree, item.FieldOfStudy,
		item.StartDate.TimePtr(), item.EndDate.TimePtr(), item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to add education: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &types.ErrNotFound{Resource: "profile", ID: userID}
	}
	return db.touchProfile(ctx, userID)
}

// AddExperience appends an experience item to the profile.
func (db *DB) AddExperience(ctx context.Context, userID string, item *types.ExperienceItem) error {
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	tag, err := db.pool.Exec(ctx,
		`INSERT INTO experience_items (id, user_id, company, company_key, role_title, line_manager_id,
		                               start_date, end_date, created_at)
		 SELECT $1, user_id, $3, $4, $5, $6, $7, $8, $9 FROM profiles WHERE user_id = $2`,
		item.ID, userID, item.Company, item.CompanyKey, item.RoleTitle, nullIfEmpty(item.LineManagerID),
		item.StartDate.TimePtr(), item.EndDate.TimePtr(), item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to add experience: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &types.ErrNotFound{Resource: "profile", ID: userID}
	}
	return db.touchProfile(ctx, userID)
}

// SetLineManager records the line manager on one of the user's experience items and returns
// the manager it replaced. The old value is read under the row lock taken by the update.
func (db *DB) SetLineManager(ctx context.Context, userID, experienceID, managerID string) (*types.ExperienceItem, string, error) {
	var previous *string
	err := db.pool.QueryRow(ctx,
		`UPDATE experience_items e SET line_manager_id = $3
		 FROM (SELECT id, line_manager_id FROM experience_items
		       WHERE id = $2 AND user_id = $1 FOR UPDATE) old
		 WHERE e.id = old.id
		 RETURNING old.line_manager_id`,
		userID, experienceID, managerID,
	).Scan(&previous)
	if err != nil {
		if !isNoRows(err) {
			return nil, "", fmt.Errorf("failed to set line manager: %w", err)
		}
		exists, err := db.profileExists(ctx, userID)
		if err != nil {
			return nil, "", err
		}
		if !exists {
			return nil, "", &types.ErrNotFound{Resource: "profile", ID: userID}
		}
		return nil, "", &types.ErrNotFound{Resource: "experience", ID: experienceID}
	}

	item, err := getExperience(ctx, db.pool, experienceID)
	if err != nil {
		return nil, "", err
	}
	return item, derefString(previous), nil
}

func (db *DB) touchProfile(ctx context.Context, userID string) error {
	if _, err := db.pool.Exec(ctx, `UPDATE profiles SET updated_at = NOW() WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to touch profile: %w", err)
	}
	return nil
}

func (db *DB) profileExists(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := db.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM profiles WHERE user_id = $1)`, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check profile: %w", err)
	}
	return exists, nil
}

const educationColumns = `id, institute, institute_key, degree, field_of_study, start_date, end_date,
	rating_count, rating_sum, created_at`

const experienceColumns = `id, company, company_key, role_title, line_manager_id, start_date, end_date,
	rating_count, rating_sum, created_at`

func scanEducation(row pgx.Row) (types.EducationItem, error) {
	var (
		item       types.EducationItem
		start, end *time.Time
	)
	err := row.Scan(&item.ID, &item.Institute, &item.InstituteKey, &item.Degree, &item.FieldOfStudy,
		&start, &end, &item.Rating.Count, &item.Rating.Sum, &item.CreatedAt)
	item.StartDate = types.DateFromPtr(start)
	item.EndDate = types.DateFromPtr(end)
	item.Verifications = []types.Verification{}
	return item, err
}

func scanExperience(row pgx.Row) (types.ExperienceItem, error) {
	var (
		item       types.ExperienceItem
		manager    *string
		start, end *time.Time
	)
	err := row.Scan(&item.ID, &item.Company, &item.CompanyKey, &item.RoleTitle, &manager,
		&start, &end, &item.Rating.Count, &item.Rating.Sum, &item.CreatedAt)
	item.LineManagerID = derefString(manager)
	item.StartDate = types.DateFromPtr(start)
	item.EndDate = types.DateFromPtr(end)
	item.Verifications = []types.Verification{}
	return item, err
}

func listEducation(ctx context.Context, q querier, userID string) ([]types.EducationItem, error) {
	rows, err := q.Query(ctx,
		`SELECT `+educationColumns+` FROM education_items WHERE user_id = $1 ORDER BY created_at, id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list education: %w", err)
	}
	defer rows.Close()

	items := []types.EducationItem{}
	for rows.Next() {
		item, err := scanEducation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan education: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func listExperience(ctx context.Context, q querier, userID string) ([]types.ExperienceItem, error) {
	rows, err := q.Query(ctx,
		`SELECT `+experienceColumns+` FROM experience_items WHERE user_id = $1 ORDER BY created_at, id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list experience: %w", err)
	}
	defer rows.Close()

	items := []types.ExperienceItem{}
	for rows.Next() {
		item, err := scanExperience(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan experience: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func getExperience(ctx context.Context, q querier, id string) (*types.ExperienceItem, error) {
	item, err := scanExperience(q.QueryRow(ctx,
		`SELECT `+experienceColumns+` FROM experience_items WHERE id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, &types.ErrNotFound{Resource: "experience", ID: id}
		}
		return nil, fmt.Errorf("failed to get experience: %w", err)
	}
	return &item, nil
}

func appendRecords(dst, src []types.Verification) []types.Verification {
	if dst == nil {
		dst = []types.Verification{}
	}
	return append(dst, src...)
}
