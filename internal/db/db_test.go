package db

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridate/veridate/internal/types"
)

func TestSchemaDefinesTables(t *testing.T) {
	for _, table := range []string{
		"profiles", "education_items", "experience_items",
		"credit_buckets", "verifications", "notifications",
	} {
		assert.Contains(t, schemaSQL, "CREATE TABLE IF NOT EXISTS "+table+" ")
	}
	assert.Contains(t, schemaSQL, "UNIQUE (verifier_id, item_id)")
	assert.Contains(t, schemaSQL, "CHECK (available >= 0)")
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.True(t, isUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(assert.AnError))
	assert.False(t, isUniqueViolation(nil))
}

func TestIsNoRows(t *testing.T) {
	assert.True(t, isNoRows(pgx.ErrNoRows))
	assert.True(t, isNoRows(fmt.Errorf("scan notification: %w", pgx.ErrNoRows)))
	assert.False(t, isNoRows(assert.AnError))
	assert.False(t, isNoRows(nil))
}

func TestNullIfEmpty(t *testing.T) {
	assert.Nil(t, nullIfEmpty(""))
	require.NotNil(t, nullIfEmpty("x"))
	assert.Equal(t, "x", *nullIfEmpty("x"))
	assert.Equal(t, "", derefString(nil))
}

func TestItemTableCoversCategories(t *testing.T) {
	for _, c := range []types.Category{types.CategoryEducation, types.CategoryExperience} {
		meta, ok := itemTable[c]
		require.True(t, ok, c)
		assert.Contains(t, schemaSQL, meta.table)
		assert.Contains(t, schemaSQL, meta.keyCol)
	}
}
