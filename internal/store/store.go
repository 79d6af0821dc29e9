// Package store selects the persistence backend used by the server and the CLI.
package store

import (
	"context"
	"fmt"

	"github.com/veridate/veridate/internal/config"
	"github.com/veridate/veridate/internal/db"
	"github.com/veridate/veridate/internal/memstore"
	"github.com/veridate/veridate/internal/notify"
	"github.com/veridate/veridate/internal/types"
	"github.com/veridate/veridate/internal/verification"
)

// Store is everything the API needs from persistence.
type Store interface {
	verification.Store
	notify.Store

	GetProfile(ctx context.Context, userID string) (*types.Profile, error)
	UpsertProfile(ctx context.Context, userID, fullName, headline string) (*types.Profile, error)
	AddEducation(ctx context.Context, userID string, item *types.EducationItem) error
	AddExperience(ctx context.Context, userID string, item *types.ExperienceItem) error
	// SetLineManager returns the updated item and the manager it replaced ("" if none).
	SetLineManager(ctx context.Context, userID, experienceID, managerID string) (*types.ExperienceItem, string, error)
	GrantCredits(ctx context.Context, userID string, category types.Category, name string, amount int) (*types.CreditBucket, error)
	ListCreditBuckets(ctx context.Context, userID string) ([]types.CreditBucket, error)
	Close()
}

var (
	_ Store = (*db.DB)(nil)
	_ Store = (*memstore.Store)(nil)
)

// Open returns the backend named by cfg.Store. The postgres backend is migrated before use.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Store {
	case config.StoreMemory:
		return memstore.New(), nil
	case config.StorePostgres:
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(ctx); err != nil {
			database.Close()
			return nil, err
		}
		return database, nil
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}
