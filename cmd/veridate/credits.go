package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/veridate/veridate/internal/config"
	"github.com/veridate/veridate/internal/ids"
	"github.com/veridate/veridate/internal/ledger"
	"github.com/veridate/veridate/internal/logger"
	"github.com/veridate/veridate/internal/notify"
	"github.com/veridate/veridate/internal/store"
	"github.com/veridate/veridate/internal/types"
)

var (
	creditsUser     string
	creditsCategory string
	creditsName     string
	creditsAmount   int
)

var creditsCmd = &cobra.Command{
	Use:   "credits",
	Short: "Inspect and grant verification credits",
}

var creditsGrantCmd = &cobra.Command{
	Use:   "grant",
	Short: "Grant verification credits to a user",
	Long: `Add credits to the user's bucket for an institute (education) or company (experience).
The bucket is created on first grant. The user is notified.`,
	RunE: runCreditsGrant,
}

var creditsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print a user's credit ledger",
	RunE:  runCreditsShow,
}

func init() {
	creditsGrantCmd.Flags().StringVar(&creditsUser, "user", "", "User ID (24 hex characters)")
	creditsGrantCmd.Flags().StringVar(&creditsCategory, "category", "", "education or experience")
	creditsGrantCmd.Flags().StringVar(&creditsName, "name", "", "Institute or company name")
	creditsGrantCmd.Flags().IntVar(&creditsAmount, "amount", 1, "Number of credits to grant")
	_ = creditsGrantCmd.MarkFlagRequired("user")
	_ = creditsGrantCmd.MarkFlagRequired("category")
	_ = creditsGrantCmd.MarkFlagRequired("name")

	creditsShowCmd.Flags().StringVar(&creditsUser, "user", "", "User ID (24 hex characters)")
	_ = creditsShowCmd.MarkFlagRequired("user")

	creditsCmd.AddCommand(creditsGrantCmd, creditsShowCmd)
	rootCmd.AddCommand(creditsCmd)
}

// openAdminStore opens the configured store. Credits only persist in Postgres.
func openAdminStore(ctx context.Context) (*config.Config, store.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if cfg.Store == config.StoreMemory {
		return nil, nil, fmt.Errorf("credits commands need the %s store", config.StorePostgres)
	}
	st, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, st, nil
}

func parseUserFlag() (string, error) {
	if !ids.Valid(creditsUser) {
		return "", &types.ErrInvalidIdentifier{Field: "user id", Value: creditsUser}
	}
	return strings.ToLower(creditsUser), nil
}

func runCreditsGrant(cmd *cobra.Command, _ []string) error {
	userID, err := parseUserFlag()
	if err != nil {
		return err
	}
	category, err := types.ParseCategory(creditsCategory)
	if err != nil {
		return err
	}
	if _, err := ledger.CheckGrant(creditsName, creditsAmount); err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, st, err := openAdminStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync()

	var pub notify.Publisher
	if cfg.RedisAddr != "" {
		bus, err := notify.NewRedisBus(ctx, cfg.RedisAddr, cfg.RedisChannel, log)
		if err != nil {
			log.Warn("redis unavailable, notification will not be pushed live", "error", err)
		} else {
			defer bus.Close()
			pub = bus
		}
	}
	emitter := notify.NewEmitter(st, pub, log, 1)

	bucket, err := st.GrantCredits(ctx, userID, category, strings.TrimSpace(creditsName), creditsAmount)
	if err != nil {
		emitter.Close()
		return err
	}

	emitter.Emit(ctx, userID, types.NotificationCreditsGranted,
		fmt.Sprintf("You received %d verification credit(s) for %s", creditsAmount, bucket.Name),
		map[string]any{
			"category":  string(category),
			"institute": bucket.Name,
			"amount":    creditsAmount,
		},
	)
	// Close waits for the notification to be written.
	emitter.Close()

	fmt.Fprintf(cmd.OutOrStdout(), "granted %d %s credit(s) for %q: available=%d used=%d total=%d\n",
		creditsAmount, category, bucket.Name, bucket.Available, bucket.Used, bucket.Total())
	return nil
}

func runCreditsShow(cmd *cobra.Command, _ []string) error {
	userID, err := parseUserFlag()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	_, st, err := openAdminStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	buckets, err := st.ListCreditBuckets(ctx, userID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(ledger.SummarizeBuckets(buckets))
}
