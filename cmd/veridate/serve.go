package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/veridate/veridate/internal/config"
	"github.com/veridate/veridate/internal/logger"
	"github.com/veridate/veridate/internal/notify"
	"github.com/veridate/veridate/internal/server"
	"github.com/veridate/veridate/internal/server/ratelimit"
	"github.com/veridate/veridate/internal/store"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes the verification, credit ledger, notification and profile endpoints.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Address to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Addr = serveAddr
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync()

	jwtCfg, err := config.NewJWTConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.Store, err)
	}
	defer st.Close()

	hub := notify.NewHub()

	// With Redis, every instance learns about notifications through the bus; without it the
	// emitter feeds the local hub directly.
	var (
		bus *notify.RedisBus
		pub notify.Publisher = hub
	)
	if cfg.RedisAddr != "" {
		bus, err = notify.NewRedisBus(ctx, cfg.RedisAddr, cfg.RedisChannel, log)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer bus.Close()
		pub = bus
	}

	emitter := notify.NewEmitter(st, pub, log, cfg.NotifyQueueSize)
	defer emitter.Close()

	limiter := ratelimit.NewLimiter(ratelimit.LoadConfig())

	srv, err := server.New(server.Options{
		Addr:            cfg.Addr,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, server.Deps{
		Store:   st,
		Emitter: emitter,
		Hub:     hub,
		Bus:     bus,
		JWT:     server.NewJWTService(jwtCfg),
		Limiter: limiter,
		Log:     log,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	log.Info("starting veridate", "addr", cfg.Addr, "store", cfg.Store, "redis", cfg.RedisAddr != "")
	return srv.Run(ctx)
}
