package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/wichananm65/medicare-backend/internal/config"
	"github.com/wichananm65/medicare-backend/internal/database"
	"github.com/wichananm65/medicare-backend/internal/healthcard"
	"github.com/wichananm65/medicare-backend/internal/mailer"
	"github.com/wichananm65/medicare-backend/internal/user"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "medicare",
		Short:         "Medicare health-card API server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
		logger.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return errors.New("DATABASE_URL is not set")
			}
			logger := newLogger(cfg)

			ctx := cmd.Context()
			db, err := database.Open(ctx, cfg.DBDriver, cfg.DatabaseURL, cfg.DBMaxOpenConns)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := database.Migrate(ctx, db); err != nil {
				return err
			}
			logger.Info().Msg("schema is up to date")
			return nil
		},
	}
}

func runServer(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	if cfg.JWTSecret == "" {
		secret, err := randomSecret()
		if err != nil {
			return err
		}
		cfg.JWTSecret = secret
		logger.Warn().Msg("JWT_SECRET not set, tokens are signed with a per-process key")
	}

	s, closeStores, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStores()

	mail := mailer.New(cfg.Mail, logger)
	if mail.Configured() {
		go mail.Verify(ctx)
	} else {
		logger.Warn().Msg("SMTP_USER or SMTP_PASS not set, credential emails are disabled")
	}

	app := newApp(cfg, logger, s, mail)

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr()).Str("env", cfg.Env).Msg("starting server")
		errCh <- app.Listen(cfg.Addr())
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	logger.Info().Msg("shutting down server")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

// stores bundles the repositories behind the services.
type stores struct {
	cards    healthcard.Repository
	accounts user.Repository
}

// openStores connects to Postgres and bootstraps the schema, or falls back to
// in-memory repositories when no DATABASE_URL is configured.
func openStores(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (stores, func(), error) {
	if cfg.DatabaseURL == "" {
		logger.Warn().Msg("DATABASE_URL not set, data is kept in memory")
		return stores{
			cards:    healthcard.NewInMemoryRepository(),
			accounts: user.NewInMemoryRepository(nil),
		}, func() {}, nil
	}

	db, err := database.Open(ctx, cfg.DBDriver, cfg.DatabaseURL, cfg.DBMaxOpenConns)
	if err != nil {
		return stores{}, nil, err
	}
	if err := database.Migrate(ctx, db); err != nil {
		db.Close()
		return stores{}, nil, err
	}
	logger.Info().Str("driver", cfg.DBDriver).Msg("connected to database")

	return stores{
		cards:    healthcard.NewPostgresRepository(db),
		accounts: user.NewPostgresRepository(db),
	}, func() { db.Close() }, nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.Env == config.EnvDevelopment {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return logger.Level(level)
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
