package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/duochat/duochat/internal/api"
	"github.com/duochat/duochat/internal/auth"
	"github.com/duochat/duochat/internal/config"
	"github.com/duochat/duochat/internal/logging"
	"github.com/duochat/duochat/internal/relay"
	"github.com/duochat/duochat/internal/store"
)

const (
	shutdownTimeout = 15 * time.Second
	hubDrainTimeout = 10 * time.Second
)

var version = "dev"

var cfg = config.Default()

func flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "listen address for the HTTP API",
			Value:       cfg.APIAddr,
			EnvVars:     []string{"PORT"},
			Destination: &cfg.APIAddr,
		},
		&cli.StringFlag{
			Name:        "ws-addr",
			Usage:       "listen address for the relay server",
			Value:       cfg.WSAddr,
			EnvVars:     []string{"WS_PORT"},
			Destination: &cfg.WSAddr,
		},
		&cli.StringFlag{
			Name:        "database-url",
			Usage:       "PostgreSQL connection string",
			Value:       cfg.DatabaseURL,
			EnvVars:     []string{"DATABASE_URL"},
			Destination: &cfg.DatabaseURL,
		},
		&cli.StringFlag{
			Name:        "jwt-secret",
			Usage:       "HMAC secret for bearer tokens",
			Value:       cfg.JWTSecret,
			EnvVars:     []string{"JWT_SECRET"},
			Destination: &cfg.JWTSecret,
		},
		&cli.StringFlag{
			Name:        "allowed-origins",
			Usage:       "comma-separated origins allowed to connect to the relay",
			Value:       cfg.AllowedOrigins,
			EnvVars:     []string{"ALLOWED_ORIGINS"},
			Destination: &cfg.AllowedOrigins,
		},
		&cli.StringFlag{
			Name:        "migrations-dir",
			Usage:       "directory containing SQL migrations",
			Value:       cfg.MigrationsDir,
			EnvVars:     []string{"MIGRATIONS_DIR"},
			Destination: &cfg.MigrationsDir,
		},
		&cli.StringFlag{
			Name:        "google-client-id",
			Usage:       "OAuth client id for Google sign-in (optional)",
			EnvVars:     []string{"GOOGLE_CLIENT_ID"},
			Destination: &cfg.GoogleClientID,
		},
		&cli.BoolFlag{
			Name:        "skip-migrations",
			Usage:       "do not run database migrations at startup",
			EnvVars:     []string{"SKIP_MIGRATIONS"},
			Destination: &cfg.SkipMigrations,
		},
	}
}

func main() {
	logger := logging.New("duochat", version)
	config.LoadDotenv(logger)

	app := &cli.App{
		Name:                 "duochat",
		Usage:                "two-party chat server with a real-time presence and message relay",
		Version:              version,
		EnableBashCompletion: true,
		Flags:                flags(),
		Action: func(*cli.Context) error {
			return run(logger)
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Fatal().Err(err).Msg("exiting")
	}
}

func run(logger zerolog.Logger) error {
	logger.Info().Str("commit", logging.CommitHash()).Msg("starting duochat")

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if !cfg.SkipMigrations {
		if err := store.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
			return err
		}
		logger.Info().Msg("database migrations applied")
	}

	issuer := auth.NewIssuer(cfg.JWTSecret)

	// A nil interface keeps POST /api/auth/google answering "not configured".
	var google api.GoogleVerifier
	if cfg.GoogleClientID != "" {
		google = auth.NewGoogleVerifier(cfg.GoogleClientID)
		logger.Info().Msg("google sign-in enabled")
	}

	handlers := api.NewHandlers(
		store.NewUserStore(db),
		store.NewSessionStore(db),
		store.NewMessageStore(db),
		issuer,
		google,
		logger,
	)

	relay.SetLogger(logger)
	relayCfg := relay.NewConfigFromEnv()
	relayCfg.Addr = cfg.WSAddr
	relayCfg.AllowedOrigins = splitOrigins(cfg.AllowedOrigins)
	relay.SetConfig(relayCfg)

	hub := relay.NewHub(logger)
	go hub.Run()

	apiServer := &http.Server{
		Addr:         cfg.APIAddr,
		Handler:      api.NewRouter(handlers),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	// No read/write timeouts here: the http.Server deadlines would outlive
	// the hijack and kill long-lived relay connections.
	wsServer := &http.Server{
		Addr:        relayCfg.Addr,
		Handler:     relay.SetupRoutes(hub),
		IdleTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info().Str("addr", apiServer.Addr).Msg("API server listening")
		errCh <- apiServer.ListenAndServe()
	}()
	go func() {
		logger.Info().Str("addr", wsServer.Addr).Msg("relay server listening")
		errCh <- wsServer.ListenAndServe()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	if err := hub.Shutdown(hubDrainTimeout); err != nil {
		logger.Warn().Err(err).Msg("hub shutdown incomplete")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := wsServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("relay server shutdown")
	}
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("API server shutdown")
	}

	logger.Info().Msg("shutdown complete")
	return nil
}

func splitOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
