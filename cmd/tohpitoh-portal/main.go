package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/M1-Gl-UY1/TOPITO/internal/config"
	"github.com/M1-Gl-UY1/TOPITO/internal/platform/db"
	"github.com/M1-Gl-UY1/TOPITO/internal/platform/middleware"
	"github.com/M1-Gl-UY1/TOPITO/internal/server"
	"github.com/M1-Gl-UY1/TOPITO/internal/session"
	"github.com/M1-Gl-UY1/TOPITO/internal/upstream"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "tohpitoh-portal",
		Short: "TOHPITOH multi-role health portal gateway",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the portal gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the gateway version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	// Session state store: Postgres when configured, JSON file otherwise.
	ctx := context.Background()
	var store session.Store
	if cfg.UsePostgresStore() {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()

		pgStore := session.NewPGStore(pool)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to prepare session table")
		}
		store = pgStore
		logger.Info().Msg("session state in postgres")
	} else {
		fileStore, err := session.NewFileStore(cfg.StateFile)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to open state file")
		}
		store = fileStore
		logger.Info().Str("path", cfg.StateFile).Msg("session state in file")
	}

	// Upstream client and resolver
	api := upstream.NewClient(cfg.UpstreamBaseURL)
	resolver := session.NewResolver(api, store, logger)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
	}))

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})

	// Portal routes
	handler := server.NewHandler(resolver, store, api, logger, cfg.CookieName, cfg.CookieSecure)
	portal := e.Group("/portal", handler.SessionCookie())
	handler.RegisterRoutes(portal)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
