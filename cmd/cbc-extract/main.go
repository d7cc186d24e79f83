package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/cbclab/cbclab/internal/config"
	"github.com/cbclab/cbclab/internal/domain/extraction"
	"github.com/cbclab/cbclab/internal/platform/auth"
	"github.com/cbclab/cbclab/internal/platform/db"
	"github.com/cbclab/cbclab/internal/platform/fhir"
	"github.com/cbclab/cbclab/internal/platform/middleware"
	"github.com/cbclab/cbclab/internal/platform/ocr"
)

const version = "0.1.0"

// publicPaths are served without a bearer token.
var publicPaths = []string{"/health", "/health/db"}

func main() {
	rootCmd := &cobra.Command{
		Use:          "cbc-extract",
		Short:        "Complete blood count extraction from lab reports",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(extractCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the extraction API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func newLogger(cfg *config.Config, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if cfg.IsDev() {
		out = zerolog.ConsoleWriter{Out: out}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// newService wires the extraction pipeline. repo may be nil.
func newService(cfg *config.Config, repo extraction.ExtractionRepository, logger zerolog.Logger) *extraction.Service {
	engine := ocr.NewTesseract(ocr.Config{Tesseract: cfg.TesseractPath, Lang: cfg.TesseractLang})
	if !engine.Available() {
		logger.Warn().Str("tesseract", cfg.TesseractPath).Msg("OCR engine not found, image extraction disabled")
	}
	return extraction.NewService(extraction.Config{
		Tuning:  cfg.Tuning(),
		Image:   extraction.ImageConfig{Workers: cfg.OCRWorkers, MinTextLen: cfg.OCRMinTextLen},
		Timeout: cfg.ExtractTimeout,
	}, engine, repo, logger)
}

// newServer builds the echo instance with middleware and routes. pool may be nil.
func newServer(cfg *config.Config, svc *extraction.Service, pool *pgxpool.Pool, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders(cfg.TLSEnabled))
	e.Use(middleware.BodyLimit(cfg.BodyLimit, cfg.MaxUploadSize))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	if cfg.ResolvedAuthMode() == "development" {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			SigningKey: []byte(cfg.AuthSigningKey),
			Skipper:    auth.PublicPaths(publicPaths...),
		}))
	}

	apiV1 := e.Group("/api/v1")
	fhirGroup := e.Group("/fhir", fhir.ContentNegotiationMiddleware())

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))
	fhirGroup.Use(middleware.RateLimit(rateLimitCfg))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	extraction.NewHandler(svc).RegisterRoutes(apiV1, fhirGroup)
	return e
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg, os.Stdout)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	if cfg.ResolvedAuthMode() == "development" {
		logger.Warn().Msg("development auth is active: unauthenticated requests get admin access")
	}

	ctx := context.Background()
	var (
		pool *pgxpool.Pool
		repo extraction.ExtractionRepository
	)
	if cfg.HasExtractionLog() {
		pool, err = db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		repo = extraction.NewExtractionRepoPG(pool)
		logger.Info().Msg("connected to database, extraction log enabled")
	}

	e := newServer(cfg, newService(cfg, repo, logger), pool, logger)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Bool("tls", cfg.TLSEnabled).Msg("starting server")
		var err error
		if cfg.TLSEnabled {
			err = e.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = e.Start(addr)
		}
		if err != nil && err != http.ErrServerClosed {
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
