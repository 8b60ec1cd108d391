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

	"github.com/mediflow/mediflow/internal/config"
	"github.com/mediflow/mediflow/internal/domain/appointment"
	"github.com/mediflow/mediflow/internal/domain/directory"
	"github.com/mediflow/mediflow/internal/domain/identity"
	"github.com/mediflow/mediflow/internal/domain/records"
	"github.com/mediflow/mediflow/internal/platform/apperr"
	"github.com/mediflow/mediflow/internal/platform/auth"
	"github.com/mediflow/mediflow/internal/platform/db"
	"github.com/mediflow/mediflow/internal/platform/middleware"
	"github.com/mediflow/mediflow/internal/platform/notification"
	"github.com/mediflow/mediflow/internal/platform/telemetry"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "mediflow-server",
		Short: "Hospital appointment API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
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
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apperr.HTTPErrorHandler(logger)

	provider := telemetry.NewProvider()

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}))
	e.Use(provider.Middleware())

	// Sessions
	secret := cfg.JWTSecret
	if secret == "" {
		// Development only; Validate refuses this outside development.
		secret = "dev-secret"
		logger.Warn().Msg("JWT_SECRET not set, using development secret")
	}
	issuer := auth.NewTokenIssuer(secret, time.Duration(cfg.TokenTTLMinutes)*time.Minute)
	session := auth.Middleware(issuer)

	// Notifications
	templates := notification.NewTemplateEngine()
	var sender notification.EmailSender
	if cfg.SMTPAddr != "" {
		sender = &notification.SMTPSender{Addr: cfg.SMTPAddr, From: cfg.SMTPFrom}
	} else {
		sender = &notification.LogSender{Logger: logger}
	}
	notifier := notification.NewNotifier(sender, templates, logger)

	// Repositories
	userRepo := identity.NewRepoPG(pool)
	doctorRepo := directory.NewRepoPG(pool)
	apptRepo := appointment.NewRepoPG(pool)
	recordRepo := records.NewRepoPG(pool)

	// Services
	identitySvc := identity.NewService(userRepo, issuer, notifier)
	directorySvc := directory.NewService(doctorRepo, userRepo, func(ctx context.Context, fn func(ctx context.Context) error) error {
		return db.WithTx(ctx, pool, fn)
	})
	appointmentSvc := appointment.NewService(apptRepo, doctorRepo, userRepo, notifier, provider)
	recordsSvc := records.NewService(recordRepo, doctorRepo, userRepo)

	// Route groups per role
	authGroup := e.Group("/auth")
	patient := e.Group("/patient", session, auth.RequireRole(auth.RolePatient))
	doctor := e.Group("/doctor", session, auth.RequireRole(auth.RoleDoctor))
	admin := e.Group("/admin", session, auth.RequireRole(auth.RoleAdmin))

	identity.NewHandler(identitySvc).RegisterRoutes(authGroup, patient, admin, session)
	directory.NewHandler(directorySvc).RegisterRoutes(patient, admin)
	appointment.NewHandler(appointmentSvc, doctorRepo, userRepo).RegisterRoutes(patient, doctor, admin)
	records.NewHandler(recordsSvc).RegisterRoutes(patient, doctor, admin)

	// Operational endpoints
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/db", db.HealthHandler(pool))
	e.GET("/metrics", provider.Handler())

	// Start with graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("server listening")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server stopped unexpectedly")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
