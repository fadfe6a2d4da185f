package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/cors"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
	"github.com/tendant/chi-demo/app"

	"github.com/kyle-compute/StravaTPOT/migrations"
	"github.com/kyle-compute/StravaTPOT/pkg/activity"
	"github.com/kyle-compute/StravaTPOT/pkg/authflow"
	"github.com/kyle-compute/StravaTPOT/pkg/authstate"
	"github.com/kyle-compute/StravaTPOT/pkg/config"
	"github.com/kyle-compute/StravaTPOT/pkg/provider"
	"github.com/kyle-compute/StravaTPOT/pkg/ratelimit"
	"github.com/kyle-compute/StravaTPOT/pkg/records"
	"github.com/kyle-compute/StravaTPOT/pkg/sessions"
	"github.com/kyle-compute/StravaTPOT/pkg/tokengenerator"
	"github.com/kyle-compute/StravaTPOT/pkg/user"
)

func loadEnvFile() {
	execPath, err := os.Executable()
	if err != nil {
		slog.Error("Failed to get executable path", "error", err)
		return
	}

	envFile := filepath.Join(filepath.Dir(execPath), ".env")
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		cwd, err := os.Getwd()
		if err != nil {
			slog.Error("Failed to get current working directory", "error", err)
			return
		}
		envFile = filepath.Join(cwd, ".env")
	}

	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		slog.Info("No .env file found", "path", envFile)
		return
	}

	if err := godotenv.Load(envFile); err != nil {
		slog.Error("Failed to load .env file", "error", err, "path", envFile)
		return
	}
	slog.Info("Configuration loaded from .env file", "path", envFile)
}

func runMigrations(dbURL string) error {
	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		return err
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.Up(db, ".")
}

func buildRegistry(cfg *config.Config) (*provider.Registry, error) {
	providers := []*provider.Provider{}
	if cfg.XOAuth.Enabled() {
		providers = append(providers, provider.XProvider(cfg.XOAuth.ClientID, cfg.XOAuth.ClientSecret, cfg.XOAuth.RedirectURI))
	} else {
		slog.Warn("X.com OAuth credentials missing, login disabled")
	}
	if cfg.Strava.Enabled() {
		providers = append(providers, provider.StravaProvider(cfg.Strava.ClientID, cfg.Strava.ClientSecret, cfg.Strava.RedirectURI))
	} else {
		slog.Warn("Strava OAuth credentials missing, linking disabled")
	}
	return provider.NewRegistry(providers...)
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
	}))
	slog.SetDefault(logger)

	loadEnvFile()

	cfg := config.Config{}
	cleanenv.ReadEnv(&cfg)

	dbURL := cfg.Database.ToDatabaseURL()
	if err := runMigrations(dbURL); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(-1)
	}

	pool, err := pgxpool.New(context.Background(), dbURL)
	if err != nil {
		slog.Error("Failed creating dbpool", "db", cfg.Database.Database, "host", cfg.Database.Host, "port", cfg.Database.Port, "user", cfg.Database.User, "schema", cfg.Database.Schema)
		os.Exit(-1)
	}
	defer pool.Close()

	registry, err := buildRegistry(&cfg)
	if err != nil {
		slog.Error("Invalid provider configuration", "error", err)
		os.Exit(-1)
	}

	encryptor, err := user.NewEncryptionService(cfg.Encryption.TokenEncryptionKey)
	if err != nil {
		slog.Error("Invalid token encryption key", "error", err)
		os.Exit(-1)
	}

	userRepository := user.NewPostgresRepository(pool)
	userService := user.NewService(userRepository, encryptor)

	tokenGenerator := tokengenerator.NewJwtTokenGenerator(cfg.Jwt.Secret, cfg.Jwt.Issuer, cfg.Jwt.Audience)
	sessionRepository := sessions.NewPostgresRepository(pool)
	sessionService := sessions.NewService(
		sessionRepository,
		tokenGenerator,
		sessions.WithTokenExpiry(cfg.Jwt.AccessTokenExpiry),
	)

	stateRepository := authstate.NewPostgresRepository(pool)
	providerClient := provider.NewClient()
	flowService := authflow.NewService(
		stateRepository,
		registry,
		providerClient,
		userService,
		sessionService,
		authflow.WithStateTTL(cfg.Server.StateTTL),
	)

	recordService := records.NewService(records.NewPostgresRepository(pool))
	activityService := activity.NewService(activity.NewPostgresRepository(pool), recordService)

	server := app.DefaultApp()

	rateLimiter := ratelimit.NewMiddleware(&ratelimit.Config{
		PerIPCapacity:   cfg.RateLimit.PerIPCapacity,
		PerIPRefillRate: cfg.RateLimit.PerIPRefillRate,
		AuthCapacity:    cfg.RateLimit.AuthCapacity,
		AuthRefillRate:  cfg.RateLimit.AuthRefillRate,
	})
	server.R.Use(rateLimiter.Handler)

	server.R.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.Server.FrontendURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	app.RoutesHealthz(server.R)
	server.R.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			slog.Error("Health check failed", "error", err)
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Stale entries are already rejected at lookup; the sweep just keeps
	// the tables from growing.
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			ctx := context.Background()
			if err := stateRepository.DeleteExpired(ctx); err != nil {
				slog.Error("Failed sweeping expired auth states", "error", err)
			}
			if err := sessionRepository.DeleteExpired(ctx); err != nil {
				slog.Error("Failed sweeping expired sessions", "error", err)
			}
		}
	}()

	hmacAuth := sessions.NewAuth(cfg.Jwt.Secret)
	authflow.NewHandler(flowService, sessionService, hmacAuth, userService).RegisterRoutes(server.R)
	user.NewHandler(userService).RegisterRoutes(server.R)
	activity.NewHandler(activityService).RegisterRoutes(server.R)
	records.NewHandler(recordService).RegisterRoutes(server.R)

	server.Run()
}
