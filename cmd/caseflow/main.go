package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/riandyrn/otelchi"

	"github.com/opencivic/caseflow/internal/adapter/fsm"
	"github.com/opencivic/caseflow/internal/adapter/sqlite"
	"github.com/opencivic/caseflow/internal/app"
	"github.com/opencivic/caseflow/internal/auth"

	handler "github.com/opencivic/caseflow/internal/adapter/http"
	otelAdapter "github.com/opencivic/caseflow/internal/adapter/otel"
	riverAdapter "github.com/opencivic/caseflow/internal/adapter/river"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("caseflow: %v", err)
	}
}

func run() error {
	port := envOrDefault("PORT", "8080")
	dbPath := envOrDefault("DATABASE_PATH", "caseflow.db")
	jwtSecret := envOrDefault("JWT_SECRET", "dev-secret-change-in-production")

	ctx := context.Background()

	// --- Observability ---
	providers, err := otelAdapter.Setup(ctx, otelAdapter.ConfigFromEnv())
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			log.Printf("otel shutdown: %v", err)
		}
	}()

	// --- Adapters (out) ---
	db, err := otelAdapter.OpenDB(dbPath)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}

	repo, err := sqlite.NewFromDB(db)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer repo.Close()

	users := sqlite.NewUserRepository(repo.DB())

	if err := auth.SeedDefaultUsers(ctx, users); err != nil {
		return fmt.Errorf("seeding users: %w", err)
	}

	riverClient, err := riverAdapter.Setup(ctx, repo.DB())
	if err != nil {
		return fmt.Errorf("river: %w", err)
	}
	if err := riverClient.Start(ctx); err != nil {
		return fmt.Errorf("starting river: %w", err)
	}

	publisher := otelAdapter.NewTracingPublisher(riverAdapter.NewPublisher(riverClient))
	cases := otelAdapter.NewTracingRepository(repo)

	// --- Application ---
	svc := app.NewCaseService(cases, users, publisher, fsm.New())
	authSvc := auth.NewService(users, jwtSecret)

	// --- Adapters (in) ---
	router := chi.NewMux()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestID)
	router.Use(otelchi.Middleware("caseflow", otelchi.WithChiRoutes(router)))

	api := humachi.New(router, huma.DefaultConfig("caseflow", "0.1.0"))
	api.UseMiddleware(auth.Middleware(api, authSvc))
	handler.Register(api, svc, authSvc)

	// --- Server ---
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown.
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("caseflow listening on :%s", port)
		log.Printf("API docs: http://localhost:%s/docs", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-done:
	}

	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	if err := riverClient.Stop(shutdownCtx); err != nil {
		log.Printf("river shutdown: %v", err)
	}

	log.Println("stopped")
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
