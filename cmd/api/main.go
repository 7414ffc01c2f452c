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

	"github.com/go-wa-onboarding/internal/application/bridge"
	"github.com/go-wa-onboarding/internal/application/onboarding"
	"github.com/go-wa-onboarding/internal/config"
	"github.com/go-wa-onboarding/internal/infrastructure/backend"
	"github.com/go-wa-onboarding/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-wa-onboarding/internal/infrastructure/jwt"
	"github.com/go-wa-onboarding/internal/infrastructure/sns"
	transporthttp "github.com/go-wa-onboarding/internal/transport/http"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Snapshot persistence: creates the table if it doesn't exist.
	dynamoClient, err := dynamo.NewClient(ctx, cfg)
	if err != nil {
		log.Fatalf("dynamo: %v", err)
	}
	dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables)
	snapshots := dynamo.NewSnapshotRepo(dynamoClient, cfg.DynamoTables.Snapshots)

	// JWT provider (optional, falls back to the tenant header outside production).
	var jwtProvider *jwtinfra.Provider
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		jwtProvider = p
	} else if cfg.AppEnv == "production" {
		log.Fatalf("jwt provider: %v", err)
	} else {
		log.Printf("WARN: JWT provider not available, trusting the X-Tenant-ID header: %v", err)
	}

	// SNS notice fan-out (optional).
	var notifier onboarding.Notifier
	if cfg.SNSTopicARN != "" {
		if pub, err := sns.NewPublisher(ctx, cfg); err == nil {
			notifier = pub
		} else {
			log.Printf("WARN: SNS publisher not available: %v", err)
		}
	}

	backendClient := backend.NewClient(cfg.BackendBaseURL, cfg.BackendAPIKey, cfg.BackendTimeout)
	backends := func(tenantID string) onboarding.Backend { return backendClient.ForTenant(tenantID) }

	decoder := bridge.NewDecoder(bridge.NewAllowlist(cfg.Signup.TrustedOrigins))

	svc := onboarding.NewService(backends, decoder, snapshots, notifier, onboarding.Options{
		FallbackDelay:       cfg.Signup.FallbackDelay,
		ExchangeTimeout:     cfg.BackendTimeout,
		PollInterval:        cfg.Signup.PollInterval,
		WebhookPingAttempts: cfg.Signup.WebhookPingAttempts,
		WebhookPingInterval: cfg.Signup.WebhookPingInterval,
		NoticeLimit:         cfg.Signup.NoticeLimit,
	})

	deps := &transporthttp.Deps{
		Onboarding:  svc,
		JWTProvider: jwtProvider,
	}

	router := transporthttp.NewRouter(ctx, cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	svc.Shutdown()
	log.Println("Server stopped")
}
