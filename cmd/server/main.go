package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ignite/decision-gateway/internal/api"
	"github.com/ignite/decision-gateway/internal/bulk"
	"github.com/ignite/decision-gateway/internal/config"
	"github.com/ignite/decision-gateway/internal/configstore"
	"github.com/ignite/decision-gateway/internal/oauth"
	"github.com/ignite/decision-gateway/internal/pipeline"
	"github.com/ignite/decision-gateway/internal/pkg/logger"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// checkPortAvailable verifies that the target port is not already in use.
// This prevents confusion from stale/stub processes occupying the port.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v\n"+
			"  Hint: Run 'lsof -i :%d' to find the blocking process", port, addr, err, port)
	}
	ln.Close()
	return nil
}

// newStore builds the instance config store selected by configuration.
func newStore(cfg config.StorageConfig) (configstore.Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return configstore.NewMemoryStore(), nil

	case "redis":
		store, err := configstore.NewRedisStore(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("redis store: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		return store, nil

	case "postgres":
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(5 * time.Minute)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return nil, fmt.Errorf("postgres ping: %w", err)
		}

		store := configstore.NewPostgresStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		return store, nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
}

func main() {
	// Load configuration
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Eloqua.ConsumerKey == "" || cfg.Eloqua.ConsumerSecret == "" {
		log.Fatal("eloqua consumer key and secret are required (ELOQUA_CONSUMER_KEY / ELOQUA_CONSUMER_SECRET)")
	}

	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	if cfg.Logging.RedactPII != nil {
		logger.SetRedactPII(*cfg.Logging.RedactPII)
	}

	// Pre-flight check: verify the target port is available
	host := cfg.Server.GetHost()
	port := cfg.Server.Port
	if err := checkPortAvailable(host, port); err != nil {
		log.Fatalf("Pre-flight check FAILED: %v", err)
	}

	// Instance config store
	store, err := newStore(cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	logger.Info("storage ready", "backend", cfg.Storage.Backend)

	// Signature engine, shared by inbound verification and outbound signing
	engine := oauth.NewEngine(oauth.Credential{
		ConsumerKey:    cfg.Eloqua.ConsumerKey,
		ConsumerSecret: cfg.Eloqua.ConsumerSecret,
	})

	// Bulk API client and pipeline
	bulkClient := bulk.NewClient(cfg.Eloqua.BaseURL, engine)
	bulkClient.SetHTTPClient(&http.Client{Timeout: cfg.Eloqua.Timeout()})
	p := pipeline.New(bulkClient, pipeline.NewSink(), cfg.Service.IdentifierField)

	if cfg.Service.SkipVerification {
		logger.Warn("signature verification is DISABLED; local development only")
	}

	server := api.NewServer(engine, store, p,
		cfg.Service.MaxRecordsPerNotification, cfg.Service.SkipVerification)

	addr := fmt.Sprintf("%s:%d", host, port)
	go func() {
		logger.Info("server listening",
			"addr", addr,
			"service", cfg.Service.Name,
			"eloqua_base_url", cfg.Eloqua.BaseURL)
		if err := server.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	logger.Info("server stopped")
}
