// Package main runs the alert enrichment service: the HTTP API, the
// market data feeds, the periodic re-drive scheduler, and the Prometheus
// metrics endpoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/openckai/sui-whale-ai-agent/internal/api"
	"github.com/openckai/sui-whale-ai-agent/internal/config"
	"github.com/openckai/sui-whale-ai-agent/internal/emitter"
	"github.com/openckai/sui-whale-ai-agent/internal/feed"
	"github.com/openckai/sui-whale-ai-agent/internal/ledger"
	"github.com/openckai/sui-whale-ai-agent/internal/notify"
	natsnotify "github.com/openckai/sui-whale-ai-agent/internal/notify/nats"
	"github.com/openckai/sui-whale-ai-agent/internal/observability"
	"github.com/openckai/sui-whale-ai-agent/internal/storage"
	chstore "github.com/openckai/sui-whale-ai-agent/internal/storage/clickhouse"
	"github.com/openckai/sui-whale-ai-agent/internal/storage/memory"
	"github.com/openckai/sui-whale-ai-agent/internal/storage/migrations"
	pgstore "github.com/openckai/sui-whale-ai-agent/internal/storage/postgres"
)

// allStores holds all storage implementations.
type allStores struct {
	wallets      storage.WalletStore
	tokens       storage.TokenStore
	transactions storage.TransactionStore
	alerts       storage.AlertStore
	prices       storage.PriceSeriesStore
	sentiments   storage.SentimentSeriesStore
	cascade      storage.WalletCascade
}

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "Path to YAML config file")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	natsURL := flag.String("nats-url", os.Getenv("NATS_URL"), "NATS server URL (optional)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	addr := flag.String("addr", "", "HTTP API address (overrides config)")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (overrides config)")

	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	applyOverrides(cfg, *postgresDSN, *clickhouseDSN, *natsURL, *addr, *metricsAddr)

	if !*useMemory && (cfg.Postgres.DSN == "" || cfg.ClickHouse.DSN == "") {
		logger.Fatal("postgres and clickhouse DSNs are required (use --use-memory for in-memory storage)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, cleanup, err := createStores(ctx, cfg, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	notifier, closeNotifier, err := createNotifier(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to create notifier: %v", err)
	}
	defer closeNotifier()

	led := ledger.New(ledger.Options{
		WalletStore:      stores.wallets,
		TokenStore:       stores.tokens,
		TransactionStore: stores.transactions,
		AlertStore:       stores.alerts,
		Cascade:          stores.cascade,
	})

	em := emitter.New(emitter.Options{
		WalletStore:      stores.wallets,
		TransactionStore: stores.transactions,
		AlertStore:       stores.alerts,
		PriceSeries:      stores.prices,
		SentimentSeries:  stores.sentiments,
		Notifier:         notifier,
		Policy: emitter.Policy{
			RequirePrice:  !cfg.Emitter.AllowMissingPrice,
			LookupTimeout: cfg.Emitter.LookupTimeout.Std(),
		},
		Logger: log.New(os.Stdout, "[emitter] ", log.LstdFlags),
	})

	// Re-derive the unresolved set from durable state.
	if result, err := em.Rebuild(ctx); err != nil {
		logger.Printf("Rebuild failed: %v", err)
	} else if result.Attempted > 0 {
		logger.Printf("Rebuild: %d attempted, %d enriched, %d still unresolvable",
			result.Attempted, result.Enriched, result.StillUnresolvable)
	}

	server := api.NewServer(api.ServerOptions{
		Config: api.ServerConfig{
			Addr:         cfg.Server.Addr,
			ReadTimeout:  cfg.Server.ReadTimeout.Std(),
			WriteTimeout: cfg.Server.WriteTimeout.Std(),
		},
		Ledger:     led,
		Emitter:    em,
		Prices:     stores.prices,
		Sentiments: stores.sentiments,
	})

	// Prometheus metrics server
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", observability.Handler())
		logger.Printf("Metrics listening on %s", cfg.Metrics.Addr)
		if err := http.ListenAndServe(cfg.Metrics.Addr, mux); err != nil && err != http.ErrServerClosed {
			logger.Printf("Metrics server error: %v", err)
		}
	}()

	startFeeds(ctx, cfg, stores, em, logger)
	go runRedriveScheduler(ctx, cfg.Emitter.RedriveInterval.Std(), em, logger)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
	case err := <-errCh:
		logger.Printf("Server error: %v", err)
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Printf("Shutdown error: %v", err)
	}
	logger.Println("Shutdown complete")
}

// loadConfig loads YAML config, falling back to defaults when no path given.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// applyOverrides lets flags and env vars win over the config file.
func applyOverrides(cfg *config.Config, postgresDSN, clickhouseDSN, natsURL, addr, metricsAddr string) {
	if postgresDSN != "" {
		cfg.Postgres.DSN = postgresDSN
	}
	if clickhouseDSN != "" {
		cfg.ClickHouse.DSN = clickhouseDSN
	}
	if natsURL != "" {
		cfg.NATS.URL = natsURL
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if metricsAddr != "" {
		cfg.Metrics.Addr = metricsAddr
	}
}

// createStores creates all required stores and runs migrations.
func createStores(ctx context.Context, cfg *config.Config, useMemory bool) (*allStores, func(), error) {
	if useMemory {
		wallets := memory.NewWalletStore()
		tokens := memory.NewTokenStore()
		transactions := memory.NewTransactionStore()
		alerts := memory.NewAlertStore()
		stores := &allStores{
			wallets:      wallets,
			tokens:       tokens,
			transactions: transactions,
			alerts:       alerts,
			prices:       memory.NewPriceSeriesStore(),
			sentiments:   memory.NewSentimentSeriesStore(),
			cascade:      memory.NewCascade(wallets, transactions, alerts),
		}
		return stores, func() {}, nil
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate postgres: %w", err)
	}

	// ClickHouse
	chConn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouse.DSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate clickhouse: %w", err)
	}

	stores := &allStores{
		// PostgreSQL stores (entities)
		wallets:      pgstore.NewWalletStore(pool),
		tokens:       pgstore.NewTokenStore(pool),
		transactions: pgstore.NewTransactionStore(pool),
		alerts:       pgstore.NewAlertStore(pool),
		cascade:      pgstore.NewCascade(pool),

		// ClickHouse stores (series)
		prices:     chstore.NewPriceSeriesStore(chConn),
		sentiments: chstore.NewSentimentSeriesStore(chConn),
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}
	return stores, cleanup, nil
}

// createNotifier wires NATS when configured, a log notifier otherwise.
func createNotifier(cfg *config.Config, logger *log.Logger) (notify.Notifier, func(), error) {
	if cfg.NATS.URL == "" {
		return notify.NewLogNotifier(logger), func() {}, nil
	}

	n, err := natsnotify.New(cfg.NATS.URL, cfg.NATS.SubjectPrefix)
	if err != nil {
		return nil, nil, fmt.Errorf("connect notifier: %w", err)
	}
	return n, func() {
		if err := n.Close(); err != nil {
			logger.Printf("Close notifier: %v", err)
		}
	}, nil
}

// startFeeds launches the configured market data feeds.
func startFeeds(ctx context.Context, cfg *config.Config, stores *allStores, em *emitter.Emitter, logger *log.Logger) {
	onRecord := func(token string) {
		if _, err := em.Redrive(ctx, token); err != nil {
			logger.Printf("Redrive %s: %v", token, err)
		}
	}

	if cfg.Feed.Quotes.Enabled {
		poller, err := feed.NewQuotePoller(feed.QuotePollerOptions{
			BaseURL:     cfg.Feed.Quotes.BaseURL,
			Tokens:      cfg.Feed.Quotes.Tokens,
			Interval:    cfg.Feed.Quotes.Interval.Std(),
			RatePerSec:  cfg.Feed.Quotes.RatePerSec,
			Burst:       cfg.Feed.Quotes.Burst,
			HTTPTimeout: cfg.Feed.Quotes.HTTPTimeout.Std(),
			Prices:      stores.prices,
			OnRecord:    onRecord,
		})
		if err != nil {
			logger.Fatalf("Failed to create quote poller: %v", err)
		}
		go poller.Run(ctx)
	}

	if cfg.Feed.Stream.Enabled {
		stream, err := feed.NewPriceStream(feed.PriceStreamOptions{
			URL:      cfg.Feed.Stream.URL,
			Prices:   stores.prices,
			OnRecord: onRecord,
		})
		if err != nil {
			logger.Fatalf("Failed to create price stream: %v", err)
		}
		go stream.Run(ctx)
	}

	if cfg.Feed.Sentiment.Enabled {
		poller, err := feed.NewSentimentPoller(feed.SentimentPollerOptions{
			BaseURL:     cfg.Feed.Sentiment.BaseURL,
			Tokens:      cfg.Feed.Sentiment.Tokens,
			Interval:    cfg.Feed.Sentiment.Interval.Std(),
			HTTPTimeout: cfg.Feed.Sentiment.HTTPTimeout.Std(),
			Sentiment:   stores.sentiments,
		})
		if err != nil {
			logger.Fatalf("Failed to create sentiment poller: %v", err)
		}
		go poller.Run(ctx)
	}
}

// runRedriveScheduler periodically retries all unresolved transactions.
func runRedriveScheduler(ctx context.Context, interval time.Duration, em *emitter.Emitter, logger *log.Logger) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result, err := em.RedriveAll(ctx)
			if err != nil {
				logger.Printf("Scheduled redrive: %v", err)
				continue
			}
			if result.Attempted > 0 {
				logger.Printf("Scheduled redrive: %d attempted, %d enriched, %d still unresolvable",
					result.Attempted, result.Enriched, result.StillUnresolvable)
			}
		}
	}
}
