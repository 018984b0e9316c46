// Package main is a one-shot operations tool that re-processes
// transactions without alerts. Useful after backfilling price data or
// after an incident left transactions unresolved.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/openckai/sui-whale-ai-agent/internal/emitter"
	"github.com/openckai/sui-whale-ai-agent/internal/notify"
	chstore "github.com/openckai/sui-whale-ai-agent/internal/storage/clickhouse"
	"github.com/openckai/sui-whale-ai-agent/internal/storage/migrations"
	pgstore "github.com/openckai/sui-whale-ai-agent/internal/storage/postgres"
)

func main() {
	_ = godotenv.Load()

	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	token := flag.String("token", "", "Limit the re-drive to one token address")
	requirePrice := flag.Bool("require-price", true, "Treat transactions without a price sample as unresolvable")
	lookupTimeout := flag.Duration("lookup-timeout", 2*time.Second, "Per-lookup timeout")
	timeout := flag.Duration("timeout", 10*time.Minute, "Overall run timeout")

	flag.Parse()

	logger := log.New(os.Stdout, "[redrive] ", log.LstdFlags)

	if *postgresDSN == "" || *clickhouseDSN == "" {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		logger.Fatalf("Connect to postgres: %v", err)
	}
	defer pool.Close()

	chConn, err := migrations.RunClickhouseMigrations(ctx, *clickhouseDSN)
	if err != nil {
		logger.Fatalf("Connect to clickhouse: %v", err)
	}
	defer chConn.Close()

	em := emitter.New(emitter.Options{
		WalletStore:      pgstore.NewWalletStore(pool),
		TransactionStore: pgstore.NewTransactionStore(pool),
		AlertStore:       pgstore.NewAlertStore(pool),
		PriceSeries:      chstore.NewPriceSeriesStore(chConn),
		SentimentSeries:  chstore.NewSentimentSeriesStore(chConn),
		Notifier:         notify.NewLogNotifier(logger),
		Policy: emitter.Policy{
			RequirePrice:  *requirePrice,
			LookupTimeout: *lookupTimeout,
		},
		Logger: logger,
	})

	// Rebuild walks every alert-less transaction, which both re-drives and
	// repopulates the unresolved set. A token filter narrows the second pass.
	result, err := em.Rebuild(ctx)
	if err != nil {
		logger.Fatalf("Rebuild: %v", err)
	}
	logger.Printf("Rebuild: %d attempted, %d enriched, %d still unresolvable",
		result.Attempted, result.Enriched, result.StillUnresolvable)

	if *token != "" {
		r, err := em.Redrive(ctx, *token)
		if err != nil {
			logger.Fatalf("Redrive %s: %v", *token, err)
		}
		logger.Printf("Redrive %s: %d attempted, %d enriched, %d still unresolvable",
			*token, r.Attempted, r.Enriched, r.StillUnresolvable)
	}
}
