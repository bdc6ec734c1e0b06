// Command ingest loads a batch of scraped offers, with their NLP outputs,
// into the warehouse. The input is a JSON array of items as produced by
// the collection pipeline; each is deduplicated, geo-resolved and stored.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/atlas-data/atlas/config"
	"github.com/atlas-data/atlas/internal/cache"
	"github.com/atlas-data/atlas/internal/ingest"
	"github.com/atlas-data/atlas/internal/logger"
	"github.com/atlas-data/atlas/internal/repositories/postgres"
	"github.com/atlas-data/atlas/internal/services"
)

func main() {
	file := flag.String("file", "", "JSON file with the offers to ingest (required)")
	source := flag.String("source", "", "source name recorded for the run (default: per-offer source)")
	threshold := flag.Float64("threshold", 0, "duplicate similarity cutoff (default 0.95)")
	flag.Parse()

	_ = godotenv.Load()
	log := logger.New()

	if *file == "" {
		log.Fatal("-file is required")
	}

	db, err := config.OpenPostgres()
	if err != nil {
		log.WithError(err).Fatal("failed to connect to PostgreSQL")
	}

	// the commune cache is shared across ingesters when Redis is
	// configured, in-process otherwise
	var communeCache cache.CommuneCache = cache.NewMemoryCache()
	if os.Getenv("REDIS_ADDR") != "" || os.Getenv("REDIS_URI") != "" || os.Getenv("REDIS_URL") != "" {
		rdb, err := config.OpenRedis()
		if err != nil {
			log.WithError(err).Fatal("failed to connect to Redis")
		}
		communeCache = cache.NewRedisCache(rdb, 24*time.Hour)
		log.Info("using shared Redis commune cache")
	}

	items, err := readItems(*file)
	if err != nil {
		log.WithError(err).Fatal("failed to read offers file")
	}
	if len(items) == 0 {
		log.Warn("no offers to ingest")
		return
	}

	geo := services.NewGeoService(postgres.NewCommuneRepo(db), communeCache, log)
	dedup := services.NewDedupService(postgres.NewEmbeddingRepo(db), *threshold, log)
	svc := services.NewIngestService(
		dedup,
		geo,
		postgres.NewTxManager(db),
		postgres.NewDimensionRepo(db),
		postgres.NewOfferRepo(db),
		postgres.NewSkillRepo(db),
		postgres.NewEmbeddingRepo(db),
		postgres.NewIngestRunRepo(db),
		log,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runSource := *source
	if runSource == "" && len(items) > 0 {
		runSource = items[0].Raw.Source
	}

	report := svc.SaveBatch(ctx, runSource, items)
	if report.Errors > 0 {
		os.Exit(1)
	}
}

func readItems(path string) ([]ingest.Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var items []ingest.Item
	if err := json.NewDecoder(f).Decode(&items); err != nil {
		return nil, err
	}
	return items, nil
}
