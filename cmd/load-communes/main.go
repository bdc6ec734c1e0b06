// Command load-communes replaces the French commune referential from the
// official La Poste postal-code dataset, then optionally back-fills GPS
// coordinates from the national address API.
//
// Usage:
//
//	load-communes                    # download and load the referential
//	load-communes -file communes.csv # load from a local export
//	load-communes -geocode           # also geocode communes without GPS
package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/atlas-data/atlas/config"
	"github.com/atlas-data/atlas/internal/importer"
	"github.com/atlas-data/atlas/internal/logger"
	"github.com/atlas-data/atlas/internal/repositories/postgres"
	"github.com/atlas-data/atlas/internal/workers"
)

func main() {
	file := flag.String("file", "", "load from a local CSV instead of downloading")
	geocode := flag.Bool("geocode", false, "back-fill GPS coordinates after loading")
	flag.Parse()

	_ = godotenv.Load()
	log := logger.New()

	db, err := config.OpenPostgres()
	if err != nil {
		log.WithError(err).Fatal("failed to connect to PostgreSQL")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	communes := postgres.NewCommuneRepo(db)
	loader := importer.NewLoader(communes, &http.Client{Timeout: 60 * time.Second}, log)

	var src io.ReadCloser
	if *file != "" {
		src, err = os.Open(*file)
		if err != nil {
			log.WithError(err).Fatal("failed to open CSV file")
		}
		log.WithField("file", *file).Info("loading referential from file")
	} else {
		src, err = loader.Download(ctx)
		if err != nil {
			log.WithError(err).Fatal("failed to download referential")
		}
		log.WithField("url", importer.LaPosteCSVURL).Info("loading referential from data.gouv.fr")
	}

	rows, err := importer.Parse(src)
	src.Close()
	if err != nil {
		log.WithError(err).Fatal("failed to parse referential")
	}

	n, err := loader.Import(ctx, rows)
	if err != nil {
		log.WithError(err).Fatal("failed to load referential")
	}
	log.WithField("communes", n).Info("referential replaced")

	if *geocode {
		w := &workers.GeocodeWorker{Communes: communes, Logger: log}
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Fatal("geocoding failed")
		}
	}
}
