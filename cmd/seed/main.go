// Command seed fills a SQLite catalog with generated storefront products so
// the service can be run and reindexed without the product database.
//
//	go run ./cmd/seed -path data/catalog.db -n 10000
package main

import (
	"context"
	"flag"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/ammadakrram/storefront-search/internal/catalog/sqlite"
	"github.com/ammadakrram/storefront-search/internal/seed"
	"github.com/ammadakrram/storefront-search/pkg/logger"
)

func main() {
	path := flag.String("path", "data/catalog.db", "SQLite catalog file")
	total := flag.Int("n", 10000, "number of products")
	batchSize := flag.Int("batch-size", 500, "products per transaction")
	randSeed := flag.Int64("seed", 42, "generator seed; equal seeds give equal catalogs")
	flag.Parse()
	if *batchSize <= 0 {
		*batchSize = 500
	}

	log := logger.New("search-seed", "info")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	src, err := sqlite.Open(ctx, *path)
	if err != nil {
		log.Error("open catalog", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer src.Close()

	products := seed.Generate(*total, rand.New(rand.NewSource(*randSeed)))
	log.Info("generated products", slog.Int("count", len(products)))

	for start := 0; start < len(products); start += *batchSize {
		end := min(start+*batchSize, len(products))
		if err := src.Put(ctx, products[start:end]...); err != nil {
			log.Error("insert batch",
				slog.Int("start", start),
				slog.Int("end", end),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	log.Info("catalog seeded", slog.String("path", *path), slog.Int("count", len(products)))
}
