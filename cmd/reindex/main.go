// Command reindex rebuilds the search index from the catalog and prints the
// run report as JSON. It exits 0 on success, 2 when some documents were
// rejected and 1 on a fatal error.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ammadakrram/storefront-search/internal/app"
	"github.com/ammadakrram/storefront-search/internal/config"
	"github.com/ammadakrram/storefront-search/internal/reindex"
	pkgkafka "github.com/ammadakrram/storefront-search/pkg/kafka"
	"github.com/ammadakrram/storefront-search/pkg/logger"
)

const (
	exitOK      = 0
	exitFatal   = 1
	exitPartial = 2
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("reindex", flag.ContinueOnError)
	fs.SetOutput(stderr)
	recreate := fs.Bool("recreate", false, "drop the index first so documents deleted from the catalog disappear")
	batchSize := fs.Int("batch-size", 0, "products per bulk request (default REINDEX_BATCH_SIZE)")
	timeout := fs.Duration("timeout", 30*time.Minute, "abort the run after this long")
	if err := fs.Parse(args); err != nil {
		return exitFatal
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "load config: %v\n", err)
		return exitFatal
	}
	log := logger.NewWithWriter("search-reindex", cfg.LogLevel, stderr)

	if *batchSize <= 0 {
		*batchSize = cfg.ReindexBatchSize
	}

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	eng, closeEngine, err := app.NewEngine(cfg, log)
	if err != nil {
		log.Error("init search engine", slog.String("error", err.Error()))
		return exitFatal
	}
	defer closeEngine()

	source, closeCatalog, err := app.NewCatalog(ctx, cfg, log)
	if err != nil {
		log.Error("init catalog source", slog.String("error", err.Error()))
		return exitFatal
	}
	defer closeCatalog()
	if source == nil {
		log.Error("CATALOG_SOURCE is none, nothing to reindex from")
		return exitFatal
	}

	reindexer := reindex.New(eng, source, reindex.Config{BatchSize: *batchSize, Recreate: *recreate}, log)
	if cfg.KafkaEnabled {
		producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), log)
		defer producer.Close()
		reindexer = reindexer.WithPublisher(producer)
	}

	report, err := reindexer.ReindexAll(ctx)

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(report); encErr != nil {
		log.Error("write report", slog.String("error", encErr.Error()))
	}

	return exitCode(report, err)
}

func exitCode(report *reindex.Report, err error) int {
	switch {
	case err != nil || report == nil:
		return exitFatal
	case report.Status == reindex.StatusSuccess:
		return exitOK
	case report.Status == reindex.StatusPartial:
		return exitPartial
	default:
		return exitFatal
	}
}
