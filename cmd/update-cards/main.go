// update-cards refreshes the card store from the latest Legends of Runeterra
// data dragon set bundles.
//
// Usage: update-cards [--config=update-cards.toml] [--driver=mongo|sqlite] [--sets=3]
//
// Environment variables and a .env file set the defaults. A TOML file passed
// with --config overrides them; flags given on the command line win over both.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/runeterra-roulette/backend/internal/config"
	"github.com/runeterra-roulette/backend/internal/database"
	"github.com/runeterra-roulette/backend/internal/metrics"
	"github.com/runeterra-roulette/backend/internal/services"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

type cliFlags struct {
	configPath string
	driver     string
	mongoURI   string
	mongoDB    string
	dbPath     string
	dataURL    string
	language   string
	workDir    string
	sets       int
	attempts   int
	timeout    time.Duration
	pushURL    string
}

func newRootCmd() *cobra.Command {
	var f cliFlags

	cmd := &cobra.Command{
		Use:           "update-cards",
		Short:         "Download the latest set bundles and upsert every card",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if f.configPath != "" {
				if err := cfg.ApplyFile(f.configPath); err != nil {
					log.Printf("Failed to load %s: %v", f.configPath, err)
					return err
				}
			}
			applyFlags(cmd.Flags(), &f, cfg)
			return run(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.configPath, "config", "", "optional TOML file with db and ingest settings")
	flags.StringVar(&f.driver, "driver", "", "card store backend (mongo or sqlite)")
	flags.StringVar(&f.mongoURI, "mongo-uri", "", "MongoDB connection string")
	flags.StringVar(&f.mongoDB, "mongo-db", "", "MongoDB database name")
	flags.StringVar(&f.dbPath, "db", "", "SQLite database path")
	flags.StringVar(&f.dataURL, "data-url", "", "base URL of the set bundles")
	flags.StringVar(&f.language, "language", "", "set bundle language")
	flags.StringVar(&f.workDir, "work-dir", "", "temporary download directory")
	flags.IntVar(&f.sets, "sets", 0, "number of sets to ingest")
	flags.IntVar(&f.attempts, "attempts", 0, "download attempts per set")
	flags.DurationVar(&f.timeout, "timeout", 0, "per-download timeout")
	flags.StringVar(&f.pushURL, "pushgateway", "", "Prometheus Pushgateway URL for ingestion metrics")

	return cmd
}

// applyFlags copies only the flags given on the command line, so they win
// over both the environment and the config file.
func applyFlags(fs *pflag.FlagSet, f *cliFlags, cfg *config.Config) {
	if fs.Changed("driver") {
		cfg.DBDriver = f.driver
	}
	if fs.Changed("mongo-uri") {
		cfg.MongoURI = f.mongoURI
	}
	if fs.Changed("mongo-db") {
		cfg.MongoDatabase = f.mongoDB
	}
	if fs.Changed("db") {
		cfg.DBPath = f.dbPath
	}
	if fs.Changed("data-url") {
		cfg.Ingest.DataBaseURL = f.dataURL
	}
	if fs.Changed("language") {
		cfg.Ingest.Language = f.language
	}
	if fs.Changed("work-dir") {
		cfg.Ingest.WorkDir = f.workDir
	}
	if fs.Changed("sets") {
		cfg.Ingest.SetCount = f.sets
	}
	if fs.Changed("attempts") {
		cfg.Ingest.FetchAttempts = f.attempts
	}
	if fs.Changed("timeout") {
		cfg.Ingest.DownloadTimeout = f.timeout
	}
	if fs.Changed("pushgateway") {
		cfg.Ingest.PushgatewayURL = f.pushURL
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	store, err := database.Open(ctx, database.Options{
		Driver:       cfg.DBDriver,
		MongoURI:     cfg.MongoURI,
		MongoDBName:  cfg.MongoDatabase,
		SQLitePath:   cfg.DBPath,
		StoreTimeout: cfg.StoreTimeout,
	})
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		return err
	}
	defer store.Close(context.Background())

	fetcher := services.NewSetFetcher(services.SetFetcherConfig{
		BaseURL:  cfg.Ingest.DataBaseURL,
		WorkDir:  cfg.Ingest.WorkDir,
		Language: cfg.Ingest.Language,
		Timeout:  cfg.Ingest.DownloadTimeout,
		Attempts: cfg.Ingest.FetchAttempts,
		Interval: cfg.Ingest.FetchInterval,
	})

	pipeline := services.NewIngestionPipeline(fetcher, store, cfg.Ingest.SetCount)
	result, err := pipeline.Run(ctx)

	// Pushed on failure too so failed runs show up in IngestRunsTotal.
	if pushErr := metrics.PushIngestion(context.Background(), cfg.Ingest.PushgatewayURL); pushErr != nil {
		log.Printf("Warning: %v", pushErr)
	}

	if err != nil {
		log.Printf("Card update failed: %v", err)
		return err
	}

	log.Printf("Card update finished: %d cards from %d sets, version %s", result.CardsUpserted, result.Sets, result.Version)
	return nil
}
