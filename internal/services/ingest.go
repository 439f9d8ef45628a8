package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/runeterra-roulette/backend/internal/metrics"
	"github.com/runeterra-roulette/backend/internal/models"
)

// DefaultSetCount is the number of Legends of Runeterra sets to ingest.
const DefaultSetCount = 3

// CardWriter is the write side of the card store used by ingestion.
type CardWriter interface {
	UpsertCard(ctx context.Context, card *models.Card) error
	FirstAssetPath(ctx context.Context) (string, error)
	UpsertCollectionVersion(ctx context.Context, version string) error
	CreateIndexes(ctx context.Context) error
}

// SetSource is what the pipeline needs from a SetFetcher.
type SetSource interface {
	Prepare() error
	Download(ctx context.Context, setNum int) (string, error)
	Extract(setNum int) (string, error)
	Cleanup() error
}

type IngestResult struct {
	RunID         string        `json:"run_id"`
	Sets          int           `json:"sets"`
	CardsUpserted int           `json:"cards_upserted"`
	Version       string        `json:"version"`
	Duration      time.Duration `json:"duration"`
}

// IngestionPipeline refreshes the card store from the data dragon set
// bundles: download every set, extract its JSON, upsert each card, then
// declare indexes and record the collection version.
type IngestionPipeline struct {
	source   SetSource
	store    CardWriter
	setCount int
	validate *validator.Validate
}

func NewIngestionPipeline(source SetSource, store CardWriter, setCount int) *IngestionPipeline {
	if setCount <= 0 {
		setCount = DefaultSetCount
	}
	return &IngestionPipeline{
		source:   source,
		store:    store,
		setCount: setCount,
		validate: validator.New(),
	}
}

// Run executes one ingestion. Any error stops the remaining steps; cards
// upserted before the failure stay in the store. The working directory is
// removed on every exit path and a failed removal is only logged.
func (p *IngestionPipeline) Run(ctx context.Context) (*IngestResult, error) {
	start := time.Now()
	result := &IngestResult{RunID: uuid.NewString()}

	log.Printf("[%s] Starting card ingestion for %d sets", result.RunID, p.setCount)

	if err := p.source.Prepare(); err != nil {
		return p.finish(result, start, err)
	}
	defer func() {
		if err := p.source.Cleanup(); err != nil {
			log.Printf("[%s] Warning: %v", result.RunID, err)
		}
	}()

	for setNum := 1; setNum <= p.setCount; setNum++ {
		if _, err := p.source.Download(ctx, setNum); err != nil {
			return p.finish(result, start, err)
		}
	}

	paths := make([]string, 0, p.setCount)
	for setNum := 1; setNum <= p.setCount; setNum++ {
		path, err := p.source.Extract(setNum)
		if err != nil {
			return p.finish(result, start, err)
		}
		paths = append(paths, path)
	}

	for _, path := range paths {
		n, err := p.IngestSetFile(ctx, path)
		result.CardsUpserted += n
		if err != nil {
			return p.finish(result, start, err)
		}
		result.Sets++
	}

	if err := p.store.CreateIndexes(ctx); err != nil {
		return p.finish(result, start, err)
	}

	version, err := p.RecordCollectionVersion(ctx)
	if err != nil {
		return p.finish(result, start, err)
	}
	result.Version = version

	return p.finish(result, start, nil)
}

// IngestSetFile parses one extracted set JSON file and upserts every card in
// it, returning how many were written. Every key of a record is kept,
// including ones the Card struct does not name. Malformed JSON or a record
// without a card code wraps ErrParse and nothing from that file is written.
func (p *IngestionPipeline) IngestSetFile(ctx context.Context, path string) (int, error) {
	cards, err := p.readSetFile(path)
	if err != nil {
		return 0, err
	}

	upserted := 0
	for i := range cards {
		if err := p.store.UpsertCard(ctx, &cards[i]); err != nil {
			return upserted, err
		}
		upserted++
		metrics.IngestCardsUpserted.Inc()
	}

	log.Printf("Upserted %d cards from %s", upserted, path)
	return upserted, nil
}

func (p *IngestionPipeline) readSetFile(path string) ([]models.Card, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %v", ErrParse, path, err)
	}

	var cards []models.Card
	if err := json.Unmarshal(data, &cards); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrParse, path, err)
	}

	for i := range cards {
		if err := p.validate.Struct(&cards[i]); err != nil {
			return nil, fmt.Errorf("%w: record %d in %s: %v", ErrParse, i, path, err)
		}
		cards[i].ID = cards[i].CardCode
	}
	return cards, nil
}

// RecordCollectionVersion derives the release version from a stored card's
// asset path and saves it. Failures wrap ErrVersionDerivation and leave the
// stored cards untouched.
func (p *IngestionPipeline) RecordCollectionVersion(ctx context.Context) (string, error) {
	log.Println("Deriving collection version from the first stored card")

	path, err := p.store.FirstAssetPath(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrVersionDerivation, err)
	}

	version, err := VersionFromAssetPath(path)
	if err != nil {
		return "", err
	}

	if err := p.store.UpsertCollectionVersion(ctx, version); err != nil {
		return "", fmt.Errorf("%w: %v", ErrVersionDerivation, err)
	}
	return version, nil
}

func (p *IngestionPipeline) finish(result *IngestResult, start time.Time, err error) (*IngestResult, error) {
	result.Duration = time.Since(start)
	metrics.IngestDuration.Observe(result.Duration.Seconds())

	if err != nil {
		metrics.IngestRunsTotal.WithLabelValues("failed").Inc()
		log.Printf("[%s] Card ingestion failed after %s: %v", result.RunID, result.Duration, err)
		return result, err
	}

	metrics.IngestRunsTotal.WithLabelValues("success").Inc()
	metrics.CollectionVersionInfo.Reset()
	metrics.CollectionVersionInfo.WithLabelValues(result.Version).Set(1)
	log.Printf("[%s] Card ingestion completed: %d sets, %d cards, version %s in %s",
		result.RunID, result.Sets, result.CardsUpserted, result.Version, result.Duration)
	return result, nil
}
