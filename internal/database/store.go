package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/runeterra-roulette/backend/internal/models"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrConnection = errors.New("database connection unavailable")
)

const (
	DriverMongo  = "mongo"
	DriverSQLite = "sqlite"
)

// EmptyFilterPolicy decides what an empty region or rarity set matches.
type EmptyFilterPolicy string

const (
	// EmptyFilterMatchAll treats an empty set as "no constraint".
	EmptyFilterMatchAll EmptyFilterPolicy = "match_all"
	// EmptyFilterMatchNone treats an empty set as "nothing is allowed",
	// which is what a plain $in over an empty array does.
	EmptyFilterMatchNone EmptyFilterPolicy = "match_none"
)

func ParseEmptyFilterPolicy(s string) (EmptyFilterPolicy, error) {
	switch EmptyFilterPolicy(s) {
	case "", EmptyFilterMatchAll:
		return EmptyFilterMatchAll, nil
	case EmptyFilterMatchNone:
		return EmptyFilterMatchNone, nil
	}
	return "", fmt.Errorf("unknown empty filter policy %q", s)
}

// CardQuery selects collectible cards. Limit 0 means unlimited. Projection
// holds upstream field names; nil returns whole documents.
type CardQuery struct {
	Regions    []models.RegionRef
	Rarities   []models.RarityRef
	Limit      int64
	Projection []string
}

// CardCursor is a lazy, single-pass sequence of cards.
type CardCursor interface {
	Next(ctx context.Context) bool
	Card() models.Card
	Err() error
	Close(ctx context.Context) error
}

// Store is the card repository shared by the HTTP server and the ingestion
// command.
type Store interface {
	UpsertCard(ctx context.Context, card *models.Card) error
	FindCards(ctx context.Context, q CardQuery) (CardCursor, error)
	FirstAssetPath(ctx context.Context) (string, error)
	UpsertCollectionVersion(ctx context.Context, version string) error
	GetCollectionVersion(ctx context.Context) (string, error)
	CreateIndexes(ctx context.Context) error
	Close(ctx context.Context) error
}

// Options configures Open.
type Options struct {
	Driver      string
	MongoURI    string
	MongoDBName string
	SQLitePath  string
	EmptyFilter EmptyFilterPolicy
	// StoreTimeout bounds each Mongo round-trip; zero leaves it unbounded.
	StoreTimeout time.Duration
}

// Open connects to the backend named by opts.Driver.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case DriverMongo, "":
		return NewMongoStore(ctx, opts.MongoURI, opts.MongoDBName, opts.EmptyFilter, opts.StoreTimeout)
	case DriverSQLite:
		return NewSQLiteStore(opts.SQLitePath, opts.EmptyFilter)
	}
	return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
}

// CollectCards drains and closes the cursor.
func CollectCards(ctx context.Context, cur CardCursor) ([]models.Card, error) {
	defer cur.Close(ctx)

	cards := make([]models.Card, 0)
	for cur.Next(ctx) {
		cards = append(cards, cur.Card())
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return cards, nil
}

func regionStrings(refs []models.RegionRef) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = string(r)
	}
	return out
}

func rarityStrings(refs []models.RarityRef) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = string(r)
	}
	return out
}
