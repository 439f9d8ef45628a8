package database

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/runeterra-roulette/backend/internal/models"
)

const (
	DefaultMongoURI      = "mongodb://localhost:27017/"
	DefaultMongoDatabase = "runeterra-roulette-db"

	cardsCollection  = "cards"
	configCollection = "config"

	// cardFilterIndex backs the region/rarity/collectible query of FindCards.
	cardFilterIndex = "idx_cards_region_rarity_collectible"
)

// MongoStore keeps cards in the "cards" collection keyed by card code and
// the collection version in the "config" collection.
type MongoStore struct {
	client      *mongo.Client
	cards       *mongo.Collection
	config      *mongo.Collection
	emptyFilter EmptyFilterPolicy
	closed      atomic.Bool
}

// NewMongoStore connects and pings the server. storeTimeout bounds every
// round-trip made through the client when positive.
func NewMongoStore(ctx context.Context, uri, dbName string, emptyFilter EmptyFilterPolicy, storeTimeout time.Duration) (*MongoStore, error) {
	if uri == "" {
		uri = DefaultMongoURI
	}
	if dbName == "" {
		dbName = DefaultMongoDatabase
	}
	if emptyFilter == "" {
		emptyFilter = EmptyFilterMatchAll
	}

	clientOpts := options.Client().ApplyURI(uri)
	if storeTimeout > 0 {
		clientOpts.SetTimeout(storeTimeout)
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}

	log.Println("Connection to mongodb established")

	db := client.Database(dbName)
	return &MongoStore{
		client:      client,
		cards:       db.Collection(cardsCollection),
		config:      db.Collection(configCollection),
		emptyFilter: emptyFilter,
	}, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from mongodb: %w", err)
	}
	log.Println("Connection to mongodb closed")
	return nil
}

func (s *MongoStore) checkOpen() error {
	if s.closed.Load() {
		return fmt.Errorf("%w: store is closed", ErrConnection)
	}
	return nil
}

// UpsertCard replaces the whole document for card.CardCode, inserting it if
// it does not exist yet.
func (s *MongoStore) UpsertCard(ctx context.Context, card *models.Card) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	card.ID = card.CardCode

	_, err := s.cards.ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: card.CardCode}},
		card,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return wrapMongoErr("failed to upsert card "+card.CardCode, err)
	}

	log.Printf("Inserted '%s' to the database", card.Name)
	return nil
}

func (s *MongoStore) FindCards(ctx context.Context, q CardQuery) (CardCursor, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	filter := buildCardFilter(q, s.emptyFilter)
	opts := options.Find()
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}
	if proj := buildProjection(q.Projection); proj != nil {
		opts.SetProjection(proj)
	}

	log.Printf("Card search query: %v", filter)

	cur, err := s.cards.Find(ctx, filter, opts)
	if err != nil {
		return nil, wrapMongoErr("failed to find cards", err)
	}
	return &mongoCardCursor{cur: cur}, nil
}

// FirstAssetPath is only reliable as long as data dragon keeps the release
// version as the first path segment of asset URLs.
func (s *MongoStore) FirstAssetPath(ctx context.Context) (string, error) {
	if err := s.checkOpen(); err != nil {
		return "", err
	}

	var card models.Card
	err := s.cards.FindOne(ctx, bson.D{},
		options.FindOne().SetProjection(bson.D{{Key: models.FieldGameAbsolutePath, Value: 1}}),
	).Decode(&card)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", fmt.Errorf("no cards stored: %w", ErrNotFound)
	}
	if err != nil {
		return "", wrapMongoErr("failed to read first card", err)
	}

	path := card.FirstAssetPath()
	if path == "" {
		return "", fmt.Errorf("card %s has no assets: %w", card.ID, ErrNotFound)
	}
	return path, nil
}

func (s *MongoStore) UpsertCollectionVersion(ctx context.Context, version string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	doc := models.CollectionVersion{ID: models.CollectionVersionKey, Version: version}
	_, err := s.config.ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: models.CollectionVersionKey}},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return wrapMongoErr("failed to update collection version", err)
	}

	log.Printf("Updated collection version to %s", version)
	return nil
}

func (s *MongoStore) GetCollectionVersion(ctx context.Context) (string, error) {
	if err := s.checkOpen(); err != nil {
		return "", err
	}

	var doc models.CollectionVersion
	err := s.config.FindOne(ctx, bson.D{{Key: "_id", Value: models.CollectionVersionKey}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", fmt.Errorf("collection version: %w", ErrNotFound)
	}
	if err != nil {
		return "", wrapMongoErr("failed to read collection version", err)
	}
	return doc.Version, nil
}

// CreateIndexes is idempotent: creating an identical index is a no-op on
// the server.
func (s *MongoStore) CreateIndexes(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	_, err := s.cards.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: models.FieldRegionRef, Value: 1},
			{Key: models.FieldRarityRef, Value: 1},
			{Key: models.FieldCollectible, Value: 1},
		},
		Options: options.Index().SetName(cardFilterIndex),
	})
	if err != nil {
		return wrapMongoErr("failed to create card indexes", err)
	}

	log.Println("Cards collection indexes updated")
	return nil
}

// buildCardFilter always pins collectible=true. An empty region or rarity
// set is dropped under EmptyFilterMatchAll and becomes an empty $in under
// EmptyFilterMatchNone.
func buildCardFilter(q CardQuery, policy EmptyFilterPolicy) bson.D {
	filter := bson.D{{Key: models.FieldCollectible, Value: true}}

	if len(q.Regions) > 0 || policy == EmptyFilterMatchNone {
		filter = append(filter, bson.E{Key: models.FieldRegionRef, Value: bson.D{{Key: "$in", Value: regionStrings(q.Regions)}}})
	}
	if len(q.Rarities) > 0 || policy == EmptyFilterMatchNone {
		filter = append(filter, bson.E{Key: models.FieldRarityRef, Value: bson.D{{Key: "$in", Value: rarityStrings(q.Rarities)}}})
	}
	return filter
}

// buildProjection includes the card code even when it was not asked for so
// results can always be told apart.
func buildProjection(fields []string) bson.D {
	if len(fields) == 0 {
		return nil
	}

	proj := make(bson.D, 0, len(fields)+1)
	hasCode := false
	for _, f := range fields {
		if f == models.FieldCardCode {
			hasCode = true
		}
		proj = append(proj, bson.E{Key: f, Value: 1})
	}
	if !hasCode {
		proj = append(proj, bson.E{Key: models.FieldCardCode, Value: 1})
	}
	return proj
}

func wrapMongoErr(msg string, err error) error {
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) || errors.Is(err, mongo.ErrClientDisconnected) {
		return fmt.Errorf("%s: %w: %v", msg, ErrConnection, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

type mongoCardCursor struct {
	cur  *mongo.Cursor
	card models.Card
	err  error
}

func (c *mongoCardCursor) Next(ctx context.Context) bool {
	if c.err != nil {
		return false
	}
	if !c.cur.Next(ctx) {
		return false
	}
	var card models.Card
	if err := c.cur.Decode(&card); err != nil {
		c.err = fmt.Errorf("failed to decode card: %w", err)
		return false
	}
	c.card = card
	return true
}

func (c *mongoCardCursor) Card() models.Card { return c.card }

func (c *mongoCardCursor) Err() error {
	if c.err != nil {
		return c.err
	}
	if err := c.cur.Err(); err != nil {
		return wrapMongoErr("card cursor failed", err)
	}
	return nil
}

func (c *mongoCardCursor) Close(ctx context.Context) error {
	return c.cur.Close(ctx)
}
