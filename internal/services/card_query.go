package services

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/runeterra-roulette/backend/internal/database"
	"github.com/runeterra-roulette/backend/internal/metrics"
	"github.com/runeterra-roulette/backend/internal/models"
)

// DefaultVersionCacheTTL is how long a collection version read from the
// store is reused before it is looked up again.
const DefaultVersionCacheTTL = 5 * time.Minute

const versionCacheKey = "version"

// cardProjection is all GET /cards needs from a stored card.
var cardProjection = []string{
	models.FieldName,
	models.FieldSet,
	models.FieldCardCode,
	models.FieldGameAbsolutePath,
}

// CardFinder is the read side of the card store.
type CardFinder interface {
	FindCards(ctx context.Context, q database.CardQuery) (database.CardCursor, error)
	GetCollectionVersion(ctx context.Context) (string, error)
}

type CardQueryService struct {
	store        CardFinder
	assetBaseURL string
	versionCache *expirable.LRU[string, string]
	shuffle      func(n int, swap func(i, j int))
}

func NewCardQueryService(store CardFinder, assetBaseURL string, versionTTL time.Duration) *CardQueryService {
	if versionTTL <= 0 {
		versionTTL = DefaultVersionCacheTTL
	}
	return &CardQueryService{
		store:        store,
		assetBaseURL: assetBaseURL,
		versionCache: expirable.NewLRU[string, string](1, nil, versionTTL),
		shuffle:      rand.Shuffle,
	}
}

// ServeCards returns the collectible cards matching filter. All matches are
// fetched; when filter.Count is set they are shuffled and cut down to Count
// here rather than in the store, so every match has the same chance of
// being picked.
func (s *CardQueryService) ServeCards(ctx context.Context, filter models.RequestFilter) ([]models.CardResponse, error) {
	start := time.Now()

	cur, err := s.store.FindCards(ctx, database.CardQuery{
		Regions:    filter.Regions,
		Rarities:   filter.Rarities,
		Limit:      0,
		Projection: cardProjection,
	})
	if err != nil {
		return nil, err
	}

	cards, err := database.CollectCards(ctx, cur)
	if err != nil {
		return nil, err
	}
	matched := len(cards)

	if filter.Count > 0 {
		s.shuffle(len(cards), func(i, j int) {
			cards[i], cards[j] = cards[j], cards[i]
		})
		if filter.Count < len(cards) {
			cards = cards[:filter.Count]
		}
	}

	// Cards are still served when no version has been recorded yet; their
	// image URL then falls back to the stored asset path.
	version, err := s.CollectionVersion(ctx)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	language := filter.Language
	if language == "" {
		language = models.DefaultLanguage
	}

	resp := make([]models.CardResponse, len(cards))
	for i := range cards {
		resp[i] = s.toResponse(&cards[i], version, language)
	}

	metrics.CardQueryDuration.Observe(time.Since(start).Seconds())
	metrics.CardsServedTotal.Add(float64(len(resp)))
	log.Printf("Served %d of %d matching cards", len(resp), matched)

	return resp, nil
}

// CollectionVersion returns the current data release, going to the store
// only when the cached value has expired. ErrNotFound is not cached.
func (s *CardQueryService) CollectionVersion(ctx context.Context) (string, error) {
	if version, ok := s.versionCache.Get(versionCacheKey); ok {
		metrics.VersionCacheHits.Inc()
		return version, nil
	}
	metrics.VersionCacheMisses.Inc()

	version, err := s.store.GetCollectionVersion(ctx)
	if err != nil {
		return "", err
	}
	s.versionCache.Add(versionCacheKey, version)
	return version, nil
}

func (s *CardQueryService) toResponse(card *models.Card, version, language string) models.CardResponse {
	imageURL := card.FirstAssetPath()
	if version != "" {
		imageURL = CardImageURL(s.assetBaseURL, version, card.Set, language, card.CardCode)
	}
	return models.CardResponse{
		Name:     card.Name,
		Set:      card.Set,
		CardCode: card.CardCode,
		ImageURL: imageURL,
	}
}
