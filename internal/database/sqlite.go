package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync/atomic"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/runeterra-roulette/backend/internal/models"
)

// cardRecord is the SQLite row for a card. List fields and the unnamed
// upstream keys are stored as JSON.
type cardRecord struct {
	CardCode              string             `gorm:"primaryKey"`
	AssociatedCards       []string           `gorm:"serializer:json"`
	AssociatedCardRefs    []string           `gorm:"serializer:json"`
	Assets                []models.CardAsset `gorm:"serializer:json"`
	Region                string
	RegionRef             string
	Attack                int
	Cost                  int
	Health                int
	Description           string
	DescriptionRaw        string
	LevelupDescription    string
	LevelupDescriptionRaw string
	FlavorText            string
	ArtistName            string
	Name                  string
	Keywords              []string `gorm:"serializer:json"`
	KeywordRefs           []string `gorm:"serializer:json"`
	SpellSpeed            string
	SpellSpeedRef         string
	Rarity                string
	RarityRef             string
	Subtype               string
	Subtypes              []string `gorm:"serializer:json"`
	Supertype             string
	Type                  string
	Collectible           bool
	Set                   string         `gorm:"column:card_set"`
	Extra                 map[string]any `gorm:"serializer:json"`
}

func (cardRecord) TableName() string { return cardsCollection }

type configRecord struct {
	ID      string `gorm:"primaryKey"`
	Version string
}

func (configRecord) TableName() string { return configCollection }

// sqliteColumns maps upstream field names to cardRecord columns for
// projections. Nested asset fields collapse onto the assets column.
var sqliteColumns = map[string]string{
	models.FieldCardCode:         "card_code",
	models.FieldName:             "name",
	models.FieldSet:              "card_set",
	models.FieldRegionRef:        "region_ref",
	models.FieldRarityRef:        "rarity_ref",
	models.FieldCollectible:      "collectible",
	models.FieldAssets:           "assets",
	models.FieldGameAbsolutePath: "assets",
	"assets.fullAbsolutePath":    "assets",
	"region":                     "region",
	"rarity":                     "rarity",
	"attack":                     "attack",
	"cost":                       "cost",
	"health":                     "health",
	"type":                       "type",
	"supertype":                  "supertype",
}

// SQLiteStore is the embedded backend used for local runs and tests. It
// keeps the same document semantics as MongoStore: one row per card code,
// replaced whole on upsert.
type SQLiteStore struct {
	db          *gorm.DB
	emptyFilter EmptyFilterPolicy
	closed      atomic.Bool
}

func NewSQLiteStore(dbPath string, emptyFilter EmptyFilterPolicy) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./runeterra_roulette.db"
	}
	if emptyFilter == "" {
		emptyFilter = EmptyFilterMatchAll
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}

	log.Println("Database connected successfully")

	if err := migrate(db); err != nil {
		return nil, err
	}

	return &SQLiteStore{db: db, emptyFilter: emptyFilter}, nil
}

func (s *SQLiteStore) Close(ctx context.Context) error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close sqlite database: %w", err)
	}
	log.Println("Database connection closed")
	return nil
}

func (s *SQLiteStore) checkOpen() error {
	if s.closed.Load() {
		return fmt.Errorf("%w: store is closed", ErrConnection)
	}
	return nil
}

func (s *SQLiteStore) UpsertCard(ctx context.Context, card *models.Card) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	card.ID = card.CardCode

	rec := toCardRecord(card)
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&rec).Error
	if err != nil {
		return fmt.Errorf("failed to upsert card %s: %w", card.CardCode, err)
	}

	log.Printf("Inserted '%s' to the database", card.Name)
	return nil
}

func (s *SQLiteStore) FindCards(ctx context.Context, q CardQuery) (CardCursor, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	tx := s.db.WithContext(ctx).Model(&cardRecord{}).Where("collectible = ?", true)

	switch {
	case len(q.Regions) > 0:
		tx = tx.Where("region_ref IN ?", regionStrings(q.Regions))
	case s.emptyFilter == EmptyFilterMatchNone:
		tx = tx.Where("1 = 0")
	}
	switch {
	case len(q.Rarities) > 0:
		tx = tx.Where("rarity_ref IN ?", rarityStrings(q.Rarities))
	case s.emptyFilter == EmptyFilterMatchNone:
		tx = tx.Where("1 = 0")
	}

	if cols := projectionColumns(q.Projection); cols != nil {
		tx = tx.Select(cols)
	}
	if q.Limit > 0 {
		tx = tx.Limit(int(q.Limit))
	}

	rows, err := tx.Rows()
	if err != nil {
		return nil, fmt.Errorf("failed to find cards: %w", err)
	}
	return &sqliteCardCursor{db: s.db, rows: rows}, nil
}

func (s *SQLiteStore) FirstAssetPath(ctx context.Context) (string, error) {
	if err := s.checkOpen(); err != nil {
		return "", err
	}

	var rec cardRecord
	err := s.db.WithContext(ctx).Select("card_code", "assets").Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("no cards stored: %w", ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read first card: %w", err)
	}

	if len(rec.Assets) == 0 || rec.Assets[0].GameAbsolutePath == "" {
		return "", fmt.Errorf("card %s has no assets: %w", rec.CardCode, ErrNotFound)
	}
	return rec.Assets[0].GameAbsolutePath, nil
}

func (s *SQLiteStore) UpsertCollectionVersion(ctx context.Context, version string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	rec := configRecord{ID: models.CollectionVersionKey, Version: version}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&rec).Error
	if err != nil {
		return fmt.Errorf("failed to update collection version: %w", err)
	}

	log.Printf("Updated collection version to %s", version)
	return nil
}

func (s *SQLiteStore) GetCollectionVersion(ctx context.Context) (string, error) {
	if err := s.checkOpen(); err != nil {
		return "", err
	}

	var rec configRecord
	err := s.db.WithContext(ctx).First(&rec, "id = ?", models.CollectionVersionKey).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("collection version: %w", ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read collection version: %w", err)
	}
	return rec.Version, nil
}

func (s *SQLiteStore) CreateIndexes(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := ensureCardIndexes(s.db.WithContext(ctx)); err != nil {
		return err
	}
	log.Println("Cards collection indexes updated")
	return nil
}

func projectionColumns(fields []string) []string {
	if len(fields) == 0 {
		return nil
	}

	seen := map[string]bool{"card_code": true}
	cols := []string{"card_code"}
	for _, f := range fields {
		col, ok := sqliteColumns[f]
		if !ok || seen[col] {
			continue
		}
		seen[col] = true
		cols = append(cols, col)
	}
	return cols
}

type sqliteCardCursor struct {
	db   *gorm.DB
	rows *sql.Rows
	card models.Card
	err  error
}

func (c *sqliteCardCursor) Next(ctx context.Context) bool {
	if c.err != nil {
		return false
	}
	if err := ctx.Err(); err != nil {
		c.err = err
		return false
	}
	if !c.rows.Next() {
		return false
	}
	var rec cardRecord
	if err := c.db.ScanRows(c.rows, &rec); err != nil {
		c.err = fmt.Errorf("failed to scan card: %w", err)
		return false
	}
	c.card = rec.toCard()
	return true
}

func (c *sqliteCardCursor) Card() models.Card { return c.card }

func (c *sqliteCardCursor) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.rows.Err()
}

func (c *sqliteCardCursor) Close(ctx context.Context) error {
	return c.rows.Close()
}

func toCardRecord(c *models.Card) cardRecord {
	return cardRecord{
		CardCode:              c.CardCode,
		AssociatedCards:       c.AssociatedCards,
		AssociatedCardRefs:    c.AssociatedCardRefs,
		Assets:                c.Assets,
		Region:                c.Region,
		RegionRef:             string(c.RegionRef),
		Attack:                c.Attack,
		Cost:                  c.Cost,
		Health:                c.Health,
		Description:           c.Description,
		DescriptionRaw:        c.DescriptionRaw,
		LevelupDescription:    c.LevelupDescription,
		LevelupDescriptionRaw: c.LevelupDescriptionRaw,
		FlavorText:            c.FlavorText,
		ArtistName:            c.ArtistName,
		Name:                  c.Name,
		Keywords:              c.Keywords,
		KeywordRefs:           c.KeywordRefs,
		SpellSpeed:            c.SpellSpeed,
		SpellSpeedRef:         c.SpellSpeedRef,
		Rarity:                c.Rarity,
		RarityRef:             string(c.RarityRef),
		Subtype:               c.Subtype,
		Subtypes:              c.Subtypes,
		Supertype:             c.Supertype,
		Type:                  c.Type,
		Collectible:           c.Collectible,
		Set:                   c.Set,
		Extra:                 c.Extra,
	}
}

func (r *cardRecord) toCard() models.Card {
	return models.Card{
		ID:                    r.CardCode,
		AssociatedCards:       r.AssociatedCards,
		AssociatedCardRefs:    r.AssociatedCardRefs,
		Assets:                r.Assets,
		Region:                r.Region,
		RegionRef:             models.RegionRef(r.RegionRef),
		Attack:                r.Attack,
		Cost:                  r.Cost,
		Health:                r.Health,
		Description:           r.Description,
		DescriptionRaw:        r.DescriptionRaw,
		LevelupDescription:    r.LevelupDescription,
		LevelupDescriptionRaw: r.LevelupDescriptionRaw,
		FlavorText:            r.FlavorText,
		ArtistName:            r.ArtistName,
		Name:                  r.Name,
		CardCode:              r.CardCode,
		Keywords:              r.Keywords,
		KeywordRefs:           r.KeywordRefs,
		SpellSpeed:            r.SpellSpeed,
		SpellSpeedRef:         r.SpellSpeedRef,
		Rarity:                r.Rarity,
		RarityRef:             models.RarityRef(r.RarityRef),
		Subtype:               r.Subtype,
		Subtypes:              r.Subtypes,
		Supertype:             r.Supertype,
		Type:                  r.Type,
		Collectible:           r.Collectible,
		Set:                   r.Set,
		Extra:                 r.Extra,
	}
}
