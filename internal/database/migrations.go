package database

import (
	"fmt"
	"log"

	"gorm.io/gorm"
)

// migrate creates the cards and config tables. The filter index is left to
// CreateIndexes so both backends declare it the same way.
func migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&cardRecord{}, &configRecord{}); err != nil {
		return fmt.Errorf("failed to migrate sqlite schema: %w", err)
	}

	log.Println("Database migration completed")
	return nil
}

// ensureCardIndexes adds the composite (region_ref, rarity_ref, collectible)
// index if it is missing.
func ensureCardIndexes(db *gorm.DB) error {
	if db.Migrator().HasIndex(&cardRecord{}, cardFilterIndex) {
		return nil
	}

	result := db.Exec(`CREATE INDEX IF NOT EXISTS ` + cardFilterIndex + `
		ON ` + cardsCollection + ` (region_ref, rarity_ref, collectible)`)
	if result.Error != nil {
		return fmt.Errorf("failed to create card indexes: %w", result.Error)
	}

	log.Printf("Created index %s", cardFilterIndex)
	return nil
}
