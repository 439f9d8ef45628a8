package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/runeterra-roulette/backend/internal/models"
)

func TestBuildCardFilter(t *testing.T) {
	tests := []struct {
		name   string
		q      CardQuery
		policy EmptyFilterPolicy
		want   bson.D
	}{
		{
			name:   "rarity only, match all",
			q:      CardQuery{Regions: []models.RegionRef{}, Rarities: []models.RarityRef{models.RarityRare}},
			policy: EmptyFilterMatchAll,
			want: bson.D{
				{Key: "collectible", Value: true},
				{Key: "rarityRef", Value: bson.D{{Key: "$in", Value: []string{"Rare"}}}},
			},
		},
		{
			name:   "rarity only, match none",
			q:      CardQuery{Rarities: []models.RarityRef{models.RarityRare}},
			policy: EmptyFilterMatchNone,
			want: bson.D{
				{Key: "collectible", Value: true},
				{Key: "regionRef", Value: bson.D{{Key: "$in", Value: []string{}}}},
				{Key: "rarityRef", Value: bson.D{{Key: "$in", Value: []string{"Rare"}}}},
			},
		},
		{
			name: "both sets",
			q: CardQuery{
				Regions:  []models.RegionRef{models.RegionNoxus, models.RegionPiltoverZaun},
				Rarities: []models.RarityRef{models.RarityChampion},
			},
			policy: EmptyFilterMatchAll,
			want: bson.D{
				{Key: "collectible", Value: true},
				{Key: "regionRef", Value: bson.D{{Key: "$in", Value: []string{"Noxus", "PiltoverZaun"}}}},
				{Key: "rarityRef", Value: bson.D{{Key: "$in", Value: []string{"Champion"}}}},
			},
		},
		{
			name:   "empty, match all",
			q:      CardQuery{},
			policy: EmptyFilterMatchAll,
			want:   bson.D{{Key: "collectible", Value: true}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildCardFilter(tt.q, tt.policy))
		})
	}
}

func TestBuildProjection(t *testing.T) {
	assert.Nil(t, buildProjection(nil))

	got := buildProjection([]string{models.FieldName, models.FieldGameAbsolutePath})
	assert.Equal(t, bson.D{
		{Key: "name", Value: 1},
		{Key: "assets.gameAbsolutePath", Value: 1},
		{Key: "cardCode", Value: 1},
	}, got)

	got = buildProjection([]string{models.FieldCardCode, models.FieldSet})
	assert.Len(t, got, 2)
}
