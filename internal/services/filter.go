package services

import (
	"fmt"
	"strconv"

	"github.com/runeterra-roulette/backend/internal/models"
)

// CountParam is the query parameter holding the number of cards to return.
const CountParam = "count"

// requestFlags maps each boolean query parameter to the region or rarity it
// selects. Exactly one of region/rarity is set per entry.
var requestFlags = []struct {
	param  string
	region models.RegionRef
	rarity models.RarityRef
}{
	{param: "common", rarity: models.RarityCommon},
	{param: "rare", rarity: models.RarityRare},
	{param: "epic", rarity: models.RarityEpic},
	{param: "champion", rarity: models.RarityChampion},
	{param: "bilgewater", region: models.RegionBilgewater},
	{param: "demacia", region: models.RegionDemacia},
	{param: "freljord", region: models.RegionFreljord},
	{param: "ionia", region: models.RegionIonia},
	{param: "noxus", region: models.RegionNoxus},
	{param: "piltover_and_zaun", region: models.RegionPiltoverZaun},
	{param: "shadow_isles", region: models.RegionShadowIsles},
	{param: "targon", region: models.RegionTargon},
}

// BuildRequestFilter turns GET /cards query parameters into a RequestFilter.
// A flag only counts when its value is exactly "true"; anything else,
// including unknown keys, is ignored. count defaults to 0 (no limit) and
// must be a non-negative integer when given.
func BuildRequestFilter(params map[string]string) (models.RequestFilter, error) {
	filter := models.RequestFilter{
		Regions:  []models.RegionRef{},
		Rarities: []models.RarityRef{},
		Language: models.DefaultLanguage,
	}

	for _, flag := range requestFlags {
		if params[flag.param] != "true" {
			continue
		}
		if flag.region != "" {
			filter.Regions = append(filter.Regions, flag.region)
		} else {
			filter.Rarities = append(filter.Rarities, flag.rarity)
		}
	}

	if raw := params[CountParam]; raw != "" {
		count, err := strconv.Atoi(raw)
		if err != nil {
			return models.RequestFilter{}, fmt.Errorf("%w: count must be an integer, got %q", ErrInvalidParameter, raw)
		}
		if count < 0 {
			return models.RequestFilter{}, fmt.Errorf("%w: count must not be negative, got %d", ErrInvalidParameter, count)
		}
		filter.Count = count
	}

	return filter, nil
}
