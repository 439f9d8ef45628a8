package models

import (
	"encoding/json"
	"reflect"
	"strings"
)

type RegionRef string

const (
	RegionBilgewater   RegionRef = "Bilgewater"
	RegionDemacia      RegionRef = "Demacia"
	RegionFreljord     RegionRef = "Freljord"
	RegionIonia        RegionRef = "Ionia"
	RegionNoxus        RegionRef = "Noxus"
	RegionPiltoverZaun RegionRef = "PiltoverZaun"
	RegionShadowIsles  RegionRef = "ShadowIsles"
	RegionTargon       RegionRef = "Targon"
)

type RarityRef string

const (
	RarityCommon   RarityRef = "Common"
	RarityRare     RarityRef = "Rare"
	RarityEpic     RarityRef = "Epic"
	RarityChampion RarityRef = "Champion"
)

// Document field names as they appear in the upstream set JSON. Stores and
// projections use these names.
const (
	FieldCardCode         = "cardCode"
	FieldName             = "name"
	FieldSet              = "set"
	FieldRegionRef        = "regionRef"
	FieldRarityRef        = "rarityRef"
	FieldCollectible      = "collectible"
	FieldAssets           = "assets"
	FieldGameAbsolutePath = "assets.gameAbsolutePath"
)

type CardAsset struct {
	GameAbsolutePath string `json:"gameAbsolutePath" bson:"gameAbsolutePath"`
	FullAbsolutePath string `json:"fullAbsolutePath" bson:"fullAbsolutePath"`
}

// Card mirrors one record of a data dragon set file. The card code doubles
// as the document _id. Keys the struct does not name are kept in Extra and
// stored inline, so newer bundle fields reach the store unchanged.
type Card struct {
	ID                    string         `json:"-" bson:"_id"`
	AssociatedCards       []string       `json:"associatedCards" bson:"associatedCards"`
	AssociatedCardRefs    []string       `json:"associatedCardRefs" bson:"associatedCardRefs"`
	Assets                []CardAsset    `json:"assets" bson:"assets"`
	Region                string         `json:"region" bson:"region"`
	RegionRef             RegionRef      `json:"regionRef" bson:"regionRef"`
	Attack                int            `json:"attack" bson:"attack"`
	Cost                  int            `json:"cost" bson:"cost"`
	Health                int            `json:"health" bson:"health"`
	Description           string         `json:"description" bson:"description"`
	DescriptionRaw        string         `json:"descriptionRaw" bson:"descriptionRaw"`
	LevelupDescription    string         `json:"levelupDescription" bson:"levelupDescription"`
	LevelupDescriptionRaw string         `json:"levelupDescriptionRaw" bson:"levelupDescriptionRaw"`
	FlavorText            string         `json:"flavorText" bson:"flavorText"`
	ArtistName            string         `json:"artistName" bson:"artistName"`
	Name                  string         `json:"name" bson:"name"`
	CardCode              string         `json:"cardCode" bson:"cardCode" validate:"required"`
	Keywords              []string       `json:"keywords" bson:"keywords"`
	KeywordRefs           []string       `json:"keywordRefs" bson:"keywordRefs"`
	SpellSpeed            string         `json:"spellSpeed" bson:"spellSpeed"`
	SpellSpeedRef         string         `json:"spellSpeedRef" bson:"spellSpeedRef"`
	Rarity                string         `json:"rarity" bson:"rarity"`
	RarityRef             RarityRef      `json:"rarityRef" bson:"rarityRef"`
	Subtype               string         `json:"subtype" bson:"subtype"`
	Subtypes              []string       `json:"subtypes" bson:"subtypes"`
	Supertype             string         `json:"supertype" bson:"supertype"`
	Type                  string         `json:"type" bson:"type"`
	Collectible           bool           `json:"collectible" bson:"collectible"`
	Set                   string         `json:"set" bson:"set"`
	Extra                 map[string]any `json:"-" bson:",inline"`
}

// cardJSONKeys holds the json names of the Card fields.
var cardJSONKeys = func() map[string]bool {
	keys := make(map[string]bool)
	t := reflect.TypeOf(Card{})
	for i := 0; i < t.NumField(); i++ {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name != "" && name != "-" {
			keys[name] = true
		}
	}
	return keys
}()

func (c *Card) UnmarshalJSON(data []byte) error {
	type plain Card
	var known plain
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*c = Card(known)
	c.Extra = nil
	for key, value := range raw {
		if cardJSONKeys[key] {
			continue
		}
		var v any
		if err := json.Unmarshal(value, &v); err != nil {
			return err
		}
		if c.Extra == nil {
			c.Extra = make(map[string]any)
		}
		c.Extra[key] = v
	}
	return nil
}

// MarshalJSON writes Extra back next to the named fields.
func (c Card) MarshalJSON() ([]byte, error) {
	type plain Card
	data, err := json.Marshal(plain(c))
	if err != nil || len(c.Extra) == 0 {
		return data, err
	}

	merged := make(map[string]any, len(c.Extra))
	for k, v := range c.Extra {
		merged[k] = v
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	for k, v := range fields {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// FirstAssetPath returns the game image path of the first asset, or "" when
// the card has no assets.
func (c *Card) FirstAssetPath() string {
	if len(c.Assets) == 0 {
		return ""
	}
	return c.Assets[0].GameAbsolutePath
}

// CardResponse is the projection served by GET /cards.
type CardResponse struct {
	Name     string `json:"name"`
	Set      string `json:"set"`
	CardCode string `json:"cardCode"`
	ImageURL string `json:"imageUrl"`
}

// CollectionVersion is the single record kept in the config collection.
type CollectionVersion struct {
	ID      string `json:"-" bson:"_id"`
	Version string `json:"version" bson:"version"`
}

const CollectionVersionKey = "version"
