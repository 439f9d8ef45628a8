package models

// DefaultLanguage is the only locale the data dragon bundles are fetched in.
const DefaultLanguage = "en_us"

// RequestFilter is built per request from the GET /cards query string.
// Empty Regions or Rarities leave that dimension to the store's
// EmptyFilterPolicy. Count 0 means no limit.
type RequestFilter struct {
	Regions  []RegionRef `json:"regions"`
	Rarities []RarityRef `json:"rarities"`
	Count    int         `json:"count"`
	Language string      `json:"language"`
}
