package services

import (
	"fmt"
	"strings"
)

const (
	// DefaultAssetBaseURL serves versioned card art.
	DefaultAssetBaseURL = "https://dd.b.pvp.net"

	assetHost = "dd.b.pvp.net/"
)

// VersionFromAssetPath pulls the release token out of a data dragon asset
// path such as http://dd.b.pvp.net/1_0_0/set1/en_us/img/cards/01DE001.png,
// where it is the first path segment after the host. The set bundles carry
// no explicit version, so this is the only source for it.
func VersionFromAssetPath(path string) (string, error) {
	i := strings.Index(path, assetHost)
	if i < 0 {
		return "", fmt.Errorf("%w: asset path %q is not under %s", ErrVersionDerivation, path, assetHost)
	}

	version, _, found := strings.Cut(path[i+len(assetHost):], "/")
	if !found || version == "" {
		return "", fmt.Errorf("%w: no version segment in asset path %q", ErrVersionDerivation, path)
	}
	return version, nil
}

// CardImageURL builds the game art URL for a card of the given release.
func CardImageURL(baseURL, version, set, language, cardCode string) string {
	if baseURL == "" {
		baseURL = DefaultAssetBaseURL
	}
	return fmt.Sprintf("%s/%s/%s/%s/img/cards/%s.png",
		strings.TrimRight(baseURL, "/"), version, strings.ToLower(set), language, cardCode)
}
