package storage

import (
	"strings"

	"github.com/wonny/prisme/backend/internal/contracts"
)

// suffixes maps tier and facet to the artifact file suffix
var suffixes = map[contracts.Tier]map[contracts.Facet]string{
	contracts.TierRaw: {
		contracts.FacetPrices:    "_raw_prices.csv",
		contracts.FacetInfos:     "_raw_infos.json",
		contracts.FacetDividends: "_raw_dividends.csv",
	},
	contracts.TierInterim: {
		contracts.FacetPrices:    "_prices_interim.csv",
		contracts.FacetInfos:     "_infos_interim.json",
		contracts.FacetDividends: "_dividends_interim.csv",
	},
	contracts.TierProcessed: {
		contracts.FacetPrices:    "_data.parquet",
		contracts.FacetInfos:     "_infos.parquet",
		contracts.FacetDividends: "_dividends.parquet",
	},
}

// ArtifactKey identifies one artifact
type ArtifactKey struct {
	Tier  contracts.Tier  `json:"tier"`
	Name  string          `json:"name"`
	Facet contracts.Facet `json:"facet"`
}

// String returns the storage key
func (k ArtifactKey) String() string {
	return Key(k.Tier, k.Name, k.Facet)
}

// Key builds the storage key of an instrument's artifact, e.g.
// "processed/CAC40_ETF_data.parquet"
func Key(tier contracts.Tier, name string, facet contracts.Facet) string {
	return string(tier) + "/" + name + suffixes[tier][facet]
}

// TierPrefix is the List prefix of a tier
func TierPrefix(tier contracts.Tier) string {
	return string(tier) + "/"
}

// ParseKey recovers the tier, instrument name and facet from a key
func ParseKey(key string) (ArtifactKey, bool) {
	tierPart, file, ok := strings.Cut(key, "/")
	if !ok || strings.Contains(file, "/") {
		return ArtifactKey{}, false
	}
	tier := contracts.Tier(tierPart)
	if !tier.Valid() {
		return ArtifactKey{}, false
	}
	for facet, suffix := range suffixes[tier] {
		name, found := strings.CutSuffix(file, suffix)
		if found && name != "" {
			return ArtifactKey{Tier: tier, Name: name, Facet: facet}, true
		}
	}
	return ArtifactKey{}, false
}
