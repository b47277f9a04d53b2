package transform

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Kind is the processed-tier type of an allow-listed attribute
type Kind int

const (
	KindString Kind = iota
	KindDouble
)

// Attribute is one allow-listed descriptive key
type Attribute struct {
	Key  string
	Kind Kind
}

// AllowList is the fixed set of descriptive keys reaching the processed tier
// ⭐ SSOT: identity, valuation, performance, dividend and 52-week range fields
var AllowList = []Attribute{
	{"symbol", KindString},
	{"shortName", KindString},
	{"longName", KindString},
	{"fundFamily", KindString},
	{"legalType", KindString},
	{"currency", KindString},
	{"netAssets", KindDouble},
	{"navPrice", KindDouble},
	{"regularMarketPrice", KindDouble},
	{"ytdReturn", KindDouble},
	{"threeYearAverageReturn", KindDouble},
	{"fiveYearAverageReturn", KindDouble},
	{"beta3Year", KindDouble},
	{"yield", KindDouble},
	{"dividendYield", KindDouble},
	{"fiftyTwoWeekLow", KindDouble},
	{"fiftyTwoWeekHigh", KindDouble},
}

// AllowListKeys returns the allow-listed keys in their stable order
func AllowListKeys() []string {
	keys := make([]string, len(AllowList))
	for i, a := range AllowList {
		keys[i] = a.Key
	}
	return keys
}

type infoField struct {
	key string
	ptr any // **string or **float64
}

// infoFields binds AllowList order to InfoRow fields
func infoFields(r *InfoRow) []infoField {
	return []infoField{
		{"symbol", &r.Symbol},
		{"shortName", &r.ShortName},
		{"longName", &r.LongName},
		{"fundFamily", &r.FundFamily},
		{"legalType", &r.LegalType},
		{"currency", &r.Currency},
		{"netAssets", &r.NetAssets},
		{"navPrice", &r.NavPrice},
		{"regularMarketPrice", &r.RegularMarketPrice},
		{"ytdReturn", &r.YtdReturn},
		{"threeYearAverageReturn", &r.ThreeYearAverageReturn},
		{"fiveYearAverageReturn", &r.FiveYearAverageReturn},
		{"beta3Year", &r.Beta3Year},
		{"yield", &r.Yield},
		{"dividendYield", &r.DividendYield},
		{"fiftyTwoWeekLow", &r.FiftyTwoWeekLow},
		{"fiftyTwoWeekHigh", &r.FiftyTwoWeekHigh},
	}
}

// asString formats numbers; anything else that is not a string is null
func asString(v any) *string {
	var s string
	switch x := v.(type) {
	case string:
		s = x
	case json.Number:
		s = x.String()
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
		s = strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		s = strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		s = strconv.Itoa(x)
	case int64:
		s = strconv.FormatInt(x, 10)
	default:
		return nil
	}
	return &s
}

// asDouble parses numeric strings; anything else that is not a number is null
func asDouble(v any) *float64 {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) {
		return nil
	}
	return &f
}
