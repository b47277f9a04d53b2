package transform

import "time"

// PriceRow is one processed price bar.
// ⭐ SSOT: column names and order of {name}_data.parquet
type PriceRow struct {
	Date   time.Time `parquet:"Date,timestamp(millisecond:local)"`
	Open   float64   `parquet:"Open"`
	High   float64   `parquet:"High"`
	Low    float64   `parquet:"Low"`
	Close  float64   `parquet:"Close"`
	Volume int64     `parquet:"Volume"`
}

// DividendRow is one processed distribution
type DividendRow struct {
	Date      time.Time `parquet:"Date,timestamp(millisecond:local)"`
	Dividends float64   `parquet:"Dividends"`
}

// InfoRow is the dashboard-facing descriptive record.
// ⭐ SSOT: must stay in sync with AllowList
// Pointer fields are optional columns; nil is written as null.
type InfoRow struct {
	Symbol                 *string  `parquet:"symbol" json:"symbol"`
	ShortName              *string  `parquet:"shortName" json:"shortName"`
	LongName               *string  `parquet:"longName" json:"longName"`
	FundFamily             *string  `parquet:"fundFamily" json:"fundFamily"`
	LegalType              *string  `parquet:"legalType" json:"legalType"`
	Currency               *string  `parquet:"currency" json:"currency"`
	NetAssets              *float64 `parquet:"netAssets" json:"netAssets"`
	NavPrice               *float64 `parquet:"navPrice" json:"navPrice"`
	RegularMarketPrice     *float64 `parquet:"regularMarketPrice" json:"regularMarketPrice"`
	YtdReturn              *float64 `parquet:"ytdReturn" json:"ytdReturn"`
	ThreeYearAverageReturn *float64 `parquet:"threeYearAverageReturn" json:"threeYearAverageReturn"`
	FiveYearAverageReturn  *float64 `parquet:"fiveYearAverageReturn" json:"fiveYearAverageReturn"`
	Beta3Year              *float64 `parquet:"beta3Year" json:"beta3Year"`
	Yield                  *float64 `parquet:"yield" json:"yield"`
	DividendYield          *float64 `parquet:"dividendYield" json:"dividendYield"`
	FiftyTwoWeekLow        *float64 `parquet:"fiftyTwoWeekLow" json:"fiftyTwoWeekLow"`
	FiftyTwoWeekHigh       *float64 `parquet:"fiftyTwoWeekHigh" json:"fiftyTwoWeekHigh"`
}

// Fields returns the row as allow-listed key → value (nil for null)
func (r InfoRow) Fields() map[string]any {
	m := make(map[string]any, len(AllowList))
	for _, f := range infoFields(&r) {
		switch p := f.ptr.(type) {
		case **string:
			if *p == nil {
				m[f.key] = nil
			} else {
				m[f.key] = **p
			}
		case **float64:
			if *p == nil {
				m[f.key] = nil
			} else {
				m[f.key] = **p
			}
		}
	}
	return m
}
