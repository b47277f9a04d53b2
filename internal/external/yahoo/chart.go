package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"
	_ "time/tzdata" // exchange timezones in minimal containers

	"github.com/wonny/prisme/backend/internal/contracts"
)

// Extra price columns, named as yfinance names them
const (
	ColumnDividends   = "Dividends"
	ColumnStockSplits = "Stock Splits"
	// DividendColumn is the value column of the dividend facet
	DividendColumn = "amount"
)

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *apiError     `json:"error"`
	} `json:"chart"`
}

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Meta struct {
		Symbol               string `json:"symbol"`
		Currency             string `json:"currency"`
		ExchangeTimezoneName string `json:"exchangeTimezoneName"`
		GMTOffset            int    `json:"gmtoffset"`
	} `json:"meta"`
	Timestamp []int64 `json:"timestamp"`
	Events    struct {
		Dividends map[string]dividendEvent `json:"dividends"`
		Splits    map[string]splitEvent    `json:"splits"`
	} `json:"events"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*float64 `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

type dividendEvent struct {
	Amount float64 `json:"amount"`
	Date   int64   `json:"date"`
}

type splitEvent struct {
	Date        int64   `json:"date"`
	Numerator   float64 `json:"numerator"`
	Denominator float64 `json:"denominator"`
}

// fetchChart returns the chart result, or nil when Yahoo has no data
func (c *Client) fetchChart(ctx context.Context, ticker, rangeParam string) (*chartResult, error) {
	params := url.Values{}
	params.Set("range", rangeParam)
	params.Set("interval", "1d")
	params.Set("events", "div,split")
	fullURL := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(ticker), params.Encode())

	body, err := c.fetch(ctx, fullURL)
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var resp chartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse chart response failed: %w", err)
	}
	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("chart error %s: %s", resp.Chart.Error.Code, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, nil
	}
	return &resp.Chart.Result[0], nil
}

// History fetches daily bars for period ("1y", "5y", "max", ...)
func (c *Client) History(ctx context.Context, ticker, period string) (contracts.PriceSeries, error) {
	result, err := c.fetchChart(ctx, ticker, period)
	if err != nil {
		return contracts.PriceSeries{}, err
	}
	if result == nil {
		c.logger.WithField("ticker", ticker).Debug("no chart data")
		return contracts.PriceSeries{}, nil
	}

	series := parseHistory(result)
	c.logger.WithFields(map[string]interface{}{
		"ticker": ticker,
		"period": period,
		"count":  series.Len(),
	}).Debug("Fetched history")
	return series, nil
}

// Dividends fetches the full distribution history
func (c *Client) Dividends(ctx context.Context, ticker string) (contracts.DistributionSeries, error) {
	result, err := c.fetchChart(ctx, ticker, "max")
	if err != nil {
		return contracts.DistributionSeries{Column: DividendColumn}, err
	}
	if result == nil {
		return contracts.DistributionSeries{Column: DividendColumn}, nil
	}
	return parseDividends(result), nil
}

// location resolves the exchange timezone, falling back to its fixed offset
func (r *chartResult) location() *time.Location {
	if r.Meta.ExchangeTimezoneName != "" {
		if loc, err := time.LoadLocation(r.Meta.ExchangeTimezoneName); err == nil {
			return loc
		}
	}
	if r.Meta.GMTOffset != 0 {
		return time.FixedZone(r.Meta.ExchangeTimezoneName, r.Meta.GMTOffset)
	}
	return time.UTC
}

// sessionDate is midnight of the exchange-local trading day
func sessionDate(unix int64, loc *time.Location) time.Time {
	t := time.Unix(unix, 0).In(loc)
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func parseHistory(r *chartResult) contracts.PriceSeries {
	series := contracts.PriceSeries{Extra: []string{ColumnDividends, ColumnStockSplits}}
	if len(r.Indicators.Quote) == 0 {
		return series
	}
	loc := r.location()
	q := r.Indicators.Quote[0]

	dividends := make(map[int64]float64, len(r.Events.Dividends))
	for _, ev := range r.Events.Dividends {
		dividends[sessionDate(ev.Date, loc).Unix()] += ev.Amount
	}
	splits := make(map[int64]float64, len(r.Events.Splits))
	for _, ev := range r.Events.Splits {
		if ev.Denominator != 0 {
			splits[sessionDate(ev.Date, loc).Unix()] = ev.Numerator / ev.Denominator
		}
	}

	for i, ts := range r.Timestamp {
		open, high, low, closePrice := at(q.Open, i), at(q.High, i), at(q.Low, i), at(q.Close, i)
		if open == nil || high == nil || low == nil || closePrice == nil {
			continue
		}
		var volume int64
		if v := at(q.Volume, i); v != nil {
			volume = int64(*v)
		}
		day := sessionDate(ts, loc)
		series.Bars = append(series.Bars, contracts.Bar{
			Time:   day,
			Open:   *open,
			High:   *high,
			Low:    *low,
			Close:  *closePrice,
			Volume: volume,
			Extra:  []float64{dividends[day.Unix()], splits[day.Unix()]},
		})
	}
	series.SortAndDedupe()
	return series
}

func parseDividends(r *chartResult) contracts.DistributionSeries {
	series := contracts.DistributionSeries{Column: DividendColumn}
	loc := r.location()

	events := make([]dividendEvent, 0, len(r.Events.Dividends))
	for _, ev := range r.Events.Dividends {
		events = append(events, ev)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Date < events[j].Date })

	for _, ev := range events {
		day := sessionDate(ev.Date, loc)
		if n := len(series.Points); n > 0 && series.Points[n-1].Time.Equal(day) {
			series.Points[n-1].Amount += ev.Amount
			continue
		}
		series.Points = append(series.Points, contracts.Distribution{Time: day, Amount: ev.Amount})
	}
	return series
}

func at(values []*float64, i int) *float64 {
	if i >= len(values) {
		return nil
	}
	return values[i]
}
