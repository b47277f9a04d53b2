package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/wonny/prisme/backend/internal/contracts"
)

// QuoteModules are the quoteSummary modules merged into the info document.
// Earlier modules win when two modules carry the same field.
var QuoteModules = []string{
	"quoteType",
	"price",
	"summaryDetail",
	"defaultKeyStatistics",
	"fundProfile",
	"assetProfile",
	"financialData",
}

type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []map[string]json.RawMessage `json:"result"`
		Error  *apiError                    `json:"error"`
	} `json:"quoteSummary"`
}

// Info fetches the descriptive document, flattened to field → raw value
func (c *Client) Info(ctx context.Context, ticker string) (contracts.DescriptiveRecord, error) {
	crumb, err := c.getCrumb(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("modules", strings.Join(QuoteModules, ","))
	params.Set("crumb", crumb)
	fullURL := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?%s", c.baseURL, url.PathEscape(ticker), params.Encode())

	body, err := c.fetch(ctx, fullURL)
	if err != nil {
		switch {
		case isStatus(err, http.StatusNotFound):
			c.logger.WithField("ticker", ticker).Debug("no quote summary")
			return contracts.DescriptiveRecord{}, nil
		case isStatus(err, http.StatusUnauthorized):
			// stale crumb; the next call performs a fresh handshake
			c.resetCrumb()
		}
		return nil, err
	}

	record, err := parseQuoteSummary(body)
	if err != nil {
		return nil, err
	}

	c.logger.WithFields(map[string]interface{}{
		"ticker": ticker,
		"fields": len(record),
	}).Debug("Fetched info")
	return record, nil
}

func parseQuoteSummary(body []byte) (contracts.DescriptiveRecord, error) {
	var resp quoteSummaryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse quote summary failed: %w", err)
	}
	if resp.QuoteSummary.Error != nil {
		return nil, fmt.Errorf("quote summary error %s: %s", resp.QuoteSummary.Error.Code, resp.QuoteSummary.Error.Description)
	}

	record := contracts.DescriptiveRecord{}
	if len(resp.QuoteSummary.Result) == 0 {
		return record, nil
	}
	modules := resp.QuoteSummary.Result[0]

	for _, name := range QuoteModules {
		raw, ok := modules[name]
		if !ok {
			continue
		}
		var fields map[string]any
		if err := json.Unmarshal(raw, &fields); err != nil {
			continue // module not an object
		}
		for key, value := range fields {
			if _, exists := record[key]; exists {
				continue
			}
			if v, keep := flatten(value); keep {
				record[key] = v
			}
		}
	}
	return record, nil
}

// flatten unwraps {"raw": x, "fmt": "..."} to x and drops empty objects
func flatten(value any) (any, bool) {
	obj, ok := value.(map[string]any)
	if !ok {
		return value, true
	}
	if raw, ok := obj["raw"]; ok {
		return raw, true
	}
	if len(obj) == 0 {
		return nil, false
	}
	return obj, true
}
