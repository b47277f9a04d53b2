package sink

import (
	"context"
	"fmt"

	"github.com/wonny/prisme/backend/internal/contracts"
	"github.com/wonny/prisme/backend/internal/storage"
	"github.com/wonny/prisme/backend/internal/transform"
	"github.com/wonny/prisme/backend/pkg/logger"
)

// InterimSink persists interim artifacts as CSV and JSON
type InterimSink struct {
	store  storage.Store
	logger *logger.Logger
}

// NewInterimSink creates an interim tier sink
func NewInterimSink(store storage.Store, log *logger.Logger) *InterimSink {
	return &InterimSink{
		store:  store,
		logger: log.WithModule("sink").WithField("tier", contracts.TierInterim),
	}
}

// Write stores the interim price table, the one-row info frame and,
// when present, the dividend table
func (s *InterimSink) Write(ctx context.Context, name string, in transform.Interim) ([]string, error) {
	var written []string

	put := func(facet contracts.Facet, data []byte) error {
		key := storage.Key(contracts.TierInterim, name, facet)
		if err := s.store.Put(ctx, key, data); err != nil {
			return fmt.Errorf("failed to write %s: %w", key, err)
		}
		written = append(written, key)
		return nil
	}

	prices, err := EncodePricesCSV(in.Prices)
	if err != nil {
		return written, err
	}
	if err := put(contracts.FacetPrices, prices); err != nil {
		return written, err
	}

	info, err := EncodeDocumentJSON(in.Info.Record())
	if err != nil {
		return written, err
	}
	if err := put(contracts.FacetInfos, info); err != nil {
		return written, err
	}

	if in.Dividends != nil {
		dividends, err := EncodeDividendsCSV(*in.Dividends)
		if err != nil {
			return written, err
		}
		if err := put(contracts.FacetDividends, dividends); err != nil {
			return written, err
		}
	}

	s.logger.WithFields(map[string]interface{}{
		"instrument": name,
		"artifacts":  len(written),
	}).Debug("interim artifacts written")
	return written, nil
}
