package sink

import (
	"context"
	"fmt"

	"github.com/wonny/prisme/backend/internal/contracts"
	"github.com/wonny/prisme/backend/internal/storage"
	"github.com/wonny/prisme/backend/pkg/logger"
)

// RawSink persists facets exactly as extracted
type RawSink struct {
	store  storage.Store
	logger *logger.Logger
}

// NewRawSink creates a raw tier sink
func NewRawSink(store storage.Store, log *logger.Logger) *RawSink {
	return &RawSink{
		store:  store,
		logger: log.WithModule("sink").WithField("tier", contracts.TierRaw),
	}
}

// Write stores prices (unless empty), the info document (always) and
// dividends (when any were paid). It returns the written keys.
func (s *RawSink) Write(ctx context.Context, name string, f contracts.Facets) ([]string, error) {
	var written []string

	if f.Prices.Empty() {
		s.logger.WithField("instrument", name).Warn("empty price history, raw prices not written")
	} else {
		data, err := EncodePricesCSV(f.Prices)
		if err != nil {
			return written, err
		}
		key := storage.Key(contracts.TierRaw, name, contracts.FacetPrices)
		if err := s.store.Put(ctx, key, data); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", key, err)
		}
		written = append(written, key)
	}

	data, err := EncodeDocumentJSON(f.Info)
	if err != nil {
		return written, err
	}
	key := storage.Key(contracts.TierRaw, name, contracts.FacetInfos)
	if err := s.store.Put(ctx, key, data); err != nil {
		return written, fmt.Errorf("failed to write %s: %w", key, err)
	}
	written = append(written, key)

	if !f.Dividends.Empty() {
		data, err := EncodeDividendsCSV(f.Dividends)
		if err != nil {
			return written, err
		}
		key := storage.Key(contracts.TierRaw, name, contracts.FacetDividends)
		if err := s.store.Put(ctx, key, data); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", key, err)
		}
		written = append(written, key)
	}

	return written, nil
}
