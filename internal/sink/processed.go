package sink

import (
	"context"
	"fmt"

	"github.com/wonny/prisme/backend/internal/contracts"
	"github.com/wonny/prisme/backend/internal/storage"
	"github.com/wonny/prisme/backend/internal/transform"
	"github.com/wonny/prisme/backend/pkg/logger"
)

// ProcessedSink persists the dashboard-facing parquet artifacts
// ⭐ SSOT: the only writer of the processed tier
type ProcessedSink struct {
	store  storage.Store
	logger *logger.Logger
}

// NewProcessedSink creates a processed tier sink
func NewProcessedSink(store storage.Store, log *logger.Logger) *ProcessedSink {
	return &ProcessedSink{
		store:  store,
		logger: log.WithModule("sink").WithField("tier", contracts.TierProcessed),
	}
}

// Write stores prices, the one-row info table and, when present, dividends
func (s *ProcessedSink) Write(ctx context.Context, name string, p transform.Processed) ([]string, error) {
	var written []string

	put := func(facet contracts.Facet, data []byte) error {
		key := storage.Key(contracts.TierProcessed, name, facet)
		if err := s.store.Put(ctx, key, data); err != nil {
			return fmt.Errorf("failed to write %s: %w", key, err)
		}
		written = append(written, key)
		return nil
	}

	prices, err := EncodeParquet(p.Prices)
	if err != nil {
		return written, err
	}
	if err := put(contracts.FacetPrices, prices); err != nil {
		return written, err
	}

	info, err := EncodeParquet([]transform.InfoRow{p.Info})
	if err != nil {
		return written, err
	}
	if err := put(contracts.FacetInfos, info); err != nil {
		return written, err
	}

	if p.Dividends != nil {
		dividends, err := EncodeParquet(p.Dividends)
		if err != nil {
			return written, err
		}
		if err := put(contracts.FacetDividends, dividends); err != nil {
			return written, err
		}
	}

	s.logger.WithFields(map[string]interface{}{
		"instrument": name,
		"rows":       len(p.Prices),
	}).Debug("processed artifacts written")
	return written, nil
}
