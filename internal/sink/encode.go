package sink

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/wonny/prisme/backend/internal/contracts"
)

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatTime(t time.Time, naive bool) string {
	if naive {
		return contracts.StripZone(t).Format(contracts.NaiveLayout)
	}
	return t.Format(contracts.AwareLayout)
}

// EncodePricesCSV writes Date, OHLCV and every extra column
func EncodePricesCSV(p contracts.PriceSeries) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := append([]string{contracts.ColumnDate}, p.Columns()...)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	record := make([]string, len(header))
	for _, bar := range p.Bars {
		record = record[:0]
		record = append(record,
			formatTime(bar.Time, p.Naive),
			formatFloat(bar.Open),
			formatFloat(bar.High),
			formatFloat(bar.Low),
			formatFloat(bar.Close),
			strconv.FormatInt(bar.Volume, 10),
		)
		for _, v := range bar.Extra {
			record = append(record, formatFloat(v))
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to encode prices csv: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeDividendsCSV writes Date and the series value column
func EncodeDividendsCSV(d contracts.DistributionSeries) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	column := d.Column
	if column == "" {
		column = contracts.ColumnDividends
	}
	if err := w.Write([]string{contracts.ColumnDate, column}); err != nil {
		return nil, err
	}
	for _, p := range d.Points {
		if err := w.Write([]string{formatTime(p.Time, d.Naive), formatFloat(p.Amount)}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to encode dividends csv: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeDocumentJSON pretty-prints a document with sorted keys
func EncodeDocumentJSON(doc map[string]any) ([]byte, error) {
	if doc == nil {
		doc = map[string]any{}
	}
	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode json document: %w", err)
	}
	return append(data, '\n'), nil
}

// EncodeParquet writes rows as one snappy-compressed parquet file
func EncodeParquet[T any](rows []T) ([]byte, error) {
	var buf bytes.Buffer
	w := parquet.NewGenericWriter[T](&buf, parquet.Compression(&parquet.Snappy))
	if _, err := w.Write(rows); err != nil {
		return nil, fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}
