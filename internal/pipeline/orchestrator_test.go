package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/prisme/backend/internal/audit"
	"github.com/wonny/prisme/backend/internal/contracts"
	"github.com/wonny/prisme/backend/internal/extract"
	"github.com/wonny/prisme/backend/internal/extract/extracttest"
	"github.com/wonny/prisme/backend/internal/sink"
	"github.com/wonny/prisme/backend/internal/storage"
	"github.com/wonny/prisme/backend/internal/transform"
	"github.com/wonny/prisme/backend/internal/universe"
	"github.com/wonny/prisme/backend/pkg/logger"
)

var cet = time.FixedZone("CET", 3600)

func prices(days int) contracts.PriceSeries {
	p := contracts.PriceSeries{Extra: []string{"Dividends", "Stock Splits"}}
	for d := 0; d < days; d++ {
		base := 100 + float64(d)
		p.Bars = append(p.Bars, contracts.Bar{
			Time:   time.Date(2024, 1, 2+d, 0, 0, 0, 0, cet),
			Open:   base,
			High:   base + 1,
			Low:    base - 1,
			Close:  base + 0.5,
			Volume: int64(1000 + d),
			Extra:  []float64{0, 0},
		})
	}
	return p
}

func dividends() contracts.DistributionSeries {
	return contracts.DistributionSeries{
		Column: "amount",
		Points: []contracts.Distribution{{Time: time.Date(2024, 1, 3, 0, 0, 0, 0, cet), Amount: 0.25}},
	}
}

func fullResponse() extracttest.Response {
	return extracttest.Response{
		Prices:    prices(3),
		Info:      contracts.DescriptiveRecord{"symbol": "X", "currency": "EUR", "navPrice": 101.0, "website": "https://example.org"},
		Dividends: dividends(),
	}
}

type harness struct {
	store    *storage.FSStore
	provider *extracttest.Provider
	logs     *bytes.Buffer
	recorder *captureRecorder
	orch     *Orchestrator
}

type captureRecorder struct {
	mu        sync.Mutex
	summaries []*contracts.RunSummary
	ctxErrs   []error
	err       error
}

func (r *captureRecorder) Record(ctx context.Context, s *contracts.RunSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summaries = append(r.summaries, s)
	r.ctxErrs = append(r.ctxErrs, ctx.Err())
	return r.err
}

func newHarness(t *testing.T, u contracts.Universe, responses map[string]extracttest.Response, workers int) *harness {
	t.Helper()
	h := &harness{
		store:    storage.NewFSStore(memfs.New()),
		provider: extracttest.NewProvider(responses),
		logs:     &bytes.Buffer{},
		recorder: &captureRecorder{},
	}
	log := logger.NewWithWriter(&syncWriter{w: h.logs}, "debug")
	h.orch = New(
		universe.NewResolver(u),
		extract.NewExtractor(h.provider),
		sink.NewRawSink(h.store, log),
		sink.NewInterimSink(h.store, log),
		sink.NewProcessedSink(h.store, log),
		h.recorder,
		log,
		Options{Workers: workers},
	)
	return h
}

type syncWriter struct {
	mu sync.Mutex
	w  *bytes.Buffer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func (h *harness) keys(t *testing.T, prefix string) []string {
	t.Helper()
	keys, err := h.store.List(context.Background(), prefix)
	require.NoError(t, err)
	return keys
}

func (h *harness) keysFor(t *testing.T, name string) map[contracts.Tier][]contracts.Facet {
	t.Helper()
	out := map[contracts.Tier][]contracts.Facet{}
	for _, key := range h.keys(t, "") {
		k, ok := storage.ParseKey(key)
		if ok && k.Name == name {
			out[k.Tier] = append(out[k.Tier], k.Facet)
		}
	}
	return out
}

func abc() contracts.Universe {
	return contracts.MustUniverse(
		contracts.Instrument{Name: "A", Ticker: "A.PA"},
		contracts.Instrument{Name: "B", Ticker: "B.PA"},
		contracts.Instrument{Name: "C", Ticker: "C.PA"},
	)
}

func TestRun_FailureIsolation(t *testing.T) {
	for _, tc := range []struct {
		name string
		b    extracttest.Response
	}{
		{"extraction error", extracttest.Response{HistoryErr: errors.New("provider unreachable")}},
		{"panic", extracttest.Response{Panic: "nil map write"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, abc(), map[string]extracttest.Response{
				"A.PA": fullResponse(),
				"B.PA": tc.b,
				"C.PA": fullResponse(),
			}, 1)

			summary, err := h.orch.Run(context.Background(), RunConfig{Period: "1y"})
			require.NoError(t, err)
			require.Len(t, summary.Outcomes, 3)

			assert.Equal(t, contracts.StatusSuccess, summary.Outcomes[0].Status)
			assert.Equal(t, contracts.StatusFailed, summary.Outcomes[1].Status)
			assert.Equal(t, StageExtract, summary.Outcomes[1].Stage)
			assert.NotEmpty(t, summary.Outcomes[1].Error)
			assert.Equal(t, contracts.StatusSuccess, summary.Outcomes[2].Status)

			for _, name := range []string{"A", "C"} {
				tiers := h.keysFor(t, name)
				for _, tier := range contracts.Tiers {
					assert.Len(t, tiers[tier], 3, "%s %s", name, tier)
				}
			}
			b := h.keysFor(t, "B")
			assert.Empty(t, b[contracts.TierInterim])
			assert.Empty(t, b[contracts.TierProcessed])

			assert.Contains(t, h.logs.String(), `"instrument":"B"`)
			assert.Contains(t, h.logs.String(), `"message":"Instrument failed"`)
		})
	}
}

func TestRun_EmptyPriceHistory(t *testing.T) {
	u := contracts.MustUniverse(contracts.Instrument{Name: "EMPTY", Ticker: "E.PA"})
	h := newHarness(t, u, map[string]extracttest.Response{
		"E.PA": {Info: contracts.DescriptiveRecord{"symbol": "E.PA"}, Dividends: dividends()},
	}, 1)

	summary, err := h.orch.Run(context.Background(), RunConfig{})
	require.NoError(t, err)
	assert.Equal(t, contracts.StatusSkippedEmpty, summary.Outcomes[0].Status)
	assert.Equal(t, DefaultPeriod, summary.Period)

	tiers := h.keysFor(t, "EMPTY")
	assert.Contains(t, tiers[contracts.TierRaw], contracts.FacetInfos)
	assert.NotContains(t, tiers[contracts.TierRaw], contracts.FacetPrices)
	assert.Empty(t, tiers[contracts.TierInterim])
	assert.Empty(t, tiers[contracts.TierProcessed])
	assert.Contains(t, h.logs.String(), `"level":"warn"`)
}

func TestRun_EmptyDividends(t *testing.T) {
	u := contracts.MustUniverse(contracts.Instrument{Name: "NODIV", Ticker: "N.PA"})
	resp := fullResponse()
	resp.Dividends = contracts.DistributionSeries{Column: "amount"}
	h := newHarness(t, u, map[string]extracttest.Response{"N.PA": resp}, 1)

	summary, err := h.orch.Run(context.Background(), RunConfig{})
	require.NoError(t, err)
	assert.Equal(t, contracts.StatusSuccess, summary.Outcomes[0].Status)

	for tier, facets := range h.keysFor(t, "NODIV") {
		assert.NotContains(t, facets, contracts.FacetDividends, tier)
		assert.ElementsMatch(t, []contracts.Facet{contracts.FacetPrices, contracts.FacetInfos}, facets, tier)
	}
}

func TestRun_ProcessedContract(t *testing.T) {
	u := contracts.MustUniverse(
		contracts.Instrument{Name: "FULL", Ticker: "F.PA"},
		contracts.Instrument{Name: "BARE", Ticker: "B.PA"},
	)
	bare := fullResponse()
	bare.Info = contracts.DescriptiveRecord{}
	h := newHarness(t, u, map[string]extracttest.Response{"F.PA": fullResponse(), "B.PA": bare}, 1)

	_, err := h.orch.Run(context.Background(), RunConfig{})
	require.NoError(t, err)

	ctx := context.Background()
	for _, name := range []string{"FULL", "BARE"} {
		data, err := h.store.Get(ctx, storage.Key(contracts.TierProcessed, name, contracts.FacetPrices))
		require.NoError(t, err)
		rows, err := parquet.Read[transform.PriceRow](bytes.NewReader(data), int64(len(data)))
		require.NoError(t, err)
		require.Len(t, rows, 3)
		for i := 1; i < len(rows); i++ {
			assert.True(t, rows[i].Date.After(rows[i-1].Date))
		}
		assert.Equal(t, 0, rows[0].Date.Hour(), "wall clock kept, offset dropped")

		info, err := h.store.Get(ctx, storage.Key(contracts.TierProcessed, name, contracts.FacetInfos))
		require.NoError(t, err)
		f, err := parquet.OpenFile(bytes.NewReader(info), int64(len(info)))
		require.NoError(t, err)
		assert.Len(t, f.Schema().Columns(), 17, name)
		assert.Equal(t, int64(1), f.NumRows())
	}
}

func TestRun_InterimRoundTrip(t *testing.T) {
	u := contracts.MustUniverse(contracts.Instrument{Name: "A", Ticker: "A.PA"})
	h := newHarness(t, u, map[string]extracttest.Response{"A.PA": fullResponse()}, 1)

	_, err := h.orch.Run(context.Background(), RunConfig{})
	require.NoError(t, err)

	ctx := context.Background()
	raw, err := h.store.Get(ctx, storage.Key(contracts.TierRaw, "A", contracts.FacetPrices))
	require.NoError(t, err)
	interim, err := h.store.Get(ctx, storage.Key(contracts.TierInterim, "A", contracts.FacetPrices))
	require.NoError(t, err)

	stripped := strings.ReplaceAll(string(raw), "+01:00", "")
	assert.Equal(t, stripped, string(interim))
}

func TestRun_Idempotent(t *testing.T) {
	h := newHarness(t, abc(), map[string]extracttest.Response{
		"A.PA": fullResponse(), "B.PA": fullResponse(), "C.PA": fullResponse(),
	}, 1)
	ctx := context.Background()

	snapshot := func() map[string][]byte {
		out := map[string][]byte{}
		for _, key := range h.keys(t, storage.TierPrefix(contracts.TierProcessed)) {
			data, err := h.store.Get(ctx, key)
			require.NoError(t, err)
			out[key] = data
		}
		return out
	}

	_, err := h.orch.Run(ctx, RunConfig{})
	require.NoError(t, err)
	first := snapshot()

	_, err = h.orch.Run(ctx, RunConfig{})
	require.NoError(t, err)
	second := snapshot()

	assert.Len(t, first, 9)
	assert.Equal(t, first, second)
}

func TestRun_WorkersKeepUniverseOrder(t *testing.T) {
	instruments := []contracts.Instrument{}
	responses := map[string]extracttest.Response{}
	for _, name := range []string{"E", "D", "C", "B", "A"} {
		instruments = append(instruments, contracts.Instrument{Name: name, Ticker: name + ".PA"})
		responses[name+".PA"] = fullResponse()
	}
	responses["C.PA"] = extracttest.Response{HistoryErr: errors.New("boom")}

	h := newHarness(t, contracts.MustUniverse(instruments...), responses, 3)
	summary, err := h.orch.Run(context.Background(), RunConfig{})
	require.NoError(t, err)

	require.Len(t, summary.Outcomes, 5)
	for i, o := range summary.Outcomes {
		assert.Equal(t, instruments[i], o.Instrument)
	}
	assert.Equal(t, contracts.RunCounts{Success: 4, Failed: 1, Total: 5}, summary.Counts())
}

func TestRun_ConfigErrorAbortsBeforeExtraction(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products_config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"A": {"symbol": "A.PA"}}`), 0o644))

	h := newHarness(t, abc(), map[string]extracttest.Response{}, 1)
	summary, err := h.orch.Run(context.Background(), RunConfig{ConfigPath: path})

	var cfgErr *universe.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Nil(t, summary)
	assert.Empty(t, h.provider.Calls())
	assert.Empty(t, h.recorder.summaries)
}

func TestRun_RecordsSummary(t *testing.T) {
	u := contracts.MustUniverse(contracts.Instrument{Name: "A", Ticker: "A.PA"})
	h := newHarness(t, u, map[string]extracttest.Response{"A.PA": fullResponse()}, 1)
	h.recorder.err = errors.New("database down")

	summary, err := h.orch.Run(context.Background(), RunConfig{Period: "max"})
	require.NoError(t, err, "recorder failure does not fail the run")

	require.Len(t, h.recorder.summaries, 1)
	recorded := h.recorder.summaries[0]
	assert.Equal(t, summary.RunID, recorded.RunID)
	assert.Equal(t, "max", recorded.Period)
	assert.Equal(t, universe.SourceDefault, recorded.ConfigPath)
	assert.Len(t, recorded.UniverseHash, 64)
	assert.False(t, recorded.FinishedAt.Before(recorded.StartedAt))
	assert.Equal(t, []string{"history:A.PA:max", "info:A.PA", "dividends:A.PA"}, h.provider.Calls())
	assert.Len(t, summary.Outcomes[0].Artifacts, 9)
}

func TestRun_CancelledContext(t *testing.T) {
	h := newHarness(t, abc(), map[string]extracttest.Response{}, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := h.orch.Run(ctx, RunConfig{})
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Counts().Failed)
	assert.Empty(t, h.provider.Calls())

	// The summary is still handed over with a live context
	require.Len(t, h.recorder.summaries, 1)
	assert.NoError(t, h.recorder.ctxErrs[0])
}

func TestRun_CancelledContextPersistsSummary(t *testing.T) {
	store := storage.NewFSStore(memfs.New())
	fileRecorder := audit.NewFileRecorder(store)
	log := logger.Nop()
	orch := New(
		universe.NewResolver(abc()),
		extract.NewExtractor(extracttest.NewProvider(map[string]extracttest.Response{})),
		sink.NewRawSink(store, log),
		sink.NewInterimSink(store, log),
		sink.NewProcessedSink(store, log),
		fileRecorder,
		log,
		Options{},
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := orch.Run(ctx, RunConfig{})
	require.NoError(t, err)

	latest, err := fileRecorder.LatestRun(context.Background())
	require.NoError(t, err)
	assert.Equal(t, summary.RunID, latest.RunID)
	assert.Equal(t, 3, latest.Counts().Failed)
}
