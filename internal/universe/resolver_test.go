package universe

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/prisme/backend/internal/contracts"
)

func writeDoc(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func smallDefaults() contracts.Universe {
	return contracts.MustUniverse(contracts.Instrument{Name: "ONLY", Ticker: "ONLY.PA"})
}

func TestDefaultUniverse(t *testing.T) {
	u := DefaultUniverse()

	require.Equal(t, 5, u.Count())
	assert.Equal(t, []contracts.Instrument{
		{Name: "S&P500_PEA", Ticker: "PE500.PA"},
		{Name: "NASDAQ_PEA", Ticker: "PUST.PA"},
		{Name: "CAC40_ETF", Ticker: "C40.PA"},
		{Name: "EMERGING_PEA", Ticker: "PAEEM.PA"},
		{Name: "EUROSTOXX_ETF", Ticker: "C50.PA"},
	}, u.Instruments)
}

func TestResolve_FallsBackToDefaults(t *testing.T) {
	r := NewResolver(smallDefaults())

	for _, path := range []string{"", "   ", filepath.Join(t.TempDir(), "missing.json")} {
		u, err := r.Resolve(path)
		require.NoError(t, err, "path %q", path)
		assert.Equal(t, smallDefaults().Instruments, u.Instruments)
		assert.Equal(t, SourceDefault, u.Source)
	}
}

func TestResolve_FallbackIsACopy(t *testing.T) {
	r := NewResolver(smallDefaults())
	u, err := r.Resolve("")
	require.NoError(t, err)
	u.Instruments[0].Ticker = "MUTATED"

	again, err := r.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "ONLY.PA", again.Instruments[0].Ticker)
}

func TestResolve_JSONPreservesOrder(t *testing.T) {
	path := writeDoc(t, "universe.json", `{
		"ZETA": {"ticker": "Z.PA", "category": "equity"},
		"ALPHA": {"ticker": "A.PA"},
		"MID": {"ticker": "M.PA", "weight": 0.3}
	}`)

	u, err := NewResolver(smallDefaults()).Resolve(path)
	require.NoError(t, err)

	assert.Equal(t, []contracts.Instrument{
		{Name: "ZETA", Ticker: "Z.PA"},
		{Name: "ALPHA", Ticker: "A.PA"},
		{Name: "MID", Ticker: "M.PA"},
	}, u.Instruments)
	assert.Equal(t, path, u.Source)
}

func TestResolve_YAML(t *testing.T) {
	path := writeDoc(t, "universe.yaml", `
CAC40_ETF:
  ticker: C40.PA
  category: index
NASDAQ_PEA:
  ticker: "PUST.PA"
`)

	u, err := NewResolver(smallDefaults()).Resolve(path)
	require.NoError(t, err)
	assert.Equal(t, []contracts.Instrument{
		{Name: "CAC40_ETF", Ticker: "C40.PA"},
		{Name: "NASDAQ_PEA", Ticker: "PUST.PA"},
	}, u.Instruments)
}

func TestResolve_EmptyObjectIsEmptyUniverse(t *testing.T) {
	path := writeDoc(t, "universe.json", `{}`)

	u, err := NewResolver(smallDefaults()).Resolve(path)
	require.NoError(t, err)
	assert.Equal(t, 0, u.Count())
}

func TestResolve_ConfigErrors(t *testing.T) {
	tests := []struct {
		name      string
		file      string
		body      string
		wantEntry string
	}{
		{"missing ticker", "u.json", `{"A": {"ticker": "A.PA"}, "B": {"symbol": "B.PA"}}`, "B"},
		{"empty ticker", "u.json", `{"A": {"ticker": ""}}`, "A"},
		{"numeric ticker", "u.json", `{"A": {"ticker": 42}}`, "A"},
		{"entry not an object", "u.json", `{"A": "A.PA"}`, "A"},
		{"null entry", "u.json", `{"A": null}`, "A"},
		{"duplicate entry", "u.json", `{"A": {"ticker": "A.PA"}, "A": {"ticker": "B.PA"}}`, "A"},
		{"top level array", "u.json", `[{"ticker": "A.PA"}]`, ""},
		{"truncated", "u.json", `{"A": {"ticker": "A.PA"}`, ""},
		{"trailing data", "u.json", `{} {}`, ""},
		{"empty file", "u.json", ``, ""},
		{"path separator in name", "u.json", `{"a/b": {"ticker": "A.PA"}}`, ""},
		{"yaml missing ticker", "u.yml", "A:\n  symbol: A.PA\n", "A"},
		{"yaml scalar entry", "u.yaml", "A: A.PA\n", "A"},
		{"yaml duplicate", "u.yaml", "A:\n  ticker: X\nA:\n  ticker: Y\n", ""},
		{"yaml empty", "u.yaml", "", ""},
		{"yaml sequence", "u.yaml", "- ticker: A.PA\n", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeDoc(t, tt.file, tt.body)

			_, err := NewResolver(smallDefaults()).Resolve(path)
			require.Error(t, err)

			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr), "want *ConfigError, got %T", err)
			assert.Equal(t, path, cfgErr.Path)
			if tt.wantEntry != "" {
				assert.Equal(t, tt.wantEntry, cfgErr.Entry)
			}
		})
	}
}

func TestResolve_DirectoryIsUnreadable(t *testing.T) {
	_, err := NewResolver(smallDefaults()).Resolve(t.TempDir())

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Error(), "unreadable")
}

func TestHash(t *testing.T) {
	a := contracts.MustUniverse(
		contracts.Instrument{Name: "A", Ticker: "A.PA"},
		contracts.Instrument{Name: "B", Ticker: "B.PA"},
	)
	b := contracts.MustUniverse(
		contracts.Instrument{Name: "B", Ticker: "B.PA"},
		contracts.Instrument{Name: "A", Ticker: "A.PA"},
	)

	ha, err := Hash(a)
	require.NoError(t, err)
	assert.Len(t, ha, 64)

	again, _ := Hash(a)
	assert.Equal(t, ha, again)

	hb, _ := Hash(b)
	assert.NotEqual(t, ha, hb)
}
