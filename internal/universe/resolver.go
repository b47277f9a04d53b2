package universe

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/wonny/prisme/backend/internal/contracts"
)

// SourceDefault marks a universe that came from the injected defaults
const SourceDefault = "default"

// DefaultUniverse returns the built-in PEA/ETF universe
func DefaultUniverse() contracts.Universe {
	return contracts.MustUniverse(
		contracts.Instrument{Name: "S&P500_PEA", Ticker: "PE500.PA"},
		contracts.Instrument{Name: "NASDAQ_PEA", Ticker: "PUST.PA"},
		contracts.Instrument{Name: "CAC40_ETF", Ticker: "C40.PA"},
		contracts.Instrument{Name: "EMERGING_PEA", Ticker: "PAEEM.PA"},
		contracts.Instrument{Name: "EUROSTOXX_ETF", Ticker: "C50.PA"},
	)
}

// Resolver turns an optional universe document into a Universe
type Resolver struct {
	defaults contracts.Universe
}

// NewResolver creates a resolver falling back to defaults
func NewResolver(defaults contracts.Universe) *Resolver {
	return &Resolver{defaults: defaults}
}

// Resolve reads the document at path.
// An empty or non-existent path yields the defaults; anything else that
// cannot be read or parsed is a *ConfigError.
func (r *Resolver) Resolve(path string) (contracts.Universe, error) {
	if strings.TrimSpace(path) == "" {
		return r.fallback(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return r.fallback(), nil
		}
		return contracts.Universe{}, &ConfigError{Path: path, Message: "unreadable document", Err: err}
	}

	var entries []entry
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		entries, err = decodeYAML(path, data)
	default:
		entries, err = decodeJSON(path, data)
	}
	if err != nil {
		return contracts.Universe{}, err
	}

	instruments := make([]contracts.Instrument, 0, len(entries))
	for _, e := range entries {
		instruments = append(instruments, contracts.Instrument{Name: e.name, Ticker: e.ticker})
	}
	u, err := contracts.NewUniverse(instruments...)
	if err != nil {
		return contracts.Universe{}, &ConfigError{Path: path, Message: "invalid universe", Err: err}
	}
	u.Source = path
	return u, nil
}

func (r *Resolver) fallback() contracts.Universe {
	u := contracts.Universe{
		Instruments: append([]contracts.Instrument(nil), r.defaults.Instruments...),
		Source:      SourceDefault,
	}
	return u
}
