package contracts

import (
	"fmt"
	"strings"
)

// Instrument is one tradable entity: a logical name and its provider ticker
type Instrument struct {
	Name   string `json:"name"`
	Ticker string `json:"ticker"`
}

// Universe is the ordered set of instruments processed in one run
// ⭐ SSOT: resolved once per run, never mutated afterwards
type Universe struct {
	Instruments []Instrument `json:"instruments"`
	Source      string       `json:"source,omitempty"` // document path, or "default"
}

// NewUniverse builds a universe, rejecting invalid or duplicate names
func NewUniverse(instruments ...Instrument) (Universe, error) {
	seen := make(map[string]struct{}, len(instruments))
	out := make([]Instrument, 0, len(instruments))
	for _, inst := range instruments {
		if err := ValidateName(inst.Name); err != nil {
			return Universe{}, err
		}
		if strings.TrimSpace(inst.Ticker) == "" {
			return Universe{}, fmt.Errorf("instrument %q: empty ticker", inst.Name)
		}
		if _, dup := seen[inst.Name]; dup {
			return Universe{}, fmt.Errorf("instrument %q: duplicate name", inst.Name)
		}
		seen[inst.Name] = struct{}{}
		out = append(out, inst)
	}
	return Universe{Instruments: out}, nil
}

// MustUniverse is NewUniverse for literals known to be valid
func MustUniverse(instruments ...Instrument) Universe {
	u, err := NewUniverse(instruments...)
	if err != nil {
		panic(err)
	}
	return u
}

// Count returns the number of instruments
func (u Universe) Count() int {
	return len(u.Instruments)
}

// Ticker returns the ticker for a logical name
func (u Universe) Ticker(name string) (string, bool) {
	for _, inst := range u.Instruments {
		if inst.Name == name {
			return inst.Ticker, true
		}
	}
	return "", false
}

// Map returns the name → ticker mapping
func (u Universe) Map() map[string]string {
	m := make(map[string]string, len(u.Instruments))
	for _, inst := range u.Instruments {
		m[inst.Name] = inst.Ticker
	}
	return m
}

// ValidateName checks that a logical name can be embedded in an artifact key
func ValidateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("instrument name must not be empty")
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("instrument %q: name must not contain path separators", name)
	case name == "." || name == "..":
		return fmt.Errorf("instrument %q: name must not be a relative path element", name)
	}
	return nil
}
