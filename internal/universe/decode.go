package universe

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// entry is one top-level document entry in document order
type entry struct {
	name   string
	ticker string
}

// decodeJSON walks the token stream so that document order survives
// and duplicate names are caught before a map would swallow them.
func decodeJSON(path string, data []byte) ([]entry, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, &ConfigError{Path: path, Message: "invalid JSON", Err: err}
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, &ConfigError{Path: path, Message: "top level must be an object"}
	}

	var entries []entry
	seen := make(map[string]struct{})
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, &ConfigError{Path: path, Message: "invalid JSON", Err: err}
		}
		name, _ := keyTok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, &ConfigError{Path: path, Entry: name, Message: "invalid JSON", Err: err}
		}
		if _, dup := seen[name]; dup {
			return nil, &ConfigError{Path: path, Entry: name, Message: "duplicate entry"}
		}
		seen[name] = struct{}{}

		ticker, err := jsonTicker(raw)
		if err != nil {
			return nil, &ConfigError{Path: path, Entry: name, Message: err.Error()}
		}
		entries = append(entries, entry{name: name, ticker: ticker})
	}

	if _, err := dec.Token(); err != nil {
		return nil, &ConfigError{Path: path, Message: "invalid JSON", Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &ConfigError{Path: path, Message: "trailing data after top-level object"}
	}
	return entries, nil
}

func jsonTicker(raw json.RawMessage) (string, error) {
	if !bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
		return "", errors.New("entry must be an object")
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return "", err
	}
	rawTicker, ok := fields["ticker"]
	if !ok {
		return "", errors.New("missing ticker")
	}
	var ticker string
	if err := json.Unmarshal(rawTicker, &ticker); err != nil {
		return "", errors.New("ticker must be a string")
	}
	if strings.TrimSpace(ticker) == "" {
		return "", errors.New("empty ticker")
	}
	return ticker, nil
}

// decodeYAML reads the same shape as JSON through the node tree,
// which keeps mapping order.
func decodeYAML(path string, data []byte) ([]entry, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &ConfigError{Path: path, Message: "invalid YAML", Err: err}
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, &ConfigError{Path: path, Message: "empty document"}
	}
	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil, &ConfigError{Path: path, Message: "top level must be a mapping"}
	}

	var entries []entry
	seen := make(map[string]struct{})
	for i := 0; i+1 < len(doc.Content); i += 2 {
		name := doc.Content[i].Value
		value := doc.Content[i+1]

		if _, dup := seen[name]; dup {
			return nil, &ConfigError{Path: path, Entry: name, Message: "duplicate entry"}
		}
		seen[name] = struct{}{}

		ticker, err := yamlTicker(value)
		if err != nil {
			return nil, &ConfigError{Path: path, Entry: name, Message: err.Error()}
		}
		entries = append(entries, entry{name: name, ticker: ticker})
	}
	return entries, nil
}

func yamlTicker(node *yaml.Node) (string, error) {
	if node.Kind != yaml.MappingNode {
		return "", errors.New("entry must be a mapping")
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value != "ticker" {
			continue
		}
		v := node.Content[i+1]
		if v.Kind != yaml.ScalarNode || v.ShortTag() != "!!str" {
			return "", errors.New("ticker must be a string")
		}
		if strings.TrimSpace(v.Value) == "" {
			return "", errors.New("empty ticker")
		}
		return v.Value, nil
	}
	return "", errors.New("missing ticker")
}
