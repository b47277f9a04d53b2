package universe

import "fmt"

// ConfigError is a malformed or unreadable universe document.
// It is fatal for a run: no instrument is processed.
type ConfigError struct {
	Path    string
	Entry   string // offending top-level entry, empty for document-level errors
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Entry != "" {
		return fmt.Sprintf("universe %s: entry %q: %s", e.Path, e.Entry, msg)
	}
	return fmt.Sprintf("universe %s: %s", e.Path, msg)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
