package format

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// Write writes output in the requested format.
//
// Supported formats:
// - json (default)
// - edn
func Write(w io.Writer, v any, format string, pretty bool) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		return WriteJSON(w, v, pretty)
	case "edn":
		return WriteEDN(w, v, pretty)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// ValidFormat reports whether Write understands format.
func ValidFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json", "edn":
		return true
	default:
		return false
	}
}

// WriteJSON writes strict JSON output for CLI commands.
func WriteJSON(w io.Writer, v any, pretty bool) error {
	var b []byte
	var err error
	if pretty {
		b, err = json.MarshalIndent(v, "", "  ")
	} else {
		b, err = json.Marshal(v)
	}
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(b))
	return err
}

// WriteEvent writes one JSON line for a change stream, stamped with the time
// it was emitted.
func WriteEvent(w io.Writer, kind string, v any, at time.Time) error {
	return WriteJSON(w, struct {
		At    string `json:"at"`
		Kind  string `json:"kind"`
		Event any    `json:"event,omitempty"`
	}{
		At:    at.UTC().Format(time.RFC3339Nano),
		Kind:  kind,
		Event: v,
	}, false)
}
