package store

import (
	"database/sql"
	"encoding/json"
	"log/slog"
)

// nilIfEmpty returns nil for empty strings. Used for nullable text columns.
func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// jsonColumn marshals v for a JSON text column, or nil when v is empty.
func jsonColumn(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case []string:
		if len(t) == 0 {
			return nil, nil
		}
	case []int:
		if len(t) == 0 {
			return nil, nil
		}
	case map[string]any:
		if len(t) == 0 {
			return nil, nil
		}
	}
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(body), nil
}

// decodeStringSlice unmarshals a JSON text column into a string slice. A
// corrupt column is logged and treated as empty rather than failing the read.
func decodeStringSlice(ns sql.NullString) []string {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(ns.String), &out); err != nil {
		slog.Error("store: corrupt JSON string-array column", "error", err)
		return nil
	}
	return out
}

// decodeIntSlice unmarshals a JSON text column into an int slice.
func decodeIntSlice(ns sql.NullString) []int {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	var out []int
	if err := json.Unmarshal([]byte(ns.String), &out); err != nil {
		slog.Error("store: corrupt JSON int-array column", "error", err)
		return nil
	}
	return out
}

// decodeMap unmarshals a JSON text column into a map.
func decodeMap(ns sql.NullString) map[string]any {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	out := make(map[string]any)
	if err := json.Unmarshal([]byte(ns.String), &out); err != nil {
		slog.Error("store: corrupt JSON object column", "error", err)
		return nil
	}
	return out
}
