package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	apperrors "nekodl/pkg/errors"
)

// Extras is the provider-specific configuration map loaded from an extras
// file. Values keep the types produced by the decoder, so numbers may be
// float64 (JSON) or int64 (TOML); use the typed accessors to read them.
type Extras map[string]any

// LoadExtras reads provider extras from a .json or .toml file.
//
// A JSON file is a single object used as-is. A TOML file holds one table
// per provider under a top-level "provider" table and only the table for
// the selected provider is returned. An empty path yields empty extras.
func LoadExtras(path, provider string) (Extras, error) {
	if path == "" {
		return Extras{}, nil
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".json" && ext != ".toml" {
		return nil, apperrors.Config("invalid file extension %q: supported file extensions are '.json' and '.toml'", ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrorTypeConfig, err, "reading extras file")
	}

	if ext == ".json" {
		extras := Extras{}
		if err := json.Unmarshal(data, &extras); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrorTypeConfig, err, "parsing %s", path)
		}
		return extras, nil
	}

	var doc map[string]any
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrorTypeConfig, err, "parsing %s", path)
	}

	tables, ok := doc["provider"].(map[string]any)
	if !ok {
		return nil, apperrors.Config("%s: missing [provider] table", path)
	}
	table, ok := tables[provider].(map[string]any)
	if !ok {
		return Extras{}, nil
	}
	return Extras(table), nil
}

// IsEmpty reports whether the extras carry any key other than the
// injected nsfw flag
func (e Extras) IsEmpty() bool {
	for k := range e {
		if k != "nsfw" {
			return false
		}
	}
	return true
}

// Has reports whether key is present
func (e Extras) Has(key string) bool {
	_, ok := e[key]
	return ok
}

// String returns a required string value
func (e Extras) String(key string) (string, error) {
	v, ok := e[key]
	if !ok {
		return "", apperrors.Config("missing required extras key %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", apperrors.Config("extras key %q must be a string, got %T", key, v)
	}
	return s, nil
}

// OptionalString returns the string at key or def when it is absent
func (e Extras) OptionalString(key, def string) (string, error) {
	if !e.Has(key) {
		return def, nil
	}
	return e.String(key)
}

// Int returns the integer at key or def when it is absent
func (e Extras) Int(key string, def int) (int, error) {
	v, ok := e[key]
	if !ok {
		return def, nil
	}
	n, ok := toInt(v)
	if !ok {
		return 0, apperrors.Config("extras key %q must be an integer, got %v", key, v)
	}
	return n, nil
}

// Bool returns the boolean at key or false when it is absent
func (e Extras) Bool(key string) bool {
	b, _ := e[key].(bool)
	return b
}

// Strings returns a list of strings. A single string is accepted and
// treated as a one element list.
func (e Extras) Strings(key string) ([]string, error) {
	v, ok := e[key]
	if !ok {
		return nil, nil
	}
	switch t := v.(type) {
	case string:
		return []string{t}, nil
	case []string:
		return t, nil
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, apperrors.Config("extras key %q must be a list of strings, found %v", key, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, apperrors.Config("extras key %q must be a list of strings, got %T", key, v)
	}
}

// Map returns a nested table, or nil when the key is absent
func (e Extras) Map(key string) (Extras, error) {
	v, ok := e[key]
	if !ok || v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, apperrors.Config("extras key %q must be an object, got %T", key, v)
	}
	return Extras(m), nil
}

// List returns the raw list at key. The value must be a list.
func (e Extras) List(key string) ([]any, error) {
	v, ok := e[key]
	if !ok {
		return nil, nil
	}
	switch t := v.(type) {
	case []any:
		return t, nil
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, nil
	default:
		return nil, apperrors.Config("%q must be a list", key)
	}
}

// IDs reads a list of numeric IDs. Each entry may be an integer, a digit
// string, or a URL whose first capture group under pattern is the ID.
// Entries that match none of these are returned in invalid.
func (e Extras) IDs(key string, pattern *regexp.Regexp) (ids []int, invalid []string, err error) {
	if !e.Has(key) {
		return nil, nil, apperrors.Config("missing required extras key %q", key)
	}
	items, err := e.List(key)
	if err != nil {
		return nil, nil, err
	}
	for _, item := range items {
		if n, ok := toInt(item); ok && n > 0 {
			ids = append(ids, n)
			continue
		}
		if s, ok := item.(string); ok && pattern != nil {
			if m := pattern.FindStringSubmatch(s); len(m) > 1 {
				if n, err := strconv.Atoi(m[1]); err == nil {
					ids = append(ids, n)
					continue
				}
			}
		}
		invalid = append(invalid, fmt.Sprint(item))
	}
	return ids, invalid, nil
}

// ToInt converts decoder-produced numbers and digit strings to int
func ToInt(v any) (int, bool) {
	return toInt(v)
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	case string:
		i, err := strconv.Atoi(n)
		return i, err == nil
	default:
		return 0, false
	}
}

// Describe renders extras for debug logging
func (e Extras) Describe() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == "api_key" {
			parts = append(parts, k+"=***")
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%v", k, e[k]))
	}
	return strings.Join(parts, " ")
}
