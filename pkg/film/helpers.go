package film

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var errNotObject = errors.New("body is not a JSON object")

// decodeObject parses body as a JSON object. null, arrays and scalars are rejected.
func decodeObject(body string) (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal([]byte(body), &m); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errNotObject
	}
	return m, nil
}

// getString returns m[key] when it is a string.
func getString(m map[string]any, key string) (string, bool) {
	val, ok := m[key]
	if !ok {
		return "", false
	}
	s, ok := val.(string)
	return s, ok
}

// optionalString returns m[key] or "" when absent, null or not a string.
func optionalString(m map[string]any, key string) string {
	s, _ := getString(m, key)
	return s
}

// getObjects returns the array at key as objects. Absent and null are empty.
func getObjects(m map[string]any, key string) ([]map[string]any, error) {
	val, ok := m[key]
	if !ok || val == nil {
		return nil, nil
	}
	items, ok := val.([]any)
	if !ok {
		return nil, fmt.Errorf("%s is not an array", key)
	}
	objects := make([]map[string]any, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s[%d] is not an object", key, i)
		}
		objects = append(objects, obj)
	}
	return objects, nil
}

// deriveYear returns the four-digit year before the first '-' of an
// ISO-style date, or UnknownYear.
func deriveYear(releaseDate string) string {
	year, _, found := strings.Cut(releaseDate, "-")
	if !found || len(year) != 4 {
		return UnknownYear
	}
	for _, r := range year {
		if r < '0' || r > '9' {
			return UnknownYear
		}
	}
	return year
}
