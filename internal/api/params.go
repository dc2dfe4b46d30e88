package api

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/zeebo/blake3"
)

// Params holds query parameters for list endpoints. Zero values are omitted
// from the encoded query string so that unset fields never reach the wire.
type Params map[string]any

// Encode serializes the params into a query string with stable key order.
// Nil values, empty strings, zero numbers, and false booleans are omitted.
// Returns "" when nothing survives, otherwise a string starting with "?".
func (p Params) Encode() string {
	if len(p) == 0 {
		return ""
	}

	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := url.Values{}
	for _, k := range keys {
		if s, ok := stringify(p[k]); ok {
			values.Set(k, s)
		}
	}
	if len(values) == 0 {
		return ""
	}
	return "?" + values.Encode()
}

func stringify(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, t != ""
	case bool:
		if !t {
			return "", false
		}
		return "true", true
	case int:
		if t == 0 {
			return "", false
		}
		return fmt.Sprintf("%d", t), true
	case float64:
		if t == 0 {
			return "", false
		}
		return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", t), "0"), "."), true
	default:
		s := fmt.Sprintf("%v", t)
		return s, s != ""
	}
}

// FilterViewKey derives the cache view key for an ad-hoc filtered fetch.
// The key is stable for equal params regardless of map iteration order, so
// repeating a filter reuses the same view slot instead of growing a new one.
func FilterViewKey(p Params) string {
	sum := blake3.Sum256([]byte(p.Encode()))
	return fmt.Sprintf("filtered:%x", sum[:8])
}
