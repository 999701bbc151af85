package query

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Key identifies a logical query, e.g. Key{"users", params}. Two keys are
// equal iff the canonical JSON forms of their elements are equal, so struct
// and map elements with the same serialized fields produce the same key.
type Key []any

// K builds a Key from its elements.
func K(parts ...any) Key {
	return Key(parts)
}

// encode returns the canonical form of every element.
func (k Key) encode() ([]string, error) {
	parts := make([]string, len(k))
	for i, p := range k {
		b, err := canonicalize(p)
		if err != nil {
			return nil, fmt.Errorf("%w: element %d: %v", ErrInvalidKey, i, err)
		}
		parts[i] = string(b)
	}
	return parts, nil
}

// ID returns the canonical serialized form used as the cache index.
func (k Key) ID() (string, error) {
	parts, err := k.encode()
	if err != nil {
		return "", err
	}
	return joinParts(parts), nil
}

func joinParts(parts []string) string {
	return "[" + strings.Join(parts, ",") + "]"
}

// String renders the canonical form, or a best-effort rendering for keys
// that cannot be serialized.
func (k Key) String() string {
	id, err := k.ID()
	if err != nil {
		return fmt.Sprintf("%v", []any(k))
	}
	return id
}

// Equal reports whether k and other serialize identically.
func (k Key) Equal(other Key) bool {
	a, errA := k.ID()
	b, errB := other.ID()
	return errA == nil && errB == nil && a == b
}

// HasPrefix reports whether prefix's elements equal k's leading elements.
// The empty key is a prefix of every key.
func (k Key) HasPrefix(prefix Key) bool {
	kp, err := k.encode()
	if err != nil {
		return false
	}
	pp, err := prefix.encode()
	if err != nil {
		return false
	}
	return hasPrefix(kp, pp)
}

func hasPrefix(parts, prefix []string) bool {
	if len(prefix) > len(parts) {
		return false
	}
	for i := range prefix {
		if parts[i] != prefix[i] {
			return false
		}
	}
	return true
}

// Scope returns the leading element when it is a string. It is used as a
// low-cardinality label for metrics and spans.
func (k Key) Scope() string {
	if len(k) == 0 {
		return ""
	}
	if s, ok := k[0].(string); ok {
		return s
	}
	return "other"
}

// Hash returns "query:<scope>:<16 hex chars>", a log-safe identifier that
// does not reveal filter values.
func (k Key) Hash() string {
	id, err := k.ID()
	if err != nil {
		return "query:" + k.Scope() + ":invalid"
	}
	sum := sha256.Sum256([]byte(id))
	return "query:" + k.Scope() + ":" + hex.EncodeToString(sum[:8])
}

// canonicalize produces a deterministic JSON representation of v. Structs
// are reduced to their JSON object form first so that field order and
// omitted zero values follow their json tags.
func canonicalize(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return []byte("null"), nil
	case string, bool, int, int32, int64, float64:
		return json.Marshal(val)
	case map[string]any:
		return canonicalizeMap(val)
	case []any:
		return canonicalizeSlice(val)
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var tree any
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	if err := dec.Decode(&tree); err != nil {
		return nil, err
	}
	switch t := tree.(type) {
	case map[string]any:
		return canonicalizeMap(t)
	case []any:
		return canonicalizeSlice(t)
	default:
		return raw, nil
	}
}

func canonicalizeMap(m map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	result := []byte("{")
	for i, k := range keys {
		if i > 0 {
			result = append(result, ',')
		}
		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		result = append(result, keyBytes...)
		result = append(result, ':')

		valBytes, err := canonicalize(m[k])
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	return append(result, '}'), nil
}

func canonicalizeSlice(s []any) ([]byte, error) {
	result := []byte("[")
	for i, v := range s {
		if i > 0 {
			result = append(result, ',')
		}
		valBytes, err := canonicalize(v)
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	return append(result, ']'), nil
}
