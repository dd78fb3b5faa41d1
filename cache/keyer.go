package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// Prefix namespaces cache keys. Raw upstream bodies and scored results use
// disjoint prefixes so the two never collide.
type Prefix string

const (
	PrefixGitHubBody   Prefix = "body:gh:search"
	PrefixGitLabBody   Prefix = "body:gl:search"
	PrefixGitHubScored Prefix = "scored:gh:search"
	PrefixGitLabScored Prefix = "scored:gl:search"
)

// Keyer generates deterministic cache keys from request payloads.
//
// Contract:
// - Determinism: same inputs must produce same key, regardless of map iteration order.
// - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	// Key generates a cache key from a namespace prefix and a payload.
	Key(prefix Prefix, payload any) (string, error)
}

// DefaultKeyer generates SHA-256 based cache keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates a new default keyer.
func NewDefaultKeyer() *DefaultKeyer {
	return &DefaultKeyer{}
}

// Key generates a deterministic cache key. See BuildKey.
func (k *DefaultKeyer) Key(prefix Prefix, payload any) (string, error) {
	return BuildKey(prefix, payload)
}

// BuildKey returns <prefix>:<hex sha256 of StableStringify(payload)>.
func BuildKey(prefix Prefix, payload any) (string, error) {
	canonical, err := StableStringify(payload)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(canonical))
	return string(prefix) + ":" + hex.EncodeToString(sum[:]), nil
}

// StableStringify renders v as JSON with object keys sorted at every depth.
//
// v is first reduced to its JSON shape, so struct tags are honored and
// omitempty fields disappear exactly as they would from json.Marshal. Array
// order is preserved and numbers keep their encoding/json rendering.
// It fails only for values encoding/json cannot represent.
func StableStringify(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("cache: failed to canonicalize payload: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return "", fmt.Errorf("cache: failed to canonicalize payload: %w", err)
	}

	var buf bytes.Buffer
	if err := writeCanonical(&buf, generic); err != nil {
		return "", fmt.Errorf("cache: failed to canonicalize payload: %w", err)
	}
	return buf.String(), nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case json.Number:
		buf.WriteString(val.String())
	case string:
		return writeString(buf, val)
	case []any:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeString(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unexpected JSON value of type %T", v)
	}
	return nil
}

// writeString emits s as a JSON string without HTML escaping.
func writeString(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	// Encoder terminates every value with a newline.
	buf.Truncate(buf.Len() - 1)
	return nil
}

// Ensure DefaultKeyer implements Keyer
var _ Keyer = (*DefaultKeyer)(nil)
