// Package provenance implements Hardstop's determinism kernel: canonical
// serialization, artifact hashing, config fingerprinting, and the RunRecord
// lifecycle every operator invocation emits (spec §4.A).
//
// Reference: SPEC_FULL.md §6.A Provenance Kernel.
package provenance

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// CanonicalSerialize renders payload as deterministic JSON: object keys
// sorted lexicographically, no insignificant whitespace, and every
// time.Time value rewritten as RFC3339Nano in UTC. It is the single
// function every hash/fingerprint in Hardstop routes through.
//
// payload must be built from maps, slices, strings, numbers, bools, nil,
// and time.Time — the shapes CanonicalPayload() methods across pkg/hstypes
// produce. Passing a raw struct is a programmer error: wrap it in a
// CanonicalPayload() first so the exact hashed shape is explicit and
// reviewable.
func CanonicalSerialize(payload any) ([]byte, error) {
	normalized := normalize(payload)
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalized); err != nil {
		return nil, fmt.Errorf("provenance: canonical serialize: %w", err)
	}
	// json.Encoder.Encode appends a trailing newline; trim it so the byte
	// stream is exactly the canonical form with no insignificant whitespace.
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// normalize walks payload recursively, sorting map keys (via sortedMap) and
// rewriting time.Time leaves to RFC3339Nano UTC strings.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return sortedMap(t)
	case []map[string]any:
		out := make([]any, len(t))
		for i, m := range t {
			out[i] = sortedMap(m)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	case *time.Time:
		if t == nil {
			return nil
		}
		return t.UTC().Format(time.RFC3339Nano)
	default:
		return v
	}
}

// orderedPair is one key/value slot in a sortedMap's deterministic encoding.
type orderedPair struct {
	Key   string
	Value any
}

// canonicalObject implements json.Marshaler to emit its pairs in the exact
// order they were sorted, bypassing Go's own (already-sorted, but
// re-derived here for auditability) map key ordering.
type canonicalObject []orderedPair

func (o canonicalObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := json.Marshal(p.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')
		valBytes, err := json.Marshal(normalize(p.Value))
		if err != nil {
			return nil, err
		}
		buf.Write(valBytes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func sortedMap(m map[string]any) canonicalObject {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make(canonicalObject, len(keys))
	for i, k := range keys {
		out[i] = orderedPair{Key: k, Value: m[k]}
	}
	return out
}
