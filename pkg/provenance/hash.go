package provenance

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Hashable is implemented by any Hardstop data model type whose identity or
// integrity is defined by a canonical hash (RawItem.content_hash,
// IncidentEvidence.artifact_hash, config_hash, and similar fields across
// spec §3).
type Hashable interface {
	CanonicalPayload() map[string]any
}

// HashPayload computes the SHA-256 of payload's canonical serialization and
// returns it hex-encoded. This is the one function every hash field in
// Hardstop's data model is computed through (spec §4.A "artifact_hash =
// SHA-256(canonical_serialize(payload))").
func HashPayload(h Hashable) (string, error) {
	b, err := CanonicalSerialize(h.CanonicalPayload())
	if err != nil {
		return "", fmt.Errorf("provenance: hash payload: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// HashBytes is the low-level primitive HashPayload and ComputeID both build
// on: SHA-256 over an already-canonical byte stream.
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// ComputeID derives a deterministic identifier by hashing the canonical
// serialization of seed and prefixing it with kind, truncating the hex
// digest to width hex characters. Used for event_id, alert_id correlation
// stand-ins, and artifact_id generation (spec §4.C "event_id =
// sha256(...)[:16]" and similar rules elsewhere).
func ComputeID(kind string, seed map[string]any, width int) (string, error) {
	b, err := CanonicalSerialize(seed)
	if err != nil {
		return "", fmt.Errorf("provenance: compute id: %w", err)
	}
	digest := HashBytes(b)
	if width <= 0 || width > len(digest) {
		width = len(digest)
	}
	if kind == "" {
		return digest[:width], nil
	}
	return kind + "_" + digest[:width], nil
}
