package fact

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainFact    = "syllog/fact/v1"
	DomainBinding = "syllog/binding/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data). The null separator prevents
// domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// FactID computes the content-addressed identity of a fact.
// Two facts with the same (relation, subject, object) triple hash
// identically regardless of how they were produced.
func FactID(f Fact) (string, error) {
	canonical, err := MarshalCanonical(map[string]any{
		"relation": f.Relation,
		"subject":  f.Subject,
		"object":   f.Object,
	})
	if err != nil {
		return "", fmt.Errorf("FactID: %w", err)
	}
	return hashWithDomain(DomainFact, canonical), nil
}

// BindingsHash computes the content-addressed identity of a binding set.
// Used to deduplicate solutions across disjunctive rule alternatives.
func BindingsHash(b Bindings) (string, error) {
	canonical, err := MarshalCanonical(b)
	if err != nil {
		return "", fmt.Errorf("BindingsHash: %w", err)
	}
	return hashWithDomain(DomainBinding, canonical), nil
}

// MustBindingsHash is like BindingsHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustBindingsHash(b Bindings) string {
	hash, err := BindingsHash(b)
	if err != nil {
		panic(err)
	}
	return hash
}
