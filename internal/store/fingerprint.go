package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/roach88/cty/cty"
)

// Domain prefixes for fingerprints.
// Version suffix enables future algorithm migration.
const (
	DomainType    = "cty/type/v1"
	DomainPayload = "cty/payload/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// TypeFingerprint returns the fingerprint of t's canonical JSON descriptor.
// Equal types always have equal fingerprints.
func TypeFingerprint(t cty.Type) (string, error) {
	desc, err := cty.MarshalTypeJSON(t)
	if err != nil {
		return "", fmt.Errorf("TypeFingerprint: %w", err)
	}
	return hashWithDomain(DomainType, desc), nil
}

// payloadFingerprint binds wire bytes to the descriptor they were encoded
// against.
func payloadFingerprint(typeJSON, payload []byte) string {
	data := make([]byte, 0, len(typeJSON)+1+len(payload))
	data = append(data, typeJSON...)
	data = append(data, 0x00)
	data = append(data, payload...)
	return hashWithDomain(DomainPayload, data)
}

// MustTypeFingerprint is like TypeFingerprint but panics on error.
// Use only in tests or when the type is known to have a descriptor.
func MustTypeFingerprint(t cty.Type) string {
	fp, err := TypeFingerprint(t)
	if err != nil {
		panic(err)
	}
	return fp
}
