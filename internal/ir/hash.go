package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainStep   = "guardloop/step/v1"
	DomainConfig = "guardloop/config/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// StepID computes the content-addressed id of a step. The ID field itself
// is not part of the hash.
func StepID(s Step) (string, error) {
	canonical, err := MarshalCanonical(s.Fields())
	if err != nil {
		return "", fmt.Errorf("StepID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainStep, canonical), nil
}

// ConfigHash identifies a configuration document. cfg must be encodable
// by MarshalCanonical.
func ConfigHash(cfg map[string]any) (string, error) {
	canonical, err := MarshalCanonical(cfg)
	if err != nil {
		return "", fmt.Errorf("ConfigHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainConfig, canonical), nil
}

// MustStepID is like StepID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustStepID(s Step) string {
	id, err := StepID(s)
	if err != nil {
		panic(err)
	}
	return id
}
