package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainNetwork      = "neuromap/network/v1"
	DomainCapabilities = "neuromap/capabilities/v1"
	DomainPlan         = "neuromap/plan/v1"
	DomainReport       = "neuromap/report/v1"
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

// Fingerprint returns the content hash of v under a domain.
// Two values with the same canonical JSON have the same fingerprint, so
// bit-identical inputs give byte-identical plans and identical hashes.
func Fingerprint(domain string, v any) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", domain, err)
	}
	return hashWithDomain(domain, canonical), nil
}

// NetworkFingerprint identifies a graph by content.
func NetworkFingerprint(net *Network) (string, error) {
	return Fingerprint(DomainNetwork, net)
}

// PlanFingerprint identifies a partition plan by content.
func PlanFingerprint(plan *PartitionPlan) (string, error) {
	return Fingerprint(DomainPlan, plan)
}

// MustFingerprint is like Fingerprint but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustFingerprint(domain string, v any) string {
	fp, err := Fingerprint(domain, v)
	if err != nil {
		panic(err)
	}
	return fp
}
