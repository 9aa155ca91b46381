package model

import (
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint returns a stable hex digest of the value's canonical JSON form.
// Two runs over identical input facts must produce identical fingerprints for
// the recommendation, decision, and trace lists; the evaluation harness relies
// on this to verify byte-for-byte reproducibility.
func Fingerprint(value any) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("fingerprint marshal: %w", err)
	}
	return fmt.Sprintf("%016x", xxhash.Sum64(data)), nil
}

// DeriveScanID builds a deterministic scan identifier from the scan roots and
// generation timestamp, so re-serialized reports keep their identity.
func DeriveScanID(generatedAt string, roots []string) string {
	digest := xxhash.New()
	_, _ = digest.WriteString(generatedAt)
	for _, root := range roots {
		_, _ = digest.WriteString("\x00")
		_, _ = digest.WriteString(root)
	}
	return fmt.Sprintf("scan-%012x", digest.Sum64()&0xffffffffffff)
}
