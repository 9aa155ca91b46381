package model

import (
	"strings"
	"testing"
)

func TestFingerprintDeterministic(t *testing.T) {
	rec := Recommendation{
		ID:          "consolidation-d",
		Title:       "Consolidate media onto D:",
		Confidence:  0.74,
		TargetMount: "D:\\",
		RiskLevel:   RiskMedium,
	}

	first, err := Fingerprint(rec)
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := Fingerprint(rec)
		if err != nil {
			t.Fatalf("Fingerprint failed: %v", err)
		}
		if again != first {
			t.Fatalf("Fingerprint should be stable, got %s then %s", first, again)
		}
	}
	if len(first) != 16 {
		t.Fatalf("Expected a 16-hex-digit fingerprint, got %q", first)
	}
}

func TestFingerprintSensitiveToContent(t *testing.T) {
	a, err := Fingerprint(Recommendation{ID: "a"})
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}
	b, err := Fingerprint(Recommendation{ID: "b"})
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}
	if a == b {
		t.Fatalf("Distinct values should not share fingerprint %s", a)
	}
}

func TestDeriveScanIDStable(t *testing.T) {
	first := DeriveScanID("2026-08-28T10:00:00Z", []string{"C:\\Users", "D:\\"})
	again := DeriveScanID("2026-08-28T10:00:00Z", []string{"C:\\Users", "D:\\"})
	if first != again {
		t.Fatalf("Scan ID should be stable, got %s then %s", first, again)
	}
	if !strings.HasPrefix(first, "scan-") || len(first) != len("scan-")+12 {
		t.Fatalf("Unexpected scan ID format: %q", first)
	}
}

func TestDeriveScanIDVariesWithRoots(t *testing.T) {
	a := DeriveScanID("2026-08-28T10:00:00Z", []string{"C:\\Users"})
	b := DeriveScanID("2026-08-28T10:00:00Z", []string{"D:\\"})
	if a == b {
		t.Fatalf("Different roots should produce different scan IDs")
	}
}
