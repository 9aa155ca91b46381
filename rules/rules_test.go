package rules

import (
	"strings"
	"testing"

	"diskwise/model"
)

const gib = 1024 * 1024 * 1024

func localDisk(mount string, total, free uint64) model.DiskRecord {
	return model.DiskRecord{
		Name:                   mount,
		MountPoint:             mount,
		TotalSpaceBytes:        total,
		FreeSpaceBytes:         free,
		LocalityClass:          model.LocalityLocalPhysical,
		StorageType:            model.StorageSSD,
		PerformanceClass:       model.PerformanceFast,
		PerformanceConfidence:  0.8,
		EligibleForLocalTarget: true,
	}
}

func slowDisk(mount string, total, free uint64) model.DiskRecord {
	disk := localDisk(mount, total, free)
	disk.StorageType = model.StorageHDD
	disk.PerformanceClass = model.PerformanceSlow
	disk.PerformanceConfidence = 0.75
	return disk
}

func category(mount string, cat model.Category, confidence float64) model.CategorySuggestion {
	return model.CategorySuggestion{
		Target:     mount + "data",
		DiskMount:  mount,
		Category:   cat,
		Confidence: confidence,
	}
}

func findCandidate(t *testing.T, candidates []model.Candidate, rule string) model.Recommendation {
	t.Helper()
	for _, candidate := range candidates {
		if candidate.Rule == rule {
			return candidate.Recommendation
		}
	}
	t.Fatalf("Expected a candidate from rule %q, got %d candidates", rule, len(candidates))
	return model.Recommendation{}
}

func findTrace(t *testing.T, traces []model.RuleTrace, rule string) model.RuleTrace {
	t.Helper()
	for _, trace := range traces {
		if trace.RuleID == rule {
			return trace
		}
	}
	t.Fatalf("Expected a trace for rule %q", rule)
	return model.RuleTrace{}
}

func TestEvaluateEmitsOneTracePerRule(t *testing.T) {
	candidates, traces := Evaluate(&Facts{})
	if len(candidates) != 0 {
		t.Fatalf("Empty facts should produce no candidates, got %d", len(candidates))
	}
	if len(traces) != len(RuleIDs()) {
		t.Fatalf("Expected %d traces, got %d", len(RuleIDs()), len(traces))
	}
	for i, id := range RuleIDs() {
		if traces[i].RuleID != id {
			t.Fatalf("Trace %d should follow registry order: got %q, want %q", i, traces[i].RuleID, id)
		}
		if traces[i].Status != model.TraceSkipped {
			t.Fatalf("Rule %q should be skipped on empty facts, got %s", id, traces[i].Status)
		}
		if traces[i].Detail == "" {
			t.Fatalf("Skipped rule %q should carry a reason", id)
		}
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	facts := &Facts{
		Disks: []model.DiskRecord{
			localDisk("D:\\", 500*gib, 400*gib),
			slowDisk("E:\\", 500*gib, 300*gib),
		},
		Categories: []model.CategorySuggestion{
			category("E:\\", model.CategoryWork, 0.9),
			category("E:\\", model.CategoryGames, 0.5),
		},
	}

	firstCandidates, firstTraces := Evaluate(facts)
	candidatePrint, err := model.Fingerprint(firstCandidates)
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}
	tracePrint, err := model.Fingerprint(firstTraces)
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}

	for i := 0; i < 5; i++ {
		candidates, traces := Evaluate(facts)
		cp, err := model.Fingerprint(candidates)
		if err != nil {
			t.Fatalf("Fingerprint failed: %v", err)
		}
		tp, err := model.Fingerprint(traces)
		if err != nil {
			t.Fatalf("Fingerprint failed: %v", err)
		}
		if cp != candidatePrint || tp != tracePrint {
			t.Fatalf("Run %d produced different output fingerprints", i)
		}
	}
}

func TestActiveWorkloadPlacement(t *testing.T) {
	facts := &Facts{
		Disks: []model.DiskRecord{
			localDisk("D:\\", 500*gib, 400*gib),
			slowDisk("E:\\", 500*gib, 300*gib),
		},
		Categories: []model.CategorySuggestion{
			category("E:\\", model.CategoryWork, 0.9),
		},
	}

	candidates, _ := Evaluate(facts)
	candidate := findCandidate(t, candidates, "active_workload_placement")
	if candidate.ID != "active-workload-placement" {
		t.Fatalf("Unexpected recommendation ID %q", candidate.ID)
	}
	if candidate.TargetMount != "D:\\" {
		t.Fatalf("Expected the faster disk as target, got %q", candidate.TargetMount)
	}
	if candidate.Confidence > 0.92 {
		t.Fatalf("Confidence must be clamped at 0.92, got %f", candidate.Confidence)
	}
	if candidate.RiskLevel != model.RiskLow {
		t.Fatalf("Expected low risk, got %s", candidate.RiskLevel)
	}
	if !strings.Contains(candidate.Rationale, "E:\\") || !strings.Contains(candidate.Rationale, "D:\\") {
		t.Fatalf("Rationale should name source and target, got %q", candidate.Rationale)
	}
}

func TestActiveWorkloadPlacementSkipsWithoutActiveSource(t *testing.T) {
	facts := &Facts{
		Disks: []model.DiskRecord{
			localDisk("D:\\", 500*gib, 400*gib),
			slowDisk("E:\\", 500*gib, 300*gib),
		},
		Categories: []model.CategorySuggestion{
			category("E:\\", model.CategoryArchive, 0.9),
		},
	}

	candidates, traces := Evaluate(facts)
	for _, candidate := range candidates {
		if candidate.Rule == "active_workload_placement" {
			t.Fatalf("Rule should not fire without an active workload signal")
		}
	}
	trace := findTrace(t, traces, "active_workload_placement")
	if trace.Status != model.TraceSkipped {
		t.Fatalf("Expected a skipped trace, got %s", trace.Status)
	}
}

func TestConsolidationOpportunity(t *testing.T) {
	source := localDisk("/mnt/old", 200*gib, 100*gib)
	target := localDisk("/mnt/big", 500*gib, 400*gib)
	facts := &Facts{
		Disks: []model.DiskRecord{target, source},
		Paths: []model.PathStats{
			{RootPath: "/mnt/old/data", DiskMount: "/mnt/old", TotalSizeBytes: 60 * gib},
			{RootPath: "/mnt/big/data", DiskMount: "/mnt/big", TotalSizeBytes: 60 * gib},
		},
	}

	candidates, _ := Evaluate(facts)
	candidate := findCandidate(t, candidates, "consolidation_opportunity")
	if candidate.Confidence != 0.74 {
		t.Fatalf("Expected confidence 0.74, got %f", candidate.Confidence)
	}
	if candidate.TargetMount != "/mnt/big" {
		t.Fatalf("Expected /mnt/big as target, got %q", candidate.TargetMount)
	}
	if candidate.EstimatedImpact.SpaceSavingBytes == nil ||
		*candidate.EstimatedImpact.SpaceSavingBytes != 100*gib {
		t.Fatalf("Expected the source used space as estimated saving")
	}
	if candidate.RiskLevel != model.RiskMedium {
		t.Fatalf("Expected medium risk, got %s", candidate.RiskLevel)
	}
}

func TestConsolidationRequiresScanCoverage(t *testing.T) {
	source := localDisk("/mnt/old", 200*gib, 100*gib)
	target := localDisk("/mnt/big", 500*gib, 400*gib)
	facts := &Facts{
		Disks: []model.DiskRecord{target, source},
		Paths: []model.PathStats{
			// Only 10% of the source's used space was observed.
			{RootPath: "/mnt/old/data", DiskMount: "/mnt/old", TotalSizeBytes: 10 * gib},
			{RootPath: "/mnt/big/data", DiskMount: "/mnt/big", TotalSizeBytes: 60 * gib},
		},
	}

	candidates, _ := Evaluate(facts)
	for _, candidate := range candidates {
		if candidate.Rule == "consolidation_opportunity" {
			t.Fatalf("Rule should not fire with insufficient scan coverage")
		}
	}
}

func TestConsolidationRoleInversionGuard(t *testing.T) {
	// Active source, cold target that is no faster: the pairing is refused.
	source := localDisk("/mnt/work", 200*gib, 100*gib)
	target := slowDisk("/mnt/cold", 500*gib, 400*gib)
	facts := &Facts{
		Disks: []model.DiskRecord{target, source},
		Paths: []model.PathStats{
			{RootPath: "/mnt/work/p", DiskMount: "/mnt/work", TotalSizeBytes: 60 * gib},
			{RootPath: "/mnt/cold/m", DiskMount: "/mnt/cold", TotalSizeBytes: 60 * gib},
		},
		Categories: []model.CategorySuggestion{
			category("/mnt/work", model.CategoryWork, 0.9),
			category("/mnt/cold", model.CategoryArchive, 0.9),
		},
	}

	candidates, _ := Evaluate(facts)
	for _, candidate := range candidates {
		if candidate.Rule == "consolidation_opportunity" {
			t.Fatalf("Role-inversion guard should block active content moving to a slower cold disk")
		}
	}
}

func TestRiskyDiskEmitsPerMount(t *testing.T) {
	a := localDisk("/mnt/a", 100*gib, 5*gib)
	b := localDisk("/mnt/b", 100*gib, 8*gib)
	facts := &Facts{
		Disks: []model.DiskRecord{a, b},
		Categories: []model.CategorySuggestion{
			category("/mnt/a", model.CategoryWork, 0.9),
			category("/mnt/b", model.CategoryMedia, 0.9),
		},
	}

	candidates, traces := Evaluate(facts)
	seen := 0
	for _, candidate := range candidates {
		if candidate.Rule != "risky_disk" {
			continue
		}
		seen++
		rec := candidate.Recommendation
		if !strings.HasPrefix(rec.ID, "risky-disk-") {
			t.Fatalf("Unexpected risky-disk recommendation ID %q", rec.ID)
		}
		if rec.Confidence != 0.82 {
			t.Fatalf("Expected confidence 0.82, got %f", rec.Confidence)
		}
		if rec.RiskLevel != model.RiskHigh {
			t.Fatalf("Expected high risk, got %s", rec.RiskLevel)
		}
	}
	if seen != 2 {
		t.Fatalf("Expected one recommendation per risky mount, got %d", seen)
	}

	trace := findTrace(t, traces, "risky_disk")
	if trace.Status != model.TraceEmitted {
		t.Fatalf("Expected an emitted trace, got %s", trace.Status)
	}
	if !strings.Contains(trace.Detail, "2 recommendation(s)") {
		t.Fatalf("Multi-emit trace should report the count, got %q", trace.Detail)
	}
}

func TestRiskyDiskSuppressedByBackupSignal(t *testing.T) {
	a := localDisk("/mnt/a", 100*gib, 5*gib)
	facts := &Facts{
		Disks: []model.DiskRecord{a},
		Categories: []model.CategorySuggestion{
			category("/mnt/a", model.CategoryWork, 0.9),
			category("/mnt/a", model.CategoryBackup, 0.7),
		},
	}

	candidates, _ := Evaluate(facts)
	for _, candidate := range candidates {
		if candidate.Rule == "risky_disk" {
			t.Fatalf("Backup signal should suppress the risky-disk rule")
		}
	}
}

func TestBackupGap(t *testing.T) {
	facts := &Facts{
		Disks: []model.DiskRecord{localDisk("/mnt/work", 200*gib, 100*gib)},
		Categories: []model.CategorySuggestion{
			category("/mnt/work", model.CategoryWork, 0.8),
		},
	}

	candidates, _ := Evaluate(facts)
	candidate := findCandidate(t, candidates, "backup_gap")
	if candidate.ID != "backup-gap" {
		t.Fatalf("Unexpected recommendation ID %q", candidate.ID)
	}
	if candidate.Confidence != 0.80 {
		t.Fatalf("Expected confidence 0.80, got %f", candidate.Confidence)
	}
	if candidate.RiskLevel != model.RiskHigh {
		t.Fatalf("Expected high risk, got %s", candidate.RiskLevel)
	}
}

func TestBackupGapSuppressedWhenBackupPresent(t *testing.T) {
	facts := &Facts{
		Disks: []model.DiskRecord{
			localDisk("/mnt/work", 200*gib, 100*gib),
			localDisk("/mnt/vault", 500*gib, 300*gib),
		},
		Categories: []model.CategorySuggestion{
			category("/mnt/work", model.CategoryWork, 0.8),
			category("/mnt/vault", model.CategoryBackup, 0.8),
		},
	}

	candidates, traces := Evaluate(facts)
	for _, candidate := range candidates {
		if candidate.Rule == "backup_gap" {
			t.Fatalf("Backup pattern should suppress the backup-gap rule")
		}
	}
	trace := findTrace(t, traces, "backup_gap")
	if !strings.Contains(trace.Detail, "backup") {
		t.Fatalf("Skip reason should mention the backup match, got %q", trace.Detail)
	}
}

func TestDuplicateCleanup(t *testing.T) {
	facts := &Facts{
		Duplicates: []model.DuplicateGroup{
			{
				SizeBytes:        200 * 1024 * 1024,
				TotalWastedBytes: 200 * 1024 * 1024,
				Files:            make([]model.DuplicateFile, 2),
				Intent:           model.DuplicateIntent{Label: model.IntentLikelyRedundant},
			},
			{
				SizeBytes:        100 * 1024 * 1024,
				TotalWastedBytes: 100 * 1024 * 1024,
				Files:            make([]model.DuplicateFile, 2),
				Intent:           model.DuplicateIntent{Label: model.IntentLikelyRedundant},
			},
			{
				// Intentional copies never count toward cleanup.
				SizeBytes:        900 * 1024 * 1024,
				TotalWastedBytes: 900 * 1024 * 1024,
				Files:            make([]model.DuplicateFile, 2),
				Intent:           model.DuplicateIntent{Label: model.IntentLikelyIntentional},
			},
		},
	}

	candidates, _ := Evaluate(facts)
	candidate := findCandidate(t, candidates, "duplicate_cleanup")
	if candidate.Confidence != 0.70 {
		t.Fatalf("Expected confidence 0.70, got %f", candidate.Confidence)
	}
	want := uint64(300 * 1024 * 1024)
	if candidate.EstimatedImpact.SpaceSavingBytes == nil ||
		*candidate.EstimatedImpact.SpaceSavingBytes != want {
		t.Fatalf("Expected %d bytes of estimated saving", want)
	}
	if candidate.RiskLevel != model.RiskMedium {
		t.Fatalf("A small cleanup should stay medium risk, got %s", candidate.RiskLevel)
	}
}

func TestDuplicateCleanupBulkEscalatesRisk(t *testing.T) {
	facts := &Facts{
		Duplicates: []model.DuplicateGroup{
			{
				TotalWastedBytes: 512 * 1024 * 1024,
				Files:            make([]model.DuplicateFile, 30),
				Intent:           model.DuplicateIntent{Label: model.IntentLikelyRedundant},
			},
		},
	}

	candidates, _ := Evaluate(facts)
	candidate := findCandidate(t, candidates, "duplicate_cleanup")
	if candidate.RiskLevel != model.RiskHigh {
		t.Fatalf("A cleanup touching many files should be high risk, got %s", candidate.RiskLevel)
	}
}

func TestDuplicateCleanupBelowTotalThreshold(t *testing.T) {
	facts := &Facts{
		Duplicates: []model.DuplicateGroup{
			{
				TotalWastedBytes: 100 * 1024 * 1024,
				Files:            make([]model.DuplicateFile, 2),
				Intent:           model.DuplicateIntent{Label: model.IntentLikelyRedundant},
			},
		},
	}

	candidates, traces := Evaluate(facts)
	for _, candidate := range candidates {
		if candidate.Rule == "duplicate_cleanup" {
			t.Fatalf("Totals below the review threshold should not emit")
		}
	}
	trace := findTrace(t, traces, "duplicate_cleanup")
	if !strings.Contains(trace.Detail, "below the review threshold") {
		t.Fatalf("Skip reason should explain the threshold, got %q", trace.Detail)
	}
}

func TestOSHeadroom(t *testing.T) {
	osDisk := localDisk("C:\\", 200*gib, 10*gib)
	osDisk.IsOSDrive = true
	osDisk.EligibleForLocalTarget = false
	facts := &Facts{Disks: []model.DiskRecord{osDisk}}

	candidates, _ := Evaluate(facts)
	candidate := findCandidate(t, candidates, "os_headroom")
	if candidate.Confidence != 0.72 {
		t.Fatalf("Expected base confidence 0.72, got %f", candidate.Confidence)
	}
	if candidate.RiskLevel != model.RiskHigh {
		t.Fatalf("Expected high risk, got %s", candidate.RiskLevel)
	}
}

func TestOSHeadroomColdDataRaisesConfidence(t *testing.T) {
	osDisk := localDisk("C:\\", 200*gib, 10*gib)
	osDisk.IsOSDrive = true
	facts := &Facts{
		Disks: []model.DiskRecord{osDisk},
		Categories: []model.CategorySuggestion{
			category("C:\\", model.CategoryMedia, 0.8),
		},
	}

	candidates, _ := Evaluate(facts)
	candidate := findCandidate(t, candidates, "os_headroom")
	if candidate.Confidence != 0.86 {
		t.Fatalf("Cold-dominated OS drive should raise confidence to 0.86, got %f", candidate.Confidence)
	}
}

func TestOSHeadroomSkipsHealthyDrive(t *testing.T) {
	osDisk := localDisk("C:\\", 200*gib, 100*gib)
	osDisk.IsOSDrive = true
	facts := &Facts{Disks: []model.DiskRecord{osDisk}}

	candidates, traces := Evaluate(facts)
	for _, candidate := range candidates {
		if candidate.Rule == "os_headroom" {
			t.Fatalf("Healthy OS drive should not trigger the headroom rule")
		}
	}
	trace := findTrace(t, traces, "os_headroom")
	if !strings.Contains(trace.Detail, "above the safety threshold") {
		t.Fatalf("Skip reason should cite the threshold, got %q", trace.Detail)
	}
}

func TestCloudExclusionNotice(t *testing.T) {
	cloud := model.DiskRecord{
		Name:          "Google Drive",
		MountPoint:    "G:\\",
		LocalityClass: model.LocalityCloudBacked,
		StorageType:   model.StorageCloudBacked,
	}
	facts := &Facts{Disks: []model.DiskRecord{cloud}}

	candidates, _ := Evaluate(facts)
	candidate := findCandidate(t, candidates, "cloud_exclusion_notice")
	if candidate.Confidence != 0.95 {
		t.Fatalf("Expected confidence 0.95, got %f", candidate.Confidence)
	}
	if !strings.Contains(candidate.Rationale, "Google Drive (G:\\)") {
		t.Fatalf("Rationale should list the cloud drive, got %q", candidate.Rationale)
	}
	if candidate.RiskLevel != model.RiskLow {
		t.Fatalf("Informational notice should be low risk, got %s", candidate.RiskLevel)
	}
}
