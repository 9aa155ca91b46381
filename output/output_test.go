package output

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"diskwise/config"
	"diskwise/model"
	"diskwise/planner"
)

func sampleReport() *model.Report {
	saving := uint64(300 * 1024 * 1024)
	return &model.Report{
		ReportVersion: model.ReportVersion,
		GeneratedAt:   "2026-08-28T10:00:00Z",
		ScanID:        "scan-0123456789ab",
		Disks: []model.DiskRecord{
			{
				Name:                   "Data",
				MountPoint:             "D:\\",
				TotalSpaceBytes:        1 << 40,
				FreeSpaceBytes:         1 << 39,
				StorageType:            model.StorageSSD,
				LocalityClass:          model.LocalityLocalPhysical,
				EligibleForLocalTarget: true,
			},
			{
				Name:              "Cloud",
				MountPoint:        "G:\\",
				StorageType:       model.StorageCloudBacked,
				LocalityClass:     model.LocalityCloudBacked,
				IneligibleReasons: []string{"Cloud-backed drive is excluded as a local placement target."},
			},
		},
		Recommendations: []model.Recommendation{
			{
				ID:         "duplicate-cleanup-candidate",
				Title:      "Review duplicate cleanup candidates",
				Rationale:  "2 redundant duplicate group(s) account for about 300.0 MB of potential reclaimable space.",
				Confidence: 0.70,
				PolicySafe: true,
				EstimatedImpact: model.EstimatedImpact{
					SpaceSavingBytes: &saving,
				},
				RiskLevel: model.RiskMedium,
			},
		},
		PolicyDecisions: []model.PolicyDecision{
			{PolicyID: "safe_target_policy", RecommendationID: "duplicate-cleanup-candidate", Action: model.PolicyAllowed, Rationale: "Recommendation does not target a mount and passed eligibility checks."},
		},
		RuleTraces: []model.RuleTrace{
			{RuleID: "duplicate_cleanup", Status: model.TraceEmitted, Detail: "Rule produced one recommendation.", RecommendationID: "duplicate-cleanup-candidate"},
		},
		Warnings: []string{"Scan skipped 3 unreadable directories."},
	}
}

func samplePlan() *planner.Plan {
	return &planner.Plan{
		GeneratedAt: "2026-08-28T10:00:00Z",
		ScanID:      "scan-0123456789ab",
		Assumptions: []string{"Read-only what-if simulation: no file operations are performed."},
		Scenarios: []planner.ScenarioProjection{
			{
				ScenarioID:                "balanced",
				Title:                     "Balanced",
				Strategy:                  planner.StrategyBalanced,
				RecommendationIDs:         []string{"duplicate-cleanup-candidate"},
				RecommendationCount:       1,
				ProjectedSpaceSavingBytes: 300 * 1024 * 1024,
				RiskMix:                   planner.RiskMix{Medium: 1},
			},
		},
	}
}

func writerFor(t *testing.T, format, path string) *Writer {
	t.Helper()
	w, err := New(&config.Config{OutputFileName: path, OutputFormat: format}, &Metrics{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return w
}

func TestWriteReportJSONRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	w := writerFor(t, "json", path)

	if err := w.WriteReport(sampleReport(), samplePlan()); err != nil {
		t.Fatalf("WriteReport failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read output: %v", err)
	}

	var decoded struct {
		model.Report
		Plan *planner.Plan `json:"scenario_plan"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}
	if decoded.ReportVersion != model.ReportVersion {
		t.Fatalf("Report version lost in serialization, got %q", decoded.ReportVersion)
	}
	if len(decoded.Recommendations) != 1 || decoded.Recommendations[0].ID != "duplicate-cleanup-candidate" {
		t.Fatalf("Recommendations lost in serialization")
	}
	if decoded.Plan == nil || len(decoded.Plan.Scenarios) != 1 {
		t.Fatalf("Scenario plan lost in serialization")
	}
}

func TestWriteReportJSONOmitsNilPlan(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	w := writerFor(t, "json", path)

	if err := w.WriteReport(sampleReport(), nil); err != nil {
		t.Fatalf("WriteReport failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read output: %v", err)
	}
	if strings.Contains(string(data), "scenario_plan") {
		t.Fatalf("A nil plan must not serialize a scenario_plan key")
	}
}

func TestWriteReportMarkdown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.md")
	w := writerFor(t, "markdown", path)

	if err := w.WriteReport(sampleReport(), samplePlan()); err != nil {
		t.Fatalf("WriteReport failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read output: %v", err)
	}
	if !strings.HasPrefix(string(data), "# Diskwise Summary") {
		t.Fatalf("Markdown output should start with the summary header")
	}
}

func TestRenderMarkdownSummarySections(t *testing.T) {
	rendered := RenderMarkdownSummary(sampleReport(), samplePlan())

	for _, section := range []string{
		"# Diskwise Summary",
		"## Disk Inventory",
		"## Category Suggestions",
		"## Duplicate Highlights",
		"## Recommendations",
		"## Policy Decisions",
		"## Rule Traces",
		"## Scenario Plan",
		"## Warnings",
	} {
		if !strings.Contains(rendered, section) {
			t.Fatalf("Rendered summary is missing section %q", section)
		}
	}
	if !strings.Contains(rendered, "ineligible reasons: Cloud-backed drive") {
		t.Fatalf("Ineligible reasons should render under the disk inventory")
	}
	if !strings.Contains(rendered, "### Balanced") {
		t.Fatalf("Scenario titles should render as subsections")
	}
	if !strings.Contains(rendered, "300.0 MB") {
		t.Fatalf("Byte values should render human readable")
	}
}

func TestRenderMarkdownSummaryEmptyReport(t *testing.T) {
	report := &model.Report{ReportVersion: model.ReportVersion}
	rendered := RenderMarkdownSummary(report, nil)
	if !strings.Contains(rendered, "No disks detected.") {
		t.Fatalf("Empty inventory should render a placeholder")
	}
	if !strings.Contains(rendered, "No recommendations generated.") {
		t.Fatalf("Empty recommendations should render a placeholder")
	}
	if strings.Contains(rendered, "## Scenario Plan") {
		t.Fatalf("A nil plan must not render a scenario section")
	}
}

func TestSanitizePayloadStripsMounts(t *testing.T) {
	disk := model.DiskRecord{
		Name:          "Data",
		MountPoint:    "D:\\",
		Vendor:        "Samsung",
		Model:         "990 PRO",
		StorageType:   model.StorageNVMe,
		LocalityClass: model.LocalityLocalPhysical,
	}

	sanitized := sanitizePayload("disk", disk, otelPolicy{})
	data, ok := sanitized.(map[string]interface{})
	if !ok {
		t.Fatalf("Expected a sanitized map, got %T", sanitized)
	}
	for _, key := range []string{"mount_point", "name", "vendor", "model"} {
		if _, present := data[key]; present {
			t.Fatalf("Sanitized disk payload must not carry %q", key)
		}
	}
	if data["storage_type"] != string(model.StorageNVMe) {
		t.Fatalf("Classifications must survive sanitization, got %v", data["storage_type"])
	}
}

func TestSanitizePayloadOptIn(t *testing.T) {
	rec := model.Recommendation{ID: "r", TargetMount: "D:\\", Rationale: "verbatim"}
	sanitized := sanitizePayload("recommendation", rec, otelPolicy{includeMounts: true})
	if _, ok := sanitized.(model.Recommendation); !ok {
		t.Fatalf("Opt-in export must pass the payload through unchanged")
	}
}

func TestResolveOtelEndpoint(t *testing.T) {
	if got := resolveOtelEndpoint(&config.Config{}); got != "" {
		t.Fatalf("No endpoint configured should resolve empty, got %q", got)
	}
	if got := resolveOtelEndpoint(&config.Config{OtelEndpoint: " https://collector:4318 "}); got != "https://collector:4318" {
		t.Fatalf("Configured endpoint should win, got %q", got)
	}

	t.Setenv("OTEL_EXPORTER_OTLP_LOGS_ENDPOINT", "https://env-collector:4318")
	if got := resolveOtelEndpoint(&config.Config{}); got != "" {
		t.Fatalf("Environment fallback requires opt-in, got %q", got)
	}
	if got := resolveOtelEndpoint(&config.Config{OtelFromEnv: true}); got != "https://env-collector:4318" {
		t.Fatalf("Opt-in environment fallback failed, got %q", got)
	}
}
