package output

import (
	"fmt"
	"strings"

	"diskwise/model"
	"diskwise/planner"
)

// RenderMarkdownSummary renders a human-readable digest of the report and,
// when present, the scenario plan. Section order is stable so summaries
// diff cleanly between runs.
func RenderMarkdownSummary(report *model.Report, plan *planner.Plan) string {
	var out strings.Builder
	out.WriteString("# Diskwise Summary\n\n")
	fmt.Fprintf(&out, "- Report version: `%s`\n- Generated at: `%s`\n- Scan id: `%s`\n\n",
		report.ReportVersion, report.GeneratedAt, report.ScanID)

	out.WriteString("## Disk Inventory\n\n")
	if len(report.Disks) == 0 {
		out.WriteString("No disks detected.\n\n")
	} else {
		for _, disk := range report.Disks {
			fmt.Fprintf(&out,
				"- `%s` (`%s`): total %s, free %s, type `%s`, locality `%s`, role `%s`, os_drive `%t`, eligible_target `%t`\n",
				disk.Name, disk.MountPoint,
				humanBytes(disk.TotalSpaceBytes), humanBytes(disk.FreeSpaceBytes),
				disk.StorageType, disk.LocalityClass, disk.RoleHint.Role,
				disk.IsOSDrive, disk.EligibleForLocalTarget)
			if len(disk.IneligibleReasons) > 0 {
				fmt.Fprintf(&out, "  - ineligible reasons: %s\n", strings.Join(disk.IneligibleReasons, "; "))
			}
		}
		out.WriteString("\n")
	}

	out.WriteString("## Path Summaries\n\n")
	for _, path := range report.Paths {
		fmt.Fprintf(&out, "### `%s`\n\n- Files: %d\n- Directories: %d\n- Size: %s\n",
			path.RootPath, path.FileCount, path.DirectoryCount, humanBytes(path.TotalSizeBytes))
		if len(path.LargestDirs) > 0 {
			out.WriteString("- Largest directories:\n")
			for _, dir := range path.LargestDirs {
				fmt.Fprintf(&out, "  - `%s` (%s)\n", dir.Path, humanBytes(dir.SizeBytes))
			}
		}
		if len(path.FileTypeSummary.TopExtensions) > 0 {
			out.WriteString("- Top file types:\n")
			for _, item := range path.FileTypeSummary.TopExtensions {
				fmt.Fprintf(&out, "  - `.%s`: %d file(s), %s\n", item.Extension, item.Files, humanBytes(item.Bytes))
			}
		}
		out.WriteString("\n")
	}

	out.WriteString("## Category Suggestions\n\n")
	if len(report.Categories) == 0 {
		out.WriteString("No category suggestions generated.\n\n")
	} else {
		for _, category := range report.Categories {
			fmt.Fprintf(&out, "- `%s` -> `%s` (confidence %.2f): %s\n",
				category.Target, category.Category, category.Confidence, category.Rationale)
		}
		out.WriteString("\n")
	}

	out.WriteString("## Duplicate Highlights\n\n")
	if len(report.Duplicates) == 0 {
		out.WriteString("No duplicate groups were detected.\n\n")
	} else {
		groups := report.Duplicates
		if len(groups) > 20 {
			groups = groups[:20]
		}
		for _, group := range groups {
			fmt.Fprintf(&out, "- %d duplicate(s), %s each, wasted ~%s, label `%s`\n",
				len(group.Files), humanBytes(group.SizeBytes),
				humanBytes(group.TotalWastedBytes), group.Intent.Label)
		}
		out.WriteString("\n")
	}

	out.WriteString("## Recommendations\n\n")
	if len(report.Recommendations) == 0 {
		out.WriteString("No recommendations generated.\n")
	} else {
		for _, rec := range report.Recommendations {
			fmt.Fprintf(&out, "### %s\n\n- Risk: `%s`\n- Confidence: `%.2f`\n- Policy safe: `%t`\n- Rationale: %s\n",
				rec.Title, rec.RiskLevel, rec.Confidence, rec.PolicySafe, rec.Rationale)
			if rec.TargetMount != "" {
				fmt.Fprintf(&out, "- Target mount: `%s`\n", rec.TargetMount)
			}
			if rec.EstimatedImpact.SpaceSavingBytes != nil {
				fmt.Fprintf(&out, "- Estimated space impact: %s\n", humanBytes(*rec.EstimatedImpact.SpaceSavingBytes))
			}
			if rec.EstimatedImpact.Performance != "" {
				fmt.Fprintf(&out, "- Performance impact: %s\n", rec.EstimatedImpact.Performance)
			}
			if rec.EstimatedImpact.RiskNotes != "" {
				fmt.Fprintf(&out, "- Risk notes: %s\n", rec.EstimatedImpact.RiskNotes)
			}
			out.WriteString("\n")
		}
	}

	if len(report.PolicyDecisions) > 0 {
		out.WriteString("## Policy Decisions\n\n")
		for _, decision := range report.PolicyDecisions {
			fmt.Fprintf(&out, "- `%s` on `%s`: `%s` (%s)\n",
				decision.PolicyID, decision.RecommendationID, decision.Action, decision.Rationale)
		}
		out.WriteString("\n")
	}

	if len(report.RuleTraces) > 0 {
		out.WriteString("## Rule Traces\n\n")
		for _, trace := range report.RuleTraces {
			fmt.Fprintf(&out, "- `%s`: `%s` (%s)\n", trace.RuleID, trace.Status, trace.Detail)
		}
		out.WriteString("\n")
	}

	if plan != nil {
		out.WriteString("## Scenario Plan\n\n")
		for _, scenario := range plan.Scenarios {
			fmt.Fprintf(&out, "### %s\n\n- Included: %d recommendation(s)\n- Projected space saving: %s\n- Risk mix: %d low / %d medium / %d high\n",
				scenario.Title, scenario.RecommendationCount,
				humanBytes(scenario.ProjectedSpaceSavingBytes),
				scenario.RiskMix.Low, scenario.RiskMix.Medium, scenario.RiskMix.High)
			for _, note := range scenario.Notes {
				fmt.Fprintf(&out, "- Note: %s\n", note)
			}
			out.WriteString("\n")
		}
	}

	if len(report.Warnings) > 0 {
		out.WriteString("## Warnings\n\n")
		for _, warning := range report.Warnings {
			fmt.Fprintf(&out, "- %s\n", warning)
		}
	}

	return out.String()
}

func humanBytes(value uint64) string {
	units := []string{"B", "KB", "MB", "GB", "TB"}
	if value == 0 {
		return "0 B"
	}
	size := float64(value)
	unit := 0
	for size >= 1024 && unit < len(units)-1 {
		size /= 1024
		unit++
	}
	return fmt.Sprintf("%.1f %s", size, units[unit])
}
