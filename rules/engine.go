// Package rules proposes recommendation candidates from classified disks and
// externally supplied usage, category, and duplicate facts. Every rule is a
// pure function of the shared read-only fact set: no rule observes another's
// output, so the candidate set is independent of evaluation order and safe to
// compute in parallel. Only the assembled ordering follows the declared
// registry sequence.
package rules

import (
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"diskwise/model"
)

// Facts is the materialized, read-only input to one evaluation pass. Nothing
// here blocks or performs I/O; every fact is collected before the engine runs.
type Facts struct {
	Disks      []model.DiskRecord
	Paths      []model.PathStats
	Categories []model.CategorySuggestion
	Duplicates []model.DuplicateGroup
}

// ruleFunc returns zero or more candidates, or an empty slice with a
// human-readable skip reason. Missing required facts are a skip, never a
// failure.
type ruleFunc func(*Facts) ([]model.Recommendation, string)

type registryEntry struct {
	id   string
	eval ruleFunc
}

// registry is the closed rule set in declared order. Assembly order and
// precision ranking tie-breaks both follow this sequence.
var registry = []registryEntry{
	{"active_workload_placement", activeWorkloadPlacementRule},
	{"consolidation_opportunity", consolidationRule},
	{"risky_disk", riskyDiskRule},
	{"backup_gap", backupGapRule},
	{"duplicate_cleanup", duplicateCleanupRule},
	{"os_headroom", osHeadroomRule},
	{"cloud_exclusion_notice", cloudExclusionNoticeRule},
}

// RuleIDs returns the declared rule sequence.
func RuleIDs() []string {
	ids := make([]string, len(registry))
	for i, entry := range registry {
		ids[i] = entry.id
	}
	return ids
}

// riskByAction is the static risk table. Rules never compute risk ad hoc;
// they name an action type and the table decides.
var riskByAction = map[string]model.RiskLevel{
	"review_active_placement":  model.RiskLow,
	"consolidate_local_disks":  model.RiskMedium,
	"low_free_space_review":    model.RiskHigh,
	"verify_backup_strategy":   model.RiskHigh,
	"duplicate_cleanup_review": model.RiskMedium,
	"duplicate_cleanup_bulk":   model.RiskHigh,
	"protect_os_headroom":      model.RiskHigh,
	"cloud_target_notice":      model.RiskLow,
}

func riskFor(action string) model.RiskLevel {
	if risk, ok := riskByAction[action]; ok {
		return risk
	}
	return model.RiskMedium
}

type ruleResult struct {
	candidates []model.Recommendation
	skipReason string
}

// Evaluate runs every registered rule against the facts and returns the
// candidates plus exactly one trace per rule. Rules execute in parallel but
// results are collected into pre-indexed slots, so the output is identical to
// a sequential pass over the registry.
func Evaluate(facts *Facts) ([]model.Candidate, []model.RuleTrace) {
	results := make([]ruleResult, len(registry))

	var group errgroup.Group
	for i, entry := range registry {
		group.Go(func() error {
			results[i] = safeEval(entry.eval, facts)
			return nil
		})
	}
	_ = group.Wait()

	var candidates []model.Candidate
	traces := make([]model.RuleTrace, 0, len(registry))
	for i, entry := range registry {
		result := results[i]
		if len(result.candidates) == 0 {
			reason := result.skipReason
			if reason == "" {
				reason = "Rule conditions were not met."
			}
			traces = append(traces, model.RuleTrace{
				RuleID: entry.id,
				Status: model.TraceSkipped,
				Detail: reason,
			})
			continue
		}

		for _, rec := range result.candidates {
			candidates = append(candidates, model.Candidate{Rule: entry.id, Recommendation: rec})
		}
		traces = append(traces, emittedTrace(entry.id, result.candidates))
	}
	return candidates, traces
}

// safeEval isolates rule faults: a panicking rule becomes a skip with the
// failure recorded, and every other rule still runs.
func safeEval(eval ruleFunc, facts *Facts) (result ruleResult) {
	defer func() {
		if r := recover(); r != nil {
			result = ruleResult{skipReason: fmt.Sprintf("rule evaluation aborted: %v", r)}
		}
	}()
	candidates, skipReason := eval(facts)
	return ruleResult{candidates: candidates, skipReason: skipReason}
}

func emittedTrace(ruleID string, recs []model.Recommendation) model.RuleTrace {
	if len(recs) == 1 {
		confidence := recs[0].Confidence
		return model.RuleTrace{
			RuleID:           ruleID,
			Status:           model.TraceEmitted,
			Detail:           "Rule produced one recommendation.",
			RecommendationID: recs[0].ID,
			Confidence:       &confidence,
		}
	}

	ids := make([]string, len(recs))
	total := 0.0
	for i, rec := range recs {
		ids[i] = rec.ID
		total += rec.Confidence
	}
	avg := total / float64(len(recs))
	return model.RuleTrace{
		RuleID:     ruleID,
		Status:     model.TraceEmitted,
		Detail:     fmt.Sprintf("Rule produced %d recommendation(s): %s", len(recs), strings.Join(ids, ", ")),
		Confidence: &avg,
	}
}
