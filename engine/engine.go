// Package engine runs one full advisory pass over a report: version gate,
// role inference, rule evaluation, policy enforcement, and trace
// finalization. The pass mutates nothing it was given; it returns a bundle
// the caller folds into its own report copy.
package engine

import (
	"fmt"
	"time"

	"diskwise/classify"
	"diskwise/logger"
	"diskwise/model"
	"diskwise/planner"
	"diskwise/policy"
	"diskwise/rules"
)

// Bundle is the complete product of one pass, ready to embed in a report.
type Bundle struct {
	Recommendations    []model.Recommendation
	PolicyDecisions    []model.PolicyDecision
	RuleTraces         []model.RuleTrace
	Blocked            []model.Candidate
	ContradictionCount uint64
}

// Analyze validates the report version, infers disk roles when the input
// predates role hints, and runs rules and policy. A version mismatch rejects
// this input only; the caller decides whether other inputs proceed.
func Analyze(report *model.Report) (Bundle, error) {
	if err := model.CheckVersion(report.ReportVersion); err != nil {
		return Bundle{}, fmt.Errorf("report %s: %w", report.ScanID, err)
	}

	disks := make([]model.DiskRecord, len(report.Disks))
	copy(disks, report.Disks)
	classify.InferRoles(disks, report.Categories)

	facts := &rules.Facts{
		Disks:      disks,
		Paths:      report.Paths,
		Categories: report.Categories,
		Duplicates: report.Duplicates,
	}
	candidates, traces := rules.Evaluate(facts)
	logger.Debugf("rule engine emitted %d candidate(s) across %d rule(s)", len(candidates), len(rules.RuleIDs()))

	outcome := policy.DefaultConfig().Enforce(disks, candidates)
	if outcome.ContradictionCount > 0 {
		logger.Warnf("policy resolved %d contradiction(s)", outcome.ContradictionCount)
	}

	return Bundle{
		Recommendations:    outcome.Recommendations,
		PolicyDecisions:    outcome.Decisions,
		RuleTraces:         policy.FinalizeTraces(traces, outcome.RejectionTraces),
		Blocked:            outcome.Blocked,
		ContradictionCount: outcome.ContradictionCount,
	}, nil
}

// Apply runs Analyze and folds the bundle back into the report, stamping
// generation time and a derived scan id when the input lacks them.
func Apply(report *model.Report) (Bundle, error) {
	bundle, err := Analyze(report)
	if err != nil {
		return Bundle{}, err
	}
	if report.GeneratedAt == "" {
		report.GeneratedAt = time.Now().UTC().Format(time.RFC3339)
	}
	if report.ScanID == "" {
		roots := make([]string, 0, len(report.Paths))
		for _, path := range report.Paths {
			roots = append(roots, path.RootPath)
		}
		report.ScanID = model.DeriveScanID(report.GeneratedAt, roots)
	}
	report.ReportVersion = model.ReportVersion
	report.Recommendations = bundle.Recommendations
	report.PolicyDecisions = bundle.PolicyDecisions
	report.RuleTraces = bundle.RuleTraces
	return bundle, nil
}

// PlanFor derives the scenario plan from an analyzed report and its bundle.
func PlanFor(report *model.Report, bundle Bundle) planner.Plan {
	return planner.Build(planner.Input{
		GeneratedAt:     time.Now().UTC().Format(time.RFC3339),
		ScanID:          report.ScanID,
		Recommendations: report.Recommendations,
		Blocked:         bundle.Blocked,
	})
}
