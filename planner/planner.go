// Package planner derives read-only what-if projections from the
// policy-approved recommendation set. It never sees raw candidates except as
// an opaque blocked list used for transparency counts, performs no I/O, and
// is idempotent over identical input.
package planner

import (
	"fmt"

	"diskwise/model"
)

// Plan bundles the three fixed scenario projections for one scan.
type Plan struct {
	GeneratedAt string               `json:"generated_at"`
	ScanID      string               `json:"scan_id"`
	Assumptions []string             `json:"assumptions"`
	Scenarios   []ScenarioProjection `json:"scenarios"`
}

type Strategy string

const (
	StrategyConservative Strategy = "conservative"
	StrategyBalanced     Strategy = "balanced"
	StrategyAggressive   Strategy = "aggressive"
)

type RiskMix struct {
	Low    uint64 `json:"low"`
	Medium uint64 `json:"medium"`
	High   uint64 `json:"high"`
}

type ScenarioProjection struct {
	ScenarioID                 string   `json:"scenario_id"`
	Title                      string   `json:"title"`
	Strategy                   Strategy `json:"strategy"`
	RecommendationIDs          []string `json:"recommendation_ids"`
	RecommendationCount        uint64   `json:"recommendation_count"`
	ProjectedSpaceSavingBytes  uint64   `json:"projected_space_saving_bytes"`
	RiskMix                    RiskMix  `json:"risk_mix"`
	BlockedRecommendationCount uint64   `json:"blocked_recommendation_count"`
	Notes                      []string `json:"notes"`
}

// Input is everything one planning pass may read. Blocked carries the
// pre-policy candidates the policy engine excluded, risk level intact.
type Input struct {
	GeneratedAt     string
	ScanID          string
	Recommendations []model.Recommendation
	Blocked         []model.Candidate
}

type scenarioSpec struct {
	id      string
	title   string
	variant Strategy
	include func(model.RiskLevel) bool
}

var scenarioSpecs = []scenarioSpec{
	{"conservative", "Conservative", StrategyConservative, func(risk model.RiskLevel) bool {
		return risk == model.RiskLow
	}},
	{"balanced", "Balanced", StrategyBalanced, func(risk model.RiskLevel) bool {
		return risk == model.RiskLow || risk == model.RiskMedium
	}},
	{"aggressive", "Aggressive", StrategyAggressive, func(model.RiskLevel) bool {
		return true
	}},
}

// Build returns exactly three projections: conservative (low risk only),
// balanced (low and medium), aggressive (all). Each scenario is filtered
// independently and preserves the input recommendation order.
func Build(input Input) Plan {
	scenarios := make([]ScenarioProjection, 0, len(scenarioSpecs))
	for _, spec := range scenarioSpecs {
		scenarios = append(scenarios, buildProjection(input, spec))
	}
	return Plan{
		GeneratedAt: input.GeneratedAt,
		ScanID:      input.ScanID,
		Assumptions: []string{
			"Read-only what-if simulation: no file operations are performed.",
			"Projected space saving sums estimated_impact.space_saving_bytes for included recommendations.",
			"Recommendations without explicit byte estimates are treated as zero-byte impact.",
		},
		Scenarios: scenarios,
	}
}

func buildProjection(input Input, spec scenarioSpec) ScenarioProjection {
	ids := []string{}
	var saving uint64
	var mix RiskMix
	for _, rec := range input.Recommendations {
		if !rec.PolicySafe || !spec.include(rec.RiskLevel) {
			continue
		}
		ids = append(ids, rec.ID)
		if rec.EstimatedImpact.SpaceSavingBytes != nil {
			saving += *rec.EstimatedImpact.SpaceSavingBytes
		}
		switch rec.RiskLevel {
		case model.RiskLow:
			mix.Low++
		case model.RiskMedium:
			mix.Medium++
		case model.RiskHigh:
			mix.High++
		}
	}

	// Blocked counting is band-scoped: a blocked high-risk candidate does
	// not inflate the conservative scenario's transparency note.
	var blocked uint64
	for _, candidate := range input.Blocked {
		if spec.include(candidate.Recommendation.RiskLevel) {
			blocked++
		}
	}

	var notes []string
	if len(ids) == 0 {
		notes = append(notes, "No policy-safe recommendations matched this scenario strategy.")
	}
	if blocked > 0 {
		notes = append(notes, fmt.Sprintf(
			"%d additional opportunity(ies) in this risk band were blocked by policy and are excluded.",
			blocked))
	}

	return ScenarioProjection{
		ScenarioID:                 spec.id,
		Title:                      spec.title,
		Strategy:                   spec.variant,
		RecommendationIDs:          ids,
		RecommendationCount:        uint64(len(ids)),
		ProjectedSpaceSavingBytes:  saving,
		RiskMix:                    mix,
		BlockedRecommendationCount: blocked,
		Notes:                      notes,
	}
}
