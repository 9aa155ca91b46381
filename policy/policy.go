// Package policy reviews rule-engine candidates against safety invariants
// and resolves contradictions. Checks run in a fixed sequence per candidate:
// target eligibility, then role safety, then contradiction resolution over
// the survivors. Blocked candidates are fully excluded from the final list;
// they survive only as decisions and rejection traces, so every emitted
// recommendation carries policy_safe == true.
package policy

import (
	"fmt"
	"sort"

	"diskwise/model"
)

const (
	SafeTargetPolicyID      = "safe_target_policy"
	RoleAwareTargetPolicyID = "role_aware_target_policy"
	ContradictionDetectorID = "contradiction_detector"
)

// Config holds the policy tables for one invocation. Build it once with
// DefaultConfig and treat it as immutable; Enforce never mutates it.
type Config struct {
	// BlockedTargetRoles lists disk roles that must never receive active
	// workload placement, regardless of candidate confidence.
	BlockedTargetRoles []model.DiskRole

	// ActivePlacementRules names the rules whose candidates count as
	// active placement for the role-safety check.
	ActivePlacementRules []string

	// PlacementRules names the rules whose candidates claim a target's
	// free headroom. Two such claims on one mount are contradictory.
	PlacementRules []string
}

func DefaultConfig() Config {
	return Config{
		BlockedTargetRoles: []model.DiskRole{
			model.RoleMediaLibrary,
			model.RoleArchive,
			model.RoleBackupTarget,
		},
		ActivePlacementRules: []string{"active_workload_placement"},
		PlacementRules:       []string{"active_workload_placement", "consolidation_opportunity"},
	}
}

// Outcome is the full audit product of one policy pass. Blocked keeps the
// excluded candidates so the planner can report risk-band transparency
// counts; they never rejoin the recommendation list.
type Outcome struct {
	Recommendations    []model.Recommendation
	Blocked            []model.Candidate
	Decisions          []model.PolicyDecision
	RejectionTraces    []model.RuleTrace
	ContradictionCount uint64
}

// Enforce applies the policy sequence to candidates in their emission order.
// The returned recommendation list preserves that order, filtered.
func (c Config) Enforce(disks []model.DiskRecord, candidates []model.Candidate) Outcome {
	diskByMount := make(map[string]model.DiskRecord, len(disks))
	for _, disk := range disks {
		diskByMount[disk.MountPoint] = disk
	}

	outcome := Outcome{}
	survivors := make([]model.Candidate, 0, len(candidates))
	for _, candidate := range candidates {
		rec := candidate.Recommendation
		allowed := true
		rejectionPolicy := SafeTargetPolicyID
		rejectionRationale := ""

		if rec.TargetMount != "" {
			disk, known := diskByMount[rec.TargetMount]
			switch {
			case !known:
				allowed = false
				rationale := fmt.Sprintf(
					"Target mount %s was not found in disk inventory; recommendation blocked.",
					rec.TargetMount)
				rec.PolicyRulesBlocked = append(rec.PolicyRulesBlocked, SafeTargetPolicyID)
				rejectionRationale = rationale
				outcome.block(SafeTargetPolicyID, rec.ID, rationale)
			case !disk.EligibleForLocalTarget:
				allowed = false
				rationale := fmt.Sprintf(
					"Target mount %s is not eligible for local placement: %s",
					rec.TargetMount, joinReasons(disk.IneligibleReasons))
				rec.PolicyRulesBlocked = append(rec.PolicyRulesBlocked, SafeTargetPolicyID)
				rejectionRationale = rationale
				outcome.block(SafeTargetPolicyID, rec.ID, rationale)
			default:
				rec.PolicyRulesApplied = append(rec.PolicyRulesApplied, SafeTargetPolicyID)
				outcome.allow(SafeTargetPolicyID, rec.ID,
					"Target mount passed local placement eligibility checks.")
			}
		} else {
			rec.PolicyRulesApplied = append(rec.PolicyRulesApplied, SafeTargetPolicyID)
			outcome.allow(SafeTargetPolicyID, rec.ID,
				"Recommendation does not target a mount and passed eligibility checks.")
		}

		if allowed && c.isActivePlacement(candidate.Rule) && rec.TargetMount != "" {
			if disk, known := diskByMount[rec.TargetMount]; known {
				if c.roleBlocked(disk.RoleHint.Role) {
					allowed = false
					rationale := fmt.Sprintf(
						"Target mount %s role %s is reserved for colder/backup data; blocked active workload placement recommendation.",
						rec.TargetMount, disk.RoleHint.Role)
					rec.PolicyRulesBlocked = append(rec.PolicyRulesBlocked, RoleAwareTargetPolicyID)
					rejectionPolicy = RoleAwareTargetPolicyID
					rejectionRationale = rationale
					outcome.block(RoleAwareTargetPolicyID, rec.ID, rationale)
				} else {
					rec.PolicyRulesApplied = append(rec.PolicyRulesApplied, RoleAwareTargetPolicyID)
					outcome.allow(RoleAwareTargetPolicyID, rec.ID,
						"Target role is compatible with active workload placement.")
				}
			}
		}

		rec.PolicySafe = allowed
		candidate.Recommendation = rec
		if allowed {
			survivors = append(survivors, candidate)
		} else {
			outcome.Blocked = append(outcome.Blocked, candidate)
			outcome.RejectionTraces = append(outcome.RejectionTraces,
				rejectionTrace(rejectionPolicy, rec.ID, rejectionRationale))
		}
	}

	outcome.Recommendations = c.resolveContradictions(survivors, &outcome)
	return outcome
}

// resolveContradictions blocks every losing member of a collision group. Two
// survivors collide when they share a recommendation id, or when both make a
// placement claim on the same target mount. The highest confidence wins;
// exact ties break toward the lexicographically smaller origin rule id.
func (c Config) resolveContradictions(survivors []model.Candidate, outcome *Outcome) []model.Recommendation {
	winnerByID := pickWinners(survivors, func(item model.Candidate) (string, bool) {
		return item.Recommendation.ID, true
	})
	winnerByTarget := pickWinners(survivors, func(item model.Candidate) (string, bool) {
		if item.Recommendation.TargetMount == "" || !c.isPlacement(item.Rule) {
			return "", false
		}
		return item.Recommendation.TargetMount, true
	})

	var final []model.Recommendation
	for i, item := range survivors {
		rec := item.Recommendation

		winner, collided := i, false
		if w, ok := winnerByID[rec.ID]; ok && w != i {
			winner, collided = w, true
		}
		if !collided && rec.TargetMount != "" && c.isPlacement(item.Rule) {
			if w, ok := winnerByTarget[rec.TargetMount]; ok && w != i {
				winner, collided = w, true
			}
		}
		if !collided {
			final = append(final, rec)
			continue
		}

		winningID := survivors[winner].Recommendation.ID
		rationale := fmt.Sprintf("contradiction: superseded by %s", winningID)
		rec.PolicySafe = false
		rec.PolicyRulesBlocked = append(rec.PolicyRulesBlocked, ContradictionDetectorID)
		item.Recommendation = rec
		outcome.Blocked = append(outcome.Blocked, item)
		outcome.ContradictionCount++
		outcome.block(ContradictionDetectorID, rec.ID, rationale)
		// The rejection trace names the losing candidate's origin rule so
		// trace finalization flips that rule's emitted trace, not the
		// winner's, when both candidates share a recommendation id.
		outcome.RejectionTraces = append(outcome.RejectionTraces, model.RuleTrace{
			RuleID:           item.Rule,
			Status:           model.TraceRejected,
			Detail:           rationale,
			RecommendationID: rec.ID,
		})
	}
	return final
}

// pickWinners maps each collision key to the index of its winning survivor.
// Keys with a single member never appear in a loser lookup because the
// winner index equals the member's own index.
func pickWinners(survivors []model.Candidate, key func(model.Candidate) (string, bool)) map[string]int {
	winners := make(map[string]int)
	for i, item := range survivors {
		k, ok := key(item)
		if !ok {
			continue
		}
		current, exists := winners[k]
		if !exists || beats(survivors[i], survivors[current]) {
			winners[k] = i
		}
	}
	return winners
}

func beats(a, b model.Candidate) bool {
	if a.Recommendation.Confidence != b.Recommendation.Confidence {
		return a.Recommendation.Confidence > b.Recommendation.Confidence
	}
	return a.Rule < b.Rule
}

func (c Config) isActivePlacement(rule string) bool {
	return containsString(c.ActivePlacementRules, rule)
}

func (c Config) isPlacement(rule string) bool {
	return containsString(c.PlacementRules, rule)
}

func (c Config) roleBlocked(role model.DiskRole) bool {
	for _, blocked := range c.BlockedTargetRoles {
		if role == blocked {
			return true
		}
	}
	return false
}

func containsString(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

func joinReasons(reasons []string) string {
	if len(reasons) == 0 {
		return "no eligibility rationale recorded"
	}
	joined := reasons[0]
	for _, reason := range reasons[1:] {
		joined += " | " + reason
	}
	return joined
}

func (o *Outcome) allow(policyID, recommendationID, rationale string) {
	o.Decisions = append(o.Decisions, model.PolicyDecision{
		PolicyID:         policyID,
		RecommendationID: recommendationID,
		Action:           model.PolicyAllowed,
		Rationale:        rationale,
	})
}

func (o *Outcome) block(policyID, recommendationID, rationale string) {
	o.Decisions = append(o.Decisions, model.PolicyDecision{
		PolicyID:         policyID,
		RecommendationID: recommendationID,
		Action:           model.PolicyBlocked,
		Rationale:        rationale,
	})
}

func rejectionTrace(policyID, recommendationID, rationale string) model.RuleTrace {
	if rationale == "" {
		rationale = "Recommendation blocked by safety policy checks."
	}
	return model.RuleTrace{
		RuleID:           policyID,
		Status:           model.TraceRejected,
		Detail:           rationale,
		RecommendationID: recommendationID,
	}
}

// FinalizeTraces folds the policy rejections into the rule-engine trace log.
// When an emitted trace names the rejected recommendation, its status flips
// to rejected in place; otherwise the rejection is appended. A rejection
// whose rule id also matches an emitted trace flips that exact trace, so a
// contradiction loser never claims the winner's trace when both rules
// emitted the same recommendation id. Output order is deterministic for
// identical inputs.
func FinalizeTraces(traces []model.RuleTrace, rejections []model.RuleTrace) []model.RuleTrace {
	finalized := make([]model.RuleTrace, len(traces))
	copy(finalized, traces)

	var extra []model.RuleTrace
	for _, rejection := range rejections {
		match := -1
		for i := range finalized {
			if finalized[i].RecommendationID == "" ||
				finalized[i].RecommendationID != rejection.RecommendationID ||
				finalized[i].Status != model.TraceEmitted {
				continue
			}
			if finalized[i].RuleID == rejection.RuleID {
				match = i
				break
			}
			if match < 0 {
				match = i
			}
		}
		if match >= 0 {
			finalized[match].Status = model.TraceRejected
			finalized[match].Detail = rejection.Detail
		} else {
			extra = append(extra, rejection)
		}
	}

	sort.SliceStable(extra, func(i, j int) bool {
		if extra[i].RuleID != extra[j].RuleID {
			return extra[i].RuleID < extra[j].RuleID
		}
		return extra[i].RecommendationID < extra[j].RecommendationID
	})
	return append(finalized, extra...)
}
