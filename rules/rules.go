package rules

import (
	"fmt"
	"strings"

	"diskwise/model"
)

func uintPtr(v uint64) *uint64 { return &v }

// activeWorkloadPlacementRule proposes moving active work/game content from a
// slower eligible disk to the fastest eligible non-OS local target.
// Confidence grows with the activity-score gap and the rank difference,
// clamped at 0.92.
func activeWorkloadPlacementRule(facts *Facts) ([]model.Recommendation, string) {
	target, ok := fastestEligibleDisk(facts.Disks)
	if !ok {
		return nil, "no eligible non-OS local target disk is available"
	}
	targetRank := performanceRank(target)
	diskScores := categoryScoresByDisk(facts)

	var source model.DiskRecord
	bestScore := 0.0
	found := false
	for _, candidate := range eligibleNonOSLocalTargets(facts.Disks) {
		if candidate.MountPoint == target.MountPoint {
			continue
		}
		sourceRank := performanceRank(candidate)
		if sourceRank >= targetRank {
			continue
		}

		scores := diskScores[candidate.MountPoint]
		activeScore := scoreSum(scores, model.CategoryWork, model.CategoryGames)
		coldScore := scoreSum(scores, model.CategoryMedia, model.CategoryArchive)
		if activeScore <= coldScore+0.25 {
			continue
		}

		score := activeScore - coldScore + (targetRank - sourceRank)
		if !found || score > bestScore {
			source = candidate
			bestScore = score
			found = true
		}
	}
	if !found {
		return nil, "no slower eligible disk carries a dominant active workload"
	}

	confidence := 0.65 + bestScore*0.1
	if confidence > 0.92 {
		confidence = 0.92
	}
	return []model.Recommendation{{
		ID:    "active-workload-placement",
		Title: "Review active workload placement on faster non-OS local storage",
		Rationale: fmt.Sprintf(
			"Disk %s appears to host active work/game content while %s is a faster eligible non-OS local target. Consider reviewing placement to keep active workloads on faster local physical storage.",
			source.MountPoint, target.MountPoint),
		Confidence:  confidence,
		TargetMount: target.MountPoint,
		EstimatedImpact: model.EstimatedImpact{
			Performance: "Potential responsiveness gain by aligning active workloads with faster storage.",
			RiskNotes:   "Manual review required; recommendation excludes cloud/network/virtual destinations.",
		},
		RiskLevel: riskFor("review_active_placement"),
	}}, ""
}

// consolidationRule looks for a heavily used eligible disk whose contents
// another eligible disk could absorb with a 25% safety margin. Both sides
// need enough scan coverage, and the role-inversion guard refuses to push an
// active profile onto a slower cold-profile disk.
func consolidationRule(facts *Facts) ([]model.Recommendation, string) {
	eligible := eligibleNonOSLocalTargets(facts.Disks)
	if len(eligible) < 2 {
		return nil, "fewer than two eligible non-OS local disks are present"
	}
	diskScores := categoryScoresByDisk(facts)
	observed := observedBytesByDisk(facts.Paths)

	var bestSource, bestTarget model.DiskRecord
	var bestUsed uint64
	found := false
	for _, source := range eligible {
		sourceUsed := usedSpace(source)
		if sourceUsed < minConsolidationSource {
			continue
		}
		sourceObserved, sourceSeen := observed[source.MountPoint]
		if !hasSufficientScanCoverage(source, sourceObserved, sourceSeen) {
			continue
		}

		sourceScores := diskScores[source.MountPoint]
		sourceActive := scoreSum(sourceScores, model.CategoryWork, model.CategoryGames)
		sourceCold := scoreSum(sourceScores, model.CategoryMedia, model.CategoryArchive, model.CategoryBackup)

		for _, target := range eligible {
			if source.MountPoint == target.MountPoint {
				continue
			}
			targetObserved, targetSeen := observed[target.MountPoint]
			if !hasSufficientScanCoverage(target, targetObserved, targetSeen) {
				continue
			}

			targetScores := diskScores[target.MountPoint]
			targetActive := scoreSum(targetScores, model.CategoryWork, model.CategoryGames)
			targetCold := scoreSum(targetScores, model.CategoryMedia, model.CategoryArchive, model.CategoryBackup)

			// Role-inversion guard: never suggest moving an active
			// profile onto a colder disk that is no faster.
			if sourceActive > sourceCold+0.25 &&
				targetCold > targetActive+0.25 &&
				performanceRank(target) <= performanceRank(source) {
				continue
			}

			if float64(target.FreeSpaceBytes) > float64(sourceUsed)*1.25 {
				if !found || sourceUsed > bestUsed {
					bestSource = source
					bestTarget = target
					bestUsed = sourceUsed
					found = true
				}
			}
		}
	}
	if !found {
		return nil, "no source/target disk pairing satisfies usage, coverage, and free-space margins"
	}

	return []model.Recommendation{{
		ID:    "consolidation-opportunity",
		Title: "Consolidation opportunity detected on local physical disks",
		Rationale: fmt.Sprintf(
			"Disk %s has about %s in use, and eligible local disk %s has enough free space to likely absorb it with safety margin. Consider a staged review and verification plan.",
			bestSource.MountPoint, humanBytes(bestUsed), bestTarget.MountPoint),
		Confidence:  0.74,
		TargetMount: bestTarget.MountPoint,
		EstimatedImpact: model.EstimatedImpact{
			SpaceSavingBytes: uintPtr(bestUsed),
			Performance:      "Potentially fewer active local disks to manage.",
			RiskNotes:        "Verify backups and data criticality before any manual migration.",
		},
		RiskLevel: riskFor("consolidate_local_disks"),
	}}, ""
}

// riskyDiskRule flags every local disk that is nearly full, carries important
// active categories, and shows no backup signal. It can emit more than one
// recommendation, one per qualifying mount.
func riskyDiskRule(facts *Facts) ([]model.Recommendation, string) {
	diskScores := categoryScoresByDisk(facts)

	var output []model.Recommendation
	for _, disk := range facts.Disks {
		if disk.LocalityClass != model.LocalityLocalPhysical && disk.LocalityClass != model.LocalityUnknown {
			continue
		}
		if disk.TotalSpaceBytes == 0 {
			continue
		}
		freeRatio := float64(disk.FreeSpaceBytes) / float64(disk.TotalSpaceBytes)
		if freeRatio > lowFreeRatioThreshold {
			continue
		}

		scores := diskScores[disk.MountPoint]
		important := scoreSum(scores, model.CategoryWork, model.CategoryGames, model.CategoryMedia)
		hasBackup := scoreSum(scores, model.CategoryBackup) >= 0.6
		if important < 0.8 || hasBackup {
			continue
		}

		output = append(output, model.Recommendation{
			ID:    "risky-disk-" + sanitizeID(disk.MountPoint),
			Title: fmt.Sprintf("Review low-free-space risk on %s", disk.MountPoint),
			Rationale: fmt.Sprintf(
				"Disk %s is low on free space (%.1f%% free) and appears to contain important active categories without clear backup indicators. Verify backup coverage and growth headroom.",
				disk.MountPoint, freeRatio*100),
			Confidence: 0.82,
			EstimatedImpact: model.EstimatedImpact{
				Performance: "Low free-space conditions can degrade reliability and performance.",
				RiskNotes:   "Prioritize backup verification before any cleanup decisions.",
			},
			RiskLevel: riskFor("low_free_space_review"),
		})
	}
	if len(output) == 0 {
		return nil, "no local disk combines low free space, important content, and a missing backup signal"
	}
	return output, ""
}

// backupGapRule reports work signals on local storage with no disk matching
// backup patterns anywhere in scope.
func backupGapRule(facts *Facts) ([]model.Recommendation, string) {
	diskScores := categoryScoresByDisk(facts)

	inScope := make(map[string]bool)
	for _, disk := range eligibleNonOSLocalTargets(facts.Disks) {
		inScope[disk.MountPoint] = true
	}
	for _, disk := range facts.Disks {
		if disk.IsOSDrive {
			inScope[disk.MountPoint] = true
		}
	}

	hasWork := false
	hasBackup := false
	for mount, scores := range diskScores {
		if !inScope[mount] {
			continue
		}
		if scores[model.CategoryWork] >= 0.5 {
			hasWork = true
		}
		if scores[model.CategoryBackup] >= 0.5 {
			hasBackup = true
		}
	}

	if !hasWork {
		return nil, "no local disk shows a strong work/project signal"
	}
	if hasBackup {
		return nil, "a disk already matches backup patterns"
	}

	return []model.Recommendation{{
		ID:         "backup-gap",
		Title:      "Workload appears present without backup indicators",
		Rationale:  "Work/project signals were detected on local storage, but no disk strongly matches backup patterns. Consider verifying backup strategy and restore path.",
		Confidence: 0.80,
		EstimatedImpact: model.EstimatedImpact{
			RiskNotes: "Data-loss risk can be high when active work data lacks verified backups.",
		},
		RiskLevel: riskFor("verify_backup_strategy"),
	}}, ""
}

// duplicateCleanupRule aggregates likely-redundant duplicate groups into one
// review candidate when the reclaimable total is worth a manual pass. Risk
// escalates when the cleanup would touch many files.
func duplicateCleanupRule(facts *Facts) ([]model.Recommendation, string) {
	groupCount := 0
	fileCount := 0
	var totalWasted uint64
	for _, group := range facts.Duplicates {
		if group.Intent.Label != model.IntentLikelyRedundant {
			continue
		}
		if group.TotalWastedBytes < minRedundantGroupBytes {
			continue
		}
		groupCount++
		fileCount += len(group.Files)
		totalWasted += group.TotalWastedBytes
	}

	if groupCount == 0 {
		return nil, "no likely-redundant duplicate group exceeds the minimum wasted-bytes threshold"
	}
	if totalWasted < minRedundantTotalBytes {
		return nil, fmt.Sprintf("redundant duplicates total only %s, below the review threshold", humanBytes(totalWasted))
	}

	action := "duplicate_cleanup_review"
	if fileCount >= 25 {
		action = "duplicate_cleanup_bulk"
	}
	return []model.Recommendation{{
		ID:    "duplicate-cleanup-candidate",
		Title: "Review duplicate cleanup candidates",
		Rationale: fmt.Sprintf(
			"%d redundant duplicate group(s) account for about %s of potential reclaimable space. Review each set before manual cleanup.",
			groupCount, humanBytes(totalWasted)),
		Confidence: 0.70,
		EstimatedImpact: model.EstimatedImpact{
			SpaceSavingBytes: uintPtr(totalWasted),
			Performance:      "Potential capacity relief and reduced indexing load.",
			RiskNotes:        "Validate ownership and backup expectations before removal.",
		},
		RiskLevel: riskFor(action),
	}}, ""
}

// osHeadroomRule warns when the OS drive drops below the free-space safety
// threshold. Confidence is higher when cold data dominates the drive, since
// relocation is then clearly actionable.
func osHeadroomRule(facts *Facts) ([]model.Recommendation, string) {
	var osDisk model.DiskRecord
	found := false
	for _, disk := range facts.Disks {
		if disk.IsOSDrive {
			osDisk = disk
			found = true
			break
		}
	}
	if !found {
		return nil, "no disk is marked as the OS drive"
	}
	if osDisk.TotalSpaceBytes == 0 {
		return nil, "OS drive reports zero total capacity"
	}
	freeRatio := float64(osDisk.FreeSpaceBytes) / float64(osDisk.TotalSpaceBytes)
	if freeRatio >= osHeadroomMinRatio {
		return nil, fmt.Sprintf("OS drive holds %.1f%% free space, above the safety threshold", freeRatio*100)
	}

	scores := categoryScoresByDisk(facts)[osDisk.MountPoint]
	coldScore := scoreSum(scores, model.CategoryMedia, model.CategoryArchive)
	confidence := 0.72
	if coldScore > 0.6 {
		confidence = 0.86
	}

	return []model.Recommendation{{
		ID:    "os-headroom",
		Title: "Protect OS drive free-space headroom",
		Rationale: fmt.Sprintf(
			"OS drive %s is at %.1f%% free, below the %.0f%% safety threshold. Review cold data placement and preserve headroom for updates, paging, and recovery workflows.",
			osDisk.MountPoint, freeRatio*100, osHeadroomMinRatio*100),
		Confidence: confidence,
		EstimatedImpact: model.EstimatedImpact{
			Performance: "Maintaining OS drive headroom reduces operational and update risk.",
			RiskNotes:   "Do not use cloud/network/virtual targets for local performance placement.",
		},
		RiskLevel: riskFor("protect_os_headroom"),
	}}, ""
}

// cloudExclusionNoticeRule is informational: it names cloud-backed drives so
// the reader understands why they never appear as placement targets.
func cloudExclusionNoticeRule(facts *Facts) ([]model.Recommendation, string) {
	var mounts []string
	for _, disk := range facts.Disks {
		if disk.LocalityClass == model.LocalityCloudBacked {
			mounts = append(mounts, fmt.Sprintf("%s (%s)", disk.Name, disk.MountPoint))
		}
	}
	if len(mounts) == 0 {
		return nil, "no cloud-backed drive was detected"
	}

	return []model.Recommendation{{
		ID:    "cloud-backed-target-exclusion",
		Title: "Cloud-backed drives excluded from local placement targets",
		Rationale: fmt.Sprintf(
			"Detected cloud-backed drive(s): %s. These are analyzed for visibility but excluded as local target destinations in optimization recommendations.",
			strings.Join(mounts, ", ")),
		Confidence: 0.95,
		EstimatedImpact: model.EstimatedImpact{
			RiskNotes: "Exclusion avoids misleading local-performance recommendations for virtual/cloud mounts.",
		},
		RiskLevel: riskFor("cloud_target_notice"),
	}}, ""
}
