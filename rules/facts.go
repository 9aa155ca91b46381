package rules

import (
	"fmt"
	"strings"

	"diskwise/model"
)

const (
	minSourceScanCoverageRatio = 0.35
	lowFreeRatioThreshold      = 0.12
	osHeadroomMinRatio         = 0.15
	minConsolidationSource     = 50 * 1024 * 1024 * 1024
	minRedundantGroupBytes     = 64 * 1024 * 1024
	minRedundantTotalBytes     = 256 * 1024 * 1024
)

// categoryScoresByDisk accumulates category confidences per mount. A
// suggestion without an explicit mount is attributed to the disk whose mount
// point is the longest prefix of its target path.
func categoryScoresByDisk(facts *Facts) map[string]map[model.Category]float64 {
	scores := make(map[string]map[model.Category]float64)
	for _, suggestion := range facts.Categories {
		mount := suggestion.DiskMount
		if mount == "" {
			mount = inferMountFromTarget(facts.Disks, suggestion.Target)
		}
		if mount == "" {
			continue
		}
		perCategory, ok := scores[mount]
		if !ok {
			perCategory = make(map[model.Category]float64)
			scores[mount] = perCategory
		}
		perCategory[suggestion.Category] += suggestion.Confidence
	}
	return scores
}

func inferMountFromTarget(disks []model.DiskRecord, target string) string {
	normalized := normalizePath(target)
	best := ""
	for _, disk := range disks {
		mount := normalizePath(disk.MountPoint)
		if !strings.HasPrefix(normalized, mount) {
			continue
		}
		if len(disk.MountPoint) > len(best) {
			best = disk.MountPoint
		}
	}
	return best
}

func normalizePath(value string) string {
	return strings.ToLower(strings.ReplaceAll(value, "\\", "/"))
}

func scoreSum(scores map[model.Category]float64, categories ...model.Category) float64 {
	total := 0.0
	for _, category := range categories {
		total += scores[category]
	}
	return total
}

// eligibleNonOSLocalTargets keeps the order of facts.Disks, which the
// classifier sorts by mount point.
func eligibleNonOSLocalTargets(disks []model.DiskRecord) []model.DiskRecord {
	var eligible []model.DiskRecord
	for _, disk := range disks {
		if disk.EligibleForLocalTarget && !disk.IsOSDrive && disk.LocalityClass == model.LocalityLocalPhysical {
			eligible = append(eligible, disk)
		}
	}
	return eligible
}

func fastestEligibleDisk(disks []model.DiskRecord) (model.DiskRecord, bool) {
	eligible := eligibleNonOSLocalTargets(disks)
	if len(eligible) == 0 {
		return model.DiskRecord{}, false
	}
	best := eligible[0]
	for _, disk := range eligible[1:] {
		if performanceRank(disk) > performanceRank(best) {
			best = disk
		}
	}
	return best, true
}

func performanceRank(disk model.DiskRecord) float64 {
	var base float64
	switch disk.PerformanceClass {
	case model.PerformanceFast:
		base = 3.0
	case model.PerformanceBalanced:
		base = 2.0
	case model.PerformanceSlow:
		base = 1.0
	default:
		base = 0.5
	}

	var bonus float64
	switch disk.StorageType {
	case model.StorageNVMe:
		bonus = 0.5
	case model.StorageSSD:
		bonus = 0.3
	case model.StorageHDD:
		bonus = 0.0
	case model.StorageUSB:
		bonus = -0.1
	case model.StorageCloudBacked, model.StorageNetwork:
		bonus = -0.3
	default:
		bonus = -0.2
	}
	return base + bonus + disk.PerformanceConfidence*0.2
}

func usedSpace(disk model.DiskRecord) uint64 {
	if disk.FreeSpaceBytes > disk.TotalSpaceBytes {
		return 0
	}
	return disk.TotalSpaceBytes - disk.FreeSpaceBytes
}

func observedBytesByDisk(paths []model.PathStats) map[string]uint64 {
	totals := make(map[string]uint64)
	for _, path := range paths {
		if path.DiskMount == "" {
			continue
		}
		totals[path.DiskMount] += path.TotalSizeBytes
	}
	return totals
}

// hasSufficientScanCoverage guards consolidation against reasoning about
// disks the scan barely touched.
func hasSufficientScanCoverage(disk model.DiskRecord, observed uint64, seen bool) bool {
	if !seen {
		return false
	}
	used := usedSpace(disk)
	if used == 0 {
		return false
	}
	return float64(observed)/float64(used) >= minSourceScanCoverageRatio
}

func sanitizeID(value string) string {
	var builder strings.Builder
	builder.Grow(len(value))
	for _, r := range value {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			builder.WriteRune(r)
		} else {
			builder.WriteByte('-')
		}
	}
	return builder.String()
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
