package classify

import (
	"fmt"
	"sort"
	"strings"

	"diskwise/model"
)

// InferRoles fills in role hints for the given disks from category suggestions
// and volume-label signals. It completes the classifier stage: once it
// returns, the records are handed downstream and treated as immutable.
//
// Role selection uses a fixed priority order so equal evidence always resolves
// the same way: backup_target, media_library, games_library, active_workload,
// archive, then mixed/unknown. Role gates the safety policy downstream, so the
// order is part of the contract, not an implementation detail.
func InferRoles(disks []model.DiskRecord, categories []model.CategorySuggestion) {
	scoreByMount := map[string]map[model.Category]float64{}
	evidenceByMount := map[string][]string{}

	for _, suggestion := range categories {
		if suggestion.DiskMount == "" {
			continue
		}
		scores := scoreByMount[suggestion.DiskMount]
		if scores == nil {
			scores = map[model.Category]float64{}
			scoreByMount[suggestion.DiskMount] = scores
		}
		scores[suggestion.Category] += suggestion.Confidence
		evidenceByMount[suggestion.DiskMount] = append(evidenceByMount[suggestion.DiskMount],
			fmt.Sprintf("category:%s conf:%.2f", suggestion.Category, suggestion.Confidence))
	}

	for i := range disks {
		disk := &disks[i]
		scores := scoreByMount[disk.MountPoint]
		if scores == nil {
			scores = map[model.Category]float64{}
		}
		evidence := evidenceByMount[disk.MountPoint]

		label := strings.ToLower(disk.Name)
		if disk.Model != "" {
			label += " " + strings.ToLower(disk.Model)
		}

		if containsAny(label, []string{"games", "game", "steam", "epic", "gog", "apps", "application"}) {
			scores[model.CategoryGames] += 0.85
			scores[model.CategoryWork] += 0.35
			evidence = append(evidence, "label:games_or_apps")
		}
		if containsAny(label, []string{"photos", "photo", "pictures", "media", "dcim", "video", "videos"}) {
			scores[model.CategoryMedia] += 0.82
			evidence = append(evidence, "label:media_or_photos")
		}
		if containsAny(label, []string{"backup", "time machine", "snapshot", "history", "restore"}) {
			scores[model.CategoryBackup] += 0.9
			evidence = append(evidence, "label:backup")
		}
		if containsAny(label, []string{"archive", "cold", "old", "long-term"}) {
			scores[model.CategoryArchive] += 0.75
			evidence = append(evidence, "label:archive")
		}

		games := scores[model.CategoryGames]
		work := scores[model.CategoryWork]
		media := scores[model.CategoryMedia]
		archive := scores[model.CategoryArchive]
		backup := scores[model.CategoryBackup]
		active := games + work
		cold := media + archive + backup

		var role model.DiskRole
		switch {
		case backup >= 0.85 && backup > active+0.2:
			role = model.RoleBackupTarget
		case media >= 0.8 && media > active+0.2:
			role = model.RoleMediaLibrary
		case games >= 0.85 && games >= work:
			role = model.RoleGamesLibrary
		case active >= 0.9 && active > cold+0.2:
			role = model.RoleActiveWorkload
		case archive >= 0.75 && archive > active:
			role = model.RoleArchive
		default:
			significant := 0
			for _, score := range []float64{games, work, media, archive, backup} {
				if score >= 0.5 {
					significant++
				}
			}
			if significant >= 2 {
				role = model.RoleMixed
			} else {
				role = model.RoleUnknown
			}
		}

		confidence := 0.0
		for _, score := range []float64{games, work, media, archive, backup} {
			if score > confidence {
				confidence = score
			}
		}
		if confidence > 1 {
			confidence = 1
		}

		sort.Strings(evidence)
		evidence = dedupStrings(evidence)

		disk.RoleHint = model.RoleHint{Role: role, Confidence: confidence, Evidence: evidence}
		disk.TargetRoleEligibility = eligibilityForRole(role)
	}
}

// eligibilityForRole lists the content roles a disk may safely receive, used
// by reporting surfaces to explain what a target is suitable for.
func eligibilityForRole(role model.DiskRole) []string {
	switch role {
	case model.RoleActiveWorkload, model.RoleGamesLibrary:
		return []string{"active_workload", "games_library", "mixed"}
	case model.RoleMediaLibrary:
		return []string{"media_library", "archive", "backup_target"}
	case model.RoleBackupTarget:
		return []string{"backup_target", "archive"}
	case model.RoleArchive:
		return []string{"archive", "backup_target", "media_library"}
	default:
		return []string{
			"active_workload", "games_library", "media_library",
			"archive", "backup_target", "mixed", "unknown",
		}
	}
}

func dedupStrings(sorted []string) []string {
	out := sorted[:0]
	for i, value := range sorted {
		if i == 0 || sorted[i-1] != value {
			out = append(out, value)
		}
	}
	return out
}
