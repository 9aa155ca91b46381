package classify

import (
	"fmt"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"diskwise/model"
)

// Probe carries the raw per-mount facts supplied by the probing layer. All
// hardware hints are optional; classification degrades confidence instead of
// failing when they are absent.
type Probe struct {
	Name            string
	MountPoint      string
	TotalSpaceBytes uint64
	FreeSpaceBytes  uint64
	FileSystem      string
	IsRemovable     bool
	Vendor          string
	Model           string
	Interface       string
	Rotational      *bool
}

// Options is the immutable classifier configuration for one invocation.
type Options struct {
	// OSMount marks the mount holding the operating system. Empty means the
	// OS drive could not be determined and no disk gets the flag.
	OSMount string
	// MinFreeRatio is the reserve threshold below which a disk stops being an
	// eligible local target.
	MinFreeRatio float64
}

// DefaultMinFreeRatio keeps a small reserve so targets are never recommended
// into near-full disks.
const DefaultMinFreeRatio = 0.05

// Enrich classifies every probe into an immutable DiskRecord. Probes are
// classified independently and in parallel; the result is sorted by mount
// point so output order never depends on scheduling.
func Enrich(probes []Probe, opts Options) []model.DiskRecord {
	if opts.MinFreeRatio <= 0 {
		opts.MinFreeRatio = DefaultMinFreeRatio
	}

	disks := make([]model.DiskRecord, len(probes))
	var group errgroup.Group
	group.SetLimit(runtime.NumCPU())
	for i, probe := range probes {
		group.Go(func() error {
			disks[i] = enrichOne(probe, opts)
			return nil
		})
	}
	_ = group.Wait()

	sort.Slice(disks, func(i, j int) bool {
		return disks[i].MountPoint < disks[j].MountPoint
	})
	return disks
}

func enrichOne(probe Probe, opts Options) model.DiskRecord {
	name := strings.ToLower(probe.Name)
	mount := strings.ToLower(probe.MountPoint)
	fs := strings.ToLower(probe.FileSystem)

	locality, localityConfidence, localityRationale := classifyLocality(name, mount, fs)
	iface, interfaceNote := inferInterface(probe, name, mount, fs)
	vendor, vendorModel, vendorNote := inferVendorModel(probe)
	storage, storageNote := classifyStorageType(locality, name, iface, probe.Rotational, probe.IsRemovable)
	performance, performanceConfidence, performanceRationale := classifyPerformance(storage, locality)

	isOSDrive := opts.OSMount != "" && sameMount(opts.OSMount, probe.MountPoint)
	eligible, reasons := targetEligibility(isOSDrive, locality, storage, probe.TotalSpaceBytes, probe.FreeSpaceBytes, opts.MinFreeRatio)

	notes := make([]string, 0, 4)
	for _, note := range []string{storageNote, interfaceNote, vendorNote} {
		if note != "" {
			notes = append(notes, note)
		}
	}

	return model.DiskRecord{
		Name:                   probe.Name,
		MountPoint:             probe.MountPoint,
		TotalSpaceBytes:        probe.TotalSpaceBytes,
		FreeSpaceBytes:         probe.FreeSpaceBytes,
		FileSystem:             probe.FileSystem,
		StorageType:            storage,
		LocalityClass:          locality,
		LocalityConfidence:     localityConfidence,
		LocalityRationale:      localityRationale,
		IsOSDrive:              isOSDrive,
		IsRemovable:            probe.IsRemovable,
		Vendor:                 vendor,
		Model:                  vendorModel,
		Interface:              iface,
		Rotational:             probe.Rotational,
		PerformanceClass:       performance,
		PerformanceConfidence:  performanceConfidence,
		PerformanceRationale:   performanceRationale,
		EligibleForLocalTarget: eligible,
		IneligibleReasons:      reasons,
		MetadataNotes:          notes,
		RoleHint:               model.RoleHint{Role: model.RoleUnknown, Evidence: []string{}},
	}
}

var cloudKeywords = []string{
	"google drive", "googledrive", "drivefs", "onedrive", "dropbox",
	"icloud", "pcloud", "sync.com", "mega", "webdav",
}

// classifyLocality applies a fixed precedence: cloud-sync markers beat
// network-filesystem markers, which beat virtual markers; anything else with a
// mount point is assumed physically local.
func classifyLocality(name, mount, fs string) (model.LocalityClass, float64, string) {
	if looksGoogleDriveLabel(name) || containsAny(name, cloudKeywords) || containsAny(mount, cloudKeywords) ||
		(fs != "" && containsAny(fs, []string{"google", "drivefs", "onedrive"})) {
		return model.LocalityCloudBacked, 0.95,
			"Cloud-provider indicators detected in disk name/mount/file system."
	}
	if looksNetworkMount(mount, fs) {
		return model.LocalityNetwork, 0.9,
			"Mount and/or file system matches network share patterns."
	}
	if looksVirtualMount(name, mount, fs) {
		return model.LocalityLocalVirtual, 0.8,
			"Virtual/substituted mount indicators detected."
	}
	if mount != "" {
		return model.LocalityLocalPhysical, 0.7,
			"No cloud/network/virtual indicators detected for this mount."
	}
	return model.LocalityUnknown, 0.4,
		"Insufficient signals to classify mount locality."
}

func classifyStorageType(locality model.LocalityClass, name, iface string, rotational *bool, removable bool) (model.StorageType, string) {
	switch locality {
	case model.LocalityCloudBacked:
		return model.StorageCloudBacked, "Classified as cloud-backed because locality indicates non-local storage."
	case model.LocalityNetwork:
		return model.StorageNetwork, "Classified as network storage due to mount/file-system characteristics."
	case model.LocalityLocalVirtual:
		return model.StorageVirtual, "Classified as virtual due to local virtual mount indicators."
	}

	if strings.Contains(name, "nvme") || iface == "nvme" {
		return model.StorageNVMe, "NVMe indicators detected from disk naming/interface hints."
	}
	if removable || iface == "usb" || strings.Contains(name, "usb") {
		return model.StorageUSB, "Removable/USB indicators detected for this disk."
	}
	if rotational != nil {
		if *rotational {
			return model.StorageHDD, "Hardware hint reports rotational media."
		}
		return model.StorageSSD, "Hardware hint reports non-rotational media."
	}
	return model.StorageUnknown, "Insufficient signals to infer storage type."
}

// classifyPerformance never fails: missing hardware evidence falls back to a
// balanced estimate with a rationale recording the gap, at lower confidence.
func classifyPerformance(storage model.StorageType, locality model.LocalityClass) (model.PerformanceClass, float64, string) {
	switch storage {
	case model.StorageNVMe:
		return model.PerformanceFast, 0.9,
			"NVMe storage generally provides high random and sequential throughput."
	case model.StorageSSD:
		return model.PerformanceFast, 0.8,
			"SSD classification indicates fast local access characteristics."
	case model.StorageHDD:
		return model.PerformanceSlow, 0.75,
			"HDD classification indicates higher latency than solid-state media."
	case model.StorageUSB:
		return model.PerformanceBalanced, 0.55,
			"USB devices vary widely; conservative balanced performance estimate applied."
	case model.StorageNetwork, model.StorageCloudBacked:
		return model.PerformanceSlow, 0.65,
			"Network/cloud-backed storage is typically latency sensitive for active workloads."
	case model.StorageVirtual:
		return model.PerformanceUnknown, 0.45,
			"Virtual storage performance depends on backing medium and cannot be inferred safely."
	}
	if locality == model.LocalityLocalPhysical {
		return model.PerformanceBalanced, 0.4,
			"Local physical mount detected, but no hardware hints were available; defaulting to balanced."
	}
	return model.PerformanceUnknown, 0.35, "Insufficient data to infer performance class."
}

// targetEligibility enumerates every failing predicate, not just the first.
func targetEligibility(isOSDrive bool, locality model.LocalityClass, storage model.StorageType, total, free uint64, minFreeRatio float64) (bool, []string) {
	reasons := []string{}

	if isOSDrive {
		reasons = append(reasons, "OS/system drive is excluded from optimization targets by default.")
	}
	switch locality {
	case model.LocalityCloudBacked:
		reasons = append(reasons, "Cloud-backed drive is excluded as a local placement target.")
	case model.LocalityNetwork:
		reasons = append(reasons, "Network share is excluded as a local placement target.")
	case model.LocalityLocalVirtual:
		reasons = append(reasons, "Virtual drive is excluded as a local placement target.")
	case model.LocalityUnknown:
		reasons = append(reasons, "Locality is unknown; target eligibility disabled for safety.")
	}
	switch storage {
	case model.StorageCloudBacked, model.StorageNetwork, model.StorageVirtual:
		reasons = append(reasons, "Storage type is non-local for optimization purposes.")
	}
	if total > 0 {
		if ratio := float64(free) / float64(total); ratio < minFreeRatio {
			reasons = append(reasons, fmt.Sprintf(
				"Free space %.1f%% is below the %.1f%% minimum reserve for placement targets.",
				ratio*100, minFreeRatio*100))
		}
	}

	return len(reasons) == 0, reasons
}

func normalizeInterface(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func inferInterface(probe Probe, name, mount, fs string) (string, string) {
	if probe.Interface != "" {
		return normalizeInterface(probe.Interface),
			fmt.Sprintf("Hardware hint supplied interface %q.", probe.Interface)
	}
	if strings.Contains(name, "nvme") || strings.Contains(fs, "nvme") {
		return "nvme", "Interface inferred as NVMe from naming signals."
	}
	if probe.IsRemovable || strings.Contains(name, "usb") {
		return "usb", "Interface inferred as USB due to removable/media hints."
	}
	if looksNetworkMount(mount, fs) {
		return "network", "Interface inferred as network from mount/file-system signals."
	}
	return "", "Interface unavailable from cross-platform runtime signals."
}

var knownVendors = []struct{ match, vendor string }{
	{"samsung", "Samsung"},
	{"seagate", "Seagate"},
	{"western digital", "Western Digital"},
	{"wd ", "Western Digital"},
	{"toshiba", "Toshiba"},
	{"kingston", "Kingston"},
	{"sandisk", "SanDisk"},
	{"crucial", "Crucial"},
	{"intel", "Intel"},
	{"hynix", "SK hynix"},
	{"micron", "Micron"},
}

func inferVendorModel(probe Probe) (string, string, string) {
	if probe.Vendor != "" || probe.Model != "" {
		return probe.Vendor, probe.Model, ""
	}
	name := strings.TrimSpace(probe.Name)
	if name == "" {
		return "", "", "Disk name is empty; vendor/model unavailable."
	}
	lowered := strings.ToLower(name)
	for _, entry := range knownVendors {
		if strings.Contains(lowered, entry.match) {
			return entry.vendor, name, "Vendor/model inferred from disk name string."
		}
	}
	return "", name, "Disk label is available but vendor could not be inferred reliably."
}

func looksNetworkMount(mount, fs string) bool {
	return strings.HasPrefix(mount, `\\`) || strings.HasPrefix(mount, "//") ||
		containsAny(fs, []string{"nfs", "cifs", "smb", "afp", "fuse.sshfs", "davfs", "webdav", "sshfs"})
}

func looksVirtualMount(name, mount, fs string) bool {
	return containsAny(name, []string{"virtual", "subst", "imdisk", "ramdisk"}) ||
		strings.Contains(mount, "/volumes/com.apple.time-machine.localsnapshots") ||
		containsAny(fs, []string{"tmpfs", "overlay", "proc", "sysfs", "devfs", "fuse.portal", "ramfs"})
}

func looksGoogleDriveLabel(name string) bool {
	return strings.Contains(name, "@") &&
		(strings.Contains(name, "googl") || strings.Contains(name, "drive"))
}

func containsAny(value string, patterns []string) bool {
	for _, pattern := range patterns {
		if strings.Contains(value, pattern) {
			return true
		}
	}
	return false
}

func sameMount(a, b string) bool {
	return normalizeMount(a) == normalizeMount(b)
}

func normalizeMount(value string) string {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) == 2 && trimmed[1] == ':' {
		trimmed += `\`
	}
	if len(trimmed) >= 2 && trimmed[1] == ':' {
		trimmed = strings.ToUpper(trimmed[:1]) + trimmed[1:]
		return strings.ReplaceAll(trimmed, "/", `\`)
	}
	if trimmed == "/" {
		return trimmed
	}
	return strings.TrimRight(trimmed, "/")
}
