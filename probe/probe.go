// Package probe enumerates mounted disks on the live system and turns them
// into raw classifier input. It is the only part of the program that touches
// OS-level device state, and it only ever reads.
package probe

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"

	"diskwise/classify"
	"diskwise/logger"
	"diskwise/version"
)

// pseudoFilesystems never count as storage a recommendation could target.
var pseudoFilesystems = map[string]bool{
	"proc": true, "sysfs": true, "devtmpfs": true, "devpts": true,
	"tmpfs": true, "cgroup": true, "cgroup2": true, "overlay": true,
	"squashfs": true, "ramfs": true, "securityfs": true, "debugfs": true,
	"tracefs": true, "fusectl": true, "configfs": true, "pstore": true,
	"bpf": true, "hugetlbfs": true, "mqueue": true, "autofs": true,
	"binfmt_misc": true, "rpc_pipefs": true, "nsfs": true, "efivarfs": true,
}

// Collect returns one probe per real mounted filesystem, deduplicated by
// mount point. A mount whose usage cannot be read is logged and skipped
// rather than failing the whole enumeration.
func Collect(ctx context.Context) ([]classify.Probe, error) {
	partitions, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(partitions))
	probes := make([]classify.Probe, 0, len(partitions))
	for _, partition := range partitions {
		if seen[partition.Mountpoint] {
			continue
		}
		if pseudoFilesystems[strings.ToLower(partition.Fstype)] {
			continue
		}
		usage, err := disk.UsageWithContext(ctx, partition.Mountpoint)
		if err != nil {
			logger.Debugf("skipping mount %s: usage unavailable: %v", partition.Mountpoint, err)
			continue
		}
		if usage.Total == 0 {
			continue
		}
		seen[partition.Mountpoint] = true

		probes = append(probes, classify.Probe{
			Name:            deviceName(partition),
			MountPoint:      partition.Mountpoint,
			TotalSpaceBytes: usage.Total,
			FreeSpaceBytes:  usage.Free,
			FileSystem:      partition.Fstype,
			IsRemovable:     isRemovable(partition),
		})
	}
	return probes, nil
}

func deviceName(partition disk.PartitionStat) string {
	if partition.Device == "" {
		return partition.Mountpoint
	}
	if runtime.GOOS == "windows" {
		return partition.Device
	}
	return filepath.Base(partition.Device)
}

func isRemovable(partition disk.PartitionStat) bool {
	for _, opt := range partition.Opts {
		if strings.EqualFold(opt, "removable") {
			return true
		}
	}
	device := strings.ToLower(partition.Device)
	return strings.Contains(device, "/media/") || strings.Contains(device, "usb")
}

// DetectOSMount returns the mount point hosting the operating system.
func DetectOSMount() string {
	if runtime.GOOS == "windows" {
		if systemDrive := os.Getenv("SystemDrive"); systemDrive != "" {
			return systemDrive + "\\"
		}
		return "C:\\"
	}
	return "/"
}

// DoctorInfo is the environment health summary for the doctor mode.
type DoctorInfo struct {
	OS            string           `json:"os"`
	Arch          string           `json:"arch"`
	Platform      string           `json:"platform,omitempty"`
	KernelVersion string           `json:"kernel_version,omitempty"`
	AppVersion    string           `json:"app_version"`
	CurrentDir    string           `json:"current_dir,omitempty"`
	OSMount       string           `json:"os_mount,omitempty"`
	ReadOnlyMode  bool             `json:"read_only_mode"`
	Disks         []classify.Probe `json:"disks"`
	Notes         []string         `json:"notes"`
}

// CollectDoctorInfo gathers the doctor summary. Probe failures degrade to
// notes instead of errors since doctor exists to explain a broken setup.
func CollectDoctorInfo(ctx context.Context) DoctorInfo {
	info := DoctorInfo{
		OS:           runtime.GOOS,
		Arch:         runtime.GOARCH,
		AppVersion:   version.Version,
		OSMount:      DetectOSMount(),
		ReadOnlyMode: true,
		Notes: []string{
			"Diskwise operates in read-only mode; no file mutations are performed.",
			"Network access is not used by the analysis pipeline.",
			"Cloud/network/virtual mounts are excluded as local placement targets.",
		},
	}
	if dir, err := os.Getwd(); err == nil {
		info.CurrentDir = dir
	}
	if hostInfo, err := host.InfoWithContext(ctx); err == nil {
		info.Platform = hostInfo.Platform
		info.KernelVersion = hostInfo.KernelVersion
	} else {
		logger.Debugf("host info unavailable: %v", err)
	}

	probes, err := Collect(ctx)
	if err != nil {
		info.Notes = append(info.Notes, "Disk enumeration failed: "+err.Error())
		return info
	}
	info.Disks = probes
	if len(probes) == 0 {
		info.Notes = append(info.Notes, "No disks detected; consider passing an --input report instead.")
	}
	return info
}
