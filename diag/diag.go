// Package diag assembles a support bundle: the analyzed report, the doctor
// environment summary, and provenance for the source report file. The bundle
// is what users attach when filing an issue about a surprising
// recommendation.
package diag

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/djherbis/times"

	"diskwise/logger"
	"diskwise/model"
	"diskwise/probe"
	"diskwise/version"
)

type Bundle struct {
	GeneratedAt      string           `json:"generated_at"`
	SourceReportPath string           `json:"source_report_path,omitempty"`
	SourceReport     *SourceFileInfo  `json:"source_report,omitempty"`
	Report           *model.Report    `json:"report"`
	Doctor           probe.DoctorInfo `json:"doctor"`
	Environment      Environment      `json:"environment"`
}

// SourceFileInfo captures filesystem provenance of the input report so a
// stale-report mismatch is visible in the bundle.
type SourceFileInfo struct {
	SizeBytes  int64  `json:"size_bytes"`
	ModTime    string `json:"mod_time"`
	AccessTime string `json:"access_time,omitempty"`
	BirthTime  string `json:"birth_time,omitempty"`
}

type Environment struct {
	OS           string `json:"os"`
	Arch         string `json:"arch"`
	CurrentDir   string `json:"current_dir,omitempty"`
	OSMount      string `json:"os_mount,omitempty"`
	ReadOnlyMode bool   `json:"read_only_mode"`
	AppVersion   string `json:"app_version"`
}

// Build assembles the bundle. sourcePath may be empty when the report came
// from a live probe rather than a file.
func Build(ctx context.Context, report *model.Report, sourcePath string) Bundle {
	doctor := probe.CollectDoctorInfo(ctx)
	bundle := Bundle{
		GeneratedAt:      time.Now().UTC().Format(time.RFC3339),
		SourceReportPath: sourcePath,
		Report:           report,
		Doctor:           doctor,
		Environment: Environment{
			OS:           runtime.GOOS,
			Arch:         runtime.GOARCH,
			CurrentDir:   doctor.CurrentDir,
			OSMount:      doctor.OSMount,
			ReadOnlyMode: true,
			AppVersion:   version.Version,
		},
	}
	if sourcePath != "" {
		bundle.SourceReport = sourceFileInfo(sourcePath)
	}
	return bundle
}

func sourceFileInfo(path string) *SourceFileInfo {
	stat, err := os.Stat(path)
	if err != nil {
		logger.Debugf("source report stat failed: %v", err)
		return nil
	}
	info := &SourceFileInfo{
		SizeBytes: stat.Size(),
		ModTime:   stat.ModTime().UTC().Format(time.RFC3339),
	}
	if spec, err := times.Stat(path); err == nil {
		if spec.HasBirthTime() {
			info.BirthTime = spec.BirthTime().UTC().Format(time.RFC3339)
		}
		info.AccessTime = spec.AccessTime().UTC().Format(time.RFC3339)
	}
	return info
}

// OutputPath returns the bundle file path inside dir, named after the scan.
func OutputPath(dir, scanID string) string {
	if scanID == "" {
		scanID = "unknown-scan"
	}
	return filepath.Join(dir, fmt.Sprintf("diskwise-diagnostics-%s.json", scanID))
}
