package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ReportVersion is the schema version written to every report this build
// produces. Minor and patch bumps are additive-only.
const ReportVersion = "1.3.0"

// ErrSchemaVersion marks a report whose schema this build cannot interpret.
// The caller aborts recommendation generation for that input only.
var ErrSchemaVersion = errors.New("incompatible report schema version")

// CheckVersion accepts any report sharing our major version. Absent versions
// are rejected: a report without a schema marker cannot be trusted.
func CheckVersion(reportVersion string) error {
	v := strings.TrimSpace(reportVersion)
	if v == "" {
		return fmt.Errorf("%w: report_version is empty", ErrSchemaVersion)
	}
	major, ok := majorOf(v)
	if !ok {
		return fmt.Errorf("%w: malformed report_version %q", ErrSchemaVersion, v)
	}
	ourMajor, _ := majorOf(ReportVersion)
	if major != ourMajor {
		return fmt.Errorf("%w: report_version %q, this build understands %q", ErrSchemaVersion, v, ReportVersion)
	}
	return nil
}

func majorOf(version string) (int, bool) {
	head, _, _ := strings.Cut(version, ".")
	major, err := strconv.Atoi(head)
	if err != nil || major < 0 {
		return 0, false
	}
	return major, true
}
