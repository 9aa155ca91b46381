package model

// Report is the versioned analysis document exchanged between the scan layer,
// the recommendation engine, and downstream consumers. The schema is
// additive-only: optional fields may be absent on inputs produced by older
// versions and must be tolerated.
type Report struct {
	ReportVersion   string               `json:"report_version"`
	GeneratedAt     string               `json:"generated_at"`
	ScanID          string               `json:"scan_id"`
	Disks           []DiskRecord         `json:"disks"`
	Paths           []PathStats          `json:"paths"`
	Categories      []CategorySuggestion `json:"categories"`
	Duplicates      []DuplicateGroup     `json:"duplicates"`
	Recommendations []Recommendation     `json:"recommendations"`
	PolicyDecisions []PolicyDecision     `json:"policy_decisions,omitempty"`
	RuleTraces      []RuleTrace          `json:"rule_traces,omitempty"`
	Warnings        []string             `json:"warnings"`
}

type LocalityClass string

const (
	LocalityLocalPhysical LocalityClass = "local_physical"
	LocalityLocalVirtual  LocalityClass = "local_virtual"
	LocalityNetwork       LocalityClass = "network"
	LocalityCloudBacked   LocalityClass = "cloud_backed"
	LocalityUnknown       LocalityClass = "unknown"
)

type PerformanceClass string

const (
	PerformanceFast     PerformanceClass = "fast"
	PerformanceBalanced PerformanceClass = "balanced"
	PerformanceSlow     PerformanceClass = "slow"
	PerformanceUnknown  PerformanceClass = "unknown"
)

type StorageType string

const (
	StorageHDD         StorageType = "hdd"
	StorageSSD         StorageType = "ssd"
	StorageNVMe        StorageType = "nvme"
	StorageUSB         StorageType = "usb"
	StorageNetwork     StorageType = "network"
	StorageVirtual     StorageType = "virtual"
	StorageCloudBacked StorageType = "cloud_backed"
	StorageUnknown     StorageType = "unknown"
)

type DiskRole string

const (
	RoleActiveWorkload DiskRole = "active_workload"
	RoleGamesLibrary   DiskRole = "games_library"
	RoleMediaLibrary   DiskRole = "media_library"
	RoleBackupTarget   DiskRole = "backup_target"
	RoleArchive        DiskRole = "archive"
	RoleMixed          DiskRole = "mixed"
	RoleUnknown        DiskRole = "unknown"
)

// RoleHint is the inferred primary purpose of a disk. Confidence is the
// normalized dominant-category weight in [0, 1].
type RoleHint struct {
	Role       DiskRole `json:"role"`
	Confidence float64  `json:"confidence"`
	Evidence   []string `json:"evidence"`
}

// DiskRecord is a per-mount disk enriched by the classifier. Built once per
// scan and treated as immutable by every downstream component.
type DiskRecord struct {
	Name                   string           `json:"name"`
	MountPoint             string           `json:"mount_point"`
	TotalSpaceBytes        uint64           `json:"total_space_bytes"`
	FreeSpaceBytes         uint64           `json:"free_space_bytes"`
	FileSystem             string           `json:"file_system,omitempty"`
	StorageType            StorageType      `json:"storage_type"`
	LocalityClass          LocalityClass    `json:"locality_class"`
	LocalityConfidence     float64          `json:"locality_confidence"`
	LocalityRationale      string           `json:"locality_rationale"`
	IsOSDrive              bool             `json:"is_os_drive"`
	IsRemovable            bool             `json:"is_removable"`
	Vendor                 string           `json:"vendor,omitempty"`
	Model                  string           `json:"model,omitempty"`
	Interface              string           `json:"interface,omitempty"`
	Rotational             *bool            `json:"rotational,omitempty"`
	PerformanceClass       PerformanceClass `json:"performance_class"`
	PerformanceConfidence  float64          `json:"performance_confidence"`
	PerformanceRationale   string           `json:"performance_rationale"`
	EligibleForLocalTarget bool             `json:"eligible_for_local_target"`
	IneligibleReasons      []string         `json:"ineligible_reasons"`
	MetadataNotes          []string         `json:"metadata_notes,omitempty"`
	RoleHint               RoleHint         `json:"role_hint"`
	TargetRoleEligibility  []string         `json:"target_role_eligibility,omitempty"`
}

// PathStats is the per-root usage aggregate produced by the scan layer and
// consumed read-only here.
type PathStats struct {
	RootPath        string           `json:"root_path"`
	DiskMount       string           `json:"disk_mount,omitempty"`
	TotalSizeBytes  uint64           `json:"total_size_bytes"`
	FileCount       uint64           `json:"file_count"`
	DirectoryCount  uint64           `json:"directory_count"`
	LargestFiles    []FileEntry      `json:"largest_files,omitempty"`
	LargestDirs     []DirectoryUsage `json:"largest_directories,omitempty"`
	FileTypeSummary FileTypeSummary  `json:"file_type_summary"`
	Activity        ActivitySignals  `json:"activity"`
}

type FileEntry struct {
	Path      string `json:"path"`
	SizeBytes uint64 `json:"size_bytes"`
	Modified  string `json:"modified,omitempty"`
}

type DirectoryUsage struct {
	Path      string `json:"path"`
	SizeBytes uint64 `json:"size_bytes"`
}

type FileTypeSummary struct {
	TopExtensions []ExtensionUsage `json:"top_extensions"`
	OtherFiles    uint64           `json:"other_files"`
	OtherBytes    uint64           `json:"other_bytes"`
	TotalFiles    uint64           `json:"total_files"`
	TotalBytes    uint64           `json:"total_bytes"`
}

type ExtensionUsage struct {
	Extension string `json:"extension"`
	Files     uint64 `json:"files"`
	Bytes     uint64 `json:"bytes"`
}

type ActivitySignals struct {
	RecentFiles          uint64 `json:"recent_files"`
	StaleFiles           uint64 `json:"stale_files"`
	UnknownModifiedFiles uint64 `json:"unknown_modified_files"`
}

type Category string

const (
	CategoryBackup  Category = "backup"
	CategoryGames   Category = "games"
	CategoryWork    Category = "work"
	CategoryMedia   Category = "media"
	CategoryArchive Category = "archive"
)

// CategorySuggestion comes from the categorizer collaborator.
type CategorySuggestion struct {
	Target     string   `json:"target"`
	DiskMount  string   `json:"disk_mount,omitempty"`
	Category   Category `json:"category"`
	Confidence float64  `json:"confidence"`
	Rationale  string   `json:"rationale"`
	Evidence   []string `json:"evidence"`
}

type DuplicateIntentLabel string

const (
	IntentLikelyIntentional DuplicateIntentLabel = "likely_intentional"
	IntentLikelyRedundant   DuplicateIntentLabel = "likely_redundant"
)

type DuplicateIntent struct {
	Label     DuplicateIntentLabel `json:"label"`
	Rationale string               `json:"rationale"`
}

// DuplicateGroup comes from the dedupe collaborator.
type DuplicateGroup struct {
	SizeBytes        uint64          `json:"size_bytes"`
	Hash             string          `json:"hash"`
	Files            []DuplicateFile `json:"files"`
	TotalWastedBytes uint64          `json:"total_wasted_bytes"`
	Intent           DuplicateIntent `json:"intent"`
}

type DuplicateFile struct {
	Path      string `json:"path"`
	DiskMount string `json:"disk_mount,omitempty"`
	Modified  string `json:"modified,omitempty"`
}

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

type EstimatedImpact struct {
	SpaceSavingBytes *uint64 `json:"space_saving_bytes,omitempty"`
	Performance      string  `json:"performance,omitempty"`
	RiskNotes        string  `json:"risk_notes,omitempty"`
}

// Recommendation is a policy-approved, strictly advisory suggestion. Every
// recommendation in a final output list has PolicySafe == true; blocked
// candidates are fully excluded and survive only as decisions and traces.
type Recommendation struct {
	ID                 string          `json:"id"`
	Title              string          `json:"title"`
	Rationale          string          `json:"rationale"`
	Confidence         float64         `json:"confidence"`
	TargetMount        string          `json:"target_mount,omitempty"`
	PolicySafe         bool            `json:"policy_safe"`
	PolicyRulesApplied []string        `json:"policy_rules_applied"`
	PolicyRulesBlocked []string        `json:"policy_rules_blocked"`
	EstimatedImpact    EstimatedImpact `json:"estimated_impact"`
	RiskLevel          RiskLevel       `json:"risk_level"`
}

// Candidate is the ephemeral form a rule emits before policy review. Rule
// records the origin rule id; it participates in contradiction tie-breaks.
type Candidate struct {
	Rule           string         `json:"rule_id"`
	Recommendation Recommendation `json:"recommendation"`
}

type PolicyAction string

const (
	PolicyAllowed PolicyAction = "allowed"
	PolicyBlocked PolicyAction = "blocked"
)

// PolicyDecision records one policy check outcome for one candidate.
type PolicyDecision struct {
	PolicyID         string       `json:"policy_id"`
	RecommendationID string       `json:"recommendation_id"`
	Action           PolicyAction `json:"action"`
	Rationale        string       `json:"rationale"`
}

type RuleTraceStatus string

const (
	TraceEmitted  RuleTraceStatus = "emitted"
	TraceSkipped  RuleTraceStatus = "skipped"
	TraceRejected RuleTraceStatus = "rejected"
)

// RuleTrace is the audit record of one rule's evaluation outcome. The policy
// engine is the only component allowed to mutate a trace afterwards, and only
// from emitted to rejected when it blocks the referenced candidate.
type RuleTrace struct {
	RuleID           string          `json:"rule_id"`
	Status           RuleTraceStatus `json:"status"`
	Detail           string          `json:"detail"`
	RecommendationID string          `json:"recommendation_id,omitempty"`
	Confidence       *float64        `json:"confidence,omitempty"`
}
