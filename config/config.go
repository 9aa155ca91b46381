package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"diskwise/version"
)

// Config drives one invocation. Values resolve in order: built-in defaults,
// then the JSON config file, then explicit command-line flags.
type Config struct {
	Mode             string            `json:"mode"`
	InputReport      string            `json:"input_report"`
	SuiteFile        string            `json:"suite_file"`
	OutputFileName   string            `json:"output_file_name"`
	OutputFormat     string            `json:"output_format"`
	OSMount          string            `json:"os_mount"`
	MinFreeRatio     float64           `json:"min_free_ratio"`
	LogLevel         string            `json:"log_level"`
	ConfigFile       string            `json:"config_file"`
	DiagDir          string            `json:"diag_dir"`
	OtelEndpoint     string            `json:"otel_endpoint"`
	OtelFromEnv      bool              `json:"otel_from_env"`
	OtelHeaders      map[string]string `json:"otel_headers"`
	OtelServiceName  string            `json:"otel_service_name"`
	OtelTimeout      time.Duration     `json:"otel_timeout"`
	OtelExportMounts bool              `json:"otel_export_mounts"`
}

var validModes = []string{"recommend", "plan", "eval", "doctor", "diagnostics"}

func LoadConfig() (*Config, error) {
	now := time.Now().UTC()
	timestamp := now.Format("20060102-150405")
	cfg := &Config{
		Mode:            "recommend",
		OutputFileName:  fmt.Sprintf("diskwise-%s.json", timestamp),
		OutputFormat:    "json",
		MinFreeRatio:    0.05,
		LogLevel:        "info",
		DiagDir:         ".",
		OtelHeaders:     map[string]string{},
		OtelServiceName: "diskwise",
		OtelTimeout:     5 * time.Second,
	}

	mode := flag.String("mode", cfg.Mode, fmt.Sprintf("Run mode: %s (default: %s).", strings.Join(validModes, ", "), cfg.Mode))
	inputReport := flag.String("input", cfg.InputReport, "Path to an existing report JSON to analyze (default: probe the live system).")
	suiteFile := flag.String("suite", cfg.SuiteFile, "Path to an evaluation suite JSON (eval mode only).")
	output := flag.String("output", cfg.OutputFileName, "Output file name (default: diskwise-<timestamp>.json).")
	format := flag.String("format", cfg.OutputFormat, fmt.Sprintf("Output format: json or markdown (default: %s).", cfg.OutputFormat))
	osMount := flag.String("os-mount", cfg.OSMount, "Override the detected OS mount point (default: auto-detect).")
	minFreeRatio := flag.Float64("min-free-ratio", cfg.MinFreeRatio, fmt.Sprintf("Minimum free-space ratio a disk needs to stay target-eligible (default: %.2f).", cfg.MinFreeRatio))
	logLevel := flag.String("log-level", cfg.LogLevel, fmt.Sprintf("Log level: debug, info, warn, error, fatal, or panic (default: %s).", cfg.LogLevel))
	configFile := flag.String("config", "", "Path to JSON configuration file (default: none).")
	diagDir := flag.String("diag-dir", cfg.DiagDir, "Diagnostics output directory (default: current directory).")
	otelEndpoint := flag.String("otel-endpoint", cfg.OtelEndpoint, "OTLP/HTTP logs endpoint (default: none).")
	otelFromEnv := flag.Bool("otel-from-env", cfg.OtelFromEnv, "Allow OTEL endpoint fallback from OTEL environment variables (default: false).")
	otelHeaders := flag.String("otel-headers", "", "Comma-separated OTEL headers (key=value) for export (default: none).")
	otelServiceName := flag.String("otel-service-name", cfg.OtelServiceName, "OTEL service name for export (default: diskwise).")
	otelTimeout := flag.Duration("otel-timeout", cfg.OtelTimeout, "OTEL export timeout (default: 5s).")
	otelExportMounts := flag.Bool("otel-export-mounts", cfg.OtelExportMounts, "Include raw mount points and paths in OTEL payloads (default: false).")
	showVersion := flag.Bool("version", false, "Print version and exit")

	flag.Usage = displayHelp
	flag.Parse()

	if *showVersion {
		fmt.Printf("Diskwise version %s\n", version.Version)
		os.Exit(0)
	}

	if *configFile != "" {
		cfg.ConfigFile = *configFile
		if err := cfg.loadFromFile(cfg.ConfigFile); err != nil {
			return nil, err
		}
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "mode":
			cfg.Mode = strings.ToLower(strings.TrimSpace(*mode))
		case "input":
			cfg.InputReport = *inputReport
		case "suite":
			cfg.SuiteFile = *suiteFile
		case "output":
			cfg.OutputFileName = *output
		case "format":
			cfg.OutputFormat = strings.ToLower(*format)
		case "os-mount":
			cfg.OSMount = *osMount
		case "min-free-ratio":
			cfg.MinFreeRatio = *minFreeRatio
		case "log-level":
			cfg.LogLevel = *logLevel
		case "diag-dir":
			cfg.DiagDir = strings.TrimSpace(*diagDir)
		case "otel-endpoint":
			cfg.OtelEndpoint = strings.TrimSpace(*otelEndpoint)
		case "otel-from-env":
			cfg.OtelFromEnv = *otelFromEnv
		case "otel-headers":
			cfg.OtelHeaders = parseHeaders(*otelHeaders)
		case "otel-service-name":
			cfg.OtelServiceName = strings.TrimSpace(*otelServiceName)
		case "otel-timeout":
			cfg.OtelTimeout = *otelTimeout
		case "otel-export-mounts":
			cfg.OtelExportMounts = *otelExportMounts
		}
	})
	cfg.Mode = strings.ToLower(strings.TrimSpace(cfg.Mode))
	cfg.OutputFormat = strings.ToLower(strings.TrimSpace(cfg.OutputFormat))
	if cfg.DiagDir == "" {
		cfg.DiagDir = "."
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func displayHelp() {
	fmt.Println("Diskwise - Local Storage Recommendation & Policy Engine")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  diskwise [options]")
	fmt.Println()
	fmt.Println("Options:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  diskwise --mode recommend")
	fmt.Println("  diskwise --mode plan --input report.json --format markdown")
	fmt.Println("  diskwise --mode eval --suite suite.json")
}

func (cfg *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read config file: %v", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("invalid config file format: %v", err)
	}
	return nil
}

func (cfg *Config) validate() error {
	if !containsString(validModes, cfg.Mode) {
		return fmt.Errorf("invalid mode: %s (valid: %s)", cfg.Mode, strings.Join(validModes, ", "))
	}
	if cfg.OutputFormat != "json" && cfg.OutputFormat != "markdown" {
		return fmt.Errorf("invalid output format: %s (json or markdown)", cfg.OutputFormat)
	}
	if cfg.Mode == "eval" && strings.TrimSpace(cfg.SuiteFile) == "" {
		return fmt.Errorf("eval mode requires --suite")
	}
	if cfg.MinFreeRatio < 0 || cfg.MinFreeRatio >= 1 {
		return fmt.Errorf("min-free-ratio must be in [0, 1)")
	}
	if cfg.LogLevel != "debug" && cfg.LogLevel != "info" && cfg.LogLevel != "warn" &&
		cfg.LogLevel != "error" && cfg.LogLevel != "fatal" && cfg.LogLevel != "panic" {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}
	if cfg.OtelTimeout < 0 {
		return fmt.Errorf("otel-timeout must be zero or positive")
	}
	if cfg.OtelEndpoint != "" {
		if !strings.HasPrefix(cfg.OtelEndpoint, "http://") && !strings.HasPrefix(cfg.OtelEndpoint, "https://") {
			return fmt.Errorf("otel-endpoint must include scheme (http or https)")
		}
	}
	return nil
}

func parseHeaders(input string) map[string]string {
	headers := make(map[string]string)
	if input == "" {
		return headers
	}
	for _, item := range strings.Split(input, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts := strings.SplitN(item, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		if key == "" {
			continue
		}
		headers[key] = strings.TrimSpace(parts[1])
	}
	return headers
}

func containsString(items []string, value string) bool {
	for _, item := range items {
		if item == value {
			return true
		}
	}
	return false
}
