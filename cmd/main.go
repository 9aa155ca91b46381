package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"diskwise/classify"
	"diskwise/config"
	"diskwise/diag"
	"diskwise/engine"
	"diskwise/eval"
	"diskwise/logger"
	"diskwise/model"
	"diskwise/output"
	"diskwise/planner"
	"diskwise/probe"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	switch cfg.Mode {
	case "eval":
		runEval(cfg)
	case "doctor":
		runDoctor(ctx, cfg)
	default:
		runAnalysis(ctx, cfg)
	}
}

func runAnalysis(ctx context.Context, cfg *config.Config) {
	startTime := time.Now()
	metrics := output.Metrics{StartTime: startTime.UTC().Format(time.RFC3339)}

	report, err := loadOrProbeReport(ctx, cfg)
	if err != nil {
		logger.Fatalf("Failed to load input: %v", err)
	}

	bundle, err := engine.Apply(report)
	if err != nil {
		logger.Fatalf("Analysis failed: %v", err)
	}
	metrics.DisksAnalyzed = len(report.Disks)
	metrics.Recommendations = len(bundle.Recommendations)
	metrics.BlockedCandidates = len(bundle.Blocked)
	metrics.CandidatesEmitted = len(bundle.Recommendations) + len(bundle.Blocked)
	metrics.ContradictionsResolved = bundle.ContradictionCount

	var plan *planner.Plan
	if cfg.Mode == "plan" {
		built := engine.PlanFor(report, bundle)
		plan = &built
	}

	if cfg.Mode == "diagnostics" {
		writeDiagnostics(ctx, cfg, report)
		return
	}

	writer, err := output.New(cfg, &metrics)
	if err != nil {
		logger.Fatalf("Failed to initialize output: %v", err)
	}
	defer writer.Close()

	if err := writer.WriteReport(report, plan); err != nil {
		logger.Fatalf("Failed to write report: %v", err)
	}

	metrics.EndTime = time.Now().UTC().Format(time.RFC3339)
	writer.SetMetrics(metrics)
	logger.Infof("Analysis completed: %d recommendation(s), %d blocked, output %s",
		metrics.Recommendations, metrics.BlockedCandidates, cfg.OutputFileName)
}

// loadOrProbeReport reads the input report when one was given; otherwise it
// probes the live system and classifies the mounts it finds.
func loadOrProbeReport(ctx context.Context, cfg *config.Config) (*model.Report, error) {
	if cfg.InputReport != "" {
		data, err := os.ReadFile(cfg.InputReport)
		if err != nil {
			return nil, fmt.Errorf("could not read input report: %w", err)
		}
		var report model.Report
		if err := json.Unmarshal(data, &report); err != nil {
			return nil, fmt.Errorf("invalid input report JSON: %w", err)
		}
		return &report, nil
	}

	probes, err := probe.Collect(ctx)
	if err != nil {
		return nil, fmt.Errorf("disk probing failed: %w", err)
	}
	osMount := cfg.OSMount
	if osMount == "" {
		osMount = probe.DetectOSMount()
	}
	disks := classify.Enrich(probes, classify.Options{
		OSMount:      osMount,
		MinFreeRatio: cfg.MinFreeRatio,
	})
	return &model.Report{
		ReportVersion: model.ReportVersion,
		Disks:         disks,
	}, nil
}

func runEval(cfg *config.Config) {
	result, err := eval.EvaluateSuiteFile(cfg.SuiteFile)
	if err != nil {
		logger.Fatalf("Evaluation failed: %v", err)
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		logger.Fatalf("Failed to encode evaluation result: %v", err)
	}
	if err := os.WriteFile(cfg.OutputFileName, append(data, '\n'), 0600); err != nil {
		logger.Fatalf("Failed to write evaluation result: %v", err)
	}
	logger.Infof("Evaluation completed: %d/%d case(s) passed, precision@3 %.2f, unsafe %d",
		result.PassedCases, result.TotalCases, result.PrecisionAt3, result.UnsafeRecommendations)
	if result.UnsafeRecommendations > 0 {
		logger.Error("Unsafe recommendations detected; policy invariant violated.")
		os.Exit(1)
	}
}

func runDoctor(ctx context.Context, cfg *config.Config) {
	info := probe.CollectDoctorInfo(ctx)
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		logger.Fatalf("Failed to encode doctor info: %v", err)
	}
	if err := os.WriteFile(cfg.OutputFileName, append(data, '\n'), 0600); err != nil {
		logger.Fatalf("Failed to write doctor info: %v", err)
	}
	logger.Infof("Doctor summary written to %s", cfg.OutputFileName)
}

func writeDiagnostics(ctx context.Context, cfg *config.Config, report *model.Report) {
	bundle := diag.Build(ctx, report, cfg.InputReport)
	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		logger.Fatalf("Failed to encode diagnostics bundle: %v", err)
	}
	path := diag.OutputPath(cfg.DiagDir, report.ScanID)
	if err := os.WriteFile(path, append(data, '\n'), 0600); err != nil {
		logger.Fatalf("Failed to write diagnostics bundle: %v", err)
	}
	logger.Infof("Diagnostics bundle written to %s", path)
}

func handleSignals(cancelFunc context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logger.Info("Interrupt signal received. Shutting down...")
	cancelFunc()
}
