// Package output persists analysis results and optionally mirrors them to an
// OTLP logs endpoint. The file format is a single versioned JSON document or
// a markdown summary; export is best effort and never blocks the report from
// being written.
package output

import (
	"bufio"
	"os"
	"sync"

	"diskwise/config"
	"diskwise/logger"
	"diskwise/model"
	"diskwise/planner"
)

// Metrics summarizes one analysis pass for the trailing metrics record.
type Metrics struct {
	StartTime              string `json:"start_time"`
	EndTime                string `json:"end_time"`
	DisksAnalyzed          int    `json:"disks_analyzed"`
	CandidatesEmitted      int    `json:"candidates_emitted"`
	Recommendations        int    `json:"recommendations"`
	BlockedCandidates      int    `json:"blocked_candidates"`
	ContradictionsResolved uint64 `json:"contradictions_resolved"`
}

type Writer struct {
	mu      sync.Mutex
	cfg     *config.Config
	metrics *Metrics
	otel    *otelLogger
}

func New(cfg *config.Config, m *Metrics) (*Writer, error) {
	w := &Writer{cfg: cfg, metrics: m}
	if cfg != nil {
		otel, err := newOtelLogger(cfg)
		if err != nil {
			logger.Warnf("OTEL export disabled: %v", err)
		} else {
			w.otel = otel
		}
	}
	return w, nil
}

// WriteReport writes the report to the configured file. The plan may be nil
// when the caller only ran the recommend stage.
func (w *Writer) WriteReport(report *model.Report, plan *planner.Plan) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := os.OpenFile(w.cfg.OutputFileName, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	buf := bufio.NewWriterSize(f, 256*1024)
	switch w.cfg.OutputFormat {
	case "markdown":
		if _, err := buf.WriteString(RenderMarkdownSummary(report, plan)); err != nil {
			return err
		}
	default:
		if err := w.writeJSON(buf, report, plan); err != nil {
			return err
		}
	}
	if err := buf.Flush(); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return err
	}

	w.emitReportLocked(report, plan)
	return nil
}

type document struct {
	*model.Report
	Plan *planner.Plan `json:"scenario_plan,omitempty"`
}

func (w *Writer) writeJSON(buf *bufio.Writer, report *model.Report, plan *planner.Plan) error {
	data, err := jsonMarshalIndent(document{Report: report, Plan: plan}, "", "  ")
	if err != nil {
		return err
	}
	if _, err := buf.Write(data); err != nil {
		return err
	}
	_, err = buf.WriteString("\n")
	return err
}

func (w *Writer) emitReportLocked(report *model.Report, plan *planner.Plan) {
	if w.otel == nil {
		return
	}
	for i := range report.Disks {
		w.otel.Emit("disk", report.Disks[i])
	}
	for i := range report.Recommendations {
		w.otel.Emit("recommendation", report.Recommendations[i])
	}
	for i := range report.PolicyDecisions {
		w.otel.Emit("policy_decision", report.PolicyDecisions[i])
	}
	for i := range report.RuleTraces {
		w.otel.Emit("rule_trace", report.RuleTraces[i])
	}
	if plan != nil {
		for i := range plan.Scenarios {
			w.otel.Emit("scenario", plan.Scenarios[i])
		}
	}
}

func (w *Writer) SetMetrics(m Metrics) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.metrics = &m
}

func (w *Writer) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.metrics != nil && w.otel != nil {
		w.otel.Emit("metrics", w.metrics)
	}
	if w.otel != nil {
		w.otel.Shutdown()
	}
}
