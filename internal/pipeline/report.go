package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
	SeverityInfo     = "info"
)

type Signal struct {
	Code     string  `json:"code"`
	Stage    string  `json:"stage"`
	Severity string  `json:"severity"`
	Message  string  `json:"message"`
	Value    float64 `json:"value,omitempty"`
}

type StageMetric struct {
	Name       string             `json:"name"`
	Status     string             `json:"status"`
	StartedAt  string             `json:"started_at"`
	FinishedAt string             `json:"finished_at"`
	DurationMS int64              `json:"duration_ms"`
	Counters   map[string]float64 `json:"counters,omitempty"`
	Error      string             `json:"error,omitempty"`
}

type SectionMetric struct {
	Number     string   `json:"number"`
	Title      string   `json:"title"`
	Depth      int      `json:"depth"`
	Blocks     int      `json:"blocks"`
	Words      int      `json:"words"`
	Unresolved []string `json:"unresolved,omitempty"`
}

type Summary struct {
	StageCount        int            `json:"stage_count"`
	SectionCount      int            `json:"section_count"`
	FailedStages      int            `json:"failed_stages"`
	UnresolvedCount   int            `json:"unresolved_count"`
	SignalsBySeverity map[string]int `json:"signals_by_severity"`
}

// Report records what happened to one manual as it moved through the pipeline.
type Report struct {
	Version     string          `json:"version"`
	Manual      string          `json:"manual"`
	Source      string          `json:"source"`
	GeneratedAt string          `json:"generated_at"`
	Stages      []StageMetric   `json:"stages"`
	Sections    []SectionMetric `json:"sections,omitempty"`
	Signals     []Signal        `json:"signals,omitempty"`
	Summary     Summary         `json:"summary"`
}

type stageHandle struct {
	name    string
	started time.Time
}

func NewReport(source string) *Report {
	return &Report{
		Version:     "v1",
		Source:      source,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Stages:      []StageMetric{},
		Signals:     []Signal{},
	}
}

func (r *Report) beginStage(name string) stageHandle {
	return stageHandle{name: strings.TrimSpace(name), started: time.Now().UTC()}
}

func (r *Report) endStage(h stageHandle, counters map[string]float64, err error) StageMetric {
	finished := time.Now().UTC()
	m := StageMetric{
		Name:       h.name,
		Status:     "ok",
		StartedAt:  h.started.Format(time.RFC3339Nano),
		FinishedAt: finished.Format(time.RFC3339Nano),
		DurationMS: finished.Sub(h.started).Milliseconds(),
		Counters:   cleanCounters(counters),
	}
	if err != nil {
		m.Status = "error"
		m.Error = err.Error()
	}
	if r != nil && h.name != "" {
		r.Stages = append(r.Stages, m)
	}
	return m
}

func (r *Report) AddSignal(code, stage, severity, message string, value float64) {
	if r == nil {
		return
	}
	s := Signal{
		Code:     strings.TrimSpace(code),
		Stage:    strings.TrimSpace(stage),
		Severity: strings.ToLower(strings.TrimSpace(severity)),
		Message:  strings.TrimSpace(message),
		Value:    value,
	}
	if s.Code == "" || s.Stage == "" || s.Severity == "" || s.Message == "" {
		return
	}
	r.Signals = append(r.Signals, s)
}

func (r *Report) AddSectionMetric(m SectionMetric) {
	if r == nil || strings.TrimSpace(m.Number) == "" {
		return
	}
	r.Sections = append(r.Sections, m)
}

// Failed reports whether any stage ended in error.
func (r *Report) Failed() bool {
	for _, st := range r.Stages {
		if st.Status != "ok" {
			return true
		}
	}
	return false
}

func (r *Report) Finalize() {
	if r == nil {
		return
	}
	r.GeneratedAt = time.Now().UTC().Format(time.RFC3339)
	severityCount := map[string]int{
		SeverityCritical: 0,
		SeverityWarning:  0,
		SeverityInfo:     0,
	}
	// Stable, so signals of equal rank keep document order.
	sort.SliceStable(r.Signals, func(i, j int) bool {
		return signalPriority(r.Signals[i].Severity) > signalPriority(r.Signals[j].Severity)
	})
	for _, s := range r.Signals {
		severityCount[s.Severity]++
	}

	failed := 0
	for _, st := range r.Stages {
		if st.Status != "ok" {
			failed++
		}
	}

	unresolved := 0
	for _, sec := range r.Sections {
		unresolved += len(sec.Unresolved)
	}

	r.Summary = Summary{
		StageCount:        len(r.Stages),
		SectionCount:      len(r.Sections),
		FailedStages:      failed,
		UnresolvedCount:   unresolved,
		SignalsBySeverity: severityCount,
	}
}

func (r *Report) Save(path string) error {
	if r == nil {
		return nil
	}
	r.Finalize()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0644)
}

func cleanCounters(raw map[string]float64) map[string]float64 {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string]float64, len(raw))
	for k, v := range raw {
		key := strings.TrimSpace(k)
		if key == "" {
			continue
		}
		out[key] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func signalPriority(severity string) int {
	switch severity {
	case SeverityCritical:
		return 3
	case SeverityWarning:
		return 2
	default:
		return 1
	}
}
