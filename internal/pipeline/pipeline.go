// Package pipeline runs manuals through load, assemble, render, persist and
// index stages and records a report for each run.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"manualgen/internal/assembler"
	"manualgen/internal/manual"
	"manualgen/internal/variables"
)

// Counters are per-stage numbers recorded in the report.
type Counters map[string]float64

// StageFunc advances a job by one step.
type StageFunc func(ctx context.Context, job *Job) (Counters, error)

type Stage struct {
	Name string
	Run  StageFunc
}

// Job is the artifact handed from stage to stage. Each job owns its inputs,
// so independent jobs can run concurrently.
type Job struct {
	Path string

	Manifest *manual.Manifest
	Vars     variables.Dictionary
	Doc      *assembler.Document
	Misses   []variables.Miss
	Outputs  []string
	RunID    string

	Report *Report
}

func NewJob(path string) *Job {
	return &Job{Path: path, Report: NewReport(path)}
}

// Name is the manual name once the manifest is loaded, else the source file name.
func (j *Job) Name() string {
	if j.Manifest != nil && j.Manifest.Name != "" {
		return j.Manifest.Name
	}
	return manual.NameFromPath(j.Path)
}

type Pipeline struct {
	stages    []Stage
	log       *zap.Logger
	reportDir string
}

type Option func(*Pipeline)

// WithReportDir saves each job's report as <dir>/<manual>.report.json.
func WithReportDir(dir string) Option {
	return func(p *Pipeline) { p.reportDir = dir }
}

func New(log *zap.Logger, stages []Stage, opts ...Option) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Pipeline{stages: stages, log: log}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run executes the stages in order and stops at the first failure, which is
// also recorded as a critical signal.
func (p *Pipeline) Run(ctx context.Context, job *Job) error {
	if job.Report == nil {
		job.Report = NewReport(job.Path)
	}
	log := p.log.With(zap.String("source", job.Path))

	var runErr error
	for _, st := range p.stages {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		h := job.Report.beginStage(st.Name)
		counters, err := st.Run(ctx, job)
		m := job.Report.endStage(h, counters, err)
		if err != nil {
			job.Report.AddSignal("stage_failed", st.Name, SeverityCritical, err.Error(), 0)
			log.Error("Stage failed", zap.String("stage", st.Name), zap.Error(err))
			runErr = fmt.Errorf("%s: %w", st.Name, err)
			break
		}
		log.Debug("Stage finished",
			zap.String("stage", st.Name),
			zap.Duration("took", time.Duration(m.DurationMS)*time.Millisecond),
			zap.Any("counters", m.Counters))
	}

	job.Report.Manual = job.Name()
	if p.reportDir != "" {
		path := filepath.Join(p.reportDir, job.Name()+".report.json")
		if err := job.Report.Save(path); err != nil {
			log.Warn("Failed to save report", zap.String("path", path), zap.Error(err))
		}
	} else {
		job.Report.Finalize()
	}

	if runErr == nil {
		log.Info("Manual generated",
			zap.String("manual", job.Name()),
			zap.Int("misses", len(job.Misses)),
			zap.Strings("outputs", job.Outputs))
	}
	return runErr
}
