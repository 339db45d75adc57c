package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"manualgen/internal/assembler"
	"manualgen/internal/manual"
	"manualgen/internal/outline"
	"manualgen/internal/render"
	"manualgen/internal/variables"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeStore struct {
	mu   sync.Mutex
	runs map[string]int
}

func (f *fakeStore) SaveRun(_ context.Context, doc *assembler.Document, misses []variables.Miss) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.runs == nil {
		f.runs = map[string]int{}
	}
	f.runs[doc.Metadata.Manual] = len(misses)
	return "run-" + doc.Metadata.Manual, nil
}

type fakeIndex struct {
	mu      sync.Mutex
	indexed []string
	err     error
}

func (f *fakeIndex) IndexDocument(doc *assembler.Document) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed = append(f.indexed, doc.Metadata.Manual)
	return len(doc.Headings()), nil
}

const hrManifest = `{
  "manual_description": "[COMPANY NAME] Employee Handbook",
  "sections": [
    {"number": "1", "title": "Introduction", "content": "Welcome to [COMPANY NAME]."},
    {"number": "1.1", "title": "Owner", "content": "Maintained by [POLICY OWNER]. Call [HOTLINE]."},
    {"number": "2", "title": "Leave", "content": "- Annual leave\n- Sick leave"}
  ],
  "variables": {
    "policy_owner": {"description": "Owner", "default_value": "HR Director", "category": "policy"},
    "company_name": {"default_value": "[COMPANY NAME]"}
  }
}`

func writeManifest(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func testSettings(t *testing.T, out string) Settings {
	t.Helper()
	return Settings{
		OutputDir:    out,
		Formats:      []render.Format{render.FormatMarkdown, render.FormatJSON},
		Now:          func() time.Time { return time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC) },
		Organization: variables.MustDictionary(map[string]string{"COMPANY_NAME": "Acme Corp"}),
	}
}

func TestPipeline_StandardRun(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	path := writeManifest(t, dir, "content_hr_handbook.json", hrManifest)

	settings := testSettings(t, out)
	store := &fakeStore{}
	index := &fakeIndex{}
	settings.Store = store
	settings.Index = index

	p := New(zap.NewNop(), Standard(settings), WithReportDir(out))
	job := NewJob(path)
	require.NoError(t, p.Run(context.Background(), job))

	assert.Equal(t, "hr_handbook", job.Name())
	require.NotNil(t, job.Doc)
	assert.Equal(t, "Acme Corp Employee Handbook", job.Doc.Metadata.Subject)
	v, ok := job.Vars.Lookup("POLICY_OWNER")
	assert.True(t, ok)
	assert.Equal(t, "HR Director", v)

	require.Len(t, job.Misses, 1)
	assert.Equal(t, "HOTLINE", job.Misses[0].Name)
	assert.Equal(t, "1.1", job.Misses[0].Section)

	assert.Equal(t, []string{
		filepath.Join(out, "hr_handbook.md"),
		filepath.Join(out, "hr_handbook.json"),
	}, job.Outputs)
	assert.Equal(t, "run-hr_handbook", job.RunID)
	assert.Equal(t, 1, store.runs["hr_handbook"])
	assert.Equal(t, []string{"hr_handbook"}, index.indexed)

	var stages []string
	for _, st := range job.Report.Stages {
		stages = append(stages, st.Name)
		assert.Equal(t, "ok", st.Status)
	}
	assert.Equal(t, []string{StageLoadManifest, StageVariables, StageAssemble, StageRender, StagePersist, StageIndex}, stages)

	raw, err := os.ReadFile(filepath.Join(out, "hr_handbook.report.json"))
	require.NoError(t, err)
	var saved Report
	require.NoError(t, json.Unmarshal(raw, &saved))
	assert.Equal(t, "hr_handbook", saved.Manual)
	assert.Equal(t, 3, saved.Summary.SectionCount)
	assert.Equal(t, 1, saved.Summary.UnresolvedCount)
	assert.Equal(t, 1, saved.Summary.SignalsBySeverity[SeverityWarning])
	require.Len(t, saved.Signals, 1)
	assert.Equal(t, "unresolved_placeholder", saved.Signals[0].Code)
	assert.Equal(t, "section 1.1 body: [HOTLINE]", saved.Signals[0].Message)
}

func TestPipeline_VariablesFileOverridesOrganization(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "content_hr.json", hrManifest)
	varsPath := writeManifest(t, dir, "variables.json", `{"COMPANY_NAME": "Globex", "HOTLINE": "555-0100"}`)

	settings := testSettings(t, filepath.Join(dir, "out"))
	settings.VariablesFile = varsPath

	job := NewJob(path)
	require.NoError(t, New(nil, Check(settings)).Run(context.Background(), job))
	assert.Empty(t, job.Misses)
	assert.Equal(t, "Globex Employee Handbook", job.Doc.Metadata.Subject)
	assert.Empty(t, job.Outputs)
}

func TestPipeline_StopsAtFirstFailure(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "content_broken.json", `[
  {"number": "1", "title": "A"},
  {"number": "1.1", "title": "B"},
  {"number": "1.2", "title": "C"},
  {"number": "2", "title": "D"},
  {"number": "3.1", "title": "E"}
]`)

	index := &fakeIndex{}
	settings := testSettings(t, filepath.Join(dir, "out"))
	settings.Index = index

	job := NewJob(path)
	err := New(zap.NewNop(), Standard(settings)).Run(context.Background(), job)
	require.Error(t, err)
	assert.True(t, errors.Is(err, outline.ErrBrokenOutline))
	assert.Nil(t, job.Doc)
	assert.Empty(t, index.indexed)

	require.Len(t, job.Report.Stages, 3)
	assert.Equal(t, "error", job.Report.Stages[2].Status)
	assert.True(t, job.Report.Failed())
	require.NotEmpty(t, job.Report.Signals)
	assert.Equal(t, SeverityCritical, job.Report.Signals[0].Severity)
	assert.Equal(t, StageAssemble, job.Report.Signals[0].Stage)
}

func TestPipeline_InvalidManifest(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "content_bad.json", `[{"title": "no number"}]`)

	job := NewJob(path)
	err := New(nil, Standard(testSettings(t, dir))).Run(context.Background(), job)
	require.Error(t, err)
	assert.True(t, errors.Is(err, manual.ErrInvalidManifest))
	require.Len(t, job.Report.Stages, 1)
}

func TestPipeline_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	job := NewJob("content_x.json")
	err := New(nil, Standard(Settings{})).Run(ctx, job)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, job.Report.Stages)
}

func TestRunBatch_IndependentJobsInOrder(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")

	var jobs []*Job
	for i := 0; i < 6; i++ {
		body := fmt.Sprintf(`[{"number": "1", "title": "Manual %d", "body": "Text for [COMPANY NAME]."}]`, i)
		if i == 3 {
			body = `{"sections": "nope"}`
		}
		jobs = append(jobs, NewJob(writeManifest(t, dir, fmt.Sprintf("content_m%d.json", i), body)))
	}

	store := &fakeStore{}
	settings := testSettings(t, out)
	settings.Store = store

	results, err := New(zap.NewNop(), Standard(settings)).RunBatch(context.Background(), jobs, 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, manual.ErrInvalidManifest))
	require.Len(t, results, 6)

	for i, r := range results {
		assert.Same(t, jobs[i], r.Job)
		if i == 3 {
			assert.Error(t, r.Err)
			continue
		}
		require.NoError(t, r.Err)
		assert.Equal(t, fmt.Sprintf("m%d", i), r.Job.Name())
		assert.Equal(t, fmt.Sprintf("Manual %d", i), r.Job.Doc.TOC()[0].Title)
	}
	assert.Len(t, store.runs, 5)
}
