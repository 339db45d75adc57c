package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"manualgen/internal/assembler"
	"manualgen/internal/manual"
	"manualgen/internal/outline"
	"manualgen/internal/render"
	"manualgen/internal/variables"
)

// RunSaver persists a finished document.
type RunSaver interface {
	SaveRun(ctx context.Context, doc *assembler.Document, misses []variables.Miss) (string, error)
}

// Indexer makes a finished document searchable.
type Indexer interface {
	IndexDocument(doc *assembler.Document) (int, error)
}

// Settings configures the standard stages. Store and Index are optional.
type Settings struct {
	OutputDir string
	Formats   []render.Format
	Render    render.Options

	MaxHeadingLevel int
	Style           variables.Style
	Now             func() time.Time

	// Organization values sit above manifest inline variables and below VariablesFile.
	Organization  variables.Dictionary
	VariablesFile string

	Store RunSaver
	Index Indexer
}

const (
	StageLoadManifest = "load_manifest"
	StageVariables    = "resolve_variables"
	StageAssemble     = "assemble"
	StageRender       = "render"
	StagePersist      = "persist"
	StageIndex        = "index"
)

// Standard returns the full generation chain.
func Standard(s Settings) []Stage {
	return []Stage{
		{Name: StageLoadManifest, Run: LoadManifest},
		{Name: StageVariables, Run: s.resolveVariables},
		{Name: StageAssemble, Run: s.assemble},
		{Name: StageRender, Run: s.render},
		{Name: StagePersist, Run: s.persist},
		{Name: StageIndex, Run: s.index},
	}
}

// Check returns the stages that validate a manual without writing anything.
func Check(s Settings) []Stage {
	return []Stage{
		{Name: StageLoadManifest, Run: LoadManifest},
		{Name: StageVariables, Run: s.resolveVariables},
		{Name: StageAssemble, Run: s.assemble},
	}
}

func LoadManifest(_ context.Context, job *Job) (Counters, error) {
	m, err := manual.LoadManifest(job.Path)
	if err != nil {
		return nil, err
	}
	job.Manifest = m
	st := m.Statistics()
	return Counters{"sections": float64(st.TotalSections), "words": float64(st.TotalWords)}, nil
}

func (s Settings) resolveVariables(_ context.Context, job *Job) (Counters, error) {
	if job.Manifest == nil {
		return nil, fmt.Errorf("manifest not loaded")
	}
	inline, err := variables.FromRaw(job.Manifest.Variables)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest variables: %w", err)
	}
	layers := []variables.Dictionary{s.Organization}
	if s.VariablesFile != "" {
		file, err := variables.LoadDictionary(s.VariablesFile)
		if err != nil {
			return nil, err
		}
		layers = append(layers, file)
	}
	job.Vars = variables.Merge(inline, layers...)
	return Counters{"inline": float64(inline.Len()), "variables": float64(job.Vars.Len())}, nil
}

func (s Settings) assemble(_ context.Context, job *Job) (Counters, error) {
	if job.Manifest == nil {
		return nil, fmt.Errorf("manifest not loaded")
	}
	a := assembler.New(assembler.Options{
		Manual:          job.Manifest.Name,
		Subject:         job.Manifest.Description,
		MaxHeadingLevel: s.MaxHeadingLevel,
		Style:           s.Style,
		Now:             s.Now,
	})
	doc, misses, err := a.Assemble(job.Manifest.Sections, job.Vars)
	if err != nil {
		return nil, err
	}
	job.Doc = doc
	job.Misses = misses

	for _, m := range misses {
		where := m.Field
		if m.Section != "" {
			where = "section " + m.Section + " " + m.Field
		}
		job.Report.AddSignal("unresolved_placeholder", StageAssemble, SeverityWarning, fmt.Sprintf("%s: %s", where, m.Token), 0)
	}
	addSectionMetrics(job.Report, doc)
	return Counters{"blocks": float64(len(doc.Blocks)), "misses": float64(len(misses))}, nil
}

func addSectionMetrics(r *Report, doc *assembler.Document) {
	for _, e := range doc.TOC() {
		m := SectionMetric{Number: e.Number, Title: e.Title}
		depth, _, err := outline.ParseDepth(e.Number)
		if err == nil {
			m.Depth = depth
		}
		seen := map[string]bool{}
		for _, b := range doc.SectionBlocks(e.Number) {
			m.Blocks++
			m.Words += len(strings.Fields(b.Text))
			for _, name := range b.Unresolved {
				if !seen[name] {
					seen[name] = true
					m.Unresolved = append(m.Unresolved, name)
				}
			}
		}
		r.AddSectionMetric(m)
	}
}

func (s Settings) render(_ context.Context, job *Job) (Counters, error) {
	if job.Doc == nil {
		return nil, fmt.Errorf("document not assembled")
	}
	paths, err := render.WriteFiles(s.OutputDir, job.Name(), job.Doc, s.Formats, s.Render)
	job.Outputs = append(job.Outputs, paths...)
	if err != nil {
		return nil, err
	}
	return Counters{"files": float64(len(paths))}, nil
}

func (s Settings) persist(ctx context.Context, job *Job) (Counters, error) {
	if s.Store == nil {
		return Counters{"skipped": 1}, nil
	}
	id, err := s.Store.SaveRun(ctx, job.Doc, job.Misses)
	if err != nil {
		return nil, fmt.Errorf("failed to save run: %w", err)
	}
	job.RunID = id
	return Counters{"misses": float64(len(job.Misses))}, nil
}

func (s Settings) index(_ context.Context, job *Job) (Counters, error) {
	if s.Index == nil {
		return Counters{"skipped": 1}, nil
	}
	n, err := s.Index.IndexDocument(job.Doc)
	if err != nil {
		return nil, fmt.Errorf("failed to index document: %w", err)
	}
	return Counters{"records": float64(n)}, nil
}
