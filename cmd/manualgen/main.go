package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"manualgen/internal/config"
	"manualgen/internal/pipeline"
	"manualgen/internal/render"
	"manualgen/internal/search"
	"manualgen/internal/storage"
	"manualgen/internal/variables"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	rootCmd = &cobra.Command{
		Use:               "manualgen",
		Short:             "Assemble numbered policy manuals from section content",
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}
	configPath string
	dbPath     string
	verbose    bool

	cfg    *config.Config
	logger = zap.NewNop()
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to the configuration file")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Path to the run history database (SQLite), overrides project.db")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	generateCmd.Flags().IntVarP(&jobLimit, "jobs", "j", 4, "Number of manuals generated concurrently")
	generateCmd.Flags().BoolVar(&noStore, "no-store", false, "Do not record the run in the history database")
	generateCmd.Flags().BoolVar(&noIndex, "no-index", false, "Do not update the search index")
	generateCmd.Flags().StringSliceVarP(&formatFlags, "format", "f", nil, "Output formats (markdown, rtf, json), overrides render.formats")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(tocCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(configCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.LoadOrDefault(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if dbPath != "" {
		cfg.Project.DB = dbPath
	}

	logger, err = newLogger(cfg, verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

func newLogger(cfg *config.Config, verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Log.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zap.ParseAtomicLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	zc.Level = level
	if verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return zc.Build()
}

// settings maps the loaded config onto pipeline settings. Store and Index are
// left for the caller to attach.
func settings() (pipeline.Settings, error) {
	if err := cfg.Check(); err != nil {
		return pipeline.Settings{}, err
	}
	org, err := variables.NewDictionary(cfg.Organization.Variables())
	if err != nil {
		return pipeline.Settings{}, fmt.Errorf("failed to read organization variables: %w", err)
	}
	formats := make([]render.Format, 0, len(cfg.Render.Formats))
	for _, f := range cfg.Render.Formats {
		parsed, err := render.ParseFormat(f)
		if err != nil {
			return pipeline.Settings{}, err
		}
		formats = append(formats, parsed)
	}
	return pipeline.Settings{
		OutputDir:       cfg.Project.OutputDir,
		Formats:         formats,
		Render:          render.Options{HighlightUnresolved: cfg.Render.HighlightUnresolved},
		MaxHeadingLevel: cfg.Engine.MaxHeadingLevel,
		Style:           variables.Style(cfg.Engine.PlaceholderStyle),
		Organization:    org,
		VariablesFile:   cfg.Engine.VariablesFile,
	}, nil
}

// checkManifest runs the non-writing stages on one manifest.
func checkManifest(ctx context.Context, path string) (*pipeline.Job, error) {
	s, err := settings()
	if err != nil {
		return nil, err
	}
	job := pipeline.NewJob(path)
	if err := pipeline.New(logger, pipeline.Check(s)).Run(ctx, job); err != nil {
		return job, err
	}
	return job, nil
}

func printMisses(w io.Writer, misses []variables.Miss) {
	if len(misses) == 0 {
		return
	}
	fmt.Fprintf(w, "⚠️  %d unresolved placeholder(s):\n", len(misses))
	for _, m := range misses {
		where := m.Field
		if m.Section != "" {
			where = "section " + m.Section + " " + m.Field
		}
		fmt.Fprintf(w, "   - %s: %s\n", where, m.Token)
	}
}

var (
	jobLimit    int
	noStore     bool
	noIndex     bool
	formatFlags []string
)

var generateCmd = &cobra.Command{
	Use:   "generate [manifest...]",
	Short: "Generate manuals from content manifests (default: every content_*.json here)",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		paths := args
		if len(paths) == 0 {
			matches, err := filepath.Glob(cfg.Project.ContentGlob)
			if err != nil {
				return fmt.Errorf("bad content glob %q: %w", cfg.Project.ContentGlob, err)
			}
			sort.Strings(matches)
			paths = matches
		}
		if len(paths) == 0 {
			return fmt.Errorf("no manifests found matching %s", cfg.Project.ContentGlob)
		}

		if len(formatFlags) > 0 {
			cfg.Render.Formats = formatFlags
		}
		s, err := settings()
		if err != nil {
			return err
		}

		if !noStore {
			store, err := storage.NewSQLiteStore(cfg.Project.DB)
			if err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			defer store.Close()
			s.Store = store
		}
		if !noIndex {
			idx, err := search.Open(cfg.Project.IndexDir)
			if err != nil {
				return err
			}
			defer idx.Close()
			s.Index = idx
		}

		fmt.Fprintf(out, "🚀 Generating %d manual(s)...\n", len(paths))
		jobs := make([]*pipeline.Job, 0, len(paths))
		for _, p := range paths {
			jobs = append(jobs, pipeline.NewJob(p))
		}
		p := pipeline.New(logger, pipeline.Standard(s), pipeline.WithReportDir(cfg.Project.OutputDir))
		results, batchErr := p.RunBatch(ctx, jobs, jobLimit)

		for _, r := range results {
			if r.Err != nil {
				fmt.Fprintf(out, "❌ %s: %v\n", r.Job.Path, r.Err)
				continue
			}
			fmt.Fprintf(out, "✅ %s: %d section(s) -> %v\n", r.Job.Name(), r.Job.Doc.Metadata.SectionCount, r.Job.Outputs)
			printMisses(out, r.Job.Misses)
		}
		if batchErr != nil {
			return fmt.Errorf("generation failed for one or more manuals")
		}
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check <manifest>",
	Short: "Validate numbering and report unresolved placeholders without writing output",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		job, err := checkManifest(context.Background(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "✅ %s: %d section(s), outline is continuous\n", job.Name(), job.Doc.Metadata.SectionCount)
		printMisses(out, job.Misses)
		return nil
	},
}
