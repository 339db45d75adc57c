package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"manualgen/internal/render"
	"manualgen/internal/search"
	"manualgen/internal/storage"

	"github.com/spf13/cobra"
)

var tocCmd = &cobra.Command{
	Use:   "toc <manifest>",
	Short: "Print the table of contents of a manual",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		job, err := checkManifest(context.Background(), args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, e := range job.Doc.TOC() {
			fmt.Fprintf(out, "%s%s\n", strings.Repeat("  ", e.IndentLevel), e.Label())
		}
		return nil
	},
}

var previewCmd = &cobra.Command{
	Use:   "preview <manifest>",
	Short: "Render a manual in the terminal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		job, err := checkManifest(context.Background(), args[0])
		if err != nil {
			return err
		}
		text, err := render.Preview(job.Doc, cfg.Render.WordWrap, cfg.Render.PreviewStyle)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), text)
		return nil
	},
}

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [manual]",
	Short: "List recorded generation runs",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := storage.NewSQLiteStore(cfg.Project.DB)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer store.Close()

		name := ""
		if len(args) > 0 {
			name = args[0]
		}
		runs, err := store.ListRuns(context.Background(), name, historyLimit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(runs) == 0 {
			fmt.Fprintln(out, "No runs recorded.")
			return nil
		}
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tMANUAL\tGENERATED\tSECTIONS\tMISSES\tFINGERPRINT")
		for _, r := range runs {
			fp := r.Fingerprint
			if len(fp) > 19 {
				fp = fp[:19]
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n", r.ID, r.Manual, r.GeneratedAt.Format(render.DateLayout), r.SectionCount, r.MissCount, fp)
		}
		return tw.Flush()
	},
}

var (
	searchManual string
	searchLimit  int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search generated manuals",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := search.Open(cfg.Project.IndexDir)
		if err != nil {
			return err
		}
		defer idx.Close()

		hits, err := idx.Search(strings.Join(args, " "), searchManual, searchLimit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(hits) == 0 {
			fmt.Fprintln(out, "No matches.")
			return nil
		}
		for _, h := range hits {
			fmt.Fprintf(out, "%.3f  %s  %s %s\n", h.Score, h.Manual, h.Number, h.Title)
		}
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the configuration",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration and organization profile",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if err := cfg.Check(); err != nil {
			return err
		}
		result := cfg.Organization.Validate()
		for _, w := range result.Warnings {
			fmt.Fprintf(out, "⚠️  %s\n", w)
		}
		for _, e := range result.Errors {
			fmt.Fprintf(out, "❌ %s\n", e)
		}
		if !result.Valid() {
			return fmt.Errorf("configuration has %d error(s)", len(result.Errors))
		}
		fmt.Fprintf(out, "✅ Configuration is valid (%d organization variables)\n", len(cfg.Organization.Variables()))
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of runs to list")
	searchCmd.Flags().StringVarP(&searchManual, "manual", "m", "", "Only search this manual")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "Maximum number of hits")
	configCmd.AddCommand(configValidateCmd)
}
