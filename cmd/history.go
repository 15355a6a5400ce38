package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/diabetes-risk/internal/classifier"
	"github.com/sells-group/diabetes-risk/internal/export"
	"github.com/sells-group/diabetes-risk/internal/history"
	"github.com/sells-group/diabetes-risk/internal/model"
	"github.com/sells-group/diabetes-risk/internal/trend"
	"github.com/sells-group/diabetes-risk/internal/workflow"
)

var historySession string

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect and manage assessment history",
	Long:  "Commands for listing, summarising, exporting, importing and clearing recorded assessments.",
}

// withHistory opens the configured backend and hands fn a workflow session
// bound to the --session partition.
func withHistory(cmd *cobra.Command, fn func(sess *workflow.Session, store history.Store) error) error {
	backend, err := initHistory(cmd.Context())
	if err != nil {
		return err
	}
	defer backend.Close() //nolint:errcheck

	store := backend.Session(historySession)
	return fn(workflow.New(store, nil, nil, workflow.WithSessionID(historySession)), store)
}

// -- history list --

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded assessments, oldest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withHistory(cmd, func(sess *workflow.Session, _ history.Store) error {
			recs, err := sess.History(cmd.Context())
			if err != nil {
				return eris.Wrap(err, "history list")
			}
			if len(recs) == 0 {
				fmt.Fprintln(os.Stderr, "No assessments recorded.")
				return nil
			}
			formatHistoryList(os.Stdout, recs)
			return nil
		})
	},
}

// -- history trend --

var historyTrendCmd = &cobra.Command{
	Use:   "trend",
	Short: "Summarise how risk has changed over time",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withHistory(cmd, func(sess *workflow.Session, _ history.Store) error {
			recs, err := sess.History(cmd.Context())
			if err != nil {
				return eris.Wrap(err, "history trend")
			}
			formatTrend(os.Stdout, trend.Summarize(recs), trend.Sparkline(recs))
			return nil
		})
	},
}

// -- history export --

var (
	exportFormat string
	exportOut    string
)

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export history as CSV, XLSX or JSON",
	RunE: func(cmd *cobra.Command, _ []string) error {
		format, err := export.ParseFormat(exportFormat)
		if err != nil {
			return err
		}

		return withHistory(cmd, func(sess *workflow.Session, _ history.Store) error {
			recs, err := sess.History(cmd.Context())
			if err != nil {
				return eris.Wrap(err, "history export")
			}

			var out io.Writer = os.Stdout
			if exportOut != "" {
				f, err := os.Create(exportOut)
				if err != nil {
					return eris.Wrap(err, "history export: create output")
				}
				defer f.Close() //nolint:errcheck
				out = f
			}

			if err := export.Write(out, format, recs); err != nil {
				return eris.Wrap(err, "history export")
			}
			if exportOut != "" {
				zap.L().Info("history exported",
					zap.String("path", exportOut),
					zap.String("format", string(format)),
					zap.Int("records", len(recs)),
				)
			}
			return nil
		})
	},
}

// -- history import --

var (
	importFile   string
	importFormat string
)

var historyImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Append records from a CSV, XLSX or JSON export",
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := classifier.FromConfig(cfg.Classifier)
		if err != nil {
			return eris.Wrap(err, "history import")
		}
		recs, err := readImport(importFile, importFormat, export.WithClassifier(c))
		if err != nil {
			return err
		}

		return withHistory(cmd, func(_ *workflow.Session, store history.Store) error {
			n, err := history.AppendAll(cmd.Context(), store, recs)
			if err != nil {
				return eris.Wrapf(err, "history import: appended %d of %d", n, len(recs))
			}
			zap.L().Info("history imported",
				zap.String("file", importFile),
				zap.String("session", historySession),
				zap.Int("records", n),
			)
			return nil
		})
	},
}

// readImport decodes path in format, or by file extension when format is
// empty. Records that fail validation reject the whole file.
func readImport(path, format string, opts ...export.ReadOption) ([]model.AssessmentRecord, error) {
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	}
	f, err := export.ParseFormat(format)
	if err != nil {
		return nil, err
	}

	if f == export.FormatXLSX {
		return export.ReadXLSX(path, opts...)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "history import: open")
	}
	defer file.Close() //nolint:errcheck

	if f == export.FormatJSON {
		return export.ReadJSON(file, opts...)
	}
	return export.ReadCSV(file, opts...)
}

// -- history clear --

var clearYes bool

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every recorded assessment in the session",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withHistory(cmd, func(sess *workflow.Session, _ history.Store) error {
			if err := sess.ClearHistory(cmd.Context(), clearYes); err != nil {
				if eris.Is(err, workflow.ErrClearNotConfirmed) {
					return eris.New("history clear: pass --yes to confirm")
				}
				return eris.Wrap(err, "history clear")
			}
			fmt.Fprintln(os.Stderr, "History cleared.")
			return nil
		})
	},
}

func init() {
	historyCmd.PersistentFlags().StringVar(&historySession, "session", defaultSession, "history session ID")

	historyExportCmd.Flags().StringVar(&exportFormat, "format", "csv", "export format (csv, xlsx, json)")
	historyExportCmd.Flags().StringVar(&exportOut, "out", "", "output file (default stdout)")

	historyImportCmd.Flags().StringVar(&importFile, "file", "", "file to import (required)")
	historyImportCmd.Flags().StringVar(&importFormat, "format", "", "file format (default from extension)")
	_ = historyImportCmd.MarkFlagRequired("file")

	historyClearCmd.Flags().BoolVar(&clearYes, "yes", false, "confirm deletion")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyTrendCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyImportCmd)
	historyCmd.AddCommand(historyClearCmd)
	rootCmd.AddCommand(historyCmd)
}

// formatHistoryList writes a tabular list of records to w.
func formatHistoryList(out io.Writer, recs []model.AssessmentRecord) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CREATED\tTIER\tPROBABILITY\tAGE\tWEIGHT\tHEIGHT\tBMI")
	_, _ = fmt.Fprintln(w, "-------\t----\t-----------\t---\t------\t------\t---")

	for _, r := range recs {
		bmi := "-"
		if r.BMI != nil {
			bmi = fmt.Sprintf("%.1f", *r.BMI)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%.3f\t%d\t%.1f\t%.1f\t%s\n",
			r.CreatedAt.UTC().Format("2006-01-02 15:04"),
			r.Tier,
			r.Probability,
			r.Age,
			r.WeightKg,
			r.HeightCm,
			bmi,
		)
	}
	_ = w.Flush()
}

// formatTrend writes a trend summary to w.
func formatTrend(out io.Writer, s trend.Summary, spark string) {
	if s.Count == 0 {
		_, _ = fmt.Fprintln(out, "No assessments recorded.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Assessments:\t%d\n", s.Count)
	_, _ = fmt.Fprintf(w, "Latest:\t%.3f (%s)\n", s.Latest, s.LatestTier)
	_, _ = fmt.Fprintf(w, "First:\t%.3f\n", s.First)
	_, _ = fmt.Fprintf(w, "Range:\t%.3f - %.3f\n", s.Min, s.Max)
	_, _ = fmt.Fprintf(w, "Mean:\t%.3f\n", s.Mean)
	_, _ = fmt.Fprintf(w, "Change:\t%+.3f (%s)\n", s.Delta, s.Direction)
	_, _ = fmt.Fprintf(w, "Tiers:\tLow %d, Medium %d, High %d\n",
		s.TierCounts[model.TierLow], s.TierCounts[model.TierMedium], s.TierCounts[model.TierHigh])
	if spark != "" {
		_, _ = fmt.Fprintf(w, "Trend:\t%s\n", spark)
	}
	_ = w.Flush()
}
