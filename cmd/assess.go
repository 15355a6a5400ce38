package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/diabetes-risk/internal/advice"
	"github.com/sells-group/diabetes-risk/internal/bmi"
	"github.com/sells-group/diabetes-risk/internal/export"
	"github.com/sells-group/diabetes-risk/internal/model"
	"github.com/sells-group/diabetes-risk/internal/workflow"
)

var (
	assessSession  string
	assessJSON     bool
	assessNoRecord bool

	batchCSV         string
	batchConcurrency int
	batchSession     string
)

var assessCmd = &cobra.Command{
	Use:   "assess",
	Short: "Assess type 2 diabetes risk for one profile",
	Long: `Validates the profile, scores it, records it to history and prints the
risk tier with personalised recommendations.

Examples:
  diabetes-risk assess --age 50 --weight 95 --height 170
  diabetes-risk assess --age 42 --weight 70 --height 168 --exercise --smoking former --json`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		raw, err := inputFromFlags(cmd.Flags())
		if err != nil {
			return err
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		sess := env.NewSession(assessSession, nil)
		sess.Update(raw)

		res, err := sess.Submit(ctx)
		if err != nil {
			return eris.Wrap(err, "assess")
		}

		recorded := false
		if !assessNoRecord {
			if recorded, err = sess.Record(ctx); err != nil {
				return eris.Wrap(err, "assess: record")
			}
		}

		plan, err := sess.Recommendations()
		if err != nil {
			return eris.Wrap(err, "assess: recommendations")
		}
		narrative := advice.Narrate(ctx, env.Narrator, plan)

		if assessJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(assessOutput{
				Result:    res,
				Recorded:  recorded,
				Plan:      plan,
				Narrative: narrative,
			})
		}

		formatResult(os.Stdout, res, recorded, narrative)
		return nil
	},
}

type assessOutput struct {
	Result    model.AssessmentResult `json:"result"`
	Recorded  bool                   `json:"recorded"`
	Plan      advice.Plan            `json:"plan"`
	Narrative string                 `json:"narrative"`
}

// addProfileFlags registers one flag per health profile field.
func addProfileFlags(f *pflag.FlagSet) {
	f.Int("age", 0, "age in years (required)")
	f.Float64("weight", 0, "weight in kg (required)")
	f.Float64("height", 0, "height in cm (required)")
	f.Bool("family-history", false, "parent or sibling with diabetes")
	f.Bool("exercise", false, "exercises regularly")
	f.Bool("high-bp", false, "diagnosed high blood pressure")
	f.Bool("high-glucose", false, "previously measured high blood glucose")
	f.String("smoking", "never", "smoking status (never, former, current)")
	f.String("stress", "low", "stress level (low, moderate, high)")
	f.Float64("sleep", 7, "average hours of sleep per night")
}

// inputFromFlags builds a RawInput from the flags the user actually set, so
// unanswered optional fields fall back to the workflow defaults.
func inputFromFlags(fs *pflag.FlagSet) (model.RawInput, error) {
	var raw model.RawInput

	if fs.Changed("age") {
		v, _ := fs.GetInt("age")
		raw.Age = &v
	}
	if fs.Changed("weight") {
		v, _ := fs.GetFloat64("weight")
		raw.WeightKg = &v
	}
	if fs.Changed("height") {
		v, _ := fs.GetFloat64("height")
		raw.HeightCm = &v
	}
	if fs.Changed("sleep") {
		v, _ := fs.GetFloat64("sleep")
		raw.SleepHours = &v
	}

	bools := []struct {
		name string
		dst  **bool
	}{
		{"family-history", &raw.FamilyHistory},
		{"exercise", &raw.RegularExercise},
		{"high-bp", &raw.HighBloodPressure},
		{"high-glucose", &raw.PriorHighGlucose},
	}
	for _, b := range bools {
		if fs.Changed(b.name) {
			v, _ := fs.GetBool(b.name)
			*b.dst = &v
		}
	}

	if fs.Changed("smoking") {
		s, _ := fs.GetString("smoking")
		v, err := model.ParseSmokingStatus(s)
		if err != nil {
			return raw, err
		}
		raw.Smoking = &v
	}
	if fs.Changed("stress") {
		s, _ := fs.GetString("stress")
		v, err := model.ParseStressLevel(s)
		if err != nil {
			return raw, err
		}
		raw.Stress = &v
	}

	return raw, nil
}

// formatResult writes a human-readable assessment to w.
func formatResult(out io.Writer, res model.AssessmentResult, recorded bool, narrative string) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Risk tier:\t%s\n", res.Tier)
	_, _ = fmt.Fprintf(w, "Probability:\t%.1f%%\n", res.Probability*100)
	_, _ = fmt.Fprintf(w, "BMI:\t%.1f (%s)\n", res.Profile.BMI, bmi.Classify(res.Profile.BMI))
	if recorded {
		_, _ = fmt.Fprintf(w, "Recorded:\t%s\n", res.CreatedAt.Format("2006-01-02 15:04"))
	}
	_ = w.Flush()

	_, _ = fmt.Fprintf(out, "\n%s\n\n%s", advice.Summary(res.Tier), narrative)
}

// -- assess batch --

// batchRow is the outcome of one CSV row.
type batchRow struct {
	Row    int
	Result *model.AssessmentResult
	Err    error
}

var assessBatchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Assess every profile in a CSV file",
	Long: `Reads one profile per CSV row (columns age, weight_kg, height_cm and the
optional family_history, regular_exercise, high_blood_pressure,
prior_high_glucose, smoking_status, stress_level, sleep_hours), runs a full
assessment for each, and records the results to one session history.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		f, err := os.Open(batchCSV)
		if err != nil {
			return eris.Wrap(err, "batch: open csv")
		}
		defer f.Close() //nolint:errcheck

		inputs, err := export.ReadInputsCSV(f)
		if err != nil {
			return eris.Wrap(err, "batch: parse csv")
		}
		zap.L().Info("parsed csv", zap.Int("profiles", len(inputs)))

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		rows := runBatch(ctx, env, batchSession, inputs, batchConcurrency)
		formatBatch(os.Stdout, rows)

		for _, r := range rows {
			if r.Err != nil {
				return eris.New("batch: one or more rows failed")
			}
		}
		return nil
	},
}

// runBatch scores inputs concurrently, then records the successful runs one
// at a time in created_at order so the session history stays ordered.
func runBatch(ctx context.Context, env *assessEnv, sessionID string, inputs []model.RawInput, concurrency int) []batchRow {
	store := env.Backend.Session(sessionID)

	g, gCtx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}

	rows := make([]batchRow, len(inputs))
	scored := make([]*workflow.Session, len(inputs))

	for i, raw := range inputs {
		g.Go(func() error {
			sess := env.NewSession(sessionID, store)
			sess.Update(raw)

			rows[i].Row = i + 1
			res, err := sess.Submit(gCtx)
			if err != nil {
				rows[i].Err = err
				zap.L().Warn("batch: row failed", zap.Int("row", i+1), zap.Error(err))
				return nil // don't abort batch on individual failure
			}
			rows[i].Result = &res
			scored[i] = sess
			return nil
		})
	}
	_ = g.Wait()

	order := make([]int, 0, len(inputs))
	for i := range rows {
		if scored[i] != nil {
			order = append(order, i)
		}
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return rows[a].Result.CreatedAt.Compare(rows[b].Result.CreatedAt)
	})

	for _, i := range order {
		if _, err := scored[i].Record(ctx); err != nil {
			rows[i].Result = nil
			rows[i].Err = err
			zap.L().Warn("batch: record failed", zap.Int("row", i+1), zap.Error(err))
		}
	}

	failed := 0
	for _, r := range rows {
		if r.Err != nil {
			failed++
		}
	}
	zap.L().Info("batch: complete",
		zap.Int("total", len(inputs)),
		zap.Int("succeeded", len(inputs)-failed),
		zap.Int("failed", failed),
	)
	return rows
}

// formatBatch writes one line per batch row to w.
func formatBatch(out io.Writer, rows []batchRow) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ROW\tTIER\tPROBABILITY\tBMI\tSTATUS")
	_, _ = fmt.Fprintln(w, "---\t----\t-----------\t---\t------")
	for _, r := range rows {
		if r.Err != nil {
			_, _ = fmt.Fprintf(w, "%d\t-\t-\t-\t%s\n", r.Row, r.Err)
			continue
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%.3f\t%.1f\trecorded\n",
			r.Row, r.Result.Tier, r.Result.Probability, r.Result.Profile.BMI)
	}
	_ = w.Flush()
}

func init() {
	f := assessCmd.Flags()
	addProfileFlags(f)
	f.StringVar(&assessSession, "session", defaultSession, "history session ID")
	f.BoolVar(&assessJSON, "json", false, "print the result as JSON")
	f.BoolVar(&assessNoRecord, "no-record", false, "score without recording to history")

	assessBatchCmd.Flags().StringVar(&batchCSV, "csv", "", "path to CSV file (required)")
	assessBatchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 4, "number of profiles assessed in parallel")
	assessBatchCmd.Flags().StringVar(&batchSession, "session", defaultSession, "history session ID")
	_ = assessBatchCmd.MarkFlagRequired("csv")

	assessCmd.AddCommand(assessBatchCmd)
	rootCmd.AddCommand(assessCmd)
}
