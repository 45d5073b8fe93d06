package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"creditrisk/internal/application"
	"creditrisk/internal/decision"
	"creditrisk/internal/explain"
	"creditrisk/internal/fairness"
	"creditrisk/internal/scoring"
	liststr "creditrisk/pkg/platform/strings"
)

type runOptions struct {
	data       string
	attributes []string
	metrics    []string
	format     string
	output     string
	modelPath  string
	failOn     string
	quiet      bool
}

func (a *app) runCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Score a dataset and report fairness metrics",
		Example: `  creditrisk-audit run --data holdout.csv --attributes sex,age_group
  creditrisk-audit run --data holdout.csv --attributes sex --format yaml --output report.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.data, "data", "", "CSV dataset with application columns, a label column and protected attributes")
	f.StringSliceVar(&opts.attributes, "attributes", nil, "protected attribute columns")
	f.StringSliceVar(&opts.metrics, "metrics", nil, "metrics to compute (default: all)")
	f.StringVar(&opts.format, "format", "text", "report format (text, json, yaml)")
	f.StringVarP(&opts.output, "output", "o", "-", "report destination; - for stdout")
	f.StringVar(&opts.modelPath, "model", "", "model artifact (default: embedded model)")
	f.StringVar(&opts.failOn, "fail-on", "fail", "exit non-zero at this verdict or worse (fail, review, never)")
	f.BoolVar(&opts.quiet, "quiet", false, "hide the progress bar")
	f.String("label", "", "label column, 1 when the applicant defaulted")
	f.Float64("pass-threshold", 0, "metric values below this pass")
	f.Float64("review-threshold", 0, "metric values below this need review")
	f.Float64("decline-threshold", 0, "decline probability threshold")
	f.Int("workers", 0, "concurrent scoring workers")
	_ = cmd.MarkFlagRequired("data")
	_ = cmd.MarkFlagRequired("attributes")

	_ = a.v.BindPFlag("audit.label_column", f.Lookup("label"))
	_ = a.v.BindPFlag("audit.pass_threshold", f.Lookup("pass-threshold"))
	_ = a.v.BindPFlag("audit.review_threshold", f.Lookup("review-threshold"))
	_ = a.v.BindPFlag("policy.decline_threshold", f.Lookup("decline-threshold"))
	_ = a.v.BindPFlag("audit.workers", f.Lookup("workers"))
	return cmd
}

func (a *app) run(cmd *cobra.Command, opts *runOptions) error {
	ctx := cmd.Context()
	opts.attributes = liststr.DedupeAndTrim(opts.attributes)
	if len(opts.attributes) == 0 {
		return fmt.Errorf("--attributes names no columns")
	}

	format, err := fairness.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	metrics, err := parseMetrics(opts.metrics)
	if err != nil {
		return err
	}
	failOn, err := parseFailOn(opts.failOn)
	if err != nil {
		return err
	}
	thresholds := fairness.Thresholds{
		Pass:   a.v.GetFloat64("audit.pass_threshold"),
		Review: a.v.GetFloat64("audit.review_threshold"),
	}

	svc, modelVersion, err := a.decisionService(opts.modelPath)
	if err != nil {
		return err
	}

	ds, err := fairness.LoadFile(opts.data, a.v.GetString("audit.label_column"), opts.attributes)
	if err != nil {
		return err
	}
	for _, p := range ds.Problems {
		a.logger.Warn("skipping dataset row", "line", p.Line, "error", p.Err)
	}

	auditorOpts := []fairness.Option{
		fairness.WithThresholds(thresholds),
		fairness.WithLogger(a.logger),
		fairness.WithWorkers(a.v.GetInt("audit.workers")),
		fairness.WithModelVersion(modelVersion),
	}
	if !opts.quiet {
		bar := newProgressBar(cmd.ErrOrStderr(), len(ds.Records))
		auditorOpts = append(auditorOpts, fairness.WithProgress(func(_, _ int) {
			_ = bar.Add(1)
		}))
		defer func() { _ = bar.Finish() }()
	}
	auditor, err := fairness.New(auditorOpts...)
	if err != nil {
		return err
	}

	predictor := fairness.PredictorFunc(func(ctx context.Context, app *application.Application) (bool, error) {
		d, err := svc.Decide(ctx, app, application.ModeFull)
		if err != nil {
			return false, err
		}
		return d.Declined(), nil
	})

	report, err := auditor.Audit(ctx, predictor, ds, opts.attributes, metrics)
	if err != nil {
		return err
	}

	if err := writeReport(cmd.OutOrStdout(), opts.output, report, format); err != nil {
		return err
	}

	if failOn != "" && report.Verdict.AtLeast(failOn) {
		return &verdictError{verdict: report.Verdict}
	}
	return nil
}

func (a *app) decisionService(modelPath string) (*decision.Service, string, error) {
	var (
		model scoring.Model
		err   error
	)
	if modelPath != "" {
		model, err = scoring.LoadFile(modelPath)
	} else {
		model, err = scoring.Default()
	}
	if err != nil {
		return nil, "", fmt.Errorf("load model: %w", err)
	}

	rt, err := decision.NewRuntime(decision.RuntimeConfig{
		Model:            model,
		Explain:          explain.DefaultConfig(),
		DeclineThreshold: a.v.GetFloat64("policy.decline_threshold"),
	})
	if err != nil {
		return nil, "", err
	}
	svc, err := decision.New(rt, decision.WithLogger(a.logger))
	if err != nil {
		return nil, "", err
	}
	info := model.Info()
	return svc, info.Name + " " + info.Version, nil
}

func newProgressBar(w io.Writer, total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Scoring applications"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionOnCompletion(func() {
			_, _ = fmt.Fprintln(w)
		}),
	)
}

func writeReport(stdout io.Writer, dest string, r *fairness.Report, f fairness.Format) error {
	if dest == "" || dest == "-" {
		return fairness.Render(stdout, r, f)
	}
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := fairness.Render(out, r, f); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func parseMetrics(names []string) ([]fairness.Metric, error) {
	var out []fairness.Metric
	for _, n := range liststr.DedupeAndTrimLower(names) {
		m, err := fairness.ParseMetric(n)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// parseFailOn returns "" for never.
func parseFailOn(s string) (fairness.Verdict, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fail":
		return fairness.VerdictFail, nil
	case "review":
		return fairness.VerdictReview, nil
	case "never", "":
		return "", nil
	default:
		return "", fmt.Errorf("unknown --fail-on value %q", s)
	}
}
