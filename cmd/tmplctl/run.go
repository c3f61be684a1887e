package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/Bibi40k/vmware-template-lifecycle/configs"
	"github.com/Bibi40k/vmware-template-lifecycle/pkg/config"
	"github.com/Bibi40k/vmware-template-lifecycle/pkg/lifecycle"
	"github.com/Bibi40k/vmware-template-lifecycle/pkg/metrics"
	"github.com/Bibi40k/vmware-template-lifecycle/pkg/notify"
	"github.com/Bibi40k/vmware-template-lifecycle/pkg/promote"
)

// runFlags are shared by promote and sync.
type runFlags struct {
	groupBy          string
	keep             int
	requireSuccessor bool
	separator        string
	include          []string
	exclude          []string
	concurrency      int

	dryRun          bool
	yes             bool
	reportPath      string
	metricsTextfile string
	notify          bool
}

func (f *runFlags) register(cmd *cobra.Command, defaultGroupBy lifecycle.GroupBy) {
	d := configs.Defaults
	fs := cmd.Flags()
	fs.StringVar(&f.groupBy, "group-by", string(defaultGroupBy), "Group templates by: family, os_version")
	fs.IntVar(&f.keep, "keep", d.Lifecycle.KeepCount, "Non-retired templates kept per group")
	fs.BoolVar(&f.requireSuccessor, "require-successor", d.Lifecycle.RequireSuccessorForRetirement,
		"Retire and clean up only in groups that hold a draft")
	fs.StringVar(&f.separator, "separator", d.Lifecycle.NameSeparator, "Separator between family and version in template names")
	fs.StringSliceVar(&f.include, "include", nil, "Only act on template names matching these globs")
	fs.StringSliceVar(&f.exclude, "exclude", nil, "Never act on template names matching these globs")
	fs.IntVar(&f.concurrency, "concurrency", d.Catalog.Concurrency, "Catalog calls in flight per phase")

	fs.BoolVar(&f.dryRun, "dry-run", false, "Print the plan without applying it")
	fs.BoolVarP(&f.yes, "yes", "y", false, "Apply without confirmation (required when not on a terminal)")
	fs.StringVar(&f.reportPath, "report", "", "Write the run report to this YAML/JSON file ({run} and {date} are expanded)")
	fs.StringVar(&f.metricsTextfile, "metrics-textfile", d.Output.MetricsTextfile,
		"Write Prometheus metrics to this node-exporter textfile")
	fs.BoolVar(&f.notify, "notify", true, "Send the run result to notify.webhook_url from the vCenter config")
}

// policy builds the retention policy from flags.
func (f *runFlags) policy() (lifecycle.RetentionPolicy, error) {
	by, err := lifecycle.ParseGroupBy(f.groupBy)
	if err != nil {
		return lifecycle.RetentionPolicy{}, &userError{msg: err.Error(), hint: "use --group-by family or --group-by os_version"}
	}
	if f.keep < 1 {
		return lifecycle.RetentionPolicy{}, &userError{msg: fmt.Sprintf("--keep must be at least 1, got %d", f.keep)}
	}
	return lifecycle.RetentionPolicy{
		GroupBy:                       by,
		KeepCount:                     f.keep,
		RequireSuccessorForRetirement: f.requireSuccessor,
		Separator:                     f.separator,
	}, nil
}

func (f *runFlags) resolvedReportPath(runID string, at time.Time) string {
	path := f.reportPath
	if path == "" && configs.Defaults.Output.Enable {
		path = configs.Defaults.Output.ReportPath
	}
	if path == "" {
		return ""
	}
	return config.ReportPath(path, runID, at)
}

func newPromoteCmd() *cobra.Command {
	var flags runFlags
	var libraryName string
	cmd := &cobra.Command{
		Use:   "promote",
		Short: "Promote drafts, retire superseded templates and prune one library",
		Example: `  tmplctl promote --library templates-dev --dry-run
  tmplctl promote --library templates-dev --keep 3 --yes`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := flags.policy()
			if err != nil {
				return err
			}
			return runLifecycle(cmd.Context(), &flags, promote.Request{Source: libraryName, Policy: policy})
		},
	}
	cmd.Flags().StringVarP(&libraryName, "library", "l", "", "Content library name")
	_ = cmd.MarkFlagRequired("library")
	flags.register(cmd, lifecycle.GroupByFamily)
	return cmd
}

func newSyncCmd() *cobra.Command {
	var flags runFlags
	var source, destination string
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Copy published templates from a source library into a destination and prune it",
		Long: `Copies every published template of the source library whose name is missing
in the destination. Copies land as drafts; the destination is then planned like
"promote" would. The source library is never modified.`,
		Example:       `  tmplctl sync --source templates-dev --destination templates-prod --yes`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := flags.policy()
			if err != nil {
				return err
			}
			return runLifecycle(cmd.Context(), &flags, promote.Request{
				Source:      source,
				Destination: destination,
				Policy:      policy,
			})
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "Source content library name")
	cmd.Flags().StringVar(&destination, "destination", "", "Destination content library name")
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("destination")
	flags.register(cmd, lifecycle.GroupByOSVersion)
	return cmd
}

// runLifecycle previews, confirms and applies one run, then reports it.
func runLifecycle(ctx context.Context, f *runFlags, req promote.Request) error {
	logger := getLogger()
	started := time.Now()

	s, err := openSession(ctx, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	orch := promote.New(s.library,
		promote.WithLogger(logger),
		promote.WithConcurrency(f.concurrency),
		promote.WithFilter(promote.Filter{Include: f.include, Exclude: f.exclude}),
		promote.WithTimeouts(configs.Defaults.Timeouts.Snapshot(), configs.Defaults.Timeouts.Action()),
	)

	var recorder *metrics.Recorder
	if f.metricsTextfile != "" && !f.dryRun {
		recorder = metrics.NewRecorder()
	}
	notifier := buildNotifier(s, f, logger)

	preview, err := orch.Preview(ctx, req)
	if err != nil {
		if !f.dryRun && promote.IsAbort(err) {
			if recorder != nil {
				recorder.ObserveAbort(req.Source, req.Destination, time.Now(), time.Since(started))
				writeMetrics(recorder, f.metricsTextfile, logger)
			}
			sendNotification(ctx, notifier, notify.AbortEvent(req, err, time.Now()), logger)
		}
		return explainCatalogError(err)
	}

	printPlan(os.Stdout, preview)
	if f.dryRun {
		return nil
	}

	if len(preview.Plan) > 0 {
		ok, err := confirmApply(f, preview)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("  Cancelled.")
			return nil
		}
	}

	// An empty plan is still a successful run for the last-run gauges.
	report, err := orch.Apply(ctx, preview)
	if err != nil {
		return err
	}
	finishRun(ctx, f, report, recorder, notifier, logger)

	if len(report.Planned) > 0 {
		printReport(os.Stdout, report)
	}
	if !report.OK() {
		return &partialFailure{report: report}
	}
	return nil
}

// finishRun persists the report, records metrics and notifies. Runs with
// nothing planned update metrics and the report but send no notification.
func finishRun(ctx context.Context, f *runFlags, report *promote.RunReport, recorder *metrics.Recorder, notifier notify.Notifier, logger *slog.Logger) {
	if path := f.resolvedReportPath(report.RunID, report.StartedAt); path != "" {
		if err := config.SaveRunReport(path, report); err != nil {
			logger.Error("Failed to write run report", "path", path, "error", err)
		} else {
			logger.Info("Run report written", "path", path)
		}
	}
	if recorder != nil {
		recorder.Observe(report)
		writeMetrics(recorder, f.metricsTextfile, logger)
	}
	if len(report.Planned) > 0 {
		sendNotification(ctx, notifier, notify.EventFromReport(report), logger)
	}
}

// confirmApply asks before applying. Non-interactive runs must pass --yes.
func confirmApply(f *runFlags, p *promote.Preview) (bool, error) {
	if f.yes {
		return true, nil
	}
	if !isTTY(os.Stdin) {
		return false, &userError{
			msg:  "refusing to apply without confirmation on a non-interactive terminal",
			hint: "pass --yes for scheduled runs, or --dry-run to only print the plan",
		}
	}

	deletes := 0
	for _, act := range p.Plan {
		if act.Kind == lifecycle.Delete {
			deletes++
		}
	}
	msg := fmt.Sprintf("Apply %d actions?", len(p.Plan))
	if deletes > 0 {
		msg = fmt.Sprintf("Apply %d actions (%s%d deletions%s)?", len(p.Plan), clrRed, deletes, clrReset)
	}

	var ok bool
	if err := survey.AskOne(&survey.Confirm{Message: msg, Default: false}, &ok); err != nil {
		return false, fmt.Errorf("confirmation prompt: %w", err)
	}
	return ok, nil
}

func buildNotifier(s *session, f *runFlags, logger *slog.Logger) notify.Notifier {
	if !f.notify || f.dryRun {
		return notify.NopNotifier{}
	}
	notifiers := []notify.Notifier{notify.NewLogNotifier(logger)}
	if url := strings.TrimSpace(s.file.Notify.WebhookURL); url != "" {
		notifiers = append(notifiers, notify.NewWebhookNotifier(url, s.file.Notify.Headers))
	}
	m := notify.NewMultiNotifier(notifiers...)
	m.Logger = logger
	return m
}

func sendNotification(ctx context.Context, n notify.Notifier, ev notify.Event, logger *slog.Logger) {
	// The run context may already be cancelled (Ctrl+C); still deliver the result.
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), configs.Defaults.Timeouts.Notify())
	defer cancel()
	if err := n.Notify(nctx, ev); err != nil {
		logger.Warn("Notification failed", "error", err)
	}
}

func writeMetrics(r *metrics.Recorder, path string, logger *slog.Logger) {
	if err := r.WriteTextfile(path); err != nil {
		logger.Error("Failed to write metrics", "path", path, "error", err)
		return
	}
	logger.Debug("Metrics written", "path", path)
}
