// Package promote drives the template lifecycle against live catalogs:
// snapshot, plan, validate, then apply the plan phase by phase.
package promote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Bibi40k/vmware-template-lifecycle/configs"
	"github.com/Bibi40k/vmware-template-lifecycle/pkg/catalog"
	"github.com/Bibi40k/vmware-template-lifecycle/pkg/lifecycle"
	"github.com/Bibi40k/vmware-template-lifecycle/pkg/notes"
)

// defaultLogger is used if no logger is provided.
var defaultLogger = slog.Default()

// Orchestrator applies lifecycle plans through a catalog.Client.
type Orchestrator struct {
	client          catalog.Client
	logger          *slog.Logger
	filter          Filter
	concurrency     int
	snapshotTimeout time.Duration
	actionTimeout   time.Duration

	// injectable for tests
	now      func() time.Time
	newRunID func() string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithFilter restricts runs to template names passing f.
func WithFilter(f Filter) Option {
	return func(o *Orchestrator) { o.filter = f }
}

// WithConcurrency bounds the number of catalog calls in flight within a phase.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithTimeouts sets the snapshot and per-action timeouts. Zero keeps the default.
func WithTimeouts(snapshot, action time.Duration) Option {
	return func(o *Orchestrator) {
		if snapshot > 0 {
			o.snapshotTimeout = snapshot
		}
		if action > 0 {
			o.actionTimeout = action
		}
	}
}

// New returns an Orchestrator using client for every catalog call.
func New(client catalog.Client, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		client:          client,
		logger:          defaultLogger,
		concurrency:     configs.Defaults.Catalog.Concurrency,
		snapshotTimeout: configs.Defaults.Timeouts.Snapshot(),
		actionTimeout:   configs.Defaults.Timeouts.Action(),
		now:             time.Now,
		newRunID:        func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.concurrency < 1 {
		o.concurrency = 1
	}
	return o
}

// Preview resolves the catalogs, takes a snapshot and returns the validated
// plan without applying anything.
func (o *Orchestrator) Preview(ctx context.Context, req Request) (*Preview, error) {
	return o.prepare(ctx, req)
}

// Run plans and applies one lifecycle run. Errors returned here mean nothing
// was applied; per-action failures are recorded in the report instead.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*RunReport, error) {
	started := o.now()
	p, err := o.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	return o.execute(ctx, p, started), nil
}

// Apply executes a plan previously returned by Preview, typically after an
// operator confirmed it. Status changes still compare against the snapshot,
// so drift since the preview fails the affected actions with catalog.ErrConflict.
func (o *Orchestrator) Apply(ctx context.Context, p *Preview) (*RunReport, error) {
	if p == nil || p.target == nil {
		return nil, fmt.Errorf("preview was not produced by Preview")
	}
	return o.execute(ctx, p, o.now()), nil
}

func (o *Orchestrator) execute(ctx context.Context, p *Preview, started time.Time) *RunReport {
	runID := o.newRunID()
	logger := o.logger.With("run_id", runID)

	logger.Info("Applying plan",
		"source", p.Source,
		"destination", p.Destination,
		"actions", len(p.Plan),
	)

	applied, failed, copies := o.apply(ctx, logger, p)

	final := lifecycle.Apply(p.target, applied)
	final = append(final, copies...)

	report := &RunReport{
		RunID:       runID,
		Source:      p.Source,
		Destination: p.Destination,
		StartedAt:   started,
		FinishedAt:  o.now(),
		Planned:     p.Plan,
		Applied:     applied,
		Failed:      failed,
		FinalState:  final,
	}

	level := slog.LevelInfo
	if !report.OK() {
		level = slog.LevelWarn
	}
	logger.Log(ctx, level, "Run finished",
		"applied", len(applied),
		"failed", len(failed),
		"duration", report.Duration().Round(time.Millisecond),
	)
	return report
}

// Find returns the newest published template of group key in library.
func (o *Orchestrator) Find(ctx context.Context, library string, policy lifecycle.RetentionPolicy, key string) (lifecycle.Artifact, error) {
	sctx, cancel := context.WithTimeout(ctx, o.snapshotTimeout)
	defer cancel()

	id, artifacts, err := o.read(sctx, library, policy)
	if err != nil {
		return lifecycle.Artifact{}, err
	}
	a, ok := lifecycle.FindPublished(artifacts, policy, key)
	if !ok {
		return lifecycle.Artifact{}, fmt.Errorf("%w for %s %q in library %q (%s)", ErrNoPublished, groupLabel(policy), key, library, id)
	}
	return a, nil
}

// prepare runs the read-only part of a run: resolve, snapshot, decode,
// filter, plan and validate.
func (o *Orchestrator) prepare(ctx context.Context, req Request) (*Preview, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	req.Policy = req.effectivePolicy()

	sctx, cancel := context.WithTimeout(ctx, o.snapshotTimeout)
	defer cancel()

	sourceID, source, err := o.read(sctx, req.Source, req.Policy)
	if err != nil {
		return nil, err
	}

	p := &Preview{
		Source:   req.Source,
		SourceID: sourceID,
		policy:   req.Policy,
		source:   source,
		target:   source,
	}
	p.Malformed = malformedNames(source)

	if req.Destination == "" {
		scope, excluded := o.split(source)
		p.Excluded = excluded
		p.Snapshot = source
		p.Plan = lifecycle.Plan(scope, req.Policy)
		if err := lifecycle.Validate(scope, p.Plan, req.Policy); err != nil {
			return nil, fmt.Errorf("plan for %q rejected: %w", req.Source, err)
		}
		o.logPlan(p)
		return p, nil
	}

	destID, dest, err := o.read(sctx, req.Destination, req.Policy)
	if err != nil {
		return nil, err
	}
	p.target = dest
	p.Destination = req.Destination
	p.DestinationID = destID
	p.Snapshot = dest
	p.Malformed = append(p.Malformed, malformedNames(dest)...)

	sourceScope, sourceExcluded := o.split(source)
	destScope, destExcluded := o.split(dest)
	p.Excluded = append(sourceExcluded, destExcluded...)

	// Presence in the destination is checked against the full catalog so an
	// excluded name is never copied over an existing item.
	copies := lifecycle.PlanCopies(sourceScope, dest, destID, req.Policy)
	if err := lifecycle.ValidateCopies(sourceScope, dest, copies); err != nil {
		return nil, fmt.Errorf("copy plan %q -> %q rejected: %w", req.Source, req.Destination, err)
	}
	retention := lifecycle.Plan(destScope, req.Policy)
	if err := lifecycle.Validate(destScope, retention, req.Policy); err != nil {
		return nil, fmt.Errorf("plan for %q rejected: %w", req.Destination, err)
	}
	p.Plan = append(copies, retention...)

	o.logPlan(p)
	return p, nil
}

// read resolves a library by name and decodes its items.
func (o *Orchestrator) read(ctx context.Context, name string, policy lifecycle.RetentionPolicy) (string, []lifecycle.Artifact, error) {
	id, err := o.client.ResolveCatalogID(ctx, name)
	if err != nil {
		return "", nil, fmt.Errorf("resolve library %q: %w", name, err)
	}
	items, err := o.client.ListArtifacts(ctx, id)
	if err != nil {
		return "", nil, fmt.Errorf("snapshot library %q: %w", name, err)
	}

	artifacts := make([]lifecycle.Artifact, 0, len(items))
	for _, it := range items {
		rec, err := notes.Decode(it.Notes)
		if err != nil {
			o.logger.Warn("Template has malformed notes, leaving it untouched",
				"library", name,
				"template", it.Name,
				"error", err,
			)
			artifacts = append(artifacts, lifecycle.MalformedArtifact(it.ID, it.Name, id))
			continue
		}
		artifacts = append(artifacts, lifecycle.NewArtifact(it.ID, it.Name, id, rec, policy.Separator))
	}

	o.logger.Info("Snapshot taken", "library", name, "id", id, "templates", len(artifacts))
	return id, artifacts, nil
}

// split partitions artifacts into those the filter keeps and the excluded names.
func (o *Orchestrator) split(artifacts []lifecycle.Artifact) (kept []lifecycle.Artifact, excluded []string) {
	for _, a := range artifacts {
		if o.filter.IsIncluded(a.Name) {
			kept = append(kept, a)
			continue
		}
		excluded = append(excluded, a.Name)
	}
	return kept, excluded
}

func (o *Orchestrator) logPlan(p *Preview) {
	if len(p.Plan) == 0 {
		o.logger.Info("Nothing to do", "library", p.Source, "destination", p.Destination)
		return
	}
	for _, act := range p.Plan {
		o.logger.Debug("Planned", "action", act.String(), "group", act.Group)
	}
}

func malformedNames(artifacts []lifecycle.Artifact) []string {
	var names []string
	for _, a := range artifacts {
		if a.Malformed {
			names = append(names, a.Name)
		}
	}
	return names
}

func groupLabel(p lifecycle.RetentionPolicy) string {
	if p.GroupBy == lifecycle.GroupByOSVersion {
		return "OS version"
	}
	return "family"
}

// IsAbort reports whether err aborted a run before any action was applied
// because a catalog could not be read.
func IsAbort(err error) bool {
	return errors.Is(err, catalog.ErrCatalogUnreachable) ||
		errors.Is(err, catalog.ErrAuthExpired) ||
		errors.Is(err, catalog.ErrNotFound)
}
