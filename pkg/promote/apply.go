package promote

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Bibi40k/vmware-template-lifecycle/pkg/catalog"
	"github.com/Bibi40k/vmware-template-lifecycle/pkg/lifecycle"
	"github.com/Bibi40k/vmware-template-lifecycle/pkg/notes"
)

// apply executes the plan phase by phase. It returns the applied actions in
// plan order, the failures, and the artifacts created by copies.
func (o *Orchestrator) apply(ctx context.Context, logger *slog.Logger, p *Preview) ([]lifecycle.Action, []ActionFailed, []lifecycle.Artifact) {
	current := make(map[string]lifecycle.Artifact, len(p.target))
	for _, a := range p.target {
		current[a.ID] = a
	}
	sources := make(map[string]lifecycle.Artifact, len(p.source))
	for _, a := range p.source {
		sources[a.ID] = a
	}

	var (
		applied []lifecycle.Action
		failed  []ActionFailed
		copies  []lifecycle.Artifact
	)
	brokenIDs := make(map[string]string)    // artifact ID -> failed action
	brokenGroups := make(map[string]string) // group -> failed promotion

	byKind := lifecycle.ByKind(p.Plan)
	for _, kind := range lifecycle.Phases {
		batch := byKind[kind]
		if len(batch) == 0 {
			continue
		}

		var runnable []lifecycle.Action
		for _, act := range batch {
			if reason, ok := blocked(act, brokenIDs, brokenGroups); ok {
				logger.Warn("Skipping action", "action", act.String(), "reason", reason)
				failed = append(failed, ActionFailed{Action: act, Reason: reason, Err: ErrSkipped})
				continue
			}
			runnable = append(runnable, act)
		}

		created := make([]string, len(runnable))
		errs := o.runPhase(ctx, runnable, func(actx context.Context, i int, act lifecycle.Action) error {
			switch act.Kind {
			case lifecycle.Copy:
				id, err := o.copy(actx, sources[act.ArtifactID], act)
				created[i] = id
				return err
			case lifecycle.Promote:
				return o.setStatus(actx, current[act.ArtifactID], lifecycle.Draft, lifecycle.Published)
			case lifecycle.Retire:
				return o.setStatus(actx, current[act.ArtifactID], lifecycle.Published, lifecycle.Retired)
			case lifecycle.Delete:
				return o.client.DeleteArtifact(actx, act.ArtifactID)
			}
			return fmt.Errorf("unknown action kind %s", act.Kind)
		})

		for i, act := range runnable {
			if err := errs[i]; err != nil {
				logger.Error("Action failed", "action", act.String(), "error", err)
				failed = append(failed, ActionFailed{Action: act, Reason: err.Error(), Err: err})
				brokenIDs[act.ArtifactID] = act.String()
				if act.Kind == lifecycle.Promote && act.Group != "" {
					brokenGroups[act.Group] = act.String()
				}
				continue
			}

			logger.Info("Action applied", "action", act.String(), "group", act.Group)
			applied = append(applied, act)
			switch act.Kind {
			case lifecycle.Copy:
				src := sources[act.ArtifactID]
				copies = append(copies, lifecycle.NewArtifact(created[i], act.Name, act.TargetCatalogID, src.Notes.WithStatus(lifecycle.Draft), p.policy.Separator))
			case lifecycle.Promote, lifecycle.Retire:
				current[act.ArtifactID] = lifecycle.Apply([]lifecycle.Artifact{current[act.ArtifactID]}, []lifecycle.Action{act})[0]
			}
		}
	}
	return applied, failed, copies
}

// blocked reports whether act depends on an action that already failed.
// After a failed promotion its group is left alone so no template is
// retired or deleted without a published successor.
func blocked(act lifecycle.Action, brokenIDs, brokenGroups map[string]string) (string, bool) {
	if act.Kind == lifecycle.Copy {
		return "", false
	}
	if prev, ok := brokenIDs[act.ArtifactID]; ok {
		return fmt.Sprintf("%s: earlier %s failed", ErrSkipped, prev), true
	}
	if act.Kind == lifecycle.Promote {
		return "", false
	}
	if prev, ok := brokenGroups[act.Group]; ok && act.Group != "" {
		return fmt.Sprintf("%s: %s failed in group %q", ErrSkipped, prev, act.Group), true
	}
	return "", false
}

// runPhase runs do for every action on at most o.concurrency goroutines, each
// call under its own timeout. errs[i] is the result of actions[i].
func (o *Orchestrator) runPhase(ctx context.Context, actions []lifecycle.Action, do func(ctx context.Context, i int, act lifecycle.Action) error) []error {
	errs := make([]error, len(actions))
	sem := make(chan struct{}, o.concurrency)
	var wg sync.WaitGroup

	for i, act := range actions {
		if err := ctx.Err(); err != nil {
			errs[i] = err
			continue
		}
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			actx, cancel := context.WithTimeout(ctx, o.actionTimeout)
			defer cancel()
			errs[i] = do(actx, i, act)
		}()
	}
	wg.Wait()
	return errs
}

// copy creates the destination item with the source notes forced to Draft.
func (o *Orchestrator) copy(ctx context.Context, src lifecycle.Artifact, act lifecycle.Action) (string, error) {
	text := notes.Encode(src.Notes.WithStatus(lifecycle.Draft))
	id, err := o.client.CopyArtifact(ctx, act.ArtifactID, act.Name, act.TargetCatalogID, text)
	if err != nil {
		return "", fmt.Errorf("copy %s: %w", act.Name, err)
	}
	return id, nil
}

// setStatus is a compare-and-set on the status stored in the item's notes:
// it re-reads the notes, fails with catalog.ErrConflict when the status moved
// since the snapshot, and otherwise writes the new status keeping every
// other field as currently stored.
func (o *Orchestrator) setStatus(ctx context.Context, a lifecycle.Artifact, from, to lifecycle.Status) error {
	if a.ID == "" {
		return fmt.Errorf("artifact missing from snapshot: %w", catalog.ErrNotFound)
	}
	raw, err := o.client.GetArtifactNotes(ctx, a.ID)
	if err != nil {
		return fmt.Errorf("re-read notes of %s: %w", a.Name, err)
	}
	rec, err := notes.Decode(raw)
	if err != nil {
		return fmt.Errorf("%w: notes of %s no longer decode: %v", catalog.ErrConflict, a.Name, err)
	}
	if rec.Status != from {
		return fmt.Errorf("%w: %s is %s, expected %s", catalog.ErrConflict, a.Name, rec.Status, from)
	}
	if err := o.client.UpdateArtifactNotes(ctx, a.ID, notes.Encode(rec.WithStatus(to))); err != nil {
		return fmt.Errorf("write notes of %s: %w", a.Name, err)
	}
	return nil
}
