package lifecycle

import (
	"sort"
)

// Plan computes the actions that move one catalog's snapshot to its next
// legal state under policy. It never fails: artifacts that cannot be grouped
// are left alone.
//
// Per group, newest first:
//   - non-retired artifacts beyond KeepCount are deleted (never the newest);
//   - every kept Draft is promoted;
//   - every kept artifact except the newest is retired;
//   - previously retired artifacts are deleted once a successor exists.
//
// Retired cleanup is gated by the policy's successor rule.
func Plan(artifacts []Artifact, policy RetentionPolicy) []Action {
	p := policy.normalized()

	var plan []Action
	for key, members := range groupArtifacts(artifacts, p.GroupBy) {
		plan = append(plan, planGroup(key, members, p)...)
	}
	sortPlan(plan)
	return plan
}

// PlanCopies schedules a Copy into destinationID for every published source
// artifact whose name does not exist in the destination yet. Copies are
// created as Drafts and promoted by the destination's own next run.
func PlanCopies(source, destination []Artifact, destinationID string, policy RetentionPolicy) []Action {
	p := policy.normalized()

	present := make(map[string]bool, len(destination))
	for _, a := range destination {
		present[a.Name] = true
	}

	var plan []Action
	for _, a := range sortedByRecency(source) {
		if a.Malformed || a.Status != Published || present[a.Name] {
			continue
		}
		present[a.Name] = true
		key, _ := a.GroupKey(p.GroupBy)
		plan = append(plan, Action{
			Kind:            Copy,
			ArtifactID:      a.ID,
			Name:            a.Name,
			Group:           key,
			TargetCatalogID: destinationID,
		})
	}
	sortPlan(plan)
	return plan
}

func planGroup(key string, members []Artifact, p RetentionPolicy) []Action {
	var active, retired []Artifact
	hasDraft := false
	for _, a := range members {
		if a.Status == Retired {
			retired = append(retired, a)
			continue
		}
		active = append(active, a)
		if a.Status == Draft {
			hasDraft = true
		}
	}

	var out []Action
	add := func(kind ActionKind, a Artifact) {
		out = append(out, Action{Kind: kind, ArtifactID: a.ID, Name: a.Name, Group: key})
	}

	keep := min(len(active), p.KeepCount)
	kept, excess := active[:keep], active[keep:]

	for _, a := range excess {
		add(Delete, a)
	}
	for _, a := range kept {
		if a.Status == Draft {
			add(Promote, a)
		}
	}

	if len(kept) == 0 {
		return out
	}

	superseded := kept[1:]
	for _, a := range superseded {
		add(Retire, a)
	}
	if hasDraft || !p.RequireSuccessorForRetirement {
		for _, a := range retired {
			add(Delete, a)
		}
	}
	if !p.RequireSuccessorForRetirement {
		// Without the successor rule nothing is held back for a later run:
		// artifacts retired now are pruned in the same plan.
		for _, a := range superseded {
			add(Delete, a)
		}
	}
	return out
}

// groupArtifacts buckets groupable artifacts by key, each bucket newest first.
func groupArtifacts(artifacts []Artifact, by GroupBy) map[string][]Artifact {
	groups := make(map[string][]Artifact)
	for _, a := range artifacts {
		key, ok := a.GroupKey(by)
		if !ok {
			continue
		}
		groups[key] = append(groups[key], a)
	}
	for key, members := range groups {
		groups[key] = sortedByRecency(members)
	}
	return groups
}

// sortedByRecency returns a copy ordered newest first (name descending).
func sortedByRecency(artifacts []Artifact) []Artifact {
	out := make([]Artifact, len(artifacts))
	copy(out, artifacts)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name > out[j].Name
		}
		return out[i].ID > out[j].ID
	})
	return out
}

// sortPlan orders actions by phase, then group, then newest name first.
func sortPlan(plan []Action) {
	sort.SliceStable(plan, func(i, j int) bool {
		a, b := plan[i], plan[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.Group != b.Group {
			return a.Group < b.Group
		}
		if a.Name != b.Name {
			return a.Name > b.Name
		}
		return a.ArtifactID < b.ArtifactID
	})
}

// ByKind splits a plan into its phases, preserving order within each.
func ByKind(plan []Action) map[ActionKind][]Action {
	out := make(map[ActionKind][]Action, len(Phases))
	for _, a := range plan {
		out[a.Kind] = append(out[a.Kind], a)
	}
	return out
}
