package lifecycle

import (
	"fmt"
)

// Safety rules checked by Validate.
const (
	RuleUnknownArtifact   = "unknown-artifact"
	RuleDuplicateAction   = "duplicate-action"
	RuleUngroupedTouched  = "ungrouped-untouched"
	RuleIllegalTransition = "illegal-transition"
	RuleSinglePublished   = "single-published"
	RuleSuccessorRequired = "successor-required"
	RuleRetentionBound    = "retention-bound"
	RuleLastActive        = "last-active-kept"
	RuleCopySource        = "copy-source"
)

// InvariantViolation reports a plan that would leave a catalog in an unsafe
// state. It is a defect in the planner; runs abort instead of applying it.
type InvariantViolation struct {
	Rule   string
	Group  string
	Detail string
}

func (e *InvariantViolation) Error() string {
	if e.Group != "" {
		return fmt.Sprintf("unsafe plan (%s) in group %q: %s", e.Rule, e.Group, e.Detail)
	}
	return fmt.Sprintf("unsafe plan (%s): %s", e.Rule, e.Detail)
}

func violation(rule, group, format string, args ...any) error {
	return &InvariantViolation{Rule: rule, Group: group, Detail: fmt.Sprintf(format, args...)}
}

// Validate checks a single-catalog plan against the snapshot it was computed
// from. Copy actions are ignored; see ValidateCopies.
func Validate(artifacts []Artifact, plan []Action, policy RetentionPolicy) error {
	p := policy.normalized()

	byID := make(map[string]Artifact, len(artifacts))
	for _, a := range artifacts {
		byID[a.ID] = a
	}

	seen := make(map[ActionKind]map[string]bool)
	promoted := make(map[string]bool)
	for _, act := range plan {
		if act.Kind == Copy {
			continue
		}
		a, ok := byID[act.ArtifactID]
		if !ok {
			return violation(RuleUnknownArtifact, act.Group, "%s targets an artifact outside the snapshot", act)
		}
		if seen[act.Kind] == nil {
			seen[act.Kind] = make(map[string]bool)
		}
		if seen[act.Kind][a.ID] {
			return violation(RuleDuplicateAction, act.Group, "%s scheduled twice", act)
		}
		seen[act.Kind][a.ID] = true

		if _, ok := a.GroupKey(p.GroupBy); !ok {
			return violation(RuleUngroupedTouched, "", "%s targets an ungrouped artifact", act)
		}
		if act.Kind == Promote {
			if a.Status != Draft {
				return violation(RuleIllegalTransition, act.Group, "%s on a %s artifact", act, a.Status)
			}
			promoted[a.ID] = true
		}
	}
	for _, act := range plan {
		if act.Kind != Retire {
			continue
		}
		a := byID[act.ArtifactID]
		if a.Status == Retired || (a.Status == Draft && !promoted[a.ID]) {
			return violation(RuleIllegalTransition, act.Group, "%s on a %s artifact", act, a.Status)
		}
	}

	before := groupArtifacts(artifacts, p.GroupBy)
	after := groupArtifacts(Apply(artifacts, plan), p.GroupBy)
	deletes := make(map[string]bool)
	for _, act := range plan {
		if act.Kind == Delete {
			deletes[act.ArtifactID] = true
		}
	}

	for key, members := range before {
		hasDraft, hadActive := false, false
		for _, a := range members {
			if a.Status == Draft {
				hasDraft = true
			}
			if a.Status != Retired {
				hadActive = true
			}
		}
		post := after[key]
		active := activeMembers(post)

		if hadActive && len(active) == 0 {
			return violation(RuleLastActive, key, "plan removes every draft and published artifact")
		}
		if len(active) > p.KeepCount {
			return violation(RuleRetentionBound, key, "%d non-retired artifacts kept, bound is %d", len(active), p.KeepCount)
		}
		published := 0
		for _, a := range active {
			if a.Status == Published {
				published++
			}
		}
		if published > 1 {
			return violation(RuleSinglePublished, key, "%d published artifacts remain", published)
		}
		if published == 1 && active[0].Status != Published {
			return violation(RuleSinglePublished, key, "published artifact is not the newest")
		}

		for _, a := range members {
			retiring := seen[Retire][a.ID]
			if retiring {
				if !hasNewerActive(post, a.Name, Published) {
					return violation(RuleSuccessorRequired, key, "%s retired without a newer published artifact", a.Name)
				}
			}
			if deletes[a.ID] && a.Status == Retired && p.RequireSuccessorForRetirement && !hasDraft {
				return violation(RuleSuccessorRequired, key, "%s deleted without a draft in the group", a.Name)
			}
			if deletes[a.ID] && a.Status != Retired && !retiring && !hasNewerActive(post, a.Name, Published, Draft) {
				return violation(RuleLastActive, key, "%s deleted without a newer replacement", a.Name)
			}
		}
	}
	return nil
}

// ValidateCopies checks Copy actions: each must copy a published source
// artifact whose name is not yet in the destination.
func ValidateCopies(source, destination []Artifact, plan []Action) error {
	byID := make(map[string]Artifact, len(source))
	for _, a := range source {
		byID[a.ID] = a
	}
	present := make(map[string]bool, len(destination))
	for _, a := range destination {
		present[a.Name] = true
	}
	for _, act := range plan {
		if act.Kind != Copy {
			continue
		}
		a, ok := byID[act.ArtifactID]
		if !ok {
			return violation(RuleUnknownArtifact, act.Group, "%s copies an artifact outside the source snapshot", act)
		}
		if a.Malformed || a.Status != Published {
			return violation(RuleCopySource, act.Group, "%s copies a %s artifact", act, a.Status)
		}
		if present[a.Name] {
			return violation(RuleCopySource, act.Group, "%s already exists in the destination", act)
		}
		present[a.Name] = true
	}
	return nil
}

func activeMembers(members []Artifact) []Artifact {
	var out []Artifact
	for _, a := range members {
		if a.Status != Retired {
			out = append(out, a)
		}
	}
	return out
}

func hasNewerActive(members []Artifact, name string, statuses ...Status) bool {
	for _, a := range members {
		if a.Name <= name {
			continue
		}
		for _, s := range statuses {
			if a.Status == s {
				return true
			}
		}
	}
	return false
}
