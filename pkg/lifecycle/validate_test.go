package lifecycle

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireViolation(t *testing.T, err error, rule string) {
	t.Helper()
	require.Error(t, err)
	var iv *InvariantViolation
	require.True(t, errors.As(err, &iv), "want *InvariantViolation, got %T", err)
	assert.Equal(t, rule, iv.Rule, iv.Error())
}

func TestValidate_AcceptsPlannerOutput(t *testing.T) {
	snapshot := []Artifact{
		art("db_v1", Published),
		art("db_v2", Published),
		art("db_v3", Draft),
		MalformedArtifact("m", "db_v0", "lib-1"),
	}
	p := familyPolicy(2)
	assert.NoError(t, Validate(snapshot, Plan(snapshot, p), p))
}

func TestValidate_Rejects(t *testing.T) {
	p := familyPolicy(2)
	web := []Artifact{art("web_v1", Published), art("web_v2", Draft)}

	tests := []struct {
		name     string
		snapshot []Artifact
		plan     []Action
		rule     string
	}{
		{
			name:     "deletes the only published artifact",
			snapshot: []Artifact{art("solo_v1", Published)},
			plan:     []Action{{Kind: Delete, ArtifactID: "solo_v1", Name: "solo_v1", Group: "solo"}},
			rule:     RuleLastActive,
		},
		{
			name:     "retires a draft directly",
			snapshot: web,
			plan: []Action{
				{Kind: Retire, ArtifactID: "web_v2", Name: "web_v2", Group: "web"},
			},
			rule: RuleIllegalTransition,
		},
		{
			name:     "promotes a published artifact",
			snapshot: web,
			plan:     []Action{{Kind: Promote, ArtifactID: "web_v1", Name: "web_v1", Group: "web"}},
			rule:     RuleIllegalTransition,
		},
		{
			name:     "leaves two published",
			snapshot: web,
			plan:     []Action{{Kind: Promote, ArtifactID: "web_v2", Name: "web_v2", Group: "web"}},
			rule:     RuleSinglePublished,
		},
		{
			name:     "retires the newest",
			snapshot: web,
			plan: []Action{
				{Kind: Promote, ArtifactID: "web_v2", Name: "web_v2", Group: "web"},
				{Kind: Retire, ArtifactID: "web_v2", Name: "web_v2", Group: "web"},
			},
			rule: RuleSuccessorRequired,
		},
		{
			name:     "leaves duplicate published without a draft",
			snapshot: []Artifact{art("lb_v1", Published), art("lb_v2", Published)},
			plan:     nil,
			rule:     RuleSinglePublished,
		},
		{
			name:     "deletes retired without a draft",
			snapshot: []Artifact{art("lb_v1", Retired), art("lb_v2", Published)},
			plan:     []Action{{Kind: Delete, ArtifactID: "lb_v1", Name: "lb_v1", Group: "lb"}},
			rule:     RuleSuccessorRequired,
		},
		{
			name:     "touches a malformed artifact",
			snapshot: []Artifact{MalformedArtifact("bad", "web_v7", "lib-1")},
			plan:     []Action{{Kind: Delete, ArtifactID: "bad", Name: "web_v7"}},
			rule:     RuleUngroupedTouched,
		},
		{
			name:     "unknown artifact",
			snapshot: web,
			plan:     []Action{{Kind: Delete, ArtifactID: "ghost", Name: "ghost"}},
			rule:     RuleUnknownArtifact,
		},
		{
			name:     "duplicate action",
			snapshot: web,
			plan: []Action{
				{Kind: Promote, ArtifactID: "web_v2", Name: "web_v2", Group: "web"},
				{Kind: Promote, ArtifactID: "web_v2", Name: "web_v2", Group: "web"},
			},
			rule: RuleDuplicateAction,
		},
		{
			name: "exceeds retention bound",
			snapshot: []Artifact{
				art("q_v1", Published), art("q_v2", Published), art("q_v3", Published),
			},
			plan: nil,
			rule: RuleRetentionBound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requireViolation(t, Validate(tt.snapshot, tt.plan, p), tt.rule)
		})
	}
}

func TestValidateCopies_Rejects(t *testing.T) {
	source := []Artifact{art("app_v5", Published), art("app_v6", Draft)}
	destination := []Artifact{art("app_v5", Draft)}

	err := ValidateCopies(source, nil, []Action{{Kind: Copy, ArtifactID: "app_v6", Name: "app_v6"}})
	requireViolation(t, err, RuleCopySource)

	err = ValidateCopies(source, destination, []Action{{Kind: Copy, ArtifactID: "app_v5", Name: "app_v5"}})
	requireViolation(t, err, RuleCopySource)

	err = ValidateCopies(source, nil, []Action{{Kind: Copy, ArtifactID: "nope", Name: "nope"}})
	requireViolation(t, err, RuleUnknownArtifact)
}

func TestInvariantViolation_Error(t *testing.T) {
	err := &InvariantViolation{Rule: RuleLastActive, Group: "web", Detail: "boom"}
	assert.Equal(t, `unsafe plan (last-active-kept) in group "web": boom`, err.Error())
}
