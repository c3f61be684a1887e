package promote

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Bibi40k/vmware-template-lifecycle/pkg/lifecycle"
)

var (
	// ErrSkipped marks an action not attempted because an action it depends on failed.
	ErrSkipped = errors.New("skipped")
	// ErrNoPublished is returned by Find when a group has no published template.
	ErrNoPublished = errors.New("no published template")
)

// Request names the catalogs of one run and the policy applied to them.
type Request struct {
	Source string `json:"source" yaml:"source"`
	// Destination is optional. When set, published source templates are copied
	// into it and the destination is planned instead of the source.
	Destination string `json:"destination,omitempty" yaml:"destination,omitempty"`
	// Policy defaults to lifecycle.DefaultPolicy() only when entirely zero.
	// A partly set policy is taken field by field, so a false
	// RequireSuccessorForRetirement deletes retired templates in the same
	// run; start from lifecycle.DefaultPolicy() to keep the successor rule.
	Policy lifecycle.RetentionPolicy `json:"policy" yaml:"policy"`
}

// Validate checks the request before any catalog call.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Source) == "" {
		return fmt.Errorf("source library is required")
	}
	if r.Destination != "" && r.Destination == r.Source {
		return fmt.Errorf("source and destination library must differ (both %q)", r.Source)
	}
	if r.Policy.KeepCount < 0 {
		return fmt.Errorf("keep count must not be negative")
	}
	if r.Policy.GroupBy != "" {
		if _, err := lifecycle.ParseGroupBy(string(r.Policy.GroupBy)); err != nil {
			return err
		}
	}
	return nil
}

// effectivePolicy returns the configured default policy for a zero Policy.
func (r Request) effectivePolicy() lifecycle.RetentionPolicy {
	if r.Policy == (lifecycle.RetentionPolicy{}) {
		return lifecycle.DefaultPolicy()
	}
	return r.Policy
}

// ActionFailed records an action that was attempted (or skipped) and did not succeed.
type ActionFailed struct {
	Action lifecycle.Action `json:"action" yaml:"action"`
	Reason string           `json:"reason" yaml:"reason"`
	Err    error            `json:"-" yaml:"-"`
}

func (f ActionFailed) Error() string {
	return fmt.Sprintf("%s failed: %s", f.Action, f.Reason)
}

func (f ActionFailed) Unwrap() error { return f.Err }

// Preview is the outcome of a dry run: the snapshot and the validated plan.
type Preview struct {
	Source        string `json:"source" yaml:"source"`
	SourceID      string `json:"source_id" yaml:"source_id"`
	Destination   string `json:"destination,omitempty" yaml:"destination,omitempty"`
	DestinationID string `json:"destination_id,omitempty" yaml:"destination_id,omitempty"`
	// Snapshot is the catalog the lifecycle plan applies to: the destination
	// when one is set, otherwise the source.
	Snapshot  []lifecycle.Artifact `json:"snapshot" yaml:"snapshot"`
	Malformed []string             `json:"malformed,omitempty" yaml:"malformed,omitempty"`
	Excluded  []string             `json:"excluded,omitempty" yaml:"excluded,omitempty"`
	Plan      []lifecycle.Action   `json:"plan" yaml:"plan"`

	policy lifecycle.RetentionPolicy
	// source and target hold the full, unfiltered catalog contents.
	source []lifecycle.Artifact
	target []lifecycle.Artifact
}

// RunReport summarizes one applied run.
type RunReport struct {
	RunID       string               `json:"run_id" yaml:"run_id"`
	Source      string               `json:"source" yaml:"source"`
	Destination string               `json:"destination,omitempty" yaml:"destination,omitempty"`
	StartedAt   time.Time            `json:"started_at" yaml:"started_at"`
	FinishedAt  time.Time            `json:"finished_at" yaml:"finished_at"`
	Planned     []lifecycle.Action   `json:"planned" yaml:"planned"`
	Applied     []lifecycle.Action   `json:"applied" yaml:"applied"`
	Failed      []ActionFailed       `json:"failed,omitempty" yaml:"failed,omitempty"`
	FinalState  []lifecycle.Artifact `json:"final_state" yaml:"final_state"`
}

// OK reports whether every planned action was applied.
func (r *RunReport) OK() bool {
	return len(r.Failed) == 0
}

// Duration is the wall time of the run.
func (r *RunReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Summary returns a one-line human summary.
func (r *RunReport) Summary() string {
	target := r.Source
	if r.Destination != "" {
		target = r.Source + " -> " + r.Destination
	}
	return fmt.Sprintf("%s: %d planned, %d applied, %d failed", target, len(r.Planned), len(r.Applied), len(r.Failed))
}
