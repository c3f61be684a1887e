// Package lifecycle decides how templates move between the Draft, Published
// and Retired states and which of them are pruned.
//
// Everything in this package is pure: callers hand in a snapshot of a
// catalog and get back a list of actions. Name order is the only recency
// signal (descending name = newest first), because content libraries do not
// record a reliable build timestamp for imported templates.
package lifecycle

import (
	"fmt"
	"strings"

	"github.com/Bibi40k/vmware-template-lifecycle/configs"
	"github.com/Bibi40k/vmware-template-lifecycle/pkg/notes"
)

// Status aliases the annotation status so callers need only this package.
type Status = notes.Status

const (
	Draft     = notes.Draft
	Published = notes.Published
	Retired   = notes.Retired
)

// Artifact is a template in one catalog, with its notes already decoded.
type Artifact struct {
	ID        string       `json:"id" yaml:"id"`
	Name      string       `json:"name" yaml:"name"`
	CatalogID string       `json:"catalog_id" yaml:"catalog_id"`
	Status    Status       `json:"status" yaml:"status"`
	Family    string       `json:"family,omitempty" yaml:"family,omitempty"`
	OSVersion string       `json:"os_version,omitempty" yaml:"os_version,omitempty"`
	Notes     notes.Record `json:"-" yaml:"-"`
	// Malformed marks artifacts whose notes could not be decoded. They are
	// never grouped and never acted on.
	Malformed bool `json:"malformed,omitempty" yaml:"malformed,omitempty"`
}

// NewArtifact builds an Artifact from a decoded notes record. The family
// comes from the record when tagged, otherwise from the name prefix.
func NewArtifact(id, name, catalogID string, rec notes.Record, separator string) Artifact {
	family := rec.Family
	if family == "" {
		family = FamilyOf(name, separator)
	}
	return Artifact{
		ID:        id,
		Name:      name,
		CatalogID: catalogID,
		Status:    rec.Status,
		Family:    family,
		OSVersion: rec.OSVersion,
		Notes:     rec,
	}
}

// MalformedArtifact builds the fail-open placeholder for an item whose notes
// did not decode: an ungrouped Draft.
func MalformedArtifact(id, name, catalogID string) Artifact {
	return Artifact{
		ID:        id,
		Name:      name,
		CatalogID: catalogID,
		Status:    Draft,
		Malformed: true,
	}
}

// FamilyOf returns the part of name before the first separator, or the whole
// name when the separator does not occur.
func FamilyOf(name, separator string) string {
	if separator == "" {
		separator = configs.Defaults.Lifecycle.NameSeparator
	}
	if i := strings.Index(name, separator); i >= 0 {
		return name[:i]
	}
	return name
}

// GroupBy selects the dimension artifacts are grouped on.
type GroupBy string

const (
	GroupByFamily    GroupBy = "family"
	GroupByOSVersion GroupBy = "os_version"
)

// ParseGroupBy validates a grouping dimension name.
func ParseGroupBy(s string) (GroupBy, error) {
	switch GroupBy(strings.ToLower(strings.TrimSpace(s))) {
	case GroupByFamily, "":
		return GroupByFamily, nil
	case GroupByOSVersion, "osversion", "os-version":
		return GroupByOSVersion, nil
	}
	return "", fmt.Errorf("unsupported group-by %q (supported: family, os_version)", s)
}

// GroupKey returns the artifact's group under the given dimension.
// ok is false for malformed artifacts and for artifacts lacking the key.
func (a Artifact) GroupKey(by GroupBy) (key string, ok bool) {
	if a.Malformed {
		return "", false
	}
	switch by {
	case GroupByOSVersion:
		key = a.OSVersion
	default:
		key = a.Family
	}
	return key, key != ""
}

// RetentionPolicy configures the engine. Each historical promotion script
// is one configuration of it.
type RetentionPolicy struct {
	GroupBy GroupBy `json:"group_by" yaml:"group_by"`
	// KeepCount bounds the non-retired artifacts kept per group.
	KeepCount int `json:"keep_count" yaml:"keep_count"`
	// RequireSuccessorForRetirement restricts the deletion of previously
	// retired artifacts to groups that hold a Draft in the snapshot. When
	// false, artifacts retired by a plan are also deleted by it.
	RequireSuccessorForRetirement bool `json:"require_successor_for_retirement" yaml:"require_successor_for_retirement"`
	// Separator splits the family prefix off template names.
	Separator string `json:"separator" yaml:"separator"`
}

// DefaultPolicy returns the policy from configs/defaults.yaml.
func DefaultPolicy() RetentionPolicy {
	d := configs.Defaults.Lifecycle
	by, err := ParseGroupBy(d.GroupBy)
	if err != nil {
		by = GroupByFamily
	}
	return RetentionPolicy{
		GroupBy:                       by,
		KeepCount:                     d.KeepCount,
		RequireSuccessorForRetirement: d.RequireSuccessorForRetirement,
		Separator:                     d.NameSeparator,
	}
}

// normalized fills zero values with defaults.
func (p RetentionPolicy) normalized() RetentionPolicy {
	if p.GroupBy == "" {
		p.GroupBy = GroupByFamily
	}
	if p.KeepCount <= 0 {
		p.KeepCount = configs.Defaults.Lifecycle.KeepCount
	}
	if p.KeepCount <= 0 {
		p.KeepCount = 2
	}
	if p.Separator == "" {
		p.Separator = configs.Defaults.Lifecycle.NameSeparator
	}
	return p
}

// ActionKind is the kind of a planned action. The order of the constants is
// the order in which phases are applied.
type ActionKind int

const (
	Copy ActionKind = iota
	Promote
	Retire
	Delete
)

// Phases lists action kinds in application order.
var Phases = []ActionKind{Copy, Promote, Retire, Delete}

func (k ActionKind) String() string {
	switch k {
	case Copy:
		return "Copy"
	case Promote:
		return "Promote"
	case Retire:
		return "Retire"
	case Delete:
		return "Delete"
	}
	return fmt.Sprintf("ActionKind(%d)", int(k))
}

// MarshalText encodes the kind by name.
func (k ActionKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *ActionKind) UnmarshalText(text []byte) error {
	for _, kind := range Phases {
		if kind.String() == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown action kind %q", string(text))
}

// Action is one step of a plan.
type Action struct {
	Kind       ActionKind `json:"kind" yaml:"kind"`
	ArtifactID string     `json:"artifact_id" yaml:"artifact_id"`
	Name       string     `json:"name" yaml:"name"`
	Group      string     `json:"group,omitempty" yaml:"group,omitempty"`
	// TargetCatalogID is set for Copy only.
	TargetCatalogID string `json:"target_catalog_id,omitempty" yaml:"target_catalog_id,omitempty"`
}

func (a Action) String() string {
	if a.Kind == Copy {
		return fmt.Sprintf("Copy(%s, %s)", a.Name, a.TargetCatalogID)
	}
	return fmt.Sprintf("%s(%s)", a.Kind, a.Name)
}
