// Package configs provides library defaults loaded from an embedded YAML file.
// All hardcoded values live in defaults.yaml.
package configs

import (
	_ "embed"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Defaults holds all library default values (loaded from defaults.yaml at startup).
var Defaults LibDefaults

func init() {
	if err := yaml.Unmarshal(defaultsYAML, &Defaults); err != nil {
		panic("vmware-template-lifecycle: invalid defaults.yaml: " + err.Error())
	}
}

// LibDefaults holds all configurable library defaults.
type LibDefaults struct {
	VCenter   VCenterDefaults   `yaml:"vcenter"`
	Lifecycle LifecycleDefaults `yaml:"lifecycle"`
	Catalog   CatalogDefaults   `yaml:"catalog"`
	Timeouts  TimeoutDefaults   `yaml:"timeouts"`
	Output    OutputDefaults    `yaml:"output"`
}

// VCenterDefaults holds vCenter connection defaults.
type VCenterDefaults struct {
	Port int `yaml:"port"`
}

// LifecycleDefaults holds the default retention policy.
type LifecycleDefaults struct {
	GroupBy                       string `yaml:"group_by"`
	KeepCount                     int    `yaml:"keep_count"`
	RequireSuccessorForRetirement bool   `yaml:"require_successor_for_retirement"`
	NameSeparator                 string `yaml:"name_separator"`
}

// CatalogDefaults holds content library client defaults.
type CatalogDefaults struct {
	LibraryType       string  `yaml:"library_type"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
	Concurrency       int     `yaml:"concurrency"`
}

// TimeoutDefaults holds all timeout values.
type TimeoutDefaults struct {
	ConnectSeconds  int `yaml:"connect_seconds"`
	SnapshotSeconds int `yaml:"snapshot_seconds"`
	ActionSeconds   int `yaml:"action_seconds"`
	NotifySeconds   int `yaml:"notify_seconds"`
}

// As time.Duration convenience methods.

func (t TimeoutDefaults) Connect() time.Duration {
	return time.Duration(t.ConnectSeconds) * time.Second
}
func (t TimeoutDefaults) Snapshot() time.Duration {
	return time.Duration(t.SnapshotSeconds) * time.Second
}
func (t TimeoutDefaults) Action() time.Duration {
	return time.Duration(t.ActionSeconds) * time.Second
}
func (t TimeoutDefaults) Notify() time.Duration {
	return time.Duration(t.NotifySeconds) * time.Second
}

// OutputDefaults holds CLI output defaults.
type OutputDefaults struct {
	Enable          bool   `yaml:"enable"`
	ReportPath      string `yaml:"report_path"`
	MetricsTextfile string `yaml:"metrics_textfile"`
}
