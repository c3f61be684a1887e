package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Bibi40k/vmware-template-lifecycle/pkg/promote"
)

// ReportPath expands a report path template. Supported placeholders:
// {run} (run ID) and {date} (YYYYMMDD-HHMMSS, UTC).
func ReportPath(template, runID string, at time.Time) string {
	r := strings.NewReplacer(
		"{run}", runID,
		"{date}", at.UTC().Format("20060102-150405"),
	)
	return r.Replace(template)
}

// LoadRunReport reads a RunReport from YAML or JSON.
func LoadRunReport(path string) (*promote.RunReport, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read run report %s: %w", path, err)
	}

	var out promote.RunReport
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".json" {
		if err := json.Unmarshal(content, &out); err != nil {
			return nil, fmt.Errorf("parse run report %s: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(content, &out); err != nil {
			return nil, fmt.Errorf("parse run report %s: %w", path, err)
		}
	}

	if strings.TrimSpace(out.RunID) == "" {
		return nil, fmt.Errorf("run report %s: run_id is required", path)
	}
	return &out, nil
}

// SaveRunReport writes a RunReport to YAML or JSON based on file extension.
func SaveRunReport(path string, report *promote.RunReport) error {
	if report == nil || strings.TrimSpace(report.RunID) == "" {
		return fmt.Errorf("run report without run_id")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", path, err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	var content []byte
	var err error
	if ext == ".json" {
		content, err = json.MarshalIndent(report, "", "  ")
	} else {
		content, err = yaml.Marshal(report)
	}
	if err != nil {
		return fmt.Errorf("marshal run report %s: %w", path, err)
	}

	if err := os.WriteFile(path, content, 0o600); err != nil {
		return fmt.Errorf("write run report %s: %w", path, err)
	}
	return nil
}
