package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Bibi40k/vmware-template-lifecycle/pkg/lifecycle"
	"github.com/Bibi40k/vmware-template-lifecycle/pkg/promote"
)

func sampleReport() *promote.RunReport {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &promote.RunReport{
		RunID:       "3f0c6f1e",
		Source:      "dev",
		Destination: "prod",
		StartedAt:   start,
		FinishedAt:  start.Add(3 * time.Second),
		Planned: []lifecycle.Action{
			{Kind: lifecycle.Copy, ArtifactID: "a5", Name: "app_v5", Group: "app", TargetCatalogID: "lib-prod"},
			{Kind: lifecycle.Promote, ArtifactID: "p4", Name: "app_v4", Group: "app"},
		},
		Applied: []lifecycle.Action{
			{Kind: lifecycle.Copy, ArtifactID: "a5", Name: "app_v5", Group: "app", TargetCatalogID: "lib-prod"},
		},
		Failed: []promote.ActionFailed{
			{Action: lifecycle.Action{Kind: lifecycle.Promote, ArtifactID: "p4", Name: "app_v4", Group: "app"}, Reason: "conflict"},
		},
		FinalState: []lifecycle.Artifact{
			{ID: "p4", Name: "app_v4", CatalogID: "lib-prod", Status: lifecycle.Draft, Family: "app"},
			{ID: "p5", Name: "app_v5", CatalogID: "lib-prod", Status: lifecycle.Draft, Family: "app"},
		},
	}
}

func TestSaveAndLoadRunReport(t *testing.T) {
	for _, name := range []string{"report.yaml", "report.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)
			in := sampleReport()
			if err := SaveRunReport(path, in); err != nil {
				t.Fatalf("save run report: %v", err)
			}
			out, err := LoadRunReport(path)
			if err != nil {
				t.Fatalf("load run report: %v", err)
			}
			if out.RunID != in.RunID || out.Destination != "prod" {
				t.Fatalf("unexpected loaded report: %+v", out)
			}
			if !out.FinishedAt.Equal(in.FinishedAt) {
				t.Fatalf("finished_at = %v, want %v", out.FinishedAt, in.FinishedAt)
			}
			if len(out.Applied) != 1 || out.Applied[0].Kind != lifecycle.Copy {
				t.Fatalf("unexpected applied actions: %+v", out.Applied)
			}
			if len(out.Failed) != 1 || out.Failed[0].Reason != "conflict" || out.Failed[0].Action.Kind != lifecycle.Promote {
				t.Fatalf("unexpected failures: %+v", out.Failed)
			}
			if len(out.FinalState) != 2 || out.FinalState[1].Status != lifecycle.Draft {
				t.Fatalf("unexpected final state: %+v", out.FinalState)
			}
		})
	}
}

func TestSaveRunReportRequiresRunID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "r.yaml")
	if err := SaveRunReport(path, &promote.RunReport{}); err == nil {
		t.Fatal("expected error for report without run_id")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("report file should not exist, stat err = %v", err)
	}
}

func TestLoadRunReportMissingRunID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "r.yaml")
	if err := os.WriteFile(path, []byte("source: dev\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadRunReport(path); err == nil {
		t.Fatal("expected error for report without run_id")
	}
}

func TestReportPath(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 4, 5, 0, time.FixedZone("CET", 3600))
	got := ReportPath("tmp/reports/{date}-{run}.json", "abc", at)
	if got != "tmp/reports/20260301-110405-abc.json" {
		t.Fatalf("ReportPath = %q", got)
	}
}
