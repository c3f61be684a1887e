package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bibi40k/vmware-template-lifecycle/pkg/lifecycle"
	"github.com/Bibi40k/vmware-template-lifecycle/pkg/promote"
)

func sampleReport() *promote.RunReport {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &promote.RunReport{
		RunID:      "run-1",
		Source:     "dev",
		StartedAt:  start,
		FinishedAt: start.Add(2 * time.Second),
		Applied: []lifecycle.Action{
			{Kind: lifecycle.Promote, Name: "web_v2"},
			{Kind: lifecycle.Retire, Name: "web_v1"},
		},
		Failed: []promote.ActionFailed{
			{Action: lifecycle.Action{Kind: lifecycle.Delete, Name: "web_v0"}, Reason: "not found"},
		},
		FinalState: []lifecycle.Artifact{
			{Name: "web_v2", Status: lifecycle.Published},
			{Name: "web_v1", Status: lifecycle.Retired},
			{Name: "web_v0", Status: lifecycle.Retired},
		},
	}
}

func TestRecorder_Observe(t *testing.T) {
	r := NewRecorder()
	r.Observe(sampleReport())

	assert.Equal(t, 1.0, testutil.ToFloat64(r.actions.WithLabelValues("dev", "", "Promote", ResultApplied)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.actions.WithLabelValues("dev", "", "Retire", ResultApplied)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.actions.WithLabelValues("dev", "", "Delete", ResultFailed)))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.actions.WithLabelValues("dev", "", "Copy", ResultApplied)))

	assert.Equal(t, 0.0, testutil.ToFloat64(r.lastSuccess.WithLabelValues("dev", "")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.lastDuration.WithLabelValues("dev", "")))

	assert.Equal(t, 2.0, testutil.ToFloat64(r.artifacts.WithLabelValues("dev", "Retired")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.artifacts.WithLabelValues("dev", "Published")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.artifacts.WithLabelValues("dev", "Draft")))

	// 4 kinds x 2 results
	assert.Equal(t, 8, testutil.CollectAndCount(r.actions))
}

func TestRecorder_ObserveAbort(t *testing.T) {
	r := NewRecorder()
	at := time.Unix(1_700_000_000, 0)
	r.ObserveAbort("dev", "prod", at, 500*time.Millisecond)

	assert.Equal(t, 0.0, testutil.ToFloat64(r.lastSuccess.WithLabelValues("dev", "prod")))
	assert.Equal(t, 1_700_000_000.0, testutil.ToFloat64(r.lastRun.WithLabelValues("dev", "prod")))
	assert.Equal(t, 0.5, testutil.ToFloat64(r.lastDuration.WithLabelValues("dev", "prod")))
}

func TestRecorder_WriteTextfile(t *testing.T) {
	r := NewRecorder()
	r.Observe(sampleReport())

	path := filepath.Join(t.TempDir(), "textfile", "tmplctl.prom")
	require.NoError(t, r.WriteTextfile(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(content)
	assert.Contains(t, text, "tmplctl_last_run_success")
	assert.Contains(t, text, `kind="Promote",result="applied",source="dev"} 1`)
	assert.NotContains(t, text, "go_goroutines")
}
