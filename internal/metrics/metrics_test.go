package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, r *Recorder, name, label, value string) float64 {
	t.Helper()
	families, err := r.Gatherer().Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if hasLabel(m, label, value) {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func hasLabel(m *dto.Metric, name, value string) bool {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name && lp.GetValue() == value {
			return true
		}
	}
	return false
}

func TestRecorder_Counters(t *testing.T) {
	r := NewRecorder()

	r.AddComments(StageFetched, 120)
	r.AddComments(StageFetched, 30)
	r.AddComments(StageDropped, 0)
	r.AddComments(StageBottom, -5)
	r.IncRun("success")
	r.IncRun("success")
	r.IncRun("no_match")
	r.IncMerge(true)
	r.IncMerge(false)
	r.IncMerge(false)

	assert.Equal(t, float64(150), counterValue(t, r, "danmaku_comments_total", "stage", StageFetched))
	assert.Equal(t, float64(0), counterValue(t, r, "danmaku_comments_total", "stage", StageDropped))
	assert.Equal(t, float64(2), counterValue(t, r, "danmaku_runs_total", "outcome", "success"))
	assert.Equal(t, float64(1), counterValue(t, r, "danmaku_runs_total", "outcome", "no_match"))
	assert.Equal(t, float64(1), counterValue(t, r, "danmaku_merge_total", "result", "ok"))
	assert.Equal(t, float64(2), counterValue(t, r, "danmaku_merge_total", "result", "failed"))
}

func TestRecorder_IndependentRegistries(t *testing.T) {
	a := NewRecorder()
	b := NewRecorder()
	a.IncRun("success")

	assert.Equal(t, float64(1), counterValue(t, a, "danmaku_runs_total", "outcome", "success"))
	assert.Equal(t, float64(0), counterValue(t, b, "danmaku_runs_total", "outcome", "success"))
}

func TestRecorder_WriteTextfile(t *testing.T) {
	r := NewRecorder()
	r.AddComments(StageEmitted, 42)

	require.NoError(t, r.WriteTextfile(""))

	path := filepath.Join(t.TempDir(), "danmaku.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `danmaku_comments_total{stage="emitted"} 42`), string(data))
}
