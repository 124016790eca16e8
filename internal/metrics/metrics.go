package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// 弹幕处理阶段
const (
	StageFetched   = "fetched"
	StageFiltered  = "filtered"
	StageEmitted   = "emitted"
	StageBottom    = "bottom"
	StageDropped   = "dropped"
	StageMalformed = "malformed"
)

// Recorder 弹幕生成过程的计数器，使用独立的 registry，不污染全局默认 registry
type Recorder struct {
	registry *prometheus.Registry
	comments *prometheus.CounterVec
	runs     *prometheus.CounterVec
	merges   *prometheus.CounterVec
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		comments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "danmaku_comments_total",
			Help: "Number of comments seen at each pipeline stage.",
		}, []string{"stage"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "danmaku_runs_total",
			Help: "Number of pipeline runs by terminal outcome.",
		}, []string{"outcome"}),
		merges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "danmaku_merge_total",
			Help: "Number of subtitle merge attempts by result.",
		}, []string{"result"}),
	}
	r.registry.MustRegister(r.comments, r.runs, r.merges)
	return r
}

func (r *Recorder) AddComments(stage string, n int) {
	if n <= 0 {
		return
	}
	r.comments.WithLabelValues(stage).Add(float64(n))
}

func (r *Recorder) IncRun(outcome string) {
	r.runs.WithLabelValues(outcome).Inc()
}

func (r *Recorder) IncMerge(ok bool) {
	result := "failed"
	if ok {
		result = "ok"
	}
	r.merges.WithLabelValues(result).Inc()
}

// Gatherer 供测试与导出使用
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteTextfile 写出 node_exporter textfile collector 可读取的文件，path 为空时不写
func (r *Recorder) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("写入指标文件失败: %w", err)
	}
	return nil
}
