// Package metrics 记录每次运行的行数、耗时和结果
package metrics

import (
	"UberInsight/src/pipeline"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "uberinsight"

// Recorder 使用独立的registry，便于测试和多实例
type Recorder struct {
	registry *prometheus.Registry

	runs         *prometheus.CounterVec
	runDuration  prometheus.Histogram
	rows         *prometheus.CounterVec
	unparseable  prometheus.Counter
	warnings     prometheus.Counter
	lastSuccess  prometheus.Gauge
	lastRowsKept prometheus.Gauge
}

func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Recorder{
		registry: registry,
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total pipeline runs by status.",
		}, []string{"status"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of pipeline runs.",
			Buckets:   prometheus.DefBuckets,
		}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_total",
			Help:      "Rows seen by stage: loaded, dropped_missing, dropped_duplicates, exported.",
		}, []string{"stage"}),
		unparseable: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unparseable_timestamps_total",
			Help:      "Pickup timestamps that could not be parsed.",
		}),
		warnings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "warnings_total",
			Help:      "Failures of optional outputs and notifiers.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
		lastRowsKept: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_rows_exported",
			Help:      "Rows exported by the last successful run.",
		}),
	}

	registry.MustRegister(r.runs, r.runDuration, r.rows, r.unparseable, r.warnings, r.lastSuccess, r.lastRowsKept)
	return r
}

// Registry 返回内部registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler 暴露 /metrics
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Observe 记录一次运行，err非空时只计失败次数和耗时
func (r *Recorder) Observe(report *pipeline.Report, err error) {
	if report != nil {
		r.runDuration.Observe(report.Duration.Seconds())
	}
	if err != nil || report == nil {
		r.runs.WithLabelValues("failed").Inc()
		return
	}

	r.runs.WithLabelValues("succeeded").Inc()
	r.rows.WithLabelValues("loaded").Add(float64(report.Loaded))
	r.rows.WithLabelValues("dropped_missing").Add(float64(report.Clean.DroppedMissing))
	r.rows.WithLabelValues("dropped_duplicates").Add(float64(report.Clean.DroppedDuplicates))
	r.rows.WithLabelValues("exported").Add(float64(report.Clean.After))
	r.unparseable.Add(float64(report.Unparseable))
	if report.Warnings != nil {
		r.warnings.Add(float64(len(report.Warnings.Errors)))
	}
	r.lastSuccess.Set(float64(report.Started.Add(report.Duration).Unix()))
	r.lastRowsKept.Set(float64(report.Clean.After))
}
