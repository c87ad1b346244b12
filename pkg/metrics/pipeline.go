package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics records outcomes for batch processing runs.
type PipelineMetrics struct {
	duration       *prometheus.HistogramVec
	success        *prometheus.CounterVec
	failure        *prometheus.CounterVec
	rowsSkipped    *prometheus.CounterVec
	imagesRehosted *prometheus.CounterVec
}

// NewPipelineMetrics registers the pipeline metrics on the provided registerer.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	if reg == nil {
		return &PipelineMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "batch_duration_seconds",
		Help:    "Duration of batch pipeline runs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "batch_success",
		Help: "Successfully finalized batches.",
	}, []string{"category"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "batch_failure",
		Help: "Failed batch runs.",
	}, []string{"stage"})
	rowsSkipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "manifest_rows_skipped",
		Help: "Item rows skipped during manifest parsing.",
	}, []string{"reason"})
	imagesRehosted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "images_rehosted",
		Help: "Item images copied to hosted storage.",
	}, []string{"outcome"})
	reg.MustRegister(duration, success, failure, rowsSkipped, imagesRehosted)
	return &PipelineMetrics{
		duration:       duration,
		success:        success,
		failure:        failure,
		rowsSkipped:    rowsSkipped,
		imagesRehosted: imagesRehosted,
	}
}

// ObserveStage records the duration of a named pipeline stage.
func (p *PipelineMetrics) ObserveStage(stage string, duration time.Duration) {
	if p == nil || p.duration == nil {
		return
	}
	p.duration.WithLabelValues(normalizeLabel(stage)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the batch category.
func (p *PipelineMetrics) IncSuccess(category string) {
	if p == nil || p.success == nil {
		return
	}
	p.success.WithLabelValues(normalizeLabel(category)).Inc()
}

// IncFailure increments the failure counter for the stage that failed.
func (p *PipelineMetrics) IncFailure(stage string) {
	if p == nil || p.failure == nil {
		return
	}
	p.failure.WithLabelValues(normalizeLabel(stage)).Inc()
}

// AddRowsSkipped records item rows dropped during parsing.
func (p *PipelineMetrics) AddRowsSkipped(reason string, count int) {
	if p == nil || p.rowsSkipped == nil || count <= 0 {
		return
	}
	p.rowsSkipped.WithLabelValues(normalizeLabel(reason)).Add(float64(count))
}

// IncImageRehost records one image rehost attempt by outcome.
func (p *PipelineMetrics) IncImageRehost(outcome string) {
	if p == nil || p.imagesRehosted == nil {
		return
	}
	p.imagesRehosted.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
