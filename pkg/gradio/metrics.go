package gradio

import (
	appmetrics "narrator/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	QueryTime *prometheus.HistogramVec
	Errors    *prometheus.CounterVec
}

var metrics = &Metrics{
	QueryTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Subsystem: "gradio",
		Name:      "request_seconds",
		Buckets:   appmetrics.RequestSecondsBuckets,
	}, []string{"call"}),
	Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "gradio",
		Name:      "errors_total",
	}, []string{"call", "err_code"}),
}

func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(metrics.QueryTime)
	reg.MustRegister(metrics.Errors)
}
