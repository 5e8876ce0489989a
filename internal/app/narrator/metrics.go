package narrator

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	Generations *prometheus.CounterVec
}

var metrics = &Metrics{
	Generations: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "narrator",
		Name:      "generate_total",
	}, []string{"status"}),
}

func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(metrics.Generations)
}
