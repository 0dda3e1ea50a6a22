package experiment

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// vignettesTotal counts processed vignettes by outcome (scored, skipped).
	vignettesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "twindx_vignettes_total",
		Help: "Vignettes processed by outcome",
	}, []string{"outcome"})

	vignetteDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "twindx_vignette_duration_seconds",
		Help:    "Time to score one vignette (posterior and both counterfactual scores)",
		Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
	})

	warningsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "twindx_data_warnings_total",
		Help: "Data-quality warnings raised while scoring, by kind",
	}, []string{"kind"})
)

const (
	outcomeScored  = "scored"
	outcomeSkipped = "skipped"
)
