package inference

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// twinBuildsTotal counts twin networks built, by intervention mode.
	twinBuildsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "twindx_twin_builds_total",
		Help: "Twin networks built by intervention mode",
	}, []string{"mode"})

	emptyPosteriorTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "twindx_empty_posterior_total",
		Help: "Posterior computations that produced no beliefs",
	})

	scoreDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "twindx_counterfactual_score_duration_seconds",
		Help:    "Duration of one counterfactual score pass over all candidate diseases",
		Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 1, 10},
	}, []string{"direction"})
)
