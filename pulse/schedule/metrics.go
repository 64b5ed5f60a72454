package schedule

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ticksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lpdash_scheduler_ticks_total",
		Help: "Scheduler ticks run.",
	})

	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lpdash_scheduler_tick_duration_seconds",
		Help:    "Duration of scheduler ticks.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30},
	})

	processedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lpdash_scheduler_records_total",
		Help: "Scheduled updates handled by the dispatcher, by outcome.",
	}, []string{"outcome"})
)
