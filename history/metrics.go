package history

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	entriesRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lpdash_history_entries_total",
		Help: "History entries written, by action.",
	}, []string{"action"})

	writeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lpdash_history_write_failures_total",
		Help: "History writes that failed and were swallowed, by action.",
	}, []string{"action"})
)
