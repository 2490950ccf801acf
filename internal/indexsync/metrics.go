package indexsync

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var syncOperations = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "search_sync_operations_total",
		Help: "Single-document index writes by operation and result",
	},
	[]string{"op", "result"},
)
