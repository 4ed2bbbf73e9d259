package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики оркестратора. Экспортируются через /metrics (promhttp).
var (
	// ShowingsProcessed — количество обработанных заявок по терминальному статусу.
	ShowingsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "showrunner_showings_processed_total",
		Help: "Showing requests driven to a terminal booking status.",
	}, []string{"status"})

	// AddressLookups — количество обращений к сервису адресов по результату.
	AddressLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "showrunner_address_lookups_total",
		Help: "Address lookup calls by result (hit, resolved, failed).",
	}, []string{"result"})

	// SweepRuns — количество запусков cancellation sweep.
	SweepRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "showrunner_sweep_runs_total",
		Help: "Cancellation sweep executions.",
	})

	// ExecutorReconnects — количество переподключений executor'а.
	ExecutorReconnects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "showrunner_executor_reconnects_total",
		Help: "Executor reconnect attempts by result (ok, failed).",
	}, []string{"result"})

	// QueueDepth — текущая длина очереди заявок.
	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "showrunner_queue_depth",
		Help: "Showing requests currently waiting in the in-memory queue.",
	})
)
