package incidents

import (
	"github.com/bissquit/incident-tracker/internal/domain"
	"github.com/bissquit/incident-tracker/internal/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	incidentsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "incidents",
			Name:      "created_total",
			Help:      "Total incidents created by severity",
		},
		[]string{"severity"},
	)

	incidentStatusChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "incidents",
			Name:      "status_changes_total",
			Help:      "Total status updates by new status",
		},
		[]string{"status"},
	)

	incidentsDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "incidents",
			Name:      "deleted_total",
			Help:      "Total incidents deleted",
		},
	)
)

func recordIncidentCreated(severity domain.Severity) {
	incidentsCreated.WithLabelValues(string(severity)).Inc()
}

func recordStatusChange(status domain.Status) {
	incidentStatusChanges.WithLabelValues(string(status)).Inc()
}

func recordIncidentDeleted() {
	incidentsDeleted.Inc()
}
