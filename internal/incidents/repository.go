package incidents

import (
	"context"

	"github.com/bissquit/incident-tracker/internal/domain"
)

// Repository defines the interface for incident storage.
// Implementations return ErrIncidentNotFound for unknown ids.
type Repository interface {
	CreateIncident(ctx context.Context, incident *domain.Incident) error
	GetIncident(ctx context.Context, id int64) (*domain.Incident, error)
	ListIncidents(ctx context.Context, filter IncidentFilter) ([]domain.Incident, error)
	UpdateIncidentStatus(ctx context.Context, id int64, status domain.Status) (*domain.Incident, error)
	// DeleteIncident removes the incident and returns its last stored state.
	DeleteIncident(ctx context.Context, id int64) (*domain.Incident, error)
}

// IncidentFilter holds exact-match filters for listing incidents.
// Nil fields are not applied.
type IncidentFilter struct {
	Status   *domain.Status
	Severity *domain.Severity
}
