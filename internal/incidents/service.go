// Package incidents provides HTTP handlers and business logic for incident reports.
package incidents

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/bissquit/incident-tracker/internal/domain"
	"github.com/bissquit/incident-tracker/internal/pkg/ctxlog"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// Service implements incident business logic.
type Service struct {
	repo      Repository
	validator *validator.Validate
	now       func() time.Time
}

// NewService creates a new incident service.
func NewService(repo Repository) *Service {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(fmt.Sprintf("register notblank validation: %v", err))
	}

	return &Service{
		repo:      repo,
		validator: v,
		now:       time.Now,
	}
}

// CreateIncidentInput holds data for creating an incident.
// Field order defines the order of reported missing fields.
type CreateIncidentInput struct {
	Title       string           `json:"title" validate:"notblank"`
	Description string           `json:"description" validate:"notblank"`
	ReportedBy  string           `json:"reported_by" validate:"notblank"`
	Severity    *domain.Severity `json:"severity"`
}

// UpdateIncidentInput holds data for updating an incident.
// A nil Status leaves the incident untouched. PayloadErr carries a body
// decoding failure, which is reported only after the id lookup.
type UpdateIncidentInput struct {
	Status     *domain.Status
	PayloadErr error
}

// CreateIncident validates input and stores a new open incident.
// A nil input means the request carried no payload.
func (s *Service) CreateIncident(ctx context.Context, input *CreateIncidentInput) (*domain.Incident, error) {
	if input == nil {
		return nil, ErrNoData
	}

	if err := s.validator.Struct(input); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return nil, fmt.Errorf("validate input: %w", err)
		}
		missing := make([]string, 0, len(validationErrors))
		for _, fe := range validationErrors {
			missing = append(missing, fe.Field())
		}
		return nil, &MissingFieldsError{Fields: missing}
	}

	severity := domain.SeverityMedium
	if input.Severity != nil {
		if !input.Severity.IsValid() {
			return nil, ErrInvalidSeverity
		}
		severity = *input.Severity
	}

	incident := &domain.Incident{
		Title:       input.Title,
		Description: input.Description,
		ReportedBy:  input.ReportedBy,
		Severity:    severity,
		Status:      domain.StatusOpen,
		// Stores keep microseconds; truncate so the response matches later reads.
		Timestamp: s.now().UTC().Truncate(time.Microsecond),
	}

	if err := s.repo.CreateIncident(ctx, incident); err != nil {
		return nil, fmt.Errorf("create incident: %w", err)
	}

	recordIncidentCreated(incident.Severity)
	ctxlog.FromContext(ctx).Info("incident created",
		"incident_id", incident.ID,
		"severity", incident.Severity,
	)

	return incident, nil
}

// GetIncident retrieves an incident by ID.
func (s *Service) GetIncident(ctx context.Context, id int64) (*domain.Incident, error) {
	return s.repo.GetIncident(ctx, id)
}

// ListIncidents returns incidents matching the filter, newest first.
func (s *Service) ListIncidents(ctx context.Context, filter IncidentFilter) ([]domain.Incident, error) {
	incidents, err := s.repo.ListIncidents(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	return incidents, nil
}

// UpdateIncident changes the status of an existing incident.
// The lookup happens first, so an unknown id wins over any payload error.
func (s *Service) UpdateIncident(ctx context.Context, id int64, input *UpdateIncidentInput) (*domain.Incident, error) {
	incident, err := s.repo.GetIncident(ctx, id)
	if err != nil {
		return nil, err
	}

	if input == nil {
		return nil, ErrNoData
	}

	if input.PayloadErr != nil {
		return nil, input.PayloadErr
	}

	if input.Status == nil {
		return incident, nil
	}

	if !input.Status.IsValid() {
		return nil, ErrInvalidStatus
	}

	updated, err := s.repo.UpdateIncidentStatus(ctx, id, *input.Status)
	if err != nil {
		return nil, err
	}

	recordStatusChange(updated.Status)
	ctxlog.FromContext(ctx).Info("incident status updated",
		"old_status", incident.Status,
		"new_status", updated.Status,
	)

	return updated, nil
}

// DeleteIncident removes an incident and returns its pre-deletion state.
func (s *Service) DeleteIncident(ctx context.Context, id int64) (*domain.Incident, error) {
	deleted, err := s.repo.DeleteIncident(ctx, id)
	if err != nil {
		return nil, err
	}

	recordIncidentDeleted()
	ctxlog.FromContext(ctx).Info("incident deleted", "title", deleted.Title)

	return deleted, nil
}
