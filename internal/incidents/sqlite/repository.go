// Package sqlite provides SQLite implementation of the incidents repository.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bissquit/incident-tracker/internal/domain"
	"github.com/bissquit/incident-tracker/internal/incidents"
)

const incidentColumns = `id, title, description, reported_by, severity, status, created_at`

// timeLayout is fixed-width so that ORDER BY on the text column follows time order.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// Repository implements the incidents.Repository interface using SQLite.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new SQLite repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateIncident inserts a new incident and sets its ID.
func (r *Repository) CreateIncident(ctx context.Context, incident *domain.Incident) error {
	query := `
		INSERT INTO incidents (title, description, reported_by, severity, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		incident.Title,
		incident.Description,
		incident.ReportedBy,
		string(incident.Severity),
		string(incident.Status),
		formatTime(incident.Timestamp),
	).Scan(&incident.ID)

	if err != nil {
		return fmt.Errorf("create incident: %w", err)
	}
	return nil
}

// GetIncident retrieves an incident by its ID.
func (r *Repository) GetIncident(ctx context.Context, id int64) (*domain.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE id = ?`

	incident, err := scanIncident(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, incidents.ErrIncidentNotFound
		}
		return nil, fmt.Errorf("get incident: %w", err)
	}
	return incident, nil
}

// ListIncidents retrieves incidents matching the filter, newest first.
func (r *Repository) ListIncidents(ctx context.Context, filter incidents.IncidentFilter) ([]domain.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE 1=1`
	var args []interface{}

	if filter.Status != nil {
		query += " AND status = ?"
		args = append(args, string(*filter.Status))
	}

	if filter.Severity != nil {
		query += " AND severity = ?"
		args = append(args, string(*filter.Severity))
	}

	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := make([]domain.Incident, 0)
	for rows.Next() {
		incident, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		result = append(result, *incident)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate incidents: %w", err)
	}

	return result, nil
}

// UpdateIncidentStatus sets the status of an incident and returns the stored row.
func (r *Repository) UpdateIncidentStatus(ctx context.Context, id int64, status domain.Status) (*domain.Incident, error) {
	query := `UPDATE incidents SET status = ? WHERE id = ? RETURNING ` + incidentColumns

	incident, err := scanIncident(r.db.QueryRowContext(ctx, query, string(status), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, incidents.ErrIncidentNotFound
		}
		return nil, fmt.Errorf("update incident status: %w", err)
	}
	return incident, nil
}

// DeleteIncident deletes an incident and returns the deleted row.
func (r *Repository) DeleteIncident(ctx context.Context, id int64) (*domain.Incident, error) {
	query := `DELETE FROM incidents WHERE id = ? RETURNING ` + incidentColumns

	incident, err := scanIncident(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, incidents.ErrIncidentNotFound
		}
		return nil, fmt.Errorf("delete incident: %w", err)
	}
	return incident, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIncident(row rowScanner) (*domain.Incident, error) {
	var (
		incident  domain.Incident
		severity  string
		status    string
		createdAt string
	)
	err := row.Scan(
		&incident.ID,
		&incident.Title,
		&incident.Description,
		&incident.ReportedBy,
		&severity,
		&status,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	ts, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}

	incident.Severity = domain.Severity(severity)
	incident.Status = domain.Status(status)
	incident.Timestamp = ts
	return &incident, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
