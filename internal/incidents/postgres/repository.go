// Package postgres provides PostgreSQL implementation of the incidents repository.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/bissquit/incident-tracker/internal/domain"
	"github.com/bissquit/incident-tracker/internal/incidents"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const incidentColumns = `id, title, description, reported_by, severity, status, created_at`

// Repository implements the incidents.Repository interface using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreateIncident inserts a new incident and sets its ID.
func (r *Repository) CreateIncident(ctx context.Context, incident *domain.Incident) error {
	query := `
		INSERT INTO incidents (title, description, reported_by, severity, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query,
		incident.Title,
		incident.Description,
		incident.ReportedBy,
		incident.Severity,
		incident.Status,
		incident.Timestamp,
	).Scan(&incident.ID)

	if err != nil {
		return fmt.Errorf("create incident: %w", err)
	}
	return nil
}

// GetIncident retrieves an incident by its ID.
func (r *Repository) GetIncident(ctx context.Context, id int64) (*domain.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE id = $1`

	incident, err := scanIncident(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
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
	argNum := 1

	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, *filter.Status)
		argNum++
	}

	if filter.Severity != nil {
		query += fmt.Sprintf(" AND severity = $%d", argNum)
		args = append(args, *filter.Severity)
	}

	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	defer rows.Close()

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
	query := `UPDATE incidents SET status = $2 WHERE id = $1 RETURNING ` + incidentColumns

	incident, err := scanIncident(r.db.QueryRow(ctx, query, id, status))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, incidents.ErrIncidentNotFound
		}
		return nil, fmt.Errorf("update incident status: %w", err)
	}
	return incident, nil
}

// DeleteIncident deletes an incident and returns the deleted row.
func (r *Repository) DeleteIncident(ctx context.Context, id int64) (*domain.Incident, error) {
	query := `DELETE FROM incidents WHERE id = $1 RETURNING ` + incidentColumns

	incident, err := scanIncident(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, incidents.ErrIncidentNotFound
		}
		return nil, fmt.Errorf("delete incident: %w", err)
	}
	return incident, nil
}

func scanIncident(row pgx.Row) (*domain.Incident, error) {
	var incident domain.Incident
	err := row.Scan(
		&incident.ID,
		&incident.Title,
		&incident.Description,
		&incident.ReportedBy,
		&incident.Severity,
		&incident.Status,
		&incident.Timestamp,
	)
	if err != nil {
		return nil, err
	}
	incident.Timestamp = incident.Timestamp.UTC()
	return &incident, nil
}
