package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rajasatyajit/DisasterWatch/internal/models"
)

// Store defines the interface for incident and alert storage
type Store interface {
	// InsertIncident stores an incident. It returns false when an
	// incident with the same (source_url, timestamp) already exists;
	// manual incidents without a source URL are always stored.
	InsertIncident(ctx context.Context, inc models.Incident) (bool, error)
	FindIncident(ctx context.Context, sourceURL string, ts time.Time) (*models.Incident, error)
	QueryIncidents(ctx context.Context, q models.IncidentQuery) ([]models.Incident, error)

	// InsertAlert stores an alert. It returns false when an active
	// alert already exists for the same (location, type).
	InsertAlert(ctx context.Context, alert models.Alert) (bool, error)
	FindActiveAlert(ctx context.Context, lat, lng float64, alertType string) (*models.Alert, error)
	GetAlert(ctx context.Context, id string) (*models.Alert, error)
	QueryAlerts(ctx context.Context, q models.AlertQuery) ([]models.Alert, error)

	// DeactivateExpiredAlerts marks active alerts whose expiry horizon
	// has passed as inactive and returns how many were swept.
	DeactivateExpiredAlerts(ctx context.Context, now time.Time) (int64, error)

	Health(ctx context.Context) error
}

// Database interface for dependency injection
type Database interface {
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Health(ctx context.Context) error
	IsConfigured() bool
}

// New creates a new store instance
func New(db Database) Store {
	if db.IsConfigured() {
		return NewPostgresStore(db)
	}
	// Fallback to in-memory store if no database
	return NewInMemoryStore()
}
