package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rajasatyajit/DisasterWatch/internal/models"
)

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db Database
}

// NewPostgresStore creates a new PostgreSQL store
func NewPostgresStore(db Database) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the tables and indexes the store depends on.
// The partial unique indexes enforce RSS dedup and the single-active-
// alert rule at the database level, so concurrent ingestion runs
// cannot race past the application checks.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS incidents (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			lat DOUBLE PRECISION NOT NULL,
			lng DOUBLE PRECISION NOT NULL,
			ts TIMESTAMPTZ NOT NULL,
			source TEXT NOT NULL,
			source_url TEXT,
			feed_url TEXT NOT NULL DEFAULT '',
			affected_regions TEXT[],
			severity TEXT NOT NULL DEFAULT '',
			country TEXT NOT NULL DEFAULT '',
			geo_method TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS incidents_source_url_ts_key
			ON incidents (source_url, ts) WHERE source_url IS NOT NULL`,
		`CREATE INDEX IF NOT EXISTS incidents_type_ts_idx ON incidents (type, ts DESC)`,
		`CREATE TABLE IF NOT EXISTS alerts (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			severity TEXT NOT NULL,
			region TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			lat DOUBLE PRECISION NOT NULL,
			lng DOUBLE PRECISION NOT NULL,
			address TEXT NOT NULL DEFAULT '',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			expires_at TIMESTAMPTZ,
			affected_radius INTEGER NOT NULL,
			evacuation_required BOOLEAN NOT NULL DEFAULT FALSE,
			emergency_contacts JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS alerts_active_loc_type_key
			ON alerts (lat, lng, type) WHERE is_active`,
		`CREATE INDEX IF NOT EXISTS alerts_active_expires_idx
			ON alerts (expires_at) WHERE is_active`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// InsertIncident stores an incident, skipping RSS duplicates
func (s *PostgresStore) InsertIncident(ctx context.Context, inc models.Incident) (bool, error) {
	query := `
		INSERT INTO incidents (
			id, type, description, lat, lng, ts, source, source_url,
			feed_url, affected_regions, severity, country, geo_method, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)
		ON CONFLICT DO NOTHING
	`

	var sourceURL *string
	if inc.SourceURL != "" {
		sourceURL = &inc.SourceURL
	}
	createdAt := inc.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	affected, err := s.db.Exec(ctx, query,
		inc.ID, inc.Type, inc.Description, inc.Location.Lat, inc.Location.Lng,
		inc.Timestamp, inc.Source, sourceURL, inc.FeedURL, inc.AffectedRegions,
		inc.Severity, inc.Country, inc.GeoMethod, createdAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert incident %s: %w", inc.ID, err)
	}
	return affected > 0, nil
}

// FindIncident looks up an incident by its dedup identity
func (s *PostgresStore) FindIncident(ctx context.Context, sourceURL string, ts time.Time) (*models.Incident, error) {
	query := incidentSelect + ` WHERE source_url = $1 AND ts = $2`

	row := s.db.QueryRow(ctx, query, sourceURL, ts)
	inc, err := scanIncident(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find incident: %w", err)
	}
	return inc, nil
}

// QueryIncidents retrieves incidents based on query parameters
func (s *PostgresStore) QueryIncidents(ctx context.Context, q models.IncidentQuery) ([]models.Incident, error) {
	query := incidentSelect + " WHERE 1=1"

	var args []any
	argIndex := 1

	if len(q.Types) > 0 {
		query += fmt.Sprintf(" AND type = ANY($%d)", argIndex)
		args = append(args, q.Types)
		argIndex++
	}

	if len(q.Sources) > 0 {
		query += fmt.Sprintf(" AND source = ANY($%d)", argIndex)
		args = append(args, q.Sources)
		argIndex++
	}

	if len(q.FeedURLs) > 0 {
		query += fmt.Sprintf(" AND feed_url = ANY($%d)", argIndex)
		args = append(args, q.FeedURLs)
		argIndex++
	}

	if len(q.Countries) > 0 {
		query += fmt.Sprintf(" AND country = ANY($%d)", argIndex)
		args = append(args, q.Countries)
		argIndex++
	}

	if !q.Since.IsZero() {
		query += fmt.Sprintf(" AND ts >= $%d", argIndex)
		args = append(args, q.Since)
		argIndex++
	}

	if !q.Until.IsZero() {
		query += fmt.Sprintf(" AND ts <= $%d", argIndex)
		args = append(args, q.Until)
		argIndex++
	}

	query += " ORDER BY ts DESC"

	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, q.Limit)
		argIndex++
	}

	if q.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIndex)
		args = append(args, q.Offset)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query incidents: %w", err)
	}
	defer rows.Close()

	var incidents []models.Incident
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		incidents = append(incidents, *inc)
	}
	return incidents, rows.Err()
}

// InsertAlert stores an alert unless an active one already covers the
// same location and type
func (s *PostgresStore) InsertAlert(ctx context.Context, alert models.Alert) (bool, error) {
	query := `
		INSERT INTO alerts (
			id, type, severity, region, description, lat, lng, address,
			is_active, expires_at, affected_radius, evacuation_required,
			emergency_contacts, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
		)
		ON CONFLICT DO NOTHING
	`

	contacts, err := json.Marshal(alert.EmergencyContacts)
	if err != nil {
		return false, fmt.Errorf("marshal contacts: %w", err)
	}

	var expiresAt *time.Time
	if !alert.ExpiresAt.IsZero() {
		expiresAt = &alert.ExpiresAt
	}

	affected, err := s.db.Exec(ctx, query,
		alert.ID, alert.Type, alert.Severity, alert.Region, alert.Description,
		alert.Location.Lat, alert.Location.Lng, alert.Location.Address,
		alert.IsActive, expiresAt, alert.AffectedRadius, alert.EvacuationRequired,
		contacts, alert.CreatedAt, alert.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert alert %s: %w", alert.ID, err)
	}
	return affected > 0, nil
}

// FindActiveAlert returns the active alert at the given location and
// type, or nil when none exists
func (s *PostgresStore) FindActiveAlert(ctx context.Context, lat, lng float64, alertType string) (*models.Alert, error) {
	query := alertSelect + ` WHERE lat = $1 AND lng = $2 AND type = $3 AND is_active`

	row := s.db.QueryRow(ctx, query, lat, lng, alertType)
	alert, err := scanAlert(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find active alert: %w", err)
	}
	return alert, nil
}

// GetAlert retrieves a single alert by ID
func (s *PostgresStore) GetAlert(ctx context.Context, id string) (*models.Alert, error) {
	query := alertSelect + ` WHERE id = $1`

	row := s.db.QueryRow(ctx, query, id)
	alert, err := scanAlert(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan alert: %w", err)
	}
	return alert, nil
}

// QueryAlerts retrieves alerts based on query parameters
func (s *PostgresStore) QueryAlerts(ctx context.Context, q models.AlertQuery) ([]models.Alert, error) {
	query := alertSelect + " WHERE 1=1"

	var args []any
	argIndex := 1

	if len(q.Types) > 0 {
		query += fmt.Sprintf(" AND type = ANY($%d)", argIndex)
		args = append(args, q.Types)
		argIndex++
	}

	if len(q.Severities) > 0 {
		query += fmt.Sprintf(" AND severity = ANY($%d)", argIndex)
		args = append(args, q.Severities)
		argIndex++
	}

	if len(q.Regions) > 0 {
		query += fmt.Sprintf(" AND region = ANY($%d)", argIndex)
		args = append(args, q.Regions)
		argIndex++
	}

	if q.ActiveOnly {
		query += " AND is_active"
	}

	if !q.Since.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", argIndex)
		args = append(args, q.Since)
		argIndex++
	}

	if !q.Until.IsZero() {
		query += fmt.Sprintf(" AND created_at <= $%d", argIndex)
		args = append(args, q.Until)
		argIndex++
	}

	query += " ORDER BY created_at DESC"

	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, q.Limit)
		argIndex++
	}

	if q.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIndex)
		args = append(args, q.Offset)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		alerts = append(alerts, *alert)
	}
	return alerts, rows.Err()
}

// DeactivateExpiredAlerts sweeps active alerts past their expiry
func (s *PostgresStore) DeactivateExpiredAlerts(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE alerts
		SET is_active = FALSE, updated_at = $1
		WHERE is_active AND expires_at IS NOT NULL AND expires_at <= $1
	`

	affected, err := s.db.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("deactivate expired alerts: %w", err)
	}
	return affected, nil
}

// Health checks the database connection
func (s *PostgresStore) Health(ctx context.Context) error {
	return s.db.Health(ctx)
}

const incidentSelect = `
	SELECT id, type, description, lat, lng, ts, source, source_url,
		   feed_url, affected_regions, severity, country, geo_method, created_at
	FROM incidents
`

const alertSelect = `
	SELECT id, type, severity, region, description, lat, lng, address,
		   is_active, expires_at, affected_radius, evacuation_required,
		   emergency_contacts, created_at, updated_at
	FROM alerts
`

func scanIncident(row pgx.Row) (*models.Incident, error) {
	var inc models.Incident
	var sourceURL *string
	err := row.Scan(
		&inc.ID, &inc.Type, &inc.Description, &inc.Location.Lat, &inc.Location.Lng,
		&inc.Timestamp, &inc.Source, &sourceURL, &inc.FeedURL, &inc.AffectedRegions,
		&inc.Severity, &inc.Country, &inc.GeoMethod, &inc.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if sourceURL != nil {
		inc.SourceURL = *sourceURL
	}
	return &inc, nil
}

func scanAlert(row pgx.Row) (*models.Alert, error) {
	var alert models.Alert
	var expiresAt *time.Time
	var contacts []byte
	err := row.Scan(
		&alert.ID, &alert.Type, &alert.Severity, &alert.Region, &alert.Description,
		&alert.Location.Lat, &alert.Location.Lng, &alert.Location.Address,
		&alert.IsActive, &expiresAt, &alert.AffectedRadius, &alert.EvacuationRequired,
		&contacts, &alert.CreatedAt, &alert.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if expiresAt != nil {
		alert.ExpiresAt = *expiresAt
	}
	if len(contacts) > 0 {
		if err := json.Unmarshal(contacts, &alert.EmergencyContacts); err != nil {
			return nil, fmt.Errorf("unmarshal contacts: %w", err)
		}
	}
	return &alert, nil
}
