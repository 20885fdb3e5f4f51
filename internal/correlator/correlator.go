// Package correlator turns qualifying incidents into region-level
// alerts, enforcing the single-active-alert rule per location and type.
package correlator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/rajasatyajit/DisasterWatch/internal/logger"
	"github.com/rajasatyajit/DisasterWatch/internal/metrics"
	"github.com/rajasatyajit/DisasterWatch/internal/models"
	"github.com/rajasatyajit/DisasterWatch/internal/store"
)

// typeMapping maps incident type keywords to alert types. Order
// matters: the first keyword contained in the incident type wins.
var typeMapping = []struct {
	keyword   string
	alertType string
}{
	{"earthquake", models.AlertEarthquake},
	{"flood", models.AlertFlood},
	{"fire", models.AlertFire},
	{"wildfire", models.AlertFire},
	{"cyclone", models.AlertCyclone},
	{"hurricane", models.AlertCyclone},
	{"typhoon", models.AlertCyclone},
	{"storm", models.AlertStorm},
	{"landslide", models.AlertLandslide},
	{"heatwave", models.AlertHeatwave},
	{"drought", models.AlertHeatwave},
	{"tsunami", models.AlertFlood},
	{"volcano", models.AlertFire},
}

var severityMapping = map[string]string{
	"extreme":  models.SeverityCritical,
	"critical": models.SeverityCritical,
	"severe":   models.SeverityHigh,
	"high":     models.SeverityHigh,
	"moderate": models.SeverityMedium,
	"medium":   models.SeverityMedium,
	"minor":    models.SeverityLow,
	"low":      models.SeverityLow,
}

// expiryHours is the base alert lifetime per alert type.
var expiryHours = map[string]float64{
	models.AlertEarthquake: 48,
	models.AlertFlood:      72,
	models.AlertCyclone:    96,
	models.AlertFire:       48,
	models.AlertHeatwave:   120,
}

const defaultExpiryHours = 24

// Correlator derives alerts from stored incidents
type Correlator struct {
	store store.Store
	clock clockwork.Clock
}

// New creates a correlator backed by the given store
func New(s store.Store) *Correlator {
	return &Correlator{store: s, clock: clockwork.NewRealClock()}
}

// NewWithClock creates a correlator with an injected clock for tests
func NewWithClock(s store.Store, clock clockwork.Clock) *Correlator {
	return &Correlator{store: s, clock: clock}
}

// MapIncidentType resolves an incident type to its alert type. An
// empty incident type yields an empty alert type, meaning no alert.
func MapIncidentType(incidentType string) string {
	if incidentType == "" {
		return ""
	}
	t := strings.ToLower(incidentType)
	for _, m := range typeMapping {
		if strings.Contains(t, m.keyword) {
			return m.alertType
		}
	}
	return models.AlertFire
}

// MapSeverity resolves an incident severity to an alert severity.
// Absent or unrecognized severities default to medium.
func MapSeverity(incidentSeverity string) string {
	if incidentSeverity == "" {
		return models.SeverityMedium
	}
	if mapped, ok := severityMapping[strings.ToLower(incidentSeverity)]; ok {
		return mapped
	}
	return models.SeverityMedium
}

// FromIncident evaluates one incident for alert creation. It returns
// the resulting alert (existing or new) and whether a new alert was
// created. Low-severity incidents and incidents without a usable type
// produce no alert.
func (c *Correlator) FromIncident(ctx context.Context, inc models.Incident) (*models.Alert, bool, error) {
	alertType := MapIncidentType(inc.Type)
	if alertType == "" {
		return nil, false, nil
	}

	severity := MapSeverity(inc.Severity)
	if severity == models.SeverityLow {
		logger.Debug("Skipping alert for low severity incident", "incident_id", inc.ID, "type", inc.Type)
		return nil, false, nil
	}

	existing, err := c.store.FindActiveAlert(ctx, inc.Location.Lat, inc.Location.Lng, alertType)
	if err != nil {
		return nil, false, fmt.Errorf("find active alert: %w", err)
	}
	if existing != nil {
		return existing, false, nil
	}

	now := c.clock.Now().UTC()
	region := regionName(inc)
	alert := models.Alert{
		ID:          uuid.NewString(),
		Type:        alertType,
		Severity:    severity,
		Region:      region,
		Description: fmt.Sprintf("%s Alert: %s", strings.ToUpper(alertType), inc.Description),
		Location: models.AlertLocation{
			Lat:     inc.Location.Lat,
			Lng:     inc.Location.Lng,
			Address: region,
		},
		IsActive:           true,
		ExpiresAt:          now.Add(expiryDuration(alertType, severity)),
		AffectedRadius:     affectedRadius(severity),
		EvacuationRequired: evacuationRequired(alertType, severity),
		EmergencyContacts:  emergencyContacts(inc.Country, alertType),
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	stored, err := c.store.InsertAlert(ctx, alert)
	if err != nil {
		return nil, false, fmt.Errorf("insert alert: %w", err)
	}
	if !stored {
		// A concurrent run claimed the slot first; return its alert.
		winner, err := c.store.FindActiveAlert(ctx, inc.Location.Lat, inc.Location.Lng, alertType)
		if err != nil {
			return nil, false, fmt.Errorf("find winning alert: %w", err)
		}
		return winner, false, nil
	}

	metrics.RecordAlertCreated(alertType, severity)
	logger.Info("Created alert",
		"alert_id", alert.ID,
		"type", alertType,
		"severity", severity,
		"region", region,
	)
	return &alert, true, nil
}

// SweepExpired deactivates alerts past their expiry horizon
func (c *Correlator) SweepExpired(ctx context.Context) (int64, error) {
	swept, err := c.store.DeactivateExpiredAlerts(ctx, c.clock.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("sweep expired alerts: %w", err)
	}
	if swept > 0 {
		metrics.RecordAlertsExpired(swept)
		logger.Info("Deactivated expired alerts", "count", swept)
	}
	return swept, nil
}

func regionName(inc models.Incident) string {
	if len(inc.AffectedRegions) > 0 {
		return strings.Join(inc.AffectedRegions, ", ")
	}
	if inc.Country != "" {
		return inc.Country
	}
	return "Unknown Region"
}

func expiryDuration(alertType, severity string) time.Duration {
	hours, ok := expiryHours[alertType]
	if !ok {
		hours = defaultExpiryHours
	}
	switch severity {
	case models.SeverityCritical:
		hours *= 1.5
	case models.SeverityLow:
		hours *= 0.5
	}
	return time.Duration(hours * float64(time.Hour))
}

func affectedRadius(severity string) int {
	switch severity {
	case models.SeverityCritical:
		return 25000
	case models.SeverityHigh:
		return 15000
	case models.SeverityMedium:
		return 10000
	default:
		return models.DefaultAffectedRadius
	}
}

func evacuationRequired(alertType, severity string) bool {
	if severity == models.SeverityCritical {
		return true
	}
	if severity != models.SeverityHigh {
		return false
	}
	switch alertType {
	case models.AlertFlood, models.AlertCyclone, models.AlertFire:
		return true
	}
	return false
}

func emergencyContacts(country, alertType string) []models.EmergencyContact {
	if country != "India" {
		return []models.EmergencyContact{
			{Name: "Local Emergency Services", Phone: "Check local emergency number", Role: "Emergency Coordinator"},
		}
	}

	contacts := []models.EmergencyContact{
		{Name: "National Emergency Response", Phone: "112", Role: "Emergency Coordinator"},
	}
	switch alertType {
	case models.AlertFire:
		contacts = append(contacts, models.EmergencyContact{Name: "Fire Brigade", Phone: "101", Role: "Fire Department"})
	case models.AlertFlood:
		contacts = append(contacts, models.EmergencyContact{Name: "Flood Control Room", Phone: "1070", Role: "Flood Management"})
	case models.AlertEarthquake:
		contacts = append(contacts, models.EmergencyContact{Name: "NDMA Emergency", Phone: "011-2674-2432", Role: "Disaster Management"})
	default:
		contacts = append(contacts, models.EmergencyContact{Name: "State Emergency Services", Phone: "108", Role: "Emergency Response"})
	}
	return contacts
}
