package models

import "time"

// Alert types form a closed enumeration.
const (
	AlertFlood      = "flood"
	AlertFire       = "fire"
	AlertEarthquake = "earthquake"
	AlertCyclone    = "cyclone"
	AlertLandslide  = "landslide"
	AlertHeatwave   = "heatwave"
	AlertStorm      = "storm"
)

// Alert severity levels.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// DefaultAffectedRadius is the fallback affected radius in meters.
const DefaultAffectedRadius = 5000

// EmergencyContact is one contact attached to an alert
type EmergencyContact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Role  string `json:"role"`
}

// AlertLocation is an alert's location with an optional display address
type AlertLocation struct {
	Lat     float64 `json:"lat" db:"lat"`
	Lng     float64 `json:"lng" db:"lng"`
	Address string  `json:"address,omitempty" db:"address"`
}

// Alert is a region-level, time-bounded advisory derived from one or
// more qualifying incidents. At most one active alert exists per
// (location, type) pair; IsActive transitions true to false only via
// the expiry sweep.
type Alert struct {
	ID                 string             `json:"id" db:"id"`
	Type               string             `json:"type" db:"type"`
	Severity           string             `json:"severity" db:"severity"`
	Region             string             `json:"region" db:"region"`
	Description        string             `json:"description" db:"description"`
	Location           AlertLocation      `json:"location"`
	IsActive           bool               `json:"is_active" db:"is_active"`
	ExpiresAt          time.Time          `json:"expires_at,omitempty" db:"expires_at"`
	AffectedRadius     int                `json:"affected_radius" db:"affected_radius"`
	EvacuationRequired bool               `json:"evacuation_required" db:"evacuation_required"`
	EmergencyContacts  []EmergencyContact `json:"emergency_contacts,omitempty"`
	CreatedAt          time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at" db:"updated_at"`
}

// Expired reports whether the alert's expiry horizon has passed.
// Alerts without an expiry never expire.
func (a Alert) Expired(now time.Time) bool {
	return !a.ExpiresAt.IsZero() && !a.ExpiresAt.After(now)
}

// AlertQuery represents query parameters for filtering alerts
type AlertQuery struct {
	Types      []string  `json:"types"`
	Severities []string  `json:"severities"`
	Regions    []string  `json:"regions"`
	ActiveOnly bool      `json:"active_only"`
	Since      time.Time `json:"since"`
	Until      time.Time `json:"until"`
	Limit      int       `json:"limit"`
	Offset     int       `json:"offset"`
}

// Matches checks if an alert matches the query criteria
func (q AlertQuery) Matches(alert Alert) bool {
	if len(q.Types) > 0 && !contains(q.Types, alert.Type) {
		return false
	}
	if len(q.Severities) > 0 && !contains(q.Severities, alert.Severity) {
		return false
	}
	if len(q.Regions) > 0 && !contains(q.Regions, alert.Region) {
		return false
	}
	if q.ActiveOnly && !alert.IsActive {
		return false
	}
	if !q.Since.IsZero() && alert.CreatedAt.Before(q.Since) {
		return false
	}
	if !q.Until.IsZero() && alert.CreatedAt.After(q.Until) {
		return false
	}
	return true
}
