package models

import "time"

// Incident source values
const (
	SourceManual = "manual"
	SourceRSS    = "RSS"
)

// Location is a geographic point
type Location struct {
	Lat float64 `json:"lat" db:"lat"`
	Lng float64 `json:"lng" db:"lng"`
}

// Valid reports whether the coordinates are inside the WGS84 envelope.
func (l Location) Valid() bool {
	return l.Lat >= -90 && l.Lat <= 90 && l.Lng >= -180 && l.Lng <= 180
}

// Incident represents a single geolocated disaster event derived from
// one feed item or one manual report. An RSS-origin incident is
// uniquely identified by (SourceURL, Timestamp); manual incidents
// carry no SourceURL and are never deduplicated.
type Incident struct {
	ID              string    `json:"id" db:"id"`
	Type            string    `json:"type" db:"type"`
	Description     string    `json:"description" db:"description"`
	Location        Location  `json:"location"`
	Timestamp       time.Time `json:"timestamp" db:"ts"`
	Source          string    `json:"source" db:"source"`
	SourceURL       string    `json:"source_url,omitempty" db:"source_url"`
	FeedURL         string    `json:"feed_url,omitempty" db:"feed_url"`
	AffectedRegions []string  `json:"affected_regions,omitempty" db:"affected_regions"`
	Severity        string    `json:"severity,omitempty" db:"severity"`
	Country         string    `json:"country,omitempty" db:"country"`
	// GeoMethod records which resolution method produced the
	// coordinates (geo, georss, polygon, circle, text, gazetteer) so
	// consumers can discount low-confidence extractions.
	GeoMethod string    `json:"geo_method,omitempty" db:"geo_method"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// IncidentQuery represents query parameters for filtering incidents
type IncidentQuery struct {
	Types     []string  `json:"types"`
	Sources   []string  `json:"sources"`
	FeedURLs  []string  `json:"feed_urls"`
	Countries []string  `json:"countries"`
	Since     time.Time `json:"since"`
	Until     time.Time `json:"until"`
	Limit     int       `json:"limit"`
	Offset    int       `json:"offset"`
}

// Matches checks if an incident matches the query criteria
func (q IncidentQuery) Matches(inc Incident) bool {
	if len(q.Types) > 0 && !contains(q.Types, inc.Type) {
		return false
	}
	if len(q.Sources) > 0 && !contains(q.Sources, inc.Source) {
		return false
	}
	if len(q.FeedURLs) > 0 && !contains(q.FeedURLs, inc.FeedURL) {
		return false
	}
	if len(q.Countries) > 0 && !contains(q.Countries, inc.Country) {
		return false
	}
	if !q.Since.IsZero() && inc.Timestamp.Before(q.Since) {
		return false
	}
	if !q.Until.IsZero() && inc.Timestamp.After(q.Until) {
		return false
	}
	return true
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
