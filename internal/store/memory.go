package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rajasatyajit/DisasterWatch/internal/models"
)

// InMemoryStore implements Store using in-memory storage
type InMemoryStore struct {
	mu        sync.RWMutex
	incidents map[string]models.Incident
	dedup     map[string]string // (source_url, ts) key -> incident ID
	alerts    map[string]models.Alert
	active    map[string]string // (lat, lng, type) key -> alert ID
}

// NewInMemoryStore creates a new in-memory store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		incidents: make(map[string]models.Incident),
		dedup:     make(map[string]string),
		alerts:    make(map[string]models.Alert),
		active:    make(map[string]string),
	}
}

func dedupKey(sourceURL string, ts time.Time) string {
	return sourceURL + "|" + ts.UTC().Format(time.RFC3339Nano)
}

func activeKey(lat, lng float64, alertType string) string {
	return fmt.Sprintf("%v|%v|%s", lat, lng, alertType)
}

// InsertIncident stores an incident, skipping RSS duplicates
func (s *InMemoryStore) InsertIncident(ctx context.Context, inc models.Incident) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if inc.SourceURL != "" {
		key := dedupKey(inc.SourceURL, inc.Timestamp)
		if _, exists := s.dedup[key]; exists {
			return false, nil
		}
		s.dedup[key] = inc.ID
	}

	if inc.CreatedAt.IsZero() {
		inc.CreatedAt = time.Now().UTC()
	}
	s.incidents[inc.ID] = inc
	return true, nil
}

// FindIncident looks up an incident by its dedup identity
func (s *InMemoryStore) FindIncident(ctx context.Context, sourceURL string, ts time.Time) (*models.Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.dedup[dedupKey(sourceURL, ts)]
	if !exists {
		return nil, nil
	}
	inc := s.incidents[id]
	return &inc, nil
}

// QueryIncidents retrieves incidents matching the query parameters
func (s *InMemoryStore) QueryIncidents(ctx context.Context, q models.IncidentQuery) ([]models.Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.Incident
	for _, inc := range s.incidents {
		if q.Matches(inc) {
			result = append(result, inc)
		}
	}

	// Sort by Timestamp descending
	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp.After(result[j].Timestamp)
	})

	return paginate(result, q.Offset, q.Limit), nil
}

// InsertAlert stores an alert unless an active one already covers the
// same location and type
func (s *InMemoryStore) InsertAlert(ctx context.Context, alert models.Alert) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := activeKey(alert.Location.Lat, alert.Location.Lng, alert.Type)
	if alert.IsActive {
		if _, exists := s.active[key]; exists {
			return false, nil
		}
		s.active[key] = alert.ID
	}

	s.alerts[alert.ID] = alert
	return true, nil
}

// FindActiveAlert returns the active alert at the given location and
// type, or nil when none exists
func (s *InMemoryStore) FindActiveAlert(ctx context.Context, lat, lng float64, alertType string) (*models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.active[activeKey(lat, lng, alertType)]
	if !exists {
		return nil, nil
	}
	alert := s.alerts[id]
	return &alert, nil
}

// GetAlert retrieves a single alert by ID
func (s *InMemoryStore) GetAlert(ctx context.Context, id string) (*models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if alert, exists := s.alerts[id]; exists {
		return &alert, nil
	}

	return nil, nil
}

// QueryAlerts retrieves alerts matching the query parameters
func (s *InMemoryStore) QueryAlerts(ctx context.Context, q models.AlertQuery) ([]models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.Alert
	for _, alert := range s.alerts {
		if q.Matches(alert) {
			result = append(result, alert)
		}
	}

	// Sort by CreatedAt descending
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return paginate(result, q.Offset, q.Limit), nil
}

// DeactivateExpiredAlerts sweeps active alerts past their expiry
func (s *InMemoryStore) DeactivateExpiredAlerts(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var swept int64
	for id, alert := range s.alerts {
		if alert.IsActive && alert.Expired(now) {
			alert.IsActive = false
			alert.UpdatedAt = now
			s.alerts[id] = alert
			delete(s.active, activeKey(alert.Location.Lat, alert.Location.Lng, alert.Type))
			swept++
		}
	}
	return swept, nil
}

// Health always returns nil for in-memory store
func (s *InMemoryStore) Health(ctx context.Context) error {
	return nil
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset > 0 && offset < len(items) {
		items = items[offset:]
	} else if offset >= len(items) && offset > 0 {
		items = []T{}
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
