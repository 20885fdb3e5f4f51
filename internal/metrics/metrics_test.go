package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHandler_ExposesRecordedMetrics(t *testing.T) {
	Init()

	RecordHTTPRequest("GET", "/v1/alerts", 200, 5*time.Millisecond)
	RecordFeedRun("USGS_EARTHQUAKES", "success", 100*time.Millisecond)
	RecordItems("USGS_EARTHQUAKES", "stored", 3)
	RecordItems("USGS_EARTHQUAKES", "dropped", 0) // no-op
	RecordAlertCreated("earthquake", "medium")
	RecordAlertsExpired(2)
	RecordDBQuery("insert_incident", "success")
	SetDBConnectionsActive(4)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 from metrics handler, got %d", rec.Code)
	}

	body, _ := io.ReadAll(rec.Body)
	out := string(body)

	for _, want := range []string{
		"disasterwatch_http_requests_total",
		"disasterwatch_feed_runs_total",
		"disasterwatch_feed_items_total",
		"disasterwatch_alerts_created_total",
		"disasterwatch_alerts_expired_total",
		"disasterwatch_db_connections_active",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected metrics output to contain %s", want)
		}
	}
}
