package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rajasatyajit/DisasterWatch/config"
	"github.com/rajasatyajit/DisasterWatch/internal/correlator"
	apperrors "github.com/rajasatyajit/DisasterWatch/internal/errors"
	"github.com/rajasatyajit/DisasterWatch/internal/models"
	"github.com/rajasatyajit/DisasterWatch/internal/store"
)

const rssWithLocation = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:geo="http://www.w3.org/2003/01/geo/wgs84_pos#" xmlns:cap="urn:oasis:names:tc:emergency:cap:1.2">
  <channel>
    <title>Disaster Feed</title>
    <item>
      <title>Severe flooding in Guwahati</title>
      <description>River overflow reported across low lying areas</description>
      <link>https://example.com/items/flood-1</link>
      <pubDate>Mon, 03 Jun 2024 10:00:00 GMT</pubDate>
      <geo:lat>26.1445</geo:lat>
      <geo:long>91.7362</geo:long>
      <cap:severity>Severe</cap:severity>
    </item>
    <item>
      <title>Advisory bulletin with no location</title>
      <description>General preparedness notice</description>
      <link>https://example.com/items/notice-1</link>
      <pubDate>Mon, 03 Jun 2024 11:00:00 GMT</pubDate>
    </item>
  </channel>
</rss>`

const rssBroken = `this is not xml`

type stubFetcher struct {
	responses map[string]string
	errs      map[string]error
	calls     int
}

func (f *stubFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	f.calls++
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	body, ok := f.responses[url]
	if !ok {
		return nil, errors.New("no response configured")
	}
	return []byte(body), nil
}

func testConfig() config.PipelineConfig {
	return config.PipelineConfig{
		FetchTimeout: time.Second,
		UserAgent:    "test/1.0",
		WorkerCount:  2,
		RateLimit:    1000,
	}
}

func newTestPipeline(feeds []config.Feed, fetcher Fetcher) (*Pipeline, store.Store) {
	s := store.NewInMemoryStore()
	p := New(testConfig(), feeds, s, correlator.New(s))
	p.SetFetcher(fetcher)
	return p, s
}

func TestRunAll_ProcessesFeeds(t *testing.T) {
	feeds := []config.Feed{{Name: "TEST", URL: "https://feeds.example.com/rss"}}
	fetcher := &stubFetcher{responses: map[string]string{
		"https://feeds.example.com/rss": rssWithLocation,
	}}
	p, s := newTestPipeline(feeds, fetcher)

	report, err := p.RunAll(context.Background())
	if err != nil {
		t.Fatalf("RunAll() error = %v", err)
	}

	if report.ItemsFetched != 2 {
		t.Errorf("ItemsFetched = %d, want 2", report.ItemsFetched)
	}
	if report.ItemsDropped != 1 {
		t.Errorf("ItemsDropped = %d, want 1", report.ItemsDropped)
	}
	if report.IncidentsStored != 1 {
		t.Errorf("IncidentsStored = %d, want 1", report.IncidentsStored)
	}
	if report.AlertsCreated != 1 {
		t.Errorf("AlertsCreated = %d, want 1 (Severe maps above low)", report.AlertsCreated)
	}
	if report.FeedErrors != 0 {
		t.Errorf("FeedErrors = %d, want 0", report.FeedErrors)
	}

	incidents, err := s.QueryIncidents(context.Background(), models.IncidentQuery{})
	if err != nil {
		t.Fatalf("QueryIncidents() error = %v", err)
	}
	if len(incidents) != 1 {
		t.Fatalf("stored incidents = %d, want 1", len(incidents))
	}

	inc := incidents[0]
	if inc.Type != "flood" {
		t.Errorf("Type = %s, want flood", inc.Type)
	}
	if inc.Location.Lat != 26.1445 || inc.Location.Lng != 91.7362 {
		t.Errorf("Location = %+v, want 26.1445/91.7362", inc.Location)
	}
	if inc.Source != models.SourceRSS {
		t.Errorf("Source = %s, want RSS", inc.Source)
	}
	if inc.SourceURL != "https://example.com/items/flood-1" {
		t.Errorf("SourceURL = %s", inc.SourceURL)
	}
	if inc.Severity != "Severe" {
		t.Errorf("Severity = %s, want Severe", inc.Severity)
	}
	if inc.GeoMethod != "geo" {
		t.Errorf("GeoMethod = %s, want geo", inc.GeoMethod)
	}
	if inc.ID == "" {
		t.Error("incident ID should be derived, not empty")
	}

	alerts, err := s.QueryAlerts(context.Background(), models.AlertQuery{ActiveOnly: true})
	if err != nil {
		t.Fatalf("QueryAlerts() error = %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("active alerts = %d, want 1", len(alerts))
	}
	if alerts[0].Severity != models.SeverityHigh {
		t.Errorf("alert severity = %s, want high", alerts[0].Severity)
	}
}

func TestRunAll_SecondRunDeduplicates(t *testing.T) {
	feeds := []config.Feed{{Name: "TEST", URL: "https://feeds.example.com/rss"}}
	fetcher := &stubFetcher{responses: map[string]string{
		"https://feeds.example.com/rss": rssWithLocation,
	}}
	p, _ := newTestPipeline(feeds, fetcher)

	if _, err := p.RunAll(context.Background()); err != nil {
		t.Fatalf("first RunAll() error = %v", err)
	}

	report, err := p.RunAll(context.Background())
	if err != nil {
		t.Fatalf("second RunAll() error = %v", err)
	}
	if report.IncidentsStored != 0 {
		t.Errorf("second run IncidentsStored = %d, want 0", report.IncidentsStored)
	}
	if report.ItemsDeduplicated != 1 {
		t.Errorf("second run ItemsDeduplicated = %d, want 1", report.ItemsDeduplicated)
	}
	if report.AlertsCreated != 0 {
		t.Errorf("second run AlertsCreated = %d, want 0", report.AlertsCreated)
	}
}

func TestRunAll_FeedFailureIsIsolated(t *testing.T) {
	feeds := []config.Feed{
		{Name: "DOWN", URL: "https://down.example.com/rss"},
		{Name: "BROKEN", URL: "https://broken.example.com/rss"},
		{Name: "OK", URL: "https://ok.example.com/rss"},
	}
	fetcher := &stubFetcher{
		responses: map[string]string{
			"https://broken.example.com/rss": rssBroken,
			"https://ok.example.com/rss":     rssWithLocation,
		},
		errs: map[string]error{
			"https://down.example.com/rss": errors.New("connection refused"),
		},
	}
	p, _ := newTestPipeline(feeds, fetcher)

	report, err := p.RunAll(context.Background())
	if err != nil {
		t.Fatalf("RunAll() error = %v", err)
	}

	if report.FeedErrors != 2 {
		t.Errorf("FeedErrors = %d, want 2", report.FeedErrors)
	}
	if report.IncidentsStored != 1 {
		t.Errorf("IncidentsStored = %d, want 1 (healthy feed unaffected)", report.IncidentsStored)
	}

	byName := map[string]FeedReport{}
	for _, fr := range report.Feeds {
		byName[fr.Feed] = fr
	}
	if byName["DOWN"].Error == "" {
		t.Error("DOWN feed should carry a fetch error")
	}
	if byName["BROKEN"].Error == "" {
		t.Error("BROKEN feed should carry a parse error")
	}
	if byName["OK"].Error != "" {
		t.Errorf("OK feed error = %s, want none", byName["OK"].Error)
	}
}

type brokenStore struct {
	store.Store
}

func (b *brokenStore) InsertIncident(ctx context.Context, inc models.Incident) (bool, error) {
	return false, errors.New("connection refused")
}

func TestRunAll_StoreFailureSurfacesAsRunError(t *testing.T) {
	feeds := []config.Feed{{Name: "TEST", URL: "https://feeds.example.com/rss"}}
	fetcher := &stubFetcher{responses: map[string]string{
		"https://feeds.example.com/rss": rssWithLocation,
	}}
	s := &brokenStore{Store: store.NewInMemoryStore()}
	p := New(testConfig(), feeds, s, correlator.New(s))
	p.SetFetcher(fetcher)

	report, err := p.RunAll(context.Background())
	if err == nil {
		t.Fatal("RunAll() should fail when the store rejects writes")
	}
	var ferr apperrors.FeedError
	if !errors.As(err, &ferr) {
		t.Fatalf("error = %v, want a feed error", err)
	}
	if ferr.Stage != "store" {
		t.Errorf("failed stage = %s, want store", ferr.Stage)
	}

	// Progress made before the write failure stays in the report
	if report.ItemsFetched != 2 {
		t.Errorf("ItemsFetched = %d, want 2", report.ItemsFetched)
	}
	if report.FeedErrors != 1 {
		t.Errorf("FeedErrors = %d, want 1", report.FeedErrors)
	}
}

func TestRunAll_CountryFromNDMAFeed(t *testing.T) {
	feeds := []config.Feed{{Name: "INDIA_NDMA", URL: "https://sachet.ndma.gov.in/rss/rss_india.xml"}}
	fetcher := &stubFetcher{responses: map[string]string{
		"https://sachet.ndma.gov.in/rss/rss_india.xml": rssWithLocation,
	}}
	p, s := newTestPipeline(feeds, fetcher)

	if _, err := p.RunAll(context.Background()); err != nil {
		t.Fatalf("RunAll() error = %v", err)
	}

	incidents, err := s.QueryIncidents(context.Background(), models.IncidentQuery{Countries: []string{"India"}})
	if err != nil {
		t.Fatalf("QueryIncidents() error = %v", err)
	}
	if len(incidents) != 1 {
		t.Fatalf("India incidents = %d, want 1", len(incidents))
	}
}

func TestDryRun_DoesNotPersist(t *testing.T) {
	feeds := []config.Feed{{Name: "TEST", URL: "https://feeds.example.com/rss"}}
	fetcher := &stubFetcher{responses: map[string]string{
		"https://candidate.example.com/rss": rssWithLocation,
	}}
	p, s := newTestPipeline(feeds, fetcher)

	incidents, err := p.DryRun(context.Background(), "https://candidate.example.com/rss")
	if err != nil {
		t.Fatalf("DryRun() error = %v", err)
	}
	if len(incidents) != 1 {
		t.Fatalf("DryRun incidents = %d, want 1", len(incidents))
	}
	if incidents[0].FeedURL != "https://candidate.example.com/rss" {
		t.Errorf("FeedURL = %s", incidents[0].FeedURL)
	}

	stored, err := s.QueryIncidents(context.Background(), models.IncidentQuery{})
	if err != nil {
		t.Fatalf("QueryIncidents() error = %v", err)
	}
	if len(stored) != 0 {
		t.Errorf("DryRun persisted %d incidents, want 0", len(stored))
	}

	alerts, err := s.QueryAlerts(context.Background(), models.AlertQuery{})
	if err != nil {
		t.Fatalf("QueryAlerts() error = %v", err)
	}
	if len(alerts) != 0 {
		t.Errorf("DryRun created %d alerts, want 0", len(alerts))
	}
}

func TestDryRun_FetchErrorPropagates(t *testing.T) {
	p, _ := newTestPipeline(nil, &stubFetcher{errs: map[string]error{
		"https://down.example.com/rss": errors.New("boom"),
	}})

	if _, err := p.DryRun(context.Background(), "https://down.example.com/rss"); err == nil {
		t.Fatal("expected fetch error")
	}
}
