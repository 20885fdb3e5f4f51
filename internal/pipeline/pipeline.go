// Package pipeline runs the fetch-parse-extract-store cycle across
// all configured feeds.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/rajasatyajit/DisasterWatch/config"
	"github.com/rajasatyajit/DisasterWatch/internal/classifier"
	"github.com/rajasatyajit/DisasterWatch/internal/correlator"
	apperrors "github.com/rajasatyajit/DisasterWatch/internal/errors"
	"github.com/rajasatyajit/DisasterWatch/internal/feed"
	"github.com/rajasatyajit/DisasterWatch/internal/geocoder"
	"github.com/rajasatyajit/DisasterWatch/internal/logger"
	"github.com/rajasatyajit/DisasterWatch/internal/metrics"
	"github.com/rajasatyajit/DisasterWatch/internal/models"
	"github.com/rajasatyajit/DisasterWatch/internal/regions"
	"github.com/rajasatyajit/DisasterWatch/internal/store"
	"github.com/rajasatyajit/DisasterWatch/pkg/utils"
)

// Fetcher retrieves one feed document
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// FeedReport is the outcome of one feed within a run
type FeedReport struct {
	Feed              string `json:"feed"`
	URL               string `json:"url"`
	ItemsFetched      int    `json:"items_fetched"`
	ItemsDropped      int    `json:"items_dropped"`
	ItemsDeduplicated int    `json:"items_deduplicated"`
	IncidentsStored   int    `json:"incidents_stored"`
	AlertsCreated     int    `json:"alerts_created"`
	Error             string `json:"error,omitempty"`
}

// Report summarizes one full ingestion run
type Report struct {
	StartedAt         time.Time    `json:"started_at"`
	FinishedAt        time.Time    `json:"finished_at"`
	Feeds             []FeedReport `json:"feeds"`
	ItemsFetched      int          `json:"items_fetched"`
	ItemsDropped      int          `json:"items_dropped"`
	ItemsDeduplicated int          `json:"items_deduplicated"`
	IncidentsStored   int          `json:"incidents_stored"`
	AlertsCreated     int          `json:"alerts_created"`
	FeedErrors        int          `json:"feed_errors"`
}

// Pipeline coordinates the ingestion stages
type Pipeline struct {
	cfg        config.PipelineConfig
	feeds      []config.Feed
	fetcher    Fetcher
	geocoder   *geocoder.Geocoder
	classifier *classifier.Classifier
	store      store.Store
	correlator *correlator.Correlator
	limiter    *rate.Limiter
	clock      clockwork.Clock
}

// New creates a pipeline over the configured feeds
func New(cfg config.PipelineConfig, feeds []config.Feed, s store.Store, corr *correlator.Correlator) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		feeds:      feeds,
		fetcher:    feed.NewFetcher(cfg.FetchTimeout, cfg.UserAgent),
		geocoder:   geocoder.New(nil),
		classifier: classifier.New(),
		store:      s,
		correlator: corr,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		clock:      clockwork.NewRealClock(),
	}
}

// SetFetcher overrides the outbound fetcher, used by tests
func (p *Pipeline) SetFetcher(f Fetcher) { p.fetcher = f }

// SetClock overrides the pipeline clock, used by tests
func (p *Pipeline) SetClock(c clockwork.Clock) { p.clock = c }

// RunAll processes every configured feed. Feeds run concurrently under
// the worker bound; a fetch or parse failure is recorded in the feed's
// report and does not stop the others. Store write failures are
// returned as a run-level error, with the progress made so far kept in
// the report.
func (p *Pipeline) RunAll(ctx context.Context) (Report, error) {
	report := Report{
		StartedAt: p.clock.Now().UTC(),
		Feeds:     make([]FeedReport, len(p.feeds)),
	}
	feedErrs := make([]error, len(p.feeds))

	sem := semaphore.NewWeighted(int64(p.cfg.WorkerCount))
	for i, f := range p.feeds {
		if err := sem.Acquire(ctx, 1); err != nil {
			report.Feeds[i] = FeedReport{Feed: f.Name, URL: f.URL, Error: err.Error()}
			continue
		}
		go func(i int, f config.Feed) {
			defer sem.Release(1)
			report.Feeds[i], feedErrs[i] = p.processFeed(ctx, f)
		}(i, f)
	}

	// Wait for all workers to finish
	if err := sem.Acquire(ctx, int64(p.cfg.WorkerCount)); err != nil {
		return report, err
	}
	sem.Release(int64(p.cfg.WorkerCount))

	for _, fr := range report.Feeds {
		report.ItemsFetched += fr.ItemsFetched
		report.ItemsDropped += fr.ItemsDropped
		report.ItemsDeduplicated += fr.ItemsDeduplicated
		report.IncidentsStored += fr.IncidentsStored
		report.AlertsCreated += fr.AlertsCreated
		if fr.Error != "" {
			report.FeedErrors++
		}
	}
	report.FinishedAt = p.clock.Now().UTC()

	logger.Info("Ingestion run complete",
		"feeds", len(p.feeds),
		"items_fetched", report.ItemsFetched,
		"incidents_stored", report.IncidentsStored,
		"alerts_created", report.AlertsCreated,
		"feed_errors", report.FeedErrors,
	)

	var merr apperrors.MultiError
	for _, err := range feedErrs {
		merr.Add(err)
	}
	if merr.HasErrors() {
		return report, merr
	}
	return report, nil
}

// DryRun fetches and extracts a single feed without persisting
// anything, for validating candidate feed URLs.
func (p *Pipeline) DryRun(ctx context.Context, feedURL string) ([]models.Incident, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	raw, err := p.fetcher.Fetch(ctx, feedURL)
	if err != nil {
		return nil, err
	}
	items, err := feed.Parse(raw)
	if err != nil {
		return nil, err
	}

	incidents := make([]models.Incident, 0, len(items))
	for _, item := range items {
		if inc, ok := p.buildIncident(item, feedURL); ok {
			incidents = append(incidents, inc)
		}
	}
	return incidents, nil
}

func (p *Pipeline) processFeed(ctx context.Context, f config.Feed) (FeedReport, error) {
	started := time.Now()
	report := FeedReport{Feed: f.Name, URL: f.URL}

	fail := func(stage string, err error) error {
		ferr := apperrors.FeedError{Feed: f.Name, Stage: stage, Err: err}
		report.Error = ferr.Error()
		logger.Warn("Feed run failed", "feed", f.Name, "stage", stage, "error", err)
		metrics.RecordFeedRun(f.Name, "error", time.Since(started))
		return ferr
	}

	if err := p.limiter.Wait(ctx); err != nil {
		fail("throttle", err)
		return report, nil
	}

	raw, err := p.fetcher.Fetch(ctx, f.URL)
	if err != nil {
		fail("fetch", err)
		return report, nil
	}

	items, err := feed.Parse(raw)
	if err != nil {
		fail("parse", err)
		return report, nil
	}
	report.ItemsFetched = len(items)

	for _, item := range items {
		inc, ok := p.buildIncident(item, f.URL)
		if !ok {
			report.ItemsDropped++
			continue
		}

		stored, err := p.store.InsertIncident(ctx, inc)
		if err != nil {
			// Store failures escalate to the run level; the per-item
			// progress made so far stays in the report
			return report, fail("store", err)
		}
		if !stored {
			report.ItemsDeduplicated++
			continue
		}
		report.IncidentsStored++

		if _, created, err := p.correlator.FromIncident(ctx, inc); err != nil {
			logger.Error("Alert correlation failed", "feed", f.Name, "incident_id", inc.ID, "error", err)
		} else if created {
			report.AlertsCreated++
		}
	}

	metrics.RecordItems(f.Name, "dropped", report.ItemsDropped)
	metrics.RecordItems(f.Name, "deduplicated", report.ItemsDeduplicated)
	metrics.RecordItems(f.Name, "stored", report.IncidentsStored)
	metrics.RecordFeedRun(f.Name, "success", time.Since(started))

	logger.Info("Feed run complete",
		"feed", f.Name,
		"items", report.ItemsFetched,
		"stored", report.IncidentsStored,
		"dropped", report.ItemsDropped,
		"deduplicated", report.ItemsDeduplicated,
		"alerts", report.AlertsCreated,
	)
	return report, nil
}

// buildIncident turns one feed item into an incident. Items without a
// resolvable location are dropped.
func (p *Pipeline) buildIncident(item feed.Item, feedURL string) (models.Incident, bool) {
	res := p.geocoder.Resolve(item)
	if res == nil {
		return models.Incident{}, false
	}

	ts := item.Published
	if ts.IsZero() {
		ts = p.clock.Now()
	}
	ts = ts.UTC()

	sourceURL := item.Link
	if sourceURL == "" {
		sourceURL = feedURL
	}

	severity := item.Severity
	if severity == "" {
		severity = item.Urgency
	}

	inc := models.Incident{
		ID:              utils.HashString(sourceURL + ts.Format(time.RFC3339Nano)),
		Type:            p.classifier.Classify(item.Title, item.Snippet()),
		Description:     utils.JoinNonEmpty(" - ", item.Title, item.Snippet()),
		Location:        res.Location,
		Timestamp:       ts,
		Source:          models.SourceRSS,
		SourceURL:       sourceURL,
		FeedURL:         feedURL,
		AffectedRegions: regions.Extract(item.Title, item.Snippet()),
		Severity:        severity,
		GeoMethod:       res.Method,
	}
	if strings.Contains(feedURL, "ndma.gov.in") {
		inc.Country = "India"
	}
	return inc, true
}
