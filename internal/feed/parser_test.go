package feed

import (
	"testing"
	"time"
)

const rssWithCAP = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"
     xmlns:geo="http://www.w3.org/2003/01/geo/wgs84_pos#"
     xmlns:cap="urn:oasis:names:tc:emergency:cap:1.1">
  <channel>
    <title>NDMA Alerts</title>
    <link>https://example.gov/alerts</link>
    <item>
      <title>Heavy rainfall warning for coastal districts</title>
      <description>Heavy rain expected over districts: Chennai, Tirunelveli in next 24 hours</description>
      <link>https://example.gov/alerts/1</link>
      <pubDate>Mon, 15 Jan 2024 10:00:00 GMT</pubDate>
      <geo:lat>13.0827</geo:lat>
      <geo:long>80.2707</geo:long>
      <cap:severity>Severe</cap:severity>
      <cap:urgency>Immediate</cap:urgency>
      <cap:certainty>Likely</cap:certainty>
      <cap:polygon>12.9 80.1 13.1 80.1 13.1 80.4 12.9 80.4</cap:polygon>
    </item>
  </channel>
</rss>`

const atomWithGeoRSS = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom"
      xmlns:georss="http://www.georss.org/georss">
  <title>USGS All Earthquakes</title>
  <updated>2024-01-15T10:30:00Z</updated>
  <entry>
    <title>M 6.1 - Aegean Sea</title>
    <id>urn:earthquake:us1234</id>
    <link href="https://earthquake.usgs.gov/earthquakes/eventpage/us1234"/>
    <updated>2024-01-15T10:30:00Z</updated>
    <summary>M6.1 earthquake 40.5&#176;N 25.3&#176;E</summary>
    <georss:point>40.5 25.3</georss:point>
  </entry>
</feed>`

func TestParse_RSSWithCAPExtensions(t *testing.T) {
	items, err := Parse([]byte(rssWithCAP))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(items))
	}

	item := items[0]
	if item.Title != "Heavy rainfall warning for coastal districts" {
		t.Errorf("Unexpected title: %s", item.Title)
	}
	if item.Link != "https://example.gov/alerts/1" {
		t.Errorf("Unexpected link: %s", item.Link)
	}
	if item.Lat != "13.0827" || item.Lng != "80.2707" {
		t.Errorf("Expected geo:lat/geo:long to be preserved, got %q/%q", item.Lat, item.Lng)
	}
	if item.Severity != "Severe" {
		t.Errorf("Expected cap:severity Severe, got %q", item.Severity)
	}
	if item.Urgency != "Immediate" {
		t.Errorf("Expected cap:urgency Immediate, got %q", item.Urgency)
	}
	if item.Polygon != "12.9 80.1 13.1 80.1 13.1 80.4 12.9 80.4" {
		t.Errorf("Unexpected polygon: %q", item.Polygon)
	}

	want := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	if !item.Published.Equal(want) {
		t.Errorf("Expected published %v, got %v", want, item.Published)
	}
}

func TestParse_AtomWithGeoRSSPoint(t *testing.T) {
	items, err := Parse([]byte(atomWithGeoRSS))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(items))
	}

	item := items[0]
	if item.GeoPoint != "40.5 25.3" {
		t.Errorf("Expected georss:point, got %q", item.GeoPoint)
	}
	if item.Published.IsZero() {
		t.Error("Expected Atom updated date to populate Published")
	}
}

func TestParse_AlternatePrefix(t *testing.T) {
	// Same CAP namespace bound to a non-canonical prefix.
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:alert="urn:oasis:names:tc:emergency:cap:1.1">
  <channel>
    <title>Vendor Feed</title>
    <item>
      <title>Cyclone watch</title>
      <link>https://example.com/1</link>
      <alert:severity>Extreme</alert:severity>
    </item>
  </channel>
</rss>`

	items, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(items))
	}
	if items[0].Severity != "Extreme" {
		t.Errorf("Expected severity resolved regardless of prefix, got %q", items[0].Severity)
	}
}

func TestParse_MalformedXML(t *testing.T) {
	if _, err := Parse([]byte("this is not xml at all")); err == nil {
		t.Fatal("Expected error for malformed document")
	}
}

func TestItem_Snippet(t *testing.T) {
	withDesc := Item{Description: "desc", Content: "content"}
	if withDesc.Snippet() != "desc" {
		t.Errorf("Expected description preferred, got %q", withDesc.Snippet())
	}

	contentOnly := Item{Content: "content"}
	if contentOnly.Snippet() != "content" {
		t.Errorf("Expected content fallback, got %q", contentOnly.Snippet())
	}
}
