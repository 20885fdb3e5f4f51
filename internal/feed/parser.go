package feed

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
)

// Item is one normalized feed entry. Extension fields keep their raw
// string form; interpretation is left to the extraction stages.
type Item struct {
	Title       string
	Description string
	Content     string
	Link        string
	GUID        string
	Published   time.Time // zero when the feed carried no usable date

	// geo / georss extensions
	Lat      string
	Lng      string
	GeoPoint string

	// CAP extensions
	Effective string
	Expires   string
	Urgency   string
	Severity  string
	Certainty string
	Area      string
	Polygon   string
	Circle    string
}

// Snippet returns the best short text for the item: description first,
// falling back to full content.
func (i Item) Snippet() string {
	if i.Description != "" {
		return i.Description
	}
	return i.Content
}

// Parse parses an RSS 2.0, Atom, or CAP-enriched feed document into
// normalized items. A parse failure is scoped to the single feed.
func Parse(raw []byte) ([]Item, error) {
	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	items := make([]Item, 0, len(parsed.Items))
	for _, src := range parsed.Items {
		if src == nil {
			continue
		}

		item := Item{
			Title:       src.Title,
			Description: src.Description,
			Content:     src.Content,
			Link:        src.Link,
			GUID:        src.GUID,

			Lat:      extValue(src.Extensions, "geo", "lat"),
			Lng:      extValue(src.Extensions, "geo", "long"),
			GeoPoint: extValue(src.Extensions, "georss", "point"),

			Effective: extValue(src.Extensions, "cap", "effective"),
			Expires:   extValue(src.Extensions, "cap", "expires"),
			Urgency:   extValue(src.Extensions, "cap", "urgency"),
			Severity:  extValue(src.Extensions, "cap", "severity"),
			Certainty: extValue(src.Extensions, "cap", "certainty"),
			Area:      extValue(src.Extensions, "cap", "area"),
			Polygon:   extValue(src.Extensions, "cap", "polygon"),
			Circle:    extValue(src.Extensions, "cap", "circle"),
		}

		if src.PublishedParsed != nil {
			item.Published = *src.PublishedParsed
		} else if src.UpdatedParsed != nil {
			item.Published = *src.UpdatedParsed
		}

		items = append(items, item)
	}

	return items, nil
}

// extValue resolves an extension element value. The canonical prefix
// is tried first; feeds are free to bind other prefixes to the same
// namespace, so every prefix map is scanned as a fallback.
func extValue(exts ext.Extensions, prefix, element string) string {
	if exts == nil {
		return ""
	}
	if m, ok := exts[prefix]; ok {
		if v := firstValue(m, element); v != "" {
			return v
		}
	}
	for p, m := range exts {
		if p == prefix {
			continue
		}
		if v := firstValue(m, element); v != "" {
			return v
		}
	}
	return ""
}

func firstValue(m map[string][]ext.Extension, element string) string {
	vs, ok := m[element]
	if !ok || len(vs) == 0 {
		return ""
	}
	return strings.TrimSpace(vs[0].Value)
}
