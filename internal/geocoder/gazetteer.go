package geocoder

import "strings"

// Gazetteer resolves a named place mentioned in free text to fixed
// coordinates. Implementations scan the text for known place names;
// the lookup is best-effort and region-specific tables can be swapped
// in without touching the extraction chain.
type Gazetteer interface {
	Lookup(text string) (lat, lng float64, ok bool)
}

type gazetteerEntry struct {
	name string
	lat  float64
	lng  float64
}

// staticGazetteer matches place names by substring, first entry wins.
type staticGazetteer struct {
	entries []gazetteerEntry
}

func (g *staticGazetteer) Lookup(text string) (float64, float64, bool) {
	lower := strings.ToLower(text)
	for _, e := range g.entries {
		if strings.Contains(lower, e.name) {
			return e.lat, e.lng, true
		}
	}
	return 0, 0, false
}

// NewIndianCities returns the fixed gazetteer of major Indian cities
// used to locate NDMA feed items that carry no coordinates.
func NewIndianCities() Gazetteer {
	return &staticGazetteer{entries: []gazetteerEntry{
		{"bhopal", 23.2599, 77.4126},
		{"indore", 22.7196, 75.8577},
		{"rajgarh", 24.0073, 76.7299},
		{"ramanathapuram", 9.3636, 78.8370},
		{"kanniyakumari", 8.0883, 77.5385},
		{"tirunelveli", 8.7139, 77.7567},
		{"delhi", 28.7041, 77.1025},
		{"mumbai", 19.0760, 72.8777},
		{"kolkata", 22.5726, 88.3639},
		{"chennai", 13.0827, 80.2707},
		{"bangalore", 12.9716, 77.5946},
		{"hyderabad", 17.3850, 78.4867},
		{"ahmedabad", 23.0225, 72.5714},
		{"pune", 18.5204, 73.8567},
		{"surat", 21.1702, 72.8311},
		{"kanpur", 26.4499, 80.3319},
		{"jaipur", 26.9124, 75.7873},
		{"lucknow", 26.8467, 80.9462},
		{"nagpur", 21.1458, 79.0882},
		{"patna", 25.5941, 85.1376},
	}}
}
