package geocoder

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/rajasatyajit/DisasterWatch/internal/feed"
	"github.com/rajasatyajit/DisasterWatch/internal/models"
	"github.com/rajasatyajit/DisasterWatch/pkg/utils"
)

// Resolution methods, in fallback order. The method is surfaced on the
// incident so downstream consumers can discount low-confidence fixes.
const (
	MethodGeo       = "geo"
	MethodGeoRSS    = "georss"
	MethodPolygon   = "polygon"
	MethodCircle    = "circle"
	MethodText      = "text"
	MethodGazetteer = "gazetteer"
)

// Resolution is a resolved coordinate pair plus the method that
// produced it.
type Resolution struct {
	Location models.Location
	Method   string
}

// Free-text coordinate patterns, tried in order. The N/W variant
// negates the longitude.
var (
	patternNE     = regexp.MustCompile(`(?i)(\d+\.?\d*)[°\s]*N[\s,]+(\d+\.?\d*)[°\s]*E`)
	patternNW     = regexp.MustCompile(`(?i)(\d+\.?\d*)[°\s]*N[\s,]+(\d+\.?\d*)[°\s]*W`)
	patternLatLng = regexp.MustCompile(`(?i)lat[a-z]*[\s:]*(\d+\.?\d*)[\s,]+lon[a-z]*[\s:]*(\d+\.?\d*)`)
	patternBare   = regexp.MustCompile(`(\d+\.\d+)[\s,]+(\d+\.\d+)`)
)

// Geocoder derives coordinates from feed items via an ordered fallback
// chain; the gazetteer is the last resort for named places.
type Geocoder struct {
	gazetteer Gazetteer
}

// New creates a geocoder with the given named-place fallback
func New(g Gazetteer) *Geocoder {
	if g == nil {
		g = NewIndianCities()
	}
	return &Geocoder{gazetteer: g}
}

// Resolve extracts a coordinate pair from the item, or nil when no
// method produces a valid fix. Items resolving to nil are dropped from
// the incident stream; that is expected for a fraction of feed items.
func (g *Geocoder) Resolve(item feed.Item) *Resolution {
	if loc, ok := fromFields(item.Lat, item.Lng); ok {
		return &Resolution{Location: loc, Method: MethodGeo}
	}
	if loc, ok := fromGeoPoint(item.GeoPoint); ok {
		return &Resolution{Location: loc, Method: MethodGeoRSS}
	}
	if loc, ok := fromPolygon(item.Polygon); ok {
		return &Resolution{Location: loc, Method: MethodPolygon}
	}
	if loc, ok := fromCircle(item.Circle); ok {
		return &Resolution{Location: loc, Method: MethodCircle}
	}
	if loc, ok := fromText(utils.JoinNonEmpty(" ", item.Content, item.Description, item.Title)); ok {
		return &Resolution{Location: loc, Method: MethodText}
	}
	if lat, lng, ok := g.gazetteer.Lookup(item.Title); ok {
		if loc, valid := validate(lat, lng); valid {
			return &Resolution{Location: loc, Method: MethodGazetteer}
		}
	}
	return nil
}

// fromFields reads explicit geo:lat / geo:long values
func fromFields(latStr, lngStr string) (models.Location, bool) {
	if latStr == "" || lngStr == "" {
		return models.Location{}, false
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	lng, err2 := strconv.ParseFloat(strings.TrimSpace(lngStr), 64)
	if err1 != nil || err2 != nil {
		return models.Location{}, false
	}
	return validate(lat, lng)
}

// fromGeoPoint reads a georss:point "lat lng" pair
func fromGeoPoint(point string) (models.Location, bool) {
	coords := strings.Fields(point)
	if len(coords) != 2 {
		return models.Location{}, false
	}
	lat, err1 := strconv.ParseFloat(coords[0], 64)
	lng, err2 := strconv.ParseFloat(coords[1], 64)
	if err1 != nil || err2 != nil {
		return models.Location{}, false
	}
	return validate(lat, lng)
}

// fromPolygon averages the vertices of a flat "lat lng lat lng ..."
// coordinate list. This is a deliberate naive vertex mean, not a true
// geometric centroid; existing feed expectations depend on it.
func fromPolygon(polygon string) (models.Location, bool) {
	coords := strings.Fields(polygon)
	if len(coords) < 4 {
		return models.Location{}, false
	}
	var latSum, lngSum float64
	var count int
	for i := 0; i+1 < len(coords); i += 2 {
		lat, err1 := strconv.ParseFloat(coords[i], 64)
		lng, err2 := strconv.ParseFloat(coords[i+1], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		latSum += lat
		lngSum += lng
		count++
	}
	if count == 0 {
		return models.Location{}, false
	}
	return validate(latSum/float64(count), lngSum/float64(count))
}

// fromCircle reads a CAP circle "lat,lng radius"; the first two
// numeric tokens are the center.
func fromCircle(circle string) (models.Location, bool) {
	tokens := strings.FieldsFunc(circle, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t'
	})
	if len(tokens) < 2 {
		return models.Location{}, false
	}
	lat, err1 := strconv.ParseFloat(tokens[0], 64)
	lng, err2 := strconv.ParseFloat(tokens[1], 64)
	if err1 != nil || err2 != nil {
		return models.Location{}, false
	}
	return validate(lat, lng)
}

// fromText scans free text with the coordinate patterns in order;
// the first matching pattern wins.
func fromText(text string) (models.Location, bool) {
	if text == "" {
		return models.Location{}, false
	}

	type candidate struct {
		re        *regexp.Regexp
		negateLng bool
	}
	for _, c := range []candidate{
		{patternNE, false},
		{patternNW, true},
		{patternLatLng, false},
		{patternBare, false},
	} {
		m := c.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		lat, err1 := strconv.ParseFloat(m[1], 64)
		lng, err2 := strconv.ParseFloat(m[2], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		if c.negateLng && lng > 0 {
			lng = -lng
		}
		if loc, ok := validate(lat, lng); ok {
			return loc, true
		}
	}
	return models.Location{}, false
}

// validate rejects NaN and out-of-range coordinates; a failure here
// advances the chain to the next method.
func validate(lat, lng float64) (models.Location, bool) {
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return models.Location{}, false
	}
	loc := models.Location{Lat: lat, Lng: lng}
	if !loc.Valid() {
		return models.Location{}, false
	}
	return loc, true
}
