package classifier

import (
	"strings"

	"github.com/rajasatyajit/DisasterWatch/pkg/utils"
)

// TypeOther is returned when no category keyword matches.
const TypeOther = "other"

// category pairs a disaster-type tag with its trigger keywords.
type category struct {
	Tag      string
	Keywords []string
}

// categories is the fixed priority table. Order matters: descriptions
// often contain several disaster words ("flood following earthquake")
// and the policy is deterministic first match, not best match. Tests
// pin this ordering; extend only at the end or with deliberate intent.
var categories = []category{
	{"earthquake", []string{"earthquake", "quake", "seismic"}},
	{"flood", []string{"flood", "flooding"}},
	{"fire", []string{"fire", "wildfire"}},
	{"storm", []string{"storm", "hurricane", "cyclone", "tornado"}},
	{"tsunami", []string{"tsunami"}},
	{"volcanic", []string{"volcano", "volcanic"}},
	{"drought", []string{"drought"}},
	{"landslide", []string{"landslide", "avalanche"}},
	{"weather", []string{"cold wave", "heat wave"}},
	{"rain", []string{"rain", "rainfall", "precipitation"}},
}

// Classifier maps free-text feed content to a disaster-type tag
type Classifier struct{}

// New creates a new classifier instance
func New() *Classifier {
	return &Classifier{}
}

// Classify returns the disaster-type tag for the item text, evaluating
// the category table in priority order over the lower-cased
// title + snippet. Returns "other" when nothing matches.
func (c *Classifier) Classify(title, snippet string) string {
	text := strings.ToLower(title + " " + snippet)

	for _, cat := range categories {
		if utils.ContainsAny(text, cat.Keywords) {
			return cat.Tag
		}
	}
	return TypeOther
}

// Order returns the category tags in evaluation order, for tests and
// diagnostics.
func Order() []string {
	tags := make([]string, len(categories))
	for i, cat := range categories {
		tags[i] = cat.Tag
	}
	return tags
}
