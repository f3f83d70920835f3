package nlp

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"mailprofiler/core/port/out"
)

// =============================================================================
// Entity Recognizer
// =============================================================================
//
// Entities are read from runs of capitalized tokens, one line at a time:
//   1. run ends in a company suffix        -> org
//   2. run is a known city or country     -> place
//   3. run of 2-3 name-shaped words       -> person
// A run never crosses punctuation, so "John Smith, Acme Corp" splits cleanly.

const (
	confOrgEntity    = 0.85
	confPlaceEntity  = 0.85
	confPersonKnown  = 0.8 // first token found in the name table
	confPersonShaped = 0.6 // capitalization shape only
)

var (
	entityTokenRe = regexp.MustCompile(`[A-Za-z][A-Za-z0-9&'.-]*`)
	nameShapeRe   = regexp.MustCompile(`^[A-Z][a-z]+(?:[-'][A-Z][a-z]+)?$`)
)

// orgSuffixes are run-final words that mark a company name.
var orgSuffixes = wordSet(`
	inc incorporated corp corporation llc llp ltd limited gmbh ag kg sa sarl
	bv nv oy ab as co company group holdings technologies labs solutions
	software systems consulting partners ventures enterprises industries
	international agency studio studios media networks logistics bank capital
	insurance pharma biotech
`)

// greetingPrefixes are stripped from the front of a run before classifying,
// so "Dear Jane Doe" still yields the person.
var greetingPrefixes = wordSet(`hi hello dear hey greetings thanks thank mr mrs ms dr prof`)

// personStopwords reject runs that look like names but are titles, closings,
// calendar words or other capitalized boilerplate.
var personStopwords = wordSet(`
	best kind warm regards sincerely cheers yours truly faithfully
	respectfully the this that these those our your their all new old please
	note subject meeting agenda team office department company group update
	report invoice order street avenue road boulevard lane drive court suite
	floor
	monday tuesday wednesday thursday friday saturday sunday
	january february march april may june july august september october
	november december
	senior junior staff lead head chief executive officer president vice
	director manager engineer developer architect analyst designer consultant
	specialist coordinator administrator representative associate principal
	intern software product project program data cloud platform security
	operations marketing sales account customer support success finance legal
	human resources research development technology technical information
	quality assurance
`)

// placeNames is the locality lexicon, lowercase, up to three words.
var placeNames = phraseSet(
	// Cities
	"new york", "new york city", "san francisco", "los angeles", "san diego",
	"chicago", "boston", "seattle", "austin", "denver", "atlanta", "miami",
	"dallas", "houston", "portland", "philadelphia", "phoenix", "london",
	"manchester", "dublin", "paris", "lyon", "berlin", "munich", "hamburg",
	"frankfurt", "cologne", "vienna", "zurich", "geneva", "basel",
	"amsterdam", "rotterdam", "brussels", "antwerp", "stockholm",
	"gothenburg", "oslo", "copenhagen", "helsinki", "madrid", "barcelona",
	"lisbon", "rome", "milan", "turin", "warsaw", "krakow", "prague",
	"budapest", "tokyo", "osaka", "kyoto", "seoul", "beijing", "shanghai",
	"shenzhen", "hong kong", "singapore", "sydney", "melbourne", "brisbane",
	"perth", "auckland", "toronto", "vancouver", "montreal", "ottawa",
	"mexico city", "sao paulo", "buenos aires", "mumbai", "delhi",
	"bangalore", "hyderabad", "chennai", "pune", "dubai", "tel aviv",
	"cape town", "johannesburg",
	// Countries and regions
	"united states", "usa", "united kingdom", "england", "scotland", "wales",
	"ireland", "germany", "france", "spain", "portugal", "italy",
	"netherlands", "belgium", "switzerland", "austria", "sweden", "norway",
	"denmark", "finland", "poland", "czech republic", "hungary", "china",
	"japan", "south korea", "india", "australia", "new zealand", "canada",
	"mexico", "brazil", "argentina", "israel", "south africa",
)

// Recognizer finds people, organizations and places in free text.
type Recognizer struct{}

func NewRecognizer() *Recognizer { return &Recognizer{} }

type foundEntity struct {
	pos int
	ent out.Entity
}

// Entities returns every recognized entity in order of appearance.
func (r *Recognizer) Entities(ctx context.Context, text string) ([]out.Entity, error) {
	var found []foundEntity
	offset := 0
	for _, line := range strings.Split(text, "\n") {
		found = append(found, scanLine(line, offset)...)
		offset += len(line) + 1
	}
	sort.Slice(found, func(i, j int) bool { return found[i].pos < found[j].pos })
	ents := make([]out.Entity, len(found))
	for i, f := range found {
		ents[i] = f.ent
	}
	return ents, nil
}

// scanLine groups adjacent capitalized tokens into runs and classifies each.
func scanLine(line string, base int) []foundEntity {
	var found []foundEntity
	var run [][2]int
	flush := func() {
		if len(run) == 0 {
			return
		}
		if f, ok := classifyRun(line, run); ok {
			f.pos += base
			found = append(found, f)
		}
		run = nil
	}
	prevEnd := -1
	for _, t := range entityTokenRe.FindAllStringIndex(line, -1) {
		isCap := line[t[0]] >= 'A' && line[t[0]] <= 'Z'
		joined := prevEnd >= 0 && strings.Trim(line[prevEnd:t[0]], " \t") == ""
		if !isCap || (len(run) > 0 && !joined) {
			flush()
		}
		if isCap {
			run = append(run, [2]int{t[0], t[1]})
		}
		prevEnd = t[1]
	}
	flush()
	return found
}

func classifyRun(line string, run [][2]int) (foundEntity, bool) {
	words := make([]string, len(run))
	for i, t := range run {
		words[i] = strings.TrimRight(line[t[0]:t[1]], ".")
	}
	for len(run) > 0 && greetingPrefixes[strings.ToLower(words[0])] {
		run, words = run[1:], words[1:]
	}
	if len(run) == 0 {
		return foundEntity{}, false
	}

	span := func(kind out.EntityKind, conf float64) foundEntity {
		text := strings.TrimRight(line[run[0][0]:run[len(run)-1][1]], ".")
		return foundEntity{pos: run[0][0], ent: out.Entity{Text: text, Kind: kind, Confidence: conf}}
	}

	if len(run) >= 2 && orgSuffixes[strings.ToLower(words[len(words)-1])] {
		return span(out.EntityOrg, confOrgEntity), true
	}
	if len(run) <= 3 && placeNames[strings.ToLower(strings.Join(words, " "))] {
		return span(out.EntityPlace, confPlaceEntity), true
	}
	if len(run) == 2 || len(run) == 3 {
		for _, w := range words {
			if !nameShapeRe.MatchString(w) || personStopwords[strings.ToLower(w)] {
				return foundEntity{}, false
			}
		}
		conf := confPersonShaped
		if g, _ := genderOf(strings.ToLower(words[0])); g != "" {
			conf = confPersonKnown
		}
		return span(out.EntityPerson, conf), true
	}
	return foundEntity{}, false
}
