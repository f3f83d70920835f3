package nlp

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"mailprofiler/core/port/out"
)

// =============================================================================
// Language Detector
// =============================================================================

// stopwordProfiles carry the high-frequency function words per supported
// language. A word may appear in several profiles; the ratios absorb that.
var stopwordProfiles = map[string]map[string]bool{
	"en": wordSet(`
		the and is are was were be been being to of in that have has had for
		not with you this but his her its they them we from will would there
		their what about which when where your can could should said all each
		she him how if on at by it as or an out up down over under again then
		once here why who whom these those while during before after
	`),
	"es": wordSet(`
		el la los las de que y en un una unas unos ser se no haber por con su
		sus para como estar tener le lo todo pero mas más hacer o poder decir
		este esta ir otro ese si sí me ya ver porque dar cuando muy sin vez
		mucho sobre tambien también hasta hay donde dónde quien quién desde
		nos nosotros usted ustedes ellos ellas esto eso aqui aquí alli allí
		entre durante contra
	`),
	"fr": wordSet(`
		le la les de des du et est en un une que qui dans pour pas sur ne se
		ce cette il elle nous vous ils elles je tu avec son sa ses mais ou où
		donc car si leur leurs bien plus sans tout tous comme etre être avoir
		faire merci aussi tres très chez apres après avant depuis entre
		contre quand pourquoi comment notre votre
	`),
	"de": wordSet(`
		der die das und ist sind war waren ein eine einen einem einer eines
		zu von mit sich auf fur für als auch es an werden aus er sie hat
		hatte dass nicht bei um noch wie uber über so zum zur haben nur oder
		wir aber dann ihnen sehr danke schon schön doch wenn weil durch gegen
		ohne unter ihre ihren unser euer
	`),
}

// Detector assigns language shares from stopword evidence.
type Detector struct{}

func NewDetector() *Detector { return &Detector{} }

// Detect returns per-language ratios of stopword hits, highest first.
// Ratios sum to 1; text with no hits in any profile returns nil.
func (d *Detector) Detect(ctx context.Context, text string) ([]out.LanguageScore, error) {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	hits := make(map[string]int)
	total := 0
	for _, w := range words {
		for code, profile := range stopwordProfiles {
			if profile[w] {
				hits[code]++
				total++
			}
		}
	}
	if total == 0 {
		return nil, nil
	}
	scores := make([]out.LanguageScore, 0, len(hits))
	for code, n := range hits {
		scores = append(scores, out.LanguageScore{Code: code, Ratio: float64(n) / float64(total)})
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Ratio != scores[j].Ratio {
			return scores[i].Ratio > scores[j].Ratio
		}
		return scores[i].Code < scores[j].Code
	})
	return scores, nil
}
