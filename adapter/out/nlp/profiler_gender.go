package nlp

import (
	"context"
	"strings"
)

// =============================================================================
// First-Name Gender Table
// =============================================================================

const genderCertain = 0.95

var femaleNames = wordSet(`
	mary jane emma olivia sophia sophie anna anne alice sarah sara laura
	julia maria marie emily lisa karen linda susan jennifer jessica amanda
	melissa michelle kimberly amy angela helen deborah rachel carolyn janet
	catherine carol heather diane julie christina joan evelyn judith megan
	andrea cheryl hannah jacqueline martha gloria teresa ann kathryn frances
	nicole elizabeth margaret patricia barbara dorothy nancy betty sandra
	ruth sharon cynthia kathleen shirley grace chloe zoe lily ella lucy
	daisy isabella mia charlotte amelia eva clara victoria natalie ingrid
	astrid freya elena irene paula monica claudia silvia petra katrin sabine
	birgit helga renate
`)

var maleNames = wordSet(`
	james john robert michael william david richard joseph thomas charles
	christopher daniel matthew anthony mark donald steven paul andrew joshua
	kenneth kevin brian george edward ronald timothy jason jeffrey ryan
	jacob gary nicholas eric jonathan stephen larry justin scott brandon
	benjamin samuel frank gregory raymond alexander patrick jack dennis
	jerry tyler aaron jose adam henry nathan douglas zachary peter kyle
	walter ethan jeremy harold keith christian roger noah gerald carl terry
	sean austin arthur lawrence jesse dylan bryan joe bob jordan billy bruce
	albert willie gabriel logan alan juan wayne roy ralph randy eugene
	vincent russell elijah louis bobby philip johnny hans klaus wolfgang
	stefan jurgen dieter manfred lars erik sven olaf bjorn gunnar pierre
	jean luc marcel antoine marco luca paolo giovanni carlos miguel javier
	pablo diego
`)

type genderLean struct {
	gender    string
	certainty float64
}

// leaningNames cover names that favor one reading without being conclusive.
var leaningNames = map[string]genderLean{
	"alex":   {"male", 0.7},
	"sam":    {"male", 0.7},
	"chris":  {"male", 0.8},
	"jamie":  {"female", 0.65},
	"jessie": {"female", 0.65},
	"taylor": {"female", 0.6},
	"morgan": {"female", 0.6},
	"casey":  {"male", 0.6},
	"robin":  {"female", 0.65},
	"leslie": {"female", 0.7},
	"kim":    {"female", 0.8},
	"kelly":  {"female", 0.75},
	"pat":    {"female", 0.6},
}

func genderOf(name string) (string, float64) {
	switch {
	case femaleNames[name]:
		return "female", genderCertain
	case maleNames[name]:
		return "male", genderCertain
	}
	if l, ok := leaningNames[name]; ok {
		return l.gender, l.certainty
	}
	return "", 0
}

// GenderTable guesses gender from a first name.
type GenderTable struct{}

func NewGenderTable() *GenderTable { return &GenderTable{} }

// Gender returns the guess and its certainty; unknown names return ("", 0).
func (g *GenderTable) Gender(ctx context.Context, firstName string) (string, float64, error) {
	guess, certainty := genderOf(strings.ToLower(strings.TrimSpace(firstName)))
	return guess, certainty, nil
}
