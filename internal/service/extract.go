package service

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/louayabidi/web-semantique/internal/model"
)

// maxInputRunes bounds the text the regex families run on
const maxInputRunes = 2000

const (
	numExpr = `(\d+(?:[.,]\d+)?)`
	cmpExpr = `(au moins|au plus|plus de|plus que|moins de|moins que|superieure?s? (?:a|de)|inferieure?s? (?:a|de)|au[- ]dessus de|en[- ]dessous de|>=|<=|>|<)`
)

// numericPattern is one surface form of a numeric criterion
type numericPattern struct {
	re        *regexp.Regexp
	cmpGroup  int
	numGroup  int
	unitGroup int
}

// numericFamily holds the ordered patterns of one attribute
type numericFamily struct {
	attr     model.Attribute
	patterns []numericPattern
}

// families run in this order; a number claimed by one family is skipped by the next
var numericFamilies = []numericFamily{
	newNumericFamily(model.AttrAge, `ages?`, `ans?|annees?`),
	newNumericFamily(model.AttrWeight, `poids|pese|pesant|pesent`, `kg|kilos?|kilogrammes?`),
	newNumericFamily(model.AttrHeight, `taille|mesure|mesurant|mesurent|hauteur`, `cm|centimetres?|metres?|m`),
	newNumericFamily(model.AttrCalories, `calories?|caloriques?|kcal|energie`, `kcal|calories?|cal`),
	newNumericFamily(model.AttrGlycemicIndex, `index glycemique|indice glycemique|ig`, ``),
}

func newNumericFamily(attr model.Attribute, cues, units string) numericFamily {
	f := numericFamily{attr: attr}
	if units != "" {
		// <cmp>? <num> <unit>
		f.patterns = append(f.patterns, numericPattern{
			re:        regexp.MustCompile(`(?:` + cmpExpr + `\s*)?` + numExpr + `\s*(` + units + `)\b`),
			cmpGroup:  1,
			numGroup:  2,
			unitGroup: 3,
		})
	}
	// <cue> ... <cmp> <num>
	f.patterns = append(f.patterns, numericPattern{
		re:        regexp.MustCompile(`\b(?:` + cues + `)\b[^\d]{0,30}?` + cmpExpr + `\s*` + numExpr),
		cmpGroup:  1,
		numGroup:  2,
		unitGroup: -1,
	})
	// <cue> (de|:)? <num>
	f.patterns = append(f.patterns, numericPattern{
		re:        regexp.MustCompile(`\b(?:` + cues + `)\s*(?:de\s+|:\s*)?` + numExpr),
		cmpGroup:  -1,
		numGroup:  1,
		unitGroup: -1,
	})
	return f
}

// operatorFor maps a comparison phrase to its operator
func operatorFor(cmp string) model.Operator {
	switch {
	case cmp == "":
		return model.OpEqual
	case strings.HasPrefix(cmp, "au moins"):
		return model.OpGreater
	case strings.HasPrefix(cmp, "au plus"):
		return model.OpLess
	case strings.Contains(cmp, "plus"), strings.Contains(cmp, "superieur"),
		strings.Contains(cmp, "dessus"), strings.HasPrefix(cmp, ">"):
		return model.OpGreater
	case strings.Contains(cmp, "moins"), strings.Contains(cmp, "inferieur"),
		strings.Contains(cmp, "dessous"), strings.HasPrefix(cmp, "<"):
		return model.OpLess
	}
	return model.OpEqual
}

func parseNumber(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

func group(text string, loc []int, g int) (string, int, int) {
	if g < 0 || 2*g+1 >= len(loc) || loc[2*g] < 0 {
		return "", -1, -1
	}
	return text[loc[2*g]:loc[2*g+1]], loc[2*g], loc[2*g+1]
}

// extractNumeric returns every explicit numeric criterion of a folded question.
// For each family the first pattern yielding a match wins and all of its
// matches are kept.
func extractNumeric(folded string) []model.NumericConstraint {
	var out []model.NumericConstraint
	used := map[int]bool{}

	for _, family := range numericFamilies {
		for _, p := range family.patterns {
			var found []model.NumericConstraint
			var claimed []int
			for _, loc := range p.re.FindAllStringSubmatchIndex(folded, -1) {
				raw, start, _ := group(folded, loc, p.numGroup)
				if start < 0 || used[start] {
					continue
				}
				v, ok := parseNumber(raw)
				if !ok {
					continue
				}
				if unit, _, _ := group(folded, loc, p.unitGroup); isMeters(unit) {
					v = math.Round(v * 100)
				}
				cmp, _, _ := group(folded, loc, p.cmpGroup)
				found = append(found, model.NumericConstraint{
					Attribute: family.attr,
					Operator:  operatorFor(cmp),
					Value:     v,
				})
				claimed = append(claimed, start)
			}
			if len(found) > 0 {
				out = append(out, found...)
				for _, s := range claimed {
					used[s] = true
				}
				break
			}
		}
	}
	return out
}

func isMeters(unit string) bool {
	return unit == "m" || unit == "metre" || unit == "metres"
}

// the trigger must start a word; \b would not see accented letters
var namePattern = regexp.MustCompile(`(?:^|[^\p{L}])(?:qui s'appellent?|qui se nomment?|appel(?:é|e)e?s?|nomm(?:é|e)e?s?|pr(?:é|e)noms?)\s*:?\s+(?:est\s+)?([^.,!?;]+)`)

// words that end a captured name
var nameStopWords = map[string]bool{
	"et":   true,
	"ou":   true,
	"avec": true,
	"qui":  true,
	"dont": true,
	"sans": true,
}

// extractName returns the "called X" fragment of a normalized question
func extractName(normalized string) string {
	m := namePattern.FindStringSubmatch(normalized)
	if m == nil {
		return ""
	}
	words := strings.Fields(m[1])
	for i, w := range words {
		if nameStopWords[w] {
			words = words[:i]
			break
		}
	}
	return strings.Trim(strings.Join(words, " "), "\"«» ")
}

var limitPattern = regexp.MustCompile(`\b(\d+)\s*(?:resultats?|items?|elements?|reponses?|premiers?|premieres?)\b|\btop\s*(\d+)\b|\blimite?\s*(?:a|de|:)?\s*(\d+)\b`)

// extractLimit returns the requested result count of a folded question, clamped to [1, max]
func extractLimit(folded string, max int) (int, bool) {
	m := limitPattern.FindStringSubmatch(folded)
	if m == nil {
		return 0, false
	}
	for _, g := range m[1:] {
		if g == "" {
			continue
		}
		n, err := strconv.Atoi(g)
		if err != nil {
			return max, true
		}
		return clampLimit(n, max), true
	}
	return 0, false
}

func clampLimit(n, max int) int {
	if n < 1 {
		return 1
	}
	if n > max {
		return max
	}
	return n
}
