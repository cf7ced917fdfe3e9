package service

import (
	"fmt"

	"github.com/louayabidi/web-semantique/internal/lexicon"
	"github.com/louayabidi/web-semantique/internal/model"
	"github.com/louayabidi/web-semantique/internal/ontology"
	"github.com/louayabidi/web-semantique/internal/utils"
)

// Analyzer modes
const (
	ModeKeyword = "keyword"
	ModeLemma   = "lemma"
)

// A modifier further than this many content words from an attribute is ignored
const maxModifierDistance = 4.0

// Analyzer turns a French question into a QueryIntent. Implementations are
// pure and safe for concurrent use.
type Analyzer interface {
	Analyze(question string) model.QueryIntent
	Mode() string
}

// Limits bounds the result count an intent may request
type Limits struct {
	Default int
	Max     int
}

// DefaultLimits returns the stock limits
func DefaultLimits() Limits {
	return Limits{Default: model.DefaultLimit, Max: model.MaxLimit}
}

// compiledLexicon is a lexicon with every phrase normalized, folded and deduplicated
type compiledLexicon struct {
	entities      map[model.EntityKind][]string
	intents       map[model.IntentClass][]string
	attributes    map[model.Attribute][]string
	low           []string
	high          []string
	attrModifiers map[model.Attribute]lexicon.Modifiers
	medical       map[model.MedicalFilter][]string
	contexts      []lexicon.Category
	connectors    map[string]bool
	negations     map[string]bool
}

// NewAnalyzer builds the analyzer selected by mode
func NewAnalyzer(mode string, lex *lexicon.Lexicon, mapping *ontology.Mapping, limits Limits) (Analyzer, error) {
	if lex == nil || mapping == nil {
		return nil, fmt.Errorf("analyzer needs a lexicon and a mapping")
	}
	if limits.Max <= 0 || limits.Max > model.MaxLimit {
		limits.Max = model.MaxLimit
	}
	limits.Default = clampLimit(limits.Default, limits.Max)

	a := &baseAnalyzer{mapping: mapping, limits: limits}
	switch mode {
	case ModeKeyword, "":
		a.mode = ModeKeyword
		a.newMatcher = newKeywordMatcher
		a.lex = compileLexicon(lex, keywordKey)
	case ModeLemma:
		a.mode = ModeLemma
		a.newMatcher = newLemmaMatcher
		a.lex = compileLexicon(lex, lemmaKey)
	default:
		return nil, fmt.Errorf("unknown analyzer mode %q", mode)
	}
	return a, nil
}

func compileLexicon(lex *lexicon.Lexicon, key func(string) string) *compiledLexicon {
	clean := func(phrases []string) []string {
		seen := map[string]bool{}
		var out []string
		for _, p := range phrases {
			p = utils.Fold(utils.Normalize(p))
			k := key(p)
			if p == "" || k == "" || seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, p)
		}
		return out
	}

	c := &compiledLexicon{
		entities:      map[model.EntityKind][]string{},
		intents:       map[model.IntentClass][]string{},
		attributes:    map[model.Attribute][]string{},
		low:           clean(lex.Modifiers.Low),
		high:          clean(lex.Modifiers.High),
		attrModifiers: map[model.Attribute]lexicon.Modifiers{},
		medical:       map[model.MedicalFilter][]string{},
		connectors:    map[string]bool{},
		negations:     map[string]bool{},
	}
	for kind, words := range lex.Entities {
		c.entities[kind] = clean(words)
	}
	for class, words := range lex.Intents {
		c.intents[class] = clean(words)
	}
	for attr, words := range lex.Attributes {
		c.attributes[attr] = clean(words)
	}
	for attr, mods := range lex.AttributeModifiers {
		c.attrModifiers[attr] = lexicon.Modifiers{Low: clean(mods.Low), High: clean(mods.High)}
	}
	for filter, words := range lex.Medical {
		c.medical[filter] = clean(words)
	}
	for _, cat := range lex.ContextCategories() {
		tags := make([]lexicon.ContextTag, 0, len(cat.Tags))
		for _, t := range cat.Tags {
			tags = append(tags, lexicon.ContextTag{Tag: t.Tag, Words: clean(t.Words)})
		}
		c.contexts = append(c.contexts, lexicon.Category{Name: cat.Name, Tags: tags})
	}
	for _, w := range lex.Connectors {
		c.connectors[utils.Fold(utils.Normalize(w))] = true
	}
	for _, w := range lex.Negations {
		c.negations[utils.Fold(utils.Normalize(w))] = true
	}
	return c
}

// baseAnalyzer runs the detection pipeline; only the phrase matcher differs per mode
type baseAnalyzer struct {
	mode       string
	lex        *compiledLexicon
	mapping    *ontology.Mapping
	limits     Limits
	newMatcher func(text string) matcher
}

func (a *baseAnalyzer) Mode() string {
	return a.mode
}

func (a *baseAnalyzer) defaultIntent() model.QueryIntent {
	return model.QueryIntent{
		EntityKind:  model.EntityFood,
		IntentClass: model.IntentSearch,
		Attributes:  []model.Attribute{},
		Limit:       a.limits.Default,
	}
}

// Analyze never fails: unrecognized input yields the default intent with
// the whole question as a name filter.
func (a *baseAnalyzer) Analyze(question string) model.QueryIntent {
	intent := a.defaultIntent()

	normalized := utils.Truncate(utils.Normalize(question), maxInputRunes)
	if normalized == "" {
		return intent
	}
	folded := utils.Fold(normalized)
	m := a.newMatcher(folded)

	kind, entityScore := a.detectEntity(m)
	intent.IntentClass = a.detectIntent(m)

	detected := a.detectAttributes(m)
	medical := a.detectMedical(m)
	ctx := a.detectContext(m)
	constraints := extractNumeric(folded)
	if entityScore == 0 {
		if inferred, ok := a.inferEntity(detected, constraints); ok {
			kind = inferred
		}
	}
	intent.EntityKind = kind
	name := extractName(normalized)
	if n, ok := extractLimit(folded, a.limits.Max); ok {
		intent.Limit = n
	}

	wanted := map[model.Attribute]bool{}
	for attr := range detected {
		wanted[attr] = true
	}
	for _, c := range constraints {
		wanted[c.Attribute] = true
	}
	for _, f := range medical {
		if r, ok := a.mapping.MedicalRule(f); ok {
			wanted[r.Attribute] = true
		}
	}
	for _, r := range a.mapping.GoalRules(ctx.Goal) {
		wanted[r.Attribute] = true
	}

	constrained := map[model.Attribute]bool{}
	for _, c := range constraints {
		if a.mapping.Allows(kind, c.Attribute) {
			intent.NumericConstraints = append(intent.NumericConstraints, c)
			constrained[c.Attribute] = true
		}
	}

	for _, attr := range model.AllAttributes {
		if !wanted[attr] || !a.mapping.Allows(kind, attr) {
			continue
		}
		intent.Attributes = append(intent.Attributes, attr)

		// explicit numbers win over qualitative words for the same attribute
		if !detected[attr] || constrained[attr] {
			continue
		}
		if dir, ok := a.direction(m, attr); ok {
			intent.Comparisons = append(intent.Comparisons, model.Comparison{Attribute: attr, Direction: dir})
		}
	}

	intent.MedicalFilters = medical
	intent.Context = ctx
	intent.NamePattern = name

	noSignal := entityScore == 0 && len(detected) == 0 && len(medical) == 0 &&
		len(constraints) == 0 && name == "" && ctx == (model.IntentContext{})
	if noSignal {
		intent.NamePattern = normalized
	}
	return intent
}

// detectEntity scores every kind; ties go to the earlier kind in priority order
func (a *baseAnalyzer) detectEntity(m matcher) (model.EntityKind, int) {
	best, bestScore := model.EntityFood, 0
	for _, kind := range model.EntityPriority {
		score := 0
		for _, p := range a.lex.entities[kind] {
			total, standalone := m.count(p)
			score += total + 2*standalone
		}
		if score > bestScore {
			best, bestScore = kind, score
		}
	}
	return best, bestScore
}

// inferEntity picks the only kind carrying every mentioned attribute, so
// "jeunes de moins de 30 ans" targets people without naming them
func (a *baseAnalyzer) inferEntity(detected map[model.Attribute]bool, constraints []model.NumericConstraint) (model.EntityKind, bool) {
	attrs := make(map[model.Attribute]bool, len(detected)+len(constraints))
	for attr := range detected {
		attrs[attr] = true
	}
	for _, c := range constraints {
		attrs[c.Attribute] = true
	}
	if len(attrs) == 0 {
		return "", false
	}

	var found []model.EntityKind
	for _, kind := range model.EntityPriority {
		fits := true
		for attr := range attrs {
			if !a.mapping.Allows(kind, attr) {
				fits = false
				break
			}
		}
		if fits {
			found = append(found, kind)
		}
	}
	if len(found) != 1 {
		return "", false
	}
	return found[0], true
}

func (a *baseAnalyzer) detectIntent(m matcher) model.IntentClass {
	for _, class := range model.IntentPriority {
		if hasAny(m, a.lex.intents[class]) {
			return class
		}
	}
	return model.IntentSearch
}

func (a *baseAnalyzer) detectAttributes(m matcher) map[model.Attribute]bool {
	out := map[model.Attribute]bool{}
	for _, attr := range model.AllAttributes {
		if hasAny(m, a.lex.attributes[attr]) {
			out[attr] = true
		}
	}
	return out
}

func (a *baseAnalyzer) detectMedical(m matcher) []model.MedicalFilter {
	var out []model.MedicalFilter
	for _, f := range model.AllMedicalFilters {
		if hasAny(m, a.lex.medical[f]) {
			out = append(out, f)
		}
	}
	return out
}

func (a *baseAnalyzer) detectContext(m matcher) model.IntentContext {
	var ctx model.IntentContext
	for _, cat := range a.lex.contexts {
		tag := ""
		for _, t := range cat.Tags {
			if hasAny(m, t.Words) {
				tag = t.Tag
				break
			}
		}
		switch cat.Name {
		case lexicon.ContextMealTime:
			ctx.MealTime = tag
		case lexicon.ContextGoal:
			ctx.Goal = tag
		case lexicon.ContextRestriction:
			ctx.Restriction = tag
		}
	}
	return ctx
}

// direction picks the comparison of attr. Attribute-specific words such as
// "jeune" decide alone; otherwise the generic modifier closest to a mention
// of the attribute wins.
func (a *baseAnalyzer) direction(m matcher, attr model.Attribute) (model.Direction, bool) {
	if mods, ok := a.lex.attrModifiers[attr]; ok {
		low := findAll(m, mods.Low)
		high := findAll(m, mods.High)
		switch {
		case len(low) > 0 && len(high) > 0:
			if firstStart(low) <= firstStart(high) {
				return model.DirectionLow, true
			}
			return model.DirectionHigh, true
		case len(low) > 0:
			return model.DirectionLow, true
		case len(high) > 0:
			return model.DirectionHigh, true
		}
	}

	mentions := findAll(m, a.lex.attributes[attr])
	if len(mentions) == 0 {
		return "", false
	}

	best, bestScore := model.Direction(""), maxModifierDistance+1
	for _, dir := range []model.Direction{model.DirectionLow, model.DirectionHigh} {
		words := a.lex.low
		if dir == model.DirectionHigh {
			words = a.lex.high
		}
		for _, mod := range findAll(m, words) {
			got := dir
			if a.negated(m.words(), mod.start) {
				got = opposite(dir)
			}
			for _, at := range mentions {
				score, ok := a.distance(m.words(), mod, at)
				if ok && score < bestScore {
					best, bestScore = got, score
				}
			}
		}
	}
	if best == "" || bestScore > maxModifierDistance {
		return "", false
	}
	return best, true
}

// distance counts the content words between a modifier and an attribute
// mention. A modifier placed after the attribute costs half a word more.
func (a *baseAnalyzer) distance(words []string, mod, at span) (float64, bool) {
	switch {
	case mod.end <= at.start:
		return float64(a.contentWords(words, mod.end, at.start)), true
	case mod.start >= at.end:
		return float64(a.contentWords(words, at.end, mod.start)) + 0.5, true
	}
	return 0, false
}

func (a *baseAnalyzer) contentWords(words []string, from, to int) int {
	n := 0
	for i := from; i < to && i < len(words); i++ {
		if !a.lex.connectors[words[i]] {
			n++
		}
	}
	return n
}

// negated reports whether the first content word before index i is a negation
func (a *baseAnalyzer) negated(words []string, i int) bool {
	for j := i - 1; j >= 0 && j < len(words); j-- {
		if a.lex.connectors[words[j]] {
			continue
		}
		return a.lex.negations[words[j]]
	}
	return false
}

func opposite(dir model.Direction) model.Direction {
	if dir == model.DirectionLow {
		return model.DirectionHigh
	}
	return model.DirectionLow
}

func firstStart(spans []span) int {
	min := spans[0].start
	for _, s := range spans[1:] {
		if s.start < min {
			min = s.start
		}
	}
	return min
}
