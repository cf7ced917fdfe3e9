// Package lexicon holds the trigger word tables the query analyzer matches
// questions against. The default tables are embedded; a YAML file with the
// same layout can replace them.
package lexicon

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/louayabidi/web-semantique/internal/model"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// Context categories, in detection order
const (
	ContextMealTime    = "meal_time"
	ContextGoal        = "goal"
	ContextRestriction = "restriction"
)

// Modifiers splits trigger words by comparison direction
type Modifiers struct {
	Low  []string `yaml:"low"`
	High []string `yaml:"high"`
}

// Words returns the trigger words of dir
func (m Modifiers) Words(dir model.Direction) []string {
	if dir == model.DirectionLow {
		return m.Low
	}
	return m.High
}

// ContextTag is one context tag and its trigger words
type ContextTag struct {
	Tag   string   `yaml:"tag"`
	Words []string `yaml:"words"`
}

// Contexts lists tags per category. Within a category the first matching tag wins.
type Contexts struct {
	MealTime    []ContextTag `yaml:"meal_time"`
	Goal        []ContextTag `yaml:"goal"`
	Restriction []ContextTag `yaml:"restriction"`
}

// Lexicon is the full set of trigger tables
type Lexicon struct {
	Entities           map[model.EntityKind][]string    `yaml:"entities"`
	Intents            map[model.IntentClass][]string   `yaml:"intents"`
	Attributes         map[model.Attribute][]string     `yaml:"attributes"`
	Modifiers          Modifiers                        `yaml:"modifiers"`
	AttributeModifiers map[model.Attribute]Modifiers    `yaml:"attribute_modifiers"`
	Medical            map[model.MedicalFilter][]string `yaml:"medical"`
	Context            Contexts                         `yaml:"context"`
	Connectors         []string                         `yaml:"connectors"`
	Negations          []string                         `yaml:"negations"`
}

// Default returns the embedded lexicon
func Default() (*Lexicon, error) {
	return Parse(defaultYAML)
}

// MustDefault is Default for callers that cannot recover from a broken build
func MustDefault() *Lexicon {
	lex, err := Default()
	if err != nil {
		panic(err)
	}
	return lex
}

// Load reads a lexicon file. An empty path returns the embedded lexicon.
func Load(path string) (*Lexicon, error) {
	if path == "" {
		return Default()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lexicon %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes and validates a YAML lexicon
func Parse(raw []byte) (*Lexicon, error) {
	var lex Lexicon
	if err := yaml.Unmarshal(raw, &lex); err != nil {
		return nil, fmt.Errorf("failed to decode lexicon: %w", err)
	}
	if err := lex.Validate(); err != nil {
		return nil, err
	}
	return &lex, nil
}

// Validate checks that every table only names known concepts
func (l *Lexicon) Validate() error {
	var errs []error

	kinds := map[model.EntityKind]bool{}
	for _, k := range model.EntityPriority {
		kinds[k] = true
	}
	for k := range l.Entities {
		if !kinds[k] {
			errs = append(errs, fmt.Errorf("unknown entity kind %q", k))
		}
	}
	if len(l.Entities) == 0 {
		errs = append(errs, errors.New("no entity words"))
	}

	intents := map[model.IntentClass]bool{model.IntentSearch: true}
	for _, c := range model.IntentPriority {
		intents[c] = true
	}
	for c := range l.Intents {
		if !intents[c] {
			errs = append(errs, fmt.Errorf("unknown intent class %q", c))
		}
	}

	attrs := map[model.Attribute]bool{}
	for _, a := range model.AllAttributes {
		attrs[a] = true
	}
	for a := range l.Attributes {
		if !attrs[a] {
			errs = append(errs, fmt.Errorf("unknown attribute %q", a))
		}
	}
	for a := range l.AttributeModifiers {
		if !attrs[a] {
			errs = append(errs, fmt.Errorf("unknown attribute %q in attribute_modifiers", a))
		}
	}

	filters := map[model.MedicalFilter]bool{}
	for _, f := range model.AllMedicalFilters {
		filters[f] = true
	}
	for f := range l.Medical {
		if !filters[f] {
			errs = append(errs, fmt.Errorf("unknown medical filter %q", f))
		}
	}

	for _, group := range [][]ContextTag{l.Context.MealTime, l.Context.Goal, l.Context.Restriction} {
		for _, tag := range group {
			if tag.Tag == "" {
				errs = append(errs, errors.New("context tag without name"))
			}
		}
	}

	return errors.Join(errs...)
}

// Category is one named context table
type Category struct {
	Name string
	Tags []ContextTag
}

// ContextCategories returns the context tables in detection order
func (l *Lexicon) ContextCategories() []Category {
	return []Category{
		{ContextMealTime, l.Context.MealTime},
		{ContextGoal, l.Context.Goal},
		{ContextRestriction, l.Context.Restriction},
	}
}
