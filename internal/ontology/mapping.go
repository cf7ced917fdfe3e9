// Package ontology holds the entity kind to RDF class and property table of
// the nutrition knowledge base, plus the threshold rules attached to it.
package ontology

import (
	"fmt"

	"github.com/louayabidi/web-semantique/internal/model"
)

const (
	// Namespace is the nutrition ontology IRI
	Namespace = "http://www.semanticweb.org/user/ontologies/2025/8/nutrition#"
	// Prefix is the prefix label used in generated queries
	Prefix = "nutrition"
	// XSDNamespace is the XML schema datatype IRI
	XSDNamespace = "http://www.w3.org/2001/XMLSchema#"

	// NameProperty is the mandatory label property of every class
	NameProperty = "nom"
)

// Property is one datatype property of a class
type Property struct {
	Local   string // property local name, also used as the query variable
	Decimal bool   // values are xsd:decimal/float rather than integers
}

// Var returns the SPARQL variable bound to the property
func (p Property) Var() string {
	return "?" + p.Local
}

// Class is the RDF side of one entity kind
type Class struct {
	Kind       model.EntityKind
	Local      string
	Label      string
	Properties map[model.Attribute]Property
}

// IRI returns the prefixed class name
func (c Class) IRI() string {
	return Prefix + ":" + c.Local
}

// Rule is a threshold on one attribute: ?var Op Value
type Rule struct {
	Attribute model.Attribute
	Op        string
	Value     float64
}

// Relation links an entity to a node of the knowledge base through an
// object property. The node is found by its nom, so Match is a regex
// rather than an IRI; an empty Match accepts any linked node.
type Relation struct {
	Property string // object property local name
	Node     string // variable name of the linked node
	Match    string
	Required bool // filter on the link; otherwise it only raises the score
}

// Mapping is the single table the query builder consults
type Mapping struct {
	classes      map[model.EntityKind]Class
	thresholds   map[model.Attribute]map[model.Direction]Rule
	medical      map[model.MedicalFilter]Rule
	goals        map[string][]Rule
	restrictions map[model.EntityKind]map[string]Relation
	conditions   map[model.EntityKind]map[model.MedicalFilter]Relation
}

// Default returns the mapping of the nutrition ontology
func Default() *Mapping {
	nutrition := map[model.Attribute]Property{
		model.AttrCalories:      {Local: "calories"},
		model.AttrGlycemicIndex: {Local: "indexGlycemique"},
		model.AttrFiber:         {Local: "teneurFibres", Decimal: true},
		model.AttrSodium:        {Local: "teneurSodium"},
	}
	food := map[model.Attribute]Property{
		model.AttrProtein: {Local: "teneurProteines", Decimal: true},
		model.AttrLipid:   {Local: "teneurLipides", Decimal: true},
	}
	for attr, prop := range nutrition {
		food[attr] = prop
	}
	recipe := make(map[model.Attribute]Property, len(nutrition))
	for attr, prop := range nutrition {
		recipe[attr] = prop
	}

	suits := func(match string) Relation {
		return Relation{Property: "convientA", Node: "regime", Match: match, Required: true}
	}
	diets := map[string]Relation{
		"vegetarien":   suits("v[eé]g[eé]tarien"),
		"vegan":        suits("vegan|v[eé]gane|v[eé]g[eé]talien"),
		"sans_gluten":  suits("gluten"),
		"sans_lactose": suits("lactose"),
		"halal":        suits("halal"),
	}
	recommended := func(match string) Relation {
		return Relation{Property: "estRecommandePour", Node: "condition", Match: match}
	}
	diagnosed := func(match string) Relation {
		return Relation{Property: "aCondition", Node: "condition", Match: match, Required: true}
	}

	return &Mapping{
		classes: map[model.EntityKind]Class{
			model.EntityFood:   {Kind: model.EntityFood, Local: "Aliment", Label: "Aliment", Properties: food},
			model.EntityRecipe: {Kind: model.EntityRecipe, Local: "Recette", Label: "Recette", Properties: recipe},
			model.EntityActivity: {Kind: model.EntityActivity, Local: "ActivitePhysique", Label: "Activité", Properties: map[model.Attribute]Property{
				model.AttrCalories: {Local: "caloriesBrulees"},
			}},
			model.EntityPerson: {Kind: model.EntityPerson, Local: "Personne", Label: "Personne", Properties: map[model.Attribute]Property{
				model.AttrAge:    {Local: "age"},
				model.AttrWeight: {Local: "poids", Decimal: true},
				model.AttrHeight: {Local: "taille"},
			}},
			model.EntityNutrient:  {Kind: model.EntityNutrient, Local: "Nutriment", Label: "Nutriment", Properties: map[model.Attribute]Property{}},
			model.EntityCondition: {Kind: model.EntityCondition, Local: "ConditionMedicale", Label: "Condition médicale", Properties: map[model.Attribute]Property{}},
		},
		thresholds: map[model.Attribute]map[model.Direction]Rule{
			model.AttrCalories: {
				model.DirectionLow:  {model.AttrCalories, "<=", 150},
				model.DirectionHigh: {model.AttrCalories, ">=", 300},
			},
			model.AttrGlycemicIndex: {
				model.DirectionLow:  {model.AttrGlycemicIndex, "<=", 55},
				model.DirectionHigh: {model.AttrGlycemicIndex, ">=", 70},
			},
			model.AttrFiber: {
				model.DirectionLow:  {model.AttrFiber, "<=", 2.0},
				model.DirectionHigh: {model.AttrFiber, ">=", 5.0},
			},
			model.AttrSodium: {
				model.DirectionLow:  {model.AttrSodium, "<=", 50},
				model.DirectionHigh: {model.AttrSodium, ">=", 400},
			},
			model.AttrProtein: {
				model.DirectionLow:  {model.AttrProtein, "<=", 3},
				model.DirectionHigh: {model.AttrProtein, ">=", 10},
			},
			model.AttrLipid: {
				model.DirectionLow:  {model.AttrLipid, "<=", 3},
				model.DirectionHigh: {model.AttrLipid, ">=", 15},
			},
			model.AttrAge: {
				model.DirectionLow:  {model.AttrAge, "<=", 30},
				model.DirectionHigh: {model.AttrAge, ">=", 60},
			},
			model.AttrWeight: {
				model.DirectionLow:  {model.AttrWeight, "<=", 60},
				model.DirectionHigh: {model.AttrWeight, ">=", 90},
			},
			model.AttrHeight: {
				model.DirectionLow:  {model.AttrHeight, "<=", 160},
				model.DirectionHigh: {model.AttrHeight, ">=", 185},
			},
		},
		medical: map[model.MedicalFilter]Rule{
			model.MedicalDiabetes:     {model.AttrGlycemicIndex, "<=", 55},
			model.MedicalHypertension: {model.AttrSodium, "<=", 150},
			model.MedicalObesity:      {model.AttrCalories, "<=", 200},
			model.MedicalCardiac:      {model.AttrSodium, "<=", 150},
		},
		goals: map[string][]Rule{
			"perte_de_poids": {
				{model.AttrCalories, "<=", 200},
				{model.AttrFiber, ">=", 3.0},
			},
			"prise_de_masse": {
				{model.AttrProtein, ">=", 10},
			},
		},
		restrictions: map[model.EntityKind]map[string]Relation{
			model.EntityFood:   diets,
			model.EntityRecipe: diets,
		},
		conditions: map[model.EntityKind]map[model.MedicalFilter]Relation{
			model.EntityFood: {
				model.MedicalDiabetes:     recommended("diab"),
				model.MedicalHypertension: recommended("tension"),
				model.MedicalObesity:      recommended("ob[eé]sit|surpoids"),
				model.MedicalCardiac:      recommended("card|c[oœ]eur"),
			},
			model.EntityPerson: {
				model.MedicalDiabetes:     diagnosed("diab"),
				model.MedicalHypertension: diagnosed("tension"),
				model.MedicalObesity:      diagnosed("ob[eé]sit|surpoids"),
				model.MedicalCardiac:      diagnosed("card|c[oœ]eur"),
				model.MedicalAllergy:      {Property: "aAllergie", Node: "allergie", Required: true},
			},
		},
	}
}

// Class returns the RDF class of kind
func (m *Mapping) Class(kind model.EntityKind) (Class, error) {
	c, ok := m.classes[kind]
	if !ok {
		return Class{}, fmt.Errorf("no RDF class for entity kind %q", kind)
	}
	return c, nil
}

// Classes returns every class in entity priority order
func (m *Mapping) Classes() []Class {
	out := make([]Class, 0, len(m.classes))
	for _, kind := range model.EntityPriority {
		if c, ok := m.classes[kind]; ok {
			out = append(out, c)
		}
	}
	return out
}

// KindOf resolves a class local name back to its entity kind
func (m *Mapping) KindOf(local string) (model.EntityKind, bool) {
	for kind, c := range m.classes {
		if c.Local == local {
			return kind, true
		}
	}
	return "", false
}

// Allows reports whether kind carries attr
func (m *Mapping) Allows(kind model.EntityKind, attr model.Attribute) bool {
	c, ok := m.classes[kind]
	if !ok {
		return false
	}
	_, ok = c.Properties[attr]
	return ok
}

// Property returns the property bound to attr on kind
func (m *Mapping) Property(kind model.EntityKind, attr model.Attribute) (Property, error) {
	c, err := m.Class(kind)
	if err != nil {
		return Property{}, err
	}
	p, ok := c.Properties[attr]
	if !ok {
		return Property{}, fmt.Errorf("attribute %s is not defined for %s", attr, kind)
	}
	return p, nil
}

// Threshold returns the qualitative threshold of attr in direction dir
func (m *Mapping) Threshold(attr model.Attribute, dir model.Direction) (Rule, bool) {
	r, ok := m.thresholds[attr][dir]
	return r, ok
}

// MedicalRule returns the threshold a medical filter imposes.
// Allergy has none.
func (m *Mapping) MedicalRule(filter model.MedicalFilter) (Rule, bool) {
	r, ok := m.medical[filter]
	return r, ok
}

// GoalRules returns the supplementary rules implied by a goal tag
func (m *Mapping) GoalRules(goal string) []Rule {
	return m.goals[goal]
}

// RestrictionRule returns the diet link a restriction tag adds to kind
func (m *Mapping) RestrictionRule(kind model.EntityKind, tag string) (Relation, bool) {
	r, ok := m.restrictions[kind][tag]
	return r, ok
}

// ConditionRule returns the condition link a medical filter adds to kind.
// People must carry the condition; foods recommended for it rank first.
func (m *Mapping) ConditionRule(kind model.EntityKind, filter model.MedicalFilter) (Relation, bool) {
	r, ok := m.conditions[kind][filter]
	return r, ok
}

// Prefixes is the fixed preamble shared by every generated query
func Prefixes() string {
	return "PREFIX " + Prefix + ": <" + Namespace + ">\n" +
		"PREFIX xsd: <" + XSDNamespace + ">\n"
}

// WithPrefixes prepends the prefix block to q
func WithPrefixes(q string) string {
	return Prefixes() + q
}
