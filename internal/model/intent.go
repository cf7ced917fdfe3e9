package model

// Result count bounds of an intent
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// EntityKind is the primary target of a question
type EntityKind string

const (
	EntityFood      EntityKind = "Food"
	EntityRecipe    EntityKind = "Recipe"
	EntityActivity  EntityKind = "Activity"
	EntityPerson    EntityKind = "Person"
	EntityNutrient  EntityKind = "Nutrient"
	EntityCondition EntityKind = "Condition"
)

// EntityPriority is the tie-break order used when two kinds score the same
var EntityPriority = []EntityKind{
	EntityPerson,
	EntityFood,
	EntityRecipe,
	EntityActivity,
	EntityNutrient,
	EntityCondition,
}

// IntentClass is what the user wants to do with the entities
type IntentClass string

const (
	IntentSearch    IntentClass = "Search"
	IntentCompare   IntentClass = "Compare"
	IntentRecommend IntentClass = "Recommend"
	IntentStatistic IntentClass = "Statistic"
	IntentPlan      IntentClass = "Plan"
)

// IntentPriority lists intent classes in detection order; Search is the default
var IntentPriority = []IntentClass{
	IntentCompare,
	IntentRecommend,
	IntentStatistic,
	IntentPlan,
}

// Attribute is a measurable property an entity may carry
type Attribute string

const (
	AttrCalories      Attribute = "Calories"
	AttrGlycemicIndex Attribute = "GlycemicIndex"
	AttrFiber         Attribute = "Fiber"
	AttrSodium        Attribute = "Sodium"
	AttrProtein       Attribute = "Protein"
	AttrLipid         Attribute = "Lipid"
	AttrAge           Attribute = "Age"
	AttrWeight        Attribute = "Weight"
	AttrHeight        Attribute = "Height"
)

// AllAttributes is the canonical attribute order. Intents keep their
// attributes in this order so generated queries are stable.
var AllAttributes = []Attribute{
	AttrCalories,
	AttrGlycemicIndex,
	AttrFiber,
	AttrSodium,
	AttrProtein,
	AttrLipid,
	AttrAge,
	AttrWeight,
	AttrHeight,
}

// Direction is a qualitative comparison modifier
type Direction string

const (
	DirectionLow  Direction = "Low"
	DirectionHigh Direction = "High"
)

// Operator is the comparison of an explicit numeric constraint
type Operator string

const (
	OpEqual   Operator = "="
	OpGreater Operator = ">"
	OpLess    Operator = "<"
)

// MedicalFilter is a condition that restricts suitable entities
type MedicalFilter string

const (
	MedicalDiabetes     MedicalFilter = "Diabetes"
	MedicalHypertension MedicalFilter = "Hypertension"
	MedicalObesity      MedicalFilter = "Obesity"
	MedicalCardiac      MedicalFilter = "Cardiac"
	MedicalAllergy      MedicalFilter = "Allergy"
)

// AllMedicalFilters is the canonical medical filter order
var AllMedicalFilters = []MedicalFilter{
	MedicalDiabetes,
	MedicalHypertension,
	MedicalObesity,
	MedicalCardiac,
	MedicalAllergy,
}

// Comparison binds a qualitative direction to one attribute
type Comparison struct {
	Attribute Attribute `json:"attribute"`
	Direction Direction `json:"direction"`
}

// NumericConstraint is an explicit number found in the question
type NumericConstraint struct {
	Attribute Attribute `json:"attribute"`
	Operator  Operator  `json:"operator"`
	Value     float64   `json:"value"`
}

// IntentContext carries the context tags of the question
type IntentContext struct {
	MealTime    string `json:"meal_time,omitempty"`
	Goal        string `json:"goal,omitempty"`
	Restriction string `json:"restriction,omitempty"`
}

// QueryIntent is the structured reading of one natural language question.
// It is built once per request and must not be mutated after it is handed
// to the query builder.
type QueryIntent struct {
	EntityKind         EntityKind          `json:"entity_kind"`
	IntentClass        IntentClass         `json:"intent_class"`
	Attributes         []Attribute         `json:"attributes"`
	Comparisons        []Comparison        `json:"comparisons,omitempty"`
	NumericConstraints []NumericConstraint `json:"numeric_constraints,omitempty"`
	MedicalFilters     []MedicalFilter     `json:"medical_filters,omitempty"`
	NamePattern        string              `json:"name_pattern,omitempty"`
	Limit              int                 `json:"limit"`
	Context            IntentContext       `json:"context"`
}

// HasAttribute reports whether attr was requested
func (q QueryIntent) HasAttribute(attr Attribute) bool {
	for _, a := range q.Attributes {
		if a == attr {
			return true
		}
	}
	return false
}

// HasMedicalFilter reports whether filter was detected
func (q QueryIntent) HasMedicalFilter(filter MedicalFilter) bool {
	for _, f := range q.MedicalFilters {
		if f == filter {
			return true
		}
	}
	return false
}

// DirectionFor returns the qualitative direction recorded for attr
func (q QueryIntent) DirectionFor(attr Attribute) (Direction, bool) {
	for _, c := range q.Comparisons {
		if c.Attribute == attr {
			return c.Direction, true
		}
	}
	return "", false
}

// ConstraintsFor returns the numeric constraints on attr in extraction order
func (q QueryIntent) ConstraintsFor(attr Attribute) []NumericConstraint {
	var out []NumericConstraint
	for _, c := range q.NumericConstraints {
		if c.Attribute == attr {
			out = append(out, c)
		}
	}
	return out
}

// Directions returns the set of directions present, Low before High
func (q QueryIntent) Directions() []Direction {
	var low, high bool
	for _, c := range q.Comparisons {
		switch c.Direction {
		case DirectionLow:
			low = true
		case DirectionHigh:
			high = true
		}
	}
	var out []Direction
	if low {
		out = append(out, DirectionLow)
	}
	if high {
		out = append(out, DirectionHigh)
	}
	return out
}

// Clone returns a deep copy so cached intents can be handed out safely
func (q QueryIntent) Clone() QueryIntent {
	c := q
	c.Attributes = append(make([]Attribute, 0, len(q.Attributes)), q.Attributes...)
	c.Comparisons = append([]Comparison(nil), q.Comparisons...)
	c.NumericConstraints = append([]NumericConstraint(nil), q.NumericConstraints...)
	c.MedicalFilters = append([]MedicalFilter(nil), q.MedicalFilters...)
	return c
}
