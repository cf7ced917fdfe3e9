package service

import (
	"strconv"
	"strings"
)

// Score bonus kinds
const (
	BonusNameMatch        = "name_match"
	BonusAttributePresent = "attribute_present"
	BonusMedicalSatisfied = "medical_satisfied"
)

// scoreTerm is one conditional bonus of the relevance score
type scoreTerm struct {
	bonus     string
	condition string
}

// Scorer turns bonus conditions into the SPARQL relevance expression.
// The score only orders rows; it is never presented as ground truth.
type Scorer struct {
	weightName      float64
	weightAttribute float64
	weightMedical   float64
}

// NewScorer creates a scorer with the specified weights
func NewScorer(weightName, weightAttribute, weightMedical float64) *Scorer {
	return &Scorer{
		weightName:      weightName,
		weightAttribute: weightAttribute,
		weightMedical:   weightMedical,
	}
}

// DefaultScorer returns the stock weights
func DefaultScorer() *Scorer {
	return NewScorer(2.0, 0.5, 1.0)
}

func (s *Scorer) weight(bonus string) float64 {
	switch bonus {
	case BonusNameMatch:
		return s.weightName
	case BonusAttributePresent:
		return s.weightAttribute
	case BonusMedicalSatisfied:
		return s.weightMedical
	}
	return 0
}

// Expression returns "(1.0 + IF(cond, w, 0.0) + ...)"; terms with a zero weight are dropped
func (s *Scorer) Expression(terms []scoreTerm) string {
	var b strings.Builder
	b.WriteString("(1.0")
	for _, t := range terms {
		w := s.weight(t.bonus)
		if w == 0 {
			continue
		}
		b.WriteString(" + IF(")
		b.WriteString(t.condition)
		b.WriteString(", ")
		b.WriteString(formatDecimal(w))
		b.WriteString(", 0.0)")
	}
	b.WriteString(")")
	return b.String()
}

// formatDecimal always renders a decimal point so SPARQL reads an xsd:decimal
func formatDecimal(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
