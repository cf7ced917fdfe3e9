package ontology

import (
	"strings"
	"testing"

	"github.com/louayabidi/web-semantique/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEveryKindResolvesToOneClass(t *testing.T) {
	m := Default()
	seen := map[string]bool{}
	for _, kind := range model.EntityPriority {
		c, err := m.Class(kind)
		require.NoError(t, err, kind)
		assert.NotEmpty(t, c.Local)
		assert.False(t, seen[c.Local], "class %s mapped twice", c.Local)
		seen[c.Local] = true
	}
	assert.Len(t, m.Classes(), len(model.EntityPriority))
}

func TestUnknownKind(t *testing.T) {
	_, err := Default().Class("Planet")
	assert.Error(t, err)
}

func TestAllows(t *testing.T) {
	m := Default()
	assert.True(t, m.Allows(model.EntityFood, model.AttrFiber))
	assert.True(t, m.Allows(model.EntityRecipe, model.AttrGlycemicIndex))
	assert.True(t, m.Allows(model.EntityPerson, model.AttrAge))
	assert.False(t, m.Allows(model.EntityFood, model.AttrAge))
	assert.False(t, m.Allows(model.EntityPerson, model.AttrCalories))
	assert.False(t, m.Allows(model.EntityNutrient, model.AttrCalories))
}

func TestActivityCaloriesProperty(t *testing.T) {
	p, err := Default().Property(model.EntityActivity, model.AttrCalories)
	require.NoError(t, err)
	assert.Equal(t, "caloriesBrulees", p.Local)
	assert.Equal(t, "?caloriesBrulees", p.Var())

	_, err = Default().Property(model.EntityActivity, model.AttrFiber)
	assert.Error(t, err)
}

func TestKindOf(t *testing.T) {
	kind, ok := Default().KindOf("ActivitePhysique")
	require.True(t, ok)
	assert.Equal(t, model.EntityActivity, kind)

	_, ok = Default().KindOf("Voiture")
	assert.False(t, ok)
}

func TestThresholds(t *testing.T) {
	m := Default()
	r, ok := m.Threshold(model.AttrFiber, model.DirectionHigh)
	require.True(t, ok)
	assert.Equal(t, ">=", r.Op)
	assert.Equal(t, 5.0, r.Value)

	r, ok = m.Threshold(model.AttrCalories, model.DirectionLow)
	require.True(t, ok)
	assert.Equal(t, 150.0, r.Value)
}

func TestMedicalRules(t *testing.T) {
	m := Default()
	r, ok := m.MedicalRule(model.MedicalDiabetes)
	require.True(t, ok)
	assert.Equal(t, model.AttrGlycemicIndex, r.Attribute)
	assert.Equal(t, 55.0, r.Value)

	r, ok = m.MedicalRule(model.MedicalCardiac)
	require.True(t, ok)
	assert.Equal(t, model.AttrSodium, r.Attribute)

	_, ok = m.MedicalRule(model.MedicalAllergy)
	assert.False(t, ok)
}

func TestPrefixes(t *testing.T) {
	q := WithPrefixes("SELECT * WHERE { ?s ?p ?o }")
	assert.True(t, strings.HasPrefix(q, "PREFIX nutrition: <"+Namespace+">\n"))
	assert.Contains(t, q, "PREFIX xsd: <http://www.w3.org/2001/XMLSchema#>\n")
	assert.True(t, strings.HasSuffix(q, "SELECT * WHERE { ?s ?p ?o }"))
}

func TestRelationRules(t *testing.T) {
	m := Default()

	r, ok := m.RestrictionRule(model.EntityFood, "sans_gluten")
	require.True(t, ok)
	assert.Equal(t, Relation{Property: "convientA", Node: "regime", Match: "gluten", Required: true}, r)

	_, ok = m.RestrictionRule(model.EntityRecipe, "vegan")
	assert.True(t, ok)
	_, ok = m.RestrictionRule(model.EntityPerson, "vegan")
	assert.False(t, ok)
	_, ok = m.RestrictionRule(model.EntityFood, "")
	assert.False(t, ok)

	r, ok = m.ConditionRule(model.EntityPerson, model.MedicalDiabetes)
	require.True(t, ok)
	assert.True(t, r.Required)
	assert.Equal(t, "aCondition", r.Property)

	r, ok = m.ConditionRule(model.EntityFood, model.MedicalDiabetes)
	require.True(t, ok)
	assert.False(t, r.Required)
	assert.Equal(t, "estRecommandePour", r.Property)

	_, ok = m.ConditionRule(model.EntityFood, model.MedicalAllergy)
	assert.False(t, ok)
	r, ok = m.ConditionRule(model.EntityPerson, model.MedicalAllergy)
	require.True(t, ok)
	assert.Empty(t, r.Match)
}
