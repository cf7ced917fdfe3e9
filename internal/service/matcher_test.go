package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeywordMatcher(t *testing.T) {
	m := newKeywordMatcher("quels aliments riches en fibres pour ignorer le basilic")

	total, standalone := m.count("aliment")
	assert.Equal(t, 1, total)
	assert.Equal(t, 0, standalone)

	total, standalone = m.count("aliments")
	assert.Equal(t, 1, total)
	assert.Equal(t, 1, standalone)

	total, _ = m.count("ig")
	assert.Zero(t, total, "short phrases only match whole words")
	total, _ = m.count("bas")
	assert.Zero(t, total)

	assert.Equal(t, []span{{start: 2, end: 3}}, m.find("riche"))
	assert.Equal(t, []span{{start: 2, end: 5}}, m.find("riches en fibres"))
	assert.Equal(t, "fibres", m.words()[4])
}

func TestLemmaMatcher(t *testing.T) {
	m := newLemmaMatcher("les recettes sont riches en fibres")

	total, standalone := m.count("recette")
	assert.Equal(t, 1, total)
	assert.Equal(t, 1, standalone)

	assert.Equal(t, []span{{start: 3, end: 6}}, m.find("riche en fibre"))
	assert.Empty(t, m.find("fibre alimentaire"))
	assert.Empty(t, m.find("recet"))
	assert.Equal(t, "recettes", m.words()[1])
}

func TestHasAnyAndFindAll(t *testing.T) {
	m := newKeywordMatcher("peu de sel et peu de sucre")
	assert.True(t, hasAny(m, []string{"gras", "sel"}))
	assert.False(t, hasAny(m, []string{"gras"}))
	assert.Len(t, findAll(m, []string{"peu"}), 2)
}
