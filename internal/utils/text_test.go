package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercase and trim", "  Aliments RICHES  ", "aliments riches"},
		{"collapse whitespace", "aliments\t\triches\n en   fibres", "aliments riches en fibres"},
		{"keeps accents", "Personnes ÂGÉES", "personnes âgées"},
		{"ligature", "Bon pour le Cœur", "bon pour le coeur"},
		{"curly apostrophe", "qui s’appelle Marie", "qui s'appelle marie"},
		{"empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestFold(t *testing.T) {
	assert.Equal(t, "agee", Fold("âgée"))
	assert.Equal(t, "index glycemique eleve", Fold("index glycémique élevé"))
	assert.Equal(t, "francais", Fold("français"))
	assert.Equal(t, Fold(Normalize("AGÉE")), Fold(Normalize("agee")))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "âgé", Truncate("âgée", 3))
	assert.Equal(t, "abc", Truncate("abc", 10))
	assert.Equal(t, "abc", Truncate("abc", 0))
}

func TestFindOccurrences(t *testing.T) {
	occ := FindOccurrences("sport et transport", "sport")
	require.Len(t, occ, 2)
	assert.True(t, occ[0].Standalone)
	assert.Equal(t, 0, occ[0].Start)
	assert.False(t, occ[1].Standalone, "sport inside transport is not standalone")

	assert.Empty(t, FindOccurrences("aliments", ""))
	assert.Empty(t, FindOccurrences("aliments", "recette"))

	occ = FindOccurrences("riche en fibres", "fibre")
	require.Len(t, occ, 1)
	assert.False(t, occ[0].Standalone)
}

func TestTokenize(t *testing.T) {
	tokens := Tokenize("qui s'appelle marie-anne, 1,80 m")
	texts := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		texts = append(texts, tok.Text)
	}
	assert.Equal(t, []string{"qui", "s", "appelle", "marie", "anne", "1", "80", "m"}, texts)
	assert.Equal(t, 4, tokens[1].Start)
	assert.Equal(t, 5, tokens[1].End)
}

func TestLemma(t *testing.T) {
	assert.Equal(t, "aliment", Lemma("aliments"))
	assert.Equal(t, "animau", Lemma("animaux"))
	assert.Equal(t, "ans", Lemma("ans"))
	assert.Equal(t, "fibre", Lemma("fibre"))
	assert.Equal(t, "agee", Lemma("agees"))
}
