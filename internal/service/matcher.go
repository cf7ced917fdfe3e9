package service

import (
	"strings"
	"unicode/utf8"

	"github.com/louayabidi/web-semantique/internal/utils"
)

// Phrases shorter than this only match as whole words, so "ig" never fires
// inside "ignorer" and "bas" never fires inside "basilic".
const minSubstringRunes = 5

// span is a half-open range of token indexes
type span struct {
	start int
	end   int
}

// matcher finds lexicon phrases in one folded question
type matcher interface {
	// count returns the qualifying occurrences of phrase and how many of them are whole words
	count(phrase string) (total, standalone int)
	// find returns the token span of every qualifying occurrence of phrase
	find(phrase string) []span
	// words returns the folded tokens of the question
	words() []string
}

func hasAny(m matcher, phrases []string) bool {
	for _, p := range phrases {
		if total, _ := m.count(p); total > 0 {
			return true
		}
	}
	return false
}

func findAll(m matcher, phrases []string) []span {
	var out []span
	for _, p := range phrases {
		out = append(out, m.find(p)...)
	}
	return out
}

// keywordMatcher matches phrases as substrings of the folded question
type keywordMatcher struct {
	text   string
	tokens []utils.Token
	texts  []string
}

func newKeywordMatcher(text string) matcher {
	tokens := utils.Tokenize(text)
	texts := make([]string, len(tokens))
	for i, t := range tokens {
		texts[i] = t.Text
	}
	return &keywordMatcher{text: text, tokens: tokens, texts: texts}
}

func keywordKey(phrase string) string {
	return phrase
}

func (m *keywordMatcher) occurrences(phrase string) []utils.Occurrence {
	all := utils.FindOccurrences(m.text, phrase)
	if utf8.RuneCountInString(phrase) >= minSubstringRunes {
		return all
	}
	kept := all[:0]
	for _, o := range all {
		if o.Standalone {
			kept = append(kept, o)
		}
	}
	return kept
}

func (m *keywordMatcher) count(phrase string) (int, int) {
	occ := m.occurrences(phrase)
	standalone := 0
	for _, o := range occ {
		if o.Standalone {
			standalone++
		}
	}
	return len(occ), standalone
}

func (m *keywordMatcher) find(phrase string) []span {
	var out []span
	for _, o := range m.occurrences(phrase) {
		s := span{start: -1}
		for i, t := range m.tokens {
			if t.End > o.Start && t.Start < o.End {
				if s.start < 0 {
					s.start = i
				}
				s.end = i + 1
			}
		}
		if s.start >= 0 {
			out = append(out, s)
		}
	}
	return out
}

func (m *keywordMatcher) words() []string {
	return m.texts
}

// lemmaMatcher matches phrases as sequences of crude lemmas
type lemmaMatcher struct {
	texts  []string
	lemmas []string
}

func newLemmaMatcher(text string) matcher {
	tokens := utils.Tokenize(text)
	m := &lemmaMatcher{
		texts:  make([]string, len(tokens)),
		lemmas: make([]string, len(tokens)),
	}
	for i, t := range tokens {
		m.texts[i] = t.Text
		m.lemmas[i] = utils.Lemma(t.Text)
	}
	return m
}

func lemmatize(phrase string) []string {
	tokens := utils.Tokenize(phrase)
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = utils.Lemma(t.Text)
	}
	return out
}

func lemmaKey(phrase string) string {
	return strings.Join(lemmatize(phrase), " ")
}

func (m *lemmaMatcher) find(phrase string) []span {
	seq := lemmatize(phrase)
	if len(seq) == 0 {
		return nil
	}
	var out []span
	for i := 0; i+len(seq) <= len(m.lemmas); {
		if m.matchAt(i, seq) {
			out = append(out, span{start: i, end: i + len(seq)})
			i += len(seq)
			continue
		}
		i++
	}
	return out
}

func (m *lemmaMatcher) matchAt(i int, seq []string) bool {
	for j, l := range seq {
		if m.lemmas[i+j] != l {
			return false
		}
	}
	return true
}

// every lemma match is a whole-word match
func (m *lemmaMatcher) count(phrase string) (int, int) {
	n := len(m.find(phrase))
	return n, n
}

func (m *lemmaMatcher) words() []string {
	return m.texts
}
