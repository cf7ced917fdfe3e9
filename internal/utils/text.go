package utils

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var ligatures = strings.NewReplacer(
	"œ", "oe",
	"æ", "ae",
	"’", "'",
	"‘", "'",
	"`", "'",
)

// Normalize lowercases a question, trims it and collapses internal whitespace.
// Diacritics are kept so extracted names retain their spelling.
func Normalize(s string) string {
	s = strings.ToLower(norm.NFC.String(s))
	s = ligatures.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// Fold strips diacritics so "âgée" and "agee" compare equal
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}

// Truncate cuts s to at most n runes
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// IsWordRune reports whether r belongs to a word
func IsWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Occurrence is one match of a phrase inside a text, as byte offsets
type Occurrence struct {
	Start      int
	End        int
	Standalone bool
}

// FindOccurrences returns every non-overlapping occurrence of phrase in text.
// An occurrence is standalone when it is not glued to a longer word on either side.
func FindOccurrences(text, phrase string) []Occurrence {
	if phrase == "" {
		return nil
	}
	var out []Occurrence
	offset := 0
	for {
		idx := strings.Index(text[offset:], phrase)
		if idx < 0 {
			return out
		}
		start := offset + idx
		end := start + len(phrase)
		out = append(out, Occurrence{
			Start:      start,
			End:        end,
			Standalone: boundaryBefore(text, start) && boundaryAfter(text, end),
		})
		offset = end
	}
}

func boundaryBefore(text string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return !IsWordRune(r)
}

func boundaryAfter(text string, i int) bool {
	if i >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return !IsWordRune(r)
}

// Token is a word of a text with its byte span
type Token struct {
	Text  string
	Start int
	End   int
}

// Tokenize splits text on every rune that is not a letter or a digit
func Tokenize(text string) []Token {
	var tokens []Token
	start := -1
	for i, r := range text {
		if IsWordRune(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			tokens = append(tokens, Token{Text: text[start:i], Start: start, End: i})
			start = -1
		}
	}
	if start >= 0 {
		tokens = append(tokens, Token{Text: text[start:], Start: start, End: len(text)})
	}
	return tokens
}

// Lemma reduces a folded French word to a crude lemma by dropping one plural mark
func Lemma(word string) string {
	if utf8.RuneCountInString(word) <= 3 {
		return word
	}
	if strings.HasSuffix(word, "s") || strings.HasSuffix(word, "x") {
		return word[:len(word)-1]
	}
	return word
}
