package translate

import (
	"strings"
	"unicode"
)

// Tokenize splits text into display tokens. Han, Hiragana and Katakana
// characters each form their own token; other letters and digits group into
// words. Whitespace and punctuation only separate.
func Tokenize(text string) []string {
	var (
		tokens []string
		word   strings.Builder
	)
	flush := func() {
		if word.Len() > 0 {
			tokens = append(tokens, word.String())
			word.Reset()
		}
	}
	for _, r := range text {
		switch {
		case unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana):
			flush()
			tokens = append(tokens, string(r))
		case unicode.IsLetter(r), unicode.IsDigit(r), unicode.Is(unicode.Mn, r), r == '\'':
			word.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return tokens
}
