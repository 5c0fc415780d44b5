// Package palette maps free-form color names returned by the generator to the
// fixed set of color tokens the product renders.
package palette

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Fallback is used when a name matches nothing in the vocabulary.
const Fallback = "gray"

// Tokens lists every canonical color token.
var Tokens = []string{
	"red", "orange", "yellow", "green", "blue", "navy",
	"purple", "pink", "black", "white", "gray", "brown",
}

// names maps a normalised name to its token. When a name only contains known
// names, the longest one wins.
var names = map[string]string{
	"빨간색": "red", "빨강": "red", "빨강색": "red", "red": "red",
	"주황색": "orange", "주황": "orange", "orange": "orange",
	"노란색": "yellow", "노랑": "yellow", "노랑색": "yellow", "yellow": "yellow",
	"초록색": "green", "초록": "green", "녹색": "green", "green": "green",
	"파란색": "blue", "파랑": "blue", "파랑색": "blue", "blue": "blue",
	"남색": "navy", "navy": "navy",
	"보라색": "purple", "보라": "purple", "purple": "purple", "violet": "purple",
	"분홍색": "pink", "분홍": "pink", "핑크": "pink", "pink": "pink",
	"검은색": "black", "검정": "black", "검정색": "black", "black": "black",
	"흰색": "white", "하얀색": "white", "흰": "white", "white": "white",
	"회색": "gray", "grey": "gray", "gray": "gray",
	"갈색": "brown", "brown": "brown",
}

// Canonical returns the token for name, or Fallback when unrecognised.
func Canonical(name string) string {
	key := normalise(name)
	if key == "" {
		return Fallback
	}
	if token, ok := names[key]; ok {
		return token
	}

	best, bestName := "", ""
	for n, token := range names {
		if !strings.Contains(key, n) {
			continue
		}
		if len(n) > len(bestName) || (len(n) == len(bestName) && n < bestName) {
			best, bestName = token, n
		}
	}
	if best != "" {
		return best
	}
	return Fallback
}

// IsToken reports whether s is one of Tokens.
func IsToken(s string) bool {
	for _, t := range Tokens {
		if t == s {
			return true
		}
	}
	return false
}

func normalise(name string) string {
	s := norm.NFC.String(name)
	s = cases.Fold().String(s)
	s = strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r)
	})
	return s
}
