package engine

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Class is the category of a raw submission.
type Class int

const (
	ClassSubstantive Class = iota
	ClassEmpty
	ClassUncertain
	ClassGibberish
)

func (c Class) String() string {
	switch c {
	case ClassEmpty:
		return "empty"
	case ClassUncertain:
		return "uncertain"
	case ClassGibberish:
		return "gibberish"
	default:
		return "substantive"
	}
}

var uncertaintyMarkers = []string{
	"i don't know",
	"i dont know",
	"idk",
	"not sure",
	"no idea",
	"no clue",
	"unsure",
	"confused",
	"don't understand",
	"dont understand",
	"stuck",
}

const (
	minGibberishLen     = 4
	minAlphaRatio       = 0.5
	vowelCheckMinLen    = 10
	minVowelRatio       = 0.25
	longSingleTokenSize = 12
)

// Classify labels a raw submission. Precedence is empty, uncertain, gibberish.
func Classify(raw string) Class {
	trimmed := strings.TrimSpace(raw)
	switch {
	case trimmed == "":
		return ClassEmpty
	case IsUncertain(trimmed):
		return ClassUncertain
	case IsGibberish(trimmed):
		return ClassGibberish
	default:
		return ClassSubstantive
	}
}

// IsUncertain reports whether s contains an explicit confusion marker.
func IsUncertain(s string) bool {
	norm := strings.ReplaceAll(Normalize(s), "’", "'")
	for _, marker := range uncertaintyMarkers {
		if strings.Contains(norm, marker) {
			return true
		}
	}
	return false
}

// IsGibberish is a conservative low-signal detector; short answers always pass.
func IsGibberish(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	total := utf8.RuneCountInString(s)
	if total < minGibberishLen {
		return false
	}

	alpha, vowels := 0, 0
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		alpha++
		if strings.ContainsRune("aeiou", r) {
			vowels++
		}
	}
	if float64(alpha)/float64(total) < minAlphaRatio {
		return true
	}

	var words []string
	for _, w := range Words(s) {
		if utf8.RuneCountInString(w) >= 2 {
			words = append(words, w)
		}
	}
	if len(words) == 0 {
		return true
	}
	if total >= vowelCheckMinLen && float64(vowels)/float64(alpha) < minVowelRatio {
		return true
	}
	if len(words) == 1 && utf8.RuneCountInString(words[0]) >= longSingleTokenSize {
		return true
	}
	return false
}
