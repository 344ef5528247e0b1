package engine

import (
	"strings"

	"github.com/samber/lo"

	"socratic-tutor/internal/domain"
)

const (
	minStemWordLen = 4
	stemLen        = 5
)

// Stems reduces a phrase to the 5-rune prefixes of its letter words of
// length >= 4, one per word. Repeated roots are kept so the match threshold
// follows the word count of the phrase.
func Stems(phrase string) []string {
	var stems []string
	for _, w := range Words(phrase) {
		r := []rune(w)
		if len(r) < minStemWordLen {
			continue
		}
		stems = append(stems, string(r[:min(stemLen, len(r))]))
	}
	return stems
}

// requiredHits is the number of stems that must appear for a phrase to match.
func requiredHits(stemCount int) int {
	if stemCount == 1 {
		return 1
	}
	return max(2, (stemCount+1)/2)
}

// PhraseMatches reports whether phrase matches the normalized text. A phrase
// without qualifying words never matches.
func PhraseMatches(phrase, normalizedText string) bool {
	stems := Stems(phrase)
	if len(stems) == 0 {
		return false
	}
	hits := lo.CountBy(stems, func(stem string) bool {
		return strings.Contains(normalizedText, stem)
	})
	return hits >= requiredHits(len(stems))
}

// Candidates returns the concept key followed by its usable catalog variants.
func Candidates(key string, catalog *domain.ConceptDomain) []string {
	variants := lo.Filter(catalog.Variants(key), func(v string, _ int) bool {
		return strings.TrimSpace(v) != ""
	})
	return append([]string{key}, variants...)
}

// Covered reports whether any candidate phrase for key matches text.
// Negations are not detected: "cells do not divide" still covers division.
func Covered(key string, catalog *domain.ConceptDomain, text string) bool {
	norm := Normalize(text)
	return lo.SomeBy(Candidates(key, catalog), func(phrase string) bool {
		return PhraseMatches(phrase, norm)
	})
}

// Missing returns the keys not covered by text, in the given order.
func Missing(keys []string, catalog *domain.ConceptDomain, text string) []string {
	return lo.Filter(keys, func(key string, _ int) bool {
		return !Covered(key, catalog, text)
	})
}

// CoveredKeys returns the keys covered by text, in the given order.
func CoveredKeys(keys []string, catalog *domain.ConceptDomain, text string) []string {
	return lo.Filter(keys, func(key string, _ int) bool {
		return Covered(key, catalog, text)
	})
}
