// Package engine decides, one submission at a time, whether a student has
// covered the concepts a question requires and what to ask next.
package engine

import (
	"regexp"
	"strings"
)

var (
	letterRun = regexp.MustCompile(`\p{L}+`)
	tokenRun  = regexp.MustCompile(`[\p{L}\p{N}-]+`)
)

// Normalize lowercases s and collapses whitespace runs to single spaces.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Words extracts the maximal letter runs of s, lowercased.
func Words(s string) []string {
	return letterRun.FindAllString(strings.ToLower(s), -1)
}

// Tokens is like Words but keeps digits and hyphens inside a token.
func Tokens(s string) []string {
	return tokenRun.FindAllString(strings.ToLower(s), -1)
}
