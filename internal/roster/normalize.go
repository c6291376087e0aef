// Package roster matches extracted names against the guild roster and
// derives participant views of event records.
package roster

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// NormalizeName returns the matching key of a member name:
//  1. NFKC composition, so full-width and compatibility forms compare equal
//  2. TrimSpace and collapse internal whitespace to single spaces
//  3. Unicode case folding
func NormalizeName(name string) string {
	s := norm.NFKC.String(name)
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return s
	}
	// A Caser carries state and is built per call.
	return cases.Fold().String(s)
}

// SameName reports whether two names normalize to the same key.
func SameName(a, b string) bool {
	return NormalizeName(a) == NormalizeName(b)
}

// similarity is 1 - levenshtein/maxLen over normalized runes.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	ar, br := []rune(a), []rune(b)
	longest := len(ar)
	if len(br) > longest {
		longest = len(br)
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein(ar, br))/float64(longest)
}

func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	if len(a) > len(b) {
		a, b = b, a
	}

	prev := make([]int, len(a)+1)
	curr := make([]int, len(a)+1)
	for i := range prev {
		prev[i] = i
	}
	for j := 1; j <= len(b); j++ {
		curr[0] = j
		for i := 1; i <= len(a); i++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[i] = min(prev[i]+1, curr[i-1]+1, prev[i-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(a)]
}
