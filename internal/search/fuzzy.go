package search

import "strings"

// minWordLength is the shortest query word considered for word-level
// matching; shorter words only match via whole-query containment.
const minWordLength = 3

// FuzzyMatch reports whether query matches text. Inputs are expected to
// be lowercased. A match is: the whole query is a substring of text, or a
// query word of at least minWordLength characters contains / is contained
// in a text word, or a query word and a text word have a similarity ratio
// of at least threshold.
func FuzzyMatch(text, query string, threshold float64) bool {
	if strings.Contains(text, query) {
		return true
	}
	textWords := strings.Fields(text)
	for _, qw := range strings.Fields(query) {
		if len(qw) < minWordLength {
			continue
		}
		for _, tw := range textWords {
			if strings.Contains(tw, qw) || strings.Contains(qw, tw) {
				return true
			}
			if Similarity(qw, tw) >= threshold {
				return true
			}
		}
	}
	return false
}

// Similarity is the sequence-matching ratio between two strings:
// 2*M / (len(a) + len(b)), where M counts the characters covered by
// matching blocks. Equal strings score 1, disjoint strings 0. Unlike a
// plain edit distance, transposed fragments still count as matches, so
// "abc" vs "cab" scores 2/3 rather than 1/3.
func Similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	return 2 * float64(matchingRunes(ra, rb)) / float64(total)
}

// matchingRunes counts the characters covered by matching blocks: the
// longest common substring, then recursively the pieces to its left and
// right.
func matchingRunes(a, b []rune) int {
	size, ai, bi := longestCommonBlock(a, b)
	if size == 0 {
		return 0
	}
	return size + matchingRunes(a[:ai], b[:bi]) + matchingRunes(a[ai+size:], b[bi+size:])
}

// longestCommonBlock finds the longest common substring of a and b,
// returning its length and start offsets. Ties resolve to the earliest
// occurrence in a.
func longestCommonBlock(a, b []rune) (size, ai, bi int) {
	// Rolling rows of common-suffix lengths ending at each position pair.
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
				if curr[j] > size {
					size = curr[j]
					ai = i - size
					bi = j - size
				}
			} else {
				curr[j] = 0
			}
		}
		prev, curr = curr, prev
		for j := range curr {
			curr[j] = 0
		}
	}
	return size, ai, bi
}
