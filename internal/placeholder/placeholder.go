// Package placeholder extracts bracketed placeholder tokens such as
// "[title]" from widget template source.
package placeholder

import (
	"regexp"
	"sort"
	"strings"
)

// tokenPattern matches a bracketed run containing no closing bracket.
var tokenPattern = regexp.MustCompile(`\[[^\]]+\]`)

// Set is a set of tokens, brackets included.
//
// Iteration order over a Set is not guaranteed and does not follow the order
// in which tokens occur in the template. Use Sorted when a stable order is
// needed for display.
type Set map[string]struct{}

// Scan returns the unique tokens in source. An empty source yields an empty
// set.
func Scan(source string) Set {
	set := Set{}
	if source == "" {
		return set
	}
	for _, tok := range tokenPattern.FindAllString(source, -1) {
		set[tok] = struct{}{}
	}
	return set
}

// Has reports whether token is in the set.
func (s Set) Has(token string) bool {
	_, ok := s[token]
	return ok
}

// Len returns the number of tokens.
func (s Set) Len() int {
	return len(s)
}

// Sorted returns the tokens in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for tok := range s {
		out = append(out, tok)
	}
	sort.Strings(out)
	return out
}

// Key strips the surrounding brackets from a token: "[title]" -> "title".
// Values that are not bracketed are returned unchanged.
func Key(token string) string {
	if len(token) >= 2 && strings.HasPrefix(token, "[") && strings.HasSuffix(token, "]") {
		return token[1 : len(token)-1]
	}
	return token
}
