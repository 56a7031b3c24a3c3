package catalog

import "strings"

// Key normalizes a lookup value: trim surrounding whitespace, then
// case-fold. Every index, the collaboration cache, and every query path
// must go through this one function so their keys cannot drift apart.
func Key(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
