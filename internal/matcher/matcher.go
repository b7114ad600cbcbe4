// Package matcher decides which extracted headings are worth recording.
package matcher

import "strings"

// SeenSet holds every headline text already recorded. Text alone is the key.
type SeenSet map[string]struct{}

func NewSeenSet(entries ...string) SeenSet {
	s := make(SeenSet, len(entries))
	s.Add(entries...)
	return s
}

func (s SeenSet) Has(text string) bool {
	_, ok := s[text]
	return ok
}

func (s SeenSet) Add(texts ...string) {
	for _, t := range texts {
		s[t] = struct{}{}
	}
}

func (s SeenSet) Len() int {
	return len(s)
}

// Candidate is a heading as extracted from a page, before filtering.
type Candidate struct {
	Text string
	Link string
}

// Matches reports whether any keyword occurs in text, ignoring case.
// Matching is plain substring containment, so "iran" also matches "Tirana".
func Matches(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, k := range keywords {
		if strings.Contains(lower, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

// Qualifies reports whether c should be recorded: non-empty text that matches
// a keyword, has not been seen and carries a link.
func Qualifies(c Candidate, keywords []string, seen SeenSet) bool {
	if c.Text == "" || c.Link == "" {
		return false
	}
	if seen.Has(c.Text) {
		return false
	}
	return Matches(c.Text, keywords)
}
