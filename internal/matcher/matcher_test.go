package matcher

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatches(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		keywords []string
		want     bool
	}{
		{"single keyword", "Trump announces policy", []string{"trump"}, true},
		{"case folded both ways", "IRAN talks resume", []string{"Iran"}, true},
		{"or across keywords", "Iran talks resume", []string{"trump", "iran"}, true},
		{"no match", "Weather update", []string{"trump", "iran"}, false},
		{"substring inside word", "Tirana hosts summit", []string{"iran"}, true},
		{"empty keyword set", "Anything", nil, false},
		{"multi word keyword", "Peace deal signed in Doha", []string{"peace deal"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(tt.text, tt.keywords))
		})
	}
}

func TestMatches_AgreesWithLowercaseContainment(t *testing.T) {
	texts := []string{"Trump", "Weather Update", "ÉLYSÉE statement", "", "iran-iraq border"}
	keywords := [][]string{{"trump"}, {"élysée"}, {"UPDATE", "x"}, {"border"}, {"zzz"}}

	for _, text := range texts {
		for _, ks := range keywords {
			want := false
			for _, k := range ks {
				if strings.Contains(strings.ToLower(text), strings.ToLower(k)) {
					want = true
				}
			}
			assert.Equal(t, want, Matches(text, ks), "text=%q keywords=%v", text, ks)
		}
	}
}

func TestQualifies(t *testing.T) {
	keywords := []string{"trump", "iran"}
	seen := NewSeenSet("Iran talks resume")

	tests := []struct {
		name string
		c    Candidate
		want bool
	}{
		{"new match with link", Candidate{"Trump announces policy", "https://x/1"}, true},
		{"already seen", Candidate{"Iran talks resume", "https://x/2"}, false},
		{"no link", Candidate{"Trump rally", ""}, false},
		{"empty text", Candidate{"", "https://x/3"}, false},
		{"no keyword", Candidate{"Weather update", "https://x/4"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Qualifies(tt.c, keywords, seen))
		})
	}
}

func TestSeenSet(t *testing.T) {
	s := NewSeenSet("a", "b", "a")
	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Has("a"))
	assert.False(t, s.Has("c"))

	s.Add("c")
	assert.True(t, s.Has("c"))
	assert.Equal(t, 3, s.Len())
}
