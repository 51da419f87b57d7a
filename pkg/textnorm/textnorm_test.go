package textnorm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"lowercase passthrough", "vw", "vw"},
		{"case folded", "VW", "vw"},
		{"surrounding whitespace trimmed", "  Tesla \t", "tesla"},
		{"diacritics stripped", "Škoda", "skoda"},
		{"combined case and diacritics", "CITROËN", "citroen"},
		{"inner whitespace kept", "Skoda auto a.s.", "skoda auto a.s."},
		{"empty", "", ""},
		{"only whitespace", "   ", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Normalize(tc.in))
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	for _, in := range []string{"Škoda", " Citroën ", "VW GmbH"} {
		once := Normalize(in)
		require.Equal(t, once, Normalize(once))
	}
}

func TestRemoveDiacriticsKeepsBaseCharacters(t *testing.T) {
	require.Equal(t, "Skoda", RemoveDiacritics("Škoda"))
	require.Equal(t, "Citroen", RemoveDiacritics("Citroën"))
}
