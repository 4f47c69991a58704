package phone

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidates(t *testing.T) {
	t.Run("ThirteenDigitNumber", func(t *testing.T) {
		cands := Candidates("5521999990000")
		require.NotEmpty(t, cands)

		assert.Equal(t, "5521999990000", cands[0], "raw input comes first")
		assert.Contains(t, cands, "55 21-99999-0000")
		assert.Contains(t, cands, "55 21-999990000")
		assert.Contains(t, cands, "+5521999990000")

		// Round-trip: every grouped candidate carries the same digit sequence.
		for _, c := range cands {
			digits := strings.Map(func(r rune) rune {
				if r >= '0' && r <= '9' {
					return r
				}
				return -1
			}, c)
			assert.Equal(t, "5521999990000", digits, "candidate %q", c)
		}
	})

	t.Run("FormattedInputYieldsDigitsOnly", func(t *testing.T) {
		cands := Candidates("+55 (21) 99999-0000")
		assert.Equal(t, "+55 (21) 99999-0000", cands[0])
		assert.Contains(t, cands, "5521999990000")
		assert.Contains(t, cands, "55 21-99999-0000")
	})

	t.Run("Deduplicated", func(t *testing.T) {
		cands := Candidates("5521999990000")
		seen := make(map[string]int)
		for _, c := range cands {
			seen[c]++
		}
		for c, n := range seen {
			assert.Equal(t, 1, n, "candidate %q repeated", c)
		}
	})

	t.Run("TwelveDigitLandline", func(t *testing.T) {
		cands := Candidates("552133334444")
		assert.Contains(t, cands, "55 21-33334444")
		assert.NotContains(t, cands, "", "never emits empty candidates")
	})

	t.Run("ShortInputDoesNotPanic", func(t *testing.T) {
		assert.NotPanics(t, func() { Candidates("99") })
		assert.NotPanics(t, func() { Candidates("abc") })
		cands := Candidates("99")
		assert.Equal(t, []string{"99"}, cands)
	})

	t.Run("EmptyInput", func(t *testing.T) {
		assert.Nil(t, Candidates(""))
		assert.Nil(t, Candidates("   "))
	})
}

// Candidates never invent digits: an 11-digit number missing the country code
// stays as-is rather than being rewritten with a reconstructed 55 prefix.
func TestCandidatesNoCountryCodeReconstruction(t *testing.T) {
	cands := Candidates("21999990000")
	assert.NotContains(t, cands, "5521999990000")
	assert.Contains(t, cands, "21999990000")
}
