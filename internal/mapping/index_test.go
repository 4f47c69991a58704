package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	refs := []AppointmentRef{
		{ID: "100", Name: "Ana", Date: "10/09/2026", Time: "14:30", Doctor: "Dr. Souza"},
		{ID: "101", Name: "Ana", Date: "17/09/2026", Time: "09:00", Doctor: "Dr. Souza"},
	}

	// The same logical phone stored under each historical export format.
	storedVariants := []string{
		"5521999990000",
		"55 21-99999-0000",
		"55 21-999990000",
	}

	for _, stored := range storedVariants {
		t.Run("StoredAs_"+stored, func(t *testing.T) {
			ix := NewIndex(Snapshot{stored: refs})

			got, key, err := ix.Lookup("5521999990000")
			require.NoError(t, err)
			assert.Equal(t, stored, key)
			assert.Equal(t, refs, got)
		})
	}

	t.Run("FormattedInboundAgainstRawKey", func(t *testing.T) {
		ix := NewIndex(Snapshot{"5521999990000": refs})

		got, _, err := ix.Lookup("+55 (21) 99999-0000")
		require.NoError(t, err)
		assert.Equal(t, refs, got)
	})

	t.Run("NotMapped", func(t *testing.T) {
		ix := NewIndex(Snapshot{"5521999990000": refs})

		_, _, err := ix.Lookup("5531888887777")
		assert.ErrorIs(t, err, ErrPhoneNotMapped)
	})

	// An inbound number without the country code never matches a stored key
	// that carries it: candidates do not invent digits.
	t.Run("MissingCountryCodeIsNotMapped", func(t *testing.T) {
		ix := NewIndex(Snapshot{"5521999990000": refs})

		_, _, err := ix.Lookup("21999990000")
		assert.ErrorIs(t, err, ErrPhoneNotMapped)
	})
}

// Two historical spellings of the same phone coexisting as distinct keys is a
// known-ambiguous snapshot. The first candidate that hits wins and lookup
// short-circuits; entries under the other spelling are deliberately ignored.
func TestLookupFirstCandidateWins(t *testing.T) {
	ix := NewIndex(Snapshot{
		"5521999990000":    {{ID: "100", Name: "Ana"}},
		"55 21-99999-0000": {{ID: "200", Name: "Ana"}},
	})

	got, key, err := ix.Lookup("5521999990000")
	require.NoError(t, err)
	assert.Equal(t, "5521999990000", key, "raw digits candidate is tried before grouped forms")
	require.Len(t, got, 1)
	assert.Equal(t, "100", got[0].ID)
}

func TestAllEntries(t *testing.T) {
	ix := NewIndex(Snapshot{
		"5521999990000": {{ID: "100", Name: "Ana"}, {ID: "101", Name: "Ana"}},
		"5531888887777": {{ID: "200", Name: "Bruno"}, {ID: "", Name: "sem id"}},
	})

	entries := ix.AllEntries()
	assert.Len(t, entries, 3, "entries without an id are skipped")

	ids := map[string]string{}
	for _, e := range entries {
		ids[e.Ref.ID] = e.Phone
	}
	assert.Equal(t, map[string]string{
		"100": "5521999990000",
		"101": "5521999990000",
		"200": "5531888887777",
	}, ids)
}
