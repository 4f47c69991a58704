// Package phone generates lookup candidates for free-form phone numbers.
//
// The mapping snapshot is produced by an upstream export whose formatting
// convention changed over time, so stored keys may be raw digits, grouped with
// separators, or carry spaces. Normalization happens at lookup time: callers
// try every candidate against the stored keys and treat a full miss as "not
// found", never as an error.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const defaultRegion = "BR"

// Candidates returns the representations under which raw may appear as a
// mapping key, deduplicated, most specific first: the raw input, the
// digits-only form, the historical grouped exports (55 DD-NNNNN-NNNN for
// 13-digit numbers, 55 DD-NNNNNNNN otherwise) and, when the number parses as
// a valid one, its E.164 form.
func Candidates(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	digits := digitsOnly(raw)

	out := make([]string, 0, 5)
	seen := make(map[string]struct{}, 5)
	add := func(c string) {
		if c == "" {
			return
		}
		if _, dup := seen[c]; dup {
			return
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}

	add(raw)
	add(digits)
	add(groupedLong(digits))
	add(groupedShort(digits))

	if num, err := phonenumbers.Parse(raw, defaultRegion); err == nil && phonenumbers.IsValidNumber(num) {
		add(phonenumbers.Format(num, phonenumbers.E164))
	}

	return out
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// groupedLong reproduces the 55 DD-NNNNN-NNNN export format. Only 13-digit
// strings (country code + area code + 9-digit subscriber) fit it.
func groupedLong(digits string) string {
	if len(digits) != 13 {
		return ""
	}
	return "55 " + digits[2:4] + "-" + digits[4:9] + "-" + digits[9:]
}

// groupedShort reproduces the older 55 DD-NNNNNNNN export format. Degenerate
// slices from short inputs are fine; a candidate that matches nothing is
// simply never hit.
func groupedShort(digits string) string {
	if len(digits) < 5 {
		return ""
	}
	return "55 " + digits[2:4] + "-" + digits[4:]
}
