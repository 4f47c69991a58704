package mapping

import (
	"errors"

	"github.com/datbaby/confirmation-relay/internal/phone"
)

var (
	ErrPhoneNotMapped    = errors.New("phone has no mapping entry")
	ErrSnapshotNotLoaded = errors.New("no mapping snapshot persisted yet")
)

// Index is an in-memory view over one mapping snapshot. Lookups try every
// candidate spelling of a phone against the stored keys.
type Index struct {
	snap Snapshot
}

func NewIndex(snap Snapshot) *Index {
	return &Index{snap: snap}
}

// Lookup resolves a free-form phone to its appointment list. Candidates are
// tried most-specific first and the first stored key that matches wins; there
// is no merging across candidates, so two historical spellings of the same
// phone coexisting as distinct keys cannot double-confirm one inbound
// message. Returns ErrPhoneNotMapped only after every candidate missed.
func (ix *Index) Lookup(rawPhone string) ([]AppointmentRef, string, error) {
	for _, cand := range phone.Candidates(rawPhone) {
		if refs, ok := ix.snap[cand]; ok {
			return refs, cand, nil
		}
	}
	return nil, "", ErrPhoneNotMapped
}

// Entry is one flattened (phone, appointment) pair.
type Entry struct {
	Phone string
	Ref   AppointmentRef
}

// AllEntries flattens the snapshot for status rebuilds. Entries whose id is
// empty are skipped; within one phone the export order is preserved.
func (ix *Index) AllEntries() []Entry {
	var out []Entry
	for ph, refs := range ix.snap {
		for _, ref := range refs {
			if ref.ID == "" {
				continue
			}
			out = append(out, Entry{Phone: ph, Ref: ref})
		}
	}
	return out
}

func (ix *Index) Len() int { return len(ix.snap) }
