package mapping

import (
	"encoding/json"
	"strings"
	"time"
)

// AppointmentRef is one scheduled appointment as denormalized into the
// phone-indexed export. The ID is kept as a string because historical exports
// wrote it both as a JSON number and as a string; it is parsed to an integer
// only at the point a remote call needs it.
type AppointmentRef struct {
	ID     string `json:"id_marcacao"`
	Name   string `json:"nome"`
	Date   string `json:"data"`
	Time   string `json:"hora"`
	Doctor string `json:"medico"`
}

func (r *AppointmentRef) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID     json.RawMessage `json:"id_marcacao"`
		Name   string          `json:"nome"`
		Date   string          `json:"data"`
		Time   string          `json:"hora"`
		Doctor string          `json:"medico"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	r.ID = scalarString(raw.ID)
	r.Name = raw.Name
	r.Date = raw.Date
	r.Time = raw.Time
	r.Doctor = raw.Doctor
	return nil
}

// scalarString accepts the id both as a JSON number and as a JSON string.
// Anything non-numeric is kept verbatim and rejected later, per item, when a
// confirmation actually needs the integer.
func scalarString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

// Snapshot is the whole phone → appointments index as loaded from the store.
// It is replaced wholesale on upload and never mutated in place, so a single
// reconciliation operation always observes one consistent version.
type Snapshot map[string][]AppointmentRef

// Stats counts phones and appointments, for upload responses and logs.
func (s Snapshot) Stats() (phones, appointments int) {
	for _, refs := range s {
		phones++
		appointments += len(refs)
	}
	return phones, appointments
}

// ConfirmationRecord marks one appointment as confirmed by the patient.
// Records are overwritten on reconfirm and never deleted.
type ConfirmationRecord struct {
	Phone       string    `json:"telefone"`
	ConfirmedAt time.Time `json:"confirmado_em"`
	Status      string    `json:"status"`
}
