package relay

import "time"

const (
	StatusConfirmed = "confirmado"
	StatusPending   = "pendente"
)

// PatientStatus is one row of the aggregated report: the mapping's view of an
// appointment reconciled with the scheduling system's confirmation state.
type PatientStatus struct {
	AppointmentID string     `json:"id_marcacao"`
	Phone         string     `json:"telefone"`
	Name          string     `json:"nome"`
	Date          string     `json:"data"`
	Time          string     `json:"hora"`
	Doctor        string     `json:"medico"`
	Status        string     `json:"status"`
	ConfirmedAt   *time.Time `json:"confirmado_em"`
}

// AggregatedReport reconciles every mapped appointment against the remote
// system. Invariant: TotalSent == TotalConfirmed + TotalPending == len(Patients).
type AggregatedReport struct {
	TotalSent      int             `json:"total_enviados"`
	TotalConfirmed int             `json:"total_confirmados"`
	TotalPending   int             `json:"total_pendentes"`
	Patients       []PatientStatus `json:"pacientes"`
}

// Agenda is a doctor's consultations over a bounded date window.
type Agenda struct {
	Doctor  string        `json:"medico"`
	Period  AgendaPeriod  `json:"periodo"`
	Total   int           `json:"total_consultas"`
	Entries []AgendaEntry `json:"consultas"`
}

type AgendaPeriod struct {
	Start string `json:"inicio"`
	End   string `json:"fim"`
}

type AgendaEntry struct {
	AppointmentID string `json:"id_marcacao"`
	Patient       string `json:"paciente"`
	Phone         string `json:"telefone"`
	Date          string `json:"data"`
	Time          string `json:"hora"`
	Doctor        string `json:"medico"`
	Specialty     string `json:"especialidade"`
	Confirmed     bool   `json:"confirmada"`
	Status        string `json:"status"`
}
