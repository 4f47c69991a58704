package api

import (
	"time"

	"github.com/datbaby/confirmation-relay/internal/relay"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// ConfirmResponse is the webhook reply for confirmation requests. Partial
// failures still report status success with the failed items listed.
type ConfirmResponse struct {
	Status    string               `json:"status"`
	Message   string               `json:"mensagem"`
	Confirmed []int64              `json:"confirmadas,omitempty"`
	Errors    []relay.ConfirmError `json:"erros,omitempty"`
	Timestamp time.Time            `json:"timestamp"`
}

type UploadResponse struct {
	Status    string      `json:"status"`
	Message   string      `json:"mensagem"`
	Stats     UploadStats `json:"estatisticas"`
	Timestamp time.Time   `json:"timestamp"`
}

type UploadStats struct {
	Phones       int `json:"total_telefones"`
	Appointments int `json:"total_marcacoes"`
}

type DoctorListResponse struct {
	Total   int      `json:"total"`
	Doctors []string `json:"medicos"`
}

type ProbeResponse struct {
	Status    string    `json:"status"`
	Message   string    `json:"mensagem"`
	Timestamp time.Time `json:"timestamp"`
}
