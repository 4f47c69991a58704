package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/datbaby/confirmation-relay/internal/mapping"
	"github.com/datbaby/confirmation-relay/internal/relay"
)

// confirmWebhookHandler serves both /webhook/confirmar and /webhook/digisac:
// the payload shapes overlap and one resolver handles all of them.
func confirmWebhookHandler(svc *relay.Service, resolver *relay.Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || len(payload) == 0 {
			writeError(w, http.StatusBadRequest, "empty_payload", "nenhum dado recebido")
			return
		}

		res, err := resolver.Resolve(r.Context(), payload)
		if err != nil {
			switch {
			case errors.Is(err, relay.ErrInvalidID):
				writeError(w, http.StatusBadRequest, "invalid_id", err.Error())
			case errors.Is(err, relay.ErrUnresolvable):
				writeError(w, http.StatusBadRequest, "unresolvable_payload", "telefone ou ID não encontrado")
			default:
				writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			}
			return
		}

		if res.HasID {
			confirmByID(w, r, svc, res.AppointmentID)
			return
		}
		confirmByPhone(w, r, svc, res.Phone)
	}
}

func confirmByPhone(w http.ResponseWriter, r *http.Request, svc *relay.Service, phone string) {
	outcome, err := svc.ConfirmByPhone(r.Context(), phone)
	if err != nil {
		switch {
		case errors.Is(err, mapping.ErrPhoneNotMapped):
			writeError(w, http.StatusNotFound, "phone_not_mapped",
				fmt.Sprintf("telefone %s não encontrado no mapeamento", phone))
		case errors.Is(err, mapping.ErrSnapshotNotLoaded):
			writeError(w, http.StatusInternalServerError, "mapping_unavailable",
				"nenhum mapeamento carregado, faça o upload do JSON no servidor")
		case errors.Is(err, relay.ErrNoneConfirmed):
			writeJSON(w, http.StatusInternalServerError, ConfirmResponse{
				Status:    "error",
				Message:   "nenhuma marcação foi confirmada",
				Errors:    outcome.Errors,
				Timestamp: time.Now(),
			})
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		}
		return
	}

	msg := fmt.Sprintf("%d marcação(ões) confirmada(s) com sucesso!", len(outcome.ConfirmedIDs))
	if len(outcome.Errors) > 0 {
		msg += fmt.Sprintf(" (%d erro(s))", len(outcome.Errors))
	}

	writeJSON(w, http.StatusOK, ConfirmResponse{
		Status:    "success",
		Message:   msg,
		Confirmed: outcome.ConfirmedIDs,
		Errors:    outcome.Errors,
		Timestamp: time.Now(),
	})
}

func confirmByID(w http.ResponseWriter, r *http.Request, svc *relay.Service, id int64) {
	if err := svc.ConfirmByID(r.Context(), id); err != nil {
		writeJSON(w, http.StatusInternalServerError, ConfirmResponse{
			Status:    "error",
			Message:   fmt.Sprintf("erro ao confirmar marcação %d", id),
			Errors:    []relay.ConfirmError{{ID: fmt.Sprint(id), Reason: err.Error()}},
			Timestamp: time.Now(),
		})
		return
	}

	writeJSON(w, http.StatusOK, ConfirmResponse{
		Status:    "success",
		Message:   fmt.Sprintf("marcação %d confirmada com sucesso!", id),
		Confirmed: []int64{id},
		Timestamp: time.Now(),
	})
}

func statusHandler(svc *relay.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := svc.Status(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "status_unavailable", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

func uploadMappingHandler(store mapping.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var snap mapping.Snapshot
		if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_mapping", "formato inválido, esperado objeto JSON")
			return
		}
		if len(snap) == 0 {
			writeError(w, http.StatusBadRequest, "empty_mapping", "nenhum dado recebido")
			return
		}

		if err := store.SaveMapping(r.Context(), snap); err != nil {
			writeError(w, http.StatusInternalServerError, "mapping_save_failed", err.Error())
			return
		}

		phones, appointments := snap.Stats()
		writeJSON(w, http.StatusOK, UploadResponse{
			Status:  "success",
			Message: "mapeamento atualizado com sucesso!",
			Stats: UploadStats{
				Phones:       phones,
				Appointments: appointments,
			},
			Timestamp: time.Now(),
		})
	}
}

func doctorAgendaHandler(svc *relay.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		agenda, err := svc.DoctorAgenda(r.Context(), q.Get("medico"), q.Get("data_inicio"), q.Get("data_fim"))
		if err != nil {
			switch {
			case errors.Is(err, relay.ErrDoctorRequired):
				writeError(w, http.StatusBadRequest, "doctor_required", "nome do médico é obrigatório")
			case errors.Is(err, relay.ErrRangeTooWide):
				writeError(w, http.StatusBadRequest, "range_too_wide", err.Error())
			case errors.Is(err, relay.ErrInvalidDate):
				writeError(w, http.StatusBadRequest, "invalid_date", err.Error())
			default:
				writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			}
			return
		}
		writeJSON(w, http.StatusOK, agenda)
	}
}

func listDoctorsHandler(svc *relay.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctors, err := svc.ListDoctors(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, DoctorListResponse{
			Total:   len(doctors),
			Doctors: doctors,
		})
	}
}

func probeHandler(svc *relay.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Probe(r.Context()); err != nil {
			writeJSON(w, http.StatusInternalServerError, ProbeResponse{
				Status:    "error",
				Message:   err.Error(),
				Timestamp: time.Now(),
			})
			return
		}
		writeJSON(w, http.StatusOK, ProbeResponse{
			Status:    "success",
			Message:   "conexão com o sistema de agendamento funcionando!",
			Timestamp: time.Now(),
		})
	}
}
