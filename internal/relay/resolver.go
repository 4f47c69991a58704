package relay

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
)

var (
	// ErrUnresolvable means the payload carried neither a phone number nor
	// any appointment-id candidate.
	ErrUnresolvable = errors.New("no phone or appointment id found in payload")

	// ErrInvalidID means an appointment-id candidate was present but is not
	// an integer. Distinct from ErrUnresolvable: the sender tried to name an
	// appointment and got it wrong.
	ErrInvalidID = errors.New("invalid appointment id")
)

// ContactDirectory resolves an opaque messaging-platform contact id to a
// phone number.
type ContactDirectory interface {
	LookupPhone(ctx context.Context, contactID string) (string, error)
}

// Resolution is the outcome of payload resolution: exactly one of Phone or
// AppointmentID is set.
type Resolution struct {
	Phone         string
	AppointmentID int64
	HasID         bool
}

// Resolver extracts a phone number or an appointment id from the payload
// shapes the messaging platform has sent over time.
type Resolver struct {
	directory ContactDirectory // nil disables contact lookups
}

func NewResolver(directory ContactDirectory) *Resolver {
	return &Resolver{directory: directory}
}

// Resolve walks the known payload shapes top to bottom; the first match wins.
//
//  1. direct phone field (telefone, phone, numero)
//  2. data.contactId resolved through the contact directory (soft fail)
//  3. data.message.fromId used as phone
//  4. an appointment-id candidate: data.command (bare or under an
//     event=bot.command wrapper), top-level idMarcacao/id_marcacao/id, or
//     command.identifier
func (r *Resolver) Resolve(ctx context.Context, payload map[string]any) (Resolution, error) {
	if phone := scalar(payload["telefone"], payload["phone"], payload["numero"]); phone != "" {
		return Resolution{Phone: phone}, nil
	}

	data, _ := payload["data"].(map[string]any)

	if data != nil {
		if contactID := scalar(data["contactId"]); contactID != "" && r.directory != nil {
			phone, err := r.directory.LookupPhone(ctx, contactID)
			if err != nil {
				// A directory miss continues the chain; it is not a hard error.
				log.Printf("contact directory lookup failed for %s: %v", contactID, err)
			} else if phone != "" {
				return Resolution{Phone: phone}, nil
			}
		}

		if msg, ok := data["message"].(map[string]any); ok {
			if from := scalar(msg["fromId"]); from != "" {
				return Resolution{Phone: from}, nil
			}
		}
	}

	candidate := ""
	if data != nil {
		candidate = scalar(data["command"])
	}
	if candidate == "" {
		candidate = scalar(payload["idMarcacao"], payload["id_marcacao"], payload["id"])
	}
	if candidate == "" {
		if cmd, ok := payload["command"].(map[string]any); ok {
			candidate = scalar(cmd["identifier"])
		}
	}

	if candidate == "" {
		return Resolution{}, ErrUnresolvable
	}

	id, err := strconv.ParseInt(candidate, 10, 64)
	if err != nil {
		return Resolution{}, fmt.Errorf("%w: %q", ErrInvalidID, candidate)
	}
	return Resolution{AppointmentID: id, HasID: true}, nil
}

// scalar returns the first non-empty value rendered as a string. JSON decodes
// numbers as float64, and senders have used both "524387" and 524387 for ids.
func scalar(values ...any) string {
	for _, v := range values {
		switch t := v.(type) {
		case string:
			if t != "" {
				return t
			}
		case float64:
			return strconv.FormatInt(int64(t), 10)
		case int:
			return strconv.Itoa(t)
		}
	}
	return ""
}
