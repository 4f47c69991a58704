// Package asa is the HTTP client for the Visual ASA scheduling system, the
// authoritative owner of appointment records.
package asa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

var ErrAppointmentNotFound = errors.New("appointment not found")

// StatusError carries the upstream HTTP status of a failed call, so per-item
// confirmation errors can report exactly what the scheduling system said.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("scheduling system returned status %d", e.Code)
}

// Record is an appointment as returned by the scheduling system.
type Record struct {
	ID          int64      `json:"idMarcacao"`
	Patient     string     `json:"paciente"`
	Phones      []Phone    `json:"telefones"`
	ScheduledAt string     `json:"dataMarcada"`
	Confirmed   bool       `json:"confirmada"`
	Status      string     `json:"status"`
	Doctor      *Doctor    `json:"medico"`
	Specialty   *Specialty `json:"especialidade"`
}

type Phone struct {
	Number string `json:"telefone"`
}

type Doctor struct {
	Description string `json:"medicoDescricao"`
}

type Specialty struct {
	Name string `json:"nome"`
}

// IsConfirmed reports whether the remote record counts as confirmed. Older
// API versions expose a boolean, newer ones a status string; either marks it.
func (r *Record) IsConfirmed() bool {
	return r.Confirmed || r.Status == "confirmada"
}

// DoctorName returns the clinician description, empty when absent.
func (r *Record) DoctorName() string {
	if r.Doctor == nil {
		return ""
	}
	return r.Doctor.Description
}

// FirstPhone returns the first listed patient phone, empty when none.
func (r *Record) FirstPhone() string {
	if len(r.Phones) == 0 {
		return ""
	}
	return r.Phones[0].Number
}

// Client talks to the scheduling API with basic-auth credentials. Reads use a
// short timeout, confirmation writes a longer one; neither is retried.
type Client struct {
	baseURL        string
	token          string
	httpClient     *http.Client
	readTimeout    time.Duration
	confirmTimeout time.Duration
}

func NewClient(baseURL, token string, readTimeout, confirmTimeout time.Duration) *Client {
	return &Client{
		baseURL:        baseURL,
		token:          token,
		httpClient:     &http.Client{},
		readTimeout:    readTimeout,
		confirmTimeout: confirmTimeout,
	}
}

// Confirm PATCHes the appointment's email-confirmation flag. Any status other
// than 200/204 is returned as a *StatusError.
func (c *Client) Confirm(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, c.confirmTimeout)
	defer cancel()

	body, err := json.Marshal(map[string]any{
		"isEmailConfirmado": true,
		"dataUltConfEmail":  time.Now().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("encode confirm payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch,
		fmt.Sprintf("%s/marcacao/%d", c.baseURL, id), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build confirm request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("confirm appointment %d: %w", id, err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return &StatusError{Code: resp.StatusCode}
	}
	return nil
}

// Get fetches one appointment record by id.
func (c *Client) Get(ctx context.Context, id int64) (*Record, error) {
	ctx, cancel := context.WithTimeout(ctx, c.readTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/marcacao/%d", c.baseURL, id), nil)
	if err != nil {
		return nil, fmt.Errorf("build get request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get appointment %d: %w", id, err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrAppointmentNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode}
	}

	var rec Record
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return nil, fmt.Errorf("decode appointment %d: %w", id, err)
	}
	return &rec, nil
}

// List fetches all appointments scheduled on one day (YYYY-MM-DD).
func (c *Client) List(ctx context.Context, date string) ([]Record, error) {
	ctx, cancel := context.WithTimeout(ctx, c.readTimeout)
	defer cancel()

	u := fmt.Sprintf("%s/marcacao?data=%s", c.baseURL, url.QueryEscape(date))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build list request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list appointments for %s: %w", date, err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode}
	}

	var recs []Record
	if err := json.NewDecoder(resp.Body).Decode(&recs); err != nil {
		return nil, fmt.Errorf("decode appointments for %s: %w", date, err)
	}
	return recs, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Basic "+c.token)
	req.Header.Set("Content-Type", "application/json")
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 4096))
	_ = body.Close()
}
