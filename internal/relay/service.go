package relay

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/datbaby/confirmation-relay/internal/asa"
	"github.com/datbaby/confirmation-relay/internal/mapping"
	redisclient "github.com/datbaby/confirmation-relay/internal/redis"
)

const (
	maxAgendaDays     = 7
	statusConcurrency = 8

	wireDateLayout    = "2006-01-02" // remote API query parameter
	displayDateLayout = "02/01/2006" // what the export and the report show
)

var (
	// ErrNoneConfirmed means every confirmation attempt in a batch failed.
	// Partial success is the normal case and not an error.
	ErrNoneConfirmed = errors.New("no appointment was confirmed")

	ErrDoctorRequired = errors.New("doctor name is required")
	ErrRangeTooWide   = fmt.Errorf("agenda range is limited to %d days", maxAgendaDays)
	ErrInvalidDate    = errors.New("dates must be formatted as YYYY-MM-DD")
)

// SchedulingClient is what the engine needs from the remote scheduling
// system.
type SchedulingClient interface {
	Confirm(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*asa.Record, error)
	List(ctx context.Context, date string) ([]asa.Record, error)
}

// ConfirmError is one failed confirmation attempt inside a batch.
type ConfirmError struct {
	ID         string `json:"id"`
	StatusCode int    `json:"status,omitempty"`
	Reason     string `json:"erro"`
}

// ConfirmOutcome aggregates a batch of per-appointment confirmation attempts.
type ConfirmOutcome struct {
	ConfirmedIDs []int64        `json:"confirmadas"`
	Errors       []ConfirmError `json:"erros,omitempty"`
}

// Service is the reconciliation engine: it turns resolved phones or ids into
// remote confirmation writes and reconciles local mapping state with the
// remote system's confirmation status.
type Service struct {
	store  mapping.Store
	remote SchedulingClient
	cache  StatusCache
	locker redisclient.Locker
	now    func() time.Time
}

func NewService(store mapping.Store, remote SchedulingClient, cache StatusCache, locker redisclient.Locker) *Service {
	return &Service{
		store:  store,
		remote: remote,
		cache:  cache,
		locker: locker,
		now:    time.Now,
	}
}

// ConfirmByPhone looks the phone up in the mapping and attempts a remote
// confirmation for each appointment independently; one failure does not abort
// the others. The result is an error only when the mapping cannot be loaded,
// the phone is not mapped, or every single attempt failed.
func (s *Service) ConfirmByPhone(ctx context.Context, rawPhone string) (*ConfirmOutcome, error) {
	snap, err := s.store.LoadMapping(ctx)
	if err != nil {
		if errors.Is(err, mapping.ErrSnapshotNotLoaded) {
			return nil, err
		}
		return nil, fmt.Errorf("load mapping: %w", err)
	}

	refs, matchedKey, err := mapping.NewIndex(snap).Lookup(rawPhone)
	if err != nil {
		return nil, err
	}
	log.Printf("phone %s matched mapping key %s with %d appointment(s)", rawPhone, matchedKey, len(refs))

	outcome := &ConfirmOutcome{}
	for _, ref := range refs {
		id, perr := strconv.ParseInt(strings.TrimSpace(ref.ID), 10, 64)
		if perr != nil {
			outcome.Errors = append(outcome.Errors, ConfirmError{ID: ref.ID, Reason: "id invalido"})
			continue
		}

		if cerr := s.confirmOne(ctx, id, rawPhone); cerr != nil {
			outcome.Errors = append(outcome.Errors, toConfirmError(ref.ID, cerr))
			continue
		}
		outcome.ConfirmedIDs = append(outcome.ConfirmedIDs, id)
	}

	if len(outcome.ConfirmedIDs) == 0 {
		return outcome, ErrNoneConfirmed
	}
	return outcome, nil
}

// ConfirmByID is the direct-id fallback path: one remote confirmation,
// recorded under the id itself since no phone is known.
func (s *Service) ConfirmByID(ctx context.Context, id int64) error {
	return s.confirmOne(ctx, id, strconv.FormatInt(id, 10))
}

// confirmOne performs the remote write and, on success, records the
// confirmation and invalidates the status cache. The lock keeps two
// concurrent confirms of the same id from interleaving; record write failures
// are logged, not surfaced, because the remote system already holds the
// authoritative state.
func (s *Service) confirmOne(ctx context.Context, id int64, phone string) error {
	key := strconv.FormatInt(id, 10)

	return s.locker.WithConfirmLock(ctx, key, func(ctx context.Context) error {
		if err := s.remote.Confirm(ctx, id); err != nil {
			return err
		}

		rec := mapping.ConfirmationRecord{
			Phone:       phone,
			ConfirmedAt: s.now(),
			Status:      StatusConfirmed,
		}
		if err := s.store.SaveConfirmation(ctx, key, rec); err != nil {
			log.Printf("failed to record confirmation for %s: %v", key, err)
		}

		s.cache.Invalidate(ctx)
		return nil
	})
}

func toConfirmError(id string, err error) ConfirmError {
	var statusErr *asa.StatusError
	if errors.As(err, &statusErr) {
		return ConfirmError{ID: id, StatusCode: statusErr.Code, Reason: fmt.Sprintf("status %d", statusErr.Code)}
	}
	if errors.Is(err, redisclient.ErrLockNotAcquired) {
		return ConfirmError{ID: id, Reason: "confirmacao em andamento"}
	}
	return ConfirmError{ID: id, Reason: err.Error()}
}

// Status returns the aggregated confirmation report, served from cache while
// fresh. A rebuild queries the remote system per mapped appointment; any
// remote failure downgrades that row to pending rather than failing the view.
func (s *Service) Status(ctx context.Context) (*AggregatedReport, error) {
	if report, ok := s.cache.Get(ctx); ok {
		return report, nil
	}
	return s.RefreshStatus(ctx)
}

// RefreshStatus rebuilds the report and replaces whatever the cache holds,
// even if it is still fresh. The refresher worker uses this to keep a shared
// cache warm.
func (s *Service) RefreshStatus(ctx context.Context) (*AggregatedReport, error) {
	snap, err := s.store.LoadMapping(ctx)
	if err != nil {
		if errors.Is(err, mapping.ErrSnapshotNotLoaded) {
			// No mapping uploaded yet: an empty report, not an error.
			return &AggregatedReport{Patients: []PatientStatus{}}, nil
		}
		return nil, fmt.Errorf("load mapping: %w", err)
	}

	confirmations, err := s.store.LoadConfirmations(ctx)
	if err != nil {
		log.Printf("failed to load confirmation records: %v", err)
		confirmations = map[string]mapping.ConfirmationRecord{}
	}

	entries := mapping.NewIndex(snap).AllEntries()
	log.Printf("rebuilding status report for %d appointment(s)", len(entries))

	// Bounded fan-out; each goroutine writes its own slot so ordering is
	// deterministic before the sort below.
	rows := make([]PatientStatus, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(statusConcurrency)

	for i, entry := range entries {
		i, entry := i, entry
		g.Go(func() error {
			rows[i] = s.statusRow(gctx, entry, confirmations)
			return nil
		})
	}
	_ = g.Wait() // statusRow never returns an error

	sort.SliceStable(rows, func(i, j int) bool {
		ci, cj := rows[i].Status == StatusConfirmed, rows[j].Status == StatusConfirmed
		if ci != cj {
			return ci
		}
		return rows[i].Name < rows[j].Name
	})

	report := &AggregatedReport{
		TotalSent: len(rows),
		Patients:  rows,
	}
	for _, row := range rows {
		if row.Status == StatusConfirmed {
			report.TotalConfirmed++
		} else {
			report.TotalPending++
		}
	}

	s.cache.Put(ctx, report)
	return report, nil
}

func (s *Service) statusRow(ctx context.Context, entry mapping.Entry, confirmations map[string]mapping.ConfirmationRecord) PatientStatus {
	row := PatientStatus{
		AppointmentID: entry.Ref.ID,
		Phone:         entry.Phone,
		Name:          entry.Ref.Name,
		Date:          entry.Ref.Date,
		Time:          entry.Ref.Time,
		Doctor:        entry.Ref.Doctor,
		Status:        StatusPending,
	}
	if row.Name == "" {
		row.Name = "Sem nome"
	}

	id, err := strconv.ParseInt(strings.TrimSpace(entry.Ref.ID), 10, 64)
	if err != nil {
		return row
	}

	rec, err := s.remote.Get(ctx, id)
	if err != nil {
		log.Printf("status lookup failed for %s, reporting as pending: %v", entry.Ref.ID, err)
		return row
	}

	if rec.IsConfirmed() {
		row.Status = StatusConfirmed
		if local, ok := confirmations[entry.Ref.ID]; ok {
			at := local.ConfirmedAt
			row.ConfirmedAt = &at
		}
	}
	return row
}

// DoctorAgenda lists one doctor's consultations over a date window, defaulting
// to the current week and hard-capped at seven days. A failed day fetch is
// skipped and logged, never fatal.
func (s *Service) DoctorAgenda(ctx context.Context, doctor, startStr, endStr string) (*Agenda, error) {
	doctor = strings.TrimSpace(doctor)
	if doctor == "" {
		return nil, ErrDoctorRequired
	}

	var start, end time.Time
	if startStr == "" || endStr == "" {
		today := s.now()
		start = today.AddDate(0, 0, -int(today.Weekday())) // sunday of the current week
		end = start.AddDate(0, 0, 6)
	} else {
		var err error
		if start, err = time.Parse(wireDateLayout, startStr); err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidDate, startStr)
		}
		if end, err = time.Parse(wireDateLayout, endStr); err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidDate, endStr)
		}
	}

	if int(end.Sub(start).Hours()/24) > maxAgendaDays {
		return nil, ErrRangeTooWide
	}

	agenda := &Agenda{
		Doctor: doctor,
		Period: AgendaPeriod{
			Start: start.Format(wireDateLayout),
			End:   end.Format(wireDateLayout),
		},
		Entries: []AgendaEntry{},
	}

	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		recs, err := s.remote.List(ctx, day.Format(wireDateLayout))
		if err != nil {
			log.Printf("agenda fetch failed for %s, skipping day: %v", day.Format(wireDateLayout), err)
			continue
		}

		var dayEntries []AgendaEntry
		for _, rec := range recs {
			if !strings.EqualFold(strings.TrimSpace(rec.DoctorName()), doctor) {
				continue
			}

			entry := AgendaEntry{
				AppointmentID: strconv.FormatInt(rec.ID, 10),
				Patient:       rec.Patient,
				Phone:         rec.FirstPhone(),
				Date:          day.Format(displayDateLayout),
				Time:          scheduledTime(rec.ScheduledAt),
				Doctor:        rec.DoctorName(),
				Confirmed:     rec.IsConfirmed(),
				Status:        StatusPending,
			}
			if entry.Patient == "" {
				entry.Patient = "Sem nome"
			}
			if rec.Specialty != nil {
				entry.Specialty = rec.Specialty.Name
			}
			if entry.Confirmed {
				entry.Status = StatusConfirmed
			}
			dayEntries = append(dayEntries, entry)
		}

		sort.SliceStable(dayEntries, func(i, j int) bool {
			return dayEntries[i].Time < dayEntries[j].Time
		})
		agenda.Entries = append(agenda.Entries, dayEntries...)
	}

	agenda.Total = len(agenda.Entries)
	return agenda, nil
}

// ListDoctors returns every doctor with at least one consultation in the next
// seven days, sorted by name.
func (s *Service) ListDoctors(ctx context.Context) ([]string, error) {
	today := s.now()
	seen := make(map[string]struct{})

	for offset := 0; offset <= maxAgendaDays; offset++ {
		day := today.AddDate(0, 0, offset).Format(wireDateLayout)
		recs, err := s.remote.List(ctx, day)
		if err != nil {
			log.Printf("doctor listing fetch failed for %s, skipping day: %v", day, err)
			continue
		}
		for _, rec := range recs {
			if name := rec.DoctorName(); name != "" {
				seen[name] = struct{}{}
			}
		}
	}

	doctors := make([]string, 0, len(seen))
	for name := range seen {
		doctors = append(doctors, name)
	}
	sort.Strings(doctors)
	return doctors, nil
}

// Probe checks connectivity to the remote scheduling system.
func (s *Service) Probe(ctx context.Context) error {
	if _, err := s.remote.List(ctx, s.now().Format(wireDateLayout)); err != nil {
		return fmt.Errorf("scheduling system probe: %w", err)
	}
	return nil
}

// scheduledTime extracts HH:MM from the remote timestamp, which has been
// seen both with and without a zone suffix. Unparseable values yield an empty
// time rather than an error.
func scheduledTime(iso string) string {
	if iso == "" {
		return ""
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, iso); err == nil {
			return t.Format("15:04")
		}
	}
	return ""
}
