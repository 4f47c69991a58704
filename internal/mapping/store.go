package mapping

import "context"

// Store persists the phone → appointments snapshot and the confirmation
// records. Two implementations exist: a JSON file store (the default) and a
// Postgres store; the reconciliation engine is agnostic to which one it gets.
type Store interface {
	// LoadMapping returns the current snapshot, or ErrSnapshotNotLoaded when
	// none has been uploaded yet.
	LoadMapping(ctx context.Context) (Snapshot, error)

	// SaveMapping replaces the snapshot wholesale. Readers never observe a
	// partially written mapping.
	SaveMapping(ctx context.Context, snap Snapshot) error

	LoadConfirmations(ctx context.Context) (map[string]ConfirmationRecord, error)

	// SaveConfirmation upserts the record for one appointment id. Existing
	// records are overwritten on reconfirm, never deleted.
	SaveConfirmation(ctx context.Context, appointmentID string, rec ConfirmationRecord) error
}
