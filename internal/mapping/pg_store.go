package mapping

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore persists the snapshot and the confirmation records in Postgres.
// The snapshot keeps its export shape: one row per phone, appointments as a
// JSONB array, replaced wholesale inside a transaction on upload.
type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// InitSchema creates the tables if they do not exist. Called once at startup
// when the relational store is configured.
func (s *PgStore) InitSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS mapeamento (
			telefone TEXT PRIMARY KEY,
			marcacoes JSONB NOT NULL,
			atualizado_em TIMESTAMPTZ NOT NULL DEFAULT now()
		);

		CREATE TABLE IF NOT EXISTS confirmacoes (
			id_marcacao TEXT PRIMARY KEY,
			telefone TEXT,
			confirmado_em TIMESTAMPTZ,
			status TEXT NOT NULL DEFAULT 'confirmado',
			criado_em TIMESTAMPTZ NOT NULL DEFAULT now(),
			atualizado_em TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_confirmacoes_telefone ON confirmacoes(telefone);
	`)
	if err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

func (s *PgStore) LoadMapping(ctx context.Context) (Snapshot, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT telefone, marcacoes
		FROM mapeamento
	`)
	if err != nil {
		return nil, fmt.Errorf("load mapping: %w", err)
	}
	defer rows.Close()

	snap := Snapshot{}
	for rows.Next() {
		var phone string
		var raw []byte
		if err := rows.Scan(&phone, &raw); err != nil {
			return nil, fmt.Errorf("scan mapping row: %w", err)
		}

		var refs []AppointmentRef
		if err := json.Unmarshal(raw, &refs); err != nil {
			return nil, fmt.Errorf("decode appointments for %s: %w", phone, err)
		}
		snap[phone] = refs
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mapping rows: %w", err)
	}

	if len(snap) == 0 {
		return nil, ErrSnapshotNotLoaded
	}
	return snap, nil
}

func (s *PgStore) SaveMapping(ctx context.Context, snap Snapshot) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin mapping replace: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM mapeamento`); err != nil {
		return fmt.Errorf("clear mapping: %w", err)
	}

	for phone, refs := range snap {
		raw, err := json.Marshal(refs)
		if err != nil {
			return fmt.Errorf("encode appointments for %s: %w", phone, err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO mapeamento (telefone, marcacoes, atualizado_em)
			VALUES ($1, $2, now())
		`, phone, raw)
		if err != nil {
			return fmt.Errorf("insert mapping row for %s: %w", phone, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit mapping replace: %w", err)
	}
	return nil
}

func (s *PgStore) LoadConfirmations(ctx context.Context) (map[string]ConfirmationRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id_marcacao, COALESCE(telefone, ''), confirmado_em, COALESCE(status, '')
		FROM confirmacoes
	`)
	if err != nil {
		return nil, fmt.Errorf("load confirmations: %w", err)
	}
	defer rows.Close()

	recs := map[string]ConfirmationRecord{}
	for rows.Next() {
		var id string
		var rec ConfirmationRecord
		if err := rows.Scan(&id, &rec.Phone, &rec.ConfirmedAt, &rec.Status); err != nil {
			return nil, fmt.Errorf("scan confirmation row: %w", err)
		}
		recs[id] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate confirmation rows: %w", err)
	}
	return recs, nil
}

func (s *PgStore) SaveConfirmation(ctx context.Context, appointmentID string, rec ConfirmationRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO confirmacoes (id_marcacao, telefone, confirmado_em, status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id_marcacao)
		DO UPDATE SET
			telefone = EXCLUDED.telefone,
			confirmado_em = EXCLUDED.confirmado_em,
			status = EXCLUDED.status,
			atualizado_em = now()
	`, appointmentID, rec.Phone, rec.ConfirmedAt, rec.Status)
	if err != nil {
		return fmt.Errorf("save confirmation %s: %w", appointmentID, err)
	}
	return nil
}
