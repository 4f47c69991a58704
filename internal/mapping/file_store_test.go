package mapping

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreMapping(t *testing.T) {
	ctx := context.Background()

	t.Run("LoadBeforeUpload", func(t *testing.T) {
		store := NewFileStore(t.TempDir())

		_, err := store.LoadMapping(ctx)
		assert.ErrorIs(t, err, ErrSnapshotNotLoaded)
	})

	t.Run("SaveThenLoad", func(t *testing.T) {
		store := NewFileStore(t.TempDir())

		snap := Snapshot{
			"5521999990000": {{ID: "100", Name: "Ana", Date: "10/09/2026", Time: "14:30", Doctor: "Dr. Souza"}},
		}
		require.NoError(t, store.SaveMapping(ctx, snap))

		got, err := store.LoadMapping(ctx)
		require.NoError(t, err)
		assert.Equal(t, snap, got)
	})

	t.Run("WholesaleReplace", func(t *testing.T) {
		store := NewFileStore(t.TempDir())

		require.NoError(t, store.SaveMapping(ctx, Snapshot{"5521999990000": {{ID: "100"}}}))
		require.NoError(t, store.SaveMapping(ctx, Snapshot{"5531888887777": {{ID: "200"}}}))

		got, err := store.LoadMapping(ctx)
		require.NoError(t, err)
		assert.NotContains(t, got, "5521999990000")
		assert.Contains(t, got, "5531888887777")
	})

	t.Run("LegacyFileName", func(t *testing.T) {
		dir := t.TempDir()
		legacy := `{"5521999990000": [{"id_marcacao": 100, "nome": "Ana"}]}`
		require.NoError(t, os.WriteFile(filepath.Join(dir, "agenda_mapeamento.json"), []byte(legacy), 0o644))

		store := NewFileStore(dir)
		got, err := store.LoadMapping(ctx)
		require.NoError(t, err)
		require.Contains(t, got, "5521999990000")
		assert.Equal(t, "100", got["5521999990000"][0].ID, "numeric ids are normalized to strings")
	})

	t.Run("StringIDInExport", func(t *testing.T) {
		dir := t.TempDir()
		raw := `{"5521999990000": [{"id_marcacao": "100", "nome": "Ana"}]}`
		require.NoError(t, os.WriteFile(filepath.Join(dir, "mapeamento.json"), []byte(raw), 0o644))

		store := NewFileStore(dir)
		got, err := store.LoadMapping(ctx)
		require.NoError(t, err)
		assert.Equal(t, "100", got["5521999990000"][0].ID)
	})
}

func TestFileStoreConfirmations(t *testing.T) {
	ctx := context.Background()

	t.Run("EmptyByDefault", func(t *testing.T) {
		store := NewFileStore(t.TempDir())

		recs, err := store.LoadConfirmations(ctx)
		require.NoError(t, err)
		assert.Empty(t, recs)
	})

	t.Run("SaveAndOverwrite", func(t *testing.T) {
		store := NewFileStore(t.TempDir())

		first := ConfirmationRecord{Phone: "5521999990000", ConfirmedAt: time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC), Status: "confirmado"}
		require.NoError(t, store.SaveConfirmation(ctx, "100", first))

		second := first
		second.ConfirmedAt = second.ConfirmedAt.Add(time.Hour)
		require.NoError(t, store.SaveConfirmation(ctx, "100", second))
		require.NoError(t, store.SaveConfirmation(ctx, "200", first))

		recs, err := store.LoadConfirmations(ctx)
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, second.ConfirmedAt, recs["100"].ConfirmedAt, "reconfirm overwrites")
	})

	t.Run("FileShape", func(t *testing.T) {
		dir := t.TempDir()
		store := NewFileStore(dir)

		rec := ConfirmationRecord{Phone: "5521999990000", ConfirmedAt: time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC), Status: "confirmado"}
		require.NoError(t, store.SaveConfirmation(ctx, "100", rec))

		b, err := os.ReadFile(filepath.Join(dir, "confirmacoes.json"))
		require.NoError(t, err)

		var onDisk map[string]map[string]any
		require.NoError(t, json.Unmarshal(b, &onDisk))
		require.Contains(t, onDisk, "100")
		assert.Equal(t, "5521999990000", onDisk["100"]["telefone"])
		assert.Equal(t, "confirmado", onDisk["100"]["status"])
	})
}
