package persistence

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/supplychain/backoffice/internal/domain/shared"
)

func TestNewSQLiteDatabase(t *testing.T) {
	t.Run("opens and pings an in-memory database", func(t *testing.T) {
		db, err := NewSQLiteDatabase(":memory:", zap.NewNop())
		require.NoError(t, err)
		defer db.Close()

		assert.NoError(t, db.Ping())
	})

	t.Run("unopenable path is a system error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing", "ledger.db")

		_, err := NewSQLiteDatabase(path, zap.NewNop())
		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrSystem)
	})
}
