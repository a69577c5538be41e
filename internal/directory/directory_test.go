package directory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "staffops/pkg/domain"
)

func TestInMemoryDirectory(t *testing.T) {
	ctx := context.Background()
	dir := NewInMemory(
		Profile{UserID: "emp-1", Name: "Asha Rao", Role: id.RoleStaff},
		Profile{UserID: "emp-2", Name: "Dev Mehta", Role: id.RoleAdmin},
	)

	t.Run("known user", func(t *testing.T) {
		p, err := dir.Lookup(ctx, "emp-1")
		assert.NoError(t, err)
		assert.Equal(t, "Asha Rao", p.Name)
		assert.Equal(t, id.RoleStaff, p.Role)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := dir.Lookup(ctx, "ghost")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("put replaces", func(t *testing.T) {
		dir.Put(Profile{UserID: "emp-1", Name: "Asha R.", Role: id.RoleOperations})
		p, err := dir.Lookup(ctx, "emp-1")
		assert.NoError(t, err)
		assert.Equal(t, "Asha R.", p.Name)
	})
}

func TestLoadSeed(t *testing.T) {
	t.Run("empty path gives empty directory", func(t *testing.T) {
		dir, err := LoadSeed("")
		require.NoError(t, err)
		_, err = dir.Lookup(context.Background(), "emp-1")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("loads profiles from file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "seed.json")
		require.NoError(t, os.WriteFile(path, []byte(
			`[{"user_id":"emp-1","name":"Asha Rao","role":"staff"}]`), 0o600))

		dir, err := LoadSeed(path)
		require.NoError(t, err)
		p, err := dir.Lookup(context.Background(), "emp-1")
		require.NoError(t, err)
		assert.Equal(t, "Asha Rao", p.Name)
	})

	t.Run("bad json rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "seed.json")
		require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o600))
		_, err := LoadSeed(path)
		assert.Error(t, err)
	})
}
