package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-ioc/framework/storage"
)

func ptr(s string) *string { return &s }

func exercise(t *testing.T, svc storage.Service) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := svc.Load(ctx, "theme")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, svc.Save(ctx, "theme", ptr("dark")))
	v, ok, err := svc.Load(ctx, "theme")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "dark", v)

	require.NoError(t, svc.Save(ctx, "theme", nil))
	_, ok, err = svc.Load(ctx, "theme")
	require.NoError(t, err)
	assert.False(t, ok, "nil value must remove the key")

	require.NoError(t, svc.Save(ctx, "missing", nil), "removing an absent key is not an error")
}

func TestMemory_LoadSaveRemove(t *testing.T) {
	exercise(t, storage.NewMemory(nil))
}

func TestMemory_Seeded(t *testing.T) {
	m := storage.NewMemory(map[string]string{"a": "1"})
	v, ok, err := m.Load(context.Background(), "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1", v)
	assert.Equal(t, map[string]string{"a": "1"}, m.Snapshot())
}

func TestFileService_LoadSaveRemove(t *testing.T) {
	exercise(t, storage.NewFileService(filepath.Join(t.TempDir(), "app", storage.PreferencesFile), nil))
}

func TestFileService_PersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app", storage.PreferencesFile)
	ctx := context.Background()

	require.NoError(t, storage.NewFileService(path, nil).Save(ctx, "timeout", ptr("30")))

	v, ok, err := storage.NewFileService(path, nil).Load(ctx, "timeout")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "30", v)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "timeout: \"30\"")
}

func TestFileService_CorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), storage.PreferencesFile)
	require.NoError(t, os.WriteFile(path, []byte("values: [unclosed"), 0o600))

	_, _, err := storage.NewFileService(path, nil).Load(context.Background(), "x")
	assert.Error(t, err)
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	path, err := storage.DefaultPath("demo")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("demo", storage.PreferencesFile), filepath.Join(filepath.Base(filepath.Dir(path)), filepath.Base(path)))
}
