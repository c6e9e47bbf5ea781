package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_WritesDefaults(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(Options{Name: "swap", Dir: dir, Defaults: map[string]any{"originalPath": "/docs/a.gko"}})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "swap.json"), s.Path())
	v, ok := s.String("originalPath")
	require.True(t, ok)
	assert.Equal(t, "/docs/a.gko", v)

	data, err := os.ReadFile(filepath.Join(dir, "swap.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"originalPath":"/docs/a.gko"}`, string(data))
}

func TestOpen_DefaultsDoNotOverrideStoredValues(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "swap.json"), []byte(`{"originalPath":"/first.gko"}`), 0o644))

	s, err := Open(Options{Name: "swap", Dir: dir, Defaults: map[string]any{"originalPath": "/second.gko", "extra": true}})
	require.NoError(t, err)

	v, _ := s.String("originalPath")
	assert.Equal(t, "/first.gko", v)
	extra, ok := s.Get("extra")
	require.True(t, ok)
	assert.Equal(t, true, extra)

	reopened, err := Open(Options{Name: "swap", Dir: dir})
	require.NoError(t, err)
	assert.Equal(t, []string{"extra", "originalPath"}, reopened.Keys())
}

func TestOpen_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")

	_, err := Open(Options{Name: "window-state", Dir: dir})
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "window-state.json"))
	assert.NoError(t, err)
}

func TestOpen_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "swap.json"), []byte(`{not json`), 0o644))

	_, err := Open(Options{Name: "swap", Dir: dir})
	assert.Error(t, err)
}

func TestOpen_RequiresNameAndDir(t *testing.T) {
	_, err := Open(Options{Dir: t.TempDir()})
	assert.Error(t, err)
	_, err = Open(Options{Name: "swap"})
	assert.Error(t, err)
}

func TestSet_Persists(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(Options{Name: "swap", Dir: dir})
	require.NoError(t, err)

	require.NoError(t, s.Set("originalPath", "/moved.gko"))

	reopened, err := Open(Options{Name: "swap", Dir: dir})
	require.NoError(t, err)
	v, ok := reopened.String("originalPath")
	require.True(t, ok)
	assert.Equal(t, "/moved.gko", v)
}

func TestString_WrongType(t *testing.T) {
	s, err := Open(Options{Name: "swap", Dir: t.TempDir(), Defaults: map[string]any{"count": 3}})
	require.NoError(t, err)

	_, ok := s.String("count")
	assert.False(t, ok)
	_, ok = s.String("missing")
	assert.False(t, ok)
}
