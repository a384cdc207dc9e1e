package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T) (*Provider, string) {
	t.Helper()
	dir := t.TempDir()
	p, err := New(dir)
	require.NoError(t, err)
	return p, dir
}

func TestGetPlainFile(t *testing.T) {
	p, dir := newTestProvider(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app-env"), []byte("KEY=value\n"), 0o600))

	val, err := p.Get(context.Background(), "app-env")
	require.NoError(t, err)
	require.Equal(t, "KEY=value\n", val)
}

func TestGetNestedFile(t *testing.T) {
	p, dir := newTestProvider(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "deploy"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "deploy", "token"), []byte("abc"), 0o600))

	val, err := p.Get(context.Background(), "deploy/token")
	require.NoError(t, err)
	require.Equal(t, "abc", val)
}

func TestGetJSONBundleKey(t *testing.T) {
	p, dir := newTestProvider(t)
	bundle := `{"db_password": "hunter2", "port": 5432}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "creds.json"), []byte(bundle), 0o600))

	val, err := p.Get(context.Background(), "creds.json#db_password")
	require.NoError(t, err)
	require.Equal(t, "hunter2", val)

	val, err = p.Get(context.Background(), "creds.json#port")
	require.NoError(t, err)
	require.Equal(t, "5432", val)
}

func TestGetJSONBundleMissingKey(t *testing.T) {
	p, dir := newTestProvider(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "creds.json"), []byte(`{"a":"b"}`), 0o600))

	_, err := p.Get(context.Background(), "creds.json#missing")
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing")
}

func TestGetMissingFile(t *testing.T) {
	p, _ := newTestProvider(t)
	_, err := p.Get(context.Background(), "nope")
	require.Error(t, err)
}

func TestGetRejectsTraversal(t *testing.T) {
	p, _ := newTestProvider(t)
	_, err := p.Get(context.Background(), "../outside")
	require.Error(t, err)
	require.Contains(t, err.Error(), "escapes")
}

func TestNewRejectsFilePath(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	_, err := New(file)
	require.Error(t, err)
}
