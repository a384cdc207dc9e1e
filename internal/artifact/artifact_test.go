package artifact

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteAndSweep(t *testing.T) {
	scratch := t.TempDir()
	store, err := NewStore(scratch)
	require.NoError(t, err)

	p1, err := store.Write("KEY=value\n")
	require.NoError(t, err)
	p2, err := store.Write("TOKEN=abc")
	require.NoError(t, err)

	require.Equal(t, []string{p1, p2}, store.Paths())

	data, err := os.ReadFile(p1)
	require.NoError(t, err)
	require.Equal(t, "KEY=value\n", string(data))

	if runtime.GOOS != "windows" {
		info, err := os.Stat(p1)
		require.NoError(t, err)
		require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}

	report := store.Sweep()
	require.True(t, report.Empty())

	require.NoFileExists(t, p1)
	require.NoFileExists(t, p2)
	require.NoDirExists(t, store.Dir())
}

func TestStoreDirIsPrivatePerSession(t *testing.T) {
	scratch := t.TempDir()

	a, err := NewStore(scratch)
	require.NoError(t, err)
	b, err := NewStore(scratch)
	require.NoError(t, err)

	require.NotEqual(t, a.Dir(), b.Dir())
	require.True(t, strings.HasPrefix(filepath.Base(a.Dir()), "secretscope-"))
}

func TestWriteGeneratesDistinctNames(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	seen := make(map[string]bool)
	for i := 0; i < 32; i++ {
		p, err := store.Write("x")
		require.NoError(t, err)
		require.False(t, seen[p], "path reused: %s", p)
		seen[p] = true
	}

	report := store.Sweep()
	require.True(t, report.Empty())
}

func TestSweepContinuesPastMissingFiles(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	p1, err := store.Write("a")
	require.NoError(t, err)
	p2, err := store.Write("b")
	require.NoError(t, err)

	// Deleting an artifact out from under the store must not produce a
	// warning; the goal is that nothing remains.
	require.NoError(t, os.Remove(p1))

	report := store.Sweep()
	require.True(t, report.Empty())
	require.NoFileExists(t, p2)
}

func TestSweepReportsFailuresAndKeepsGoing(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not enforced the same way on windows")
	}
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory write permissions")
	}

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	p1, err := store.Write("a")
	require.NoError(t, err)
	p2, err := store.Write("b")
	require.NoError(t, err)

	// Make the session directory read-only so unlinks fail.
	require.NoError(t, os.Chmod(store.Dir(), 0o500))
	t.Cleanup(func() { _ = os.Chmod(store.Dir(), 0o700); _ = os.RemoveAll(store.Dir()) })

	report := store.Sweep()
	require.False(t, report.Empty())

	// Both artifacts must have been attempted.
	paths := make([]string, 0, len(report.Warnings))
	for _, w := range report.Warnings {
		paths = append(paths, w.Path)
	}
	require.Contains(t, paths, p1)
	require.Contains(t, paths, p2)
}

func TestNewStoreDefaultsToSystemTemp(t *testing.T) {
	store, err := NewStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(store.Dir()) })

	require.True(t, strings.HasPrefix(store.Dir(), os.TempDir()))
}
