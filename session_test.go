package secretscope

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	scoperrors "github.com/blueberrycongee/secretscope/pkg/errors"
	"github.com/blueberrycongee/secretscope/pkg/source"
)

// fakeSource resolves from an in-memory map and records every fetch.
type fakeSource struct {
	values  map[string]string
	fails   map[string]error
	fetched []string
	onFetch func(name string)
}

func (f *fakeSource) Fetch(_ context.Context, names []string) (map[string]source.Record, error) {
	out := make(map[string]source.Record, len(names))
	for _, n := range names {
		f.fetched = append(f.fetched, n)
		if f.onFetch != nil {
			f.onFetch(n)
		}
		if err, ok := f.fails[n]; ok {
			return nil, scoperrors.NewResolutionError(n, "fake", err)
		}
		v, ok := f.values[n]
		if !ok {
			return nil, scoperrors.NewResolutionError(n, "fake", fmt.Errorf("secret %q not found", n))
		}
		out[n] = source.Record{Name: n, Scheme: "fake", Payload: v}
	}
	return out, nil
}

func (f *fakeSource) Close() error { return nil }

// scratchEntries lists leftover session directories under scratch.
func scratchEntries(t *testing.T, scratch string) []string {
	t.Helper()
	entries, err := os.ReadDir(scratch)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestRunMaterializesAndCleansUp(t *testing.T) {
	scratch := t.TempDir()
	src := &fakeSource{values: map[string]string{"app-env": "KEY=value\n"}}
	session, err := New(src, WithScratchDir(scratch))
	require.NoError(t, err)

	var observed []string
	result, err := Run(context.Background(), session, []string{"app-env"},
		func(_ context.Context, b Binding) (string, error) {
			observed = b.Paths()
			require.Len(t, observed, 1)

			data, err := os.ReadFile(observed[0])
			require.NoError(t, err)
			require.Equal(t, "KEY=value\n", string(data))

			// The artifact lives under scratch, not under the working tree.
			require.True(t, strings.HasPrefix(observed[0], scratch))
			return "ok", nil
		})
	require.NoError(t, err)
	require.Equal(t, "ok", result)

	require.Len(t, observed, 1)
	require.NoFileExists(t, observed[0])
	require.Empty(t, scratchEntries(t, scratch))
}

func TestRunResolutionFailureCleansEarlierArtifacts(t *testing.T) {
	scratch := t.TempDir()
	src := &fakeSource{
		values: map[string]string{"a": "one"},
		fails:  map[string]error{"b": fmt.Errorf("vault sealed")},
	}

	// When "b" is being fetched, the artifact for "a" must already exist.
	sawEarlierArtifact := false
	src.onFetch = func(name string) {
		if name != "b" {
			return
		}
		dirs, err := os.ReadDir(scratch)
		if err != nil || len(dirs) != 1 {
			return
		}
		files, err := os.ReadDir(filepath.Join(scratch, dirs[0].Name()))
		if err == nil && len(files) == 1 {
			sawEarlierArtifact = true
		}
	}

	session, err := New(src, WithScratchDir(scratch))
	require.NoError(t, err)

	actionRan := false
	_, err = Run(context.Background(), session, []string{"a", "b"},
		func(_ context.Context, _ Binding) (string, error) {
			actionRan = true
			return "", nil
		})

	require.Error(t, err)
	require.True(t, scoperrors.IsResolution(err))
	var se *scoperrors.SecretError
	require.ErrorAs(t, err, &se)
	require.Equal(t, "b", se.Name)

	require.False(t, actionRan, "action must never run on resolution failure")
	require.True(t, sawEarlierArtifact, "artifact for earlier name was never materialized")
	require.Empty(t, scratchEntries(t, scratch), "earlier artifacts must be deleted before the error surfaces")
	require.Equal(t, []string{"a", "b"}, src.fetched)
}

func TestRunEmptyPayloadFailsWithoutSurvivors(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"empty", ""},
		{"whitespace", " \t\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scratch := t.TempDir()
			src := &fakeSource{values: map[string]string{
				"good": "fine",
				"bad":  tt.payload,
			}}
			session, err := New(src, WithScratchDir(scratch))
			require.NoError(t, err)

			actionRan := false
			_, err = Run(context.Background(), session, []string{"good", "bad"},
				func(_ context.Context, _ Binding) (int, error) {
					actionRan = true
					return 0, nil
				})

			require.Error(t, err)
			require.True(t, scoperrors.IsEmptySecret(err))
			var se *scoperrors.SecretError
			require.ErrorAs(t, err, &se)
			require.Equal(t, "bad", se.Name)

			require.False(t, actionRan)
			require.Empty(t, scratchEntries(t, scratch))
		})
	}
}

func TestRunActionFailurePropagatesAfterCleanup(t *testing.T) {
	scratch := t.TempDir()
	src := &fakeSource{values: map[string]string{"app-env": "KEY=value"}}
	session, err := New(src, WithScratchDir(scratch))
	require.NoError(t, err)

	actionErr := fmt.Errorf("compose up failed")
	var observed []string
	_, err = Run(context.Background(), session, []string{"app-env"},
		func(_ context.Context, b Binding) (string, error) {
			observed = b.Paths()
			return "", actionErr
		})

	require.ErrorIs(t, err, actionErr)
	require.Len(t, observed, 1)
	require.NoFileExists(t, observed[0])
	require.Empty(t, scratchEntries(t, scratch))
}

func TestRunActionPanicStillCleansUp(t *testing.T) {
	scratch := t.TempDir()
	src := &fakeSource{values: map[string]string{"app-env": "KEY=value"}}
	session, err := New(src, WithScratchDir(scratch))
	require.NoError(t, err)

	var observed []string
	require.Panics(t, func() {
		_, _ = Run(context.Background(), session, []string{"app-env"},
			func(_ context.Context, b Binding) (string, error) {
				observed = b.Paths()
				panic("action exploded")
			})
	})

	require.Len(t, observed, 1)
	require.NoFileExists(t, observed[0])
	require.Empty(t, scratchEntries(t, scratch))
}

func TestRunSequentialSessionsUseDistinctPaths(t *testing.T) {
	scratch := t.TempDir()
	src := &fakeSource{values: map[string]string{"app-env": "KEY=value"}}
	session, err := New(src, WithScratchDir(scratch))
	require.NoError(t, err)

	capture := func() []string {
		var paths []string
		_, err := Run(context.Background(), session, []string{"app-env"},
			func(_ context.Context, b Binding) (struct{}, error) {
				paths = b.Paths()
				return struct{}{}, nil
			})
		require.NoError(t, err)
		return paths
	}

	first := capture()
	second := capture()
	require.Len(t, first, 1)
	require.Len(t, second, 1)
	require.NotEqual(t, first[0], second[0])
}

func TestRunDuplicateNamesResolvedIndependently(t *testing.T) {
	scratch := t.TempDir()
	src := &fakeSource{values: map[string]string{"app-env": "KEY=value"}}
	session, err := New(src, WithScratchDir(scratch))
	require.NoError(t, err)

	err = session.Do(context.Background(), []string{"app-env", "app-env"},
		func(_ context.Context, b Binding) error {
			require.Len(t, b.Paths(), 2)
			require.NotEqual(t, b.Paths()[0], b.Paths()[1])
			return nil
		})
	require.NoError(t, err)
	require.Equal(t, []string{"app-env", "app-env"}, src.fetched)
}

func TestRunRejectsEmptyNameList(t *testing.T) {
	src := &fakeSource{}
	session, err := New(src)
	require.NoError(t, err)

	_, err = Run(context.Background(), session, nil,
		func(_ context.Context, _ Binding) (int, error) { return 0, nil })
	require.Error(t, err)
	require.True(t, scoperrors.IsType(err, scoperrors.TypeInvalidRequest))
	require.Empty(t, src.fetched)
}

func TestRunCleanupWarningDoesNotChangeOutcome(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory write permissions")
	}

	scratch := t.TempDir()
	src := &fakeSource{values: map[string]string{"a": "one", "b": "two"}}

	var report *scoperrors.CleanupReport
	session, err := New(src,
		WithScratchDir(scratch),
		WithCleanupObserver(func(r *scoperrors.CleanupReport) { report = r }),
	)
	require.NoError(t, err)

	var sessionDir string
	result, err := Run(context.Background(), session, []string{"a", "b"},
		func(_ context.Context, b Binding) (string, error) {
			sessionDir = filepath.Dir(b.Paths()[0])
			// Freeze the session directory so teardown unlinks fail.
			require.NoError(t, os.Chmod(sessionDir, 0o500))
			return "done", nil
		})
	t.Cleanup(func() { _ = os.Chmod(sessionDir, 0o700); _ = os.RemoveAll(sessionDir) })

	// The action outcome is preserved despite teardown warnings.
	require.NoError(t, err)
	require.Equal(t, "done", result)

	require.NotNil(t, report, "cleanup observer must receive the report")
	require.Len(t, report.Warnings, 3) // two artifacts plus the session dir
}

func TestRunOrderedBinding(t *testing.T) {
	scratch := t.TempDir()
	src := &fakeSource{values: map[string]string{
		"first":  "1",
		"second": "2",
		"third":  "3",
	}}
	session, err := New(src, WithScratchDir(scratch))
	require.NoError(t, err)

	err = session.Do(context.Background(), []string{"first", "second", "third"},
		func(_ context.Context, b Binding) error {
			paths := b.Paths()
			require.Len(t, paths, 3)
			for i, want := range []string{"1", "2", "3"} {
				data, err := os.ReadFile(paths[i])
				require.NoError(t, err)
				require.Equal(t, want, string(data))
			}
			return nil
		})
	require.NoError(t, err)
}

func TestBindingEnviron(t *testing.T) {
	b := Binding{paths: []string{"/tmp/x/a", "/tmp/x/b"}, envKey: "SECRET_FILES", sep: ","}
	require.Equal(t, "SECRET_FILES", b.EnvKey())
	require.Equal(t, "/tmp/x/a,/tmp/x/b", b.Value())
	require.Equal(t, []string{"SECRET_FILES=/tmp/x/a,/tmp/x/b"}, b.Environ())

	empty := Binding{envKey: "SECRET_FILES", sep: ","}
	require.Nil(t, empty.Environ())
}

func TestBindingPathsIsACopy(t *testing.T) {
	b := Binding{paths: []string{"/tmp/a"}, envKey: "SECRET_FILES", sep: ","}
	got := b.Paths()
	got[0] = "/tmp/mutated"
	require.Equal(t, "/tmp/a", b.Value())
}

func TestNewRequiresSource(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}

func TestRunWrapsUntypedSourceErrors(t *testing.T) {
	src := &untypedFailSource{}
	session, err := New(src, WithScratchDir(t.TempDir()))
	require.NoError(t, err)

	_, err = Run(context.Background(), session, []string{"x"},
		func(_ context.Context, _ Binding) (int, error) { return 0, nil })
	require.Error(t, err)
	require.True(t, scoperrors.IsResolution(err))
}

type untypedFailSource struct{}

func (s *untypedFailSource) Fetch(context.Context, []string) (map[string]source.Record, error) {
	return nil, fmt.Errorf("backend unreachable")
}

func (s *untypedFailSource) Close() error { return nil }
