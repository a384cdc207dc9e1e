// Package secretscope bridges secret material living in a remote store to
// files an external process can read, for the minimum possible wall-clock
// window, with unconditional cleanup.
//
// A Session fetches named secrets from a pluggable source, materializes each
// as an ephemeral file in a private scratch directory, exposes the file
// paths to a caller-supplied action through a Binding, and deletes every
// artifact when the action returns, whether it succeeded or failed.
//
// Basic usage:
//
//	mgr := source.NewManager()
//	mgr.Register("env", env.New())
//
//	session, err := secretscope.New(mgr)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	out, err := secretscope.Run(ctx, session, []string{"env://APP_ENV_NOTES"},
//	    func(ctx context.Context, b secretscope.Binding) (string, error) {
//	        // b.Paths() holds the artifact files; they vanish after return.
//	        return doDeploy(ctx, b.Environ())
//	    })
//
// Artifacts are guaranteed gone after Run returns, except when the process
// is terminated abruptly (power loss, SIGKILL) while the action is running.
// That residual window is a documented limitation, not a contract violation.
package secretscope

import (
	"github.com/blueberrycongee/secretscope/pkg/errors"
	"github.com/blueberrycongee/secretscope/pkg/source"
)

// Version is the current version of secretscope.
const Version = "1.0.0"

// Re-export core types for convenience. Users can use secretscope.Record
// instead of source.Record.
type (
	// Record is a resolved secret.
	Record = source.Record

	// Source resolves batches of secret names.
	Source = source.Source

	// Provider is a single secret backend, registered on a source.Manager.
	Provider = source.Provider

	// SecretError is the standardized fatal session error.
	SecretError = errors.SecretError

	// CleanupWarning records one failed artifact deletion at teardown.
	CleanupWarning = errors.CleanupWarning

	// CleanupReport aggregates the cleanup warnings of one teardown.
	CleanupReport = errors.CleanupReport
)
