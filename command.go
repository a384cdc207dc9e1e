package secretscope

import (
	"context"
	goerrors "errors"
	"io"
	"os"
	"os/exec"

	"github.com/blueberrycongee/secretscope/pkg/errors"
)

// ExecConfig configures a subprocess action.
type ExecConfig struct {
	// Dir is the working directory of the child process. Artifacts live in
	// the session scratch directory, never under Dir.
	Dir string

	// Env holds extra environment entries appended after the parent
	// environment. The binding entry is appended last.
	Env []string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// ExecAction returns an Action that runs argv with the session binding
// exported through the binding's environment variable. The returned value
// is the child's exit code; a non-zero exit is also returned as an error so
// that Run propagates it as the action outcome.
func ExecAction(argv []string, cfg ExecConfig) Action[int] {
	return func(ctx context.Context, binding Binding) (int, error) {
		if len(argv) == 0 {
			return 0, errors.NewInvalidRequestError("empty command")
		}

		cmd := exec.CommandContext(ctx, argv[0], argv[1:]...) // #nosec G204 -- the command is supplied by the caller, not by secret material.
		cmd.Dir = cfg.Dir
		cmd.Env = append(os.Environ(), cfg.Env...)
		cmd.Env = append(cmd.Env, binding.Environ()...)
		cmd.Stdin = cfg.Stdin
		cmd.Stdout = cfg.Stdout
		cmd.Stderr = cfg.Stderr

		err := cmd.Run()
		if err == nil {
			return 0, nil
		}

		var exitErr *exec.ExitError
		if goerrors.As(err, &exitErr) {
			return exitErr.ExitCode(), err
		}
		return -1, err
	}
}

// RunCommand materializes the named secrets and runs argv with the binding
// exported in its environment. It returns the child's exit code.
func RunCommand(ctx context.Context, s *Session, names, argv []string, cfg ExecConfig) (int, error) {
	return Run(ctx, s, names, ExecAction(argv, cfg))
}
