// Example: Running a command inside a scoped secret session
//
// This example demonstrates resolving secrets from multiple sources,
// running an action against the materialized files, and verifying that
// every artifact is removed when the session ends.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/blueberrycongee/secretscope"
	"github.com/blueberrycongee/secretscope/pkg/source"
	"github.com/blueberrycongee/secretscope/pkg/source/env"
	"github.com/blueberrycongee/secretscope/pkg/source/file"
)

func main() {
	// Create a logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	// Register one provider per scheme. Bare names fall back to env.
	mgr := source.NewManager(source.WithFallbackScheme("env"))
	mgr.Register("env", env.New())

	if dir := os.Getenv("SECRETS_DIR"); dir != "" {
		fileProvider, err := file.New(dir)
		if err != nil {
			logger.Error("file source unavailable", "error", err)
			os.Exit(1)
		}
		// Cache file lookups for repeated sessions.
		mgr.Register("file", source.NewCachedProvider(fileProvider, 5*time.Minute))
	}
	defer mgr.Close()

	session, err := secretscope.New(mgr,
		secretscope.WithLogger(logger),
		secretscope.WithEnvKey("DEPLOY_SECRETS"),
	)
	if err != nil {
		logger.Error("session setup failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Run a typed action. The binding exposes file paths only; the
	// payloads never appear in the action's inputs.
	paths, err := secretscope.Run(ctx, session, []string{"env://HOME"},
		func(ctx context.Context, b secretscope.Binding) ([]string, error) {
			for _, p := range b.Paths() {
				info, err := os.Stat(p)
				if err != nil {
					return nil, err
				}
				fmt.Printf("artifact %s mode=%s\n", p, info.Mode())
			}
			return b.Paths(), nil
		})
	if err != nil {
		logger.Error("session failed", "error", err)
		os.Exit(1)
	}

	// Every artifact is gone once Run returns.
	for _, p := range paths {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			fmt.Printf("artifact %s removed\n", p)
		}
	}

	// Or run a whole subprocess with the binding exported.
	code, err := secretscope.RunCommand(ctx, session,
		[]string{"env://HOME"},
		[]string{"/bin/sh", "-c", `cat "$DEPLOY_SECRETS"`},
		secretscope.ExecConfig{Stdout: os.Stdout, Stderr: os.Stderr},
	)
	if err != nil {
		logger.Error("command failed", "error", err, "exit_code", code)
		os.Exit(1)
	}
}
