// Package runner executes a site's preCommand.
package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// ProcessRunner runs a shell command to completion.
type ProcessRunner interface {
	Run(ctx context.Context, command, dir string) error
}

// Shell runs commands with "sh -c". Standard streams are inherited unless
// overridden.
type Shell struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

func NewShell() *Shell {
	return &Shell{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
}

func (s *Shell) Run(ctx context.Context, command, dir string) error {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = dir
	cmd.Stdin = s.Stdin
	cmd.Stdout = s.Stdout
	cmd.Stderr = s.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("command %q failed: %w", command, err)
	}
	return nil
}
