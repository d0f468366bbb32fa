// Package sandbox manages ephemeral remote execution environments.
//
// Every operation re-resolves the sandbox by id. The controller never holds a live
// connection across durable steps, so a run resumed in another process keeps working
// for as long as the sandbox itself survives.
package sandbox

import (
	"context"
	"time"
)

// Provider creates and reconnects to sandboxes.
type Provider interface {
	// Create provisions a sandbox from a named template and returns its id.
	Create(ctx context.Context, template string) (string, error)

	// Connect re-attaches to an existing sandbox. An expired sandbox returns
	// *SandboxUnavailableError.
	Connect(ctx context.Context, id string) (Handle, error)

	// Remove destroys a sandbox. Removing an unknown id is not an error.
	Remove(ctx context.Context, id string) error
}

// Lister enumerates the sandboxes a provider manages, live or expired.
type Lister interface {
	List(ctx context.Context) ([]string, error)
}

// Handle is a connection to one running sandbox.
type Handle interface {
	ID() string

	// SetTimeout resets the inactivity timeout, counted from now.
	SetTimeout(ctx context.Context, d time.Duration) error

	// Run executes a shell command. A non-zero exit returns *CommandExitError
	// together with the collected result.
	Run(ctx context.Context, command string, opts RunOptions) (*CommandResult, error)

	WriteFile(ctx context.Context, path, content string) error
	ReadFile(ctx context.Context, path string) (string, error)

	// Host resolves the externally reachable host for a port inside the sandbox.
	Host(ctx context.Context, port int) (string, error)
}

// RunOptions carries streaming callbacks for Run.
type RunOptions struct {
	OnStdout func(chunk string)
	OnStderr func(chunk string)
}

// CommandResult is the outcome of a finished command.
type CommandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}
