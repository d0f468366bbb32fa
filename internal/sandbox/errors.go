package sandbox

import (
	"errors"
	"fmt"
)

var (
	ErrProvisioning       = errors.New("sandbox provisioning failed")
	ErrSandboxUnavailable = errors.New("sandbox unavailable")
	ErrFileWrite          = errors.New("sandbox file write failed")
	ErrFileRead           = errors.New("sandbox file read failed")
)

// ProvisioningError is returned when a sandbox cannot be created.
type ProvisioningError struct {
	Template string
	Cause    error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("failed to provision sandbox from template %q: %v", e.Template, e.Cause)
}

func (e *ProvisioningError) Unwrap() []error {
	return []error{ErrProvisioning, e.Cause}
}

func (e *ProvisioningError) Retryable() bool {
	return true
}

// SandboxUnavailableError is returned when a sandbox id is unknown or expired.
type SandboxUnavailableError struct {
	ID    string
	Cause error
}

func (e *SandboxUnavailableError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("sandbox %s is unavailable", e.ID)
	}
	return fmt.Sprintf("sandbox %s is unavailable: %v", e.ID, e.Cause)
}

func (e *SandboxUnavailableError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrSandboxUnavailable}
	}
	return []error{ErrSandboxUnavailable, e.Cause}
}

// FileWriteError is returned when writing a file inside the sandbox fails.
type FileWriteError struct {
	Path  string
	Cause error
}

func (e *FileWriteError) Error() string {
	return fmt.Sprintf("failed to write %s: %v", e.Path, e.Cause)
}

func (e *FileWriteError) Unwrap() []error {
	return []error{ErrFileWrite, e.Cause}
}

func (e *FileWriteError) IOError() bool {
	return true
}

// FileReadError is returned when reading a file inside the sandbox fails.
type FileReadError struct {
	Path  string
	Cause error
}

func (e *FileReadError) Error() string {
	return fmt.Sprintf("failed to read %s: %v", e.Path, e.Cause)
}

func (e *FileReadError) Unwrap() []error {
	return []error{ErrFileRead, e.Cause}
}

func (e *FileReadError) IOError() bool {
	return true
}

// CommandExitError is returned by Handle.Run when the command exits non-zero.
type CommandExitError struct {
	ExitCode int
	Stderr   string
}

func (e *CommandExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("exit status %d", e.ExitCode)
	}
	return fmt.Sprintf("exit status %d: %s", e.ExitCode, e.Stderr)
}
