package sandbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Session performs sandbox operations by id, reconnecting on every call.
type Session struct {
	provider Provider
	timeout  time.Duration
	scheme   string
	logger   logrus.FieldLogger
}

// NewSession creates a Session. timeout is applied to every sandbox it creates.
func NewSession(provider Provider, timeout time.Duration, scheme string, logger logrus.FieldLogger) *Session {
	if provider == nil {
		panic("provider is required")
	}
	if scheme == "" {
		scheme = "https"
	}
	return &Session{
		provider: provider,
		timeout:  timeout,
		scheme:   scheme,
		logger:   logger,
	}
}

// Create provisions a sandbox from template and sets its inactivity timeout.
func (s *Session) Create(ctx context.Context, template string) (string, error) {
	id, err := s.provider.Create(ctx, template)
	if err != nil {
		return "", &ProvisioningError{Template: template, Cause: err}
	}

	h, err := s.provider.Connect(ctx, id)
	if err != nil {
		s.discard(ctx, id)
		return "", &ProvisioningError{Template: template, Cause: err}
	}
	if err := h.SetTimeout(ctx, s.timeout); err != nil {
		s.discard(ctx, id)
		return "", &ProvisioningError{Template: template, Cause: fmt.Errorf("set timeout: %w", err)}
	}

	s.logger.WithFields(logrus.Fields{
		"sandbox_id": id,
		"template":   template,
		"timeout":    s.timeout.String(),
	}).Info("sandbox created")
	return id, nil
}

// discard removes a sandbox that could not be fully provisioned. A step retry
// provisions a fresh one.
func (s *Session) discard(ctx context.Context, id string) {
	if err := s.provider.Remove(context.WithoutCancel(ctx), id); err != nil {
		s.logger.WithField("sandbox_id", id).WithError(err).Warn("failed to remove unprovisioned sandbox")
	}
}

// Connect re-attaches to a sandbox by id.
func (s *Session) Connect(ctx context.Context, id string) (Handle, error) {
	h, err := s.provider.Connect(ctx, id)
	if err != nil {
		var unavailable *SandboxUnavailableError
		if errors.As(err, &unavailable) {
			return nil, err
		}
		return nil, &SandboxUnavailableError{ID: id, Cause: err}
	}
	return h, nil
}

// Run executes command and returns its stdout. It never fails: on any error the
// returned text is a diagnostic with whatever output was buffered.
func (s *Session) Run(ctx context.Context, id, command string) string {
	var stdout, stderr strings.Builder

	result, err := s.run(ctx, id, command, &stdout, &stderr)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"sandbox_id": id,
			"command":    command,
		}).WithError(err).Warn("command failed")
		return fmt.Sprintf("Command failed: %v \nstdout: %s \nstderr: %s", err, stdout.String(), stderr.String())
	}
	return result.Stdout
}

func (s *Session) run(ctx context.Context, id, command string, stdout, stderr *strings.Builder) (*CommandResult, error) {
	h, err := s.Connect(ctx, id)
	if err != nil {
		return nil, err
	}
	return h.Run(ctx, command, RunOptions{
		OnStdout: func(chunk string) { stdout.WriteString(chunk) },
		OnStderr: func(chunk string) { stderr.WriteString(chunk) },
	})
}

// WriteFile writes content to path inside the sandbox.
func (s *Session) WriteFile(ctx context.Context, id, path, content string) error {
	h, err := s.Connect(ctx, id)
	if err != nil {
		return &FileWriteError{Path: path, Cause: err}
	}
	if err := h.WriteFile(ctx, path, content); err != nil {
		return &FileWriteError{Path: path, Cause: err}
	}
	return nil
}

// ReadFile returns the content of path inside the sandbox.
func (s *Session) ReadFile(ctx context.Context, id, path string) (string, error) {
	h, err := s.Connect(ctx, id)
	if err != nil {
		return "", &FileReadError{Path: path, Cause: err}
	}
	content, err := h.ReadFile(ctx, path)
	if err != nil {
		return "", &FileReadError{Path: path, Cause: err}
	}
	return content, nil
}

// HostFor resolves the external host serving port inside the sandbox.
func (s *Session) HostFor(ctx context.Context, id string, port int) (string, error) {
	h, err := s.Connect(ctx, id)
	if err != nil {
		return "", err
	}
	host, err := h.Host(ctx, port)
	if err != nil {
		return "", fmt.Errorf("resolve host for port %d: %w", port, err)
	}
	return host, nil
}

// URL returns the public URL of port inside the sandbox.
func (s *Session) URL(ctx context.Context, id string, port int) (string, error) {
	host, err := s.HostFor(ctx, id, port)
	if err != nil {
		return "", err
	}
	return s.scheme + "://" + host, nil
}
