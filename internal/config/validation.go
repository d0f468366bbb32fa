package config

import (
	"fmt"
	"strings"
)

// Validate checks config values for correctness.
// Returns an error if any values are invalid.
func (c *Config) Validate() error {
	var errs []string

	// Agent
	if strings.TrimSpace(c.Agent.Model) == "" {
		errs = append(errs, "agent.model must not be empty")
	}
	if c.Agent.MaxIterations < 1 {
		errs = append(errs, "agent.max_iterations must be >= 1")
	}
	if c.Agent.HistoryLimit < 0 {
		errs = append(errs, "agent.history_limit must be >= 0")
	}
	if strings.TrimSpace(c.Agent.CompletionMarker) == "" {
		errs = append(errs, "agent.completion_marker must not be empty")
	}

	// Sandbox
	if c.Sandbox.Template == "" {
		errs = append(errs, "sandbox.template must not be empty")
	}
	if c.Sandbox.Port < 1 || c.Sandbox.Port > 65535 {
		errs = append(errs, "sandbox.port must be between 1 and 65535")
	}
	if c.Sandbox.TimeoutSeconds < 1 {
		errs = append(errs, "sandbox.timeout_seconds must be >= 1")
	}
	if c.Sandbox.URLScheme != "http" && c.Sandbox.URLScheme != "https" {
		errs = append(errs, "sandbox.url_scheme must be http or https")
	}
	if c.Sandbox.ReapSeconds < 1 {
		errs = append(errs, "sandbox.reap_seconds must be >= 1")
	}

	// Store
	if c.Store.Driver != "sqlite" && c.Store.Driver != "postgres" {
		errs = append(errs, "store.driver must be sqlite or postgres")
	}
	if c.Store.DSN == "" {
		errs = append(errs, "store.dsn must not be empty")
	}

	// Queue & worker
	if c.Queue.BlockMs < 0 {
		errs = append(errs, "queue.block_ms must be >= 0")
	}
	if c.Queue.ClaimIdleMs < 1 {
		errs = append(errs, "queue.claim_idle_ms must be >= 1")
	}
	// A reclaimed run resumes in the same sandbox, so it must be picked up
	// before the sandbox expires.
	if c.Sandbox.TimeoutSeconds >= 1 && c.Queue.ClaimIdleMs >= c.Sandbox.TimeoutSeconds*1000 {
		errs = append(errs, "queue.claim_idle_ms must be below sandbox.timeout_seconds")
	}
	if c.Worker.MaxAttempts < 1 {
		errs = append(errs, "worker.max_attempts must be >= 1")
	}
	if c.Worker.RetryBackoffMs < 0 {
		errs = append(errs, "worker.retry_backoff_ms must be >= 0")
	}

	// Log
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, "log.format must be text or json")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %v", errs)
	}

	return nil
}
