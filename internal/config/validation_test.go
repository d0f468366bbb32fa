package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidate_AllDefaults_Pass(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.Validate()
	assert.NoError(t, err)
}

func TestValidate_Fields(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"Zero MaxIterations Fails", func(c *Config) { c.Agent.MaxIterations = 0 }, "agent.max_iterations"},
		{"Empty Marker Fails", func(c *Config) { c.Agent.CompletionMarker = " " }, "agent.completion_marker"},
		{"Port Out Of Range Fails", func(c *Config) { c.Sandbox.Port = 70000 }, "sandbox.port"},
		{"Zero Timeout Fails", func(c *Config) { c.Sandbox.TimeoutSeconds = 0 }, "sandbox.timeout_seconds"},
		{"Bad Scheme Fails", func(c *Config) { c.Sandbox.URLScheme = "ftp" }, "sandbox.url_scheme"},
		{"Zero Reap Interval Fails", func(c *Config) { c.Sandbox.ReapSeconds = 0 }, "sandbox.reap_seconds"},
		{"Zero Claim Idle Fails", func(c *Config) { c.Queue.ClaimIdleMs = 0 }, "queue.claim_idle_ms"},
		{"Claim Idle Past Sandbox Timeout Fails", func(c *Config) { c.Queue.ClaimIdleMs = c.Sandbox.TimeoutSeconds * 1000 }, "queue.claim_idle_ms must be below sandbox.timeout_seconds"},
		{"Unknown Driver Fails", func(c *Config) { c.Store.Driver = "mysql" }, "store.driver"},
		{"Zero Attempts Fails", func(c *Config) { c.Worker.MaxAttempts = 0 }, "worker.max_attempts"},
		{"Bad Log Format Fails", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tc.field)
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Agent.MaxIterations = 0
	cfg.Worker.MaxAttempts = 0

	err := cfg.Validate()

	assert.ErrorContains(t, err, "agent.max_iterations")
	assert.ErrorContains(t, err, "worker.max_attempts")
}

func TestDefaultConfig_ReclaimsBeforeSandboxExpires(t *testing.T) {
	cfg := DefaultConfig()

	claimIdle := time.Duration(cfg.Queue.ClaimIdleMs) * time.Millisecond
	sandboxTimeout := time.Duration(cfg.Sandbox.TimeoutSeconds) * time.Second

	assert.Less(t, claimIdle, sandboxTimeout)
}
