package config

// Config holds all application configuration values.
// Defaults are set in DefaultConfig() and can be overridden via dotfile.
// NOTE: Values in config files override defaults, including explicit zero values.
// Missing keys are left at their default values.
type Config struct {
	Agent      AgentConfig      `json:"agent"`
	Sandbox    SandboxConfig    `json:"sandbox"`
	Store      StoreConfig      `json:"store"`
	Checkpoint CheckpointConfig `json:"checkpoint"`
	Queue      QueueConfig      `json:"queue"`
	Worker     WorkerConfig     `json:"worker"`
	Metrics    MetricsConfig    `json:"metrics"`
	Log        LogConfig        `json:"log"`
}

type AgentConfig struct {
	APIKey           string `json:"-"`                 // GEMINI_API_KEY only
	Model            string `json:"model"`             // Default: gemini-2.5-flash
	TitleModel       string `json:"title_model"`       // Default: same as model
	ResponseModel    string `json:"response_model"`    // Default: same as model
	MaxIterations    int    `json:"max_iterations"`    // Default: 15
	HistoryLimit     int    `json:"history_limit"`     // Default: 5
	CompletionMarker string `json:"completion_marker"` // Default: <task_summary>
}

type SandboxConfig struct {
	Template       string            `json:"template"`        // Default: vibe-nextjs-imagollc
	Port           int               `json:"port"`            // Default: 3000
	TimeoutSeconds int               `json:"timeout_seconds"` // Default: 600
	WorkDir        string            `json:"work_dir"`        // Default: /home/user
	PublicHost     string            `json:"public_host"`     // Default: localhost
	URLScheme      string            `json:"url_scheme"`      // Default: https
	DockerHost     string            `json:"docker_host"`     // Default: from environment
	Images         map[string]string `json:"images"`          // template -> image
	ReapSeconds    int               `json:"reap_seconds"`    // Default: 60; how often workers remove expired sandboxes
}

type StoreConfig struct {
	Driver string `json:"driver"` // sqlite | postgres
	DSN    string `json:"dsn"`
}

type CheckpointConfig struct {
	Path string `json:"path"` // Default: ~/.config/codeagent/checkpoints.db
}

type QueueConfig struct {
	RedisURL    string `json:"redis_url"`
	Stream      string `json:"stream"`
	Group       string `json:"group"`
	Consumer    string `json:"consumer"`      // Default: hostname
	BlockMs     int    `json:"block_ms"`      // Default: 5000
	ClaimIdleMs int    `json:"claim_idle_ms"` // Default: 300000 (5 minutes); must stay below sandbox.timeout_seconds
}

type WorkerConfig struct {
	MaxAttempts    int `json:"max_attempts"`     // Default: 3
	RetryBackoffMs int `json:"retry_backoff_ms"` // Default: 2000
}

type MetricsConfig struct {
	Addr string `json:"addr"` // Default: :9090; empty disables the listener
}

type LogConfig struct {
	Level  string `json:"level"`  // Default: info
	Format string `json:"format"` // text | json
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Agent: AgentConfig{
			Model:            "gemini-2.5-flash",
			MaxIterations:    15,
			HistoryLimit:     5,
			CompletionMarker: "<task_summary>",
		},
		Sandbox: SandboxConfig{
			Template:       "vibe-nextjs-imagollc",
			Port:           3000,
			TimeoutSeconds: 600,
			WorkDir:        "/home/user",
			PublicHost:     "localhost",
			URLScheme:      "https",
			Images:         map[string]string{},
			ReapSeconds:    60,
		},
		Store: StoreConfig{
			Driver: "sqlite",
			DSN:    "file:codeagent.db?cache=shared&mode=rwc",
		},
		Queue: QueueConfig{
			RedisURL:    "redis://localhost:6379/0",
			Stream:      "codeagent:runs",
			Group:       "codeagent-workers",
			BlockMs:     5000,
			ClaimIdleMs: 5 * 60 * 1000,
		},
		Worker: WorkerConfig{
			MaxAttempts:    3,
			RetryBackoffMs: 2000,
		},
		Metrics: MetricsConfig{
			Addr: ":9090",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// TitleModelOrDefault returns the model for the title generator.
func (a AgentConfig) TitleModelOrDefault() string {
	if a.TitleModel != "" {
		return a.TitleModel
	}
	return a.Model
}

// ResponseModelOrDefault returns the model for the reply generator.
func (a AgentConfig) ResponseModelOrDefault() string {
	if a.ResponseModel != "" {
		return a.ResponseModel
	}
	return a.Model
}
