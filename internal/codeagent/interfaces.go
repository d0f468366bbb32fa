package codeagent

import (
	"context"
	"time"

	"github.com/Cyclone1070/codeagent/internal/provider"
	"github.com/Cyclone1070/codeagent/internal/queue"
	"github.com/Cyclone1070/codeagent/internal/store"
	"github.com/Cyclone1070/codeagent/internal/tool"
)

// sandboxSession provisions sandboxes and operates on them by id.
type sandboxSession interface {
	Create(ctx context.Context, template string) (string, error)
	Run(ctx context.Context, id, command string) string
	WriteFile(ctx context.Context, id, path, content string) error
	ReadFile(ctx context.Context, id, path string) (string, error)
	URL(ctx context.Context, id string, port int) (string, error)
}

// historyLoader returns a project's recent conversation, oldest first.
type historyLoader interface {
	Load(ctx context.Context, projectID string) ([]provider.Message, error)
}

// llmProvider drives the coding agent.
type llmProvider interface {
	Generate(ctx context.Context, messages []provider.Message, tools []tool.Declaration) (*provider.Message, error)
}

// summarizer is a single-shot agent run over the completion summary.
type summarizer interface {
	Name() string
	Run(ctx context.Context, input string) ([]provider.Message, error)
}

// resultStore persists the outcome record.
type resultStore interface {
	SaveMessage(ctx context.Context, msg *store.Message) (bool, error)
}

// recorder receives run, step and tool metrics.
type recorder interface {
	ObserveStep(step string, d time.Duration, replayed bool)
	RecordRun(outcome string, iterations int)
	RecordToolCall(tool string)
}

// triggerQueue is the stream the worker consumes.
type triggerQueue interface {
	EnsureGroup(ctx context.Context) error
	Read(ctx context.Context, consumer string, count int64, block time.Duration) ([]queue.Delivery, error)
	Claim(ctx context.Context, consumer string, minIdle time.Duration, count int64) ([]queue.Delivery, error)
	Touch(ctx context.Context, consumer, messageID string) error
	Ack(ctx context.Context, messageID string) error
}

// runner executes one run and records its failure.
type runner interface {
	Run(ctx context.Context, t Trigger) (*Envelope, error)
	OnFailure(ctx context.Context, t Trigger, cause error) error
	Forget(ctx context.Context, runID string) error
}

type noopRecorder struct{}

func (noopRecorder) ObserveStep(string, time.Duration, bool) {}
func (noopRecorder) RecordRun(string, int)                   {}
func (noopRecorder) RecordToolCall(string)                   {}
