// Package codeagent runs one durable code-generation agent run: it provisions
// a sandbox, drives the coding agent until it reports completion, summarizes
// the result and persists exactly one outcome record.
package codeagent

import (
	"context"
	"errors"

	"github.com/Cyclone1070/codeagent/internal/durable"
	"github.com/Cyclone1070/codeagent/internal/metrics"
	"github.com/Cyclone1070/codeagent/internal/provider"
	"github.com/Cyclone1070/codeagent/internal/store"
	"github.com/Cyclone1070/codeagent/internal/summarize"
	"github.com/Cyclone1070/codeagent/internal/tool/file"
	"github.com/Cyclone1070/codeagent/internal/tool/shell"
	"github.com/Cyclone1070/codeagent/internal/workflow"
	"github.com/Cyclone1070/codeagent/internal/workflow/loop"
	"github.com/Cyclone1070/codeagent/internal/workflow/toolmanager"
	"github.com/sirupsen/logrus"
)

// Step names. They key the checkpoint log, so renaming one invalidates
// in-flight runs.
const (
	StepGetSandboxID  = "get-sandbox-id"
	StepGetHistory    = "get-history"
	StepRunNetwork    = "run-network"
	StepGenerateTitle = "generate-fragment-title"
	StepGenerateReply = "generate-response"
	StepGetSandboxURL = "get-sandbox-url"
	StepSaveResult    = "save-result"
)

const (
	DefaultTemplate = "vibe-nextjs-imagollc"
	DefaultPort     = 3000
	DefaultTitle    = "Fragment"
	ErrorMessage    = "Something went wrong. Please try again."
)

// Trigger starts a run.
type Trigger struct {
	RunID     string `json:"runId"`
	ProjectID string `json:"projectId"`
	Value     string `json:"value"`
}

// Envelope is what a finished run returns.
type Envelope struct {
	URL     string            `json:"url"`
	Title   string            `json:"title"`
	Files   map[string]string `json:"files"`
	Summary string            `json:"summary"`
	Failed  bool              `json:"-"`
}

// Options tunes a Function. Zero values fall back to defaults.
type Options struct {
	Template         string
	Port             int
	MaxIterations    int
	CompletionMarker string
	SystemPrompt     string
}

// Deps are the collaborators of a Function. Metrics, Logger and OnEvent are optional.
type Deps struct {
	Sandbox     sandboxSession
	History     historyLoader
	Agent       llmProvider
	Title       summarizer
	Response    summarizer
	Store       resultStore
	Checkpoints durable.Store
	Metrics     recorder
	Logger      logrus.FieldLogger
	// OnEvent receives loop progress. It is called from a single goroutine.
	OnEvent func(workflow.Event)
}

// Function is the durable agent run.
type Function struct {
	sandbox     sandboxSession
	history     historyLoader
	agent       llmProvider
	title       summarizer
	response    summarizer
	store       resultStore
	checkpoints durable.Store
	metrics     recorder
	logger      logrus.FieldLogger
	onEvent     func(workflow.Event)
	opts        Options
}

// NewFunction creates a Function.
func NewFunction(deps Deps, opts Options) *Function {
	if deps.Sandbox == nil || deps.History == nil || deps.Agent == nil || deps.Store == nil || deps.Checkpoints == nil {
		panic("sandbox, history, agent, store and checkpoints are required")
	}
	if deps.Title == nil {
		deps.Title = summarize.NewTitleAgent(deps.Agent)
	}
	if deps.Response == nil {
		deps.Response = summarize.NewResponseAgent(deps.Agent)
	}
	if deps.Metrics == nil {
		deps.Metrics = noopRecorder{}
	}
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
	if opts.Template == "" {
		opts.Template = DefaultTemplate
	}
	if opts.Port == 0 {
		opts.Port = DefaultPort
	}
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = SystemPrompt
	}
	return &Function{
		sandbox:     deps.Sandbox,
		history:     deps.History,
		agent:       deps.Agent,
		title:       deps.Title,
		response:    deps.Response,
		store:       deps.Store,
		checkpoints: deps.Checkpoints,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		onEvent:     deps.OnEvent,
		opts:        opts,
	}
}

// networkResult is the memoized output of the run-network step.
type networkResult struct {
	State      *workflow.RunState `json:"state"`
	Iterations int                `json:"iterations"`
}

// savedResult is the memoized output of the save-result step.
type savedResult struct {
	MessageID string     `json:"messageId"`
	Type      store.Type `json:"type"`
	Inserted  bool       `json:"inserted"`
}

// Run executes the run's steps in order. Steps that completed in an earlier
// attempt are replayed from the checkpoint log instead of executed.
func (f *Function) Run(ctx context.Context, t Trigger) (*Envelope, error) {
	if t.RunID == "" {
		return nil, errors.New("run id is required")
	}
	log := f.logger.WithFields(logrus.Fields{"run_id": t.RunID, "project_id": t.ProjectID})
	run := f.newRun(t.RunID, log)

	sandboxID, err := durable.Step(ctx, run, StepGetSandboxID, func(ctx context.Context) (string, error) {
		return f.sandbox.Create(ctx, f.opts.Template)
	})
	if err != nil {
		return nil, err
	}
	log = log.WithField("sandbox_id", sandboxID)

	history, err := durable.Step(ctx, run, StepGetHistory, func(ctx context.Context) ([]provider.Message, error) {
		return f.history.Load(ctx, t.ProjectID)
	})
	if err != nil {
		return nil, err
	}

	network, err := durable.Step(ctx, run, StepRunNetwork, func(ctx context.Context) (networkResult, error) {
		return f.runNetwork(ctx, sandboxID, history, t.Value)
	})
	if err != nil {
		return nil, err
	}
	state := network.State
	if state == nil {
		state = workflow.NewRunState()
	}

	failed := isError(state)

	title, reply := "", ""
	if state.Summary != "" {
		titleOut, err := durable.Step(ctx, run, StepGenerateTitle, func(ctx context.Context) ([]provider.Message, error) {
			return f.title.Run(ctx, state.Summary)
		})
		if err != nil {
			return nil, err
		}
		replyOut, err := durable.Step(ctx, run, StepGenerateReply, func(ctx context.Context) ([]provider.Message, error) {
			return f.response.Run(ctx, state.Summary)
		})
		if err != nil {
			return nil, err
		}
		title, _ = summarize.FirstText(titleOut)
		reply, _ = summarize.FirstText(replyOut)
	}

	url, err := durable.Step(ctx, run, StepGetSandboxURL, func(ctx context.Context) (string, error) {
		return f.sandbox.URL(ctx, sandboxID, f.opts.Port)
	})
	if err != nil {
		return nil, err
	}

	msg := classify(t, state, url, title, reply)
	saved, err := f.save(ctx, run, msg)
	if err != nil {
		return nil, err
	}

	outcome := outcomeOf(msg.Type)
	f.metrics.RecordRun(outcome, network.Iterations)
	log.WithFields(logrus.Fields{
		"outcome":    outcome,
		"iterations": network.Iterations,
		"files":      len(state.Files),
		"inserted":   saved.Inserted,
	}).Info("run finished")

	return &Envelope{
		URL:     url,
		Title:   titleOrDefault(title),
		Files:   state.Files,
		Summary: state.Summary,
		Failed:  failed,
	}, nil
}

// OnFailure records the ERROR outcome of a run whose retries are exhausted.
// It goes through the memoized save-result step, so a run that already saved
// its outcome is left as is.
func (f *Function) OnFailure(ctx context.Context, t Trigger, cause error) error {
	log := f.logger.WithFields(logrus.Fields{"run_id": t.RunID, "project_id": t.ProjectID})
	log.WithError(cause).Error("run failed, recording error outcome")

	run := f.newRun(t.RunID, log)
	if _, err := f.save(ctx, run, errorMessage(t)); err != nil {
		return err
	}
	f.metrics.RecordRun(metrics.OutcomeFailed, 0)
	return nil
}

// Forget drops the checkpoints of a run once its trigger is acknowledged.
func (f *Function) Forget(ctx context.Context, runID string) error {
	return f.checkpoints.Forget(ctx, runID)
}

func (f *Function) newRun(id string, log logrus.FieldLogger) *durable.Run {
	return durable.NewRun(id, f.checkpoints, durable.WithObserver(f.metrics), durable.WithLogger(log))
}

func (f *Function) save(ctx context.Context, run *durable.Run, msg *store.Message) (savedResult, error) {
	return durable.Step(ctx, run, StepSaveResult, func(ctx context.Context) (savedResult, error) {
		inserted, err := f.store.SaveMessage(ctx, msg)
		if err != nil {
			return savedResult{}, err
		}
		return savedResult{MessageID: msg.ID, Type: msg.Type, Inserted: inserted}, nil
	})
}

// runNetwork drives the coding agent against the sandbox. Progress events are
// counted for metrics and forwarded to OnEvent.
func (f *Function) runNetwork(ctx context.Context, sandboxID string, history []provider.Message, input string) (networkResult, error) {
	events := make(chan workflow.Event)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			if start, ok := ev.(workflow.ToolStartEvent); ok {
				f.metrics.RecordToolCall(start.ToolName)
			}
			if f.onEvent != nil {
				f.onEvent(ev)
			}
		}
	}()

	tools := toolmanager.NewToolManager(
		shell.NewTerminalTool(f.sandbox, sandboxID),
		file.NewWriteFilesTool(f.sandbox, sandboxID),
		file.NewReadFilesTool(f.sandbox, sandboxID),
	)
	l := loop.NewLoop(f.agent, tools, events, f.opts.MaxIterations, f.opts.SystemPrompt, f.opts.CompletionMarker)

	res, err := l.Run(ctx, history, input)
	close(events)
	<-done
	if err != nil {
		return networkResult{}, err
	}
	return networkResult{State: res.State, Iterations: res.Iterations}, nil
}

func titleOrDefault(title string) string {
	if title == "" {
		return DefaultTitle
	}
	return title
}
