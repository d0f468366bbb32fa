package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Cyclone1070/codeagent/internal/codeagent"
	"github.com/Cyclone1070/codeagent/internal/config"
	"github.com/Cyclone1070/codeagent/internal/durable/boltstore"
	"github.com/Cyclone1070/codeagent/internal/history"
	"github.com/Cyclone1070/codeagent/internal/metrics"
	"github.com/Cyclone1070/codeagent/internal/provider/gemini"
	"github.com/Cyclone1070/codeagent/internal/sandbox"
	"github.com/Cyclone1070/codeagent/internal/sandbox/docker"
	"github.com/Cyclone1070/codeagent/internal/store"
	"github.com/Cyclone1070/codeagent/internal/summarize"
	"github.com/Cyclone1070/codeagent/internal/workflow"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Dependencies holds the components a run needs. Close releases them.
type Dependencies struct {
	Store       *store.Store
	Checkpoints *boltstore.Store
	Docker      *docker.Provider
	Function    *codeagent.Function

	closers []func() error
}

// Close releases every opened component in reverse order.
func (d *Dependencies) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		errs = append(errs, d.closers[i]())
	}
	return errors.Join(errs...)
}

// buildDependencies opens storage, the sandbox runtime and the model client
// and wires them into a Function. m and onEvent may be nil.
func buildDependencies(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger, m *metrics.Metrics, onEvent func(workflow.Event)) (*Dependencies, error) {
	if cfg.Agent.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}

	deps := &Dependencies{}
	fail := func(err error) (*Dependencies, error) {
		deps.Close()
		return nil, err
	}

	db, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		return fail(err)
	}
	deps.Store = db
	deps.closers = append(deps.closers, db.Close)

	checkpoints, err := boltstore.Open(cfg.Checkpoint.Path)
	if err != nil {
		return fail(err)
	}
	deps.Checkpoints = checkpoints
	deps.closers = append(deps.closers, checkpoints.Close)

	dockerProvider, err := docker.New(docker.Config{
		Host:       cfg.Sandbox.DockerHost,
		WorkDir:    cfg.Sandbox.WorkDir,
		PublicHost: cfg.Sandbox.PublicHost,
		Ports:      []int{cfg.Sandbox.Port},
		Images:     cfg.Sandbox.Images,

		FallbackTimeout: time.Duration(cfg.Sandbox.TimeoutSeconds) * time.Second,
	}, logger)
	if err != nil {
		return fail(err)
	}
	deps.Docker = dockerProvider
	deps.closers = append(deps.closers, dockerProvider.Close)
	if err := dockerProvider.Ping(ctx); err != nil {
		return fail(fmt.Errorf("docker daemon unreachable: %w", err))
	}

	client, err := gemini.Dial(ctx, cfg.Agent.APIKey)
	if err != nil {
		return fail(err)
	}

	session := sandbox.NewSession(dockerProvider, time.Duration(cfg.Sandbox.TimeoutSeconds)*time.Second, cfg.Sandbox.URLScheme, logger)

	fnDeps := codeagent.Deps{
		Sandbox:     session,
		History:     history.NewLoader(db, cfg.Agent.HistoryLimit),
		Agent:       gemini.New(client, cfg.Agent.Model),
		Title:       summarize.NewTitleAgent(gemini.New(client, cfg.Agent.TitleModelOrDefault())),
		Response:    summarize.NewResponseAgent(gemini.New(client, cfg.Agent.ResponseModelOrDefault())),
		Store:       db,
		Checkpoints: checkpoints,
		Logger:      logger,
		OnEvent:     onEvent,
	}
	if m != nil {
		fnDeps.Metrics = m
	}
	deps.Function = codeagent.NewFunction(fnDeps, codeagent.Options{
		Template:         cfg.Sandbox.Template,
		Port:             cfg.Sandbox.Port,
		MaxIterations:    cfg.Agent.MaxIterations,
		CompletionMarker: cfg.Agent.CompletionMarker,
	})
	return deps, nil
}

// messageSaver persists the user's request before a run is triggered.
type messageSaver interface {
	SaveMessage(ctx context.Context, msg *store.Message) (bool, error)
}

// saveUserMessage records the request as the newest USER message of the
// project and returns the trigger for it.
func saveUserMessage(ctx context.Context, s messageSaver, projectID, value string) (codeagent.Trigger, error) {
	msg := &store.Message{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Content:   value,
		Role:      store.RoleUser,
		Type:      store.TypeResult,
	}
	if _, err := s.SaveMessage(ctx, msg); err != nil {
		return codeagent.Trigger{}, err
	}
	return codeagent.Trigger{RunID: uuid.NewString(), ProjectID: projectID, Value: value}, nil
}
