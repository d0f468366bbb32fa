// Package docker implements sandbox.Provider on top of the Docker Engine API.
//
// A sandbox is a container started from the template image. Its inactivity
// deadline lives in a file inside the container, so any process that can reach
// the daemon can reconnect by container id and observe the same expiry.
// Containers nobody reconnects to are removed by sandbox.Reaper through List.
package docker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/Cyclone1070/codeagent/internal/sandbox"
	"github.com/containerd/errdefs"
	"github.com/moby/moby/api/pkg/stdcopy"
	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/api/types/network"
	"github.com/moby/moby/client"
	"github.com/sirupsen/logrus"
)

const (
	deadlineFile = "/tmp/.codeagent-deadline"
	labelManaged = "codeagent.sandbox"
	labelTmpl    = "codeagent.template"
)

var _ sandbox.ReapableProvider = (*Provider)(nil)

// ErrExpired is the cause attached to SandboxUnavailableError once a deadline passes.
var ErrExpired = errors.New("sandbox timed out")

// Config configures the Docker provider.
type Config struct {
	Host       string            // DOCKER_HOST override; empty uses the environment
	WorkDir    string            // relative paths resolve against this directory
	PublicHost string            // host name clients use to reach published ports
	Ports      []int             // container ports published on random host ports
	Images     map[string]string // template -> image; unmapped templates are used as image names

	// FallbackTimeout expires containers that never had a deadline written,
	// counted from container start. Zero keeps them until a deadline is set.
	FallbackTimeout time.Duration
}

// Provider creates sandboxes as Docker containers.
type Provider struct {
	client *client.Client
	cfg    Config
	now    func() time.Time
	logger logrus.FieldLogger
}

// New connects to the Docker daemon.
func New(cfg Config, logger logrus.FieldLogger) (*Provider, error) {
	opts := []client.Opt{client.FromEnv}
	if cfg.Host != "" {
		opts = append(opts, client.WithHost(cfg.Host))
	}
	cli, err := client.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return &Provider{client: cli, cfg: cfg, now: time.Now, logger: logger}, nil
}

// Close releases the daemon connection.
func (p *Provider) Close() error {
	return p.client.Close()
}

// Ping checks the daemon connection.
func (p *Provider) Ping(ctx context.Context) error {
	_, err := p.client.Ping(ctx, client.PingOptions{})
	return err
}

// Create starts a container from the template image.
func (p *Provider) Create(ctx context.Context, template string) (string, error) {
	exposedPorts := make(network.PortSet)
	portBindings := make(network.PortMap)
	for _, port := range p.cfg.Ports {
		key := network.MustParsePort(fmt.Sprintf("%d/tcp", port))
		exposedPorts[key] = struct{}{}
		portBindings[key] = []network.PortBinding{{HostPort: ""}}
	}

	result, err := p.client.ContainerCreate(ctx, client.ContainerCreateOptions{
		Image: p.imageFor(template),
		Config: &container.Config{
			WorkingDir:   p.cfg.WorkDir,
			ExposedPorts: exposedPorts,
			Labels: map[string]string{
				labelManaged: "true",
				labelTmpl:    template,
			},
		},
		HostConfig: &container.HostConfig{
			PortBindings: portBindings,
			AutoRemove:   true,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create container: %w", err)
	}

	if _, err := p.client.ContainerStart(ctx, result.ID, client.ContainerStartOptions{}); err != nil {
		_, _ = p.client.ContainerRemove(ctx, result.ID, client.ContainerRemoveOptions{Force: true})
		return "", fmt.Errorf("failed to start container: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"sandbox_id": result.ID,
		"image":      p.imageFor(template),
	}).Debug("container started")
	return result.ID, nil
}

// Connect verifies the container is running and its deadline has not passed.
// Expired containers are removed.
func (p *Provider) Connect(ctx context.Context, id string) (sandbox.Handle, error) {
	inspect, err := p.client.ContainerInspect(ctx, id, client.ContainerInspectOptions{})
	if err != nil {
		if errdefs.IsNotFound(err) {
			return nil, &sandbox.SandboxUnavailableError{ID: id, Cause: err}
		}
		return nil, fmt.Errorf("failed to inspect container: %w", err)
	}
	state := inspect.Container.State
	if state == nil || !state.Running {
		return nil, &sandbox.SandboxUnavailableError{ID: id, Cause: errors.New("container is not running")}
	}

	h := &handle{provider: p, id: id}

	var out bytes.Buffer
	code, err := h.exec(ctx, []string{"cat", deadlineFile}, &out, io.Discard)
	if err != nil {
		return nil, fmt.Errorf("failed to read deadline: %w", err)
	}

	var deadline time.Time
	if code == 0 {
		deadline, _ = parseDeadline(out.String())
	} else {
		deadline = fallbackDeadline(state.StartedAt, p.cfg.FallbackTimeout)
	}
	if !deadline.IsZero() && !p.now().Before(deadline) {
		if err := p.Remove(ctx, id); err != nil {
			p.logger.WithField("sandbox_id", id).WithError(err).Warn("failed to remove expired container")
		}
		return nil, &sandbox.SandboxUnavailableError{ID: id, Cause: ErrExpired}
	}
	return h, nil
}

// Remove force-removes the container. A container that is already gone is
// not an error.
func (p *Provider) Remove(ctx context.Context, id string) error {
	_, err := p.client.ContainerRemove(ctx, id, client.ContainerRemoveOptions{Force: true})
	if err != nil && !errdefs.IsNotFound(err) {
		return fmt.Errorf("failed to remove container %s: %w", id, err)
	}
	return nil
}

// List returns the ids of every container this provider labelled, stopped
// ones included.
func (p *Provider) List(ctx context.Context) ([]string, error) {
	result, err := p.client.ContainerList(ctx, client.ContainerListOptions{
		All:     true,
		Filters: make(client.Filters).Add("label", labelManaged+"=true"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}
	ids := make([]string, 0, len(result.Items))
	for _, c := range result.Items {
		ids = append(ids, c.ID)
	}
	return ids, nil
}

func (p *Provider) imageFor(template string) string {
	if image, ok := p.cfg.Images[template]; ok {
		return image
	}
	return template
}

// handle implements sandbox.Handle for one container.
type handle struct {
	provider *Provider
	id       string
}

func (h *handle) ID() string { return h.id }

func (h *handle) SetTimeout(ctx context.Context, d time.Duration) error {
	deadline := h.provider.now().Add(d)
	cmd := []string{"sh", "-c", `echo "$1" > "$2"`, "sh", formatDeadline(deadline), deadlineFile}
	var stderr bytes.Buffer
	code, err := h.exec(ctx, cmd, io.Discard, &stderr)
	if err != nil {
		return err
	}
	if code != 0 {
		return &sandbox.CommandExitError{ExitCode: code, Stderr: stderr.String()}
	}
	return nil
}

func (h *handle) Run(ctx context.Context, command string, opts sandbox.RunOptions) (*sandbox.CommandResult, error) {
	stdout := &callbackWriter{fn: opts.OnStdout}
	stderr := &callbackWriter{fn: opts.OnStderr}

	code, err := h.exec(ctx, []string{"sh", "-c", command}, stdout, stderr)
	result := &sandbox.CommandResult{
		Stdout:   stdout.buf.String(),
		Stderr:   stderr.buf.String(),
		ExitCode: code,
	}
	if err != nil {
		return result, err
	}
	if code != 0 {
		return result, &sandbox.CommandExitError{ExitCode: code, Stderr: result.Stderr}
	}
	return result, nil
}

func (h *handle) WriteFile(ctx context.Context, path, content string) error {
	for _, cmd := range writeCommands(h.resolve(path), content) {
		var stderr bytes.Buffer
		code, err := h.exec(ctx, cmd, io.Discard, &stderr)
		if err != nil {
			return err
		}
		if code != 0 {
			return &sandbox.CommandExitError{ExitCode: code, Stderr: strings.TrimSpace(stderr.String())}
		}
	}
	return nil
}

func (h *handle) ReadFile(ctx context.Context, path string) (string, error) {
	var stdout, stderr bytes.Buffer
	code, err := h.exec(ctx, []string{"cat", "--", h.resolve(path)}, &stdout, &stderr)
	if err != nil {
		return "", err
	}
	if code != 0 {
		return "", &sandbox.CommandExitError{ExitCode: code, Stderr: strings.TrimSpace(stderr.String())}
	}
	return stdout.String(), nil
}

func (h *handle) Host(ctx context.Context, port int) (string, error) {
	inspect, err := h.provider.client.ContainerInspect(ctx, h.id, client.ContainerInspectOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to inspect container: %w", err)
	}
	if inspect.Container.NetworkSettings == nil {
		return "", fmt.Errorf("container %s has no network settings", h.id)
	}
	hostPort, err := publishedPort(inspect.Container.NetworkSettings.Ports, port)
	if err != nil {
		return "", err
	}
	return net.JoinHostPort(h.provider.cfg.PublicHost, hostPort), nil
}

func (h *handle) resolve(path string) string {
	return resolvePath(h.provider.cfg.WorkDir, path)
}

// exec runs cmd in the container, demultiplexing output into stdout and stderr.
func (h *handle) exec(ctx context.Context, cmd []string, stdout, stderr io.Writer) (int, error) {
	cli := h.provider.client

	created, err := cli.ExecCreate(ctx, h.id, client.ExecCreateOptions{
		Cmd:          cmd,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return -1, fmt.Errorf("failed to create exec: %w", err)
	}

	attached, err := cli.ExecAttach(ctx, created.ID, client.ExecAttachOptions{})
	if err != nil {
		return -1, fmt.Errorf("failed to attach exec: %w", err)
	}
	defer attached.Close()

	if _, err := stdcopy.StdCopy(stdout, stderr, attached.Reader); err != nil {
		return -1, fmt.Errorf("failed to read exec output: %w", err)
	}

	inspected, err := cli.ExecInspect(ctx, created.ID, client.ExecInspectOptions{})
	if err != nil {
		return -1, fmt.Errorf("failed to inspect exec: %w", err)
	}
	return inspected.ExitCode, nil
}

// callbackWriter buffers output and forwards each chunk to fn.
type callbackWriter struct {
	buf bytes.Buffer
	fn  func(string)
}

func (w *callbackWriter) Write(p []byte) (int, error) {
	w.buf.Write(p)
	if w.fn != nil {
		w.fn(string(p))
	}
	return len(p), nil
}

func formatDeadline(t time.Time) string {
	return strconv.FormatInt(t.Unix(), 10)
}

func parseDeadline(s string) (time.Time, error) {
	secs, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(secs, 0), nil
}

// fallbackDeadline is startedAt plus timeout, or zero when either is unknown.
func fallbackDeadline(startedAt string, timeout time.Duration) time.Time {
	if timeout <= 0 {
		return time.Time{}
	}
	started, err := time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return time.Time{}
	}
	return started.Add(timeout)
}

func publishedPort(ports network.PortMap, port int) (string, error) {
	key := network.MustParsePort(fmt.Sprintf("%d/tcp", port))
	for _, binding := range ports[key] {
		if binding.HostPort != "" {
			return binding.HostPort, nil
		}
	}
	return "", fmt.Errorf("port %d is not published", port)
}
