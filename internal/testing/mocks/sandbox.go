package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Cyclone1070/codeagent/internal/sandbox"
)

// MockSandboxProvider implements sandbox.Provider with in-memory sandboxes.
type MockSandboxProvider struct {
	Mu        sync.Mutex
	Sandboxes map[string]*MockSandbox
	OpErrors  map[string]error // operation -> error to return ("Create", "Connect", "SetTimeout", "Host", "Remove", "List")
	Created   []string         // templates passed to Create
	Removed   []string         // ids passed to Remove

	// RunFunc scripts command execution. Defaults to an empty successful result.
	RunFunc func(command string, opts sandbox.RunOptions) (*sandbox.CommandResult, error)

	counter int
}

// NewMockSandboxProvider creates an empty provider.
func NewMockSandboxProvider() *MockSandboxProvider {
	return &MockSandboxProvider{
		Sandboxes: make(map[string]*MockSandbox),
		OpErrors:  make(map[string]error),
	}
}

// SetOperationError sets an error to return for a specific operation.
func (p *MockSandboxProvider) SetOperationError(operation string, err error) {
	p.Mu.Lock()
	defer p.Mu.Unlock()
	p.OpErrors[operation] = err
}

// Expire marks a sandbox as timed out.
func (p *MockSandboxProvider) Expire(id string) {
	p.Mu.Lock()
	defer p.Mu.Unlock()
	if sb, ok := p.Sandboxes[id]; ok {
		sb.Expired = true
	}
}

func (p *MockSandboxProvider) Create(ctx context.Context, template string) (string, error) {
	p.Mu.Lock()
	defer p.Mu.Unlock()

	if err, ok := p.OpErrors["Create"]; ok {
		return "", err
	}

	p.counter++
	id := fmt.Sprintf("sbx-%d", p.counter)
	p.Sandboxes[id] = &MockSandbox{
		provider:   p,
		id:         id,
		Template:   template,
		Files:      make(map[string]string),
		FileErrors: make(map[string]error),
	}
	p.Created = append(p.Created, template)
	return id, nil
}

func (p *MockSandboxProvider) Connect(ctx context.Context, id string) (sandbox.Handle, error) {
	p.Mu.Lock()
	defer p.Mu.Unlock()

	if err, ok := p.OpErrors["Connect"]; ok {
		return nil, err
	}

	sb, ok := p.Sandboxes[id]
	if !ok || sb.Expired {
		return nil, &sandbox.SandboxUnavailableError{ID: id}
	}
	sb.Connects++
	return sb, nil
}

func (p *MockSandboxProvider) Remove(ctx context.Context, id string) error {
	p.Mu.Lock()
	defer p.Mu.Unlock()

	if err, ok := p.OpErrors["Remove"]; ok {
		return err
	}
	p.Removed = append(p.Removed, id)
	delete(p.Sandboxes, id)
	return nil
}

// List returns the ids of every sandbox, expired ones included, in sorted order.
func (p *MockSandboxProvider) List(ctx context.Context) ([]string, error) {
	p.Mu.Lock()
	defer p.Mu.Unlock()

	if err, ok := p.OpErrors["List"]; ok {
		return nil, err
	}
	ids := make([]string, 0, len(p.Sandboxes))
	for id := range p.Sandboxes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// MockSandbox is one in-memory sandbox. It implements sandbox.Handle.
type MockSandbox struct {
	provider *MockSandboxProvider
	id       string

	Template   string
	Timeout    time.Duration
	Files      map[string]string
	FileErrors map[string]error // path -> error for reads and writes
	Commands   []string
	Connects   int
	Expired    bool
}

func (s *MockSandbox) ID() string { return s.id }

func (s *MockSandbox) SetTimeout(ctx context.Context, d time.Duration) error {
	s.provider.Mu.Lock()
	defer s.provider.Mu.Unlock()

	if err, ok := s.provider.OpErrors["SetTimeout"]; ok {
		return err
	}
	s.Timeout = d
	return nil
}

func (s *MockSandbox) Run(ctx context.Context, command string, opts sandbox.RunOptions) (*sandbox.CommandResult, error) {
	s.provider.Mu.Lock()
	s.Commands = append(s.Commands, command)
	runFunc := s.provider.RunFunc
	s.provider.Mu.Unlock()

	if runFunc == nil {
		return &sandbox.CommandResult{}, nil
	}
	return runFunc(command, opts)
}

func (s *MockSandbox) WriteFile(ctx context.Context, path, content string) error {
	s.provider.Mu.Lock()
	defer s.provider.Mu.Unlock()

	if err, ok := s.FileErrors[path]; ok {
		return err
	}
	s.Files[path] = content
	return nil
}

func (s *MockSandbox) ReadFile(ctx context.Context, path string) (string, error) {
	s.provider.Mu.Lock()
	defer s.provider.Mu.Unlock()

	if err, ok := s.FileErrors[path]; ok {
		return "", err
	}
	content, ok := s.Files[path]
	if !ok {
		return "", fmt.Errorf("open %s: no such file or directory", path)
	}
	return content, nil
}

func (s *MockSandbox) Host(ctx context.Context, port int) (string, error) {
	s.provider.Mu.Lock()
	defer s.provider.Mu.Unlock()

	if err, ok := s.provider.OpErrors["Host"]; ok {
		return "", err
	}
	return fmt.Sprintf("%d-%s.sandbox.test", port, s.id), nil
}
