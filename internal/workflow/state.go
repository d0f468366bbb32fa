package workflow

import (
	"sort"
	"strings"
)

// RunState is shared by every iteration and tool call of one agent run.
// It is owned by the loop and only mutated from the sequential dispatch path.
type RunState struct {
	Summary string            `json:"summary"`
	Files   map[string]string `json:"files"`
}

// NewRunState returns an empty RunState.
func NewRunState() *RunState {
	return &RunState{Files: make(map[string]string)}
}

// PutFile records a file write. Paths are never removed.
func (s *RunState) PutFile(path, content string) {
	if s.Files == nil {
		s.Files = make(map[string]string)
	}
	s.Files[path] = content
}

// Complete stores the summary once. Later calls are ignored.
func (s *RunState) Complete(summary string) bool {
	if s.Summary != "" || strings.TrimSpace(summary) == "" {
		return false
	}
	s.Summary = summary
	return true
}

// Done reports whether the agent has signalled completion.
func (s *RunState) Done() bool {
	return s.Summary != ""
}

// Paths returns the written paths in sorted order.
func (s *RunState) Paths() []string {
	paths := make([]string, 0, len(s.Files))
	for p := range s.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
