// Package history turns persisted project messages into conversation turns.
package history

import (
	"context"
	"fmt"

	"github.com/Cyclone1070/codeagent/internal/provider"
	"github.com/Cyclone1070/codeagent/internal/store"
)

// DefaultLimit is how many recent messages are loaded per run.
const DefaultLimit = 5

// messageLister reads a project's messages, newest first.
type messageLister interface {
	ListRecent(ctx context.Context, projectID string, limit int) ([]store.Message, error)
}

// Loader builds the prior conversation for a run.
type Loader struct {
	messages messageLister
	limit    int
}

func NewLoader(messages messageLister, limit int) *Loader {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Loader{messages: messages, limit: limit}
}

// Load returns the most recent messages of a project in chronological order.
func (l *Loader) Load(ctx context.Context, projectID string) ([]provider.Message, error) {
	recent, err := l.messages.ListRecent(ctx, projectID, l.limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load history for %s: %w", projectID, err)
	}

	turns := make([]provider.Message, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		m := recent[i]
		role := provider.RoleUser
		if m.Role == store.RoleAssistant {
			role = provider.RoleAssistant
		}
		turns = append(turns, provider.Message{Role: role, Content: m.Content})
	}
	return turns, nil
}
