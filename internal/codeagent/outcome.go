package codeagent

import (
	"github.com/Cyclone1070/codeagent/internal/metrics"
	"github.com/Cyclone1070/codeagent/internal/store"
	"github.com/Cyclone1070/codeagent/internal/workflow"
)

// isError reports whether a finished run failed: the agent never reported
// completion or never wrote a file.
func isError(state *workflow.RunState) bool {
	return state.Summary == "" || len(state.Files) == 0
}

// classify builds the single outcome record of a run. The record id is the
// run id, so saving it twice is a no-op.
func classify(t Trigger, state *workflow.RunState, url, title, reply string) *store.Message {
	if isError(state) {
		return errorMessage(t)
	}

	content := reply
	if content == "" {
		content = state.Summary
	}
	return &store.Message{
		ID:        t.RunID,
		ProjectID: t.ProjectID,
		Content:   content,
		Role:      store.RoleAssistant,
		Type:      store.TypeResult,
		Fragment: &store.Fragment{
			SandboxURL: url,
			Title:      titleOrDefault(title),
			Files:      state.Files,
		},
	}
}

func errorMessage(t Trigger) *store.Message {
	return &store.Message{
		ID:        t.RunID,
		ProjectID: t.ProjectID,
		Content:   ErrorMessage,
		Role:      store.RoleAssistant,
		Type:      store.TypeError,
	}
}

func outcomeOf(typ store.Type) string {
	if typ == store.TypeResult {
		return metrics.OutcomeResult
	}
	return metrics.OutcomeError
}
