package toolmanager

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/Cyclone1070/codeagent/internal/provider"
	"github.com/Cyclone1070/codeagent/internal/tool"
	"github.com/Cyclone1070/codeagent/internal/workflow"
	"github.com/mitchellh/mapstructure"
)

type ToolManager struct {
	registry map[string]toolImpl
}

func NewToolManager(tools ...toolImpl) *ToolManager {
	tm := &ToolManager{
		registry: make(map[string]toolImpl),
	}
	for _, t := range tools {
		tm.Register(t)
	}
	return tm
}

func (m *ToolManager) Register(t toolImpl) {
	m.registry[t.Name()] = t
}

func (m *ToolManager) Declarations() []tool.Declaration {
	decls := make([]tool.Declaration, 0, len(m.registry))
	for _, t := range m.registry {
		decls = append(decls, t.Declaration())
	}
	sort.Slice(decls, func(i, j int) bool {
		return decls[i].Name < decls[j].Name
	})
	return decls
}

// Execute dispatches one tool call and returns its tool-role message.
// Unknown tools and bad arguments are reported to the LLM as text; only
// errors returned by the tool itself are propagated.
func (m *ToolManager) Execute(ctx context.Context, tc provider.ToolCall, state *workflow.RunState, events chan<- workflow.Event) (provider.Message, error) {
	t, ok := m.registry[tc.Function.Name]
	if !ok {
		declsJSON, _ := json.MarshalIndent(m.Declarations(), "", "  ")
		errMsg := fmt.Sprintf("Error: tool %q does not exist.\n\nAvailable tools:\n%s", tc.Function.Name, declsJSON)
		emitInvalid(events, tc.Function.Name)
		return toolMessage(tc, errMsg), nil
	}

	req := t.Input()
	if err := decodeArguments(tc.Function.Arguments, req); err != nil {
		declJSON, _ := json.MarshalIndent(t.Declaration(), "", "  ")
		errMsg := fmt.Sprintf("Error: invalid arguments for tool %q: %v\n\nExpected schema:\n%s", tc.Function.Name, err, declJSON)
		emitInvalid(events, tc.Function.Name)
		return toolMessage(tc, errMsg), nil
	}

	if events != nil {
		display := ""
		if s, ok := req.(fmt.Stringer); ok {
			display = s.String()
		}
		events <- workflow.ToolStartEvent{
			ToolName:       tc.Function.Name,
			RequestDisplay: display,
		}
	}

	res, err := t.Execute(ctx, req, state)
	if err != nil {
		if events != nil {
			events <- workflow.ToolEndEvent{
				ToolName: tc.Function.Name,
				Display:  tool.StringDisplay("Failed: " + err.Error()),
			}
		}
		return provider.Message{}, err
	}

	if events != nil {
		events <- workflow.ToolEndEvent{
			ToolName: tc.Function.Name,
			Display:  res.Display(),
		}
	}

	if err := ctx.Err(); err != nil {
		return provider.Message{}, err
	}

	return toolMessage(tc, res.LLMContent()), nil
}

// decodeArguments decodes raw JSON arguments into req, rejecting unknown
// fields, then runs the request's own validation.
func decodeArguments(raw json.RawMessage, req any) error {
	args := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &args); err != nil {
			return err
		}
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "json",
		ErrorUnused: true,
		Result:      req,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(args); err != nil {
		return err
	}

	if v, ok := req.(validator); ok {
		return v.Validate()
	}
	return nil
}

func emitInvalid(events chan<- workflow.Event, name string) {
	if events == nil {
		return
	}
	events <- workflow.ToolStartEvent{ToolName: name}
	events <- workflow.ToolEndEvent{
		ToolName: name,
		Display:  tool.StringDisplay("Invalid tool request"),
	}
}

func toolMessage(tc provider.ToolCall, content string) provider.Message {
	return provider.Message{
		Role:       provider.RoleTool,
		ToolCallID: tc.ID,
		Content:    content,
	}
}
