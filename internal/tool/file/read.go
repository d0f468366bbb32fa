package file

import (
	"context"
	"encoding/json"

	"github.com/Cyclone1070/codeagent/internal/tool"
	"github.com/Cyclone1070/codeagent/internal/workflow"
)

// ReadFilesName is the tool name the agent calls.
const ReadFilesName = "readFiles"

// ReadFilesTool reads files from the sandbox.
type ReadFilesTool struct {
	reader    fileReader
	sandboxID string
}

// NewReadFilesTool creates a ReadFilesTool bound to one sandbox.
func NewReadFilesTool(reader fileReader, sandboxID string) *ReadFilesTool {
	if reader == nil {
		panic("reader is required")
	}
	return &ReadFilesTool{reader: reader, sandboxID: sandboxID}
}

func (t *ReadFilesTool) Name() string { return ReadFilesName }

func (t *ReadFilesTool) Declaration() tool.Declaration {
	return tool.Declaration{
		Name:        ReadFilesName,
		Description: "Read files from the sandbox",
		Parameters: &tool.Schema{
			Type: tool.TypeObject,
			Properties: map[string]*tool.Schema{
				"files": {
					Type:  tool.TypeArray,
					Items: &tool.Schema{Type: tool.TypeString, Description: "File path"},
				},
			},
			Required: []string{"files"},
		},
	}
}

func (t *ReadFilesTool) Input() any { return &ReadFilesRequest{} }

// Execute reads the files in request order and returns them as a JSON array.
// Read failures become an "Error: " result so the agent can recover.
func (t *ReadFilesTool) Execute(ctx context.Context, input any, _ *workflow.RunState) (tool.Result, error) {
	req := input.(*ReadFilesRequest)

	entries := make([]Entry, 0, len(req.Files))
	for _, p := range req.Files {
		content, err := t.reader.ReadFile(ctx, t.sandboxID, p)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return &ReadFilesResult{Paths: req.Files, Content: "Error: " + err.Error()}, nil
		}
		entries = append(entries, Entry{Path: p, Content: content})
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return &ReadFilesResult{Paths: req.Files, Content: "Error: " + err.Error()}, nil
	}
	return &ReadFilesResult{Paths: req.Files, Content: string(data)}, nil
}
