package file

import (
	"context"

	"github.com/Cyclone1070/codeagent/internal/tool"
	"github.com/Cyclone1070/codeagent/internal/workflow"
)

// WriteFilesName is the tool name the agent calls.
const WriteFilesName = "createOrUpdateFiles"

// WriteFilesTool writes files into the sandbox and records them in the run state.
type WriteFilesTool struct {
	writer    fileWriter
	sandboxID string
}

// NewWriteFilesTool creates a WriteFilesTool bound to one sandbox.
func NewWriteFilesTool(writer fileWriter, sandboxID string) *WriteFilesTool {
	if writer == nil {
		panic("writer is required")
	}
	return &WriteFilesTool{writer: writer, sandboxID: sandboxID}
}

func (t *WriteFilesTool) Name() string { return WriteFilesName }

func (t *WriteFilesTool) Declaration() tool.Declaration {
	return tool.Declaration{
		Name:        WriteFilesName,
		Description: "Create or update files in the sandbox",
		Parameters: &tool.Schema{
			Type: tool.TypeObject,
			Properties: map[string]*tool.Schema{
				"files": {
					Type: tool.TypeArray,
					Items: &tool.Schema{
						Type: tool.TypeObject,
						Properties: map[string]*tool.Schema{
							"path":    {Type: tool.TypeString, Description: "File path, relative to the project root"},
							"content": {Type: tool.TypeString, Description: "Full file content"},
						},
						Required: []string{"path", "content"},
					},
				},
			},
			Required: []string{"files"},
		},
	}
}

func (t *WriteFilesTool) Input() any { return &WriteFilesRequest{} }

// Execute writes every file in order. Each successful write is merged into
// state immediately. The first failure aborts the call and is returned as is.
func (t *WriteFilesTool) Execute(ctx context.Context, input any, state *workflow.RunState) (tool.Result, error) {
	req := input.(*WriteFilesRequest)

	paths := make([]string, 0, len(req.Files))
	for _, f := range req.Files {
		if err := t.writer.WriteFile(ctx, t.sandboxID, f.Path, f.Content); err != nil {
			return nil, err
		}
		state.PutFile(f.Path, f.Content)
		paths = append(paths, f.Path)
	}
	return &WriteFilesResult{Paths: paths}, nil
}
