package file

import (
	"fmt"
	"strings"

	"github.com/Cyclone1070/codeagent/internal/tool"
)

// Entry is one file path with its content.
type Entry struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// WriteFilesRequest is the argument set of createOrUpdateFiles.
type WriteFilesRequest struct {
	Files []Entry `json:"files"`
}

// Validate checks the request before execution.
func (r *WriteFilesRequest) Validate() error {
	if len(r.Files) == 0 {
		return ErrFilesRequired
	}
	for i, f := range r.Files {
		if strings.TrimSpace(f.Path) == "" {
			return &PathRequiredError{Index: i}
		}
	}
	return nil
}

func (r *WriteFilesRequest) String() string {
	paths := make([]string, len(r.Files))
	for i, f := range r.Files {
		paths[i] = f.Path
	}
	return strings.Join(paths, ", ")
}

// ReadFilesRequest is the argument set of readFiles.
type ReadFilesRequest struct {
	Files []string `json:"files"`
}

// Validate checks the request before execution.
func (r *ReadFilesRequest) Validate() error {
	if len(r.Files) == 0 {
		return ErrFilesRequired
	}
	for i, p := range r.Files {
		if strings.TrimSpace(p) == "" {
			return &PathRequiredError{Index: i}
		}
	}
	return nil
}

func (r *ReadFilesRequest) String() string {
	return strings.Join(r.Files, ", ")
}

// WriteFilesResult confirms the written paths.
type WriteFilesResult struct {
	Paths []string
}

func (r *WriteFilesResult) LLMContent() string {
	return fmt.Sprintf("Files written: %s", strings.Join(r.Paths, ", "))
}

func (r *WriteFilesResult) Display() tool.ToolDisplay {
	return tool.FilesDisplay{Verb: "Wrote", Paths: r.Paths}
}

// ReadFilesResult carries either the JSON-encoded entries or an error string.
type ReadFilesResult struct {
	Paths   []string
	Content string
}

func (r *ReadFilesResult) LLMContent() string {
	return r.Content
}

func (r *ReadFilesResult) Display() tool.ToolDisplay {
	if strings.HasPrefix(r.Content, "Error:") {
		return tool.StringDisplay(r.Content)
	}
	return tool.FilesDisplay{Verb: "Read", Paths: r.Paths}
}
