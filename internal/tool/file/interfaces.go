package file

import "context"

// fileWriter writes one file into a sandbox.
type fileWriter interface {
	WriteFile(ctx context.Context, sandboxID, path, content string) error
}

// fileReader reads one file from a sandbox.
type fileReader interface {
	ReadFile(ctx context.Context, sandboxID, path string) (string, error)
}
