package docker

import (
	"encoding/base64"
	"path"
)

// writeChunk is the raw bytes per exec. It is a multiple of 3 so every chunk
// base64-encodes without padding and decodes independently.
const writeChunk = 48 * 1024

func resolvePath(workDir, p string) string {
	if path.IsAbs(p) || workDir == "" {
		return path.Clean(p)
	}
	return path.Join(workDir, p)
}

// writeCommands returns the exec commands that replace target with content.
// The first command creates parent directories and truncates the file; each
// following command appends one base64 chunk. Content travels as an argument,
// never through the shell parser.
func writeCommands(target, content string) [][]string {
	cmds := [][]string{
		{"sh", "-c", `mkdir -p "$(dirname "$1")" && : > "$1"`, "sh", target},
	}
	data := []byte(content)
	for start := 0; start < len(data); start += writeChunk {
		end := min(start+writeChunk, len(data))
		chunk := base64.StdEncoding.EncodeToString(data[start:end])
		cmds = append(cmds, []string{"sh", "-c", `printf '%s' "$2" | base64 -d >> "$1"`, "sh", target, chunk})
	}
	return cmds
}
