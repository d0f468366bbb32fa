package services

import (
	"testing"

	"github.com/Cyclone1070/codeagent/internal/tool"
	"github.com/stretchr/testify/assert"
)

func TestDescribeTool(t *testing.T) {
	tests := []struct {
		name     string
		tool     string
		request  string
		expected string
	}{
		{"Terminal", "terminal", "npm install", "$ npm install"},
		{"Files", "createOrUpdateFiles", "app/page.tsx", "createOrUpdateFiles app/page.tsx"},
		{"No Request", "readFiles", "", "readFiles"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DescribeTool(tt.tool, tt.request))
		})
	}
}

func TestDescribeDisplay(t *testing.T) {
	assert.Equal(t, "", DescribeDisplay(nil))
	assert.Equal(t, "Failed: boom", DescribeDisplay(tool.StringDisplay("Failed: boom")))
	assert.Equal(t, "ok", DescribeDisplay(tool.CommandDisplay{Command: "ls", Output: "ok\n"}))
	assert.Equal(t, "exit non-zero\nerr", DescribeDisplay(tool.CommandDisplay{Command: "ls", Output: "err", Failed: true}))
	assert.Equal(t, "Wrote 2 file(s): a.tsx, b.tsx", DescribeDisplay(tool.FilesDisplay{Verb: "Wrote", Paths: []string{"a.tsx", "b.tsx"}}))
}
