package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunState_PutFile_OverwritesNeverRemoves(t *testing.T) {
	s := NewRunState()

	s.PutFile("a.txt", "1")
	s.PutFile("b.txt", "2")
	s.PutFile("a.txt", "3")

	assert.Equal(t, map[string]string{"a.txt": "3", "b.txt": "2"}, s.Files)
	assert.Equal(t, []string{"a.txt", "b.txt"}, s.Paths())
}

func TestRunState_PutFile_ZeroValue(t *testing.T) {
	var s RunState
	s.PutFile("x", "y")
	assert.Equal(t, "y", s.Files["x"])
}

func TestRunState_Complete_SetOnce(t *testing.T) {
	s := NewRunState()

	assert.False(t, s.Done())
	assert.False(t, s.Complete("   "))
	assert.True(t, s.Complete("first <task_summary>"))
	assert.False(t, s.Complete("second <task_summary>"))
	assert.Equal(t, "first <task_summary>", s.Summary)
	assert.True(t, s.Done())
}
