package file

import (
	"errors"
	"fmt"
)

// -- Sentinels --

var (
	ErrFilesRequired = errors.New("files cannot be empty")
)

// PathRequiredError is returned when an entry has an empty path.
type PathRequiredError struct {
	Index int
}

func (e *PathRequiredError) Error() string {
	return fmt.Sprintf("files[%d]: path is required", e.Index)
}

func (e *PathRequiredError) InvalidInput() bool {
	return true
}
