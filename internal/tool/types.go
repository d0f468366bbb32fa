package tool

// Type represents JSON Schema types.
type Type string

const (
	TypeString  Type = "string"
	TypeNumber  Type = "number"
	TypeInteger Type = "integer"
	TypeBoolean Type = "boolean"
	TypeArray   Type = "array"
	TypeObject  Type = "object"
)

// Schema represents a JSON Schema for tool parameters.
type Schema struct {
	Type        Type               `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
}

// Declaration declares a tool's function signature for the LLM.
type Declaration struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Parameters  *Schema `json:"parameters,omitempty"`
}

// ToolDisplay is implemented by all display types returned from tools.
// The renderer uses type switches to render each type appropriately.
type ToolDisplay interface {
	isToolDisplay()
}

// StringDisplay is for simple text output.
type StringDisplay string

func (StringDisplay) isToolDisplay() {}

// CommandDisplay is for a command run inside the sandbox.
type CommandDisplay struct {
	Command string
	Output  string
	Failed  bool
}

func (CommandDisplay) isToolDisplay() {}

// FilesDisplay lists the paths a file tool touched.
type FilesDisplay struct {
	Verb  string // "Wrote", "Read"
	Paths []string
}

func (FilesDisplay) isToolDisplay() {}

// Result is returned by tools after execution.
type Result interface {
	// LLMContent returns the string content sent to the LLM.
	LLMContent() string

	// Display returns the display type for rendering.
	Display() ToolDisplay
}
