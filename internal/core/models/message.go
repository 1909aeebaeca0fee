package models

// Role identifies who authored a chat turn
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is a single turn in the improvement chat
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// BlockKind is the language tag of a labeled code fence
type BlockKind string

const (
	KindJSX        BlockKind = "jsx"
	KindCSS        BlockKind = "css"
	KindJavaScript BlockKind = "javascript"
)

// ParsedBlock is one labeled fence pulled out of a model response.
// It only lives long enough to be folded into a FileMap.
type ParsedBlock struct {
	Kind     BlockKind
	Filename string
	Body     string
}
