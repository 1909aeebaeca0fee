package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// State is a step in the generation workflow
type State int

const (
	StatePrompt State = iota
	StateGeneratingPlan
	StatePlanReview
	StateGeneratingCode
	StateCodeReview
	StatePreview
	StateChat
)

var stateNames = map[State]string{
	StatePrompt:         "prompt",
	StateGeneratingPlan: "generating_plan",
	StatePlanReview:     "plan_review",
	StateGeneratingCode: "generating_code",
	StateCodeReview:     "code_review",
	StatePreview:        "preview",
	StateChat:           "chat",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ParseState is the inverse of State.String
func ParseState(name string) (State, error) {
	for s, n := range stateNames {
		if n == name {
			return s, nil
		}
	}
	return StatePrompt, fmt.Errorf("unknown state %q", name)
}

// Busy reports whether the state represents an outstanding remote call
func (s State) Busy() bool {
	return s == StateGeneratingPlan || s == StateGeneratingCode
}

// Session is the single mutable aggregate behind one app generation.
// The workflow controller owns it; everyone else works on copies.
type Session struct {
	ID          string
	State       State
	UserPrompt  string
	Plan        string
	Files       FileMap
	ChatHistory []ChatMessage
	LastError   string
	Generation  uint64 // bumped on reset; responses tagged with an older value are stale
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewSession creates an empty session in the Prompt state
func NewSession() Session {
	now := time.Now()
	return Session{
		ID:        uuid.NewString(),
		State:     StatePrompt,
		Files:     NewFileMap(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Reset returns every field to its initial value, starting a new generation
func (s *Session) Reset() {
	gen := s.Generation + 1
	*s = NewSession()
	s.Generation = gen
}

// Clone returns a deep copy safe to hand out to readers
func (s Session) Clone() Session {
	out := s
	out.Files = s.Files.Clone()
	if s.ChatHistory != nil {
		out.ChatHistory = make([]ChatMessage, len(s.ChatHistory))
		copy(out.ChatHistory, s.ChatHistory)
	}
	return out
}

// Title is a short label for lists: the first line of the prompt, at most
// maxLen runes
func (s Session) Title(maxLen int) string {
	title := s.UserPrompt
	for i, r := range title {
		if r == '\n' {
			title = title[:i]
			break
		}
	}
	if r := []rune(title); maxLen > 3 && len(r) > maxLen {
		title = string(r[:maxLen-3]) + "..."
	}
	return title
}

// Validate checks the invariants that must hold before a session is persisted
func (s *Session) Validate() error {
	if s.ID == "" {
		return errors.New("session id is required")
	}
	if _, ok := stateNames[s.State]; !ok {
		return fmt.Errorf("invalid state %d", int(s.State))
	}
	switch s.State {
	case StatePlanReview, StateGeneratingCode:
		if s.Plan == "" {
			return fmt.Errorf("state %s requires a plan", s.State)
		}
	case StateCodeReview, StatePreview, StateChat:
		if s.Files.Len() == 0 {
			return fmt.Errorf("state %s requires generated files", s.State)
		}
	}
	return nil
}
