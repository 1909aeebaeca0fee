// Package workflow drives a session from prompt to plan to code to preview
// and chat-driven revisions.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/neilberkman/appforge/internal/core/extract"
	"github.com/neilberkman/appforge/internal/core/llm"
	"github.com/neilberkman/appforge/internal/core/models"
)

var (
	ErrEmptyInput        = errors.New("input is empty")
	ErrInvalidTransition = errors.New("action not available in the current state")
	ErrBusy              = errors.New("a generation is already in progress")
	ErrNoCode            = errors.New("no code could be parsed from the response")
	ErrStale             = errors.New("response discarded: the session was reset while it was in flight")
)

// Fixed chat texts
const (
	Greeting       = "Hi! I can help you improve your app. What changes would you like to make?"
	Acknowledgment = "I've updated your app based on your request. Check out the changes in the preview!"
	NoCodeReply    = "I couldn't find any code in that response, so your app is unchanged. Try rephrasing the request."
	errorReplyFmt  = "Sorry, I encountered an error: %s"
)

// Completer sends a built prompt to the model
type Completer interface {
	Complete(ctx context.Context, call llm.Call) (string, error)
}

// Store persists committed sessions
type Store interface {
	SaveSession(ctx context.Context, s models.Session) error
}

// Controller exclusively owns one Session. Every exported method is safe for
// concurrent use; remote calls run without holding the lock.
type Controller struct {
	mu      sync.Mutex
	session models.Session
	busy    bool

	client   Completer
	prompts  llm.Templates
	store    Store
	onChange func(models.Session)
	logger   *slog.Logger

	commits uint64 // guarded by mu

	saveMu    sync.Mutex
	published uint64 // guarded by saveMu
}

// Option configures a Controller
type Option func(*Controller)

// WithStore saves the session after every committed transition
func WithStore(s Store) Option {
	return func(c *Controller) { c.store = s }
}

// WithOnChange registers a hook that receives a copy after committed
// transitions, in commit order. fn must not call back into the Controller's
// mutating methods.
func WithOnChange(fn func(models.Session)) Option {
	return func(c *Controller) { c.onChange = fn }
}

// WithTemplates replaces the default prompt templates
func WithTemplates(t llm.Templates) Option {
	return func(c *Controller) { c.prompts = t }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// New creates a controller with a fresh session in the Prompt state
func New(client Completer, opts ...Option) *Controller {
	c := &Controller{
		session: models.NewSession(),
		client:  client,
		prompts: llm.DefaultTemplates(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetTemplates swaps the prompt templates. Calls already in flight keep the
// prompt they were built with.
func (c *Controller) SetTemplates(t llm.Templates) {
	c.mu.Lock()
	c.prompts = t
	c.mu.Unlock()
}

// Snapshot returns a copy of the current session
func (c *Controller) Snapshot() models.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Clone()
}

// Busy reports whether a remote call is outstanding
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// Load replaces the session with a saved one, e.g. when resuming from history.
// A session saved mid-generation resumes in the state it was generating from.
func (c *Controller) Load(s models.Session) error {
	s = s.Clone()
	switch s.State {
	case models.StateGeneratingPlan:
		s.State = models.StatePrompt
		if s.Plan != "" {
			s.State = models.StatePlanReview
		}
	case models.StateGeneratingCode:
		s.State = models.StatePlanReview
		if s.Files.Len() > 0 {
			s.State = models.StateCodeReview
		}
	}
	if err := s.Validate(); err != nil {
		return fmt.Errorf("invalid session: %w", err)
	}

	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return ErrBusy
	}
	// responses for whatever was loaded before must not land on this session
	s.Generation = c.session.Generation + 1
	c.session = s
	snap := c.commitLocked()
	c.mu.Unlock()

	c.publish(snap)
	return nil
}

// SubmitPrompt starts plan generation from the Prompt state
func (c *Controller) SubmitPrompt(ctx context.Context, text string) error {
	return c.generatePlan(ctx, models.StatePrompt, text)
}

// RegeneratePlan asks for a new plan from PlanReview
func (c *Controller) RegeneratePlan(ctx context.Context) error {
	return c.generatePlan(ctx, models.StatePlanReview, "")
}

// ApprovePlan starts code generation from PlanReview
func (c *Controller) ApprovePlan(ctx context.Context) error {
	return c.generateCode(ctx, models.StatePlanReview)
}

// RegenerateCode asks for new code from CodeReview
func (c *Controller) RegenerateCode(ctx context.Context) error {
	return c.generateCode(ctx, models.StateCodeReview)
}

// ApproveCode moves from CodeReview to Preview
func (c *Controller) ApproveCode() error {
	return c.move(models.StateCodeReview, models.StatePreview, nil)
}

// OpenChat moves from Preview to Chat, seeding the greeting on first open
func (c *Controller) OpenChat() error {
	return c.move(models.StatePreview, models.StateChat, func(s *models.Session) {
		if len(s.ChatHistory) == 0 {
			s.ChatHistory = append(s.ChatHistory, models.ChatMessage{Role: models.RoleAssistant, Content: Greeting})
		}
	})
}

// BackToPreview moves from Chat to Preview
func (c *Controller) BackToPreview() error {
	return c.move(models.StateChat, models.StatePreview, nil)
}

// StartOver resets the session from any state. A call still in flight is
// left to finish; its response is discarded.
func (c *Controller) StartOver() {
	c.mu.Lock()
	c.session.Reset()
	c.busy = false
	snap := c.commitLocked()
	c.mu.Unlock()

	c.logger.Info("session reset", "session_id", snap.session.ID, "generation", snap.session.Generation)
	c.publish(snap)
}

// SendMessage requests an improvement from the Chat state. The user turn is
// recorded immediately; the outcome is recorded as an assistant turn.
func (c *Controller) SendMessage(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)

	c.mu.Lock()
	if err := c.checkLocked(models.StateChat); err != nil {
		c.mu.Unlock()
		return err
	}
	if text == "" {
		c.mu.Unlock()
		return ErrEmptyInput
	}
	call, err := c.prompts.ImprovePrompt(c.session.UserPrompt, c.session.Files, text)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.session.ChatHistory = append(c.session.ChatHistory, models.ChatMessage{Role: models.RoleUser, Content: text})
	c.session.LastError = ""
	gen := c.begin()
	snap := c.commitLocked()
	c.mu.Unlock()
	c.publish(snap)

	resp, callErr := c.client.Complete(ctx, call)

	c.mu.Lock()
	if c.session.Generation != gen {
		c.mu.Unlock()
		c.logger.Info("discarding stale response", "op", llm.OpImprove, "generation", gen)
		return ErrStale
	}
	c.busy = false

	var result error
	switch {
	case callErr != nil:
		msg := "Failed to improve code: " + callErr.Error()
		c.session.LastError = msg
		c.session.ChatHistory = append(c.session.ChatHistory, models.ChatMessage{
			Role:    models.RoleAssistant,
			Content: fmt.Sprintf(errorReplyFmt, msg),
		})
		result = fmt.Errorf("failed to improve code: %w", callErr)
	default:
		files := extract.Extract(resp)
		if files.Len() == 0 {
			c.session.ChatHistory = append(c.session.ChatHistory, models.ChatMessage{Role: models.RoleAssistant, Content: NoCodeReply})
			result = ErrNoCode
		} else {
			c.session.Files = files
			c.session.ChatHistory = append(c.session.ChatHistory, models.ChatMessage{Role: models.RoleAssistant, Content: Acknowledgment})
		}
	}
	snap = c.commitLocked()
	c.mu.Unlock()

	c.publish(snap)
	return result
}

// generatePlan runs a plan call from the given state. From Prompt, text
// becomes the session's description.
func (c *Controller) generatePlan(ctx context.Context, from models.State, text string) error {
	c.mu.Lock()
	if err := c.checkLocked(from); err != nil {
		c.mu.Unlock()
		return err
	}
	if from == models.StatePrompt {
		text = strings.TrimSpace(text)
		if text == "" {
			c.mu.Unlock()
			return ErrEmptyInput
		}
		c.session.UserPrompt = text
	}
	call, err := c.prompts.PlanPrompt(c.session.UserPrompt)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.session.State = models.StateGeneratingPlan
	c.session.LastError = ""
	gen := c.begin()
	snap := c.commitLocked()
	c.mu.Unlock()
	c.publish(snap)

	resp, callErr := c.client.Complete(ctx, call)

	c.mu.Lock()
	if c.session.Generation != gen {
		c.mu.Unlock()
		c.logger.Info("discarding stale response", "op", llm.OpPlan, "generation", gen)
		return ErrStale
	}
	c.busy = false

	var result error
	if callErr != nil {
		c.session.State = from
		c.session.LastError = "Failed to generate plan: " + callErr.Error()
		result = fmt.Errorf("failed to generate plan: %w", callErr)
	} else {
		c.session.Plan = resp
		c.session.State = models.StatePlanReview
	}
	snap = c.commitLocked()
	c.mu.Unlock()

	c.publish(snap)
	return result
}

func (c *Controller) generateCode(ctx context.Context, from models.State) error {
	c.mu.Lock()
	if err := c.checkLocked(from); err != nil {
		c.mu.Unlock()
		return err
	}
	call, err := c.prompts.CodePrompt(c.session.UserPrompt, c.session.Plan)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.session.State = models.StateGeneratingCode
	c.session.LastError = ""
	gen := c.begin()
	snap := c.commitLocked()
	c.mu.Unlock()
	c.publish(snap)

	resp, callErr := c.client.Complete(ctx, call)

	c.mu.Lock()
	if c.session.Generation != gen {
		c.mu.Unlock()
		c.logger.Info("discarding stale response", "op", llm.OpCode, "generation", gen)
		return ErrStale
	}
	c.busy = false

	var result error
	var files models.FileMap
	if callErr == nil {
		files = extract.Extract(resp)
		if files.Len() == 0 {
			callErr = ErrNoCode
		}
	}
	if callErr != nil {
		c.session.State = from
		c.session.LastError = "Failed to generate code: " + callErr.Error()
		result = fmt.Errorf("failed to generate code: %w", callErr)
	} else {
		c.session.Files = files
		c.session.State = models.StateCodeReview
	}
	snap = c.commitLocked()
	c.mu.Unlock()

	c.publish(snap)
	return result
}

// move applies a transition that needs no remote call
func (c *Controller) move(from, to models.State, mutate func(*models.Session)) error {
	c.mu.Lock()
	if err := c.checkLocked(from); err != nil {
		c.mu.Unlock()
		return err
	}
	if mutate != nil {
		mutate(&c.session)
	}
	c.session.State = to
	snap := c.commitLocked()
	c.mu.Unlock()

	c.publish(snap)
	return nil
}

// checkLocked rejects an action while busy or outside its source state
func (c *Controller) checkLocked(want models.State) error {
	if c.busy {
		return ErrBusy
	}
	if c.session.State != want {
		return fmt.Errorf("%w: in %s, need %s", ErrInvalidTransition, c.session.State, want)
	}
	return nil
}

// begin marks a remote call outstanding and returns the generation it belongs to
func (c *Controller) begin() uint64 {
	c.busy = true
	return c.session.Generation
}

// commit is a snapshot taken under mu, numbered in commit order
type commit struct {
	session models.Session
	seq     uint64
}

func (c *Controller) commitLocked() commit {
	c.session.UpdatedAt = time.Now()
	c.commits++
	return commit{session: c.session.Clone(), seq: c.commits}
}

// publish saves a commit and runs the observer outside mu. A commit older than
// one already published is dropped, so the store always ends on the latest.
func (c *Controller) publish(cm commit) {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()
	if cm.seq <= c.published {
		return
	}
	c.published = cm.seq

	if c.store != nil {
		if err := c.store.SaveSession(context.Background(), cm.session); err != nil {
			c.logger.Error("failed to save session", "session_id", cm.session.ID, "error", err)
		}
	}
	if c.onChange != nil {
		c.onChange(cm.session)
	}
}
