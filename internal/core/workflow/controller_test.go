package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/neilberkman/appforge/internal/core/llm"
	"github.com/neilberkman/appforge/internal/core/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reply struct {
	text string
	err  error
}

// scriptedCompleter answers calls in order. When gate is set, each call
// signals started and then waits for gate before answering.
type scriptedCompleter struct {
	mu      sync.Mutex
	replies []reply
	calls   []llm.Call
	started chan struct{}
	gate    chan struct{}
}

func (s *scriptedCompleter) Complete(ctx context.Context, call llm.Call) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, call)
	var r reply
	if len(s.replies) > 0 {
		r, s.replies = s.replies[0], s.replies[1:]
	}
	s.mu.Unlock()

	if s.gate != nil {
		s.started <- struct{}{}
		<-s.gate
	}
	return r.text, r.err
}

func (s *scriptedCompleter) push(text string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies = append(s.replies, reply{text: text, err: err})
}

type memoryStore struct {
	mu    sync.Mutex
	saved []models.Session
}

func (m *memoryStore) SaveSession(ctx context.Context, s models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, s)
	return nil
}

const (
	planText    = "# Counter App\n\n## Overview\nA counter."
	counterCode = "```jsx:App.jsx\nfunction App() {\n  const [count, setCount] = useState(0);\n  return <button onClick={() => setCount(count + 1)}>{count}</button>;\n}\n\nexport default App;\n```\n\n```css:App.css\nbutton { font-size: 1rem; }\n```"
	biggerCode  = "```jsx:App.jsx\nfunction App() {\n  return <button className=\"big\">+</button>;\n}\n```\n\n```css:App.css\nbutton { font-size: 3rem; }\n```"
)

func TestCounterAppScenario(t *testing.T) {
	ctx := context.Background()
	fake := &scriptedCompleter{}
	store := &memoryStore{}
	var changes []models.State
	c := New(fake, WithStore(store), WithOnChange(func(s models.Session) {
		changes = append(changes, s.State)
	}))

	fake.push(planText, nil)
	require.NoError(t, c.SubmitPrompt(ctx, "a counter app"))
	s := c.Snapshot()
	assert.Equal(t, models.StatePlanReview, s.State)
	assert.Equal(t, planText, s.Plan)
	assert.Equal(t, "a counter app", s.UserPrompt)
	assert.Equal(t, []models.State{models.StateGeneratingPlan, models.StatePlanReview}, changes)

	fake.push(counterCode, nil)
	require.NoError(t, c.ApprovePlan(ctx))
	s = c.Snapshot()
	assert.Equal(t, models.StateCodeReview, s.State)
	assert.Equal(t, []string{"App.jsx", "App.css"}, s.Files.Names())

	require.NoError(t, c.ApproveCode())
	assert.Equal(t, models.StatePreview, c.Snapshot().State)

	require.NoError(t, c.OpenChat())
	s = c.Snapshot()
	assert.Equal(t, models.StateChat, s.State)
	require.Len(t, s.ChatHistory, 1)
	assert.Equal(t, models.ChatMessage{Role: models.RoleAssistant, Content: Greeting}, s.ChatHistory[0])

	fake.push(biggerCode, nil)
	require.NoError(t, c.SendMessage(ctx, "make the button bigger"))
	s = c.Snapshot()
	assert.Equal(t, models.StateChat, s.State)
	css, _ := s.Files.Get("App.css")
	assert.Equal(t, "button { font-size: 3rem; }", css)
	require.Len(t, s.ChatHistory, 3)
	assert.Equal(t, models.ChatMessage{Role: models.RoleUser, Content: "make the button bigger"}, s.ChatHistory[1])
	assert.Equal(t, models.ChatMessage{Role: models.RoleAssistant, Content: Acknowledgment}, s.ChatHistory[2])

	require.Len(t, fake.calls, 3)
	assert.Equal(t, llm.OpPlan, fake.calls[0].Op)
	assert.Equal(t, llm.OpCode, fake.calls[1].Op)
	assert.Contains(t, fake.calls[1].User, planText)
	assert.Equal(t, llm.OpImprove, fake.calls[2].Op)
	assert.Contains(t, fake.calls[2].User, "useState(0)")

	assert.NotEmpty(t, store.saved)
	assert.Equal(t, models.StateChat, store.saved[len(store.saved)-1].State)

	require.NoError(t, c.BackToPreview())
	assert.Equal(t, models.StatePreview, c.Snapshot().State)
}

func TestSubmitPromptFailure(t *testing.T) {
	fake := &scriptedCompleter{}
	fake.push("", errors.New("connection refused"))
	c := New(fake)

	err := c.SubmitPrompt(context.Background(), "a counter app")
	require.Error(t, err)

	s := c.Snapshot()
	assert.Equal(t, models.StatePrompt, s.State)
	assert.Equal(t, "Failed to generate plan: connection refused", s.LastError)
	assert.Empty(t, s.Plan)
	assert.False(t, c.Busy())
}

func TestEmptyInput(t *testing.T) {
	c := New(&scriptedCompleter{})

	for _, text := range []string{"", "   \n\t"} {
		err := c.SubmitPrompt(context.Background(), text)
		assert.ErrorIs(t, err, ErrEmptyInput)
	}
	assert.Equal(t, models.StatePrompt, c.Snapshot().State)
}

func TestInvalidTransitions(t *testing.T) {
	ctx := context.Background()
	c := New(&scriptedCompleter{})

	assert.ErrorIs(t, c.ApprovePlan(ctx), ErrInvalidTransition)
	assert.ErrorIs(t, c.RegeneratePlan(ctx), ErrInvalidTransition)
	assert.ErrorIs(t, c.RegenerateCode(ctx), ErrInvalidTransition)
	assert.ErrorIs(t, c.ApproveCode(), ErrInvalidTransition)
	assert.ErrorIs(t, c.OpenChat(), ErrInvalidTransition)
	assert.ErrorIs(t, c.BackToPreview(), ErrInvalidTransition)
	assert.ErrorIs(t, c.SendMessage(ctx, "hi"), ErrInvalidTransition)
	assert.Equal(t, models.StatePrompt, c.Snapshot().State)
}

func reachPlanReview(t *testing.T, fake *scriptedCompleter, c *Controller) {
	t.Helper()
	fake.push(planText, nil)
	require.NoError(t, c.SubmitPrompt(context.Background(), "a counter app"))
}

func reachChat(t *testing.T, fake *scriptedCompleter, c *Controller) {
	t.Helper()
	reachPlanReview(t, fake, c)
	fake.push(counterCode, nil)
	require.NoError(t, c.ApprovePlan(context.Background()))
	require.NoError(t, c.ApproveCode())
	require.NoError(t, c.OpenChat())
}

func TestRegeneratePlanFailureKeepsPlan(t *testing.T) {
	fake := &scriptedCompleter{}
	c := New(fake)
	reachPlanReview(t, fake, c)

	fake.push("", errors.New("rate limited"))
	require.Error(t, c.RegeneratePlan(context.Background()))

	s := c.Snapshot()
	assert.Equal(t, models.StatePlanReview, s.State)
	assert.Equal(t, planText, s.Plan)
	assert.Equal(t, "Failed to generate plan: rate limited", s.LastError)

	fake.push("# New plan", nil)
	require.NoError(t, c.RegeneratePlan(context.Background()))
	s = c.Snapshot()
	assert.Equal(t, "# New plan", s.Plan)
	assert.Empty(t, s.LastError)
}

func TestCodeGenerationWithoutFencesFails(t *testing.T) {
	fake := &scriptedCompleter{}
	c := New(fake)
	reachPlanReview(t, fake, c)

	fake.push("Sorry, I can only describe the app.", nil)
	err := c.ApprovePlan(context.Background())
	assert.ErrorIs(t, err, ErrNoCode)

	s := c.Snapshot()
	assert.Equal(t, models.StatePlanReview, s.State)
	assert.Zero(t, s.Files.Len())
	assert.Equal(t, "Failed to generate code: no code could be parsed from the response", s.LastError)
}

func TestRegenerateCodeFailureKeepsFiles(t *testing.T) {
	fake := &scriptedCompleter{}
	c := New(fake)
	reachPlanReview(t, fake, c)
	fake.push(counterCode, nil)
	require.NoError(t, c.ApprovePlan(context.Background()))
	before := c.Snapshot().Files

	fake.push("", errors.New("timeout"))
	require.Error(t, c.RegenerateCode(context.Background()))

	s := c.Snapshot()
	assert.Equal(t, models.StateCodeReview, s.State)
	assert.True(t, before.Equal(s.Files))
	assert.Equal(t, "Failed to generate code: timeout", s.LastError)
}

func TestSendMessageFailureAppendsErrorTurn(t *testing.T) {
	fake := &scriptedCompleter{}
	c := New(fake)
	reachChat(t, fake, c)
	before := c.Snapshot().Files

	fake.push("", errors.New("boom"))
	require.Error(t, c.SendMessage(context.Background(), "add dark mode"))

	s := c.Snapshot()
	assert.Equal(t, models.StateChat, s.State)
	assert.True(t, before.Equal(s.Files))
	require.Len(t, s.ChatHistory, 3)
	assert.Equal(t, models.RoleAssistant, s.ChatHistory[2].Role)
	assert.Equal(t, "Sorry, I encountered an error: Failed to improve code: boom", s.ChatHistory[2].Content)
}

func TestSendMessageWithoutCodeKeepsFiles(t *testing.T) {
	fake := &scriptedCompleter{}
	c := New(fake)
	reachChat(t, fake, c)
	before := c.Snapshot().Files

	fake.push("I think the button is already big.", nil)
	assert.ErrorIs(t, c.SendMessage(context.Background(), "bigger"), ErrNoCode)

	s := c.Snapshot()
	assert.True(t, before.Equal(s.Files))
	assert.Equal(t, NoCodeReply, s.ChatHistory[len(s.ChatHistory)-1].Content)
}

func TestOpenChatSeedsGreetingOnce(t *testing.T) {
	fake := &scriptedCompleter{}
	c := New(fake)
	reachChat(t, fake, c)

	require.NoError(t, c.BackToPreview())
	require.NoError(t, c.OpenChat())
	assert.Len(t, c.Snapshot().ChatHistory, 1)
}

func TestBusyRejectsOtherActions(t *testing.T) {
	fake := &scriptedCompleter{started: make(chan struct{}), gate: make(chan struct{})}
	fake.push(planText, nil)
	c := New(fake)

	done := make(chan error)
	go func() { done <- c.SubmitPrompt(context.Background(), "a counter app") }()
	<-fake.started

	assert.True(t, c.Busy())
	assert.Equal(t, models.StateGeneratingPlan, c.Snapshot().State)
	assert.ErrorIs(t, c.SubmitPrompt(context.Background(), "again"), ErrBusy)
	assert.ErrorIs(t, c.ApprovePlan(context.Background()), ErrBusy)
	assert.ErrorIs(t, c.ApproveCode(), ErrBusy)

	close(fake.gate)
	require.NoError(t, <-done)
	assert.False(t, c.Busy())
	assert.Equal(t, models.StatePlanReview, c.Snapshot().State)
}

func TestStartOverDiscardsStaleResponse(t *testing.T) {
	fake := &scriptedCompleter{started: make(chan struct{}), gate: make(chan struct{})}
	fake.push(planText, nil)
	c := New(fake)

	done := make(chan error)
	go func() { done <- c.SubmitPrompt(context.Background(), "a counter app") }()
	<-fake.started

	c.StartOver()
	s := c.Snapshot()
	assert.Equal(t, models.StatePrompt, s.State)
	assert.False(t, c.Busy())

	close(fake.gate)
	assert.ErrorIs(t, <-done, ErrStale)

	after := c.Snapshot()
	assert.Equal(t, models.StatePrompt, after.State)
	assert.Empty(t, after.Plan)
	assert.Empty(t, after.UserPrompt)
	assert.Equal(t, s.ID, after.ID)
}

func TestStartOverResetsEverything(t *testing.T) {
	fake := &scriptedCompleter{}
	c := New(fake)
	reachChat(t, fake, c)
	old := c.Snapshot()

	c.StartOver()
	s := c.Snapshot()
	assert.Equal(t, models.StatePrompt, s.State)
	assert.Empty(t, s.Plan)
	assert.Zero(t, s.Files.Len())
	assert.Empty(t, s.ChatHistory)
	assert.NotEqual(t, old.ID, s.ID)
	assert.Greater(t, s.Generation, old.Generation)
}

func TestSnapshotIsACopy(t *testing.T) {
	fake := &scriptedCompleter{}
	c := New(fake)
	reachChat(t, fake, c)

	s := c.Snapshot()
	s.Files.Set("App.jsx", "tampered")
	s.ChatHistory[0].Content = "tampered"

	fresh := c.Snapshot()
	app, _ := fresh.Files.Get("App.jsx")
	assert.NotEqual(t, "tampered", app)
	assert.Equal(t, Greeting, fresh.ChatHistory[0].Content)
}

func TestLoadResumesSavedSession(t *testing.T) {
	saved := models.NewSession()
	saved.UserPrompt = "a counter app"
	saved.Plan = planText
	saved.State = models.StateGeneratingCode

	fake := &scriptedCompleter{}
	c := New(fake)
	require.NoError(t, c.Load(saved))

	s := c.Snapshot()
	assert.Equal(t, saved.ID, s.ID)
	assert.Equal(t, models.StatePlanReview, s.State)

	fake.push(counterCode, nil)
	require.NoError(t, c.ApprovePlan(context.Background()))
	assert.Equal(t, models.StateCodeReview, c.Snapshot().State)

	bad := models.NewSession()
	bad.State = models.StatePreview
	assert.Error(t, c.Load(bad))
}

func TestSetTemplatesAppliesToNextCall(t *testing.T) {
	fake := &scriptedCompleter{}
	fake.push("# Plan", nil)
	c := New(fake)

	tpl := llm.DefaultTemplates()
	tpl.Plan = "Custom plan for {{{prompt}}}"
	c.SetTemplates(tpl)

	require.NoError(t, c.SubmitPrompt(context.Background(), "a counter app"))
	require.Len(t, fake.calls, 1)
	assert.Equal(t, "Custom plan for a counter app", fake.calls[0].User)
}

// gatedStore holds its first save until release is closed
type gatedStore struct {
	memoryStore
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStore) SaveSession(ctx context.Context, s models.Session) error {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.release
	}
	return g.memoryStore.SaveSession(ctx, s)
}

func TestSavesFollowCommitOrder(t *testing.T) {
	store := &gatedStore{entered: make(chan struct{}), release: make(chan struct{})}
	c := New(&scriptedCompleter{}, WithStore(store))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		c.StartOver()
	}()
	<-store.entered

	loaded := models.NewSession()
	loaded.UserPrompt = "a weather dashboard"
	go func() {
		defer wg.Done()
		assert.NoError(t, c.Load(loaded))
	}()
	require.Eventually(t, func() bool {
		return c.Snapshot().ID == loaded.ID
	}, time.Second, time.Millisecond)

	close(store.release)
	wg.Wait()

	store.mu.Lock()
	defer store.mu.Unlock()
	require.NotEmpty(t, store.saved)
	last := store.saved[len(store.saved)-1]
	assert.Equal(t, loaded.ID, last.ID)
	assert.Equal(t, c.Snapshot().ID, last.ID)
}

func TestOnChangeFollowsCommitOrder(t *testing.T) {
	store := &gatedStore{entered: make(chan struct{}), release: make(chan struct{})}
	var mu sync.Mutex
	var seen []string
	c := New(&scriptedCompleter{}, WithStore(store), WithOnChange(func(s models.Session) {
		mu.Lock()
		seen = append(seen, s.UserPrompt)
		mu.Unlock()
	}))

	first := models.NewSession()
	first.UserPrompt = "first"
	second := models.NewSession()
	second.UserPrompt = "second"

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		assert.NoError(t, c.Load(first))
	}()
	<-store.entered
	go func() {
		defer wg.Done()
		assert.NoError(t, c.Load(second))
	}()
	require.Eventually(t, func() bool {
		return c.Snapshot().UserPrompt == "second"
	}, time.Second, time.Millisecond)

	close(store.release)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"first", "second"}, seen)
}
