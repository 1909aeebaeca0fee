package tui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/neilberkman/appforge/internal/core/db"
	"github.com/neilberkman/appforge/internal/core/llm"
	"github.com/neilberkman/appforge/internal/core/models"
	"github.com/neilberkman/appforge/internal/core/preview"
	"github.com/neilberkman/appforge/internal/core/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	counterPlan = "# Counter\n\n## Features\n- increment a number"
	counterCode = "```jsx:App.jsx\nfunction App() {\n  return <button>0</button>;\n}\n\nexport default App;\n```\n\n```css:App.css\nbutton { font-size: 1rem; }\n```"
	biggerCode  = "```jsx:App.jsx\nfunction App() {\n  return <button className=\"big\">0</button>;\n}\n```\n\n```css:App.css\nbutton { font-size: 3rem; }\n```"
)

type reply struct {
	text string
	err  error
}

type queueCompleter struct {
	mu      sync.Mutex
	replies []reply
}

func (q *queueCompleter) Complete(ctx context.Context, call llm.Call) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.replies) == 0 {
		return "", errors.New("no scripted reply")
	}
	r := q.replies[0]
	q.replies = q.replies[1:]
	return r.text, r.err
}

type blockingCompleter struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingCompleter) Complete(ctx context.Context, call llm.Call) (string, error) {
	b.started <- struct{}{}
	<-b.release
	return counterPlan, nil
}

type fakePreview struct {
	updates int
	started int
	files   models.FileMap
}

func (f *fakePreview) Update(files models.FileMap) (preview.Document, error) {
	f.updates++
	f.files = files
	return preview.Document{HTML: "<html></html>"}, nil
}

func (f *fakePreview) Start(ctx context.Context) error {
	f.started++
	return nil
}

func (f *fakePreview) URL() string {
	if f.started == 0 {
		return ""
	}
	return "http://127.0.0.1:5173/"
}

type fakeOpener struct {
	urls []string
}

func (f *fakeOpener) Open(url string) error {
	f.urls = append(f.urls, url)
	return nil
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

// run executes cmd and feeds the message it produces back into the model
func run(t *testing.T, m Model, cmd tea.Cmd) (Model, tea.Cmd) {
	t.Helper()
	require.NotNil(t, cmd)
	return update(t, m, cmd())
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var enterKey = tea.KeyMsg{Type: tea.KeyEnter}

func sessionIn(state models.State) models.Session {
	s := models.NewSession()
	s.UserPrompt = "a counter app"
	s.Plan = counterPlan
	s.Files.Set("App.jsx", "function App() { return <div/>; }")
	s.Files.Set("App.css", "div { color: red; }")
	s.State = state
	return s
}

func TestFullWorkflow(t *testing.T) {
	fake := &queueCompleter{replies: []reply{{text: counterPlan}, {text: counterCode}, {text: biggerCode}}}
	ctrl := workflow.New(fake)
	pv := &fakePreview{}
	opener := &fakeOpener{}
	m := New(Options{Controller: ctrl, Preview: pv, Opener: opener})

	// prompt -> plan
	m.input.SetValue("a counter app")
	m, cmd := update(t, m, enterKey)
	assert.True(t, m.waiting())
	assert.Contains(t, m.View(), "Generating implementation plan")
	m, _ = run(t, m, cmd)
	require.Equal(t, models.StatePlanReview, m.Session().State)
	assert.False(t, m.waiting())
	assert.Contains(t, m.View(), "Implementation Plan")

	// plan -> code
	m, cmd = update(t, m, runes("a"))
	m, _ = run(t, m, cmd)
	require.Equal(t, models.StateCodeReview, m.Session().State)
	assert.Equal(t, []string{structureTab, "App.jsx", "App.css"}, m.tabNames())

	// code -> preview starts the server and opens the browser once
	m, cmd = update(t, m, runes("a"))
	require.Equal(t, models.StatePreview, m.Session().State)
	m, _ = run(t, m, cmd)
	assert.Equal(t, 1, pv.started)
	assert.Equal(t, []string{"http://127.0.0.1:5173/"}, opener.urls)
	assert.Contains(t, m.View(), "http://127.0.0.1:5173/")

	// preview -> chat
	m, _ = update(t, m, runes("c"))
	require.Equal(t, models.StateChat, m.Session().State)
	require.Len(t, m.Session().ChatHistory, 1)
	assert.Equal(t, workflow.Greeting, m.Session().ChatHistory[0].Content)

	// improvement replaces files and refreshes the running preview
	m.input.SetValue("make the button bigger")
	m, cmd = update(t, m, enterKey)
	assert.Empty(t, m.input.Value())
	m, cmd = run(t, m, cmd)
	history := m.Session().ChatHistory
	require.Len(t, history, 3)
	assert.Equal(t, models.RoleUser, history[1].Role)
	assert.Equal(t, workflow.Acknowledgment, history[2].Content)
	content, _ := m.Session().Files.Get("App.css")
	assert.Contains(t, content, "3rem")

	_, _ = run(t, m, cmd)
	assert.Equal(t, 2, pv.updates)
	assert.Equal(t, 1, pv.started, "server is started once")
	assert.Len(t, opener.urls, 1, "browser is opened once")

	// back to preview
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, models.StatePreview, m.Session().State)
}

func TestEmptyPromptIsNotSubmitted(t *testing.T) {
	m := New(Options{Controller: workflow.New(&queueCompleter{})})
	m.input.SetValue("   ")

	m, cmd := update(t, m, enterKey)
	assert.Nil(t, cmd)
	assert.False(t, m.waiting())
	assert.Equal(t, models.StatePrompt, m.Session().State)
	assert.NotEmpty(t, m.status)
}

func TestPlanFailureReturnsToPrompt(t *testing.T) {
	fake := &queueCompleter{replies: []reply{{err: errors.New("connection refused")}}}
	m := New(Options{Controller: workflow.New(fake)})
	m.input.SetValue("a counter app")

	m, cmd := update(t, m, enterKey)
	m, _ = run(t, m, cmd)

	assert.Equal(t, models.StatePrompt, m.Session().State)
	assert.Contains(t, m.View(), "Failed to generate plan: connection refused")
	assert.Nil(t, m.err, "failure is shown through LastError")
}

func TestStartOverWhileGeneratingDiscardsResponse(t *testing.T) {
	fake := &blockingCompleter{started: make(chan struct{}, 1), release: make(chan struct{})}
	ctrl := workflow.New(fake)
	m := New(Options{Controller: ctrl})
	m.input.SetValue("a todo app")

	m, cmd := update(t, m, enterKey)
	require.NotNil(t, cmd)
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()
	<-fake.started

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.waiting())
	assert.Equal(t, models.StatePrompt, m.Session().State)

	close(fake.release)
	msg := <-done
	require.ErrorIs(t, msg.(stepDoneMsg).err, workflow.ErrStale)

	m, _ = update(t, m, msg)
	assert.Equal(t, models.StatePrompt, m.Session().State)
	assert.Empty(t, m.Session().Plan)
	assert.Empty(t, m.Session().UserPrompt)
	assert.Nil(t, m.err)
}

func TestCodeReviewTabs(t *testing.T) {
	ctrl := workflow.New(&queueCompleter{})
	require.NoError(t, ctrl.Load(sessionIn(models.StateCodeReview)))
	m := New(Options{Controller: ctrl, ProjectName: "demo"})

	tree := m.tabContent(0)
	assert.Contains(t, tree, "demo/")
	assert.Contains(t, tree, "App.jsx")
	assert.Contains(t, m.View(), structureTab)

	tests := []struct {
		name string
		key  tea.KeyMsg
		want int
	}{
		{"next", tea.KeyMsg{Type: tea.KeyTab}, 1},
		{"next again", runes("l"), 2},
		{"wraps forward", tea.KeyMsg{Type: tea.KeyRight}, 0},
		{"wraps backward", tea.KeyMsg{Type: tea.KeyShiftTab}, 2},
		{"previous", runes("h"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ = update(t, m, tt.key)
			assert.Equal(t, tt.want, m.activeTab)
		})
	}

	content, _ := m.Session().Files.Get("App.jsx")
	assert.Equal(t, content, m.tabContent(1))
}

func TestCopyIndicatorClears(t *testing.T) {
	ctrl := workflow.New(&queueCompleter{})
	require.NoError(t, ctrl.Load(sessionIn(models.StateCodeReview)))
	m := New(Options{Controller: ctrl})

	var copied []string
	m.copyFn = func(s string) error {
		copied = append(copied, s)
		return nil
	}

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m, cmd := update(t, m, runes("c"))
	require.NotNil(t, cmd)
	require.Len(t, copied, 1)
	assert.Contains(t, copied[0], "function App()")
	assert.True(t, m.copied)
	assert.Contains(t, m.View(), "Copied!")

	// a second copy restarts the timer; the first timer must not clear it
	first := m.copyToken
	m, _ = update(t, m, runes("c"))
	m, _ = update(t, m, clearCopiedMsg{token: first})
	assert.True(t, m.copied)

	m, _ = update(t, m, clearCopiedMsg{token: m.copyToken})
	assert.False(t, m.copied)
}

func TestCopyFailureIsReported(t *testing.T) {
	ctrl := workflow.New(&queueCompleter{})
	require.NoError(t, ctrl.Load(sessionIn(models.StateCodeReview)))
	m := New(Options{Controller: ctrl})
	m.copyFn = func(string) error { return errors.New("no clipboard") }

	m, cmd := update(t, m, runes("c"))
	assert.Nil(t, cmd)
	assert.False(t, m.copied)
	require.Error(t, m.err)
	assert.Contains(t, m.err.Error(), "no clipboard")
}

func TestPreviewExports(t *testing.T) {
	dir := t.TempDir()
	ctrl := workflow.New(&queueCompleter{})
	require.NoError(t, ctrl.Load(sessionIn(models.StatePreview)))
	m := New(Options{Controller: ctrl, ExportDir: dir, ProjectName: "demo"})

	m, cmd := update(t, m, runes("e"))
	m, _ = run(t, m, cmd)
	require.Nil(t, m.err)
	_, err := os.Stat(filepath.Join(dir, "demo.zip"))
	assert.NoError(t, err)
	assert.Contains(t, m.status, "demo.zip")

	m, cmd = update(t, m, runes("d"))
	m, _ = run(t, m, cmd)
	require.Nil(t, m.err)
	_, err = os.Stat(filepath.Join(dir, "demo", "src", "App.jsx"))
	assert.NoError(t, err)
}

func TestHistoryResume(t *testing.T) {
	database, err := db.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer database.Close()

	saved := sessionIn(models.StatePreview)
	require.NoError(t, database.SaveSession(context.Background(), saved))

	ctrl := workflow.New(&queueCompleter{})
	m := New(Options{Controller: ctrl, DB: database})

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlO})
	m, _ = run(t, m, cmd)
	require.Equal(t, historyView, m.mode)
	require.Len(t, m.history.Items(), 1)
	assert.Contains(t, m.View(), "a counter app")

	m, cmd = update(t, m, enterKey)
	m, _ = run(t, m, cmd)
	assert.Equal(t, workflowView, m.mode)
	assert.Equal(t, saved.ID, m.Session().ID)
	assert.Equal(t, models.StatePreview, m.Session().State)
	assert.Equal(t, 2, m.Session().Files.Len())
}

func TestHistoryUnavailableWithoutDB(t *testing.T) {
	m := New(Options{Controller: workflow.New(&queueCompleter{})})

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlO})
	assert.Nil(t, cmd)
	assert.Equal(t, workflowView, m.mode)
	assert.Equal(t, "History is not available", m.status)
}

func TestHelpOverlay(t *testing.T) {
	ctrl := workflow.New(&queueCompleter{})
	require.NoError(t, ctrl.Load(sessionIn(models.StatePlanReview)))
	m := New(Options{Controller: ctrl})

	m, _ = update(t, m, runes("?"))
	require.Equal(t, helpView, m.mode)
	assert.Contains(t, m.View(), "PLAN REVIEW")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, workflowView, m.mode)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyF1})
	assert.Equal(t, helpView, m.mode)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyF1})
	assert.Equal(t, workflowView, m.mode)
}

func TestStartOverFromReview(t *testing.T) {
	ctrl := workflow.New(&queueCompleter{})
	require.NoError(t, ctrl.Load(sessionIn(models.StateCodeReview)))
	m := New(Options{Controller: ctrl})

	m, _ = update(t, m, runes("n"))
	s := m.Session()
	assert.Equal(t, models.StatePrompt, s.State)
	assert.Empty(t, s.Plan)
	assert.Equal(t, 0, s.Files.Len())
}
