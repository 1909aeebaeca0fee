package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/neilberkman/appforge/internal/core/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	reply string
	err   error
	got   Request
}

func (s *stubProvider) Complete(ctx context.Context, req Request) (string, error) {
	s.got = req
	return s.reply, s.err
}

func (s *stubProvider) Name() string { return "stub" }

func TestPlanPrompt(t *testing.T) {
	call, err := DefaultTemplates().PlanPrompt("a counter app")
	require.NoError(t, err)

	assert.Equal(t, OpPlan, call.Op)
	assert.Equal(t, 2000, call.Options.MaxTokens)
	assert.Equal(t, 0.7, call.Options.Temperature)
	assert.Contains(t, call.User, `"a counter app"`)
	for _, section := range []string{"Overview", "Features", "Technology Stack", "Component Structure", "State Management", "Implementation Steps"} {
		assert.Contains(t, call.User, section)
	}
	assert.Contains(t, call.System, "implementation plans")
}

func TestCodePrompt(t *testing.T) {
	call, err := DefaultTemplates().CodePrompt("a <b>todo</b> app", "# Plan\n- list & add")
	require.NoError(t, err)

	assert.Equal(t, OpCode, call.Op)
	assert.Equal(t, 4000, call.Options.MaxTokens)
	assert.Contains(t, call.User, "a <b>todo</b> app", "user text is not HTML escaped")
	assert.Contains(t, call.User, "# Plan\n- list & add")
	assert.Contains(t, call.User, "```jsx:App.jsx")
	assert.Contains(t, call.User, "DO NOT include ANY import statements")
	assert.Contains(t, call.User, "CORRECT EXAMPLE - Counter App")
}

func TestImprovePrompt(t *testing.T) {
	files := models.NewFileMap()
	files.Set("App.jsx", "function App() { return <Button />; }")
	files.Set("Button.jsx", "function Button() { return <button>Go</button>; }")

	call, err := DefaultTemplates().ImprovePrompt("a counter app", files, "make the button bigger")
	require.NoError(t, err)

	assert.Equal(t, OpImprove, call.Op)
	assert.Equal(t, 4000, call.Options.MaxTokens)
	assert.Contains(t, call.User, "- App.jsx\n- Button.jsx\n")
	assert.Contains(t, call.User, "// App.jsx\nfunction App() { return <Button />; }")
	assert.Contains(t, call.User, "// Button.jsx\nfunction Button()")
	assert.Contains(t, call.User, `"make the button bigger"`)
	assert.Less(t, strings.Index(call.User, "// App.jsx"), strings.Index(call.User, "// Button.jsx"))
}

func TestLoadTemplatesOverride(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plan.mustache"), []byte("Plan for {{{prompt}}}"), 0644))

	tpl, err := LoadTemplates(dir)
	require.NoError(t, err)

	call, err := tpl.PlanPrompt("x")
	require.NoError(t, err)
	assert.Equal(t, "Plan for x", call.User)
	assert.Equal(t, DefaultCodeTemplate, tpl.Code)

	tpl, err = LoadTemplates(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Equal(t, DefaultTemplates(), tpl)
}

func TestTemplatesValidate(t *testing.T) {
	require.NoError(t, DefaultTemplates().Validate())

	broken := DefaultTemplates()
	broken.Code = "Code for {{#prompt}} with no closing section"
	err := broken.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "code prompt template")
}

func TestIsPlaceholderKey(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"", true},
		{"   ", true},
		{"YOUR_API_KEY_HERE", true},
		{"sk-...", true},
		{"sk-proj-abc123", false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPlaceholderKey(tt.key))
		})
	}
}

func TestNewClientRejectsMissingKey(t *testing.T) {
	for _, key := range []string{"", "YOUR_API_KEY_HERE"} {
		_, err := NewClient(context.Background(), Settings{Provider: "openai", APIKey: key}, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrConfig))
		assert.Contains(t, err.Error(), "Please configure your OpenAI API key")
	}

	_, err := NewClient(context.Background(), Settings{Provider: "nope", APIKey: "sk-real"}, nil)
	assert.True(t, errors.Is(err, ErrConfig))
}

func TestClientComplete(t *testing.T) {
	stub := &stubProvider{reply: "# Plan"}
	c := NewClientWithProvider(stub, "gpt-4o", nil)

	call, err := DefaultTemplates().PlanPrompt("a counter app")
	require.NoError(t, err)

	text, err := c.Complete(context.Background(), call)
	require.NoError(t, err)
	assert.Equal(t, "# Plan", text)

	require.Len(t, stub.got.Messages, 2)
	assert.Equal(t, RoleSystem, stub.got.Messages[0].Role)
	assert.Equal(t, call.System, stub.got.Messages[0].Content)
	assert.Equal(t, RoleUser, stub.got.Messages[1].Role)
	assert.Equal(t, call.User, stub.got.Messages[1].Content)
	assert.Equal(t, "gpt-4o", stub.got.Model)
	assert.Equal(t, 2000, stub.got.MaxTokens)
	assert.Equal(t, 0.7, stub.got.Temperature)
}

func TestClientClassifiesFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind error
	}{
		{"unauthorized status", errors.New("API returned unexpected status code: 401: Incorrect API key provided"), ErrAuth},
		{"forbidden status", fmt.Errorf("wrapped: %w", errors.New("status code: 403")), ErrAuth},
		{"rate limited", errors.New("API returned unexpected status code: 429: Rate limit reached"), ErrTransport},
		{"network", errors.New("dial tcp: connection refused"), ErrTransport},
		{"empty", errEmptyResponse, ErrTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClientWithProvider(&stubProvider{err: tt.err}, "", nil)
			_, err := c.Complete(context.Background(), Call{Op: OpCode})
			require.Error(t, err)

			var llmErr *Error
			require.True(t, errors.As(err, &llmErr))
			assert.Equal(t, OpCode, llmErr.Op)
			assert.True(t, errors.Is(err, tt.kind))
			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, tt.err.Error(), err.Error())
		})
	}
}
