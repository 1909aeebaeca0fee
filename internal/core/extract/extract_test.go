package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const counterResponse = "Here is your app:\n\n" +
	"```jsx:App.jsx\n" +
	"function App() {\n  const [count, setCount] = useState(0);\n  return <h1>{count}</h1>;\n}\n\nexport default App;\n" +
	"```\n\n" +
	"```css:App.css\n" +
	".app { display: flex; }\n" +
	"```\n"

func TestExtractTagged(t *testing.T) {
	res := Parse(counterResponse)

	require.Equal(t, FormatTagged, res.Format)
	assert.Equal(t, []string{"App.jsx", "App.css"}, res.Files.Names())

	app, _ := res.Files.Get("App.jsx")
	assert.Contains(t, app, "function App()")
	assert.NotContains(t, app, "```")

	css, _ := res.Files.Get("App.css")
	assert.Equal(t, ".app { display: flex; }", css)
}

func TestExtractIsIdempotent(t *testing.T) {
	first := Extract(counterResponse)
	second := Extract(counterResponse)
	assert.True(t, first.Equal(second))
}

func TestExtractLastWriteWins(t *testing.T) {
	text := "```jsx:App.jsx\nfirst\n```\n" +
		"```css:App.css\nstyles\n```\n" +
		"```jsx:App.jsx\nsecond\n```\n"

	res := Parse(text)
	assert.Equal(t, []string{"App.jsx", "App.css"}, res.Files.Names())
	app, _ := res.Files.Get("App.jsx")
	assert.Equal(t, "second", app)
	assert.Len(t, res.Blocks, 3)
}

func TestExtractTrimsFilenameAndBody(t *testing.T) {
	files := Extract("```javascript:  utils.jsx  \n\n  const x = 1;\n\n```")
	got, ok := files.Get("utils.jsx")
	require.True(t, ok)
	assert.Equal(t, "const x = 1;", got)
}

func TestExtractFallback(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantJSX string
		wantCSS string
	}{
		{
			name:    "all three fences",
			text:    "```html\n<div id=\"root\"></div>\n```\n```css\nbody { margin: 0; }\n```\n```javascript\nfunction App() {}\n```",
			wantJSX: "function App() {}",
			wantCSS: "body { margin: 0; }",
		},
		{
			name:    "jsx fence counts as javascript",
			text:    "```jsx\nfunction App() {}\n```",
			wantJSX: "function App() {}",
			wantCSS: "",
		},
		{
			name:    "css only",
			text:    "```css\nh1 { color: red; }\n```",
			wantJSX: "",
			wantCSS: "h1 { color: red; }",
		},
		{
			name:    "html only still yields both slots",
			text:    "```html\n<p>hi</p>\n```",
			wantJSX: "",
			wantCSS: "",
		},
		{
			name:    "first fence of each kind wins",
			text:    "```css\nfirst\n```\n```css\nsecond\n```",
			wantJSX: "",
			wantCSS: "first",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Parse(tt.text)
			require.Equal(t, FormatFallback, res.Format)
			assert.Equal(t, []string{"App.jsx", "App.css"}, res.Files.Names())

			jsx, ok := res.Files.Get("App.jsx")
			require.True(t, ok)
			assert.Equal(t, tt.wantJSX, jsx)

			css, ok := res.Files.Get("App.css")
			require.True(t, ok)
			assert.Equal(t, tt.wantCSS, css)
		})
	}
}

func TestExtractTaggedSuppressesFallback(t *testing.T) {
	text := "```css\nignored\n```\n```jsx:Button.jsx\nfunction Button() {}\n```"
	res := Parse(text)
	assert.Equal(t, FormatTagged, res.Format)
	assert.Equal(t, []string{"Button.jsx"}, res.Files.Names())
}

func TestExtractNothing(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"prose", "I cannot help with that."},
		{"other language", "```python\nprint('hi')\n```"},
		{"unterminated", "```jsx:App.jsx\nfunction App() {}"},
		{"space before colon", "```jsx :App.jsx\nfunction App() {}\n```"},
		{"unknown kind", "```tsx:App.tsx\nfunction App() {}\n```"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Parse(tt.text)
			assert.Equal(t, FormatNone, res.Format)
			assert.Zero(t, res.Files.Len())
		})
	}
}

func TestParseBlocksKinds(t *testing.T) {
	text := "```jsx:App.jsx\na\n```\n```css:App.css\nb\n```\n```javascript:helpers.jsx\nc\n```"
	blocks := ParseBlocks(text)
	require.Len(t, blocks, 3)
	assert.Equal(t, "jsx", string(blocks[0].Kind))
	assert.Equal(t, "css", string(blocks[1].Kind))
	assert.Equal(t, "javascript", string(blocks[2].Kind))
	assert.Equal(t, "helpers.jsx", blocks[2].Filename)
}

func TestExtractCRLF(t *testing.T) {
	files := Extract("```jsx:App.jsx\r\nfunction App() {}\r\n```")
	got, ok := files.Get("App.jsx")
	require.True(t, ok)
	assert.Equal(t, "function App() {}", got)
}

func TestExtractSkipsStrayInlineFence(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		format    Format
		wantNames []string
	}{
		{
			name: "tagged blocks after inline marker",
			text: "Wrap each file in a ``` fence as requested.\n\n" +
				"```jsx:App.jsx\nfunction App() {}\n```\n\n" +
				"```css:App.css\n.a{}\n```\n",
			format:    FormatTagged,
			wantNames: []string{"App.jsx", "App.css"},
		},
		{
			name: "inline marker between tagged blocks",
			text: "```jsx:App.jsx\nfunction App() {}\n```\n" +
				"Use ``` for code.\n" +
				"```css:App.css\n.a{}\n```\n",
			format:    FormatTagged,
			wantNames: []string{"App.jsx", "App.css"},
		},
		{
			name: "fallback fences after inline marker",
			text: "Here are the ``` blocks you asked for.\n\n" +
				"```css\nh1 { color: red; }\n```\n" +
				"```jsx\nfunction App() {}\n```\n",
			format:    FormatFallback,
			wantNames: []string{"App.jsx", "App.css"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Parse(tt.text)
			require.Equal(t, tt.format, res.Format)
			assert.Equal(t, tt.wantNames, res.Files.Names())
		})
	}
}

func TestExtractStrayFenceKeepsBodies(t *testing.T) {
	text := "Wrap each file in a ``` fence as requested.\n\n" +
		"```jsx:App.jsx\nfunction App() {}\n```\n\n" +
		"```css:App.css\n.a{}\n```\n"

	files := Extract(text)
	app, _ := files.Get("App.jsx")
	assert.Equal(t, "function App() {}", app)
	css, _ := files.Get("App.css")
	assert.Equal(t, ".a{}", css)

	fb := Parse("Use ``` here.\n```css\nh1 {}\n```\n```jsx\nfunction App() {}\n```")
	require.Equal(t, FormatFallback, fb.Format)
	jsx, _ := fb.Files.Get("App.jsx")
	assert.Equal(t, "function App() {}", jsx)
	css, _ = fb.Files.Get("App.css")
	assert.Equal(t, "h1 {}", css)
}
