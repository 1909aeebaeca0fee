// Package preview turns a FileMap into a self-contained HTML document that
// runs the generated React app in the browser, and serves it locally.
package preview

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cbroglie/mustache"
	"github.com/neilberkman/appforge/internal/core/models"
)

// EntryFile is the component mounted into #root
const EntryFile = "App.jsx"

// ErrorHeading marks the block the mount guard writes into #root on failure
const ErrorHeading = "Preview Error"

// Document is a rendered preview page
type Document struct {
	HTML     string
	Warnings []Warning
}

const emptyDocument = `<!DOCTYPE html>
<html><body><div style="padding:50px;text-align:center;font-family:sans-serif;">
<h2>No code generated yet</h2>
</div></body></html>`

const documentTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{title}}</title>
  <script crossorigin src="https://unpkg.com/react@18/umd/react.production.min.js"></script>
  <script crossorigin src="https://unpkg.com/react-dom@18/umd/react-dom.production.min.js"></script>
  <script src="https://unpkg.com/@babel/standalone/babel.min.js"></script>
  <style>
    * {
      margin: 0;
      padding: 0;
      box-sizing: border-box;
    }
    body {
      font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', 'Roboto', 'Oxygen',
        'Ubuntu', 'Cantarell', 'Fira Sans', 'Droid Sans', 'Helvetica Neue', sans-serif;
      -webkit-font-smoothing: antialiased;
      -moz-osx-font-smoothing: grayscale;
    }
    #root {
      width: 100%;
      min-height: 100vh;
    }
{{{css}}}
  </style>
</head>
<body>
  <div id="root"></div>
  <script type="text/babel">
    const { useState, useEffect, useRef, useCallback, useMemo, useReducer } = React;

{{#components}}
    // {{name}}
{{{source}}}

{{/components}}
    // {{entry}}
{{{app}}}

    try {
      const root = ReactDOM.createRoot(document.getElementById('root'));
      root.render(<App />);
    } catch (error) {
      console.error('React rendering error:', error);
      document.getElementById('root').innerHTML =
        '<div class="appforge-preview-error" style="padding:50px;font-family:sans-serif;color:#f44336;">'+
        '<h2>⚠️ {{errorHeading}}</h2>'+
        '<p>'+error.message+'</p>'+
        '<p style="margin-top:20px;color:#666;">Check browser console for details.</p>'+
        '</div>';
    }
  </script>
</body>
</html>
`

var (
	scriptCloseRe = regexp.MustCompile(`(?i)</script`)
	styleCloseRe  = regexp.MustCompile(`(?i)</style`)
)

// Render builds the preview document for files. The entry is App.jsx; every
// other .jsx file is inlined before it in map order and every .css file is
// concatenated in map order.
func Render(files models.FileMap) (Document, error) {
	if files.Len() == 0 {
		return Document{HTML: emptyDocument}, nil
	}

	var warnings []Warning

	var cssParts []string
	for _, name := range files.CSS() {
		content, _ := files.Get(name)
		cssParts = append(cssParts, content)
	}

	var components []map[string]interface{}
	for _, name := range files.JSX() {
		if name == EntryFile {
			continue
		}
		content, _ := files.Get(name)
		src, w := Transform(name, content)
		warnings = append(warnings, w...)
		components = append(components, map[string]interface{}{
			"name":   name,
			"source": escapeScript(src),
		})
	}

	// A missing entry still renders: the mount guard reports it in the page.
	appSource, _ := files.Get(EntryFile)
	app, w := Transform(EntryFile, appSource)
	warnings = append(warnings, w...)

	html, err := mustache.Render(documentTemplate, map[string]interface{}{
		"title":        "React App Preview",
		"css":          styleCloseRe.ReplaceAllString(strings.Join(cssParts, "\n\n"), `<\/style`),
		"components":   components,
		"entry":        EntryFile,
		"app":          escapeScript(app),
		"errorHeading": ErrorHeading,
	})
	if err != nil {
		return Document{}, fmt.Errorf("failed to render preview: %w", err)
	}

	return Document{HTML: html, Warnings: warnings}, nil
}

// escapeScript keeps inlined code from terminating the surrounding script element
func escapeScript(src string) string {
	return scriptCloseRe.ReplaceAllString(src, `<\/script`)
}
