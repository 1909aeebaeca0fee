// Package archive packages generated files as a create-react-app style project.
package archive

import (
	"archive/zip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/cbroglie/mustache"
	"github.com/neilberkman/appforge/internal/core/models"
)

// DefaultProjectName is the top-level directory when none is configured
const DefaultProjectName = "my-react-app"

// Options controls project scaffolding
type Options struct {
	ProjectName string
	ModTime     time.Time // stamped on zip entries; zero means now
}

// Entry is one file in the exported project, path relative to the archive root
type Entry struct {
	Path    string
	Content string
}

// Archive is the complete project in write order
type Archive struct {
	Root    string
	Entries []Entry
}

const indexJSTemplate = `import React from 'react';
import ReactDOM from 'react-dom/client';
import './index.css';
import App from './{{entry}}';

const root = ReactDOM.createRoot(document.getElementById('root'));
root.render(
  <React.StrictMode>
    <App />
  </React.StrictMode>
);
`

const indexCSS = `* {
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
`

const indexHTML = `<!DOCTYPE html>
<html lang="en">
  <head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <meta name="theme-color" content="#000000" />
    <meta name="description" content="React app generated by appforge" />
    <title>React App</title>
  </head>
  <body>
    <noscript>You need to enable JavaScript to run this app.</noscript>
    <div id="root"></div>
  </body>
</html>
`

const readmeTemplate = "# React App\n\n" +
	"This project was generated by appforge.\n\n" +
	"## Setup\n\n" +
	"1. Extract this archive\n" +
	"2. Navigate to the `{{project}}` directory:\n" +
	"   ```bash\n   cd {{project}}\n   ```\n" +
	"3. Install dependencies:\n" +
	"   ```bash\n   npm install\n   ```\n" +
	"4. Start the development server:\n" +
	"   ```bash\n   npm start\n   ```\n" +
	"5. Open [http://localhost:3000](http://localhost:3000) in your browser\n\n" +
	"## Generated Files\n\n" +
	"{{#files}}\n- src/{{{.}}}\n{{/files}}\n\n" +
	"## Available Scripts\n\n" +
	"- `npm start` - Runs the app in development mode\n" +
	"- `npm run build` - Builds the app for production\n" +
	"- `npm test` - Launches the test runner\n"

const gitignore = `# dependencies
/node_modules
/.pnp
.pnp.js

# testing
/coverage

# production
/build

# misc
.DS_Store
.env.local
.env.development.local
.env.test.local
.env.production.local

npm-debug.log*
yarn-debug.log*
yarn-error.log*
`

type packageJSON struct {
	Name         string            `json:"name"`
	Version      string            `json:"version"`
	Private      bool              `json:"private"`
	Dependencies map[string]string `json:"dependencies"`
	Scripts      scripts           `json:"scripts"`
	EslintConfig eslintConfig      `json:"eslintConfig"`
	Browserslist browserslist      `json:"browserslist"`
}

type scripts struct {
	Start string `json:"start"`
	Build string `json:"build"`
	Test  string `json:"test"`
	Eject string `json:"eject"`
}

type eslintConfig struct {
	Extends []string `json:"extends"`
}

type browserslist struct {
	Production  []string `json:"production"`
	Development []string `json:"development"`
}

func manifest(name string) (string, error) {
	pkg := packageJSON{
		Name:    name,
		Version: "1.0.0",
		Private: true,
		Dependencies: map[string]string{
			"react":         "^18.2.0",
			"react-dom":     "^18.2.0",
			"react-scripts": "5.0.1",
		},
		Scripts: scripts{
			Start: "react-scripts start",
			Build: "react-scripts build",
			Test:  "react-scripts test",
			Eject: "react-scripts eject",
		},
		EslintConfig: eslintConfig{Extends: []string{"react-app"}},
		Browserslist: browserslist{
			Production:  []string{">0.2%", "not dead", "not op_mini all"},
			Development: []string{"last 1 chrome version", "last 1 firefox version", "last 1 safari version"},
		},
	}
	data, err := json.MarshalIndent(pkg, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data) + "\n", nil
}

// ErrUnsafeName is returned when a generated filename would land outside src/
var ErrUnsafeName = errors.New("filename escapes the project source directory")

// Build lays out the project for files. Generated files keep their map order
// under src/; scaffold files follow in a fixed order and give way to a
// generated file at the same path.
func Build(files models.FileMap, opts Options) (Archive, error) {
	root := opts.ProjectName
	if root == "" {
		root = DefaultProjectName
	}

	a := Archive{Root: root}
	seen := make(map[string]bool)
	add := func(rel, content string) {
		seen[rel] = true
		a.Entries = append(a.Entries, Entry{Path: path.Join(root, rel), Content: content})
	}
	addScaffold := func(rel, content string) {
		if !seen[rel] {
			add(rel, content)
		}
	}

	generated := make([]Entry, 0, files.Len())
	taken := make(map[string]string)
	for _, name := range files.Names() {
		rel, err := sourcePath(name)
		if err != nil {
			return Archive{}, err
		}
		if prev, ok := taken[rel]; ok {
			return Archive{}, fmt.Errorf("%q and %q both map to %s", prev, name, rel)
		}
		taken[rel] = name
		content, _ := files.Get(name)
		generated = append(generated, Entry{Path: rel, Content: content})
	}

	pkg, err := manifest(root)
	if err != nil {
		return Archive{}, fmt.Errorf("failed to build package.json: %w", err)
	}
	add("package.json", pkg)

	readme, err := mustache.Render(readmeTemplate, map[string]interface{}{
		"project": root,
		"files":   files.Names(),
	})
	if err != nil {
		return Archive{}, fmt.Errorf("failed to render README: %w", err)
	}
	add("README.md", readme)
	add(".gitignore", gitignore)
	add("public/index.html", indexHTML)

	for _, e := range generated {
		add(e.Path, e.Content)
	}

	indexJS, err := mustache.Render(indexJSTemplate, map[string]interface{}{
		"entry": "App",
	})
	if err != nil {
		return Archive{}, fmt.Errorf("failed to render index.js: %w", err)
	}
	addScaffold("src/index.js", indexJS)
	addScaffold("src/index.css", indexCSS)

	return a, nil
}

// sourcePath maps a generated filename to its slash path under src/
func sourcePath(name string) (string, error) {
	rel := path.Clean("src/" + strings.ReplaceAll(name, "\\", "/"))
	if !strings.HasPrefix(rel, "src/") {
		return "", fmt.Errorf("%w: %q", ErrUnsafeName, name)
	}
	return rel, nil
}

// WriteZip writes the project as a zip archive to w
func WriteZip(w io.Writer, files models.FileMap, opts Options) error {
	a, err := Build(files, opts)
	if err != nil {
		return err
	}

	mod := opts.ModTime
	if mod.IsZero() {
		mod = time.Now()
	}

	zw := zip.NewWriter(w)
	for _, e := range a.Entries {
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     e.Path,
			Method:   zip.Deflate,
			Modified: mod,
		})
		if err != nil {
			return fmt.Errorf("failed to add %s: %w", e.Path, err)
		}
		if _, err := io.WriteString(fw, e.Content); err != nil {
			return fmt.Errorf("failed to write %s: %w", e.Path, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize zip: %w", err)
	}
	return nil
}

// WriteZipFile creates (or truncates) dest and writes the zip archive into it
func WriteZipFile(dest string, files models.FileMap, opts Options) error {
	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}
	if err := WriteZip(f, files, opts); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// WriteDir writes the project under parent/<project name> and returns that directory
func WriteDir(parent string, files models.FileMap, opts Options) (string, error) {
	a, err := Build(files, opts)
	if err != nil {
		return "", err
	}

	base := filepath.Clean(parent)
	project := filepath.Join(base, a.Root)

	for _, e := range a.Entries {
		dest := filepath.Join(base, filepath.FromSlash(e.Path))
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return "", fmt.Errorf("failed to create directory for %s: %w", e.Path, err)
		}
		if err := os.WriteFile(dest, []byte(e.Content), 0644); err != nil {
			return "", fmt.Errorf("failed to write %s: %w", e.Path, err)
		}
	}
	return project, nil
}
