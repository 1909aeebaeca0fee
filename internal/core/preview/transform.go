package preview

import (
	"fmt"
	"regexp"
	"strings"
)

// WarningKind classifies a source file that does not follow the conventions
// the transform relies on. The file is still emitted; it may fail in the browser.
type WarningKind string

const (
	WarnNoFunction             WarningKind = "no_function"
	WarnAliasedImport          WarningKind = "aliased_import"
	WarnMultipleDefaultExports WarningKind = "multiple_default_exports"
	WarnLeftoverExport         WarningKind = "leftover_export"
	WarnReactDestructure       WarningKind = "react_destructure"
)

// templateHooks are destructured off React once at the top of the preview script
var templateHooks = []string{"useState", "useEffect", "useRef", "useCallback", "useMemo", "useReducer"}

// Warning describes one convention violation in one file
type Warning struct {
	File   string
	Kind   WarningKind
	Detail string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s (%s)", w.File, w.Detail, w.Kind)
}

var (
	importFromRe   = regexp.MustCompile(`import\s+.*?from\s+['"].*?['"];?\s*`)
	importNamedRe  = regexp.MustCompile(`import\s+\{[^}]+\}\s+from\s+['"].*?['"];?\s*`)
	importBareRe   = regexp.MustCompile(`import\s+['"][^'"\n]+['"];?\s*`)
	reactDestrucRe = regexp.MustCompile(`const\s+\{([^}]*)\}\s*=\s*React;?\s*`)
	exportFuncRe   = regexp.MustCompile(`export\s+default\s+function\s+([A-Za-z_$][\w$]*)`)

	aliasedImportRe = regexp.MustCompile(`import\s[^;\n]*\bas\s+[A-Za-z_$]`)
	defaultExportRe = regexp.MustCompile(`\bexport\s+default\b`)
	leftoverRe      = regexp.MustCompile(`(?m)^\s*export\b`)
)

// ComponentName is the identifier a file is expected to declare: its name without the extension
func ComponentName(filename string) string {
	return strings.TrimSuffix(filename, ".jsx")
}

// Transform strips module syntax from one component so it can be inlined into
// a plain script block. It assumes the conventions the code prompt asks for:
// no aliased imports, one default export, hooks destructured only off React.
// Violations are reported as warnings; the text is transformed regardless.
func Transform(filename, source string) (string, []Warning) {
	name := ComponentName(filename)
	var warnings []Warning

	if m := aliasedImportRe.FindString(source); m != "" {
		warnings = append(warnings, Warning{
			File:   filename,
			Kind:   WarnAliasedImport,
			Detail: fmt.Sprintf("aliased import %q", strings.TrimSpace(m)),
		})
	}
	if n := len(defaultExportRe.FindAllStringIndex(source, -1)); n > 1 {
		warnings = append(warnings, Warning{
			File:   filename,
			Kind:   WarnMultipleDefaultExports,
			Detail: fmt.Sprintf("%d default exports", n),
		})
	}

	out := importFromRe.ReplaceAllString(source, "")
	out = importNamedRe.ReplaceAllString(out, "")
	out = importBareRe.ReplaceAllString(out, "")
	out = exportFuncRe.ReplaceAllString(out, "function $1")
	out = regexp.MustCompile(`export\s+default\s+`+regexp.QuoteMeta(name)+`\b;?`).ReplaceAllString(out, "")
	out = reactDestrucRe.ReplaceAllStringFunc(out, func(m string) string {
		extra := undeclaredNames(reactDestrucRe.FindStringSubmatch(m)[1])
		if len(extra) == 0 {
			return ""
		}
		warnings = append(warnings, Warning{
			File:   filename,
			Kind:   WarnReactDestructure,
			Detail: fmt.Sprintf("destructures %s off React", strings.Join(extra, ", ")),
		})
		return "const { " + strings.Join(extra, ", ") + " } = React;\n"
	})
	out = strings.TrimSpace(out)

	if !regexp.MustCompile(`\bfunction\s+` + regexp.QuoteMeta(name) + `\s*\(`).MatchString(out) {
		warnings = append(warnings, Warning{
			File:   filename,
			Kind:   WarnNoFunction,
			Detail: fmt.Sprintf("no function %s declaration", name),
		})
	}
	if leftoverRe.MatchString(out) {
		warnings = append(warnings, Warning{
			File:   filename,
			Kind:   WarnLeftoverExport,
			Detail: "export statement left after transform",
		})
	}

	return out, warnings
}

// undeclaredNames returns the entries of a destructuring list that the
// preview script does not already declare. Renamed entries are always kept.
func undeclaredNames(list string) []string {
	var out []string
	for _, entry := range strings.Split(list, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" || isTemplateHook(entry) {
			continue
		}
		out = append(out, entry)
	}
	return out
}

func isTemplateHook(name string) bool {
	for _, h := range templateHooks {
		if name == h {
			return true
		}
	}
	return false
}
