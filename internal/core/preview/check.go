package preview

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// CheckResult is what a headless load of the preview observed
type CheckResult struct {
	Rendered bool   // #root has children and no error block
	Error    string // text of the mount guard's error block, if shown
	Title    string
}

// Checker loads a preview URL in a headless browser and inspects #root.
// It needs a local Chromium; launcher downloads one when none is found.
type Checker struct {
	Timeout time.Duration
	Settle  time.Duration // time given to Babel to transpile and mount after load
}

// NewChecker creates a checker with default timings
func NewChecker() *Checker {
	return &Checker{Timeout: 30 * time.Second, Settle: 2 * time.Second}
}

const inspectScript = `() => {
  const root = document.getElementById('root');
  const err = document.querySelector('.appforge-preview-error');
  return JSON.stringify({
    children: root ? root.childElementCount : 0,
    error: err ? err.innerText : ''
  });
}`

// Check renders url headlessly and reports whether the app mounted
func (c *Checker) Check(ctx context.Context, url string) (CheckResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	path, _ := launcher.LookPath()
	l := launcher.New().Bin(path).Headless(true)
	defer l.Cleanup()

	controlURL, err := l.Launch()
	if err != nil {
		return CheckResult{}, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return CheckResult{}, fmt.Errorf("failed to connect to browser: %w", err)
	}
	defer func() { _ = browser.Close() }()

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return CheckResult{}, fmt.Errorf("failed to open page: %w", err)
	}
	if err := page.Navigate(url); err != nil {
		return CheckResult{}, fmt.Errorf("navigation failed: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return CheckResult{}, fmt.Errorf("page did not load: %w", err)
	}
	// Non-fatal, the page may still be usable
	_ = page.WaitStable(c.Settle)

	res, err := page.Eval(inspectScript)
	if err != nil {
		return CheckResult{}, fmt.Errorf("inspect failed: %w", err)
	}

	var state struct {
		Children int    `json:"children"`
		Error    string `json:"error"`
	}
	if err := json.Unmarshal([]byte(res.Value.Str()), &state); err != nil {
		return CheckResult{}, fmt.Errorf("failed to decode page state: %w", err)
	}

	out := CheckResult{
		Error:    strings.TrimSpace(state.Error),
		Rendered: state.Children > 0 && state.Error == "",
	}
	if info, err := page.Info(); err == nil {
		out.Title = info.Title
	}
	return out, nil
}
