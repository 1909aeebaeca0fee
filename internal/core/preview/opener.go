package preview

import (
	"os/exec"
	"runtime"
	"strings"
)

// Opener opens preview URLs in the user's browser
type Opener struct {
	// Optional override from config, e.g. "firefox --new-window {url}"
	CustomCommand string

	// start launches the command without waiting; replaced in tests
	start func(name string, args ...string) error
}

// NewOpener creates an opener using custom when non-empty
func NewOpener(custom string) *Opener {
	return &Opener{CustomCommand: custom}
}

// Open launches the browser on url and returns once the process has started
func (o *Opener) Open(url string) error {
	if o.CustomCommand != "" {
		cmdStr := strings.ReplaceAll(o.CustomCommand, "{url}", shellEscape(url))
		if !strings.Contains(o.CustomCommand, "{url}") {
			cmdStr += " " + shellEscape(url)
		}
		return o.run("sh", "-c", cmdStr)
	}

	switch runtime.GOOS {
	case "darwin":
		return o.run("open", url)
	case "windows":
		return o.run("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return o.run("xdg-open", url)
	}
}

func (o *Opener) run(name string, args ...string) error {
	if o.start != nil {
		return o.start(name, args...)
	}
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	// reap the launcher process
	go func() { _ = cmd.Wait() }()
	return nil
}

// shellEscape wraps s in single quotes for sh -c
func shellEscape(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "'\\''") + "'"
}
