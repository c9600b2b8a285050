package shared

import (
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
)

// launchers maps GOOS to the command that hands a URL to the desktop.
var launchers = map[string][]string{
	"darwin":  {"open"},
	"linux":   {"xdg-open"},
	"freebsd": {"xdg-open"},
	"windows": {"rundll32", "url.dll,FileProtocolHandler"},
}

var startCommand = func(name string, args ...string) error {
	return exec.Command(name, args...).Start()
}

// OpenBrowser opens rawURL in the default browser. Only http and https URLs are accepted.
func OpenBrowser(rawURL string) error {
	return openBrowser(runtime.GOOS, rawURL)
}

func openBrowser(goos, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: refusing to open %q", ErrInvalidInput, rawURL)
	}

	launcher, ok := launchers[goos]
	if !ok {
		return fmt.Errorf("unsupported platform: %s", goos)
	}

	args := append(launcher[1:len(launcher):len(launcher)], u.String())
	if err := startCommand(launcher[0], args...); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}
