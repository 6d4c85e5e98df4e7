package instance

import (
	"fmt"
	"os/exec"
	"runtime"
)

// Browser opens a URL for the user.
type Browser interface {
	Open(url string) error
}

// BrowserFunc adapts a function to Browser.
type BrowserFunc func(url string) error

func (f BrowserFunc) Open(url string) error { return f(url) }

// SystemBrowser opens URLs with the desktop's default browser.
type SystemBrowser struct{}

// Open implements Browser. It does not wait for the browser to exit.
func (SystemBrowser) Open(url string) error {
	var cmd string
	var args []string

	switch runtime.GOOS {
	case "darwin":
		cmd = "open"
		args = []string{url}
	case "windows":
		cmd = "rundll32"
		args = []string{"url.dll,FileProtocolHandler", url}
	default:
		if _, err := exec.LookPath("xdg-open"); err != nil {
			return fmt.Errorf("no browser found: %w", err)
		}
		cmd = "xdg-open"
		args = []string{url}
	}

	c := exec.Command(cmd, args...)
	if err := c.Start(); err != nil {
		return err
	}
	go c.Wait()
	return nil
}
