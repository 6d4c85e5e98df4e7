package bootstrap

import (
	"fmt"
	"io"
)

// Diagnostics shown to the user for fatal startup problems.

func panicConfig(w io.Writer, file string, err error) {
	fmt.Fprintf(w, `
Fatal error: cannot use the configuration.

  %s
  %s

Fix or remove the file and start again.
`, file, err)
}

func panicPort(w io.Writer, host string, port int) {
	fmt.Fprintf(w, `
Fatal error: SABnzbd needs a free port.

  The web interface could not be started on %s port %d.
  Another program may use it or the address is not valid for this system.

Start with another port, for example: sabnzbd -s %s:%d
`, host, port, host, port+1)
}

func panicAccess(w io.Writer, host string, port int) {
	fmt.Fprintf(w, `
Fatal error: SABnzbd cannot listen on %s port %d.

  This system does not allow using this address or port.
  Ports below 1024 need special privileges.

Start with another address or port, for example: sabnzbd -s 0.0.0.0:8080
`, host, port)
}

func panicFirewall(w io.Writer) {
	fmt.Fprintf(w, `
Fatal error: the web port could not be tested.

  A firewall may prevent SABnzbd from even testing its port.
  Allow SABnzbd in the firewall, or start with --force to skip this test.
`)
}
