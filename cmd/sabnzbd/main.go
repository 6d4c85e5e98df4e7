// Command sabnzbd starts the SABnzbd server.
package main

import (
	"os"

	"github.com/SunSeosahai/sabnzbd/bootstrap"
)

func main() {
	os.Exit(bootstrap.Main(os.Args, bootstrap.Deps{}))
}
