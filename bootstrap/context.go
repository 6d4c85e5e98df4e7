package bootstrap

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/SunSeosahai/sabnzbd/config"
	"github.com/SunSeosahai/sabnzbd/instance"
)

// ErrUsage is returned for command lines which cannot be parsed.
var ErrUsage = errors.New("usage error")

// ErrBadValue is returned for flags given a value out of range.
var ErrBadValue = errors.New("invalid value")

// Flag names which are also bound to config keys.
const (
	flagConfigFile = "config-file"
	flagServer     = "server"
	flagLogging    = "logging"
	flagWebLogging = "weblogging"
	flagBrowser    = "browser"
	flagHTTPS      = "https"
)

// ProcessContext is everything known about this process before it starts
// serving. It is built once by Parse and passed to each component.
type ProcessContext struct {
	// Argv0 is how we were invoked.
	Argv0 string
	// ConfigFile is the absolute path of the config file.
	ConfigFile string
	// ConfigGiven is set when -f was on the command line.
	ConfigGiven bool
	// Server is the raw -s value.
	Server string

	Daemon    bool
	Pause     bool
	Force     bool
	TestLog   bool
	NoBrowser bool
	Clean     bool
	Help      bool
	Version   bool
	Delay     time.Duration

	// HTTPSPort is the --https value, 0 if not given.
	HTTPSPort int

	// Uploads are the recognized NZB and archive arguments in order.
	Uploads []string
	// Args are other positional arguments. They are ignored.
	Args []string

	flags *pflag.FlagSet
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("sabnzbd", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.SortFlags = false
	fs.StringP(flagConfigFile, "f", "", "Location of config file")
	fs.StringP(flagServer, "s", "", "Listen on server:port [*]")
	fs.IntP(flagLogging, "l", 1, "Set logging level (0= least, 2= most) [*]")
	fs.IntP(flagWebLogging, "w", 0, "Set web logging (0= off, 1= on, 2= file-only) [*]")
	fs.IntP(flagBrowser, "b", 1, "Auto browser launch (0= off, 1= on) [*]")
	fs.BoolP("daemon", "d", false, "Fork daemon process")
	fs.BoolP("nobrowser", "n", false, "Do not start a browser")
	fs.Bool("force", false, "Discard web-port timeout")
	fs.BoolP("help", "h", false, "Print this message")
	fs.BoolP("version", "v", false, "Print version information")
	fs.BoolP("clean", "c", false, "Remove logs")
	fs.BoolP("pause", "p", false, "Start in paused mode")
	fs.Int(flagHTTPS, 0, "Port to use for HTTPS server")
	fs.Bool("testlog", false, "Keep the configured log level on test releases")
	fs.Float64("delay", 0, "Seconds to wait before starting")
	return fs
}

// takesValue reports whether the next argument is the value of opt:
// "--name" and "-x" or a group of switches ending in "x", where the flag
// is not a switch and the value is not attached.
func (pc *ProcessContext) takesValue(opt string) bool {
	if strings.HasPrefix(opt, "--") {
		name := opt[2:]
		if name == "" || strings.Contains(name, "=") {
			return false
		}
		f := pc.flags.Lookup(name)
		return f != nil && f.NoOptDefVal == ""
	}
	shorts := strings.TrimPrefix(opt, "-")
	for i := 0; i < len(shorts); i++ {
		f := pc.flags.ShorthandLookup(shorts[i : i+1])
		if f == nil {
			return false
		}
		if f.NoOptDefVal == "" {
			return i == len(shorts)-1
		}
	}
	return false
}

// Parse builds the ProcessContext from the command line, argv[0] included.
// Upload arguments are taken out before the flags are parsed.
func Parse(argv []string) (*ProcessContext, error) {
	pc := &ProcessContext{flags: newFlagSet()}
	if len(argv) > 0 {
		pc.Argv0 = argv[0]
		argv = argv[1:]
	}

	rest, uploads := instance.ExtractUploads(argv, pc.takesValue)
	for i, u := range uploads {
		if abs, err := filepath.Abs(u); err == nil {
			uploads[i] = abs
		}
	}
	pc.Uploads = uploads

	fs := pc.flags
	if err := fs.Parse(rest); err != nil {
		return pc, fmt.Errorf("%w: %s", ErrUsage, err)
	}
	pc.Args = fs.Args()

	pc.Server, _ = fs.GetString(flagServer)
	pc.Daemon, _ = fs.GetBool("daemon")
	pc.Pause, _ = fs.GetBool("pause")
	pc.Force, _ = fs.GetBool("force")
	pc.TestLog, _ = fs.GetBool("testlog")
	pc.NoBrowser, _ = fs.GetBool("nobrowser")
	pc.Clean, _ = fs.GetBool("clean")
	pc.Help, _ = fs.GetBool("help")
	pc.Version, _ = fs.GetBool("version")
	pc.HTTPSPort, _ = fs.GetInt(flagHTTPS)
	if delay, _ := fs.GetFloat64("delay"); delay > 0 {
		pc.Delay = time.Duration(delay * float64(time.Second))
	}

	for _, name := range []string{flagLogging, flagWebLogging} {
		if v, _ := fs.GetInt(name); v < 0 || v > 2 {
			return pc, fmt.Errorf("%w: --%s %d", ErrBadValue, name, v)
		}
	}
	if fs.Changed(flagHTTPS) && (pc.HTTPSPort <= 0 || pc.HTTPSPort > 65535) {
		return pc, fmt.Errorf("%w: --https %d", ErrBadValue, pc.HTTPSPort)
	}

	if file, _ := fs.GetString(flagConfigFile); file != "" {
		pc.ConfigGiven = true
		pc.ConfigFile = file
	} else {
		pc.ConfigFile = defaultConfigDir()
	}
	abs, err := config.ResolvePath(pc.ConfigFile)
	if err != nil {
		return pc, fmt.Errorf("%w: config file %s: %s", ErrBadValue, pc.ConfigFile, err)
	}
	pc.ConfigFile = abs
	return pc, nil
}

// Given reports whether the flag was on the command line.
func (pc *ProcessContext) Given(name string) bool {
	return pc.flags.Changed(name)
}

// Flag returns the named flag for binding to config.
func (pc *ProcessContext) Flag(name string) *pflag.Flag {
	return pc.flags.Lookup(name)
}

// RestartArgv rebuilds the command line for a restart. Only the flags which
// must survive are kept. The pause flag reflects paused, the live state of
// the download queue, not the original command line.
func (pc *ProcessContext) RestartArgv(paused bool) []string {
	argv := []string{pc.Argv0}
	if pc.Daemon {
		argv = append(argv, "-d")
	}
	if pc.ConfigGiven {
		argv = append(argv, "-f", pc.ConfigFile)
	}
	if pc.Force {
		argv = append(argv, "--force")
	}
	if pc.HTTPSPort > 0 && pc.Given(flagHTTPS) {
		argv = append(argv, "--https", strconv.Itoa(pc.HTTPSPort))
	}
	if pc.TestLog {
		argv = append(argv, "--testlog")
	}
	if paused {
		argv = append(argv, "-p")
	}
	return argv
}

// Usage writes the help text.
func (pc *ProcessContext) Usage(w io.Writer) {
	fmt.Fprintf(w, "\nUsage: %s [-f <configfile>] <other options>\n\n", filepath.Base(pc.Argv0))
	fmt.Fprintf(w, "Options marked [*] are stored in the config file\n\nOptions:\n")
	fmt.Fprint(w, pc.flags.FlagUsages())
}

func defaultConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "sabnzbd")
	}
	return "."
}
