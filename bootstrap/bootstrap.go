// Package bootstrap is the entry point of the sabnzbd process. It decides
// where to listen, defers to an already running instance, detaches, starts
// the web engine and runs the steady-state loop until shutdown or restart.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/SunSeosahai/sabnzbd/config"
	"github.com/SunSeosahai/sabnzbd/daemon"
	"github.com/SunSeosahai/sabnzbd/downloader"
	"github.com/SunSeosahai/sabnzbd/endpoint"
	"github.com/SunSeosahai/sabnzbd/instance"
	"github.com/SunSeosahai/sabnzbd/log"
	"github.com/SunSeosahai/sabnzbd/log/syslog"
	"github.com/SunSeosahai/sabnzbd/logctl"
	"github.com/SunSeosahai/sabnzbd/ports"
	"github.com/SunSeosahai/sabnzbd/scheduler"
	"github.com/SunSeosahai/sabnzbd/sd"
	"github.com/SunSeosahai/sabnzbd/signals"
	"github.com/SunSeosahai/sabnzbd/web"
)

// Exit codes
const (
	ExitOK       = 0
	ExitFatal    = 1
	ExitWebStart = 2
	exitUsage    = 2
)

// EnvFile is loaded from the config directory into the environment.
const EnvFile = "sabnzbd.env"

type pauser interface {
	Pause()
	Resume()
}

// Deps are the collaborators of Main. Zero fields get the real thing.
type Deps struct {
	Stdout io.Writer
	Stderr io.Writer

	Resolver endpoint.Resolver
	Hostname func() (string, error)

	Prober      ports.Prober
	Coordinator ports.Coordinator
	Browser     instance.Browser
	Lifecycle   daemon.PlatformLifecycle
	// Getenv defaults to os.Getenv
	Getenv func(string) string

	Web        WebEngine
	Scheduler  Scheduler
	Downloader DownloadEngine

	Registry *prometheus.Registry
	// Console is whether to log to stderr when not daemonized. Default: when
	// stdout and stderr are terminals.
	Console *bool

	// Stop ends the steady-state loop when raised.
	Stop *atomic.Bool
	// Signals installs the handler raising the stop flag.
	Signals func(stop *atomic.Bool)
	// PollInterval of the steady-state loop.
	PollInterval time.Duration
	// OnState is told about the orchestrator states, Running included.
	OnState func(State)
	// OnListen is told the resolved endpoint and ports before the engine starts.
	OnListen func(endpoint.Resolved, ports.Result)
}

func (d *Deps) defaults() {
	if d.Stdout == nil {
		d.Stdout = os.Stdout
	}
	if d.Stderr == nil {
		d.Stderr = os.Stderr
	}
	if d.Prober == nil {
		d.Prober = ports.ListenProber{}
	}
	if d.Browser == nil {
		d.Browser = instance.SystemBrowser{}
	}
	if d.Lifecycle == nil {
		d.Lifecycle = daemon.SelectLifecycle()
	}
	if d.Getenv == nil {
		d.Getenv = os.Getenv
	}
	if d.Registry == nil {
		d.Registry = prometheus.NewRegistry()
	}
	if d.Console == nil {
		c := logctl.IsConsole()
		d.Console = &c
	}
	if d.Stop == nil {
		d.Stop = new(atomic.Bool)
	}
	if d.Signals == nil {
		d.Signals = func(stop *atomic.Bool) {
			signals.RunSignalHandler(signals.StopFlag(stop))
		}
	}
	if d.PollInterval == 0 {
		d.PollInterval = daemon.DefaultInterval
	}
}

// Main runs the process and returns its exit code.
func Main(args []string, deps Deps) int {
	deps.defaults()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pc, err := Parse(args)
	switch {
	case errors.Is(err, ErrUsage):
		fmt.Fprintln(deps.Stderr, err)
		pc.Usage(deps.Stderr)
		return exitUsage
	case err != nil:
		fmt.Fprintln(deps.Stderr, err)
		pc.Usage(deps.Stderr)
		return ExitFatal
	case pc.Help:
		pc.Usage(deps.Stdout)
		return ExitOK
	case pc.Version:
		fmt.Fprintf(deps.Stdout, "\nsabnzbd-%s\n\n", Version)
		return ExitOK
	}
	// A detach stage re-runs with the same arguments. Waiting and cleaning
	// belong to the first generation only.
	reexec := pc.Daemon && daemon.DetachStage(deps.Getenv) > 0
	if pc.Delay > 0 && !reexec {
		time.Sleep(pc.Delay)
	}

	root := log.Default()
	ctl := logctl.New(root, logctl.MaxWarnings)
	mtr := newMetrics(deps.Registry, Version, ctl.Ring(), ctl.Level)
	daemon.SetLogger(func(level int, msg string) {
		log.GetLogger("daemon").Log(syslog.Priority(level), msg)
	})

	store, err := loadConfig(pc)
	if err != nil {
		panicConfig(deps.Stderr, pc.ConfigFile, err)
		root.CRIT("Cannot load configuration", "file", pc.ConfigFile, "err", err)
		return ExitFatal
	}
	apiKey := config.EnsureAPIKey(store)

	logDir := store.GetPath(config.LogDir)
	if pc.Clean && logDir != "" && !reexec {
		if err := logctl.Clean(logDir); err != nil {
			root.WARN("Cannot clean log directory", "dir", logDir, "err", err)
		}
	}
	if pc.Daemon && logDir == "" {
		fmt.Fprintln(deps.Stderr, daemon.ErrNoLogDir)
		return ExitFatal
	}

	// Address Classifier
	classifier := endpoint.New()
	if deps.Resolver != nil {
		classifier.Resolver = deps.Resolver
	}
	if deps.Hostname != nil {
		classifier.Hostname = deps.Hostname
	}
	resolved := classifier.Classify(ctx, store.GetString(config.Host))
	if resolved.DualStackAmbiguous {
		root.WARN("Both IPv4 and IPv6 are available for this host, browsers may pick the wrong one", "host", resolved.BrowserHost)
	}

	// Port Negotiator and Single-Instance Coordinator
	coordinator := deps.Coordinator
	if coordinator == nil {
		c := instance.New(Version)
		c.APIKey = apiKey
		c.Browser = deps.Browser
		coordinator = c
	}
	negotiator := &ports.Negotiator{
		Prober:      deps.Prober,
		Coordinator: coordinator,
		Log:         log.GetLogger("ports"),
		Observe:     mtr.observeProbe,
	}
	result := negotiator.Negotiate(ctx, ports.Request{
		BrowserHost:   resolved.BrowserHost,
		Port:          store.GetInt(config.Port),
		SecureEnabled: store.GetBool(config.EnableHTTPS),
		SecurePort:    store.GetInt(config.HTTPSPort),
		Uploads:       pc.Uploads,
	})
	if result.Deferred {
		mtr.deferrals.Inc()
		root.INFO("Another instance of this release is running, leaving")
		return ExitOK
	}
	store.Set(config.Host, resolved.BindHost)
	store.Set(config.Port, result.Port)
	store.Set(config.EnableHTTPS, result.SecureEnabled)
	if result.SecureEnabled {
		store.Set(config.HTTPSPort, result.SecurePort)
	}

	// Daemonization Manager
	if pc.Daemon {
		exit, err := deps.Lifecycle.EnterBackground(logDir)
		if err != nil {
			fmt.Fprintf(deps.Stderr, "Cannot detach: %s\n", err)
			root.CRIT("Cannot detach", "err", err)
			return ExitFatal
		}
		if exit {
			return ExitOK
		}
	}

	// Log Lifecycle Controller
	var lc config.Logging
	if err := store.UnmarshalKey("logging", &lc); err != nil {
		panicConfig(deps.Stderr, pc.ConfigFile, err)
		return ExitFatal
	}
	err = ctl.Open(logctl.Options{
		Dir:         logDir,
		MaxSize:     lc.MaxLogSize,
		Backups:     lc.LogBackups,
		Level:       lc.LogLevel,
		WebLogging:  lc.WebLogging,
		Console:     *deps.Console && !pc.Daemon,
		TestRelease: IsTestRelease(Version),
		TestLog:     pc.TestLog,
	})
	if err != nil {
		fmt.Fprintf(deps.Stderr, "Cannot open logs in %s: %s\n", logDir, err)
		return ExitFatal
	}
	defer ctl.Close()
	store.OnChange(config.LogLevel, ctl.GuardLevel)

	root.INFO("--------------------------------")
	root.INFO("SABnzbd starting", "version", Version, "pid", os.Getpid(), "config", pc.ConfigFile)
	if IsTestRelease(Version) {
		root.INFO("Test release, logging at the highest level", "testlog", pc.TestLog)
	}

	go func() {
		err := store.Watch(ctx, func(err error) {
			root.WARN("Config watch", "err", err)
		})
		if err != nil {
			root.DEBUG("Config file not watched", "err", err)
		}
	}()

	// Collaborators
	dl := deps.Downloader
	if dl == nil {
		dl = downloader.New(store.GetPath(config.DownloadDir), pc.Pause)
	}
	sched := deps.Scheduler
	if sched == nil {
		pr, _ := dl.(pauser)
		sched = scheduler.New(map[string]scheduler.Action{
			"pause": func(string) {
				if pr != nil {
					pr.Pause()
				}
			},
			"resume": func(string) {
				if pr != nil {
					pr.Resume()
				}
			},
		})
	}
	stop := deps.Stop
	engine := deps.Web
	if engine == nil {
		queue, ok := dl.(web.Queue)
		if !ok {
			root.CRIT("Download engine cannot serve the web API")
			return ExitFatal
		}
		engine = &web.Engine{
			Version:    Version,
			APIKey:     func() string { return store.GetString(config.APIKey) },
			Queue:      queue,
			Warnings:   ctl.Ring(),
			Log:        log.GetLogger("web"),
			AccessLog:  log.GetLogger(logctl.AccessLogger),
			Registry:   deps.Registry,
			OnShutdown: func() { stop.Store(true) },
		}
	}
	deps.Signals(stop)

	// Engine start
	secure := web.Secure{
		Enabled: result.SecureEnabled,
		Port:    result.SecurePort,
		Cert:    store.GetPath(config.HTTPSCert),
		Key:     store.GetPath(config.HTTPSKey),
	}
	if deps.OnListen != nil {
		deps.OnListen(resolved, result)
	}
	root.INFO("Starting web interface", "host", resolved.BindHost, "port", result.Port)
	if deps.Prober.Probe(resolved.BrowserHost, result.Port) == ports.NoPermission && !pc.Force {
		panicFirewall(deps.Stderr)
		root.CRIT("Web port cannot be tested", "port", result.Port)
		dl.HaltGracefully()
		return ExitWebStart
	}
	if err := engine.Start(resolved.BindHost, result.Port, secure); err != nil {
		root.CRIT("Cannot start web interface", "err", err)
		if ports.Classify(err) == ports.NoPermission {
			panicAccess(deps.Stderr, resolved.BrowserHost, result.Port)
		} else {
			panicPort(deps.Stderr, resolved.BrowserHost, result.Port)
		}
		dl.HaltGracefully()
		return ExitWebStart
	}
	sched.Start(store.GetStringSlice(config.Schedules))

	scheme, port := "http", result.Port
	if result.SecureEnabled {
		scheme, port = "https", result.SecurePort
	}
	url := endpoint.BrowserURL(scheme, resolved.BrowserHost, port) + "sabnzbd/"
	if store.GetBool(config.AutoBrowser) && !pc.NoBrowser && !pc.Daemon {
		if err := deps.Browser.Open(url); err != nil {
			root.WARN("Cannot launch browser", "url", url, "err", err)
		}
	}
	for _, u := range pc.Uploads {
		if err := dl.AddLocal(u); err != nil {
			root.WARN("Cannot add file", "file", u, "err", err)
		}
	}

	// Restart/Re-exec Orchestrator and steady-state loop
	orch := &Orchestrator{
		Context:    pc,
		Web:        engine,
		Scheduler:  sched,
		Downloader: dl,
		Config:     store,
		Lifecycle:  deps.Lifecycle,
		Stop:       stop,
		Log:        log.GetLogger("restart"),
		OnState:    deps.OnState,
	}
	if deps.OnState != nil {
		deps.OnState(Running)
	}
	daemon.Run(stop,
		daemon.Interval(deps.PollInterval),
		daemon.SdNotifyOnReady(false, "SABnzbd "+Version+" on "+url),
		daemon.SdWatchdog(),
		daemon.Poll(func() { ctl.Poll(func() int { return store.GetInt(config.LogLevel) }) }),
		daemon.Housekeeping(daemon.DefaultHousekeepingEvery, func() {
			sched.Restart(store.GetStringSlice(config.Schedules))
			if err := store.Save(false); err != nil {
				root.ERROR("Cannot save configuration", "err", err)
			}
		}),
		daemon.Until(orch.Check),
	)

	if orch.State() == RestartRequested {
		mtr.restarts.Inc()
		ctl.Close()
		if err := orch.Finish(); err != nil {
			root.CRIT("Restart failed", "err", err)
			fmt.Fprintf(deps.Stderr, "Restart failed: %s\n", err)
			return ExitFatal
		}
		return ExitOK
	}

	sd.NotifyStatus(sd.StatusStopping, "Leaving")
	sched.Stop()
	dl.HaltGracefully()
	engine.Stop()
	if err := store.Save(false); err != nil {
		root.ERROR("Cannot save configuration", "err", err)
	}
	root.INFO("Leaving SABnzbd")
	return ExitOK
}

// loadConfig reads the config file, environment and the flags of pc.
func loadConfig(pc *ProcessContext) (*config.Store, error) {
	store := config.New(pc.ConfigFile, config.EnvPrefix(config.EnvPrefixName))
	if err := store.LoadEnvFile(filepath.Join(filepath.Dir(pc.ConfigFile), EnvFile)); err != nil {
		return nil, err
	}
	config.SetDefaults(store)
	if err := store.Load(); err != nil {
		return nil, err
	}

	for key, flag := range map[string]string{
		config.LogLevel:    flagLogging,
		config.WebLogging:  flagWebLogging,
		config.AutoBrowser: flagBrowser,
		config.HTTPSPort:   flagHTTPS,
	} {
		if err := store.BindPFlag(key, pc.Flag(flag)); err != nil {
			return nil, err
		}
	}
	if pc.Given(flagHTTPS) {
		store.Set(config.EnableHTTPS, true)
	}
	if pc.Server != "" {
		host, port, err := endpoint.SplitHost(pc.Server)
		if err != nil {
			return nil, err
		}
		store.Set(config.Host, host)
		if port > 0 {
			store.Set(config.Port, port)
		}
	}
	return store, nil
}
