/*
Package daemon runs the process as a long lived background service.

It provides two things:

   * A PlatformLifecycle, selected once at startup, which knows how the
     platform detaches a service from its terminal (EnterBackground) and how
     it starts a fresh copy of itself (Restart). On Unix-like systems this is
     a double re-exec detaching from the controlling terminal. Windows services
     and OS X application bundles are handed to their native wrappers and
     restart by respawning.
   * The steady-state loop Run(), which polls a set of functions every few
     seconds until a stop flag is raised. Every n'th iteration it runs the
     housekeeping functions.

Run never blocks on anything but its sleep, so a signal handler only has to
set the stop flag.

Internal events are logged through a LoggerFunc set with SetLogger.
*/
package daemon
