/*
Package log is the process wide logger of sabnzbd.

Loggers generate events with a syslog severity and hand them to a Handler.
Handlers filter, fan out or format events. Every Logger has an atomically
updated level, so checking whether a level is enabled costs a single load:

	l := log.GetLogger("ports")
	if l.Does(syslog.LOG_DEBUG) {
		l.DEBUG("probing", "port", port)
	}

Loggers are named and form a hierarchy separated by "/". The unnamed root
logger is returned by Default(). A named logger without its own Handler sends
its events to the nearest ancestor which has one, and unless its level is set
explicitly it follows the level of its parent. This lets a single Handler tree
installed on the root receive everything, and lets handlers tell categories
apart by Event.Name:

	access := log.GetLogger("http/access")
	access.SetLevel(syslog.LOG_INFO)

	log.Default().SetHandler(log.MultiHandler(
		log.FilterHandler(log.NotNamed("http/access"), fileHandler),
		log.LvlFilterHandler(syslog.LOG_WARN, ring),
	))
*/
package log
