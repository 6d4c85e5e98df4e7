/*
Package sd starts and replaces the sabnzbd process image and tells a
supervising init system about state changes through the sd_notify(3)
interface.

https://www.freedesktop.org/software/systemd/man/daemon.html

Without a NOTIFY_SOCKET in the environment Notify returns ErrSdNotifyNoSocket
and nothing else happens, so callers can notify unconditionally.
*/
package sd
