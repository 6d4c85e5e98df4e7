package log

import (
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
)

// MaybeTtyWriter is a writer which know whether the underlying writer is a TTY
type MaybeTtyWriter interface {
	IsTty() bool
	io.Writer
}

type writerFunc func(b []byte) (n int, err error)

// WriterFunc makes an io.Writer out of a function by calling it on Write()
func WriterFunc(fn func(b []byte) (n int, err error)) io.Writer {
	return writerFunc(fn)
}

func (w writerFunc) Write(b []byte) (n int, err error) {
	return w(b)
}

// syncWriter allows to synchronize writes to an io.Writer and implements MaybeTtyWriter
type syncWriter struct {
	mu    sync.Mutex
	out   io.Writer
	istty bool
}

// SyncWriter encapsulates an io.Writer in a Mutex, so only one Write operation is done
// at a time.
func SyncWriter(w io.Writer) MaybeTtyWriter {
	return &syncWriter{out: w, istty: IsTty(w)}
}

func (s *syncWriter) IsTty() bool {
	return s.istty
}

func (s *syncWriter) Write(b []byte) (n int, err error) {
	s.mu.Lock()
	n, err = s.out.Write(b)
	s.mu.Unlock()
	return
}

// IsTty reports whether w is an *os.File connected to a terminal.
func IsTty(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
