package log

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Layout writes a formatted event into buf, without trailing newline.
type Layout func(buf *bytes.Buffer, e Event)

// TimeFormat is the timestamp layout used by the standard layouts.
const TimeFormat = "2006-01-02 15:04:05,000"

// LineLayout is the persistent log layout:
//
//	2009-11-10 23:00:00,000::WARNING::[ports] port in use port=8080
func LineLayout(buf *bytes.Buffer, e Event) {
	buf.WriteString(e.Time().Format(TimeFormat))
	buf.WriteString("::")
	buf.WriteString(e.Lvl.String())
	buf.WriteString("::[")
	if e.Name == "" {
		buf.WriteString("sabnzbd")
	} else {
		buf.WriteString(e.Name)
	}
	buf.WriteString("] ")
	buf.WriteString(e.Msg)
	writeKV(buf, e.Data)
}

// GUILayout puts timestamp, level and message on separate lines for the
// warnings page.
func GUILayout(buf *bytes.Buffer, e Event) {
	buf.WriteString(e.Time().Format(TimeFormat))
	buf.WriteByte('\n')
	buf.WriteString(e.Lvl.String())
	buf.WriteByte('\n')
	buf.WriteString(e.Msg)
	writeKV(buf, e.Data)
}

// MessageLayout writes only the message and key/values.
func MessageLayout(buf *bytes.Buffer, e Event) {
	buf.WriteString(e.Msg)
	writeKV(buf, e.Data)
}

func writeKV(buf *bytes.Buffer, data []interface{}) {
	for i := 0; i+1 < len(data); i += 2 {
		buf.WriteByte(' ')
		fmt.Fprint(buf, data[i])
		buf.WriteByte('=')
		switch v := data[i+1].(type) {
		case string:
			if v == "" || strings.ContainsAny(v, " =\"") {
				fmt.Fprintf(buf, "%q", v)
			} else {
				buf.WriteString(v)
			}
		case error:
			fmt.Fprintf(buf, "%q", v.Error())
		case time.Duration:
			buf.WriteString(v.String())
		default:
			fmt.Fprint(buf, v)
		}
	}
}

var bufpool = sync.Pool{New: func() interface{} { return new(bytes.Buffer) }}

type formatter struct {
	out    io.Writer
	layout Layout
}

// NewFormatter returns a Handler writing each event as one line to w.
// Concurrent writes to w are not serialized, wrap w in SyncWriter() if needed.
func NewFormatter(w io.Writer, layout Layout) Handler {
	return &formatter{out: w, layout: layout}
}

func (f *formatter) Log(e Event) error {
	buf := bufpool.Get().(*bytes.Buffer)
	buf.Reset()
	f.layout(buf, e)
	buf.WriteByte('\n')
	_, err := f.out.Write(buf.Bytes())
	bufpool.Put(buf)
	return err
}
