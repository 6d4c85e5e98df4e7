// Package accesslog wraps a http.Handler logging every request in the
// combined log format to a named logger.
package accesslog

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/SunSeosahai/sabnzbd/http/rrwriter"
	"github.com/SunSeosahai/sabnzbd/log"
	"github.com/SunSeosahai/sabnzbd/log/syslog"
)

// Level is the severity access log lines are logged with.
const Level = syslog.LOG_INFO

const timeFormat = "02/Jan/2006:15:04:05 -0700"

// AuditFunction is called after each request has been served. It can be used
// for metrics by inspecting the state of the RecordingResponseWriter.
type AuditFunction func(*http.Request, rrwriter.RecordingResponseWriter)

type logHandler struct {
	handler http.Handler
	logger  *log.Logger
	bufpool sync.Pool
	af      AuditFunction
}

// NewHandler wraps h. If the logger does not log at Level, requests are only
// passed to the AuditFunction.
func NewHandler(h http.Handler, logger *log.Logger, af AuditFunction) http.Handler {
	return &logHandler{
		handler: h,
		logger:  logger,
		af:      af,
		bufpool: sync.Pool{New: func() interface{} { b := make([]byte, 0, 256); return &b }},
	}
}

func (h *logHandler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	logging := h.logger != nil && h.logger.Does(Level)
	if !logging && h.af == nil {
		h.handler.ServeHTTP(w, req)
		return
	}

	recorder := rrwriter.MakeRecorder(w)
	h.handler.ServeHTTP(recorder, req)

	if logging {
		pbuf := h.bufpool.Get().(*[]byte)
		line := buildLogLine((*pbuf)[:0], req, recorder)
		h.logger.Log(Level, string(line))
		*pbuf = line
		h.bufpool.Put(pbuf)
	}
	if h.af != nil {
		h.af(req, recorder)
	}
}

// buildLogLine appends a combined log format line:
//
//	host - user [time] "METHOD uri PROTO" status size "referer" "agent" 12ms
func buildLogLine(buf []byte, req *http.Request, rec rrwriter.RecordingResponseWriter) []byte {
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		host = req.RemoteAddr
	}
	user := "-"
	if req.URL.User != nil {
		if name := req.URL.User.Username(); name != "" {
			user = name
		}
	}
	uri := req.RequestURI
	if uri == "" {
		uri = req.URL.RequestURI()
	}
	// The API key is a credential
	if i := strings.Index(uri, "apikey="); i >= 0 {
		end := strings.IndexByte(uri[i:], '&')
		if end < 0 {
			uri = uri[:i] + "apikey=<hidden>"
		} else {
			uri = uri[:i] + "apikey=<hidden>" + uri[i+end:]
		}
	}
	status := rec.Status()
	if status == 0 {
		status = http.StatusOK
	}

	buf = append(buf, host...)
	buf = append(buf, " - "...)
	buf = append(buf, user...)
	buf = append(buf, " ["...)
	buf = rec.Start().AppendFormat(buf, timeFormat)
	buf = append(buf, `] "`...)
	buf = append(buf, req.Method...)
	buf = append(buf, ' ')
	buf = append(buf, uri...)
	buf = append(buf, ' ')
	buf = append(buf, req.Proto...)
	buf = append(buf, `" `...)
	buf = strconv.AppendInt(buf, int64(status), 10)
	buf = append(buf, ' ')
	buf = strconv.AppendInt(buf, int64(rec.Size()), 10)
	buf = append(buf, ` "`...)
	buf = append(buf, req.Referer()...)
	buf = append(buf, `" "`...)
	buf = append(buf, req.UserAgent()...)
	buf = append(buf, `" `...)
	buf = strconv.AppendInt(buf, int64(time.Since(rec.Start())/time.Millisecond), 10)
	buf = append(buf, "ms"...)
	return buf
}
