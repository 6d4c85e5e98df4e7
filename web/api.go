package web

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
)

// maxUpload bounds the multipart form kept in memory for addfile.
const maxUpload = 32 << 20

func (e *Engine) keyOK(r *http.Request) bool {
	if e.APIKey == nil {
		return false
	}
	want := e.APIKey()
	got := r.FormValue("apikey")
	return want != "" && subtle.ConstantTimeCompare([]byte(want), []byte(got)) == 1
}

func text(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	fmt.Fprintln(w, msg)
}

func (e *Engine) api(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("mode")
	if mode == "version" {
		text(w, http.StatusOK, e.Version)
		return
	}
	if r.Method == http.MethodPost {
		if err := r.ParseMultipartForm(maxUpload); err != nil && err != http.ErrNotMultipart {
			text(w, http.StatusBadRequest, "error: "+err.Error())
			return
		}
	}
	if mode == "" {
		mode = r.FormValue("mode")
	}
	if !e.keyOK(r) {
		text(w, http.StatusForbidden, "API Key Incorrect")
		return
	}

	switch mode {
	case "addfile":
		e.addFile(w, r)
	case "pause":
		e.Queue.Pause()
		text(w, http.StatusOK, "ok")
	case "resume":
		e.Queue.Resume()
		text(w, http.StatusOK, "ok")
	case "restart":
		e.logger().INFO("Restart requested by API")
		e.RequestRestart()
		text(w, http.StatusOK, "ok")
	case "shutdown":
		e.logger().INFO("Shutdown requested by API")
		if e.OnShutdown != nil {
			e.OnShutdown()
		}
		text(w, http.StatusOK, "ok")
	case "warnings":
		var warnings []string
		if e.Warnings != nil {
			warnings = e.Warnings.Content()
		}
		if warnings == nil {
			warnings = []string{}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string][]string{"warnings": warnings})
	case "clearwarnings":
		if e.Warnings != nil {
			e.Warnings.Clear()
		}
		text(w, http.StatusOK, "ok")
	default:
		text(w, http.StatusBadRequest, "not implemented")
	}
}

func (e *Engine) addFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		text(w, http.StatusMethodNotAllowed, "error: POST required")
		return
	}
	f, hdr, err := r.FormFile("name")
	if err != nil {
		text(w, http.StatusBadRequest, "error: "+err.Error())
		return
	}
	defer f.Close()
	if err := e.Queue.Add(hdr.Filename, f); err != nil {
		e.logger().WARN("Upload refused", "name", hdr.Filename, "err", err)
		text(w, http.StatusInternalServerError, "error: "+err.Error())
		return
	}
	text(w, http.StatusOK, "ok")
}
