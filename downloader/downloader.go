// Package downloader is the part of the download engine the bootstrap talks
// to: the pause state, a graceful halt and intake of local NZB files into the
// incoming directory.
package downloader

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/SunSeosahai/sabnzbd/log"
)

// ErrHalted is returned when adding jobs after HaltGracefully.
var ErrHalted = errors.New("downloader halted")

// Downloader keeps the queue of NZB files waiting in Dir.
type Downloader struct {
	Dir string
	Log *log.Logger

	paused atomic.Bool
	halted atomic.Bool
	mu     sync.Mutex
}

// New creates a Downloader for dir. Start paused if paused is set.
func New(dir string, paused bool) *Downloader {
	d := &Downloader{Dir: dir, Log: log.GetLogger("downloader")}
	d.paused.Store(paused)
	return d
}

// IsPaused reports the live pause state.
func (d *Downloader) IsPaused() bool {
	return d.paused.Load()
}

// Pause stops fetching new articles.
func (d *Downloader) Pause() {
	if !d.paused.Swap(true) {
		d.Log.INFO("Pausing")
	}
}

// Resume starts fetching again unless halted.
func (d *Downloader) Resume() {
	if d.halted.Load() {
		return
	}
	if d.paused.Swap(false) {
		d.Log.INFO("Resuming")
	}
}

// HaltGracefully finishes what is in flight and refuses further work.
func (d *Downloader) HaltGracefully() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.halted.Swap(true) {
		return
	}
	d.paused.Store(true)
	d.Log.INFO("Downloader halted")
}

// Halted reports whether HaltGracefully has been called.
func (d *Downloader) Halted() bool {
	return d.halted.Load()
}

// AddLocal copies the file at path into the queue.
func (d *Downloader) AddLocal(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return d.Add(filepath.Base(path), f)
}

// Add stores an NZB read from r under name in the queue.
func (d *Downloader) Add(name string, r io.Reader) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.halted.Load() {
		return ErrHalted
	}
	name = filepath.Base(filepath.Clean("/" + name))
	if name == "/" || name == "." || strings.HasPrefix(name, ".") {
		return fmt.Errorf("invalid job name %q", name)
	}
	if err := os.MkdirAll(d.Dir, 0700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(d.Dir, ".incoming-*")
	if err != nil {
		return err
	}
	if _, err = io.Copy(tmp, r); err == nil {
		err = tmp.Close()
	} else {
		tmp.Close()
	}
	if err == nil {
		err = os.Rename(tmp.Name(), filepath.Join(d.Dir, name))
	}
	if err != nil {
		os.Remove(tmp.Name())
		return err
	}
	d.Log.INFO("Added job", "name", name)
	return nil
}

// Queue lists the queued job names.
func (d *Downloader) Queue() ([]string, error) {
	entries, err := os.ReadDir(d.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
