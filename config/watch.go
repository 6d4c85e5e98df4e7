package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"reflect"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the config file when it is changed by someone else and runs
// the OnChange callbacks of keys whose effective value changed. It blocks
// until ctx is done. Reload errors are passed to onError, if not nil, and the
// old values are kept.
func (s *Store) Watch(ctx context.Context, onError func(error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Editors and Save replace the file, so watch the directory.
	dir := filepath.Dir(s.filename)
	if err := watcher.Add(dir); err != nil {
		return err
	}
	target := filepath.Clean(s.filename)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := s.Reload(); err != nil && onError != nil {
				onError(err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if onError != nil {
				onError(err)
			}
		}
	}
}

// Reload re-reads the config file unless it holds what was last loaded or
// saved, and fires callbacks for watched keys which changed.
func (s *Store) Reload() error {
	data, err := os.ReadFile(s.filename)
	if err != nil {
		return err
	}
	s.mu.RLock()
	same := bytes.Equal(data, s.lastContent)
	s.mu.RUnlock()
	if same {
		return nil
	}

	values, err := decodeFile(s.format, data)
	if err != nil {
		return err
	}

	keys := s.watchedKeys()
	s.mu.Lock()
	before := make([]interface{}, len(keys))
	for i, k := range keys {
		before[i] = searchMap(s.config(), splitKey(k))
	}
	s.file = values
	s.lastContent = data
	s.cache = nil
	var changed []string
	for i, k := range keys {
		if !reflect.DeepEqual(before[i], searchMap(s.config(), splitKey(k))) {
			changed = append(changed, k)
		}
	}
	s.mu.Unlock()

	for _, k := range changed {
		s.fire(k)
	}
	return nil
}
