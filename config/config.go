// The layering below is derived from github.com/spf13/viper,
// which comes with the below copyright notice:
//
// Copyright © 2014 Steve Francia <spf@spf13.com>.
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package config is the persistent settings store of sabnzbd.
//
// Values are looked up in layers, each taking precedence over the one below:
//
//	overrides (see Set)
//	flags
//	environment
//	config file
//	defaults (see SetDefault)
//
// Keys are case insensitive and nested with "." so "misc.port" is the
// "port" entry of the "misc" section of the file. Save writes the file,
// flag and override layers back to the config file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
)

// ConfigParseError denotes failing to parse configuration file.
type ConfigParseError struct {
	err error
}

// Error returns the formatted configuration error.
func (pe ConfigParseError) Error() string {
	return fmt.Sprintf("While parsing config: %s", pe.err.Error())
}

func (pe ConfigParseError) Unwrap() error { return pe.err }

// ConfigMarshalError happens when failing to marshal the configuration.
type ConfigMarshalError struct {
	err error
}

// Error returns the formatted configuration error.
func (e ConfigMarshalError) Error() string {
	return fmt.Sprintf("While marshaling config: %s", e.err.Error())
}

func (e ConfigMarshalError) Unwrap() error { return e.err }

const keyDelim = "."

// Store is a prioritized configuration registry backed by one file.
// It is safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	filename  string
	format    string
	envPrefix string

	defaults map[string]interface{}
	file     map[string]interface{}
	env      map[string][]string
	pflags   map[string]FlagValue
	override map[string]interface{}

	cache map[string]interface{}
	dirty bool

	// bytes of the last load or save, to recognize our own writes when watching
	lastContent []byte

	cbmu      sync.Mutex
	callbacks map[string][]func()
}

// Option configures a Store.
type Option interface {
	apply(s *Store)
}

type optionFunc func(s *Store)

func (fn optionFunc) apply(s *Store) {
	fn(s)
}

// EnvPrefix sets the prefix of environment variables bound with BindEnv.
func EnvPrefix(pfx string) Option {
	return optionFunc(func(s *Store) {
		s.envPrefix = pfx
	})
}

// Format forces the file format instead of deriving it from the file extension.
func Format(format string) Option {
	return optionFunc(func(s *Store) {
		s.format = strings.ToLower(format)
	})
}

// New returns a Store for filename. Nothing is read until Load.
func New(filename string, opts ...Option) *Store {
	s := &Store{
		filename:  filename,
		defaults:  make(map[string]interface{}),
		file:      make(map[string]interface{}),
		env:       make(map[string][]string),
		pflags:    make(map[string]FlagValue),
		override:  make(map[string]interface{}),
		callbacks: make(map[string][]func()),
	}
	for _, opt := range opts {
		opt.apply(s)
	}
	if s.format == "" {
		s.format = formatOf(filename)
	}
	return s
}

// Filename returns the config file path.
func (s *Store) Filename() string {
	return s.filename
}

// Load reads the config file. A missing file is not an error, it gives an
// empty file layer which the first Save creates.
func (s *Store) Load() error {
	data, err := os.ReadFile(s.filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	values, err := decodeFile(s.format, data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.file = values
	s.lastContent = data
	s.cache = nil
	s.mu.Unlock()
	return nil
}

// SetDefault sets the default value for this key.
func (s *Store) SetDefault(key string, value interface{}) {
	s.mu.Lock()
	setKeyInMap(s.defaults, splitKey(key), value)
	s.cache = nil
	s.mu.Unlock()
}

// Set sets the value for the key in the override layer and marks the store
// dirty. Callbacks registered for key run when the effective value changed.
func (s *Store) Set(key string, value interface{}) {
	key = strings.ToLower(key)
	s.mu.Lock()
	old := searchMap(s.config(), splitKey(key))
	setKeyInMap(s.override, splitKey(key), value)
	s.cache = nil
	changed := !reflect.DeepEqual(old, searchMap(s.config(), splitKey(key)))
	if changed {
		s.dirty = true
	}
	s.mu.Unlock()

	if changed {
		s.fire(key)
	}
}

// Get returns the effective value of key or nil.
func (s *Store) Get(key string) interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return searchMap(s.config(), splitKey(key))
}

// IsSet reports whether any layer holds a value for key.
func (s *Store) IsSet(key string) bool {
	return s.Get(key) != nil
}

// InConfig reports whether the config file holds key.
func (s *Store) InConfig(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return searchMap(s.file, splitKey(key)) != nil
}

// Dirty reports whether there are unsaved changes.
func (s *Store) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// OnChange registers fn to run after the effective value of key changed,
// by Set or by a reload of the file. fn runs on the changing goroutine.
func (s *Store) OnChange(key string, fn func()) {
	key = strings.ToLower(key)
	s.cbmu.Lock()
	s.callbacks[key] = append(s.callbacks[key], fn)
	s.cbmu.Unlock()
}

func (s *Store) fire(key string) {
	s.cbmu.Lock()
	fns := append([]func(){}, s.callbacks[key]...)
	s.cbmu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (s *Store) watchedKeys() []string {
	s.cbmu.Lock()
	defer s.cbmu.Unlock()
	keys := make([]string, 0, len(s.callbacks))
	for k := range s.callbacks {
		keys = append(keys, k)
	}
	return keys
}

// Save writes the file, flag and override layers to the config file.
// Unless force is given nothing is written when there are no changes.
func (s *Store) Save(force bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty && !force {
		return nil
	}

	persisted := deepCopyMap(s.file)
	mergeMaps(persisted, s.flagBindings2configMap())
	mergeMaps(persisted, deepCopyMap(s.override))

	data, err := encodeFile(s.format, persisted)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(s.filename, data, 0o600); err != nil {
		return err
	}
	s.lastContent = data
	s.dirty = false
	return nil
}

// Config returns the merged configuration. Must not be modified.
func (s *Store) Config() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config()
}

// must be called with s.mu held for writing
func (s *Store) config() map[string]interface{} {
	if s.cache == nil {
		s.cache = s.mergeConfigs()
	}
	return s.cache
}

func (s *Store) mergeConfigs() (consolidated map[string]interface{}) {
	// merge in priority order - lowest first.
	consolidated = deepCopyMap(s.defaults)
	mergeMaps(consolidated, deepCopyMap(s.file))
	mergeMaps(consolidated, s.envBindings2configMap())
	mergeMaps(consolidated, s.flagBindings2configMap())
	mergeMaps(consolidated, deepCopyMap(s.override))
	return
}

func splitKey(key string) []string {
	return strings.Split(strings.ToLower(key), keyDelim)
}

func writeFileAtomic(name string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(name)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(name)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), name)
}
