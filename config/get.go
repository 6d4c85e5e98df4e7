package config

import (
	"path/filepath"
	"time"

	"github.com/spf13/cast"
)

// GetString returns the value associated with the key as a string.
func (s *Store) GetString(key string) string {
	return cast.ToString(s.Get(key))
}

// GetBool returns the value associated with the key as a boolean.
func (s *Store) GetBool(key string) bool {
	return cast.ToBool(s.Get(key))
}

// GetInt returns the value associated with the key as an integer.
func (s *Store) GetInt(key string) int {
	return cast.ToInt(s.Get(key))
}

// GetInt64 returns the value associated with the key as an integer.
func (s *Store) GetInt64(key string) int64 {
	return cast.ToInt64(s.Get(key))
}

// GetDuration returns the value associated with the key as a duration.
func (s *Store) GetDuration(key string) time.Duration {
	return cast.ToDuration(s.Get(key))
}

// GetStringSlice returns the value associated with the key as a slice of strings.
func (s *Store) GetStringSlice(key string) []string {
	return cast.ToStringSlice(s.Get(key))
}

// GetStringMap returns the value associated with the key as a map of interfaces.
func (s *Store) GetStringMap(key string) map[string]interface{} {
	return cast.ToStringMap(s.Get(key))
}

// GetPath returns the value associated with the key as a path. Relative
// paths are taken relative to the directory of the config file.
func (s *Store) GetPath(key string) string {
	p := s.GetString(key)
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(filepath.Dir(s.filename), p)
}
