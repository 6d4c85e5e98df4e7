package config

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/pflag"
)

// FlagValue is the part of a command line flag the Store needs.
type FlagValue interface {
	ExplicitlyGiven() bool
	Name() string
	ValueString() string
	ValueType() string
}

// pflagValue is a wrapper aroung *pflag.flag
// that implements FlagValue
type pflagValue struct {
	flag *pflag.Flag
}

func (p pflagValue) ExplicitlyGiven() bool { return p.flag.Changed }
func (p pflagValue) Name() string          { return p.flag.Name }
func (p pflagValue) ValueString() string   { return p.flag.Value.String() }
func (p pflagValue) ValueType() string     { return p.flag.Value.Type() }

// BindPFlag binds key to a pflag. The flag only counts when it was given on
// the command line, and then it is persisted by the next Save.
//
//	flags.IntP("logging", "l", 0, "Set logging level")
//	store.BindPFlag("logging.log_level", flags.Lookup("logging"))
func (s *Store) BindPFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return fmt.Errorf("flag for %q is nil", key)
	}
	return s.BindFlagValue(key, pflagValue{flag})
}

// BindFlagValue binds a specific key to a FlagValue.
func (s *Store) BindFlagValue(key string, flag FlagValue) error {
	if flag == nil {
		return fmt.Errorf("flag for %q is nil", key)
	}
	s.mu.Lock()
	s.pflags[strings.ToLower(key)] = flag
	s.cache = nil
	if flag.ExplicitlyGiven() {
		s.dirty = true
	}
	s.mu.Unlock()
	return nil
}

func (s *Store) flagBindings2configMap() map[string]interface{} {
	result := make(map[string]interface{})
	for key, flag := range s.pflags {
		if !flag.ExplicitlyGiven() {
			continue
		}
		var val interface{}
		switch flag.ValueType() {
		case "int", "int8", "int16", "int32", "int64":
			val = cast.ToInt(flag.ValueString())
		case "bool":
			val = cast.ToBool(flag.ValueString())
		case "stringSlice":
			list := strings.TrimSuffix(strings.TrimPrefix(flag.ValueString(), "["), "]")
			val = strings.Split(list, ",")
		default:
			val = flag.ValueString()
		}
		setKeyInMap(result, splitKey(key), val)
	}
	return result
}
