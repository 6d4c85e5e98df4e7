package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/subosito/gotenv"
)

// BindEnv binds a key to environment variables.
// With only a key the variable name is the key upper cased, with "." turned
// into "_" and the EnvPrefix prepended. Further arguments are taken verbatim
// as variable names, checked in order.
func (s *Store) BindEnv(input ...string) error {
	if len(input) == 0 {
		return fmt.Errorf("missing key to bind to")
	}
	key := strings.ToLower(input[0])

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(input) == 1 {
		s.env[key] = append(s.env[key], s.envName(key))
	} else {
		s.env[key] = append(s.env[key], input[1:]...)
	}
	s.cache = nil
	return nil
}

func (s *Store) envName(key string) string {
	name := strings.ReplaceAll(key, keyDelim, "_")
	if s.envPrefix != "" {
		name = s.envPrefix + "_" + name
	}
	return strings.ToUpper(name)
}

// LoadEnvFile adds the variables of a dotenv style file to the process
// environment. Variables already set are left alone. A missing file is not
// an error.
func (s *Store) LoadEnvFile(name string) error {
	if _, err := os.Stat(name); os.IsNotExist(err) {
		return nil
	}
	if err := gotenv.Load(name); err != nil {
		return err
	}
	s.mu.Lock()
	s.cache = nil
	s.mu.Unlock()
	return nil
}

func (s *Store) envBindings2configMap() map[string]interface{} {
	result := make(map[string]interface{})
	for key, names := range s.env {
		for _, name := range names {
			if val, ok := os.LookupEnv(name); ok && val != "" {
				setKeyInMap(result, splitKey(key), val)
				break
			}
		}
	}
	return result
}
