package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml"
	"gopkg.in/yaml.v2"
)

// DefaultFile is the config file name used when only a directory is given.
const DefaultFile = "sabnzbd.yaml"

// ResolvePath derives the config file path from a partial path.
// A directory gets DefaultFile appended. An existing file is used as is.
// A name which does not exist is taken as a file name only if it contains a
// dot which is not its first character, otherwise it is a directory.
func ResolvePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	abs = filepath.Clean(abs)
	if fi, err := os.Stat(abs); err == nil {
		if fi.IsDir() {
			return filepath.Join(abs, DefaultFile), nil
		}
		return abs, nil
	}
	if strings.IndexByte(filepath.Base(abs), '.') < 1 {
		return filepath.Join(abs, DefaultFile), nil
	}
	return abs, nil
}

func formatOf(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".toml":
		return "toml"
	case ".json":
		return "json"
	default:
		return "yaml"
	}
}

func decodeFile(format string, data []byte) (map[string]interface{}, error) {
	c := make(map[string]interface{})
	switch format {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &c); err != nil {
			return nil, ConfigParseError{err}
		}
	case "json":
		clean := append([]byte(nil), data...)
		filterComments(clean)
		if err := json.Unmarshal(clean, &c); err != nil {
			if syntax, ok := err.(*json.SyntaxError); ok {
				err = fmtSyntaxError(clean, syntax)
			}
			return nil, ConfigParseError{err}
		}
	case "toml":
		tree, err := toml.LoadBytes(data)
		if err != nil {
			return nil, ConfigParseError{err}
		}
		c = tree.ToMap()
	default:
		return nil, ConfigParseError{fmt.Errorf("Unknown format: %s", format)}
	}
	return deepCopyMap(c), nil
}

func encodeFile(format string, c map[string]interface{}) ([]byte, error) {
	switch format {
	case "yaml", "yml":
		b, err := yaml.Marshal(c)
		if err != nil {
			return nil, ConfigMarshalError{err}
		}
		return b, nil
	case "json":
		b, err := json.MarshalIndent(c, "", "  ")
		if err != nil {
			return nil, ConfigMarshalError{err}
		}
		return append(b, '\n'), nil
	case "toml":
		tree, err := toml.TreeFromMap(c)
		if err != nil {
			return nil, ConfigMarshalError{err}
		}
		s, err := tree.ToTomlString()
		if err != nil {
			return nil, ConfigMarshalError{err}
		}
		return []byte(s), nil
	default:
		return nil, ConfigMarshalError{fmt.Errorf("Unknown configType: '%s'", format)}
	}
}

// SyntaxError is a JSON syntax error with the offending line quoted.
type SyntaxError struct {
	Cause error
	help  string
}

func (e *SyntaxError) Error() string { return e.help }

func (e *SyntaxError) Unwrap() error { return e.Cause }

// filterComments blanks out // comments outside of strings, keeping byte
// offsets so syntax errors point at the right line.
func filterComments(data []byte) {
	var inString, inComment bool
	for i := 1; i < len(data); i++ {
		c := data[i]
		if !inComment && c == '"' && data[i-1] != '\\' {
			inString = !inString
		}
		if inString {
			continue
		}
		switch {
		case inComment && c == '\n':
			inComment = false
		case c == '/' && data[i-1] == '/':
			inComment = true
			data[i] = ' '
			data[i-1] = ' '
		case inComment:
			data[i] = ' '
		}
	}
}

func fmtSyntaxError(js []byte, syntax *json.SyntaxError) error {
	start := bytes.LastIndex(js[:syntax.Offset], []byte{'\n'}) + 1
	line := bytes.Count(js[:start], []byte{'\n'}) + 1
	help := string(js[start:syntax.Offset]) + "<---"
	return &SyntaxError{
		Cause: syntax,
		help: fmt.Sprintf("Parse error: %s (byte=%d line=%d): %s",
			syntax.Error(), syntax.Offset, line, help),
	}
}
