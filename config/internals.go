package config

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"
)

// searchMap walks path through nested maps and returns the value, or nil.
func searchMap(source map[string]interface{}, path []string) interface{} {
	if len(path) == 0 {
		return source
	}
	next, ok := source[path[0]]
	if !ok {
		return nil
	}
	if len(path) == 1 {
		return next
	}
	switch next := next.(type) {
	case map[string]interface{}:
		return searchMap(next, path[1:])
	case map[interface{}]interface{}:
		return searchMap(cast.ToStringMap(next), path[1:])
	default:
		return nil
	}
}

// setKeyInMap sets value at path, creating intermediate maps. A non map
// value in the way is replaced.
func setKeyInMap(m map[string]interface{}, path []string, value interface{}) {
	for _, k := range path[:len(path)-1] {
		sub, ok := m[k].(map[string]interface{})
		if !ok {
			sub = make(map[string]interface{})
			m[k] = sub
		}
		m = sub
	}
	m[path[len(path)-1]] = value
}

// deepCopyMap copies m, lower casing keys and turning the
// map[interface{}]interface{} produced by yaml into map[string]interface{}.
func deepCopyMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[strings.ToLower(k)] = copyValue(v)
	}
	return out
}

func copyValue(v interface{}) interface{} {
	switch v := v.(type) {
	case map[string]interface{}:
		return deepCopyMap(v)
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(v))
		for k, val := range v {
			m[strings.ToLower(fmt.Sprint(k))] = copyValue(val)
		}
		return m
	case []interface{}:
		s := make([]interface{}, len(v))
		for i, e := range v {
			s[i] = copyValue(e)
		}
		return s
	default:
		return v
	}
}

// mergeMaps merges src into tgt. Values in src win, except that two maps
// are merged recursively.
func mergeMaps(tgt, src map[string]interface{}) {
	for k, sv := range src {
		tv, ok := tgt[k]
		if !ok {
			tgt[k] = sv
			continue
		}
		tm, tok := tv.(map[string]interface{})
		sm, sok := sv.(map[string]interface{})
		if tok && sok {
			mergeMaps(tm, sm)
			continue
		}
		tgt[k] = sv
	}
}
