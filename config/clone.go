// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: config/clone.go
// Summary: Clone helpers for config maps.

package config

// Clone returns a deep copy of the config. Nested maps and lists are
// copied so callers can mutate renderer and rule tables freely.
func Clone(cfg Config) Config {
	if cfg == nil {
		return nil
	}
	clone := make(Config, len(cfg))
	for name, v := range cfg {
		clone[name] = deepCopy(v)
	}
	return clone
}

func deepCopy(v interface{}) interface{} {
	switch val := v.(type) {
	case Section:
		out := make(Section, len(val))
		for k, item := range val {
			out[k] = deepCopy(item)
		}
		return out
	case map[string]interface{}:
		out := make(Section, len(val))
		for k, item := range val {
			out[k] = deepCopy(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = deepCopy(item)
		}
		return out
	case []map[string]interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = deepCopy(item)
		}
		return out
	default:
		return v
	}
}
