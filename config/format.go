// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: config/format.go
// Summary: JSON, YAML and TOML encodings for config files.

package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Format is an on-disk config encoding.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
	FormatTOML
)

func (f Format) String() string {
	switch f {
	case FormatYAML:
		return "yaml"
	case FormatTOML:
		return "toml"
	default:
		return "json"
	}
}

// formatFor picks the encoding from the file extension; unknown extensions
// are treated as JSON.
func formatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	default:
		return FormatJSON
	}
}

func decode(f Format, data []byte) (Config, error) {
	var cfg Config
	switch f {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("yaml: %w", err)
		}
	case FormatTOML:
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return nil, fmt.Errorf("toml: %w", err)
		}
	default:
		if len(bytes.TrimSpace(data)) == 0 {
			return make(Config), nil
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("json: %w", err)
		}
	}
	if cfg == nil {
		cfg = make(Config)
	}
	return cfg, nil
}

func encode(f Format, cfg Config) ([]byte, error) {
	switch f {
	case FormatYAML:
		return yaml.Marshal(map[string]interface{}(cfg))
	case FormatTOML:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(map[string]interface{}(cfg)); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return json.MarshalIndent(cfg, "", "  ")
	}
}
