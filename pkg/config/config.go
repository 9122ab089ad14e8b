// Copyright 2026 The chrootfs Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads the mount manifest that binds guest path
// prefixes to PAL URI prefixes: the narrow slice needed to construct
// chrootfs.Mount values from a small, self-contained YAML document.
package config

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// MountEntry binds a guest mount point to a PAL URI.
type MountEntry struct {
	Path string `yaml:"path"`
	URI  string `yaml:"uri"`
}

// Manifest is the top-level document.
type Manifest struct {
	Mounts []MountEntry `yaml:"mounts"`
}

// Load parses a manifest from r.
func Load(r io.Reader) (*Manifest, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	for i, entry := range m.Mounts {
		if entry.Path == "" {
			return nil, fmt.Errorf("mount %d: missing path", i)
		}
		if entry.URI == "" {
			return nil, fmt.Errorf("mount %d: missing uri", i)
		}
	}
	return &m, nil
}
