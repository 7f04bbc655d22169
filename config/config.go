// Copyright 2024 The ftlsim Authors.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

// Package config loads named SSD geometry/timing presets from YAML. It
// deserializes straight into ftlsim.Input using gopkg.in/yaml.v2.
package config

import (
	"fmt"
	"os"

	ftlsim "github.com/dswarbrick/ftlsim"
	yaml "gopkg.in/yaml.v2"
)

// Profile is one named SSD preset: a capacity and partition count plus
// the Input geometry/timing block NewParams consumes.
type Profile struct {
	Name          string       `yaml:"name"`
	CapacityBytes uint64       `yaml:"capacity_bytes"`
	Partitions    uint32       `yaml:"partitions"`
	Input         ftlsim.Input `yaml:"geometry"`
}

// Load reads a YAML file containing a single Profile.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return &p, nil
}

// LoadAll reads a YAML file containing a list of Profiles, e.g. a
// fleet-wide catalogue of simulated drive models.
func LoadAll(path string) ([]Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var profiles []Profile
	if err := yaml.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return profiles, nil
}

// Conventional returns the built-in conventional-FTL profile, used when
// no -profile flag is given.
func Conventional() Profile {
	return Profile{
		Name:          "conventional-default",
		CapacityBytes: 256 << 30,
		Partitions:    1,
		Input:         ftlsim.DefaultInput(),
	}
}

// Hybrid returns the built-in hybrid SLC/QLC profile.
func Hybrid() Profile {
	return Profile{
		Name:          "hybrid-default",
		CapacityBytes: 256 << 30,
		Partitions:    1,
		Input:         ftlsim.DefaultHybridInput(),
	}
}
