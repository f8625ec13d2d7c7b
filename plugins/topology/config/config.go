// Copyright (c) 2018 Cisco and/or its affiliates.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at:
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"io/ioutil"

	"github.com/ghodss/yaml"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/contiv/topobuilder/pkg/netnsreg"
	"github.com/contiv/topobuilder/plugins/nodemanager"
	"github.com/contiv/topobuilder/plugins/topology/wiring"
)

// DefaultLogFile is written in the working directory unless configured.
const DefaultLogFile = "topo_creator.log"

// Config represents configuration of the topology builder. It can be
// loaded from a YAML file passed with "--config"; command line flags
// override the loaded values.
type Config struct {
	LogFile        string                `json:"logFile"`
	LogLevel       string                `json:"logLevel" validate:"oneof=debug info warn error"`
	NetnsDir       string                `json:"netnsDir"`
	ConflictPolicy wiring.ConflictPolicy `json:"conflictPolicy" validate:"oneof=reapply fail"`
	MetricsFile    string                `json:"metricsFile"` // empty disables the export
	BackupDir      string                `json:"backupDir"`
	Node           nodemanager.Config    `json:"node"`
}

// ApplyDefaults stores default values to undefined configuration fields.
func (cfg *Config) ApplyDefaults() {
	if cfg.LogFile == "" {
		cfg.LogFile = DefaultLogFile
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.NetnsDir == "" {
		cfg.NetnsDir = netnsreg.DefaultDir
	}
	if cfg.ConflictPolicy == "" {
		cfg.ConflictPolicy = wiring.ConflictReapply
	}
	if cfg.BackupDir == "" {
		cfg.BackupDir = "."
	}
	cfg.Node.ApplyDefaults()
}

// Validate checks values that have no usable default.
func (cfg *Config) Validate() error {
	if err := validator.New().Struct(cfg); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}
	return nil
}

// Default returns configuration with all defaults applied.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// Load reads configuration from a YAML file. Empty path returns defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	cfg := &Config{}
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read configuration file %s", path)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to parse configuration file %s", path)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
