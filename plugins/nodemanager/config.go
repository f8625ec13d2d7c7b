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

package nodemanager

import "time"

// Config represents configuration for NodeManager.
type Config struct {
	DockerEndpoint     string   // empty to connect using DOCKER_HOST & co.
	NetworkMode        string   // network the nodes are attached to for management
	ExposedPorts       []string // published to random host ports
	StopTimeout        uint     // seconds to wait for a node to stop before killing it
	PidRetries         int      // attempts to find the PID of a node that is starting
	PidRetryIntervalMs uint32
	CLI                string // configuration shell inside the node image
}

// ApplyDefaults stores default values to undefined configuration fields.
func (cfg *Config) ApplyDefaults() {
	if cfg.NetworkMode == "" {
		cfg.NetworkMode = "bridge"
	}
	// netconf, gRPC and SSH
	if len(cfg.ExposedPorts) == 0 {
		cfg.ExposedPorts = []string{"830/tcp", "40051/tcp", "22/tcp"}
	}
	if cfg.StopTimeout == 0 {
		cfg.StopTimeout = 5
	}
	if cfg.PidRetries == 0 {
		cfg.PidRetries = 5
	}
	if cfg.PidRetryIntervalMs == 0 {
		cfg.PidRetryIntervalMs = 200
	}
	if cfg.CLI == "" {
		cfg.CLI = "cli"
	}
}

// PidRetryInterval returns the pause between two PID lookups.
func (cfg *Config) PidRetryInterval() time.Duration {
	return time.Duration(cfg.PidRetryIntervalMs) * time.Millisecond
}
