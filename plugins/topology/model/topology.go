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

package model

import (
	"fmt"
	"strings"
)

// VolumeModeRW is the only volume mode used for node volumes.
const VolumeModeRW = "rw"

// Node is a resolved topology node.
type Node struct {
	Name       string
	Image      string
	Interfaces []Interface
	Volumes    []Volume
}

// Interface is a resolved interface declaration.
type Interface struct {
	Name   string // declared name
	Key    string // resolved key, unique within the topology
	Prefix string
}

// Volume is a resolved volume declaration.
type Volume struct {
	Name string // declared name
	Key  string // runtime volume name
	Path string
}

// VolumeBinding describes how a runtime volume is mounted into a node.
type VolumeBinding struct {
	Bind string
	Mode string
}

// Topology is the outcome of resolving a Description. It is not mutated
// after resolution.
type Topology struct {
	// Nodes in declaration order.
	Nodes []*Node

	// Links maps resolved interface keys to address-with-prefix.
	Links *LinkAddresses

	// Images maps node names to image references.
	Images map[string]string

	// Volumes maps node names to runtime volume name -> binding.
	Volumes map[string]map[string]VolumeBinding
}

// GetNode returns the node with the given name.
func (t *Topology) GetNode(name string) (*Node, bool) {
	for _, node := range t.Nodes {
		if node.Name == name {
			return node, true
		}
	}
	return nil, false
}

// String returns a multi-line dump of the topology suitable for logs.
func (t *Topology) String() string {
	var sb strings.Builder
	for _, node := range t.Nodes {
		fmt.Fprintf(&sb, "node %s (image %s)\n", node.Name, node.Image)
		for _, intf := range node.Interfaces {
			fmt.Fprintf(&sb, "  link %s -> %s\n", intf.Key, intf.Prefix)
		}
		for _, vol := range node.Volumes {
			fmt.Fprintf(&sb, "  volume %s -> %s:%s\n", vol.Key, vol.Path, VolumeModeRW)
		}
	}
	return sb.String()
}

// Pair is one point-to-point link ready for wiring: two resolved keys
// denoting each other, with the address to assign on each end.
type Pair struct {
	LocalKey  string
	PeerKey   string
	LocalAddr string
	PeerAddr  string
}

// LocalNode returns the node owning the local end.
func (p Pair) LocalNode() string {
	return NodeOf(p.LocalKey)
}

// PeerNode returns the node owning the peer end.
func (p Pair) PeerNode() string {
	return NodeOf(p.PeerKey)
}

// String returns "<local> <-> <peer>".
func (p Pair) String() string {
	return p.LocalKey + " <-> " + p.PeerKey
}
