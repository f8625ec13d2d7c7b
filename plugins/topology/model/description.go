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

// Description is the declarative topology document as read from YAML/JSON.
//
// Example:
//
//	nodes:
//	  - name: leaf1
//	    image: crpd:latest
//	    link:
//	      - name: spine1
//	        prefix: 192.168.50.1/30
//	    volume:
//	      - name: config
//	        path: /config
type Description struct {
	Nodes []NodeSpec `json:"nodes" validate:"required,dive"`
}

// NodeSpec declares a single node of the topology. Node and interface
// names must not contain KeySeparator.
type NodeSpec struct {
	Name    string          `json:"name" validate:"required,excludes=_"`
	Image   string          `json:"image" validate:"required"`
	Links   []InterfaceSpec `json:"link" validate:"required,dive"`
	Volumes []VolumeSpec    `json:"volume" validate:"required,dive"`
}

// InterfaceSpec declares an interface of a node. Name is the name of the
// peer node the interface is cabled to.
type InterfaceSpec struct {
	Name   string `json:"name" validate:"required,excludes=_"`
	Prefix string `json:"prefix" validate:"required,cidr"`
}

// VolumeSpec declares a persistent volume mounted into a node.
type VolumeSpec struct {
	Name string `json:"name" validate:"required"`
	Path string `json:"path" validate:"required"`
}

// NodeNames returns names of all declared nodes in declaration order.
func (d *Description) NodeNames() []string {
	names := make([]string, 0, len(d.Nodes))
	for _, node := range d.Nodes {
		names = append(names, node.Name)
	}
	return names
}
