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

// Package resolver turns a declarative topology description into the
// resolved topology model. Interface declarations repeating a name on the
// same node get an occurrence index appended to their key, so that the
// key stays unique and matches the key computed for the other end of the
// link.
package resolver

import (
	"github.com/contiv/topobuilder/plugins/topology/model"
)

// Resolve validates the description and resolves it into a Topology.
// It has no side effects.
func Resolve(desc *model.Description) (*model.Topology, error) {
	if err := Validate(desc); err != nil {
		return nil, err
	}

	topo := &model.Topology{
		Links:   model.NewLinkAddresses(),
		Images:  make(map[string]string),
		Volumes: make(map[string]map[string]model.VolumeBinding),
	}

	for _, spec := range desc.Nodes {
		node := &model.Node{
			Name:  spec.Name,
			Image: spec.Image,
		}
		topo.Images[spec.Name] = spec.Image

		// occurrence counters are scoped to a single node
		seen := make(map[string]int)
		for _, intf := range spec.Links {
			key := model.Key(spec.Name, intf.Name, seen[intf.Name])
			seen[intf.Name]++

			if !topo.Links.Add(key, intf.Prefix) {
				return nil, &AmbiguityError{Key: key, Node: spec.Name}
			}
			node.Interfaces = append(node.Interfaces, model.Interface{
				Name:   intf.Name,
				Key:    key,
				Prefix: intf.Prefix,
			})
		}

		volumes := make(map[string]model.VolumeBinding)
		for _, vol := range spec.Volumes {
			key := model.VolumeKey(spec.Name, vol.Name)
			volumes[key] = model.VolumeBinding{Bind: vol.Path, Mode: model.VolumeModeRW}
			node.Volumes = append(node.Volumes, model.Volume{
				Name: vol.Name,
				Key:  key,
				Path: vol.Path,
			})
		}
		topo.Volumes[spec.Name] = volumes
		topo.Nodes = append(topo.Nodes, node)
	}
	return topo, nil
}

// ResolveFile loads and resolves the topology description stored in a file.
func ResolveFile(path string) (*model.Topology, error) {
	desc, err := Load(path)
	if err != nil {
		return nil, err
	}
	return Resolve(desc)
}
