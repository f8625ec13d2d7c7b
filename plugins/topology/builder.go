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

// Package topology builds a lab of nodes connected by point-to-point veth
// links from a declarative description.
//
// A run resolves the description into unique interface keys, pairs the
// keys into links and wires every link across the namespaces of the two
// nodes. Resolution failures abort the run before anything is touched on
// the host; wiring failures are reported per link.
package topology

import (
	"github.com/ligato/cn-infra/logging"

	"github.com/contiv/topobuilder/plugins/topology/model"
	"github.com/contiv/topobuilder/plugins/topology/pairing"
	"github.com/contiv/topobuilder/plugins/topology/resolver"
	"github.com/contiv/topobuilder/plugins/topology/wiring"
)

// NodeLifecycle creates and removes the nodes of a topology.
type NodeLifecycle interface {
	CreateNodes(topo *model.Topology) error
	RemoveNodes(topo *model.Topology, removeVolumes bool) error
}

// NamespaceCleaner removes namespace registry entries of removed nodes.
type NamespaceCleaner interface {
	Unbind(name string) error
}

// Builder runs the resolve, pair and wire passes.
type Builder struct {
	Deps
}

// Deps lists dependencies of Builder. Nodes, Namespaces and Metrics are
// optional.
type Deps struct {
	Log        logging.Logger
	Wirer      wiring.API
	Nodes      NodeLifecycle
	Namespaces NamespaceCleaner
	Metrics    *Metrics
}

// NewBuilder returns a builder using the given dependencies.
func NewBuilder(deps Deps) *Builder {
	return &Builder{Deps: deps}
}

// Resolve resolves and pairs the description without side effects.
func (b *Builder) Resolve(desc *model.Description) (*Report, error) {
	topo, err := resolver.Resolve(desc)
	if err != nil {
		return nil, err
	}
	b.Log.Debugf("Resolved topology:\n%s", topo)

	result := pairing.Pair(topo.Links)
	for _, adv := range result.Advisories {
		b.Log.Warnf("%s", adv)
	}
	b.Log.Infof("Resolved %d nodes, %d interfaces, %d pairs",
		len(topo.Nodes), topo.Links.Len(), len(result.Pairs))

	return &Report{
		Topology:   topo,
		Pairs:      result.Pairs,
		Advisories: result.Advisories,
	}, nil
}

// Build wires all pairs of the description. Nodes must be running.
func (b *Builder) Build(desc *model.Description) (*Report, error) {
	report, err := b.Resolve(desc)
	if err != nil {
		return nil, err
	}
	b.wire(report)
	return report, nil
}

// Create starts all nodes of the description and wires them. Pairs of
// nodes that failed to start fail in the namespace stage.
func (b *Builder) Create(desc *model.Description) (*Report, error) {
	report, err := b.Resolve(desc)
	if err != nil {
		return nil, err
	}
	if b.Nodes != nil {
		report.NodeErr = b.Nodes.CreateNodes(report.Topology)
	}
	b.wire(report)
	return report, nil
}

// Teardown removes the links of the description and keeps the nodes.
func (b *Builder) Teardown(desc *model.Description) (*Report, error) {
	report, err := b.Resolve(desc)
	if err != nil {
		return nil, err
	}
	report.Outcomes = b.Wirer.Unwire(report.Pairs)
	b.Log.Infof("Teardown finished: %s", report.Summary())
	if b.Metrics != nil {
		b.Metrics.observeUnwire(report)
	}
	return report, nil
}

// Delete removes all nodes of the description together with their
// namespace registry entries. With removeVolumes the node volumes are
// removed too. Links vanish with the node namespaces.
func (b *Builder) Delete(desc *model.Description, removeVolumes bool) (*Report, error) {
	report, err := b.Resolve(desc)
	if err != nil {
		return nil, err
	}
	if b.Nodes != nil {
		report.NodeErr = b.Nodes.RemoveNodes(report.Topology, removeVolumes)
	}
	if b.Namespaces != nil {
		for _, node := range report.Topology.Nodes {
			if err := b.Namespaces.Unbind(node.Name); err != nil {
				b.Log.Warnf("Failed to remove namespace entry of %s: %v", node.Name, err)
			}
		}
	}
	return report, nil
}

// Status reports the state of every pair of the description.
func (b *Builder) Status(desc *model.Description) (*Report, error) {
	report, err := b.Resolve(desc)
	if err != nil {
		return nil, err
	}
	report.Statuses = b.Wirer.Status(report.Pairs)
	return report, nil
}

func (b *Builder) wire(report *Report) {
	report.Outcomes = b.Wirer.Wire(report.Pairs)
	summary := report.Summary()
	if summary.Failed > 0 {
		b.Log.Warnf("Wiring finished with failures: %s", summary)
	} else {
		b.Log.Infof("Wiring finished: %s", summary)
	}
	if b.Metrics != nil {
		b.Metrics.observe(report)
	}
}
