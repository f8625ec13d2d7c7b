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

package wiring

import (
	"github.com/ligato/cn-infra/logging"
	"github.com/pkg/errors"

	"github.com/contiv/topobuilder/plugins/topology/model"
)

// Orchestrator wires resolved pairs across node namespaces.
//
// For every pair a veth is created in the host namespace with both ends
// named after the resolved keys, then each end is moved into the
// namespace of its node, set up and addressed. Pairs are processed
// sequentially and independently: a failed pair is reported on its
// outcome and the pass continues. Nothing is rolled back.
type Orchestrator struct {
	Deps
	conflictPolicy ConflictPolicy
}

// Deps lists dependencies of the Orchestrator.
type Deps struct {
	Log      logging.Logger
	Runtime  NodeRuntime
	Registry NamespaceRegistry
	Host     HostCalls
}

// endpoint is one end of a pair.
type endpoint struct {
	node   string
	device string
	addr   string
}

// NewOrchestrator returns an orchestrator using the given dependencies.
// Empty policy selects ConflictReapply.
func NewOrchestrator(deps Deps, policy ConflictPolicy) *Orchestrator {
	if policy == "" {
		policy = ConflictReapply
	}
	return &Orchestrator{Deps: deps, conflictPolicy: policy}
}

func endpoints(pair model.Pair) (local, peer endpoint) {
	local = endpoint{node: pair.LocalNode(), device: pair.LocalKey, addr: pair.LocalAddr}
	peer = endpoint{node: pair.PeerNode(), device: pair.PeerKey, addr: pair.PeerAddr}
	return
}

// Wire establishes all pairs in the given order.
func (o *Orchestrator) Wire(pairs []model.Pair) []*Outcome {
	outcomes := make([]*Outcome, 0, len(pairs))
	for _, pair := range pairs {
		outcome := o.wirePair(pair)
		if outcome.Err != nil {
			o.Log.Errorf("Failed to wire %s: %v", pair, outcome.Err)
		} else {
			o.Log.Infof("Wired %s (%s, %s)", pair, pair.LocalAddr, pair.PeerAddr)
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

func (o *Orchestrator) wirePair(pair model.Pair) *Outcome {
	outcome := &Outcome{Pair: pair}
	local, peer := endpoints(pair)

	// the veth must exist before either end can be relocated
	conflict, werr := o.createVeth(local, peer)
	if werr != nil {
		outcome.Err = werr
		return outcome
	}
	outcome.Conflict = conflict

	for _, ep := range []endpoint{local, peer} {
		if werr := o.attach(ep); werr != nil {
			outcome.Err = werr
			return outcome
		}
	}
	return outcome
}

// createVeth creates the veth pair unless one of its ends already exists,
// either in the host namespace or inside the namespace of its node.
func (o *Orchestrator) createVeth(local, peer endpoint) (conflict bool, werr *WiringError) {
	for _, ep := range []endpoint{local, peer} {
		location, werr := o.locate(ep)
		if werr != nil {
			return false, werr
		}
		if location == InHost || location == InNode {
			o.Log.Warnf("Device %s already exists (%s namespace of %s)", ep.device, location, ep.node)
			if o.conflictPolicy == ConflictFail {
				return true, newWiringError(ep, StageCreate, ErrDeviceConflict,
					errors.Errorf("device %s found in %s namespace", ep.device, location))
			}
			conflict = true
		}
	}
	if conflict {
		return true, nil
	}

	o.Log.Debugf("Creating veth pair %s/%s", local.device, peer.device)
	err := o.Host.AddVethPair(local.device, peer.device)
	if err == nil {
		return false, nil
	}
	if errors.Is(err, ErrDeviceConflict) {
		o.Log.Warnf("Veth pair %s/%s already exists", local.device, peer.device)
		if o.conflictPolicy == ConflictFail {
			return true, newWiringError(local, StageCreate, ErrDeviceConflict, err)
		}
		return true, nil
	}
	return false, newWiringError(local, StageCreate, ErrDeviceCreation, err)
}

// locate finds a device in the host namespace or inside the namespace of
// its node. A node namespace that cannot be inspected fails the namespace
// stage, so that nothing is created next to a device that may already be
// in place.
func (o *Orchestrator) locate(ep endpoint) (Location, *WiringError) {
	inHost, err := o.Host.LinkExists("", ep.device)
	if err != nil {
		return Unknown, newWiringError(ep, StageCreate, ErrDeviceCreation, err)
	}
	if inHost {
		return InHost, nil
	}
	pid, err := o.Runtime.NodePid(ep.node)
	if err != nil {
		return Unknown, newWiringError(ep, StageNamespace, ErrNamespaceResolution, err)
	}
	inNode, err := o.Host.LinkExists(o.Registry.ProcNsPath(pid), ep.device)
	if err != nil {
		return Unknown, newWiringError(ep, StageNamespace, ErrNamespaceResolution, err)
	}
	if inNode {
		return InNode, nil
	}
	return Missing, nil
}

// attach moves one end into the namespace of its node and addresses it.
func (o *Orchestrator) attach(ep endpoint) *WiringError {
	pid, err := o.Runtime.NodePid(ep.node)
	if err != nil {
		return newWiringError(ep, StageNamespace, ErrNamespaceResolution, err)
	}
	nsPath, err := o.Registry.Bind(ep.node, pid)
	if err != nil {
		return newWiringError(ep, StageNamespace, ErrNamespaceResolution, err)
	}
	o.Log.Debugf("Namespace of %s (pid %d) bound at %s", ep.node, pid, nsPath)

	inHost, err := o.Host.LinkExists("", ep.device)
	if err != nil {
		return newWiringError(ep, StageRelocate, ErrRelocation, err)
	}
	if inHost {
		if err := o.Host.LinkSetNs(ep.device, nsPath); err != nil {
			return newWiringError(ep, StageRelocate, ErrRelocation, err)
		}
		o.Log.Debugf("Moved %s into namespace of %s", ep.device, ep.node)
	} else {
		inNode, err := o.Host.LinkExists(nsPath, ep.device)
		if err != nil {
			return newWiringError(ep, StageRelocate, ErrRelocation, err)
		}
		if !inNode {
			return newWiringError(ep, StageRelocate, ErrRelocation,
				errors.Wrapf(ErrDeviceNotFound, "%s is neither in host nor in node namespace", ep.device))
		}
		o.Log.Debugf("Device %s already in namespace of %s", ep.device, ep.node)
	}

	if err := o.Host.LinkSetUpWithAddress(nsPath, ep.device, ep.addr); err != nil {
		return newWiringError(ep, StageAddress, ErrAddressAssignment, err)
	}
	return nil
}

// Unwire removes the veth pair of every pair. Only the local end is
// deleted, the kernel removes its peer together with it.
func (o *Orchestrator) Unwire(pairs []model.Pair) []*Outcome {
	outcomes := make([]*Outcome, 0, len(pairs))
	for _, pair := range pairs {
		outcome := o.unwirePair(pair)
		switch {
		case outcome.Err != nil:
			o.Log.Errorf("Failed to unwire %s: %v", pair, outcome.Err)
		case outcome.Removed:
			o.Log.Infof("Removed %s", pair)
		default:
			o.Log.Debugf("Nothing to remove for %s", pair)
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

func (o *Orchestrator) unwirePair(pair model.Pair) *Outcome {
	outcome := &Outcome{Pair: pair}
	local, _ := endpoints(pair)

	nsPath := ""
	inHost, err := o.Host.LinkExists("", local.device)
	if err != nil {
		outcome.Err = newWiringError(local, StageRemove, ErrRemoval, err)
		return outcome
	}
	if !inHost {
		pid, err := o.Runtime.NodePid(local.node)
		if IsNodeDown(err) {
			// without a running node there is no namespace holding the device
			o.Log.Debugf("Node %s not running: %v", local.node, err)
			return outcome
		}
		if err != nil {
			outcome.Err = newWiringError(local, StageRemove, ErrRemoval, err)
			return outcome
		}
		nsPath = o.Registry.ProcNsPath(pid)
	}

	err = o.Host.LinkDel(nsPath, local.device)
	switch {
	case err == nil:
		outcome.Removed = true
	case errors.Is(err, ErrDeviceNotFound):
		// already gone together with its peer
	default:
		outcome.Err = newWiringError(local, StageRemove, ErrRemoval, err)
	}
	return outcome
}

// Status reports the location of both ends of every pair. Devices of each
// node namespace are listed once per call.
func (o *Orchestrator) Status(pairs []model.Pair) []*LinkStatus {
	hostDevices, err := o.Host.LinkList("")
	if err != nil {
		o.Log.Warnf("Failed to list host devices: %v", err)
	}
	host := toSet(hostDevices)
	nodes := make(map[string]map[string]struct{})

	listNode := func(node string) (map[string]struct{}, bool) {
		if devices, listed := nodes[node]; listed {
			return devices, devices != nil
		}
		nodes[node] = nil
		pid, err := o.Runtime.NodePid(node)
		if err != nil {
			o.Log.Debugf("Node %s not running: %v", node, err)
			return nil, false
		}
		names, err := o.Host.LinkList(o.Registry.ProcNsPath(pid))
		if err != nil {
			o.Log.Warnf("Failed to list devices of %s: %v", node, err)
			return nil, false
		}
		nodes[node] = toSet(names)
		return nodes[node], true
	}

	endpointStatus := func(ep endpoint) EndpointStatus {
		status := EndpointStatus{Node: ep.node, Device: ep.device, Location: Missing}
		if _, found := host[ep.device]; found {
			status.Location = InHost
			return status
		}
		devices, ok := listNode(ep.node)
		if !ok {
			status.Location = Unknown
			return status
		}
		if _, found := devices[ep.device]; found {
			status.Location = InNode
		}
		return status
	}

	statuses := make([]*LinkStatus, 0, len(pairs))
	for _, pair := range pairs {
		local, peer := endpoints(pair)
		statuses = append(statuses, &LinkStatus{
			Pair:  pair,
			Local: endpointStatus(local),
			Peer:  endpointStatus(peer),
		})
	}
	return statuses
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}
