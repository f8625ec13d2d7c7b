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
	"github.com/contiv/topobuilder/plugins/topology/model"
)

// API is implemented by the wiring orchestrator.
type API interface {
	// Wire establishes every pair in order. A failure of one pair never
	// prevents the following pairs from being attempted.
	Wire(pairs []model.Pair) []*Outcome

	// Unwire removes the veth pair of every pair. Removing an already
	// removed pair is a no-op.
	Unwire(pairs []model.Pair) []*Outcome

	// Status reports where each end of every pair currently lives.
	Status(pairs []model.Pair) []*LinkStatus
}

// NodeRuntime is the subset of the node runtime needed for wiring.
type NodeRuntime interface {
	// NodePid returns the PID of the main process of a running node.
	NodePid(node string) (int, error)
}

// NamespaceRegistry binds node names to network namespaces of node processes.
type NamespaceRegistry interface {
	// Bind points the entry for node to the namespace of pid and returns
	// a path usable to enter the namespace. Existing entries are replaced.
	Bind(node string, pid int) (string, error)

	// ProcNsPath returns the namespace path of a process without binding it.
	ProcNsPath(pid int) string
}

// HostCalls abstracts host networking so that the orchestrator can be
// tested without touching the kernel. An empty nsPath selects the
// namespace of the calling process.
type HostCalls interface {
	// AddVethPair creates a veth pair and sets both ends up. It returns
	// ErrDeviceConflict if either name is taken.
	AddVethPair(name, peerName string) error

	// LinkExists reports whether a device of the given name exists.
	LinkExists(nsPath, name string) (bool, error)

	// LinkSetNs moves a device from the calling namespace into nsPath.
	LinkSetNs(name, nsPath string) error

	// LinkSetUpWithAddress sets a device up and adds the address-with-prefix.
	// An address that is already assigned is not an error.
	LinkSetUpWithAddress(nsPath, name, addr string) error

	// LinkDel removes a device. It returns ErrDeviceNotFound if there is
	// no such device.
	LinkDel(nsPath, name string) error

	// LinkList returns names of all devices.
	LinkList(nsPath string) ([]string, error)
}

// ConflictPolicy selects how an already existing device is handled at
// creation time.
type ConflictPolicy string

const (
	// ConflictReapply records the conflict on the outcome and continues
	// with relocation and addressing of the existing devices.
	ConflictReapply ConflictPolicy = "reapply"

	// ConflictFail fails the pair with ErrDeviceConflict.
	ConflictFail ConflictPolicy = "fail"
)

// Outcome is the result of wiring or unwiring a single pair.
type Outcome struct {
	Pair model.Pair

	// Conflict is set when the devices already existed and the pair was
	// re-applied.
	Conflict bool

	// Removed is set by Unwire when a device was actually deleted.
	Removed bool

	// Err is nil on success.
	Err *WiringError
}

// Succeeded returns true if the pair was handled without an error.
func (o *Outcome) Succeeded() bool {
	return o.Err == nil
}

// Location tells where a device was found.
type Location string

const (
	// InHost means the device is still in the host namespace.
	InHost Location = "host"
	// InNode means the device is inside the namespace of its node.
	InNode Location = "node"
	// Missing means the device was found nowhere.
	Missing Location = "missing"
	// Unknown means the node namespace could not be inspected.
	Unknown Location = "unknown"
)

// EndpointStatus describes the state of one end of a pair.
type EndpointStatus struct {
	Node     string
	Device   string
	Location Location
}

// LinkStatus describes the state of a pair.
type LinkStatus struct {
	Pair  model.Pair
	Local EndpointStatus
	Peer  EndpointStatus
}

// Wired returns true if both ends are inside their node namespaces.
func (s *LinkStatus) Wired() bool {
	return s.Local.Location == InNode && s.Peer.Location == InNode
}
