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
	"fmt"

	"github.com/pkg/errors"
)

// Stage identifies the wiring step that failed.
type Stage string

const (
	StageCreate    Stage = "create"
	StageNamespace Stage = "namespace"
	StageRelocate  Stage = "relocate"
	StageAddress   Stage = "address"
	StageRemove    Stage = "remove"
)

// Stages lists all stages in the order they are executed.
var Stages = []Stage{StageCreate, StageNamespace, StageRelocate, StageAddress, StageRemove}

var (
	// ErrDeviceConflict is returned when a device name is already taken.
	ErrDeviceConflict = errors.New("device already exists")

	// ErrDeviceNotFound is returned by HostCalls for a missing device.
	ErrDeviceNotFound = errors.New("device not found")

	// ErrDeviceCreation classifies failures to create a veth pair.
	ErrDeviceCreation = errors.New("veth pair could not be created")

	// ErrNamespaceResolution classifies failures to find the namespace of
	// a node, typically because the node is not running.
	ErrNamespaceResolution = errors.New("node namespace could not be resolved")

	// ErrRelocation classifies failures to move a device into a node namespace.
	ErrRelocation = errors.New("device could not be moved into node namespace")

	// ErrAddressAssignment classifies failures to bring up or address a device.
	ErrAddressAssignment = errors.New("device could not be addressed")

	// ErrRemoval classifies failures to remove a device.
	ErrRemoval = errors.New("device could not be removed")
)

// WiringError reports a failure of one endpoint of a pair.
type WiringError struct {
	Node   string
	Device string
	Stage  Stage
	Kind   error // one of the Err* classification errors
	Cause  error
}

func (e *WiringError) Error() string {
	return fmt.Sprintf("%s %s on node %s: %v: %v", e.Stage, e.Device, e.Node, e.Kind, e.Cause)
}

// Unwrap makes both the classification and the cause reachable
// through errors.Is and errors.As.
func (e *WiringError) Unwrap() []error {
	return []error{e.Kind, e.Cause}
}

// IsNodeDown reports whether err says that a node does not exist or has
// no running process. Node runtimes mark such errors with a NodeDown
// method; any other runtime error leaves the node state unknown.
func IsNodeDown(err error) bool {
	var down interface{ NodeDown() bool }
	return errors.As(err, &down) && down.NodeDown()
}

func newWiringError(ep endpoint, stage Stage, kind, cause error) *WiringError {
	return &WiringError{
		Node:   ep.node,
		Device: ep.device,
		Stage:  stage,
		Kind:   kind,
		Cause:  cause,
	}
}
