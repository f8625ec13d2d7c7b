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

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/contiv/topobuilder/plugins/topology/model"
)

/********************************* Plugin API *********************************/

// API defines methods provided by NodeManager.
type API interface {
	// NodePid returns the PID of the main process of a running node.
	NodePid(node string) (int, error)

	// Exec runs a command inside a running node and returns its combined
	// output. A non-zero exit code is returned as ExecError.
	Exec(node string, cmd []string) (string, error)

	// CreateNodes creates volumes and starts a container for every node
	// of the topology.
	CreateNodes(topo *model.Topology) error

	// RemoveNodes stops and removes containers of all nodes, and with
	// removeVolumes also their volumes.
	RemoveNodes(topo *model.Topology, removeVolumes bool) error

	// Configure pushes configuration lines to a node and commits them.
	Configure(node string, lines []string) (string, error)

	// Backup saves configuration of a node into a file under dir and
	// returns the file path.
	Backup(node, dir string) (string, error)
}

/*********************************** Errors ***********************************/

var (
	// ErrNodeNotFound is returned when no container of the node name exists.
	ErrNodeNotFound error = nodeDownError("node not found")

	// ErrNodeExists is returned when creating a node whose container exists.
	ErrNodeExists = errors.New("node already exists")

	// ErrNodeNotRunning is returned when the node has no running process.
	ErrNodeNotRunning error = nodeDownError("node is not running")

	// ErrImageNotFound is returned when the node image is not loaded.
	ErrImageNotFound = errors.New("image not found, load it first with \"docker load -i <image>\"")

	// ErrInvalidArgument is returned for requests the runtime rejects.
	ErrInvalidArgument = errors.New("invalid argument")
)

// nodeDownError is returned for nodes without a process. Callers outside
// this package recognize it by its NodeDown method.
type nodeDownError string

func (e nodeDownError) Error() string {
	return string(e)
}

// NodeDown reports that the node has no network namespace to work with.
func (e nodeDownError) NodeDown() bool {
	return true
}

// NodeError reports a failure of a single node within a lifecycle operation.
type NodeError struct {
	Node string
	Op   string
	Err  error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("%s node %s: %v", e.Op, e.Node, e.Err)
}

// Unwrap returns the underlying error.
func (e *NodeError) Unwrap() error {
	return e.Err
}

// ExecError is returned when a command executed inside a node exits with
// a non-zero code.
type ExecError struct {
	Node     string
	Cmd      []string
	ExitCode int
	Output   string
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("command %q on node %s exited with code %d: %s", e.Cmd, e.Node, e.ExitCode, e.Output)
}

// Errors collects failures of a lifecycle operation over several nodes.
type Errors []error

func (errs Errors) Error() string {
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Unwrap makes every collected error reachable through errors.Is.
func (errs Errors) Unwrap() []error {
	return errs
}

// ErrorOrNil returns nil for an empty collection.
func (errs Errors) ErrorOrNil() error {
	if len(errs) == 0 {
		return nil
	}
	return errs
}
