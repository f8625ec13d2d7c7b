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
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsouza/go-dockerclient"
	"github.com/ligato/cn-infra/logging"
	"github.com/pkg/errors"

	"github.com/contiv/topobuilder/plugins/topology/model"
)

// backupFilePrefix is prepended to the node name to get the backup file name.
const backupFilePrefix = "backup_"

var _ API = (*NodeManager)(nil)

// NodeManager runs topology nodes as Docker containers. A node is
// a container named after the node; its network namespace is the
// namespace of the container's main process.
type NodeManager struct {
	Deps
	dockerClient DockerClient
}

// Deps lists dependencies of NodeManager.
type Deps struct {
	Log    logging.Logger
	Config *Config

	// DockerClient is used instead of connecting to the Docker server when set.
	DockerClient DockerClient
}

// DockerClient defines API of a Docker client needed by NodeManager.
// The interface allows to inject mock Docker client in the unit tests.
type DockerClient interface {
	// Ping pings the docker server.
	Ping() error
	// InspectContainer returns information about a container by its ID or name.
	InspectContainer(id string) (*docker.Container, error)
	// CreateContainer creates a new container.
	CreateContainer(opts docker.CreateContainerOptions) (*docker.Container, error)
	// StartContainer starts a created container.
	StartContainer(id string, hostConfig *docker.HostConfig) error
	// StopContainer stops a container, killing it after timeout seconds.
	StopContainer(id string, timeout uint) error
	// RemoveContainer removes a container.
	RemoveContainer(opts docker.RemoveContainerOptions) error
	// InspectImage returns an image by its name or ID.
	InspectImage(name string) (*docker.Image, error)
	// CreateVolume creates a volume.
	CreateVolume(opts docker.CreateVolumeOptions) (*docker.Volume, error)
	// InspectVolume returns a volume by its name.
	InspectVolume(name string) (*docker.Volume, error)
	// RemoveVolume removes a volume by its name.
	RemoveVolume(name string) error
	// CreateExec sets up an exec instance in a running container.
	CreateExec(opts docker.CreateExecOptions) (*docker.Exec, error)
	// StartExec starts a previously set up exec instance.
	StartExec(id string, opts docker.StartExecOptions) error
	// InspectExec returns low-level information about the exec command.
	InspectExec(id string) (*docker.ExecInspect, error)
}

// NewNodeManager returns NodeManager with default configuration
// applied to deps.Config.
func NewNodeManager(deps Deps) *NodeManager {
	if deps.Config == nil {
		deps.Config = &Config{}
	}
	deps.Config.ApplyDefaults()
	return &NodeManager{Deps: deps}
}

// Init connects to Docker server.
func (nm *NodeManager) Init() (err error) {
	if nm.Config == nil {
		nm.Config = &Config{}
		nm.Config.ApplyDefaults()
	}
	if nm.DockerClient != nil {
		nm.dockerClient = nm.DockerClient
	} else if nm.Config.DockerEndpoint != "" {
		nm.dockerClient, err = docker.NewClient(nm.Config.DockerEndpoint)
	} else {
		nm.dockerClient, err = docker.NewClientFromEnv()
	}
	if err != nil {
		return errors.Wrap(err, "failed to create Docker client")
	}
	if err := nm.dockerClient.Ping(); err != nil {
		return errors.Wrap(err, "Docker server is not reachable")
	}
	return nil
}

// NodePid returns the PID of the main process of a running node. A node
// that exists but has no process yet is polled for a few times.
func (nm *NodeManager) NodePid(node string) (int, error) {
	for attempt := 0; ; attempt++ {
		container, err := nm.dockerClient.InspectContainer(node)
		if err != nil {
			return 0, containerError(node, err)
		}
		if container.State.Running && container.State.Pid != 0 {
			return container.State.Pid, nil
		}
		if attempt+1 >= nm.Config.PidRetries {
			return 0, errors.Wrapf(ErrNodeNotRunning, "node %s", node)
		}
		nm.Log.Debugf("Node %s has no process yet, retrying", node)
		time.Sleep(nm.Config.PidRetryInterval())
	}
}

// Exec runs cmd inside a running node and returns stdout followed by stderr.
func (nm *NodeManager) Exec(node string, cmd []string) (string, error) {
	exec, err := nm.dockerClient.CreateExec(docker.CreateExecOptions{
		Container:    node,
		Cmd:          cmd,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return "", containerError(node, err)
	}

	var stdout, stderr bytes.Buffer
	err = nm.dockerClient.StartExec(exec.ID, docker.StartExecOptions{
		OutputStream: &stdout,
		ErrorStream:  &stderr,
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to run %q on node %s", cmd, node)
	}
	output := stdout.String() + stderr.String()

	inspect, err := nm.dockerClient.InspectExec(exec.ID)
	if err != nil {
		return output, errors.Wrapf(err, "failed to inspect %q on node %s", cmd, node)
	}
	if inspect.ExitCode != 0 {
		return output, &ExecError{Node: node, Cmd: cmd, ExitCode: inspect.ExitCode, Output: output}
	}
	return output, nil
}

// EnsureVolume creates a volume unless it already exists.
func (nm *NodeManager) EnsureVolume(name string) error {
	if _, err := nm.dockerClient.InspectVolume(name); err == nil {
		nm.Log.Debugf("Reusing volume %s", name)
		return nil
	} else if err != docker.ErrNoSuchVolume {
		return errors.Wrapf(err, "failed to inspect volume %s", name)
	}
	if _, err := nm.dockerClient.CreateVolume(docker.CreateVolumeOptions{Name: name}); err != nil {
		return errors.Wrapf(err, "failed to create volume %s", name)
	}
	nm.Log.Debugf("Created volume %s", name)
	return nil
}

// RemoveVolume removes a volume, a missing volume is not an error.
func (nm *NodeManager) RemoveVolume(name string) error {
	err := nm.dockerClient.RemoveVolume(name)
	if err == nil || err == docker.ErrNoSuchVolume {
		return nil
	}
	return errors.Wrapf(err, "failed to remove volume %s", name)
}

// CreateNode creates volumes of the node and starts its container.
func (nm *NodeManager) CreateNode(node *model.Node) error {
	if node == nil || node.Name == "" || node.Image == "" {
		return errors.Wrap(ErrInvalidArgument, "node requires a name and an image")
	}
	if _, err := nm.dockerClient.InspectImage(node.Image); err != nil {
		if err == docker.ErrNoSuchImage {
			return errors.Wrap(ErrImageNotFound, node.Image)
		}
		return errors.Wrapf(err, "failed to inspect image %s", node.Image)
	}
	if _, err := nm.dockerClient.InspectContainer(node.Name); err == nil {
		return errors.Wrap(ErrNodeExists, node.Name)
	}

	var binds []string
	for _, vol := range node.Volumes {
		if err := nm.EnsureVolume(vol.Key); err != nil {
			return err
		}
		binds = append(binds, fmt.Sprintf("%s:%s:%s", vol.Key, vol.Path, model.VolumeModeRW))
	}

	exposed := make(map[docker.Port]struct{})
	for _, port := range nm.Config.ExposedPorts {
		exposed[docker.Port(port)] = struct{}{}
	}
	hostConfig := &docker.HostConfig{
		Binds:           binds,
		Privileged:      true,
		NetworkMode:     nm.Config.NetworkMode,
		PublishAllPorts: true,
	}
	container, err := nm.dockerClient.CreateContainer(docker.CreateContainerOptions{
		Name: node.Name,
		Config: &docker.Config{
			Hostname:     node.Name,
			Image:        node.Image,
			ExposedPorts: exposed,
			Tty:          true,
			OpenStdin:    true,
		},
		HostConfig: hostConfig,
	})
	if err != nil {
		if err == docker.ErrContainerAlreadyExists {
			return errors.Wrap(ErrNodeExists, node.Name)
		}
		return errors.Wrapf(err, "failed to create container for node %s", node.Name)
	}
	if err := nm.dockerClient.StartContainer(container.ID, nil); err != nil {
		return errors.Wrapf(err, "failed to start node %s", node.Name)
	}
	nm.Log.Infof("Started node %s (image %s, container %s)", node.Name, node.Image, container.ID)
	return nil
}

// RemoveNode stops and removes the container of a node.
func (nm *NodeManager) RemoveNode(node string) error {
	container, err := nm.dockerClient.InspectContainer(node)
	if err != nil {
		return containerError(node, err)
	}
	if container.State.Running {
		err := nm.dockerClient.StopContainer(container.ID, nm.Config.StopTimeout)
		if _, notRunning := err.(*docker.ContainerNotRunning); err != nil && !notRunning {
			return errors.Wrapf(err, "failed to stop node %s", node)
		}
	}
	err = nm.dockerClient.RemoveContainer(docker.RemoveContainerOptions{ID: container.ID, Force: true})
	if err != nil {
		return containerError(node, err)
	}
	nm.Log.Infof("Removed node %s", node)
	return nil
}

// CreateNodes creates every node of the topology. Failure of one node does
// not prevent creation of the others; all failures are returned together.
func (nm *NodeManager) CreateNodes(topo *model.Topology) error {
	var errs Errors
	for _, node := range topo.Nodes {
		if err := nm.CreateNode(node); err != nil {
			nm.Log.Errorf("Failed to create node %s: %v", node.Name, err)
			errs = append(errs, &NodeError{Node: node.Name, Op: "create", Err: err})
		}
	}
	return errs.ErrorOrNil()
}

// RemoveNodes removes every node of the topology, and with removeVolumes
// also the volumes it declares. Nodes that do not exist are skipped.
func (nm *NodeManager) RemoveNodes(topo *model.Topology, removeVolumes bool) error {
	var errs Errors
	for _, node := range topo.Nodes {
		err := nm.RemoveNode(node.Name)
		switch {
		case errors.Is(err, ErrNodeNotFound):
			nm.Log.Debugf("Node %s does not exist", node.Name)
		case err != nil:
			nm.Log.Errorf("Failed to remove node %s: %v", node.Name, err)
			errs = append(errs, &NodeError{Node: node.Name, Op: "remove", Err: err})
			continue
		}
		if !removeVolumes {
			continue
		}
		for _, vol := range node.Volumes {
			if err := nm.RemoveVolume(vol.Key); err != nil {
				nm.Log.Errorf("Failed to remove volume %s: %v", vol.Key, err)
				errs = append(errs, &NodeError{Node: node.Name, Op: "remove", Err: err})
			}
		}
	}
	return errs.ErrorOrNil()
}

// Configure enters configuration mode of the node CLI, applies lines and
// commits them in a single session.
func (nm *NodeManager) Configure(node string, lines []string) (string, error) {
	var statements []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		statements = append(statements, line)
	}
	if len(statements) == 0 {
		return "", errors.Wrap(ErrInvalidArgument, "no configuration to apply")
	}
	script := "configure;" + strings.Join(statements, ";") + ";commit"
	nm.Log.Debugf("Configuring node %s: %s", node, script)
	return nm.Exec(node, []string{nm.Config.CLI, "-c", script})
}

// Backup stores the configuration of the node in set format into
// backup_<node>.txt under dir.
func (nm *NodeManager) Backup(node, dir string) (string, error) {
	output, err := nm.Exec(node, []string{nm.Config.CLI, "-c", "show configuration | display set"})
	if err != nil {
		return "", err
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrapf(err, "failed to create backup directory %s", dir)
	}
	path := filepath.Join(dir, backupFilePrefix+node+".txt")
	if err := os.WriteFile(path, []byte(output), 0644); err != nil {
		return "", errors.Wrapf(err, "failed to write backup of %s", node)
	}
	nm.Log.Infof("Configuration of %s saved to %s", node, path)
	return path, nil
}

// containerError translates Docker "no such container" into ErrNodeNotFound.
func containerError(node string, err error) error {
	if _, notFound := err.(*docker.NoSuchContainer); notFound {
		return errors.Wrap(ErrNodeNotFound, node)
	}
	return errors.Wrapf(err, "node %s", node)
}
