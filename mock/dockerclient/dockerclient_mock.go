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

package dockerclient

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/fsouza/go-dockerclient"
)

// ExecHandler simulates execution of a command inside a container.
// It returns the output and the exit code.
type ExecHandler func(container string, cmd []string) (output string, exitCode int)

// MockDockerClient is a mock for Docker client.
type MockDockerClient struct {
	sync.Mutex
	connected bool
	nextPid   int
	nextID    int

	images     map[string]bool
	volumes    map[string]bool
	containers map[string]*docker.Container // by name
	execs      map[string]*execInstance

	execHandler ExecHandler

	// Execs records commands executed in containers, in order.
	Execs []ExecCall
}

// ExecCall is a recorded exec request.
type ExecCall struct {
	Container string
	Cmd       []string
}

type execInstance struct {
	container string
	cmd       []string
	exitCode  int
}

// NewMockDockerClient is a constructor for MockDockerClient.
func NewMockDockerClient() *MockDockerClient {
	return &MockDockerClient{
		nextPid:    1000,
		images:     make(map[string]bool),
		volumes:    make(map[string]bool),
		containers: make(map[string]*docker.Container),
		execs:      make(map[string]*execInstance),
		execHandler: func(string, []string) (string, int) {
			return "", 0
		},
	}
}

// Connect puts the mock Docker client into the connected state.
func (m *MockDockerClient) Connect() {
	m.Lock()
	defer m.Unlock()
	m.connected = true
}

// Disconnect puts the mock Docker client into the disconnected state.
func (m *MockDockerClient) Disconnect() {
	m.Lock()
	defer m.Unlock()
	m.connected = false
}

// AddImage simulates a loaded image.
func (m *MockDockerClient) AddImage(image string) {
	m.Lock()
	defer m.Unlock()
	m.images[image] = true
}

// AddVolume simulates an existing volume.
func (m *MockDockerClient) AddVolume(name string) {
	m.Lock()
	defer m.Unlock()
	m.volumes[name] = true
}

// HasVolume returns true if the volume exists.
func (m *MockDockerClient) HasVolume(name string) bool {
	m.Lock()
	defer m.Unlock()
	return m.volumes[name]
}

// AddNode simulates a container of the given name. With pid 0 the
// container exists but is not running.
func (m *MockDockerClient) AddNode(name string, pid int) {
	m.Lock()
	defer m.Unlock()
	m.nextID++
	m.containers[name] = &docker.Container{
		ID:    fmt.Sprintf("c%04d", m.nextID),
		Name:  "/" + name,
		State: docker.State{Running: pid != 0, Pid: pid},
	}
}

// DelNode simulates removal of a container.
func (m *MockDockerClient) DelNode(name string) {
	m.Lock()
	defer m.Unlock()
	delete(m.containers, name)
}

// Container returns the container of the given name.
func (m *MockDockerClient) Container(name string) (*docker.Container, bool) {
	m.Lock()
	defer m.Unlock()
	container, exists := m.containers[name]
	return container, exists
}

// SetExecHandler sets the function simulating commands executed in containers.
func (m *MockDockerClient) SetExecHandler(handler ExecHandler) {
	m.Lock()
	defer m.Unlock()
	m.execHandler = handler
}

// Ping pings the docker server.
func (m *MockDockerClient) Ping() error {
	m.Lock()
	defer m.Unlock()
	return m.ping()
}

func (m *MockDockerClient) ping() error {
	if !m.connected {
		return errors.New("docker client is not connected")
	}
	return nil
}

// lookup finds a container by name or ID.
func (m *MockDockerClient) lookup(id string) (string, *docker.Container, bool) {
	if container, exists := m.containers[id]; exists {
		return id, container, true
	}
	for name, container := range m.containers {
		if container.ID == id {
			return name, container, true
		}
	}
	return "", nil, false
}

// InspectContainer returns information about a container by its ID or name.
func (m *MockDockerClient) InspectContainer(id string) (*docker.Container, error) {
	m.Lock()
	defer m.Unlock()
	if err := m.ping(); err != nil {
		return nil, err
	}
	_, container, exists := m.lookup(id)
	if !exists {
		return nil, &docker.NoSuchContainer{ID: id}
	}
	copied := *container
	return &copied, nil
}

// CreateContainer creates a stopped container.
func (m *MockDockerClient) CreateContainer(opts docker.CreateContainerOptions) (*docker.Container, error) {
	m.Lock()
	defer m.Unlock()
	if err := m.ping(); err != nil {
		return nil, err
	}
	if _, exists := m.containers[opts.Name]; exists {
		return nil, docker.ErrContainerAlreadyExists
	}
	if opts.Config == nil || !m.images[opts.Config.Image] {
		return nil, docker.ErrNoSuchImage
	}
	m.nextID++
	container := &docker.Container{
		ID:         fmt.Sprintf("c%04d", m.nextID),
		Name:       "/" + opts.Name,
		Config:     opts.Config,
		HostConfig: opts.HostConfig,
	}
	m.containers[opts.Name] = container
	return container, nil
}

// StartContainer starts a container and assigns it a PID.
func (m *MockDockerClient) StartContainer(id string, hostConfig *docker.HostConfig) error {
	m.Lock()
	defer m.Unlock()
	if err := m.ping(); err != nil {
		return err
	}
	_, container, exists := m.lookup(id)
	if !exists {
		return &docker.NoSuchContainer{ID: id}
	}
	if container.State.Running {
		return &docker.ContainerAlreadyRunning{ID: id}
	}
	m.nextPid++
	container.State = docker.State{Running: true, Pid: m.nextPid}
	return nil
}

// StopContainer stops a running container.
func (m *MockDockerClient) StopContainer(id string, timeout uint) error {
	m.Lock()
	defer m.Unlock()
	if err := m.ping(); err != nil {
		return err
	}
	_, container, exists := m.lookup(id)
	if !exists {
		return &docker.NoSuchContainer{ID: id}
	}
	if !container.State.Running {
		return &docker.ContainerNotRunning{ID: id}
	}
	container.State = docker.State{}
	return nil
}

// RemoveContainer removes a container.
func (m *MockDockerClient) RemoveContainer(opts docker.RemoveContainerOptions) error {
	m.Lock()
	defer m.Unlock()
	if err := m.ping(); err != nil {
		return err
	}
	name, container, exists := m.lookup(opts.ID)
	if !exists {
		return &docker.NoSuchContainer{ID: opts.ID}
	}
	if container.State.Running && !opts.Force {
		return fmt.Errorf("container %s is running", opts.ID)
	}
	delete(m.containers, name)
	return nil
}

// InspectImage returns an image by its name.
func (m *MockDockerClient) InspectImage(name string) (*docker.Image, error) {
	m.Lock()
	defer m.Unlock()
	if err := m.ping(); err != nil {
		return nil, err
	}
	if !m.images[name] {
		return nil, docker.ErrNoSuchImage
	}
	return &docker.Image{ID: name}, nil
}

// CreateVolume creates a volume.
func (m *MockDockerClient) CreateVolume(opts docker.CreateVolumeOptions) (*docker.Volume, error) {
	m.Lock()
	defer m.Unlock()
	if err := m.ping(); err != nil {
		return nil, err
	}
	m.volumes[opts.Name] = true
	return &docker.Volume{Name: opts.Name}, nil
}

// InspectVolume returns a volume by its name.
func (m *MockDockerClient) InspectVolume(name string) (*docker.Volume, error) {
	m.Lock()
	defer m.Unlock()
	if err := m.ping(); err != nil {
		return nil, err
	}
	if !m.volumes[name] {
		return nil, docker.ErrNoSuchVolume
	}
	return &docker.Volume{Name: name}, nil
}

// RemoveVolume removes a volume.
func (m *MockDockerClient) RemoveVolume(name string) error {
	m.Lock()
	defer m.Unlock()
	if err := m.ping(); err != nil {
		return err
	}
	if !m.volumes[name] {
		return docker.ErrNoSuchVolume
	}
	delete(m.volumes, name)
	return nil
}

// CreateExec sets up an exec instance in a running container.
func (m *MockDockerClient) CreateExec(opts docker.CreateExecOptions) (*docker.Exec, error) {
	m.Lock()
	defer m.Unlock()
	if err := m.ping(); err != nil {
		return nil, err
	}
	name, container, exists := m.lookup(opts.Container)
	if !exists {
		return nil, &docker.NoSuchContainer{ID: opts.Container}
	}
	if !container.State.Running {
		return nil, &docker.ContainerNotRunning{ID: opts.Container}
	}
	m.nextID++
	id := fmt.Sprintf("e%04d", m.nextID)
	m.execs[id] = &execInstance{container: name, cmd: opts.Cmd}
	return &docker.Exec{ID: id}, nil
}

// StartExec runs the exec handler and writes its output to the output stream.
func (m *MockDockerClient) StartExec(id string, opts docker.StartExecOptions) error {
	m.Lock()
	defer m.Unlock()
	if err := m.ping(); err != nil {
		return err
	}
	exec, exists := m.execs[id]
	if !exists {
		return &docker.NoSuchExec{ID: id}
	}
	m.Execs = append(m.Execs, ExecCall{Container: exec.container, Cmd: exec.cmd})
	output, exitCode := m.execHandler(exec.container, exec.cmd)
	exec.exitCode = exitCode
	if opts.OutputStream != nil {
		if _, err := io.WriteString(opts.OutputStream, output); err != nil {
			return err
		}
	}
	return nil
}

// InspectExec returns the exit code of a finished exec instance.
func (m *MockDockerClient) InspectExec(id string) (*docker.ExecInspect, error) {
	m.Lock()
	defer m.Unlock()
	if err := m.ping(); err != nil {
		return nil, err
	}
	exec, exists := m.execs[id]
	if !exists {
		return nil, &docker.NoSuchExec{ID: id}
	}
	return &docker.ExecInspect{ID: id, ExitCode: exec.exitCode}, nil
}
