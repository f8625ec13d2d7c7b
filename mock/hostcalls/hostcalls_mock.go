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

package hostcalls

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/contiv/topobuilder/plugins/topology/wiring"
)

// HostNs is the namespace path under which the mock stores devices of the
// host namespace.
const HostNs = ""

// MockHostCalls simulates network devices and namespaces of a host.
// Devices are identified by namespace path and name, so the same name may
// exist in several namespaces. A namespace path that is a symbolic link,
// like an "ip netns" entry, denotes the namespace it points to. Veth ends
// are linked: deleting one end deletes the other.
type MockHostCalls struct {
	sync.Mutex
	namespaces map[string]bool
	devices    map[devKey]*Device
	failures   map[failKey]error

	// DelCalls counts LinkDel invocations.
	DelCalls int
}

type devKey struct {
	ns   string
	name string
}

type failKey struct {
	op     string
	device string
}

// Device is a simulated network device.
type Device struct {
	Name  string
	Ns    string
	Up    bool
	Addrs []string
	peer  *Device
}

// Peer returns the other end of the veth.
func (d *Device) Peer() *Device {
	return d.peer
}

// NewMockHostCalls returns a mock with only the host namespace.
func NewMockHostCalls() *MockHostCalls {
	return &MockHostCalls{
		namespaces: map[string]bool{HostNs: true},
		devices:    make(map[devKey]*Device),
		failures:   make(map[failKey]error),
	}
}

// AddNamespace simulates a namespace reachable at nsPath.
func (m *MockHostCalls) AddNamespace(nsPath string) {
	m.Lock()
	defer m.Unlock()
	m.namespaces[nsPath] = true
}

// DelNamespace simulates destruction of a namespace; devices inside are
// removed together with their peers.
func (m *MockHostCalls) DelNamespace(nsPath string) {
	m.Lock()
	defer m.Unlock()
	for key, dev := range m.devices {
		if key.ns == nsPath {
			m.remove(dev)
		}
	}
	delete(m.namespaces, nsPath)
}

// FailOn makes operation op ("AddVethPair", "LinkSetNs", "LinkSetUpWithAddress",
// "LinkDel") return err for the given device.
func (m *MockHostCalls) FailOn(op, device string, err error) {
	m.Lock()
	defer m.Unlock()
	m.failures[failKey{op: op, device: device}] = err
}

// Device returns the device of the given name in nsPath.
func (m *MockHostCalls) Device(nsPath, name string) (*Device, bool) {
	m.Lock()
	defer m.Unlock()
	nsPath = m.resolve(nsPath)
	dev, found := m.devices[devKey{ns: nsPath, name: name}]
	return dev, found
}

// DeviceCount returns the number of devices across all namespaces.
func (m *MockHostCalls) DeviceCount() int {
	m.Lock()
	defer m.Unlock()
	return len(m.devices)
}

// AddVethPair simulates "ip link add <name> type veth peer name <peerName>".
func (m *MockHostCalls) AddVethPair(name, peerName string) error {
	m.Lock()
	defer m.Unlock()
	if err := m.failure("AddVethPair", name); err != nil {
		return err
	}
	for _, ifName := range []string{name, peerName} {
		if _, exists := m.devices[devKey{ns: HostNs, name: ifName}]; exists {
			return fmt.Errorf("%s: %w", ifName, wiring.ErrDeviceConflict)
		}
	}
	dev := &Device{Name: name, Ns: HostNs, Up: true}
	peer := &Device{Name: peerName, Ns: HostNs, Up: true, peer: dev}
	dev.peer = peer
	m.devices[devKey{ns: HostNs, name: name}] = dev
	m.devices[devKey{ns: HostNs, name: peerName}] = peer
	return nil
}

// LinkExists reports whether the device exists in nsPath.
func (m *MockHostCalls) LinkExists(nsPath, name string) (bool, error) {
	m.Lock()
	defer m.Unlock()
	nsPath = m.resolve(nsPath)
	if !m.namespaces[nsPath] {
		return false, fmt.Errorf("failed to open namespace %s", nsPath)
	}
	_, exists := m.devices[devKey{ns: nsPath, name: name}]
	return exists, nil
}

// LinkSetNs moves a device from the host namespace into nsPath.
func (m *MockHostCalls) LinkSetNs(name, nsPath string) error {
	m.Lock()
	defer m.Unlock()
	nsPath = m.resolve(nsPath)
	if err := m.failure("LinkSetNs", name); err != nil {
		return err
	}
	dev, exists := m.devices[devKey{ns: HostNs, name: name}]
	if !exists {
		return fmt.Errorf("%s: %w", name, wiring.ErrDeviceNotFound)
	}
	if !m.namespaces[nsPath] {
		return fmt.Errorf("failed to open namespace %s", nsPath)
	}
	if _, taken := m.devices[devKey{ns: nsPath, name: name}]; taken {
		return fmt.Errorf("%s: file exists", name)
	}
	delete(m.devices, devKey{ns: HostNs, name: name})
	// moving a device takes it down
	dev.Ns = nsPath
	dev.Up = false
	m.devices[devKey{ns: nsPath, name: name}] = dev
	return nil
}

// LinkSetUpWithAddress sets the device up and adds addr unless present.
func (m *MockHostCalls) LinkSetUpWithAddress(nsPath, name, addr string) error {
	m.Lock()
	defer m.Unlock()
	nsPath = m.resolve(nsPath)
	if err := m.failure("LinkSetUpWithAddress", name); err != nil {
		return err
	}
	if !m.namespaces[nsPath] {
		return fmt.Errorf("failed to open namespace %s", nsPath)
	}
	dev, exists := m.devices[devKey{ns: nsPath, name: name}]
	if !exists {
		return fmt.Errorf("%s: %w", name, wiring.ErrDeviceNotFound)
	}
	dev.Up = true
	for _, existing := range dev.Addrs {
		if existing == addr {
			return nil
		}
	}
	dev.Addrs = append(dev.Addrs, addr)
	return nil
}

// LinkDel removes a device together with its peer.
func (m *MockHostCalls) LinkDel(nsPath, name string) error {
	m.Lock()
	defer m.Unlock()
	nsPath = m.resolve(nsPath)
	m.DelCalls++
	if err := m.failure("LinkDel", name); err != nil {
		return err
	}
	if !m.namespaces[nsPath] {
		return fmt.Errorf("failed to open namespace %s", nsPath)
	}
	dev, exists := m.devices[devKey{ns: nsPath, name: name}]
	if !exists {
		return fmt.Errorf("%s: %w", name, wiring.ErrDeviceNotFound)
	}
	m.remove(dev)
	return nil
}

// LinkList lists device names in nsPath.
func (m *MockHostCalls) LinkList(nsPath string) ([]string, error) {
	m.Lock()
	defer m.Unlock()
	nsPath = m.resolve(nsPath)
	if !m.namespaces[nsPath] {
		return nil, fmt.Errorf("failed to open namespace %s", nsPath)
	}
	var names []string
	for key := range m.devices {
		if key.ns == nsPath {
			names = append(names, key.name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (m *MockHostCalls) remove(dev *Device) {
	delete(m.devices, devKey{ns: dev.Ns, name: dev.Name})
	if dev.peer != nil {
		delete(m.devices, devKey{ns: dev.peer.Ns, name: dev.peer.Name})
	}
}

// resolve follows a symbolic link to the namespace it denotes. Paths of
// simulated namespaces are taken as they are.
func (m *MockHostCalls) resolve(nsPath string) string {
	if m.namespaces[nsPath] {
		return nsPath
	}
	if target, err := os.Readlink(nsPath); err == nil {
		return target
	}
	return nsPath
}

func (m *MockHostCalls) failure(op, device string) error {
	return m.failures[failKey{op: op, device: device}]
}
