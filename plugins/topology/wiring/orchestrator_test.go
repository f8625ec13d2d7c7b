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

package wiring_test

import (
	"fmt"
	"testing"

	"github.com/ligato/cn-infra/logging"
	"github.com/ligato/cn-infra/logging/logrus"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"

	"github.com/contiv/topobuilder/mock/hostcalls"
	"github.com/contiv/topobuilder/plugins/topology/model"
	"github.com/contiv/topobuilder/plugins/topology/wiring"
)

// nodeDown is the error of a node without a process.
type nodeDown string

func (e nodeDown) Error() string { return string(e) }
func (e nodeDown) NodeDown() bool { return true }

// mockRuntime maps running nodes to PIDs. Nodes listed in unreachable
// fail the given number of lookups as if the runtime could not be asked.
type mockRuntime struct {
	pids        map[string]int
	unreachable map[string]int
}

func (r *mockRuntime) NodePid(node string) (int, error) {
	if r.unreachable[node] > 0 {
		r.unreachable[node]--
		return 0, errors.New("cannot connect to the Docker daemon")
	}
	pid, running := r.pids[node]
	if !running {
		return 0, nodeDown(fmt.Sprintf("node %s is not running", node))
	}
	return pid, nil
}

// mockRegistry binds nodes directly to /proc paths.
type mockRegistry struct {
	bound   map[string]int
	failFor map[string]error
}

func (r *mockRegistry) Bind(node string, pid int) (string, error) {
	if err := r.failFor[node]; err != nil {
		return "", err
	}
	r.bound[node] = pid
	return r.ProcNsPath(pid), nil
}

func (r *mockRegistry) ProcNsPath(pid int) string {
	return fmt.Sprintf("/proc/%d/ns/net", pid)
}

type fixture struct {
	host     *hostcalls.MockHostCalls
	runtime  *mockRuntime
	registry *mockRegistry
}

func newFixture(nodes map[string]int) *fixture {
	f := &fixture{
		host:     hostcalls.NewMockHostCalls(),
		runtime:  &mockRuntime{pids: nodes, unreachable: make(map[string]int)},
		registry: &mockRegistry{bound: make(map[string]int), failFor: make(map[string]error)},
	}
	for _, pid := range nodes {
		f.host.AddNamespace(f.registry.ProcNsPath(pid))
	}
	return f
}

func (f *fixture) orchestrator(policy wiring.ConflictPolicy) *wiring.Orchestrator {
	logger := logrus.DefaultLogger()
	logger.SetLevel(logging.DebugLevel)
	return wiring.NewOrchestrator(wiring.Deps{
		Log:      logger,
		Runtime:  f.runtime,
		Registry: f.registry,
		Host:     f.host,
	}, policy)
}

func (f *fixture) nsOf(node string) string {
	return f.registry.ProcNsPath(f.runtime.pids[node])
}

var leafSpinePairs = []model.Pair{
	{LocalKey: "leaf1_spine1", PeerKey: "spine1_leaf1", LocalAddr: "192.168.50.1/30", PeerAddr: "192.168.50.2/30"},
	{LocalKey: "leaf1_spine2", PeerKey: "spine2_leaf1", LocalAddr: "192.168.50.5/30", PeerAddr: "192.168.50.6/30"},
	{LocalKey: "leaf1_spine1_1", PeerKey: "spine1_leaf1_1", LocalAddr: "192.168.51.1/30", PeerAddr: "192.168.51.2/30"},
}

func leafSpineNodes() map[string]int {
	return map[string]int{"leaf1": 101, "spine1": 102, "spine2": 103}
}

func TestWire(t *testing.T) {
	RegisterTestingT(t)
	f := newFixture(leafSpineNodes())

	outcomes := f.orchestrator("").Wire(leafSpinePairs[:1])
	Expect(outcomes).To(HaveLen(1))
	Expect(outcomes[0].Succeeded()).To(BeTrue())
	Expect(outcomes[0].Conflict).To(BeFalse())

	local, found := f.host.Device(f.nsOf("leaf1"), "leaf1_spine1")
	Expect(found).To(BeTrue())
	Expect(local.Up).To(BeTrue())
	Expect(local.Addrs).To(Equal([]string{"192.168.50.1/30"}))
	Expect(local.Peer().Name).To(Equal("spine1_leaf1"))

	peer, found := f.host.Device(f.nsOf("spine1"), "spine1_leaf1")
	Expect(found).To(BeTrue())
	Expect(peer.Up).To(BeTrue())
	Expect(peer.Addrs).To(Equal([]string{"192.168.50.2/30"}))

	// nothing left behind in the host namespace
	hostDevices, err := f.host.LinkList(hostcalls.HostNs)
	Expect(err).ShouldNot(HaveOccurred())
	Expect(hostDevices).To(BeEmpty())

	Expect(f.registry.bound).To(HaveKeyWithValue("leaf1", 101))
	Expect(f.registry.bound).To(HaveKeyWithValue("spine1", 102))
}

func TestWireIdempotent(t *testing.T) {
	RegisterTestingT(t)
	f := newFixture(leafSpineNodes())
	orchestrator := f.orchestrator(wiring.ConflictReapply)

	for _, outcome := range orchestrator.Wire(leafSpinePairs) {
		Expect(outcome.Succeeded()).To(BeTrue())
	}
	devices := f.host.DeviceCount()
	Expect(devices).To(Equal(6))

	outcomes := orchestrator.Wire(leafSpinePairs)
	for _, outcome := range outcomes {
		Expect(outcome.Succeeded()).To(BeTrue())
		Expect(outcome.Conflict).To(BeTrue())
	}
	Expect(f.host.DeviceCount()).To(Equal(devices))

	local, _ := f.host.Device(f.nsOf("leaf1"), "leaf1_spine1")
	Expect(local.Addrs).To(Equal([]string{"192.168.50.1/30"}))
}

func TestWireConflictFail(t *testing.T) {
	RegisterTestingT(t)
	f := newFixture(leafSpineNodes())
	Expect(f.host.AddVethPair("leaf1_spine1", "spine1_leaf1")).To(Succeed())

	outcomes := f.orchestrator(wiring.ConflictFail).Wire(leafSpinePairs[:2])
	Expect(outcomes[0].Succeeded()).To(BeFalse())
	Expect(outcomes[0].Err.Stage).To(Equal(wiring.StageCreate))
	Expect(errors.Is(outcomes[0].Err, wiring.ErrDeviceConflict)).To(BeTrue())

	// the conflicting devices stay in the host namespace untouched
	_, found := f.host.Device(hostcalls.HostNs, "leaf1_spine1")
	Expect(found).To(BeTrue())
	Expect(outcomes[1].Succeeded()).To(BeTrue())
}

func TestWireConflictReapplyInHost(t *testing.T) {
	RegisterTestingT(t)
	f := newFixture(leafSpineNodes())
	// leftover of an interrupted run
	Expect(f.host.AddVethPair("leaf1_spine1", "spine1_leaf1")).To(Succeed())

	outcomes := f.orchestrator(wiring.ConflictReapply).Wire(leafSpinePairs[:1])
	Expect(outcomes[0].Succeeded()).To(BeTrue())
	Expect(outcomes[0].Conflict).To(BeTrue())

	_, found := f.host.Device(f.nsOf("leaf1"), "leaf1_spine1")
	Expect(found).To(BeTrue())
	_, found = f.host.Device(f.nsOf("spine1"), "spine1_leaf1")
	Expect(found).To(BeTrue())
}

func TestWireFailureIsolation(t *testing.T) {
	RegisterTestingT(t)
	f := newFixture(leafSpineNodes())
	f.host.FailOn("LinkSetNs", "spine2_leaf1", errors.New("permission denied"))

	outcomes := f.orchestrator("").Wire(leafSpinePairs)
	Expect(outcomes).To(HaveLen(3))
	Expect(outcomes[0].Succeeded()).To(BeTrue())
	Expect(outcomes[2].Succeeded()).To(BeTrue())

	werr := outcomes[1].Err
	Expect(werr).ToNot(BeNil())
	Expect(werr.Node).To(Equal("spine2"))
	Expect(werr.Device).To(Equal("spine2_leaf1"))
	Expect(werr.Stage).To(Equal(wiring.StageRelocate))
	Expect(errors.Is(werr, wiring.ErrRelocation)).To(BeTrue())

	// no rollback: the local end was already moved
	_, found := f.host.Device(f.nsOf("leaf1"), "leaf1_spine2")
	Expect(found).To(BeTrue())
	_, found = f.host.Device(hostcalls.HostNs, "spine2_leaf1")
	Expect(found).To(BeTrue())
}

func TestWireNodeNotRunning(t *testing.T) {
	RegisterTestingT(t)
	nodes := leafSpineNodes()
	delete(nodes, "spine2")
	f := newFixture(nodes)

	outcomes := f.orchestrator("").Wire(leafSpinePairs)
	Expect(outcomes[0].Succeeded()).To(BeTrue())
	Expect(outcomes[2].Succeeded()).To(BeTrue())

	werr := outcomes[1].Err
	Expect(werr.Node).To(Equal("spine2"))
	Expect(werr.Stage).To(Equal(wiring.StageNamespace))
	Expect(errors.Is(werr, wiring.ErrNamespaceResolution)).To(BeTrue())

	// no veth is left behind for the missing node
	hostDevices, err := f.host.LinkList(hostcalls.HostNs)
	Expect(err).ShouldNot(HaveOccurred())
	Expect(hostDevices).To(BeEmpty())
	Expect(f.host.DeviceCount()).To(Equal(4))
}

func TestRewireRuntimeUnreachable(t *testing.T) {
	RegisterTestingT(t)
	f := newFixture(leafSpineNodes())
	orchestrator := f.orchestrator(wiring.ConflictReapply)

	Expect(orchestrator.Wire(leafSpinePairs[:1])[0].Succeeded()).To(BeTrue())
	Expect(f.host.DeviceCount()).To(Equal(2))

	// the namespace of leaf1 cannot be inspected once
	f.runtime.unreachable["leaf1"] = 1
	outcomes := orchestrator.Wire(leafSpinePairs[:1])
	werr := outcomes[0].Err
	Expect(werr).ToNot(BeNil())
	Expect(werr.Node).To(Equal("leaf1"))
	Expect(werr.Stage).To(Equal(wiring.StageNamespace))
	Expect(errors.Is(werr, wiring.ErrNamespaceResolution)).To(BeTrue())
	Expect(wiring.IsNodeDown(werr)).To(BeFalse())
	Expect(f.host.DeviceCount()).To(Equal(2))
	hostDevices, err := f.host.LinkList(hostcalls.HostNs)
	Expect(err).ShouldNot(HaveOccurred())
	Expect(hostDevices).To(BeEmpty())

	// the runtime is back, the existing devices are reapplied
	outcomes = orchestrator.Wire(leafSpinePairs[:1])
	Expect(outcomes[0].Succeeded()).To(BeTrue())
	Expect(outcomes[0].Conflict).To(BeTrue())
	Expect(f.host.DeviceCount()).To(Equal(2))
	local, found := f.host.Device(f.nsOf("leaf1"), "leaf1_spine1")
	Expect(found).To(BeTrue())
	Expect(local.Addrs).To(Equal([]string{"192.168.50.1/30"}))
}

func TestWireBindFailure(t *testing.T) {
	RegisterTestingT(t)
	f := newFixture(leafSpineNodes())
	f.registry.failFor["leaf1"] = errors.New("read-only file system")

	for _, outcome := range f.orchestrator("").Wire(leafSpinePairs) {
		Expect(outcome.Succeeded()).To(BeFalse())
		Expect(outcome.Err.Node).To(Equal("leaf1"))
		Expect(outcome.Err.Stage).To(Equal(wiring.StageNamespace))
	}
}

func TestWireAddressFailure(t *testing.T) {
	RegisterTestingT(t)
	f := newFixture(leafSpineNodes())
	f.host.FailOn("LinkSetUpWithAddress", "spine1_leaf1", errors.New("invalid argument"))

	outcomes := f.orchestrator("").Wire(leafSpinePairs[:1])
	werr := outcomes[0].Err
	Expect(werr.Stage).To(Equal(wiring.StageAddress))
	Expect(errors.Is(werr, wiring.ErrAddressAssignment)).To(BeTrue())
}

func TestWireCreateFailure(t *testing.T) {
	RegisterTestingT(t)
	f := newFixture(leafSpineNodes())
	f.host.FailOn("AddVethPair", "leaf1_spine2", errors.New("name too long"))

	outcomes := f.orchestrator("").Wire(leafSpinePairs)
	werr := outcomes[1].Err
	Expect(werr.Stage).To(Equal(wiring.StageCreate))
	Expect(werr.Device).To(Equal("leaf1_spine2"))
	Expect(errors.Is(werr, wiring.ErrDeviceCreation)).To(BeTrue())
	Expect(outcomes[2].Succeeded()).To(BeTrue())
}

func TestUnwire(t *testing.T) {
	RegisterTestingT(t)
	f := newFixture(leafSpineNodes())
	orchestrator := f.orchestrator("")
	orchestrator.Wire(leafSpinePairs)

	outcomes := orchestrator.Unwire(leafSpinePairs)
	for _, outcome := range outcomes {
		Expect(outcome.Succeeded()).To(BeTrue())
		Expect(outcome.Removed).To(BeTrue())
	}
	Expect(f.host.DelCalls).To(Equal(len(leafSpinePairs)))
	Expect(f.host.DeviceCount()).To(BeZero())

	// second run finds nothing to remove
	for _, outcome := range orchestrator.Unwire(leafSpinePairs) {
		Expect(outcome.Succeeded()).To(BeTrue())
		Expect(outcome.Removed).To(BeFalse())
	}
}

func TestUnwireFromHost(t *testing.T) {
	RegisterTestingT(t)
	f := newFixture(map[string]int{})
	Expect(f.host.AddVethPair("leaf1_spine1", "spine1_leaf1")).To(Succeed())

	outcomes := f.orchestrator("").Unwire(leafSpinePairs[:1])
	Expect(outcomes[0].Removed).To(BeTrue())
	Expect(f.host.DeviceCount()).To(BeZero())
}

func TestUnwireFailure(t *testing.T) {
	RegisterTestingT(t)
	f := newFixture(leafSpineNodes())
	orchestrator := f.orchestrator("")
	orchestrator.Wire(leafSpinePairs)
	f.host.FailOn("LinkDel", "leaf1_spine1", errors.New("device busy"))

	outcomes := orchestrator.Unwire(leafSpinePairs)
	Expect(outcomes[0].Err.Stage).To(Equal(wiring.StageRemove))
	Expect(errors.Is(outcomes[0].Err, wiring.ErrRemoval)).To(BeTrue())
	Expect(outcomes[1].Removed).To(BeTrue())
}

func TestUnwireRuntimeUnreachable(t *testing.T) {
	RegisterTestingT(t)
	f := newFixture(leafSpineNodes())
	orchestrator := f.orchestrator("")
	orchestrator.Wire(leafSpinePairs[:1])
	f.runtime.unreachable["leaf1"] = 1

	outcomes := orchestrator.Unwire(leafSpinePairs[:1])
	Expect(outcomes[0].Succeeded()).To(BeFalse())
	Expect(outcomes[0].Removed).To(BeFalse())
	Expect(outcomes[0].Err.Stage).To(Equal(wiring.StageRemove))
	Expect(errors.Is(outcomes[0].Err, wiring.ErrRemoval)).To(BeTrue())
	_, found := f.host.Device(f.nsOf("leaf1"), "leaf1_spine1")
	Expect(found).To(BeTrue())
}

func TestUnwireNodeDown(t *testing.T) {
	RegisterTestingT(t)
	f := newFixture(leafSpineNodes())
	orchestrator := f.orchestrator("")
	orchestrator.Wire(leafSpinePairs[:1])
	delete(f.runtime.pids, "leaf1")

	outcomes := orchestrator.Unwire(leafSpinePairs[:1])
	Expect(outcomes[0].Succeeded()).To(BeTrue())
	Expect(outcomes[0].Removed).To(BeFalse())
	Expect(f.host.DelCalls).To(BeZero())
}

func TestStatus(t *testing.T) {
	RegisterTestingT(t)
	nodes := leafSpineNodes()
	delete(nodes, "spine2")
	f := newFixture(nodes)
	orchestrator := f.orchestrator("")
	orchestrator.Wire(leafSpinePairs)

	statuses := orchestrator.Status(leafSpinePairs)
	Expect(statuses).To(HaveLen(3))

	Expect(statuses[0].Wired()).To(BeTrue())
	Expect(statuses[2].Wired()).To(BeTrue())

	// nothing is created towards a node that is not running
	Expect(statuses[1].Wired()).To(BeFalse())
	Expect(statuses[1].Local.Location).To(Equal(wiring.Missing))
	Expect(statuses[1].Peer.Location).To(Equal(wiring.Unknown))

	orchestrator.Unwire(leafSpinePairs)
	statuses = orchestrator.Status(leafSpinePairs)
	Expect(statuses[0].Local.Location).To(Equal(wiring.Missing))
	Expect(statuses[1].Peer.Location).To(Equal(wiring.Unknown))
}
