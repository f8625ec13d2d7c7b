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

package model

import (
	"testing"

	. "github.com/onsi/gomega"
)

func TestKey(t *testing.T) {
	RegisterTestingT(t)

	Expect(Key("r1", "r2", 0)).To(Equal("r1_r2"))
	Expect(Key("r1", "r2", 1)).To(Equal("r1_r2_1"))
	Expect(Key("r1", "r2", 12)).To(Equal("r1_r2_12"))
	Expect(VolumeKey("r1", "config")).To(Equal("r1_config"))
}

func TestParseKey(t *testing.T) {
	RegisterTestingT(t)

	ik, ok := ParseKey("leaf1_spine1")
	Expect(ok).To(BeTrue())
	Expect(ik).To(Equal(InterfaceKey{Node: "leaf1", Peer: "spine1"}))

	ik, ok = ParseKey("leaf1_spine1_2")
	Expect(ok).To(BeTrue())
	Expect(ik).To(Equal(InterfaceKey{Node: "leaf1", Peer: "spine1", Index: 2}))
	Expect(ik.String()).To(Equal("leaf1_spine1_2"))

	for _, invalid := range []string{
		"", "leaf1", "leaf1_", "_spine1", "leaf1__spine1",
		"leaf1_spine1_0", "leaf1_spine1_01", "leaf1_spine1_x", "leaf1_spine1_-1",
		"a_b_1_2",
	} {
		_, ok := ParseKey(invalid)
		Expect(ok).To(BeFalse(), "key %q", invalid)
	}
}

func TestPeerKey(t *testing.T) {
	RegisterTestingT(t)

	peer, ok := PeerKey("leaf1_spine1")
	Expect(ok).To(BeTrue())
	Expect(peer).To(Equal("spine1_leaf1"))

	peer, ok = PeerKey("leaf1_spine1_3")
	Expect(ok).To(BeTrue())
	Expect(peer).To(Equal("spine1_leaf1_3"))

	// swapping twice returns the original key
	back, _ := PeerKey(peer)
	Expect(back).To(Equal("leaf1_spine1_3"))

	_, ok = PeerKey("leaf1")
	Expect(ok).To(BeFalse())
}

func TestNodeOf(t *testing.T) {
	RegisterTestingT(t)

	Expect(NodeOf("leaf1_spine1_1")).To(Equal("leaf1"))
	Expect(NodeOf("leaf1")).To(Equal("leaf1"))
}

func TestLinkAddresses(t *testing.T) {
	RegisterTestingT(t)

	links := NewLinkAddresses()
	Expect(links.Add("b_a", "10.0.0.2/30")).To(BeTrue())
	Expect(links.Add("a_b", "10.0.0.1/30")).To(BeTrue())
	Expect(links.Add("b_a", "10.9.9.9/30")).To(BeFalse())

	Expect(links.Len()).To(Equal(2))
	Expect(links.Keys()).To(Equal([]string{"b_a", "a_b"}))
	addr, found := links.Get("b_a")
	Expect(found).To(BeTrue())
	Expect(addr).To(Equal("10.0.0.2/30"))
	Expect(links.Has("c_a")).To(BeFalse())

	// Keys returns a copy
	keys := links.Keys()
	keys[0] = "x_y"
	Expect(links.Keys()[0]).To(Equal("b_a"))
}

func TestPair(t *testing.T) {
	RegisterTestingT(t)

	pair := Pair{LocalKey: "leaf1_spine1_1", PeerKey: "spine1_leaf1_1"}
	Expect(pair.LocalNode()).To(Equal("leaf1"))
	Expect(pair.PeerNode()).To(Equal("spine1"))
	Expect(pair.String()).To(Equal("leaf1_spine1_1 <-> spine1_leaf1_1"))
}
