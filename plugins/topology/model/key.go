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
	"strconv"
	"strings"
)

// KeySeparator separates components of a resolved interface key.
//
// Grammar of a resolved key:
//
//	key   = node "_" peer [ "_" index ]
//	index = decimal occurrence index, 1 for the first repeat
//
// The same string doubles as the name of the veth device created for
// the interface.
const KeySeparator = "_"

// InterfaceKey identifies one end of a point-to-point link.
type InterfaceKey struct {
	Node  string // node owning the interface
	Peer  string // node the interface is cabled to (declared interface name)
	Index int    // occurrence index, 0 for the first occurrence
}

// Key returns the resolved key for the given node, declared interface name
// and occurrence index. Index 0 yields the bare "<node>_<name>" form.
func Key(node, name string, index int) string {
	key := node + KeySeparator + name
	if index > 0 {
		key += KeySeparator + strconv.Itoa(index)
	}
	return key
}

// VolumeKey returns the name of the runtime volume backing the given
// volume declaration of a node.
func VolumeKey(node, volume string) string {
	return node + KeySeparator + volume
}

// ParseKey parses a resolved key. Only keys with exactly two or three
// components are valid; the third component must be a positive index.
func ParseKey(key string) (ik InterfaceKey, ok bool) {
	parts := strings.Split(key, KeySeparator)
	for _, part := range parts {
		if part == "" {
			return ik, false
		}
	}
	switch len(parts) {
	case 2:
		return InterfaceKey{Node: parts[0], Peer: parts[1]}, true
	case 3:
		index, err := strconv.Atoi(parts[2])
		if err != nil || index < 1 || strconv.Itoa(index) != parts[2] {
			return ik, false
		}
		return InterfaceKey{Node: parts[0], Peer: parts[1], Index: index}, true
	}
	return ik, false
}

// String returns the resolved key.
func (ik InterfaceKey) String() string {
	return Key(ik.Node, ik.Peer, ik.Index)
}

// PeerKey returns the key expected on the other end of the link: node and
// peer swapped, index kept.
func (ik InterfaceKey) PeerKey() InterfaceKey {
	return InterfaceKey{Node: ik.Peer, Peer: ik.Node, Index: ik.Index}
}

// PeerKey computes the expected peer of a resolved key. It returns false
// for keys that do not follow the key grammar.
func PeerKey(key string) (string, bool) {
	ik, ok := ParseKey(key)
	if !ok {
		return "", false
	}
	return ik.PeerKey().String(), true
}

// NodeOf returns the node owning the given resolved key.
func NodeOf(key string) string {
	if i := strings.Index(key, KeySeparator); i >= 0 {
		return key[:i]
	}
	return key
}
