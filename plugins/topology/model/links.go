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
	"bytes"
	"fmt"
)

// LinkAddresses maps resolved interface keys to address-with-prefix.
// Iteration follows insertion order.
type LinkAddresses struct {
	keys  []string
	addrs map[string]string
}

// NewLinkAddresses returns an empty mapping.
func NewLinkAddresses() *LinkAddresses {
	return &LinkAddresses{addrs: make(map[string]string)}
}

// Add inserts a key. It returns false, leaving the mapping untouched,
// if the key is already present.
func (la *LinkAddresses) Add(key, addr string) bool {
	if _, exists := la.addrs[key]; exists {
		return false
	}
	la.keys = append(la.keys, key)
	la.addrs[key] = addr
	return true
}

// Get returns the address of the given key.
func (la *LinkAddresses) Get(key string) (addr string, found bool) {
	addr, found = la.addrs[key]
	return
}

// Has returns true if the key is present.
func (la *LinkAddresses) Has(key string) bool {
	_, found := la.addrs[key]
	return found
}

// Keys returns all keys in insertion order.
func (la *LinkAddresses) Keys() []string {
	keys := make([]string, len(la.keys))
	copy(keys, la.keys)
	return keys
}

// Len returns the number of keys.
func (la *LinkAddresses) Len() int {
	return len(la.keys)
}

// String returns a human-readable representation of the mapping.
func (la *LinkAddresses) String() string {
	var buf bytes.Buffer
	buf.WriteString("{")
	for i, key := range la.keys {
		if i > 0 {
			buf.WriteString(", ")
		}
		fmt.Fprintf(&buf, "%s: %s", key, la.addrs[key])
	}
	buf.WriteString("}")
	return buf.String()
}
