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

// Package pairing groups resolved interface keys into point-to-point links.
//
// A key "<node>_<peer>[_<index>]" pairs with "<peer>_<node>[_<index>]".
// Keys are visited in insertion order and every key is claimed by at most
// one pair. Keys without a peer are reported as advisories and excluded
// from wiring.
package pairing

import (
	"fmt"
	"net"

	"github.com/contiv/topobuilder/plugins/topology/model"
)

// AdvisoryKind classifies non-fatal findings of the pairing pass.
type AdvisoryKind string

const (
	// UnpairedInterface is reported for a key whose peer key is absent
	// or cannot be computed.
	UnpairedInterface AdvisoryKind = "unpaired-interface"

	// SubnetMismatch is reported for an emitted pair whose peer address
	// lies outside of the local prefix.
	SubnetMismatch AdvisoryKind = "subnet-mismatch"
)

// Advisory is a non-fatal finding about a resolved interface.
type Advisory struct {
	Kind    AdvisoryKind
	Key     string
	PeerKey string // expected peer key, empty if it could not be computed
	Reason  string
}

func (a Advisory) String() string {
	return fmt.Sprintf("%s: %s: %s", a.Kind, a.Key, a.Reason)
}

// Result is the outcome of the pairing pass.
type Result struct {
	Pairs      []model.Pair
	Advisories []Advisory
}

// Unpaired returns advisories of the UnpairedInterface kind.
func (r *Result) Unpaired() []Advisory {
	var unpaired []Advisory
	for _, adv := range r.Advisories {
		if adv.Kind == UnpairedInterface {
			unpaired = append(unpaired, adv)
		}
	}
	return unpaired
}

// Pair partitions the resolved keys into pairs. The output depends only on
// the content and insertion order of links.
func Pair(links *model.LinkAddresses) *Result {
	result := &Result{}
	claimed := make(map[string]struct{}, links.Len())

	for _, key := range links.Keys() {
		if _, done := claimed[key]; done {
			continue
		}
		addr, _ := links.Get(key)

		peerKey, ok := model.PeerKey(key)
		if !ok {
			result.Advisories = append(result.Advisories, Advisory{
				Kind:   UnpairedInterface,
				Key:    key,
				Reason: "key does not follow the <node>_<peer>[_<index>] form",
			})
			continue
		}
		peerAddr, found := links.Get(peerKey)
		if !found {
			result.Advisories = append(result.Advisories, Advisory{
				Kind:    UnpairedInterface,
				Key:     key,
				PeerKey: peerKey,
				Reason:  fmt.Sprintf("peer interface %s is not declared", peerKey),
			})
			continue
		}
		if peerKey == key {
			// a node cabled to itself would need two devices with one name
			result.Advisories = append(result.Advisories, Advisory{
				Kind:    UnpairedInterface,
				Key:     key,
				PeerKey: peerKey,
				Reason:  "interface is its own peer",
			})
			continue
		}
		// peer keys are symmetric, so an unclaimed key always has an
		// unclaimed peer
		claimed[key] = struct{}{}
		claimed[peerKey] = struct{}{}
		pair := model.Pair{
			LocalKey:  key,
			PeerKey:   peerKey,
			LocalAddr: addr,
			PeerAddr:  peerAddr,
		}
		result.Pairs = append(result.Pairs, pair)

		if reason, mismatch := subnetMismatch(addr, peerAddr); mismatch {
			result.Advisories = append(result.Advisories, Advisory{
				Kind:    SubnetMismatch,
				Key:     key,
				PeerKey: peerKey,
				Reason:  reason,
			})
		}
	}
	return result
}

// subnetMismatch reports whether both addresses parse and the peer address
// is outside of the local prefix.
func subnetMismatch(localAddr, peerAddr string) (string, bool) {
	_, localNet, err := net.ParseCIDR(localAddr)
	if err != nil {
		return "", false
	}
	peerIP, _, err := net.ParseCIDR(peerAddr)
	if err != nil {
		return "", false
	}
	if localNet.Contains(peerIP) {
		return "", false
	}
	return fmt.Sprintf("peer address %s is outside of %s", peerAddr, localNet), true
}
