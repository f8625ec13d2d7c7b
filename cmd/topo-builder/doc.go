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

// Topo-builder builds a lab of router containers connected by veth links.
//
// The topology is described in YAML:
//
//	nodes:
//	  - name: leaf1
//	    image: crpd:latest
//	    link:
//	      - name: spine1
//	        prefix: 192.168.50.1/30
//	    volume:
//	      - name: config
//	        path: /config
//
// An interface is named after the node it is cabled to. Repeated names on
// one node get an index ("leaf1_spine1", "leaf1_spine1_1", ...) and the
// n-th repeat on one end is cabled to the n-th repeat on the other end.
//
//	topo-builder -t lab.yaml create
//	topo-builder -t lab.yaml status
//	topo-builder -t lab.yaml config --node leaf1 --cfg leaf1.set
//	topo-builder -t lab.yaml backup
//	topo-builder -t lab.yaml delete -f
//
// Wiring needs root privileges.
package main
