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

package main

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/contiv/topobuilder/plugins/topology/wiring"
)

func TestLoadConfigFlagsOverride(t *testing.T) {
	RegisterTestingT(t)

	dir, err := ioutil.TempDir("", "topo-builder")
	Expect(err).ShouldNot(HaveOccurred())
	defer os.RemoveAll(dir)

	cfgFile := filepath.Join(dir, "config.yaml")
	Expect(ioutil.WriteFile(cfgFile, []byte("logLevel: debug\nnetnsDir: /tmp/netns\n"), 0644)).To(Succeed())

	rootFlags.config = cfgFile
	rootFlags.conflictPolicy = "fail"
	rootFlags.netnsDir = "/run/netns"
	defer func() {
		rootFlags.config, rootFlags.conflictPolicy, rootFlags.netnsDir = "", "", ""
	}()

	cfg, err := loadConfig()
	Expect(err).ShouldNot(HaveOccurred())
	Expect(cfg.LogLevel).To(Equal("debug"))
	Expect(cfg.NetnsDir).To(Equal("/run/netns"))
	Expect(cfg.ConflictPolicy).To(Equal(wiring.ConflictFail))

	rootFlags.conflictPolicy = "sometimes"
	_, err = loadConfig()
	Expect(err).Should(HaveOccurred())
}

func TestShowSession(t *testing.T) {
	RegisterTestingT(t)

	dir, err := ioutil.TempDir("", "topo-builder")
	Expect(err).ShouldNot(HaveOccurred())
	defer os.RemoveAll(dir)

	topoFile := filepath.Join(dir, "lab.yaml")
	Expect(ioutil.WriteFile(topoFile, []byte(`
nodes:
  - name: r1
    image: crpd
    link:
      - name: r2
        prefix: 10.0.0.1/30
    volume: []
  - name: r2
    image: crpd
    link:
      - name: r1
        prefix: 10.0.0.2/30
    volume: []
`), 0644)).To(Succeed())

	rootFlags.topology = topoFile
	rootFlags.logFile = filepath.Join(dir, "topo_creator.log")
	defer func() {
		rootFlags.topology, rootFlags.logFile = "", ""
	}()

	s, err := newSession(false)
	Expect(err).ShouldNot(HaveOccurred())
	defer s.close()
	Expect(s.nodes).To(BeNil())

	report, err := s.builder.Resolve(s.desc)
	Expect(err).ShouldNot(HaveOccurred())
	Expect(report.Pairs).To(HaveLen(1))

	nodes, err := s.selectNodes("")
	Expect(err).ShouldNot(HaveOccurred())
	Expect(nodes).To(Equal([]string{"r1", "r2"}))
	nodes, err = s.selectNodes("r2")
	Expect(err).ShouldNot(HaveOccurred())
	Expect(nodes).To(Equal([]string{"r2"}))
	_, err = s.selectNodes("r3")
	Expect(err).Should(HaveOccurred())
}
