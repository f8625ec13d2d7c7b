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

package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/onsi/gomega"

	"github.com/contiv/topobuilder/plugins/topology/wiring"
)

func writeConfig(content string) (string, func()) {
	dir, err := ioutil.TempDir("", "config")
	Expect(err).ShouldNot(HaveOccurred())
	path := filepath.Join(dir, "topobuilder.yaml")
	Expect(ioutil.WriteFile(path, []byte(content), 0644)).To(Succeed())
	return path, func() { os.RemoveAll(dir) }
}

func TestDefaults(t *testing.T) {
	RegisterTestingT(t)

	cfg, err := Load("")
	Expect(err).ShouldNot(HaveOccurred())
	Expect(cfg.LogFile).To(Equal("topo_creator.log"))
	Expect(cfg.LogLevel).To(Equal("info"))
	Expect(cfg.NetnsDir).To(Equal("/var/run/netns"))
	Expect(cfg.ConflictPolicy).To(Equal(wiring.ConflictReapply))
	Expect(cfg.MetricsFile).To(BeEmpty())
	Expect(cfg.Node.StopTimeout).To(BeEquivalentTo(5))
	Expect(cfg.Node.ExposedPorts).To(Equal([]string{"830/tcp", "40051/tcp", "22/tcp"}))
	Expect(cfg.Node.PidRetryInterval()).To(Equal(200 * time.Millisecond))
	Expect(cfg.Validate()).To(Succeed())
	Expect(cfg).To(Equal(Default()))
}

func TestLoad(t *testing.T) {
	RegisterTestingT(t)

	path, cleanup := writeConfig(`
logFile: /tmp/topo.log
logLevel: debug
conflictPolicy: fail
metricsFile: /var/lib/node_exporter/topobuilder.prom
node:
  stopTimeout: 10
  networkMode: mgmt
  pidRetryIntervalMs: 50
`)
	defer cleanup()

	cfg, err := Load(path)
	Expect(err).ShouldNot(HaveOccurred())
	Expect(cfg.LogFile).To(Equal("/tmp/topo.log"))
	Expect(cfg.LogLevel).To(Equal("debug"))
	Expect(cfg.ConflictPolicy).To(Equal(wiring.ConflictFail))
	Expect(cfg.MetricsFile).To(Equal("/var/lib/node_exporter/topobuilder.prom"))
	Expect(cfg.Node.StopTimeout).To(BeEquivalentTo(10))
	Expect(cfg.Node.NetworkMode).To(Equal("mgmt"))
	Expect(cfg.Node.PidRetryInterval()).To(Equal(50 * time.Millisecond))
	Expect(cfg.Node.CLI).To(Equal("cli"))
}

func TestLoadInvalid(t *testing.T) {
	RegisterTestingT(t)

	path, cleanup := writeConfig("conflictPolicy: ignore\n")
	defer cleanup()
	_, err := Load(path)
	Expect(err).Should(HaveOccurred())

	path, cleanup = writeConfig("logLevel: [debug\n")
	defer cleanup()
	_, err = Load(path)
	Expect(err).Should(HaveOccurred())

	_, err = Load("/nonexistent/topobuilder.yaml")
	Expect(err).Should(HaveOccurred())
}
