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
	"fmt"
	"io"
	"os"

	"github.com/ligato/cn-infra/logging"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/contiv/topobuilder/pkg/netnsreg"
	"github.com/contiv/topobuilder/pkg/util/logs"
	"github.com/contiv/topobuilder/plugins/nodemanager"
	"github.com/contiv/topobuilder/plugins/topology"
	"github.com/contiv/topobuilder/plugins/topology/config"
	"github.com/contiv/topobuilder/plugins/topology/model"
	"github.com/contiv/topobuilder/plugins/topology/resolver"
	"github.com/contiv/topobuilder/plugins/topology/wiring"
)

// errFailed makes the command exit with a non-zero code after the report
// has been printed.
var errFailed = errors.New("finished with failures, see the log for details")

// session holds everything a command needs to work on one topology.
type session struct {
	cfg     *config.Config
	log     logging.Logger
	desc    *model.Description
	nodes   nodemanager.API
	metrics *topology.Metrics
	builder *topology.Builder
	logFile io.Closer
}

// withSession prepares a session for fn. With runtime the session
// connects to Docker and can wire links.
func withSession(runtime bool, fn func(s *session) error) func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, args []string) {
		s, err := newSession(runtime)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		err = fn(s)
		s.close()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(rootFlags.config)
	if err != nil {
		return nil, err
	}
	if rootFlags.logFile != "" {
		cfg.LogFile = rootFlags.logFile
	}
	if rootFlags.logLevel != "" {
		cfg.LogLevel = rootFlags.logLevel
	}
	if rootFlags.netnsDir != "" {
		cfg.NetnsDir = rootFlags.netnsDir
	}
	if rootFlags.conflictPolicy != "" {
		cfg.ConflictPolicy = wiring.ConflictPolicy(rootFlags.conflictPolicy)
	}
	if rootFlags.metricsFile != "" {
		cfg.MetricsFile = rootFlags.metricsFile
	}
	return cfg, cfg.Validate()
}

func newSession(runtime bool) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, logFile, err := logs.InitLogs(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	s := &session{cfg: cfg, log: logger, logFile: logFile}

	s.desc, err = resolver.Load(rootFlags.topology)
	if err != nil {
		s.close()
		return nil, err
	}

	deps := topology.Deps{Log: logger}
	if runtime {
		nodes := nodemanager.NewNodeManager(nodemanager.Deps{Log: logger, Config: &cfg.Node})
		if err := nodes.Init(); err != nil {
			s.close()
			return nil, err
		}
		s.nodes = nodes
		registry := netnsreg.NewRegistry(cfg.NetnsDir)
		deps.Wirer = wiring.NewOrchestrator(wiring.Deps{
			Log:      logger,
			Runtime:  s.nodes,
			Registry: registry,
			Host:     wiring.NewLinuxCalls(),
		}, cfg.ConflictPolicy)
		deps.Nodes = s.nodes
		deps.Namespaces = registry
	}
	if cfg.MetricsFile != "" {
		if s.metrics, err = topology.NewMetrics(); err != nil {
			s.close()
			return nil, err
		}
		deps.Metrics = s.metrics
	}
	s.builder = topology.NewBuilder(deps)
	logger.Infof("Using topology %s", rootFlags.topology)
	return s, nil
}

func (s *session) close() {
	if s.metrics != nil {
		if err := s.metrics.WriteToTextfile(s.cfg.MetricsFile); err != nil {
			s.log.Errorf("Failed to write metrics: %v", err)
		}
	}
	s.logFile.Close()
}

// finish prints the report and turns failures into errFailed.
func (s *session) finish(report *topology.Report, err error) error {
	if err != nil {
		return err
	}
	report.Print(os.Stdout)
	if report.Failed() {
		return errFailed
	}
	return nil
}

// selectNodes returns the named node, or all nodes if name is empty.
func (s *session) selectNodes(name string) ([]string, error) {
	if name == "" {
		return s.desc.NodeNames(), nil
	}
	for _, node := range s.desc.NodeNames() {
		if node == name {
			return []string{name}, nil
		}
	}
	return nil, errors.Errorf("node %s is not part of the topology", name)
}
