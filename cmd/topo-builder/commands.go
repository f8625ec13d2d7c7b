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
	"io/ioutil"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var cmdCreate = &cobra.Command{
	Use:   "create",
	Short: "Create volumes and nodes of the topology and wire them",
	Args:  cobra.NoArgs,
	Run: withSession(true, func(s *session) error {
		return s.finish(s.builder.Create(s.desc))
	}),
}

var deleteFlags = struct {
	force bool
}{}

var cmdDelete = &cobra.Command{
	Use:   "delete",
	Short: "Stop and remove nodes of the topology",
	Args:  cobra.NoArgs,
	Run: withSession(true, func(s *session) error {
		return s.finish(s.builder.Delete(s.desc, deleteFlags.force))
	}),
}

var cmdWire = &cobra.Command{
	Use:   "wire",
	Short: "Create links between running nodes",
	Args:  cobra.NoArgs,
	Run: withSession(true, func(s *session) error {
		return s.finish(s.builder.Build(s.desc))
	}),
}

var cmdUnwire = &cobra.Command{
	Use:   "unwire",
	Short: "Remove links between nodes, keeping the nodes",
	Args:  cobra.NoArgs,
	Run: withSession(true, func(s *session) error {
		return s.finish(s.builder.Teardown(s.desc))
	}),
}

var cmdStatus = &cobra.Command{
	Use:   "status",
	Short: "Show where the devices of every link are",
	Args:  cobra.NoArgs,
	Run: withSession(true, func(s *session) error {
		return s.finish(s.builder.Status(s.desc))
	}),
}

var cmdShow = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved topology and its links without touching the host",
	Args:  cobra.NoArgs,
	Run: withSession(false, func(s *session) error {
		report, err := s.builder.Resolve(s.desc)
		if err != nil {
			return err
		}
		fmt.Print(report.Topology)
		for _, pair := range report.Pairs {
			fmt.Printf("pair %s (%s, %s)\n", pair, pair.LocalAddr, pair.PeerAddr)
		}
		for _, adv := range report.Advisories {
			fmt.Printf("WARNING %s\n", adv)
		}
		return nil
	}),
}

var nodeFlags = struct {
	node    string
	cfgFile string
	dir     string
}{}

var cmdConfig = &cobra.Command{
	Use:   "config",
	Short: "Push configuration lines from a file to one or all nodes and commit them",
	Args:  cobra.NoArgs,
	Run: withSession(true, func(s *session) error {
		data, err := ioutil.ReadFile(nodeFlags.cfgFile)
		if err != nil {
			return errors.Wrapf(err, "failed to read %s", nodeFlags.cfgFile)
		}
		nodes, err := s.selectNodes(nodeFlags.node)
		if err != nil {
			return err
		}
		lines := strings.Split(string(data), "\n")
		failed := false
		for _, node := range nodes {
			output, err := s.nodes.Configure(node, lines)
			if err != nil {
				s.log.Errorf("Failed to configure %s: %v", node, err)
				fmt.Printf("FAILED  %s: %v\n", node, err)
				failed = true
				continue
			}
			s.log.Debugf("Output of %s: %s", node, output)
			fmt.Printf("OK      %s\n", node)
		}
		if failed {
			return errFailed
		}
		return nil
	}),
}

var cmdBackup = &cobra.Command{
	Use:   "backup",
	Short: "Save configuration of one or all nodes into backup_<node>.txt",
	Args:  cobra.NoArgs,
	Run: withSession(true, func(s *session) error {
		nodes, err := s.selectNodes(nodeFlags.node)
		if err != nil {
			return err
		}
		dir := nodeFlags.dir
		if dir == "" {
			dir = s.cfg.BackupDir
		}
		failed := false
		for _, node := range nodes {
			path, err := s.nodes.Backup(node, dir)
			if err != nil {
				s.log.Errorf("Failed to back up %s: %v", node, err)
				fmt.Printf("FAILED  %s: %v\n", node, err)
				failed = true
				continue
			}
			fmt.Printf("OK      %s -> %s\n", node, path)
		}
		if failed {
			return errFailed
		}
		return nil
	}),
}

func init() {
	cmdDelete.Flags().BoolVarP(&deleteFlags.force, "force", "f", false, "remove node volumes too")

	cmdConfig.Flags().StringVar(&nodeFlags.node, "node", "", "node to configure (default all nodes)")
	cmdConfig.Flags().StringVar(&nodeFlags.cfgFile, "cfg", "", "file with configuration statements, one per line")
	cmdConfig.MarkFlagRequired("cfg")

	cmdBackup.Flags().StringVar(&nodeFlags.node, "node", "", "node to back up (default all nodes)")
	cmdBackup.Flags().StringVar(&nodeFlags.dir, "dir", "", "directory for backup files")

	rootCmd.AddCommand(cmdCreate, cmdDelete, cmdWire, cmdUnwire, cmdStatus, cmdShow, cmdConfig, cmdBackup)
}
