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
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

var rootFlags = struct {
	topology       string
	config         string
	logFile        string
	logLevel       string
	netnsDir       string
	conflictPolicy string
	metricsFile    string
}{}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "topo-builder",
	Short: "Builds a lab of containerized routers connected by veth links",
	Long: `topo-builder reads a topology description listing nodes, their
interfaces and volumes, runs every node as a container and connects
the nodes with point-to-point veth links created in their network
namespaces.`,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&rootFlags.topology, "topology", "t", "", "topology description (YAML or JSON)")
	flags.StringVar(&rootFlags.config, "config", "", "configuration file")
	flags.StringVar(&rootFlags.logFile, "log-file", "", "log file, truncated on every run (default topo_creator.log)")
	flags.StringVar(&rootFlags.logLevel, "log-level", "", "debug, info, warn or error")
	flags.StringVar(&rootFlags.netnsDir, "netns-dir", "", "directory of named network namespaces")
	flags.StringVar(&rootFlags.conflictPolicy, "conflict-policy", "", "handling of existing devices: reapply or fail")
	flags.StringVar(&rootFlags.metricsFile, "metrics-file", "", "write run metrics to this file in the Prometheus text format")
	rootCmd.MarkPersistentFlagRequired("topology")
}
