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

package topology

import (
	"fmt"
	"io"

	"github.com/contiv/topobuilder/plugins/topology/model"
	"github.com/contiv/topobuilder/plugins/topology/pairing"
	"github.com/contiv/topobuilder/plugins/topology/wiring"
)

// Report describes what a single run did.
type Report struct {
	Topology   *model.Topology
	Pairs      []model.Pair
	Advisories []pairing.Advisory

	// Outcomes of Wire or Unwire, one per pair in pair order.
	Outcomes []*wiring.Outcome

	// Statuses are filled by Status only.
	Statuses []*wiring.LinkStatus

	// NodeErr collects failures of node lifecycle operations.
	NodeErr error
}

// Summary counts results of a run.
type Summary struct {
	Pairs      int
	Succeeded  int
	Failed     int
	Conflicts  int
	Removed    int
	Advisories int
}

func (s Summary) String() string {
	return fmt.Sprintf("pairs=%d succeeded=%d failed=%d conflicts=%d removed=%d advisories=%d",
		s.Pairs, s.Succeeded, s.Failed, s.Conflicts, s.Removed, s.Advisories)
}

// Summary counts outcomes and advisories of the report.
func (r *Report) Summary() Summary {
	s := Summary{Pairs: len(r.Pairs), Advisories: len(r.Advisories)}
	for _, outcome := range r.Outcomes {
		if outcome.Succeeded() {
			s.Succeeded++
		} else {
			s.Failed++
		}
		if outcome.Conflict {
			s.Conflicts++
		}
		if outcome.Removed {
			s.Removed++
		}
	}
	return s
}

// Failed returns true if any pair or node operation failed.
func (r *Report) Failed() bool {
	return r.NodeErr != nil || r.Summary().Failed > 0
}

// Errors returns errors of all failed pairs.
func (r *Report) Errors() []*wiring.WiringError {
	var errs []*wiring.WiringError
	for _, outcome := range r.Outcomes {
		if outcome.Err != nil {
			errs = append(errs, outcome.Err)
		}
	}
	return errs
}

// Print writes a human readable account of the report to w.
func (r *Report) Print(w io.Writer) {
	for _, adv := range r.Advisories {
		fmt.Fprintf(w, "WARNING %s\n", adv)
	}
	if r.NodeErr != nil {
		fmt.Fprintf(w, "ERROR %v\n", r.NodeErr)
	}
	for _, outcome := range r.Outcomes {
		switch {
		case outcome.Err != nil:
			fmt.Fprintf(w, "FAILED  %s: %v\n", outcome.Pair, outcome.Err)
		case outcome.Removed:
			fmt.Fprintf(w, "REMOVED %s\n", outcome.Pair)
		case outcome.Conflict:
			fmt.Fprintf(w, "REAPPLIED %s\n", outcome.Pair)
		default:
			fmt.Fprintf(w, "OK      %s\n", outcome.Pair)
		}
	}
	for _, status := range r.Statuses {
		state := "partial"
		if status.Wired() {
			state = "wired"
		}
		fmt.Fprintf(w, "%-8s %s [%s: %s, %s: %s]\n", state, status.Pair,
			status.Local.Device, status.Local.Location, status.Peer.Device, status.Peer.Location)
	}
	fmt.Fprintln(w, r.Summary())
}
