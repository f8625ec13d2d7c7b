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

package resolver

import "fmt"

// SchemaError is returned for a malformed topology description.
type SchemaError struct {
	Node   string // offending node, empty if the error is document-wide
	Field  string // offending field path, e.g. "link[1].prefix"
	Reason string
}

func (e *SchemaError) Error() string {
	switch {
	case e.Node != "" && e.Field != "":
		return fmt.Sprintf("invalid topology: node %q: %s: %s", e.Node, e.Field, e.Reason)
	case e.Field != "":
		return fmt.Sprintf("invalid topology: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid topology: %s", e.Reason)
}

// AmbiguityError is returned when two interface declarations resolve to
// the same key.
type AmbiguityError struct {
	Key  string
	Node string
}

func (e *AmbiguityError) Error() string {
	return fmt.Sprintf("interface key %q of node %q collides with an already resolved interface", e.Key, e.Node)
}
