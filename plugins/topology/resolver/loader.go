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

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"reflect"
	"strings"

	"github.com/ghodss/yaml"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/contiv/topobuilder/plugins/topology/model"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report field paths the way they are spelled in the document
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	return v
}

// Load reads a topology description from a YAML or JSON file.
func Load(path string) (*model.Description, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read topology file %s", path)
	}
	return Parse(data)
}

// Parse decodes a topology description from YAML or JSON. Keys outside
// of the description schema are rejected.
func Parse(data []byte) (*model.Description, error) {
	jsonData, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, &SchemaError{Reason: err.Error()}
	}
	decoder := json.NewDecoder(bytes.NewReader(jsonData))
	decoder.DisallowUnknownFields()

	desc := &model.Description{}
	if err := decoder.Decode(desc); err != nil {
		return nil, &SchemaError{Reason: err.Error()}
	}
	return desc, nil
}

// Validate checks that all required fields of the description are present
// and well-formed. The first violation found is returned as SchemaError.
func Validate(desc *model.Description) error {
	if desc == nil || desc.Nodes == nil {
		return &SchemaError{Field: "nodes", Reason: "is required"}
	}
	seen := make(map[string]int)
	for i := range desc.Nodes {
		node := &desc.Nodes[i]
		nodeID := node.Name
		if nodeID == "" {
			nodeID = fmt.Sprintf("nodes[%d]", i)
		}
		if err := validate.Struct(node); err != nil {
			return schemaErrorFromValidation(nodeID, err)
		}
		if prev, dup := seen[node.Name]; dup {
			return &SchemaError{
				Node:   node.Name,
				Field:  "name",
				Reason: fmt.Sprintf("duplicate node name, first declared as nodes[%d]", prev),
			}
		}
		seen[node.Name] = i

		volumes := make(map[string]struct{})
		for j, vol := range node.Volumes {
			if _, dup := volumes[vol.Name]; dup {
				return &SchemaError{
					Node:   node.Name,
					Field:  fmt.Sprintf("volume[%d].name", j),
					Reason: fmt.Sprintf("duplicate volume name %q", vol.Name),
				}
			}
			volumes[vol.Name] = struct{}{}
		}
	}
	return nil
}

func schemaErrorFromValidation(node string, err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return &SchemaError{Node: node, Reason: err.Error()}
	}
	fe := verrs[0]

	// strip the struct name from the namespace: "NodeSpec.link[1].prefix"
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}

	var reason string
	switch fe.Tag() {
	case "required":
		reason = "is required"
	case "cidr":
		reason = fmt.Sprintf("%q is not an address with prefix length", fe.Value())
	case "excludes":
		reason = fmt.Sprintf("%q must not contain %q", fe.Value(), fe.Param())
	default:
		reason = fmt.Sprintf("failed on the %q constraint", fe.Tag())
	}
	return &SchemaError{Node: node, Field: field, Reason: reason}
}
