// Copyright 2026 The Cockroach Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

package testcat

import (
	"github.com/cockroachdb/errors"
	yaml "gopkg.in/yaml.v2"
)

// Schema is the YAML form of a catalog.
type Schema struct {
	Tables []TableDef `yaml:"tables"`
}

// LoadYAML builds a finished catalog from a YAML schema document.
func LoadYAML(data []byte) (*Catalog, error) {
	var s Schema
	if err := yaml.UnmarshalStrict(data, &s); err != nil {
		return nil, errors.Wrap(err, "parsing catalog")
	}
	return FromSchema(s)
}

// FromSchema builds a finished catalog from table definitions.
func FromSchema(s Schema) (*Catalog, error) {
	tc := New()
	for _, def := range s.Tables {
		if _, err := tc.AddTable(def); err != nil {
			return nil, err
		}
	}
	if err := tc.Finish(); err != nil {
		return nil, err
	}
	return tc, nil
}

// MustLoadYAML is like LoadYAML but panics on error. It is intended for
// tests.
func MustLoadYAML(data string) *Catalog {
	tc, err := LoadYAML([]byte(data))
	if err != nil {
		panic(err)
	}
	return tc
}
