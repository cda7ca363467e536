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

package settings

import (
	"sort"
	"strings"

	"github.com/cockroachdb/planrw/pkg/sql/pgwire/pgcode"
	"github.com/cockroachdb/planrw/pkg/sql/pgwire/pgerror"
	"golang.org/x/exp/maps"
)

// Values holds the raw, string-keyed option values for one pipeline. Values
// are checked against their setting only when read, so a bad value surfaces
// from the rule that owns it. A nil *Values reads every setting as its
// default.
type Values struct {
	m map[string]string
}

// MakeValues returns a Values populated from the given key/value pairs.
// Unknown keys are rejected.
func MakeValues(kv map[string]string) (*Values, error) {
	sv := &Values{m: make(map[string]string, len(kv))}
	keys := maps.Keys(kv)
	sort.Strings(keys)
	for _, k := range keys {
		if err := sv.Set(k, kv[k]); err != nil {
			return nil, err
		}
	}
	return sv, nil
}

// Set stores the raw value for key. The key must be registered.
func (sv *Values) Set(key, value string) error {
	if _, ok := registry[key]; !ok {
		return pgerror.Newf(pgcode.InvalidParameterValue, "unknown setting %q", key)
	}
	if sv.m == nil {
		sv.m = make(map[string]string)
	}
	sv.m[key] = value
	return nil
}

func (sv *Values) raw(key string) (string, bool) {
	if sv == nil {
		return "", false
	}
	v, ok := sv.m[key]
	return v, ok
}

// String renders the explicitly set values sorted by key.
func (sv *Values) String() string {
	if sv == nil || len(sv.m) == 0 {
		return ""
	}
	keys := maps.Keys(sv.m)
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(sv.m[k])
	}
	return b.String()
}
