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

// Package settings holds the string-keyed options that configure the plan
// rewriter. Settings are registered once at init time by the package that
// reads them; a Values carries the raw strings for one pipeline.
package settings

import (
	"fmt"
	"sort"
	"sync/atomic"
)

// registry contains all defined settings, their types and default values.
//
// Registry should never be mutated after init (except in tests), as it is read
// concurrently by different callers.
var registry = map[string]wrappedSetting{}

// frozen becomes non-zero once the registry is "live".
var frozen int32

// Freeze ensures that no new settings can be defined.
func Freeze() { atomic.StoreInt32(&frozen, 1) }

func assertNotFrozen(key string) {
	if atomic.LoadInt32(&frozen) > 0 {
		panic(fmt.Sprintf("registration must occur before first use: %s", key))
	}
}

// register adds a setting to the registry.
func register(s Setting) {
	assertNotFrozen(s.Key())
	if _, ok := registry[s.Key()]; ok {
		panic(fmt.Sprintf("setting already defined: %s", s.Key()))
	}
	registry[s.Key()] = wrappedSetting{setting: s}
}

type wrappedSetting struct {
	hidden  bool
	setting Setting
}

// Hide prevents a setting from showing up in Keys. It can still be set and
// read if the exact key is known.
func Hide(key string) {
	assertNotFrozen(key)
	s, ok := registry[key]
	if !ok {
		panic(fmt.Sprintf("setting not found: %s", key))
	}
	s.hidden = true
	registry[key] = s
}

// Keys returns a sorted string array with all the known keys.
func Keys() (res []string) {
	res = make([]string, 0, len(registry))
	for k := range registry {
		if registry[k].hidden {
			continue
		}
		res = append(res, k)
	}
	sort.Strings(res)
	return res
}

// Lookup returns a Setting by name along with its description.
func Lookup(name string) (Setting, string, bool) {
	v, ok := registry[name]
	if !ok {
		return nil, "", false
	}
	return v.setting, v.setting.Description(), true
}
