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
	"fmt"
	"strings"
	"testing"

	"github.com/cockroachdb/datadriven"
	"github.com/cockroachdb/planrw/pkg/sql/pgwire/pgerror"
	"github.com/stretchr/testify/require"
)

var enumA = RegisterEnumSetting("test.enum", "an enum", "a", "a", "b", "c")
var boolT = RegisterBoolSetting("test.bool", "a bool", true)

func init() {
	Hide("test.enum")
	Hide("test.bool")
}

func TestDefaults(t *testing.T) {
	v, err := enumA.Get(nil)
	require.NoError(t, err)
	require.Equal(t, "a", v)

	b, err := boolT.Get(&Values{})
	require.NoError(t, err)
	require.True(t, b)

	s, desc, ok := Lookup("test.enum")
	require.True(t, ok)
	require.Equal(t, "an enum", desc)
	require.Equal(t, "e", s.Typ())
	require.NotContains(t, Keys(), "test.enum")

	_, _, ok = Lookup("dne")
	require.False(t, ok)
}

func TestRegisterPanics(t *testing.T) {
	require.Panics(t, func() { RegisterBoolSetting("test.bool", "dup", false) })
	require.Panics(t, func() { RegisterEnumSetting("test.bad", "", "z", "a") })
}

// TestValues runs the datadriven scripts in testdata. Commands:
//
//	set key=value ...  stores values; prints errors
//	get                prints the enum and bool test settings
func TestValues(t *testing.T) {
	datadriven.RunTest(t, "testdata/values", func(t *testing.T, d *datadriven.TestData) string {
		sv := &Values{}
		switch d.Cmd {
		case "get":
			kv := make(map[string]string)
			for _, arg := range d.CmdArgs {
				kv[arg.Key] = arg.Vals[0]
			}
			var err error
			if sv, err = MakeValues(kv); err != nil {
				return fmt.Sprintf("error: %v\n", err)
			}
			var out strings.Builder
			if e, err := enumA.Get(sv); err != nil {
				fmt.Fprintf(&out, "test.enum: error (%s): %v\n", pgerror.GetPGCode(err), err)
			} else {
				fmt.Fprintf(&out, "test.enum: %s\n", e)
			}
			if b, err := boolT.Get(sv); err != nil {
				fmt.Fprintf(&out, "test.bool: error (%s): %v\n", pgerror.GetPGCode(err), err)
			} else {
				fmt.Fprintf(&out, "test.bool: %t\n", b)
			}
			return out.String()
		default:
			d.Fatalf(t, "unknown command %s", d.Cmd)
			return ""
		}
	})
}
