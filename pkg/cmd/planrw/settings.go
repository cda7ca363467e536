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

package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/cockroachdb/planrw/pkg/settings"
	"github.com/spf13/cobra"
)

func newSettingsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "settings",
		Short: "list the settings that configure the rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 1, 2, ' ', 0)
			fmt.Fprint(w, "setting\ttype\tdefault\tdescription\n")
			for _, k := range settings.Keys() {
				s, desc, _ := settings.Lookup(k)
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", k, s.Typ(), s.Default(), desc)
			}
			return w.Flush()
		},
	}
}
