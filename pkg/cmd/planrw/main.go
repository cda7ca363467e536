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

// planrw rewrites the plans of YAML scenarios and prints the result.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/planrw/pkg/sql/pgwire/pgerror"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "planrw",
		Short:         "rewrite logical query plans into nested-loop execution plans",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newOptCmd(), newBuildCmd(), newSettingsCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

// printError renders err the way a SQL client would: the message with its
// SQLSTATE, followed by the details attached to it.
func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "ERROR: %s\nSQLSTATE: %s\n", err, pgerror.GetPGCode(err))
	if d := errors.FlattenDetails(err); d != "" {
		fmt.Fprintf(w, "DETAIL: %s\n", d)
	}
	if h := errors.FlattenHints(err); h != "" {
		fmt.Fprintf(w, "HINT: %s\n", h)
	}
}
