// Copyright 2026 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/catalog-query/genquery/genquery"
	"github.com/spf13/cobra"
)

// NewCompileCommand returns the `genquery compile` subcommand, a one-shot
// way to translate a GenQuery statement into SQL without starting a
// server — useful for checking a statement compiles before wiring it
// into an application.
func NewCompileCommand(root *Command) *cobra.Command {
	var username string
	var adminMode bool
	var file string

	cmd := &cobra.Command{
		Use:   "compile [source]",
		Short: "Compile a GenQuery statement into SQL",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cc *cobra.Command, args []string) error {
			source, err := readCompileSource(args, file)
			if err != nil {
				return err
			}
			return runCompile(root, source, username, adminMode)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&username, "username", "", "Username the statement is compiled on behalf of.")
	flags.BoolVar(&adminMode, "admin", false, "Compile with admin privileges.")
	flags.StringVarP(&file, "file", "f", "", "Read the GenQuery statement from a file instead of an argument.")

	return cmd
}

func readCompileSource(args []string, file string) (string, error) {
	if file != "" {
		buf, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("unable to read source file %q: %w", file, err)
		}
		return string(buf), nil
	}
	if len(args) == 1 {
		return args[0], nil
	}
	buf, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("unable to read source from stdin: %w", err)
	}
	return string(buf), nil
}

func runCompile(root *Command, source, username string, adminMode bool) error {
	result, compErr := genquery.Compile(source, genquery.Options{Username: username, AdminMode: adminMode})
	if compErr != nil {
		return fmt.Errorf("%s", compErr.Error())
	}
	fmt.Fprintln(root.outStream, result.SQL)
	for _, v := range result.LastBoundValues() {
		fmt.Fprintf(root.outStream, "-- bound: %s\n", v)
	}
	return nil
}
