/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"structsketch/internal/hinge"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a system for modelling errors",
	Long: `Check a system for modelling errors before analysis.

Errors such as unresolved double hinges or dangling loads make the command
fail; warnings are printed only.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	store, err := loadSystem(args[0])
	if err != nil {
		return err
	}
	findings := hinge.Validate(store)
	out := cmd.OutOrStdout()
	for _, f := range findings {
		fmt.Fprintln(out, f.Error())
	}
	if hinge.Blocking(findings) {
		return fmt.Errorf("%s: system has blocking findings", args[0])
	}
	if len(findings) == 0 {
		fmt.Fprintln(out, "ok")
	}
	return nil
}
