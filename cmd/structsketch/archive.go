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

	"structsketch/internal/storage"
)

var (
	archivePrefix    string
	archiveOverwrite bool
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Move library systems in and out of zip archives",
}

var archiveExportCmd = &cobra.Command{
	Use:   "export <dest.zip>",
	Short: "Write library systems into a zip archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, err := openLibrary(cmd.Context())
		if err != nil {
			return err
		}
		defer lib.Close()
		n, err := storage.ExportArchive(cmd.Context(), lib, archivePrefix, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "archived %d system(s) to %s\n", n, args[0])
		return nil
	},
}

var archiveImportCmd = &cobra.Command{
	Use:   "import <src.zip>",
	Short: "Add the systems of a zip archive to the library",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, err := openLibrary(cmd.Context())
		if err != nil {
			return err
		}
		defer lib.Close()
		n, err := storage.ImportArchive(cmd.Context(), lib, args[0], archiveOverwrite)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d system(s)\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(archiveCmd)
	archiveExportCmd.Flags().StringVar(&archivePrefix, "prefix", "", "only systems whose name starts with this")
	archiveImportCmd.Flags().BoolVar(&archiveOverwrite, "overwrite", false, "replace systems that already exist")
	archiveCmd.AddCommand(archiveExportCmd, archiveImportCmd)
}
