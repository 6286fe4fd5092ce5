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
	"gopkg.in/yaml.v3"

	"structsketch/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration and manage tokens",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		data, err := yaml.Marshal(appCfg)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := config.ConfigPath()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), p)
		return nil
	},
}

var configTokenCmd = &cobra.Command{
	Use:   "token <solver|systems> [value]",
	Short: "Store a token in the OS keychain; without a value the token is removed",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var key string
		switch args[0] {
		case "solver":
			key = config.KeySolverToken
		case "systems":
			key = config.KeySystemsToken
		default:
			return fmt.Errorf("unknown token %q (want solver or systems)", args[0])
		}
		value := ""
		if len(args) == 2 {
			value = args[1]
		}
		if err := config.SetToken(key, value); err != nil {
			return err
		}
		if value == "" {
			fmt.Fprintf(cmd.OutOrStdout(), "%s token removed\n", args[0])
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "%s token stored\n", args[0])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd, configPathCmd, configTokenCmd)
}
