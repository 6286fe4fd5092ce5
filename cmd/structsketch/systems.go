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
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"structsketch/internal/config"
	"structsketch/internal/storage"
	"structsketch/internal/ui"
)

var (
	systemsRemote bool
	systemsTTL    time.Duration
)

var systemsCmd = &cobra.Command{
	Use:   "systems",
	Short: "Manage named systems in the local library or on the server",
	Long: `Manage named systems.

By default the local SQLite library is used. With --remote the shared systems
server from the config is used; authenticate first with 'systems login'.`,
}

var systemsListCmd = &cobra.Command{
	Use:   "list [prefix]",
	Short: "List stored systems",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSystemsList,
}

var systemsPushCmd = &cobra.Command{
	Use:   "push <file> [name]",
	Short: "Store a system file under a name (default: the system name)",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runSystemsPush,
}

var systemsPullCmd = &cobra.Command{
	Use:   "pull <name> <file>",
	Short: "Write a stored system to a file",
	Args:  cobra.ExactArgs(2),
	RunE:  runSystemsPull,
}

var systemsDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a stored system",
	Args:  cobra.ExactArgs(1),
	RunE:  runSystemsDelete,
}

var systemsLoginCmd = &cobra.Command{
	Use:   "login <subject>",
	Short: "Obtain a server token and keep it in the OS keychain",
	Args:  cobra.ExactArgs(1),
	RunE:  runSystemsLogin,
}

var systemsHistoryCmd = &cobra.Command{
	Use:   "history <name>",
	Short: "List the kept revisions of a library system",
	Args:  cobra.ExactArgs(1),
	RunE:  runSystemsHistory,
}

var systemsRestoreCmd = &cobra.Command{
	Use:   "restore <name> <revision>",
	Short: "Make a kept revision the current version",
	Args:  cobra.ExactArgs(2),
	RunE:  runSystemsRestore,
}

var systemsThumbCmd = &cobra.Command{
	Use:   "thumbnail <name> <out.png>",
	Short: "Write the cached preview image of a library system",
	Args:  cobra.ExactArgs(2),
	RunE:  runSystemsThumbnail,
}

func init() {
	rootCmd.AddCommand(systemsCmd)
	systemsCmd.PersistentFlags().BoolVar(&systemsRemote, "remote", false, "use the systems server instead of the local library")
	systemsLoginCmd.Flags().DurationVar(&systemsTTL, "ttl", time.Hour, "token lifetime")
	systemsCmd.AddCommand(systemsListCmd, systemsPushCmd, systemsPullCmd, systemsDeleteCmd, systemsLoginCmd,
		systemsHistoryCmd, systemsRestoreCmd, systemsThumbCmd)
}

func runSystemsList(cmd *cobra.Command, args []string) error {
	prefix := ""
	if len(args) == 1 {
		prefix = args[0]
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tNODES\tMEMBERS\tUPDATED")
	if systemsRemote {
		c, err := systemsClient()
		if err != nil {
			return err
		}
		list, err := c.ListSystems(cmd.Context())
		if err != nil {
			return err
		}
		for _, s := range list {
			if !strings.HasPrefix(s.Name, prefix) {
				continue
			}
			fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", s.Name, s.Nodes, s.Members, s.UpdatedAt.Local().Format(time.DateTime))
		}
		return tw.Flush()
	}
	lib, err := openLibrary(cmd.Context())
	if err != nil {
		return err
	}
	defer lib.Close()
	list, err := lib.List(cmd.Context(), prefix)
	if err != nil {
		return err
	}
	for _, e := range list {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", e.Name, e.Nodes, e.Members, e.UpdatedAt.Local().Format(time.DateTime))
	}
	return tw.Flush()
}

func runSystemsPush(cmd *cobra.Command, args []string) error {
	store, err := loadSystem(args[0])
	if err != nil {
		return err
	}
	name := store.Meta().Name
	if len(args) == 2 {
		name = args[1]
	}
	if name == "" {
		return fmt.Errorf("%s has no name; pass one as second argument", args[0])
	}
	snap := store.ExportSnapshot()
	if systemsRemote {
		c, err := systemsClient()
		if err != nil {
			return err
		}
		sum, err := c.SaveSystem(cmd.Context(), name, snap)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "stored %s (version %d)\n", sum.Name, sum.Version)
		return nil
	}
	lib, err := openLibrary(cmd.Context())
	if err != nil {
		return err
	}
	defer lib.Close()
	if err := lib.Save(cmd.Context(), name, snap); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "stored %s\n", name)
	return nil
}

func runSystemsPull(cmd *cobra.Command, args []string) error {
	name, path := args[0], args[1]
	if systemsRemote {
		c, err := systemsClient()
		if err != nil {
			return err
		}
		snap, err := c.GetSystem(cmd.Context(), name)
		if err != nil {
			return err
		}
		return storage.SaveFile(path, snap)
	}
	lib, err := openLibrary(cmd.Context())
	if err != nil {
		return err
	}
	defer lib.Close()
	snap, err := lib.Load(cmd.Context(), name)
	if err != nil {
		return err
	}
	return storage.SaveFile(path, snap)
}

func runSystemsDelete(cmd *cobra.Command, args []string) error {
	if systemsRemote {
		c, err := systemsClient()
		if err != nil {
			return err
		}
		return c.DeleteSystem(cmd.Context(), args[0])
	}
	lib, err := openLibrary(cmd.Context())
	if err != nil {
		return err
	}
	defer lib.Close()
	return lib.Delete(cmd.Context(), args[0])
}

func runSystemsLogin(cmd *cobra.Command, args []string) error {
	c, err := systemsClient()
	if err != nil {
		return err
	}
	tok, err := c.IssueToken(cmd.Context(), args[0], systemsTTL)
	if err != nil {
		return err
	}
	if err := config.SetToken(config.KeySystemsToken, tok); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s\n", args[0])
	return nil
}

func runSystemsHistory(cmd *cobra.Command, args []string) error {
	lib, err := openLibrary(cmd.Context())
	if err != nil {
		return err
	}
	defer lib.Close()
	revs, err := lib.Revisions(cmd.Context(), args[0], 0)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "REVISION\tNODES\tMEMBERS\tSAVED")
	for _, r := range revs {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%s\n", r.ID, r.Nodes, r.Members, r.SavedAt.Local().Format(time.DateTime))
	}
	return tw.Flush()
}

func runSystemsRestore(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid revision %q", args[1])
	}
	lib, err := openLibrary(cmd.Context())
	if err != nil {
		return err
	}
	defer lib.Close()
	if err := lib.Restore(cmd.Context(), args[0], id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "restored %s to revision %d\n", args[0], id)
	return nil
}

func runSystemsThumbnail(cmd *cobra.Command, args []string) error {
	lib, err := openLibrary(cmd.Context())
	if err != nil {
		return err
	}
	defer lib.Close()
	b, err := ui.LibraryThumbnail(cmd.Context(), lib, args[0])
	if err != nil {
		return err
	}
	return os.WriteFile(args[1], b, 0o644)
}
