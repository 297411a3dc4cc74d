/*
	(c) Copyright NetFoundry Inc. Inc.

	Licensed under the Apache License, Version 2.0 (the "License");
	you may not use this file except in compliance with the License.
	You may obtain a copy of the License at

	https://www.apache.org/licenses/LICENSE-2.0

	Unless required by applicable law or agreed to in writing, software
	distributed under the License is distributed on an "AS IS" BASIS,
	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
	See the License for the specific language governing permissions and
	limitations under the License.
*/

package subcmd

import (
	"os"
	"os/signal"

	"github.com/chunga-ict/pylo/kernel/model"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(NewSyncCommand())
}

func NewSyncCommand() *cobra.Command {
	syncCmd := &SyncCommand{}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Make sure the active member's running config is synchronized to its peer",
		Long: `Sync queries the HA state of the given members (or discovers the active
member), triggers a sync-to-remote when the pair is not synchronized and waits
for the pair to converge.`,
		Args: cobra.NoArgs,
		RunE: syncCmd.sync,
	}

	syncCmd.Inventory.bind(cmd)
	cmd.Flags().StringSliceVar(&syncCmd.Hosts, "host", nil, "members to synchronize (default: the active member)")
	cmd.Flags().IntVar(&syncCmd.Attempts, "attempts", 0, "status polls before giving up (default: timing.syncAttempts)")

	return cmd
}

type SyncCommand struct {
	Inventory InventoryFlags
	Hosts     []string
	Attempts  int
}

func (s *SyncCommand) sync(cmd *cobra.Command, args []string) error {
	env, err := openEnvironment(&s.Inventory, cmd.OutOrStdout(), true)
	if err != nil {
		return err
	}
	defer env.Close()

	if s.Attempts > 0 {
		env.inventory.Timing.SyncAttempts = s.Attempts
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()

	devices, err := selectDevices(env.inventory, s.Hosts)
	if err != nil {
		return err
	}
	devices, err = env.reconciler.OpenSessions(ctx, devices)
	if err != nil {
		return err
	}
	if len(s.Hosts) == 0 {
		active, err := env.reconciler.FindActive(ctx, devices)
		if err != nil {
			return err
		}
		devices = []*model.Device{active}
	}

	outcomes := env.reconciler.SyncEngine(model.NewContext(env.inventory, "")).SyncAll(ctx, devices)
	env.console.SyncTable(outcomes)
	for host, outcome := range outcomes {
		if outcome.Verdict != model.VerdictSynchronized {
			return errors.Errorf("[%s] did not synchronize: %s", host, outcome.Verdict)
		}
	}
	return nil
}
