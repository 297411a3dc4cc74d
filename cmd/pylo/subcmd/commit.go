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
	"time"

	"github.com/chunga-ict/pylo/kernel/model"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(NewCommitCommand())
}

func NewCommitCommand() *cobra.Command {
	commitCmd := &CommitCommand{}

	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Commit the candidate configuration on every member and wait for the jobs",
		Args:  cobra.NoArgs,
		RunE:  commitCmd.commit,
	}

	commitCmd.Inventory.bind(cmd)
	cmd.Flags().DurationVar(&commitCmd.Budget, "budget", 0, "overall time budget for the commit jobs (default: timing.commitBudget)")
	cmd.Flags().StringSliceVar(&commitCmd.Hosts, "host", nil, "only commit these members")

	return cmd
}

type CommitCommand struct {
	Inventory InventoryFlags
	Budget    time.Duration
	Hosts     []string
}

func (c *CommitCommand) commit(cmd *cobra.Command, args []string) error {
	env, err := openEnvironment(&c.Inventory, cmd.OutOrStdout(), true)
	if err != nil {
		return err
	}
	defer env.Close()

	devices, err := selectDevices(env.inventory, c.Hosts)
	if err != nil {
		return err
	}
	budget := c.Budget
	if budget <= 0 {
		budget = env.inventory.Timing.CommitBudget
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()

	devices, err = env.reconciler.OpenSessions(ctx, devices)
	if err != nil {
		return err
	}
	mctx := model.NewContext(env.inventory, "")
	result, err := env.reconciler.Commits(mctx).RunCommits(ctx, devices, budget)
	if err != nil {
		return err
	}

	env.progress.Stop()
	env.console.CommitTable("commit", result)
	if !result.Settled() {
		return errors.New("commit did not complete on every member")
	}
	return nil
}

func selectDevices(inv *model.Inventory, hosts []string) ([]*model.Device, error) {
	if len(hosts) == 0 {
		return inv.Devices, nil
	}
	var out []*model.Device
	seen := make(map[string]struct{}, len(hosts))
	for _, host := range hosts {
		if _, dup := seen[host]; dup {
			continue
		}
		seen[host] = struct{}{}
		dev, err := inv.GetDevice(host)
		if err != nil {
			return nil, err
		}
		out = append(out, dev)
	}
	return out, nil
}
