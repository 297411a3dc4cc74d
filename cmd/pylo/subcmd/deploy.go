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

	"github.com/chunga-ict/pylo/kernel/engine"
	"github.com/chunga-ict/pylo/kernel/model"
	"github.com/chunga-ict/pylo/kernel/ui"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(NewDeployCommand())
}

func NewDeployCommand() *cobra.Command {
	deployCmd := &DeployCommand{}

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Configure HA on the pair, commit, and converge the active member",
		Long: `Deploy runs the whole pipeline against the inventory:

  1. open an API session on every member
  2. apply the HA domains to every member and commit
  3. discover the active member
  4. apply the network domains to the active member and commit
  5. synchronize the running config to the passive peer

With --dry-run the inventory is validated and the planned requests are listed
without contacting any device.`,
		Args: cobra.NoArgs,
		RunE: deployCmd.deploy,
	}

	deployCmd.Inventory.bind(cmd)
	cmd.Flags().BoolVar(&deployCmd.DryRun, "dry-run", false, "validate the inventory and list the plan without contacting devices")
	cmd.Flags().StringVar(&deployCmd.RunId, "run-id", "", "explicit run id (default: generated)")

	return cmd
}

type DeployCommand struct {
	Inventory InventoryFlags
	DryRun    bool
	RunId     string
}

func (d *DeployCommand) deploy(cmd *cobra.Command, args []string) error {
	if d.DryRun {
		return d.plan(cmd)
	}

	env, err := openEnvironment(&d.Inventory, cmd.OutOrStdout(), true)
	if err != nil {
		return err
	}
	defer env.Close()

	banner(env.console, "PAN-OS HA deployment of "+env.inventory.Id)

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()

	mctx := model.NewContext(env.inventory, d.RunId)
	logrus.Infof("deploy: run [%s] of inventory [%s] over %d device(s)", mctx.RunId, env.inventory.Id, len(env.inventory.Devices))

	report, err := env.reconciler.Reconcile(ctx, mctx)
	env.progress.Stop()
	env.console.Report(report)
	if err != nil {
		return errors.Wrapf(err, "deployment run [%s] %s", report.RunId, report.State)
	}
	if report.State != model.RunConverged {
		return errors.Errorf("deployment run [%s] %s", report.RunId, report.State)
	}
	return nil
}

func (d *DeployCommand) plan(cmd *cobra.Command) error {
	inv, err := d.Inventory.load()
	if err != nil {
		return errors.Wrap(err, "failed to load inventory")
	}

	console := ui.NewConsole(cmd.OutOrStdout())
	mctx := model.NewContext(inv, d.RunId).WithDryRun(true)

	// planning never touches the store or a device
	planner := engine.NewReconciler(nil, nil, engine.ReconcilerOptions{})
	report, err := planner.Reconcile(cmd.Context(), mctx)
	if err != nil {
		return errors.Wrap(err, "failed to plan deployment")
	}
	console.Report(report)
	return nil
}
