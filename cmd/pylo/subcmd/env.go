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
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/chunga-ict/pylo/kernel/engine"
	"github.com/chunga-ict/pylo/kernel/loader"
	"github.com/chunga-ict/pylo/kernel/model"
	"github.com/chunga-ict/pylo/kernel/panos"
	"github.com/chunga-ict/pylo/kernel/report"
	"github.com/chunga-ict/pylo/kernel/store"
	"github.com/chunga-ict/pylo/kernel/ui"
	"github.com/michaelquigley/pfxlog"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const passwordEnv = "PYLO_PASSWORD"

// InventoryFlags are shared by every command that works on an inventory.
type InventoryFlags struct {
	InventoryPath  string
	LegacyManifest string
	StateDir       string
}

func (f *InventoryFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.InventoryPath, "inventory", "i", "", "path to the inventory YAML")
	cmd.Flags().StringVar(&f.LegacyManifest, "legacy-manifest", "", "path to an automation_urls_pa.json manifest")
	cmd.Flags().StringVar(&f.StateDir, "state-dir", "", "directory for run history (default: reporting.directory or ~/.pylo)")
}

func (f *InventoryFlags) load() (*model.Inventory, error) {
	switch {
	case f.InventoryPath != "" && f.LegacyManifest != "":
		return nil, errors.New("--inventory and --legacy-manifest are mutually exclusive")
	case f.InventoryPath != "":
		return loader.LoadInventory(f.InventoryPath)
	case f.LegacyManifest != "":
		return loader.LoadLegacyManifest(f.LegacyManifest)
	default:
		return nil, errors.New("one of --inventory or --legacy-manifest is required")
	}
}

func (f *InventoryFlags) stateDir(inv *model.Inventory) (string, error) {
	if f.StateDir != "" {
		return f.StateDir, nil
	}
	if inv != nil && inv.Reporting.Directory != "" {
		return inv.Reporting.Directory, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "unable to locate home directory, use --state-dir")
	}
	return filepath.Join(home, ".pylo"), nil
}

// environment is everything a device facing command needs.
type environment struct {
	inventory  *model.Inventory
	store      store.ResourceStore
	reconciler *engine.Reconciler
	console    *ui.Console
	progress   *ui.CommitProgress
	closeSinks func()
}

func openEnvironment(f *InventoryFlags, out io.Writer, prompt bool) (*environment, error) {
	inv, err := f.load()
	if err != nil {
		return nil, err
	}
	if err := fillPasswords(inv, prompt); err != nil {
		return nil, err
	}

	dir, err := f.stateDir(inv)
	if err != nil {
		return nil, err
	}
	client, err := panos.NewClient(panos.ClientConfig{
		TLS:     inv.TLS,
		Timeout: inv.Timing.RequestTimeout,
		Log:     pfxlog.Logger().WithField("inventory", inv.Id),
	})
	if err != nil {
		return nil, err
	}
	sinks, closeSinks, err := report.SinksFor(inv.Reporting)
	if err != nil {
		closeSinks()
		return nil, err
	}

	console := ui.NewConsole(out)
	progress := ui.NewCommitProgress(console)
	env := &environment{
		inventory:  inv,
		store:      store.NewFileStore(dir),
		console:    console,
		progress:   progress,
		closeSinks: closeSinks,
	}
	env.reconciler = engine.NewReconciler(env.store, client, engine.ReconcilerOptions{
		Log:      pfxlog.Logger().WithField("inventory", inv.Id),
		Observer: progress,
		Sinks:    sinks,
	})
	return env, nil
}

func (e *environment) Close() {
	e.progress.Stop()
	e.closeSinks()
}

// fillPasswords asks for the password of every device the inventory left
// without one. PYLO_PASSWORD answers for all of them.
func fillPasswords(inv *model.Inventory, prompt bool) error {
	shared := os.Getenv(passwordEnv)
	for _, dev := range inv.Devices {
		if dev.Password != "" || dev.HasSession() {
			continue
		}
		if shared != "" {
			dev.Password = shared
			continue
		}
		if !prompt {
			continue
		}
		pw, err := ui.ReadPassword(fmt.Sprintf("password for %s@%s: ", dev.Username, dev.Host))
		if err != nil {
			return errors.Wrapf(err, "no password for [%s], set %s or add it to the inventory", dev.Host, passwordEnv)
		}
		dev.Password = pw
	}
	return nil
}

func banner(console *ui.Console, subtitle string) {
	if rootOptions.noBanner {
		return
	}
	console.Banner(rootOptions.fontDir, "pylo", subtitle)
}
