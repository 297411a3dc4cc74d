package subcmd

import (
	"sort"

	"github.com/chunga-ict/pylo/kernel/model"
	"github.com/chunga-ict/pylo/kernel/store"
	"github.com/chunga-ict/pylo/kernel/ui"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(NewStatusCommand())
}

func NewStatusCommand() *cobra.Command {
	statusCmd := &StatusCommand{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the latest deployment run and the device states it recorded",
		Args:  cobra.NoArgs,
		RunE:  statusCmd.status,
	}

	cmd.Flags().StringVar(&statusCmd.StateDir, "state-dir", "", "directory holding run history (default: ~/.pylo)")
	cmd.Flags().StringVar(&statusCmd.RunId, "run", "", "show this run instead of the latest")
	cmd.Flags().BoolVar(&statusCmd.List, "list", false, "list recorded run ids")

	return cmd
}

type StatusCommand struct {
	StateDir string
	RunId    string
	List     bool
}

func (s *StatusCommand) status(cmd *cobra.Command, args []string) error {
	dir, err := (&InventoryFlags{StateDir: s.StateDir}).stateDir(nil)
	if err != nil {
		return err
	}
	fs := store.NewFileStore(dir)
	console := ui.NewConsole(cmd.OutOrStdout())

	if s.List {
		runIds, err := fs.ListRuns()
		if err != nil {
			return err
		}
		for _, runId := range runIds {
			console.Printf("%s\n", runId)
		}
		return nil
	}

	var report *model.DeploymentReport
	if s.RunId != "" {
		report, err = fs.GetRun(s.RunId)
	} else {
		report, err = store.LatestRun(fs)
	}
	if err != nil {
		return err
	}
	if report == nil {
		return errors.Errorf("no runs recorded in [%s]", dir)
	}

	console.Report(report)

	devices, err := fs.GetDevices(report.InventoryId)
	if err != nil {
		return err
	}
	states := make([]model.DeviceState, 0, len(devices))
	for _, state := range devices {
		states = append(states, state)
	}
	sort.Slice(states, func(i, j int) bool { return states[i].Host < states[j].Host })
	console.DeviceTable("devices of "+report.InventoryId, states)
	return nil
}
