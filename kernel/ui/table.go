package ui

import (
	"fmt"
	"time"

	"github.com/chunga-ict/pylo/kernel/model"
	"github.com/jedib0t/go-pretty/v6/table"
)

func (c *Console) newTable(title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(c.Out)
	t.SetTitle(title)
	if c.Interactive {
		t.SetStyle(table.StyleRounded)
	} else {
		t.SetStyle(table.StyleLight)
	}
	return t
}

// CommitTable renders one row per device of a commit result.
func (c *Console) CommitTable(title string, result *model.CommitResult) {
	t := c.newTable(title)
	t.AppendHeader(table.Row{"Host", "Job", "Verdict", "Progress"})
	for _, host := range result.Hosts() {
		job, found := result.Jobs[host]
		jobId, progress := "-", "-"
		if found {
			jobId = job.JobId
			progress = fmt.Sprintf("%d%%", job.Progress)
		}
		t.AppendRow(table.Row{host, jobId, c.CommitVerdict(result.Verdict(host)), progress})
	}
	t.AppendFooter(table.Row{"", "", fmt.Sprintf("%d rounds", result.Rounds), result.Elapsed.Round(time.Millisecond)})
	t.Render()
}

// SyncTable renders the HA sync outcomes sorted by host.
func (c *Console) SyncTable(outcomes map[string]model.SyncOutcome) {
	t := c.newTable("HA sync")
	t.AppendHeader(table.Row{"Host", "Verdict", "Attempts", "Triggered", "Last State", "Error"})
	t.SortBy([]table.SortBy{{Name: "Host", Mode: table.Asc}})
	for host, o := range outcomes {
		t.AppendRow(table.Row{host, c.SyncVerdict(o.Verdict), o.Attempts, o.Triggered, o.LastState, o.Error})
	}
	t.Render()
}

// DeviceTable renders the last known state of every device.
func (c *Console) DeviceTable(title string, states []model.DeviceState) {
	t := c.newTable(title)
	t.AppendHeader(table.Row{"Host", "Active", "Commit", "Sync", "Run", "Updated"})
	for _, s := range states {
		active := ""
		if s.Active {
			active = c.Good("active")
		}
		t.AppendRow(table.Row{s.Host, active, c.CommitVerdict(s.Commit), c.SyncVerdict(s.Sync), s.RunId, s.UpdatedAt.Format("2006-01-02 15:04:05")})
	}
	t.Render()
}

// Report prints a summary of a deployment run.
func (c *Console) Report(report *model.DeploymentReport) {
	c.Printf("run %s of inventory %s: %s\n", report.RunId, report.InventoryId, c.RunState(report.State))
	for _, phase := range report.Phases {
		t := c.newTable(fmt.Sprintf("%s phase", phase.Phase))
		t.AppendHeader(table.Row{"Host", "Requests", "Commit"})
		for _, host := range phase.Hosts {
			verdict := model.CommitVerdict("")
			if phase.Commit != nil {
				verdict = phase.Commit.Verdict(host)
			}
			t.AppendRow(table.Row{host, phase.Applied[host], c.CommitVerdict(verdict)})
		}
		if len(phase.Skipped) > 0 {
			t.SetCaption("skipped: %v", phase.Skipped)
		}
		t.Render()
	}
	if report.ActiveHost != "" {
		c.Printf("active member: %s\n", c.Good(report.ActiveHost))
	}
	if len(report.Sync) > 0 {
		c.SyncTable(report.Sync)
	}
	if report.Error != "" {
		c.Printf("%s %s\n", c.Bad("error:"), report.Error)
	}
}
