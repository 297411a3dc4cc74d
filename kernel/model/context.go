package model

import "github.com/google/uuid"

// Context carries one deployment run: the inventory being applied and the run
// identity used for logging and reporting.
type Context struct {
	Inventory *Inventory
	RunId     string
	DryRun    bool
}

func NewContext(inv *Inventory, runId string) *Context {
	if runId == "" {
		runId = NewRunId()
	}
	return &Context{
		Inventory: inv,
		RunId:     runId,
	}
}

func (c *Context) GetInventory() *Inventory {
	return c.Inventory
}

func (c *Context) WithDryRun(dryRun bool) *Context {
	clone := *c
	clone.DryRun = dryRun
	return &clone
}

// NewRunId returns a time ordered identifier, so run listings sort naturally.
func NewRunId() string {
	return uuid.Must(uuid.NewV7()).String()
}
