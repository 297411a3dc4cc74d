package loader

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chunga-ict/pylo/kernel/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const groupTemplate = `<group><id>1</id><election-option><device-priority>{{.Priority}}</device-priority><preemptive>{{.Preemptive}}</preemptive></election-option><peer-ip>{{.PeerIp}}</peer-ip></group>`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadInventory_Basic(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "templates/ha-group.xml", groupTemplate)
	path := writeFile(t, dir, "lab.yml", `
inventory:
  id: eve-lab

devices:
  - host: 192.0.2.10
    username: admin
    password: admin
    ha:
      priority: 100
      preemptive: true
      peerIp: 1.1.1.2
      ha1Ip: 1.1.1.1
  - host: fw2.lab
    username: admin
    ha:
      priority: 110
      peerIp: 1.1.1.1
      ha1Ip: 1.1.1.2

templates:
  ha-group: templates/ha-group.xml

timing:
  commitBudget: 5m
  syncAttempts: 4

reporting:
  directory: runs
  s3:
    bucket: pylo-reports
    region: eu-west-1
`)

	inv, err := LoadInventory(path)
	require.NoError(t, err)

	assert.Equal(t, "eve-lab", inv.Id)
	require.Len(t, inv.Devices, 2)
	assert.Equal(t, "192.0.2.10", inv.Devices[0].Host)
	assert.Equal(t, 100, inv.Devices[0].HA.Priority)
	assert.True(t, inv.Devices[0].HA.Preemptive)
	assert.Equal(t, "1.1.1.2", inv.Devices[1].HA.Ha1Ip)
	assert.Empty(t, inv.Devices[1].Password)

	assert.Equal(t, groupTemplate, inv.Templates["ha-group"])
	assert.Equal(t, model.DefaultHAPorts, inv.HAPorts())

	assert.Equal(t, 5*time.Minute, inv.Timing.CommitBudget)
	assert.Equal(t, 4, inv.Timing.SyncAttempts)
	assert.Equal(t, model.DefaultSyncInterval, inv.Timing.SyncInterval)
	assert.Equal(t, model.DefaultCommitRoundDelay, inv.Timing.CommitRoundDelay)

	assert.Equal(t, filepath.Join(dir, "runs"), inv.Reporting.Directory)
	require.NotNil(t, inv.Reporting.S3)
	assert.Equal(t, "pylo-reports", inv.Reporting.S3.Bucket)
	assert.Nil(t, inv.Reporting.Influx)
}

func TestParseInventory_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		msg  string
	}{
		{
			name: "missing id",
			yaml: "devices:\n  - host: fw1\n    username: admin\n",
			msg:  "inventory.id",
		},
		{
			name: "no devices",
			yaml: "inventory:\n  id: x\n",
			msg:  "devices",
		},
		{
			name: "duplicate host",
			yaml: "inventory:\n  id: x\ndevices:\n  - host: fw1\n    username: a\n  - host: fw1\n    username: b\n",
			msg:  "duplicate device host [fw1]",
		},
		{
			name: "unknown domain",
			yaml: "inventory:\n  id: x\ndevices:\n  - host: fw1\n    username: a\ntemplates:\n  bgp: bgp.xml\n",
			msg:  "unknown configuration domains [bgp]",
		},
		{
			name: "bad duration",
			yaml: "inventory:\n  id: x\ndevices:\n  - host: fw1\n    username: a\ntiming:\n  syncInterval: soon\n",
			msg:  "timing.syncInterval",
		},
		{
			name: "unknown field",
			yaml: "inventory:\n  id: x\n  region: us\ndevices:\n  - host: fw1\n    username: a\n",
			msg:  "region",
		},
		{
			name: "bad peer ip",
			yaml: "inventory:\n  id: x\ndevices:\n  - host: fw1\n    username: a\n    ha:\n      peerIp: nope\n",
			msg:  "peerIp",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseInventory([]byte(tt.yaml), t.TempDir())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestLoadInventory_MissingTemplate(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "lab.yml", "inventory:\n  id: x\ndevices:\n  - host: fw1\n    username: a\ntemplates:\n  zones: zones.xml\n")

	_, err := LoadInventory(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zones")
}

func TestLoadInventory_MissingFile(t *testing.T) {
	_, err := LoadInventory(filepath.Join(t.TempDir(), "absent.yml"))
	assert.Error(t, err)
}
