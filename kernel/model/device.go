package model

import "strings"

// Device is one firewall of the HA pair. The engines borrow it for the length
// of a call and never modify it; a session key is attached by returning a copy.
type Device struct {
	Host     string
	Username string
	Password string
	ApiKey   string
	HA       HAParams
}

// HAParams are the per-member values rendered into the HA group and HA
// interface templates.
type HAParams struct {
	Priority   int
	Preemptive bool
	PeerIp     string
	Ha1Ip      string
}

func (d *Device) Label() string {
	return d.Host
}

func (d *Device) HasSession() bool {
	return strings.TrimSpace(d.ApiKey) != ""
}

// WithApiKey returns a copy of the device carrying the given session key.
func (d *Device) WithApiKey(key string) *Device {
	c := *d
	c.ApiKey = key
	return &c
}

func Hosts(devices []*Device) []string {
	hosts := make([]string, 0, len(devices))
	for _, d := range devices {
		hosts = append(hosts, d.Host)
	}
	return hosts
}
