package model

import (
	"time"

	"github.com/pkg/errors"
)

const (
	DefaultCommitBudget     = 10 * time.Minute
	DefaultCommitRoundDelay = 15 * time.Second
	DefaultSyncAttempts     = 8
	DefaultSyncInterval     = 15 * time.Second
	DefaultRequestTimeout   = 30 * time.Second
)

var DefaultHAPorts = []string{"ethernet1/4", "ethernet1/5"}

// Inventory describes one HA pair and everything needed to deploy it.
type Inventory struct {
	Id        string
	Devices   []*Device
	HA        HASettings
	Templates map[string]string
	TLS       TLSPolicy
	Timing    Timing
	Reporting Reporting
}

type HASettings struct {
	Ports []string
}

// TLSPolicy replaces the process wide certificate warning suppression of older
// tooling with an explicit per-client decision.
type TLSPolicy struct {
	InsecureSkipVerify   bool
	CAFile               string
	ClientBundle         string
	ClientBundlePassword string
}

type Timing struct {
	CommitBudget     time.Duration
	CommitRoundDelay time.Duration
	SyncAttempts     int
	SyncInterval     time.Duration
	RequestTimeout   time.Duration
}

func DefaultTiming() Timing {
	return Timing{
		CommitBudget:     DefaultCommitBudget,
		CommitRoundDelay: DefaultCommitRoundDelay,
		SyncAttempts:     DefaultSyncAttempts,
		SyncInterval:     DefaultSyncInterval,
		RequestTimeout:   DefaultRequestTimeout,
	}
}

type Reporting struct {
	Directory string
	S3        *S3Reporting
	Influx    *InfluxReporting
}

type S3Reporting struct {
	Bucket string
	Region string
	Prefix string
}

type InfluxReporting struct {
	Url    string
	Token  string
	Org    string
	Bucket string
}

func (i *Inventory) GetDevice(host string) (*Device, error) {
	for _, d := range i.Devices {
		if d.Host == host {
			return d, nil
		}
	}
	return nil, errors.Errorf("device [%s] not found in inventory [%s]", host, i.Id)
}

// HAPorts returns the configured HA ports, falling back to the PAN-OS lab defaults.
func (i *Inventory) HAPorts() []string {
	if len(i.HA.Ports) == 0 {
		return DefaultHAPorts
	}
	return i.HA.Ports
}
