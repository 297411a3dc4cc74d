// Package panos talks to the PAN-OS XML management API.
package panos

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/chunga-ict/pylo/kernel/model"
	"github.com/michaelquigley/pfxlog"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	cmdCommit      = "<commit></commit>"
	cmdShowHAState = "<show><high-availability><state></state></high-availability></show>"
	cmdSyncRunning = "<request><high-availability><sync-to-remote><running-config></running-config></sync-to-remote></high-availability></request>"

	maxResponseBytes = 8 << 20
)

type ClientConfig struct {
	TLS     model.TLSPolicy
	Timeout time.Duration
	// Scheme defaults to https; tests run plain http.
	Scheme string
	Log    logrus.FieldLogger
}

// Client implements the device operations the engines need on top of the XML
// API. It keeps no state between calls; the session key travels on the device.
type Client struct {
	http   *http.Client
	scheme string
	log    logrus.FieldLogger
}

func NewClient(cfg ClientConfig) (*Client, error) {
	tlsConfig, err := TLSConfig(cfg.TLS)
	if err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = model.DefaultRequestTimeout
	}
	c := &Client{
		http: &http.Client{
			Timeout:   timeout,
			Transport: &http.Transport{TLSClientConfig: tlsConfig, Proxy: http.ProxyFromEnvironment},
		},
		scheme: cfg.Scheme,
		log:    cfg.Log,
	}
	if c.scheme == "" {
		c.scheme = "https"
	}
	if c.log == nil {
		c.log = pfxlog.Logger().Entry
	}
	return c, nil
}

// Keygen exchanges the device credentials for an API key.
func (c *Client) Keygen(ctx context.Context, dev *model.Device) (string, error) {
	const op = "keygen"
	params := url.Values{"type": {"keygen"}, "user": {dev.Username}, "password": {dev.Password}}

	r := &keygenResponse{}
	if err := c.call(ctx, dev, op, params, r); err != nil {
		return "", err
	}
	if !r.ok() {
		return "", c.rejected(dev, op, r)
	}
	if r.Key == nil || strings.TrimSpace(*r.Key) == "" {
		return "", model.NewMalformedResponseError(dev.Host, op, "missing <key>")
	}
	return strings.TrimSpace(*r.Key), nil
}

func (c *Client) StartCommit(ctx context.Context, dev *model.Device) (string, error) {
	const op = "commit"
	params := url.Values{"type": {"commit"}, "cmd": {cmdCommit}}

	r := &commitResponse{}
	if err := c.call(ctx, dev, op, params, r); err != nil {
		return "", err
	}
	if !r.ok() {
		return "", c.rejected(dev, op, r)
	}
	if r.Job == nil || strings.TrimSpace(*r.Job) == "" {
		if strings.Contains(strings.ToLower(r.message()), "no changes to commit") {
			return "", errors.Wrapf(model.ErrNothingToCommit, "commit on [%s]", dev.Host)
		}
		return "", model.NewMalformedResponseError(dev.Host, op, "no job id (%s)", r.message())
	}
	return strings.TrimSpace(*r.Job), nil
}

func (c *Client) QueryJob(ctx context.Context, dev *model.Device, jobId string) (*model.JobReport, error) {
	const op = "show jobs"
	params := url.Values{"type": {"op"}, "cmd": {fmt.Sprintf("<show><jobs><id>%s</id></jobs></show>", jobId)}}

	r := &jobResponse{}
	if err := c.call(ctx, dev, op, params, r); err != nil {
		return nil, err
	}
	if !r.ok() {
		return nil, c.rejected(dev, op, r)
	}
	if r.Job == nil || r.Job.Status == nil {
		return nil, model.NewMalformedResponseError(dev.Host, op, "missing <job><status> for job %s", jobId)
	}
	return decodeJob(dev.Host, r.Job)
}

func decodeJob(host string, job *jobElement) (*model.JobReport, error) {
	report := &model.JobReport{Detail: strings.Join(job.Details, "; ")}

	if p := strings.TrimSpace(job.Progress); p != "" {
		// finished jobs report a completion timestamp instead of a percentage
		if n, err := strconv.Atoi(p); err == nil {
			report.Progress = n
		}
	}

	switch strings.ToUpper(strings.TrimSpace(*job.Status)) {
	case "ACT", "PEND":
		report.Status = model.JobRunning
	case "FIN":
		report.Status = model.JobFinished
		report.Progress = 100
		switch strings.ToUpper(strings.TrimSpace(job.Result)) {
		case "OK":
			report.Result = model.JobResultOk
		case "FAIL":
			report.Result = model.JobResultFailed
		default:
			report.Result = model.JobResultUnknown
		}
	default:
		return nil, model.NewMalformedResponseError(host, "show jobs", "unknown job status '%s'", *job.Status)
	}
	return report, nil
}

func (c *Client) QueryHAState(ctx context.Context, dev *model.Device) (*model.HAState, error) {
	const op = "show ha state"
	params := url.Values{"type": {"op"}, "cmd": {cmdShowHAState}}

	r := &haStateResponse{}
	if err := c.call(ctx, dev, op, params, r); err != nil {
		return nil, err
	}
	if !r.ok() {
		return nil, c.rejected(dev, op, r)
	}
	if r.Enabled == nil {
		return nil, model.NewMalformedResponseError(dev.Host, op, "missing <enabled>")
	}

	state := &model.HAState{
		Enabled:    strings.EqualFold(strings.TrimSpace(*r.Enabled), "yes"),
		LocalState: strings.TrimSpace(r.LocalState),
		PeerState:  strings.TrimSpace(r.PeerState),
		Sync:       model.SyncUnknown,
	}
	if r.RunningSync != nil {
		state.Sync = model.ParseSyncState(*r.RunningSync)
	} else if state.Enabled {
		return nil, model.NewMalformedResponseError(dev.Host, op, "missing <group><running-sync>")
	}
	return state, nil
}

// TriggerSync requests a sync-to-remote of the running config. A reply with an
// error status is a rejection, not a communication failure.
func (c *Client) TriggerSync(ctx context.Context, dev *model.Device) (bool, error) {
	const op = "sync-to-remote"
	params := url.Values{"type": {"op"}, "cmd": {cmdSyncRunning}}

	r := &plainResponse{}
	if err := c.call(ctx, dev, op, params, r); err != nil {
		return false, err
	}
	if !r.ok() {
		c.log.WithField("host", dev.Host).Warnf("sync-to-remote rejected: %s", r.message())
	}
	return r.ok(), nil
}

func (c *Client) ApplyConfig(ctx context.Context, dev *model.Device, xpath, element string) (bool, error) {
	const op = "config set"
	params := url.Values{"type": {"config"}, "action": {"set"}, "xpath": {xpath}, "element": {element}}

	r := &plainResponse{}
	if err := c.call(ctx, dev, op, params, r); err != nil {
		return false, err
	}
	if !r.ok() {
		c.log.WithField("host", dev.Host).Warnf("config set at [%s] rejected: %s", xpath, r.message())
	}
	return r.ok(), nil
}

func (c *Client) call(ctx context.Context, dev *model.Device, op string, params url.Values, out enveloped) error {
	endpoint := fmt.Sprintf("%s://%s/api/", c.scheme, dev.Host)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(params.Encode()))
	if err != nil {
		return model.NewCommunicationError(dev.Host, op, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if dev.ApiKey != "" {
		req.Header.Set("X-PAN-KEY", dev.ApiKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return model.NewCommunicationError(dev.Host, op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return model.NewCommunicationError(dev.Host, op, err)
	}
	c.log.WithField("host", dev.Host).Debugf("%s answered %d in %s", op, resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		return model.NewCommunicationError(dev.Host, op, errors.Errorf("http status %d", resp.StatusCode))
	}
	if err := xml.Unmarshal(body, out); err != nil {
		return model.NewMalformedResponseError(dev.Host, op, "%v", err)
	}
	if out.envelope().Status == "" {
		return model.NewMalformedResponseError(dev.Host, op, "missing response status")
	}
	return nil
}

func (c *Client) rejected(dev *model.Device, op string, r enveloped) error {
	env := r.envelope()
	return model.NewCommunicationError(dev.Host, op, errors.Errorf("api status %s (code %s): %s", env.Status, env.Code, env.message()))
}
