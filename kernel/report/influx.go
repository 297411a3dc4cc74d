package report

import (
	"context"

	"github.com/chunga-ict/pylo/kernel/model"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/pkg/errors"
)

const (
	measurementRun    = "pylo_run"
	measurementDevice = "pylo_device"
)

// PointWriter is the subset of the blocking influx write api used by InfluxSink.
type PointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

// InfluxSink writes one point per run and one per device outcome.
type InfluxSink struct {
	writer PointWriter
	url    string
	close  func()
}

func NewInfluxSink(cfg *model.InfluxReporting) *InfluxSink {
	client := influxdb2.NewClient(cfg.Url, cfg.Token)
	return &InfluxSink{
		writer: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		url:    cfg.Url,
		close:  client.Close,
	}
}

func NewInfluxSinkWithWriter(writer PointWriter, url string) *InfluxSink {
	return &InfluxSink{writer: writer, url: url}
}

func (s *InfluxSink) Label() string {
	return "influx " + s.url
}

func (s *InfluxSink) Close() {
	if s.close != nil {
		s.close()
	}
}

func (s *InfluxSink) Publish(ctx context.Context, report *model.DeploymentReport) error {
	if err := s.writer.WritePoint(ctx, Points(report)...); err != nil {
		return errors.Wrapf(err, "unable to write run [%s] to influx", report.RunId)
	}
	return nil
}

// Points converts a report into influx points stamped with the run finish time.
func Points(report *model.DeploymentReport) []*write.Point {
	points := []*write.Point{
		influxdb2.NewPoint(measurementRun,
			map[string]string{"inventory": report.InventoryId, "state": string(report.State)},
			map[string]interface{}{
				"runId":    report.RunId,
				"duration": report.Finished.Sub(report.Started).Seconds(),
				"devices":  len(report.DeviceStates()),
			},
			report.Finished),
	}

	for _, state := range report.DeviceStates() {
		fields := map[string]interface{}{
			"runId":     report.RunId,
			"active":    state.Active,
			"committed": state.Commit == model.VerdictCommitted,
		}
		if outcome, found := report.Sync[state.Host]; found {
			fields["syncAttempts"] = outcome.Attempts
			fields["synchronized"] = outcome.Verdict == model.VerdictSynchronized
		}
		tags := map[string]string{"inventory": report.InventoryId, "host": state.Host}
		if state.Commit != "" {
			tags["commit"] = string(state.Commit)
		}
		points = append(points, influxdb2.NewPoint(measurementDevice, tags, fields, report.Finished))
	}
	return points
}
