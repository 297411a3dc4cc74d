package report

import (
	"github.com/chunga-ict/pylo/kernel/engine"
	"github.com/chunga-ict/pylo/kernel/model"
	"github.com/pkg/errors"
)

// SinksFor builds the sinks the inventory asks for. The returned func releases
// client resources.
func SinksFor(cfg model.Reporting) ([]engine.ReportSink, func(), error) {
	var sinks []engine.ReportSink
	var closers []func()
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	if cfg.S3 != nil {
		s3Sink, err := NewS3Sink(cfg.S3)
		if err != nil {
			return nil, closeAll, errors.Wrap(err, "unable to configure s3 reporting")
		}
		sinks = append(sinks, s3Sink)
	}
	if cfg.Influx != nil {
		influxSink := NewInfluxSink(cfg.Influx)
		sinks = append(sinks, influxSink)
		closers = append(closers, influxSink.Close)
	}
	return sinks, closeAll, nil
}
