// Package report publishes finished deployment reports to external systems.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"path"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/chunga-ict/pylo/kernel/model"
	"github.com/pkg/errors"
)

// S3Putter is the subset of the S3 client used by S3Sink.
type S3Putter interface {
	PutObjectWithContext(ctx aws.Context, input *s3.PutObjectInput, opts ...request.Option) (*s3.PutObjectOutput, error)
}

// S3Sink archives every report as a JSON object under <prefix>/<inventory>/<runId>.json.
type S3Sink struct {
	client S3Putter
	bucket string
	prefix string
}

func NewS3Sink(cfg *model.S3Reporting) (*S3Sink, error) {
	sess, err := session.NewSession(&aws.Config{Region: aws.String(cfg.Region)})
	if err != nil {
		return nil, errors.Wrap(err, "unable to create aws session")
	}
	return NewS3SinkWithClient(s3.New(sess), cfg.Bucket, cfg.Prefix), nil
}

func NewS3SinkWithClient(client S3Putter, bucket, prefix string) *S3Sink {
	return &S3Sink{client: client, bucket: bucket, prefix: prefix}
}

func (s *S3Sink) Label() string {
	return "s3://" + s.bucket
}

func (s *S3Sink) Key(report *model.DeploymentReport) string {
	return path.Join(s.prefix, report.InventoryId, report.RunId+".json")
}

func (s *S3Sink) Publish(ctx context.Context, report *model.DeploymentReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "unable to marshal run [%s]", report.RunId)
	}
	key := s.Key(report)
	_, err = s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return errors.Wrapf(err, "unable to upload run [%s] to s3://%s/%s", report.RunId, s.bucket, key)
	}
	return nil
}
