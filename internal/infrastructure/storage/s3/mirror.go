package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/riskibarqy/worldcup-predictor/internal/domain/snapshot"
	"github.com/riskibarqy/worldcup-predictor/internal/platform/logging"
)

const (
	defaultRegion    = "auto"
	documentMimeType = "application/json"
)

type MirrorConfig struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	KeyPrefix string
	Logger    *logging.Logger
}

// PutObjectAPI is the part of the S3 client the mirror needs.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *awss3.PutObjectInput, optFns ...func(*awss3.Options)) (*awss3.PutObjectOutput, error)
}

// Mirror copies each published document to S3-compatible object storage as
// latest.json plus one immutable object per run.
type Mirror struct {
	client PutObjectAPI
	bucket string
	prefix string
	logger *logging.Logger
}

func NewMirror(cfg MirrorConfig) (*Mirror, error) {
	if strings.TrimSpace(cfg.Bucket) == "" || strings.TrimSpace(cfg.AccessKey) == "" || strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, errors.New("invalid s3 mirror configuration: bucket and credentials are required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = defaultRegion
	}

	opts := awss3.Options{
		Region:      region,
		Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
	}
	if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
		opts.BaseEndpoint = aws.String(endpoint)
		opts.UsePathStyle = true
	}

	return NewMirrorWithClient(awss3.New(opts), cfg.Bucket, cfg.KeyPrefix, cfg.Logger), nil
}

func NewMirrorWithClient(client PutObjectAPI, bucket, prefix string, logger *logging.Logger) *Mirror {
	if logger == nil {
		logger = logging.Default()
	}
	return &Mirror{
		client: client,
		bucket: strings.TrimSpace(bucket),
		prefix: strings.Trim(strings.TrimSpace(prefix), "/"),
		logger: logger.Named("s3_mirror"),
	}
}

func (m *Mirror) Upload(ctx context.Context, doc snapshot.Document, encoded []byte) error {
	keys := []string{m.key("latest.json")}
	if runID := strings.TrimSpace(doc.RunID); runID != "" {
		keys = append(keys, m.key("runs", runID+".json"))
	}

	for _, key := range keys {
		_, err := m.client.PutObject(ctx, &awss3.PutObjectInput{
			Bucket:        aws.String(m.bucket),
			Key:           aws.String(key),
			Body:          bytes.NewReader(encoded),
			ContentLength: aws.Int64(int64(len(encoded))),
			ContentType:   aws.String(documentMimeType),
		})
		if err != nil {
			return fmt.Errorf("upload snapshot object (key: %s): %w", key, err)
		}
	}

	m.logger.DebugContext(ctx, "snapshot mirrored", "run_id", doc.RunID, "bucket", m.bucket, "bytes", len(encoded))
	return nil
}

func (m *Mirror) key(parts ...string) string {
	if m.prefix == "" {
		return path.Join(parts...)
	}
	return path.Join(append([]string{m.prefix}, parts...)...)
}
