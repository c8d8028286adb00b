// Copyright 2025 SirSeer, LLC
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://mariadb.com/bsl11
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package output

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	relaierrors "github.com/sirseerhq/analytics-relay/internal/errors"
)

// S3Config holds the object storage connection settings.
type S3Config struct {
	// Endpoint is host[:port] or a URL; an https URL forces TLS.
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	UseSSL          bool
}

// Uploader stores one object.
type Uploader interface {
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64) error
}

// MinioUploader implements Uploader with the minio-go SDK.
type MinioUploader struct {
	client *minio.Client
}

// NewMinioUploader creates an uploader for an S3-compatible endpoint.
func NewMinioUploader(cfg S3Config) (*MinioUploader, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("object storage endpoint is required: %w", relaierrors.ErrConfig)
	}
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, fmt.Errorf("object storage credentials are required: %w", relaierrors.ErrConfig)
	}

	endpoint := cfg.Endpoint
	useSSL := cfg.UseSSL
	if u, err := url.Parse(cfg.Endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
		if u.Scheme == "https" {
			useSSL = true
		}
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object storage client: %w", err)
	}
	return &MinioUploader{client: client}, nil
}

// PutObject implements Uploader.
func (u *MinioUploader) PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64) error {
	_, err := u.client.PutObject(ctx, bucket, key, r, size, minio.PutObjectOptions{
		ContentType: "application/x-ndjson",
	})
	if err != nil {
		return fmt.Errorf("upload s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}

// ObjectSink buffers NDJSON messages in memory and uploads them as a single
// object on Close.
type ObjectSink struct {
	*Writer
	ctx      context.Context
	buf      *bytes.Buffer
	uploader Uploader
	bucket   string
	key      string
	closed   bool
}

// NewObjectSink creates a sink that uploads to bucket/key when closed.
func NewObjectSink(ctx context.Context, uploader Uploader, bucket, key string) *ObjectSink {
	buf := &bytes.Buffer{}
	return &ObjectSink{
		Writer:   NewWriter(buf),
		ctx:      ctx,
		buf:      buf,
		uploader: uploader,
		bucket:   bucket,
		key:      key,
	}
}

// Close uploads the buffered messages. Calling Close again is a no-op.
func (s *ObjectSink) Close() error {
	s.Writer.mu.Lock()
	defer s.Writer.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	data := s.buf.Bytes()
	return s.uploader.PutObject(s.ctx, s.bucket, s.key, bytes.NewReader(data), int64(len(data)))
}

// ParseS3URL splits s3://bucket/key into its bucket and key.
func ParseS3URL(raw string) (bucket, key string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("invalid object URL %q: %w", raw, relaierrors.ErrConfig)
	}
	if u.Scheme != "s3" {
		return "", "", fmt.Errorf("object URL %q must use the s3 scheme: %w", raw, relaierrors.ErrConfig)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return "", "", fmt.Errorf("object URL %q must name a bucket and a key: %w", raw, relaierrors.ErrConfig)
	}
	return u.Host, key, nil
}

// IsObjectURL reports whether path points to object storage.
func IsObjectURL(path string) bool {
	return strings.HasPrefix(path, "s3://")
}

// Open returns the Sink for path: standard output when path is empty or
// "-", object storage for s3:// URLs, a local file otherwise.
func Open(ctx context.Context, path string, stdout io.Writer, s3 S3Config) (Sink, error) {
	switch {
	case path == "" || path == "-":
		return NewWriter(stdout), nil
	case IsObjectURL(path):
		bucket, key, err := ParseS3URL(path)
		if err != nil {
			return nil, err
		}
		uploader, err := NewMinioUploader(s3)
		if err != nil {
			return nil, err
		}
		return NewObjectSink(ctx, uploader, bucket, key), nil
	default:
		return NewFileWriter(path)
	}
}
