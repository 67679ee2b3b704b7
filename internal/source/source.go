// Package source fetches snapshot files from local disk or S3.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"freight-curve/decision/curve"
	cerrors "freight-curve/pkg/errors"
)

// ObjectGetter is the subset of the S3 client used here.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Reader resolves snapshot URIs. The S3 client is created on first use.
type Reader struct {
	Region string

	once   sync.Once
	client ObjectGetter
	err    error
}

// NewReader creates a reader; region may be empty to use the SDK default chain.
func NewReader(region string) *Reader {
	return &Reader{Region: region}
}

// WithS3Client injects an S3 client.
func (r *Reader) WithS3Client(client ObjectGetter) *Reader {
	r.once.Do(func() {})
	r.client = client
	return r
}

// Read returns the raw bytes behind a local path or s3://bucket/key URI.
func (r *Reader) Read(ctx context.Context, uri string) ([]byte, error) {
	if bucket, key, ok := ParseS3URI(uri); ok {
		return r.readS3(ctx, uri, bucket, key)
	}
	data, err := os.ReadFile(uri)
	if errors.Is(err, os.ErrNotExist) {
		return nil, cerrors.NewSourceNotFoundError(uri, err)
	}
	if err != nil {
		return nil, cerrors.NewSourceUnreadableError(uri, err)
	}
	return data, nil
}

// ReadSnapshot reads and parses a snapshot; meta.Source is set to uri.
func (r *Reader) ReadSnapshot(ctx context.Context, uri string, meta curve.SnapshotMeta) (*curve.Snapshot, error) {
	data, err := r.Read(ctx, uri)
	if err != nil {
		return nil, err
	}
	meta.Source = uri
	return curve.ParseSnapshot(meta, data)
}

func (r *Reader) readS3(ctx context.Context, uri, bucket, key string) ([]byte, error) {
	client, err := r.s3Client(ctx)
	if err != nil {
		return nil, cerrors.NewSourceUnreadableError(uri, err)
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, cerrors.NewSourceNotFoundError(uri, err)
		}
		return nil, cerrors.NewSourceUnreadableError(uri, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, cerrors.NewSourceUnreadableError(uri, err)
	}
	return data, nil
}

func (r *Reader) s3Client(ctx context.Context) (ObjectGetter, error) {
	r.once.Do(func() {
		loadCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		var opts []func(*config.LoadOptions) error
		if r.Region != "" {
			opts = append(opts, config.WithRegion(r.Region))
		}
		cfg, err := config.LoadDefaultConfig(loadCtx, opts...)
		if err != nil {
			r.err = fmt.Errorf("failed to load AWS config: %w", err)
			return
		}
		r.client = s3.NewFromConfig(cfg)
	})
	return r.client, r.err
}

// ParseS3URI splits s3://bucket/key.
func ParseS3URI(uri string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(uri, "s3://")
	if !found {
		return "", "", false
	}
	bucket, key, found = strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}
