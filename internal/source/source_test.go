package source

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freight-curve/decision/curve"
	cerrors "freight-curve/pkg/errors"
)

const sampleCSV = ",TD3C,TD3C__1\nJUN25,100,500\n"

type fakeS3 struct {
	objects map[string]string
	calls   int
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.calls++
	body, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestParseS3URI(t *testing.T) {
	bucket, key, ok := ParseS3URI("s3://curves/2025/10_06_2025.csv")
	require.True(t, ok)
	assert.Equal(t, "curves", bucket)
	assert.Equal(t, "2025/10_06_2025.csv", key)

	for _, uri := range []string{"data/a.csv", "s3://", "s3://bucket", "s3://bucket/", "s3:///key"} {
		_, _, ok := ParseS3URI(uri)
		assert.False(t, ok, uri)
	}
}

func TestReadLocal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "oct.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))

	r := NewReader("")
	snap, err := r.ReadSnapshot(context.Background(), path, curve.SnapshotMeta{Label: "Oct"})
	require.NoError(t, err)
	assert.Equal(t, path, snap.Meta.Source)
	assert.Equal(t, "Oct", snap.Meta.Label)
	assert.True(t, snap.Table.HasPeriod("JUN25"))
	assert.Equal(t, curve.HashBytes([]byte(sampleCSV)), snap.Hash)

	_, err = r.Read(context.Background(), filepath.Join(dir, "missing.csv"))
	assert.True(t, errors.Is(err, cerrors.ErrSourceNotFound))
}

func TestReadS3(t *testing.T) {
	fake := &fakeS3{objects: map[string]string{"curves/oct.csv": sampleCSV}}
	r := NewReader("eu-west-1").WithS3Client(fake)

	data, err := r.Read(context.Background(), "s3://curves/oct.csv")
	require.NoError(t, err)
	assert.Equal(t, sampleCSV, string(data))

	_, err = r.Read(context.Background(), "s3://curves/nov.csv")
	assert.True(t, errors.Is(err, cerrors.ErrSourceNotFound))
	assert.Equal(t, 2, fake.calls)
}

func TestReadSnapshotInvalid(t *testing.T) {
	fake := &fakeS3{objects: map[string]string{"curves/empty.csv": ""}}
	r := NewReader("").WithS3Client(fake)

	_, err := r.ReadSnapshot(context.Background(), "s3://curves/empty.csv", curve.SnapshotMeta{})
	assert.True(t, errors.Is(err, cerrors.ErrEmptySnapshot))
}
