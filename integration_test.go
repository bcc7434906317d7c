//go:build integration
// +build integration

package s3stream_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/input-output-hk/catalyst-forge-libs/fs/billy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/internal/testutil"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/s3types"
)

func getObject(ctx context.Context, t *testing.T, client *s3.Client, bucket, key string) ([]byte, *s3.GetObjectOutput) {
	t.Helper()
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	require.NoError(t, err)
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	require.NoError(t, err)
	return data, out
}

// TestIntegrationStream tests streaming uploads against LocalStack.
func TestIntegrationStream(t *testing.T) {
	ctx := context.Background()
	container, s3Client, bucket := testutil.SetupLocalStackTest(t)

	cfg, err := container.Config(ctx)
	require.NoError(t, err)

	client, err := s3stream.New(
		s3stream.WithAWSConfig(&cfg),
		s3stream.WithEndpoint(container.Endpoint()),
		s3stream.WithForcePathStyle(true),
		s3stream.WithConcurrency(3),
	)
	require.NoError(t, err)
	defer client.Close()

	t.Run("multi-part stream", func(t *testing.T) {
		key := testutil.GenerateTestKey("stream")
		data := testutil.GenerateRandomData(12*testutil.MiB + 321)

		stream, err := client.NewStream(ctx, bucket, key,
			s3stream.WithContentType("application/octet-stream"),
			s3stream.WithMetadata(map[string]string{"origin": "integration"}),
		)
		require.NoError(t, err)

		for off := 0; off < len(data); off += testutil.MiB {
			end := min(off+testutil.MiB, len(data))
			_, err := stream.Write(data[off:end])
			require.NoError(t, err)
		}
		require.NoError(t, stream.Close())

		result := stream.Result()
		require.NotNil(t, result)
		assert.Equal(t, 3, result.Parts)
		assert.Equal(t, int64(len(data)), result.Size)
		assert.NotEmpty(t, result.ETag)

		got, out := getObject(ctx, t, s3Client, bucket, key)
		assert.Equal(t, data, got)
		assert.Equal(t, "integration", out.Metadata["origin"])
	})

	t.Run("small stream", func(t *testing.T) {
		key := testutil.GenerateTestKey("small")
		data := []byte("Hello, LocalStack!")

		result, err := client.Upload(ctx, bucket, key, bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, 1, result.Parts)

		got, out := getObject(ctx, t, s3Client, bucket, key)
		assert.Equal(t, data, got)
		assert.Equal(t, "text/plain; charset=utf-8", aws.ToString(out.ContentType))
	})

	t.Run("upload file", func(t *testing.T) {
		key := testutil.GenerateTestKey("file")
		data := testutil.GenerateRandomData(6 * testutil.MiB)

		path := filepath.Join(t.TempDir(), "upload.bin")
		require.NoError(t, os.WriteFile(path, data, 0o644))

		result, err := client.UploadFile(ctx, bucket, key, path)
		require.NoError(t, err)
		assert.Equal(t, 2, result.Parts)

		got, _ := getObject(ctx, t, s3Client, bucket, key)
		assert.Equal(t, data, got)
	})

	t.Run("upload file from memory filesystem", func(t *testing.T) {
		memfs := billy.NewInMemoryFS()
		require.NoError(t, memfs.WriteFile("/report.json", []byte(`{"ok":true}`), 0o644))

		memClient := s3stream.NewWithClient(s3Client, s3stream.WithFilesystem(memfs))
		key := testutil.GenerateTestKey("memfs")

		_, err := memClient.UploadFile(ctx, bucket, key, "/report.json")
		require.NoError(t, err)

		got, out := getObject(ctx, t, s3Client, bucket, key)
		assert.Equal(t, `{"ok":true}`, string(got))
		assert.Equal(t, "application/json", aws.ToString(out.ContentType))
	})

	t.Run("missing bucket fails the stream", func(t *testing.T) {
		stream, err := client.NewStream(ctx, "no-such-bucket-stream", "key")
		require.NoError(t, err)

		_, _ = stream.Write([]byte("data"))
		err = stream.Close()
		require.Error(t, err)
		assert.True(t, errors.IsStoreCommunication(err))
		assert.Equal(t, s3types.StateFailed, stream.State())
	})
}
