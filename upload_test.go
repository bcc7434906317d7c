// Package s3stream provides tests for reader and filesystem uploads.
package s3stream

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/input-output-hk/catalyst-forge-libs/fs/billy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/internal/testutil"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/s3types"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

// TestClient_UploadFile_WithMemoryFS tests UploadFile with an in-memory filesystem.
func TestClient_UploadFile_WithMemoryFS(t *testing.T) {
	tests := []struct {
		name            string
		path            string
		content         []byte
		opts            []s3types.StreamOption
		wantContentType string
		wantParts       int
	}{
		{
			name:            "text file",
			path:            "/test/file.txt",
			content:         []byte("Hello from memory filesystem!"),
			wantContentType: "text/plain; charset=utf-8",
			wantParts:       1,
		},
		{
			name:            "json detected from content",
			path:            "/data.json",
			content:         []byte(`{"name": "test", "value": 123}`),
			wantContentType: "application/json",
			wantParts:       1,
		},
		{
			name:            "png detected without extension",
			path:            "/images/logo",
			content:         append(append([]byte{}, pngHeader...), make([]byte, 64)...),
			wantContentType: "image/png",
			wantParts:       1,
		},
		{
			name:            "explicit content type wins",
			path:            "/test/file.txt",
			content:         []byte("plain"),
			opts:            []s3types.StreamOption{WithContentType("text/markdown")},
			wantContentType: "text/markdown",
			wantParts:       1,
		},
		{
			name:            "large file spans parts",
			path:            "/backups/archive.bin",
			content:         testutil.GenerateRandomData(12*mib + 3),
			wantContentType: DefaultContentType,
			wantParts:       3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			memfs := billy.NewInMemoryFS()
			require.NoError(t, memfs.MkdirAll("/test", 0o755))
			require.NoError(t, memfs.MkdirAll("/images", 0o755))
			require.NoError(t, memfs.MkdirAll("/backups", 0o755))
			require.NoError(t, memfs.WriteFile(tt.path, tt.content, 0o644))

			store := newMemoryStore()
			client := NewWithClient(store, WithFilesystem(memfs), WithConcurrency(2))

			result, err := client.UploadFile(context.Background(), testBucket, testKey, tt.path, tt.opts...)
			require.NoError(t, err)
			require.NotNil(t, result)
			assert.Equal(t, int64(len(tt.content)), result.Size)
			assert.Equal(t, tt.wantParts, result.Parts)

			obj := storedObject(t, store)
			assert.Equal(t, tt.content, obj.Data)
			assert.Equal(t, tt.wantContentType, obj.ContentType)
		})
	}
}

// TestClient_UploadFile_Errors tests UploadFile input errors.
func TestClient_UploadFile_Errors(t *testing.T) {
	memfs := billy.NewInMemoryFS()
	require.NoError(t, memfs.MkdirAll("/dir", 0o755))

	tests := []struct {
		name       string
		path       string
		wantConfig bool
	}{
		{name: "empty path", path: "", wantConfig: true},
		{name: "directory", path: "/dir", wantConfig: true},
		{name: "missing file", path: "/nope.txt", wantConfig: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemoryStore()
			client := NewWithClient(store, WithFilesystem(memfs))

			result, err := client.UploadFile(context.Background(), testBucket, testKey, tt.path)
			require.Error(t, err)
			assert.Nil(t, result)
			assert.Equal(t, tt.wantConfig, errors.IsConfiguration(err))
			assert.Empty(t, store.Calls())
		})
	}
}

// TestClient_SetFilesystem_UsedByUploadFile tests that a replaced filesystem is used.
func TestClient_SetFilesystem_UsedByUploadFile(t *testing.T) {
	store := newMemoryStore()
	client := NewWithClient(store)

	memfs := billy.NewInMemoryFS()
	require.NoError(t, memfs.WriteFile("/only-in-memory.txt", []byte("swapped"), 0o644))
	client.SetFilesystem(memfs)

	_, err := client.UploadFile(context.Background(), testBucket, testKey, "/only-in-memory.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("swapped"), storedObject(t, store).Data)
}

// TestClient_Upload tests uploads from an io.Reader.
func TestClient_Upload(t *testing.T) {
	tests := []struct {
		name            string
		reader          io.Reader
		wantContentType string
		wantSize        int64
	}{
		{
			name:            "html sniffed",
			reader:          strings.NewReader("<!DOCTYPE html><html><body>hi</body></html>"),
			wantContentType: "text/html; charset=utf-8",
			wantSize:        43,
		},
		{
			name:            "short reads",
			reader:          iotest.OneByteReader(bytes.NewReader(pngHeader)),
			wantContentType: "image/png",
			wantSize:        int64(len(pngHeader)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemoryStore()
			client := NewWithClient(store)

			result, err := client.Upload(context.Background(), testBucket, testKey, tt.reader)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSize, result.Size)
			assert.Equal(t, 1, result.Parts)
			assert.Equal(t, tt.wantContentType, storedObject(t, store).ContentType)
		})
	}
}

// TestClient_Upload_EmptyReader tests that an empty input commits no parts.
func TestClient_Upload_EmptyReader(t *testing.T) {
	counter := &testutil.CallCounter{}
	client := NewWithClient(testutil.NewMockBuilder().WithMultipartUpload().Counting(counter).Build())

	result, err := client.Upload(context.Background(), testBucket, testKey, bytes.NewReader(nil))
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.Size)
	assert.Equal(t, int32(0), counter.Part.Load())
	assert.Equal(t, int32(1), counter.Complete.Load())
}

// TestClient_Upload_NilReader tests that a nil reader is rejected up front.
func TestClient_Upload_NilReader(t *testing.T) {
	store := newMemoryStore()
	client := NewWithClient(store)

	_, err := client.Upload(context.Background(), testBucket, testKey, nil)
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))
	assert.Empty(t, store.Calls())
}

// TestClient_Upload_ReadError tests that a failing reader abandons the upload.
func TestClient_Upload_ReadError(t *testing.T) {
	readErr := stderrors.New("disk unplugged")
	store := newMemoryStore()
	client := NewWithClient(store)

	reader := io.MultiReader(
		bytes.NewReader(testutil.GenerateRandomData(6*mib)),
		iotest.ErrReader(readErr),
	)

	result, err := client.Upload(context.Background(), testBucket, testKey, reader,
		WithContentType(DefaultContentType))
	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, readErr)
	assert.Equal(t, 0, store.CallCount(testutil.OpComplete))

	_, ok := store.Object(testBucket, testKey)
	assert.False(t, ok)
}

// TestClient_Upload_DefaultBucket tests that an empty bucket selects the default.
func TestClient_Upload_DefaultBucket(t *testing.T) {
	store := newMemoryStore()
	client := NewWithClient(store, WithDefaultBucket("fallback-bucket"))

	result, err := client.Upload(context.Background(), "", "k", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, "fallback-bucket", result.Bucket)

	_, ok := store.Object("fallback-bucket", "k")
	assert.True(t, ok)
}

// TestContentTypeFromExtension tests the extension fallback.
func TestContentTypeFromExtension(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{path: "/a/b.json", want: "application/json"},
		{path: "/a/b", want: DefaultContentType},
		{path: "/a/b.unknownext", want: DefaultContentType},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, contentTypeFromExtension(tt.path))
		})
	}
}
