package s3stream

import (
	"bufio"
	"context"
	stderrors "errors"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/input-output-hk/catalyst-forge-libs/fs"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/s3types"
)

const (
	// DefaultContentType is the default content type used when content type detection fails
	DefaultContentType = "application/octet-stream"

	// sniffLen is how many leading bytes are inspected to detect the content type
	sniffLen = 512
)

func (c *Client) streamConfig(opts []s3types.StreamOption) *s3types.StreamConfig {
	cfg := &s3types.StreamConfig{
		ACL:         s3types.ACLPrivate,
		PartSize:    s3types.MinPartSize,
		Concurrency: c.concurrency,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func (c *Client) bucketOrDefault(bucket string) string {
	if bucket == "" {
		return c.defaultBucket
	}
	return bucket
}

// NewStream starts a multipart upload to bucket/key and returns the stream
// that feeds it. An empty bucket selects the client's default bucket.
// Objects are private unless WithACL says otherwise.
//
// The upload is created in the background; writes made before it exists
// are queued. ctx bounds every store call and every blocked write.
//
// Example:
//
//	stream, err := client.NewStream(ctx, "my-bucket", "backups/db.tar",
//	    s3stream.WithStreamConcurrency(4),
//	)
//	if err != nil {
//	    return err
//	}
//	if _, err := io.Copy(stream, src); err != nil {
//	    stream.Abort(err)
//	    return err
//	}
//	if err := stream.Close(); err != nil {
//	    return err
//	}
//	fmt.Println(stream.Result().ETag)
func (c *Client) NewStream(
	ctx context.Context,
	bucket, key string,
	opts ...s3types.StreamOption,
) (*Stream, error) {
	return newStream(ctx, c.s3Client, c.bucketOrDefault(bucket), key, c.streamConfig(opts), c.logger)
}

// Upload streams everything read from reader to bucket/key and returns the
// committed result. When no content type is given it is detected from the
// first bytes of the input.
//
// A read error abandons the upload without committing it.
func (c *Client) Upload(
	ctx context.Context,
	bucket, key string,
	reader io.Reader,
	opts ...s3types.StreamOption,
) (*s3types.UploadResult, error) {
	if reader == nil {
		return nil, errors.NewConfigError("upload", errors.ErrInvalidInput).
			WithBucket(bucket).
			WithKey(key).
			WithMessage("reader cannot be nil")
	}

	cfg := c.streamConfig(opts)
	if cfg.ContentType == "" {
		br := bufio.NewReaderSize(reader, sniffLen)
		head, err := br.Peek(sniffLen)
		if err != nil && !stderrors.Is(err, io.EOF) {
			return nil, errors.NewError("upload", err).WithBucket(bucket).WithKey(key)
		}
		cfg.ContentType = mimetype.Detect(head).String()
		reader = br
	}

	return c.upload(ctx, "upload", bucket, key, reader, cfg)
}

// UploadFile streams a file from the client's filesystem to bucket/key.
// The content type is detected from the file's contents, falling back to
// its extension.
//
// Example:
//
//	result, err := client.UploadFile(ctx, "my-bucket", "docs/report.pdf", "/path/to/report.pdf",
//	    s3stream.WithProgress(progressTracker),
//	)
//	if err != nil {
//	    return err
//	}
//	fmt.Printf("Uploaded %d bytes in %d parts\n", result.Size, result.Parts)
func (c *Client) UploadFile(
	ctx context.Context,
	bucket, key, path string,
	opts ...s3types.StreamOption,
) (*s3types.UploadResult, error) {
	if path == "" {
		return nil, errors.NewConfigError("uploadFile", errors.ErrInvalidInput).
			WithBucket(bucket).
			WithKey(key).
			WithMessage("filepath cannot be empty")
	}

	fsys := c.filesystem()

	info, err := fsys.Stat(path)
	if err != nil {
		return nil, errors.NewError("uploadFile", err).WithBucket(bucket).WithKey(key)
	}
	if info.IsDir() {
		return nil, errors.NewConfigError("uploadFile", errors.ErrInvalidInput).
			WithBucket(bucket).
			WithKey(key).
			WithMessage("filepath points to a directory, not a file")
	}

	cfg := c.streamConfig(opts)
	if cfg.ContentType == "" {
		cfg.ContentType = detectContentType(fsys, path)
	}

	file, err := fsys.Open(path)
	if err != nil {
		return nil, errors.NewError("uploadFile", err).WithBucket(bucket).WithKey(key)
	}
	defer file.Close()

	return c.upload(ctx, "uploadFile", bucket, key, file, cfg)
}

func (c *Client) upload(
	ctx context.Context,
	op, bucket, key string,
	reader io.Reader,
	cfg *s3types.StreamConfig,
) (*s3types.UploadResult, error) {
	stream, err := newStream(ctx, c.s3Client, c.bucketOrDefault(bucket), key, cfg, c.logger)
	if err != nil {
		return nil, err
	}

	if _, err := stream.ReadFrom(reader); err != nil {
		if stream.Err() == nil {
			stream.Abort(errors.NewError(op, err).WithBucket(bucket).WithKey(key).
				WithMessage("reading input"))
		}
		return nil, stream.Err()
	}

	if err := stream.Close(); err != nil {
		return nil, err
	}
	return stream.Result(), nil
}

// detectContentType determines the content type using mimetype where possible,
// falling back to extension-based lookup.
func detectContentType(fsys fs.Filesystem, path string) string {
	file, err := fsys.Open(path)
	if err != nil {
		return contentTypeFromExtension(path)
	}
	defer file.Close()

	buf := make([]byte, sniffLen)
	n, _ := io.ReadFull(file, buf)
	if n > 0 {
		if mt := mimetype.Detect(buf[:n]); mt != nil && mt.String() != DefaultContentType {
			return mt.String()
		}
	}

	return contentTypeFromExtension(path)
}

func contentTypeFromExtension(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != "" {
		if byExt := mime.TypeByExtension(ext); byExt != "" {
			return byExt
		}
	}
	return DefaultContentType
}
