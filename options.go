// Package s3stream provides functional options for configuring clients and upload streams.
// These options follow the functional options pattern for clean, composable configuration.
package s3stream

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/input-output-hk/catalyst-forge-libs/fs"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/s3types"
)

// WithRegion sets the AWS region for S3 operations.
// If not specified, uses the default AWS region from the credential chain.
func WithRegion(region string) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Region = region
	}
}

// WithMaxRetries sets the maximum number of attempts the AWS SDK makes per call.
// Streams themselves never retry a failed part.
func WithMaxRetries(maxRetries int) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.MaxRetries = maxRetries
	}
}

// WithTimeout sets the HTTP timeout for individual store calls.
// Default is no timeout (0).
func WithTimeout(timeout time.Duration) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Timeout = timeout
	}
}

// WithConcurrency sets the default number of parts each stream keeps in flight.
// Default is 1. Non-positive values are ignored.
func WithConcurrency(concurrency int) s3types.Option {
	return func(c *s3types.ClientConfig) {
		if concurrency > 0 {
			c.Concurrency = concurrency
		}
	}
}

// WithForcePathStyle forces the use of path-style URLs instead of virtual-hosted style.
// This is required for S3-compatible services that don't support virtual hosting.
func WithForcePathStyle(forcePathStyle bool) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.ForcePathStyle = forcePathStyle
	}
}

// WithAWSConfig allows providing a custom AWS configuration.
// This overrides the default configuration loading behavior.
func WithAWSConfig(config *aws.Config) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.CustomAWSConfig = config
	}
}

// WithEndpoint sets a custom S3 endpoint URL.
// This is useful for S3-compatible services or local testing with LocalStack.
func WithEndpoint(endpoint string) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Endpoint = endpoint
	}
}

// WithCustomHTTPClient allows providing a custom HTTP client.
// It takes precedence over WithTimeout.
func WithCustomHTTPClient(client *http.Client) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.CustomHTTPClient = client
	}
}

// WithDefaultBucket sets the bucket used when NewStream is called with an empty bucket.
func WithDefaultBucket(bucket string) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.DefaultBucket = bucket
	}
}

// WithLogger sets the structured logger. Logging is discarded by default.
func WithLogger(logger *slog.Logger) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Logger = logger
	}
}

// WithFilesystem sets a custom filesystem implementation for UploadFile.
// If not specified, defaults to the OS filesystem.
func WithFilesystem(filesystem fs.Filesystem) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Filesystem = filesystem
	}
}

// WithStreamConcurrency sets how many parts a stream keeps in flight.
// Writes block while the bound is reached.
func WithStreamConcurrency(concurrency int) s3types.StreamOption {
	return func(c *s3types.StreamConfig) {
		c.Concurrency = concurrency
	}
}

// WithPartSize sets the buffered size at which a stream cuts a part.
// It must be at least s3types.MinPartSize.
func WithPartSize(partSize int64) s3types.StreamOption {
	return func(c *s3types.StreamConfig) {
		c.PartSize = partSize
	}
}

// WithContentType sets the content type of the uploaded object.
func WithContentType(contentType string) s3types.StreamOption {
	return func(c *s3types.StreamConfig) {
		c.ContentType = contentType
	}
}

// WithMetadata adds user metadata to the uploaded object.
func WithMetadata(metadata map[string]string) s3types.StreamOption {
	return func(c *s3types.StreamConfig) {
		if c.Metadata == nil {
			c.Metadata = make(map[string]string, len(metadata))
		}
		for k, v := range metadata {
			c.Metadata[k] = v
		}
	}
}

// WithStorageClass sets the storage class of the uploaded object.
func WithStorageClass(class s3types.StorageClass) s3types.StreamOption {
	return func(c *s3types.StreamConfig) {
		c.StorageClass = class
	}
}

// WithACL sets the canned ACL of the uploaded object. Default is private.
func WithACL(acl s3types.ObjectACL) s3types.StreamOption {
	return func(c *s3types.StreamConfig) {
		c.ACL = acl
	}
}

// WithProgress sets a tracker that is updated once per acknowledged part.
func WithProgress(tracker s3types.ProgressTracker) s3types.StreamOption {
	return func(c *s3types.StreamConfig) {
		c.ProgressTracker = tracker
	}
}
