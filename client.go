// Package s3stream provides client initialization and configuration.
//
// The Client creates upload streams against Amazon S3 or any S3-compatible
// store, holding the defaults that every stream inherits.
package s3stream

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/input-output-hk/catalyst-forge-libs/fs"
	"github.com/input-output-hk/catalyst-forge-libs/fs/billy"
	"github.com/minio/minio-go/v7"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/internal/s3api"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/s3types"
)

// Client creates upload streams. It is safe for concurrent use; each
// stream it creates is independent.
type Client struct {
	// s3Client is the store the streams upload to
	s3Client s3api.S3API

	// config holds the AWS configuration, empty for non-AWS stores
	config aws.Config

	defaultBucket string
	concurrency   int
	logger        *slog.Logger

	// mu protects concurrent access to client configuration
	mu sync.RWMutex

	// fs is the filesystem abstraction for UploadFile
	fs fs.Filesystem
}

func defaultClientConfig(opts []s3types.Option) *s3types.ClientConfig {
	cfg := &s3types.ClientConfig{
		MaxRetries:  3,
		Concurrency: s3types.DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func newClient(api s3api.S3API, awsCfg aws.Config, cfg *s3types.ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	// Default to OS filesystem rooted at /
	filesystem := cfg.Filesystem
	if filesystem == nil {
		filesystem = billy.NewOSFS("/")
	}

	return &Client{
		s3Client:      api,
		config:        awsCfg,
		defaultBucket: cfg.DefaultBucket,
		concurrency:   cfg.Concurrency,
		logger:        logger,
		fs:            filesystem,
	}
}

// New creates a client for Amazon S3 with the provided options.
// It loads AWS credentials using the default credential chain
// and applies the specified configuration options.
//
// Example:
//
//	client, err := s3stream.New(
//	    s3stream.WithRegion("us-west-2"),
//	    s3stream.WithConcurrency(4),
//	)
func New(opts ...s3types.Option) (*Client, error) {
	clientCfg := defaultClientConfig(opts)

	var (
		cfg aws.Config
		err error
	)
	if clientCfg.CustomAWSConfig != nil {
		cfg = *clientCfg.CustomAWSConfig
	} else {
		cfg, err = config.LoadDefaultConfig(context.Background())
		if err != nil {
			return nil, errors.NewConfigError("client initialization", err)
		}
	}

	// Apply region from options if specified, otherwise ensure a region is set
	if clientCfg.Region != "" {
		cfg.Region = clientCfg.Region
	} else if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	if clientCfg.MaxRetries > 0 {
		cfg.RetryMaxAttempts = clientCfg.MaxRetries
	}

	var s3Opts []func(*s3.Options)

	if clientCfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	if clientCfg.Endpoint != "" {
		endpoint := clientCfg.Endpoint
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}

	switch {
	case clientCfg.CustomHTTPClient != nil:
		httpClient := clientCfg.CustomHTTPClient
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.HTTPClient = httpClient
		})
	case clientCfg.Timeout > 0:
		httpClient := &http.Client{
			Timeout: clientCfg.Timeout,
		}
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.HTTPClient = httpClient
		})
	}

	return newClient(s3.NewFromConfig(cfg, s3Opts...), cfg, clientCfg), nil
}

// NewWithClient creates a client backed by a custom S3API implementation.
// AWS-specific options are ignored.
func NewWithClient(s3Client s3api.S3API, opts ...s3types.Option) *Client {
	return newClient(s3Client, aws.Config{}, defaultClientConfig(opts))
}

// NewWithMinio creates a client that uploads through a MinIO core client,
// for MinIO and other S3-compatible stores.
func NewWithMinio(core *minio.Core, opts ...s3types.Option) *Client {
	return NewWithClient(s3api.NewMinioAPI(core), opts...)
}

// SetFilesystem sets the filesystem implementation used by UploadFile.
func (c *Client) SetFilesystem(filesystem fs.Filesystem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fs = filesystem
}

func (c *Client) filesystem() fs.Filesystem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fs
}

// Close releases any resources held by the client.
// Streams already created keep running.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return nil
}
