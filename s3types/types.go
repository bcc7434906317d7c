// Package s3types provides shared type definitions for the s3stream module.
package s3types

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/input-output-hk/catalyst-forge-libs/fs"
)

const (
	// MinPartSize is the smallest part S3 accepts in a multipart upload,
	// excluding the last part.
	MinPartSize = 5 * 1024 * 1024

	// MaxPartSize is the largest part S3 accepts in a multipart upload.
	MaxPartSize = 5 * 1024 * 1024 * 1024

	// MaxParts is the maximum number of parts in a single multipart upload.
	MaxParts = 10000

	// DefaultConcurrency is the default number of parts in flight per stream.
	DefaultConcurrency = 1
)

// StorageClass represents the S3 storage class for objects.
type StorageClass string

// Predefined S3 storage classes
const (
	// StorageClassStandard is the default S3 storage class
	StorageClassStandard StorageClass = "STANDARD"

	// StorageClassStandardIA provides infrequent access storage
	StorageClassStandardIA StorageClass = "STANDARD_IA"

	// StorageClassOneZoneIA provides one zone infrequent access storage
	StorageClassOneZoneIA StorageClass = "ONEZONE_IA"

	// StorageClassIntelligentTiering provides intelligent tiering storage
	StorageClassIntelligentTiering StorageClass = "INTELLIGENT_TIERING"

	// StorageClassGlacier provides Glacier archival storage
	StorageClassGlacier StorageClass = "GLACIER"

	// StorageClassDeepArchive provides Deep Archive storage
	StorageClassDeepArchive StorageClass = "DEEP_ARCHIVE"
)

// ObjectACL represents the access control list for S3 objects.
type ObjectACL string

// Predefined object ACLs
const (
	// ACLPrivate grants private access (default)
	ACLPrivate ObjectACL = "private"

	// ACLPublicRead grants public read access
	ACLPublicRead ObjectACL = "public-read"

	// ACLAuthenticatedRead grants authenticated users read access
	ACLAuthenticatedRead ObjectACL = "authenticated-read"

	// ACLOwnerFullControl grants bucket owner full control
	ACLOwnerFullControl ObjectACL = "bucket-owner-full-control"
)

// StreamState is the lifecycle state of a Stream.
type StreamState int

const (
	// StateOpen accepts writes.
	StateOpen StreamState = iota
	// StateEnding means Close was called and the commit is pending.
	StateEnding
	// StateDone means the upload was committed.
	StateDone
	// StateFailed means the upload failed; the error is latched.
	StateFailed
)

// String returns the state name.
func (s StreamState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateEnding:
		return "ending"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition can leave the state.
func (s StreamState) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// ProgressTracker defines the interface for tracking upload progress.
// Update is called once per acknowledged part with monotonically increasing values.
type ProgressTracker interface {
	// Update is called with the bytes acknowledged by the store so far and
	// the bytes accepted by the stream so far.
	Update(bytesTransferred, totalBytes int64)

	// Complete is called when the upload commits successfully
	Complete()

	// Error is called once when the upload fails
	Error(err error)
}

// Progress is a snapshot of a stream's progress.
type Progress struct {
	// BytesWritten is the number of bytes accepted by Write
	BytesWritten int64

	// BytesUploaded is the number of bytes acknowledged by the store
	BytesUploaded int64

	// PartsSubmitted is the number of parts handed to the session
	PartsSubmitted int

	// PartsUploaded is the number of parts acknowledged by the store
	PartsUploaded int

	// InFlight is the number of parts currently uploading
	InFlight int
}

// UploadResult contains the result of a committed multipart upload.
type UploadResult struct {
	// Bucket is the bucket the object was written to
	Bucket string

	// Key is the S3 object key that was uploaded
	Key string

	// UploadID is the multipart upload id assigned by the store
	UploadID string

	// Location is the URL of the object, if the store returned one
	Location string

	// Size is the size of the uploaded object in bytes
	Size int64

	// Parts is the number of parts in the committed manifest
	Parts int

	// ETag is the S3 entity tag for the uploaded object
	ETag string

	// VersionID is the version ID if versioning is enabled
	VersionID string

	// Duration is how long the upload took
	Duration time.Duration
}

// Configuration types for functional options

// ClientConfig holds configuration for the client.
type ClientConfig struct {
	Region           string
	Endpoint         string
	MaxRetries       int
	Timeout          time.Duration
	Concurrency      int
	ForcePathStyle   bool
	CustomAWSConfig  *aws.Config
	CustomHTTPClient *http.Client
	DefaultBucket    string
	Logger           *slog.Logger
	Filesystem       fs.Filesystem // Filesystem abstraction for file operations
}

// StreamConfig holds configuration for a single upload stream.
type StreamConfig struct {
	ContentType     string
	Metadata        map[string]string
	StorageClass    StorageClass
	ACL             ObjectACL
	ProgressTracker ProgressTracker
	PartSize        int64
	Concurrency     int
}

// Option is a functional option for configuring the client.
type (
	Option func(*ClientConfig)
	// StreamOption is a functional option for configuring an upload stream.
	StreamOption func(*StreamConfig)
)
