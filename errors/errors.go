// Package errors provides error types and handling for streaming S3 uploads.
package errors

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

// Kind classifies where an upload error originated.
type Kind int

const (
	// KindUnknown is reported for errors that did not come from this module.
	KindUnknown Kind = iota

	// KindConfiguration indicates invalid caller configuration, detected
	// before any store call was made.
	KindConfiguration

	// KindStoreCommunication indicates a store operation failed.
	KindStoreCommunication

	// KindProtocolViolation indicates the store rejected the upload because
	// the part manifest or a part did not satisfy the multipart protocol.
	KindProtocolViolation
)

// String returns a readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindStoreCommunication:
		return "store communication"
	case KindProtocolViolation:
		return "protocol violation"
	default:
		return "unknown"
	}
}

// Error represents a streaming upload error with context about the operation that failed.
// It wraps the underlying AWS SDK error with additional context for better debugging.
type Error struct {
	// Op is the operation that failed (e.g., "createMultipartUpload", "uploadPart")
	Op string

	// Bucket is the S3 bucket name (if applicable)
	Bucket string

	// Key is the S3 object key (if applicable)
	Key string

	// PartNumber is the part being uploaded when the error occurred (0 if none)
	PartNumber int32

	// Kind classifies the failure
	Kind Kind

	// Err is the underlying error from the AWS SDK or other source
	Err error
}

// Error implements the error interface by providing a formatted error message.
func (e *Error) Error() string {
	target := ""
	switch {
	case e.Bucket != "" && e.Key != "":
		target = fmt.Sprintf(" %s/%s", e.Bucket, e.Key)
	case e.Bucket != "":
		target = " bucket " + e.Bucket
	case e.Key != "":
		target = " object " + e.Key
	}
	if e.PartNumber > 0 {
		target += fmt.Sprintf(" part %d", e.PartNumber)
	}
	return fmt.Sprintf("s3stream.%s%s: %v", e.Op, target, e.Err)
}

// Unwrap returns the underlying error for error chaining support.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel matching this error's kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrConfiguration:
		return e.Kind == KindConfiguration
	case ErrStoreCommunication:
		return e.Kind == KindStoreCommunication
	case ErrProtocolViolation:
		return e.Kind == KindProtocolViolation
	}
	return false
}

// WithBucket adds bucket context to an existing error.
func (e *Error) WithBucket(bucket string) *Error {
	e.Bucket = bucket
	return e
}

// WithKey adds object key context to an existing error.
func (e *Error) WithKey(key string) *Error {
	e.Key = key
	return e
}

// WithPart adds part number context to an existing error.
func (e *Error) WithPart(partNumber int32) *Error {
	e.PartNumber = partNumber
	return e
}

// WithMessage wraps the underlying error with a custom message.
func (e *Error) WithMessage(message string) *Error {
	e.Err = fmt.Errorf("%s: %w", message, e.Err)
	return e
}

// NewError creates a new Error with the given operation and underlying error.
// The kind is inherited from err when err is itself an *Error.
func NewError(op string, err error) *Error {
	return &Error{
		Op:   op,
		Kind: KindOf(err),
		Err:  err,
	}
}

// NewConfigError creates a configuration error. These are returned
// synchronously, before any store call is attempted.
func NewConfigError(op string, err error) *Error {
	return &Error{
		Op:   op,
		Kind: KindConfiguration,
		Err:  err,
	}
}

// NewStoreError wraps an error returned by a store operation, classifying it
// as a protocol violation or a communication failure.
func NewStoreError(op string, err error) *Error {
	return &Error{
		Op:   op,
		Kind: Classify(err),
		Err:  err,
	}
}

// NewProtocolError creates an error for a multipart protocol rule broken
// on the client side, such as exceeding the part limit.
func NewProtocolError(op string, err error) *Error {
	return &Error{
		Op:   op,
		Kind: KindProtocolViolation,
		Err:  err,
	}
}

// Sentinel errors for streaming upload failures.
// These can be used with errors.Is() for error checking.
var (
	// ErrConfiguration matches every configuration error
	ErrConfiguration = errors.New("s3stream: invalid configuration")

	// ErrStoreCommunication matches every failed store operation
	ErrStoreCommunication = errors.New("s3stream: store communication failed")

	// ErrProtocolViolation matches store rejections of the part manifest
	ErrProtocolViolation = errors.New("s3stream: multipart protocol violation")

	// ErrInvalidInput indicates that the provided input is invalid
	ErrInvalidInput = errors.New("s3stream: invalid input")

	// ErrInvalidBucketName indicates that the bucket name is missing or invalid
	ErrInvalidBucketName = errors.New("s3stream: invalid bucket name")

	// ErrInvalidObjectKey indicates that the object key is missing or invalid
	ErrInvalidObjectKey = errors.New("s3stream: invalid object key")

	// ErrInvalidPartSize indicates a part size below the store minimum
	ErrInvalidPartSize = errors.New("s3stream: invalid part size")

	// ErrInvalidConcurrency indicates a non-positive concurrency bound
	ErrInvalidConcurrency = errors.New("s3stream: invalid concurrency")

	// ErrStreamClosed indicates a write after the stream was closed
	ErrStreamClosed = errors.New("s3stream: stream closed")

	// ErrSessionClosed indicates a part submitted after the session was closed
	ErrSessionClosed = errors.New("s3stream: session closed")

	// ErrIncompleteManifest indicates the manifest had unfilled part slots at commit
	ErrIncompleteManifest = errors.New("s3stream: incomplete part manifest")

	// ErrTooManyParts indicates the upload would exceed the store's part limit
	ErrTooManyParts = errors.New("s3stream: too many parts")
)

// protocolCodes are store error codes that mean the manifest or a part was
// rejected rather than the request failing in transit.
var protocolCodes = map[string]bool{
	"InvalidPart":      true,
	"InvalidPartOrder": true,
	"NoSuchUpload":     true,
	"EntityTooSmall":   true,
	"MalformedXML":     true,
}

// Classify returns KindProtocolViolation for store errors whose API error code
// indicates a manifest or part rejection and KindStoreCommunication otherwise.
func Classify(err error) Kind {
	if errors.Is(err, ErrIncompleteManifest) {
		return KindProtocolViolation
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && protocolCodes[apiErr.ErrorCode()] {
		return KindProtocolViolation
	}
	return KindStoreCommunication
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsConfiguration checks if an error is a configuration error.
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsStoreCommunication checks if an error came from a failed store operation.
func IsStoreCommunication(err error) bool {
	return errors.Is(err, ErrStoreCommunication)
}

// IsProtocolViolation checks if the store rejected the multipart manifest or a part.
func IsProtocolViolation(err error) bool {
	return errors.Is(err, ErrProtocolViolation)
}

// IsInvalidInput checks if an error indicates invalid input.
// This is a convenience function that handles both sentinel errors and wrapped errors.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}
