package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "plain error", err: errors.New("connection reset"), want: KindStoreCommunication},
		{name: "context cancelled", err: context.Canceled, want: KindStoreCommunication},
		{name: "access denied", err: &smithy.GenericAPIError{Code: "AccessDenied"}, want: KindStoreCommunication},
		{name: "invalid part", err: &smithy.GenericAPIError{Code: "InvalidPart"}, want: KindProtocolViolation},
		{name: "invalid part order", err: &smithy.GenericAPIError{Code: "InvalidPartOrder"}, want: KindProtocolViolation},
		{name: "entity too small", err: &smithy.GenericAPIError{Code: "EntityTooSmall"}, want: KindProtocolViolation},
		{name: "no such upload", err: &smithy.GenericAPIError{Code: "NoSuchUpload"}, want: KindProtocolViolation},
		{name: "malformed manifest", err: &smithy.GenericAPIError{Code: "MalformedXML"}, want: KindProtocolViolation},
		{
			name: "wrapped api error",
			err:  fmt.Errorf("operation error S3: %w", &smithy.GenericAPIError{Code: "InvalidPart"}),
			want: KindProtocolViolation,
		},
		{name: "incomplete manifest", err: ErrIncompleteManifest, want: KindProtocolViolation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestError_Is(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name      string
		err       error
		config    bool
		store     bool
		protocol  bool
		invalidIn bool
	}{
		{
			name:      "configuration",
			err:       NewConfigError("validate", ErrInvalidInput),
			config:    true,
			invalidIn: true,
		},
		{
			name:  "store",
			err:   NewStoreError("uploadPart", cause),
			store: true,
		},
		{
			name:     "protocol",
			err:      NewStoreError("completeMultipartUpload", &smithy.GenericAPIError{Code: "InvalidPartOrder"}),
			protocol: true,
		},
		{
			name:     "client side protocol",
			err:      NewProtocolError("submitPart", ErrTooManyParts),
			protocol: true,
		},
		{
			name:   "kind inherited through NewError",
			err:    NewError("upload", NewConfigError("validate", ErrInvalidPartSize)),
			config: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.config, IsConfiguration(tt.err))
			assert.Equal(t, tt.store, IsStoreCommunication(tt.err))
			assert.Equal(t, tt.protocol, IsProtocolViolation(tt.err))
			assert.Equal(t, tt.invalidIn, IsInvalidInput(tt.err))
		})
	}

	assert.ErrorIs(t, NewStoreError("uploadPart", cause), cause)
	assert.Equal(t, KindUnknown, KindOf(cause))
}

func TestError_Message(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "bucket key and part",
			err:  NewStoreError("uploadPart", errors.New("timeout")).WithBucket("b").WithKey("k").WithPart(3),
			want: "s3stream.uploadPart b/k part 3: timeout",
		},
		{
			name: "bucket only",
			err:  NewConfigError("validateBucketName", ErrInvalidBucketName).WithBucket("B"),
			want: "s3stream.validateBucketName bucket B: s3stream: invalid bucket name",
		},
		{
			name: "with message",
			err:  NewConfigError("validatePartSize", ErrInvalidPartSize).WithMessage("too small"),
			want: "s3stream.validatePartSize: too small: s3stream: invalid part size",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestError_WithMessageKeepsChain(t *testing.T) {
	err := NewConfigError("validatePartSize", ErrInvalidPartSize).WithMessage("too small")

	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, KindConfiguration, e.Kind)
	assert.ErrorIs(t, err, ErrInvalidPartSize)
	assert.Equal(t, "protocol violation", KindProtocolViolation.String())
}
