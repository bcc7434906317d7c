package s3api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/minio/minio-go/v7"
)

// MinioAPI adapts a MinIO core client to S3API so S3-compatible stores
// can back an upload stream without the AWS SDK transport.
type MinioAPI struct {
	core *minio.Core
}

// NewMinioAPI wraps core.
func NewMinioAPI(core *minio.Core) *MinioAPI {
	return &MinioAPI{core: core}
}

// CreateMultipartUpload initiates a multipart upload through MinIO.
func (m *MinioAPI) CreateMultipartUpload(
	ctx context.Context,
	params *s3.CreateMultipartUploadInput,
	_ ...func(*s3.Options),
) (*s3.CreateMultipartUploadOutput, error) {
	opts := minio.PutObjectOptions{
		ContentType:  aws.ToString(params.ContentType),
		UserMetadata: params.Metadata,
		StorageClass: string(params.StorageClass),
	}
	if params.ACL != "" {
		opts.UserMetadata = withHeader(opts.UserMetadata, "x-amz-acl", string(params.ACL))
	}

	uploadID, err := m.core.NewMultipartUpload(ctx, aws.ToString(params.Bucket), aws.ToString(params.Key), opts)
	if err != nil {
		return nil, translateMinioError(err)
	}

	return &s3.CreateMultipartUploadOutput{
		Bucket:   params.Bucket,
		Key:      params.Key,
		UploadId: aws.String(uploadID),
	}, nil
}

// UploadPart uploads one part through MinIO.
func (m *MinioAPI) UploadPart(
	ctx context.Context,
	params *s3.UploadPartInput,
	_ ...func(*s3.Options),
) (*s3.UploadPartOutput, error) {
	body, size, err := sizedBody(params)
	if err != nil {
		return nil, err
	}

	part, err := m.core.PutObjectPart(
		ctx,
		aws.ToString(params.Bucket),
		aws.ToString(params.Key),
		aws.ToString(params.UploadId),
		int(aws.ToInt32(params.PartNumber)),
		body,
		size,
		minio.PutObjectPartOptions{},
	)
	if err != nil {
		return nil, translateMinioError(err)
	}

	return &s3.UploadPartOutput{ETag: aws.String(part.ETag)}, nil
}

// CompleteMultipartUpload commits the upload through MinIO.
func (m *MinioAPI) CompleteMultipartUpload(
	ctx context.Context,
	params *s3.CompleteMultipartUploadInput,
	_ ...func(*s3.Options),
) (*s3.CompleteMultipartUploadOutput, error) {
	var parts []minio.CompletePart
	if params.MultipartUpload != nil {
		parts = make([]minio.CompletePart, 0, len(params.MultipartUpload.Parts))
		for _, p := range params.MultipartUpload.Parts {
			parts = append(parts, minio.CompletePart{
				PartNumber: int(aws.ToInt32(p.PartNumber)),
				ETag:       aws.ToString(p.ETag),
			})
		}
	}

	info, err := m.core.CompleteMultipartUpload(
		ctx,
		aws.ToString(params.Bucket),
		aws.ToString(params.Key),
		aws.ToString(params.UploadId),
		parts,
		minio.PutObjectOptions{},
	)
	if err != nil {
		return nil, translateMinioError(err)
	}

	out := &s3.CompleteMultipartUploadOutput{
		Bucket: params.Bucket,
		Key:    params.Key,
		ETag:   aws.String(info.ETag),
	}
	if info.Location != "" {
		out.Location = aws.String(info.Location)
	}
	if info.VersionID != "" {
		out.VersionId = aws.String(info.VersionID)
	}
	return out, nil
}

// sizedBody returns the part body with its length, buffering it when the
// caller did not provide ContentLength.
func sizedBody(params *s3.UploadPartInput) (io.Reader, int64, error) {
	if params.Body == nil {
		return bytes.NewReader(nil), 0, nil
	}
	if params.ContentLength != nil {
		return params.Body, aws.ToInt64(params.ContentLength), nil
	}
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read part body: %w", err)
	}
	return bytes.NewReader(data), int64(len(data)), nil
}

func withHeader(meta map[string]string, key, value string) map[string]string {
	out := make(map[string]string, len(meta)+1)
	for k, v := range meta {
		out[k] = v
	}
	out[key] = value
	return out
}

// translateMinioError converts MinIO error responses into smithy API errors
// so callers can classify them the same way as AWS SDK errors.
func translateMinioError(err error) error {
	var resp minio.ErrorResponse
	if !errors.As(err, &resp) {
		return err
	}
	fault := smithy.FaultUnknown
	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		fault = smithy.FaultServer
	case resp.StatusCode >= http.StatusBadRequest:
		fault = smithy.FaultClient
	}
	return &smithy.GenericAPIError{
		Code:    resp.Code,
		Message: resp.Message,
		Fault:   fault,
	}
}

var _ S3API = (*MinioAPI)(nil)
