package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/s3types"
)

var mimePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9\-+.]*\/[a-zA-Z0-9][a-zA-Z0-9\-+.]*(\s*;.*)?$`)

func invalid(op string, sentinel error, message string) *errors.Error {
	return errors.NewConfigError(op, sentinel).WithMessage(message)
}

// ValidateDestination validates the bucket and key of an upload.
func ValidateDestination(bucket, key string) error {
	if err := ValidateBucketName(bucket); err != nil {
		return err
	}
	return ValidateObjectKey(key)
}

// ValidateBucketName validates that a bucket name is DNS-compliant according to AWS S3 rules.
// Returns ErrInvalidBucketName if the bucket name is invalid.
func ValidateBucketName(bucket string) error {
	if err := validateBucketNameBasics(bucket); err != nil {
		return err.WithBucket(bucket)
	}
	if err := validateBucketNameCharacters(bucket); err != nil {
		return err.WithBucket(bucket)
	}
	if err := validateBucketNameStructure(bucket); err != nil {
		return err.WithBucket(bucket)
	}
	return nil
}

// ValidateObjectKey validates that an object key is non-empty, fits in
// 1024 bytes and holds no control characters.
func ValidateObjectKey(key string) error {
	const op = "validateObjectKey"

	switch {
	case key == "":
		return invalid(op, errors.ErrInvalidObjectKey, "object key cannot be empty")
	case len(key) > 1024:
		return invalid(op, errors.ErrInvalidObjectKey, "object key cannot exceed 1024 bytes").WithKey(key)
	case hasControlCharacters(key):
		return invalid(op, errors.ErrInvalidObjectKey, "object key cannot contain control characters").WithKey(key)
	}
	return nil
}

// ValidateMetadata validates metadata keys and values according to S3 rules.
func ValidateMetadata(metadata map[string]string) error {
	for key, value := range metadata {
		if err := validateMetadataKey(key); err != nil {
			return err
		}
		if err := validateMetadataValue(value); err != nil {
			return err
		}
	}
	return nil
}

// ValidateContentType validates that a content type looks like a MIME type.
func ValidateContentType(contentType string) error {
	if contentType == "" {
		return nil
	}
	if !mimePattern.MatchString(contentType) {
		return invalid("validateContentType", errors.ErrInvalidInput, "content type must be a valid MIME type")
	}
	return nil
}

// ValidateACL validates that an ACL value is a canned S3 ACL.
func ValidateACL(acl s3types.ObjectACL) error {
	switch acl {
	case "", s3types.ACLPrivate, s3types.ACLPublicRead, s3types.ACLAuthenticatedRead,
		s3types.ACLOwnerFullControl, "public-read-write", "aws-exec-read", "bucket-owner-read":
		return nil
	}
	return invalid("validateACL", errors.ErrInvalidInput, fmt.Sprintf("unsupported ACL %q", acl))
}

// ValidatePartSize checks that parts meet the store's size limits.
func ValidatePartSize(size int64) error {
	if size < s3types.MinPartSize || size > s3types.MaxPartSize {
		return invalid("validatePartSize", errors.ErrInvalidPartSize,
			fmt.Sprintf("part size %d must be between %d and %d bytes", size, s3types.MinPartSize, int64(s3types.MaxPartSize)))
	}
	return nil
}

// ValidateConcurrency checks that the in-flight bound is positive.
func ValidateConcurrency(n int) error {
	if n < 1 {
		return invalid("validateConcurrency", errors.ErrInvalidConcurrency,
			fmt.Sprintf("concurrency must be at least 1, got %d", n))
	}
	return nil
}

// validateBucketNameBasics validates basic bucket name requirements
func validateBucketNameBasics(bucket string) *errors.Error {
	const op = "validateBucketName"

	if bucket == "" {
		return invalid(op, errors.ErrInvalidBucketName, "bucket name cannot be empty")
	}

	// Bucket names must be between 3 and 63 characters long
	if len(bucket) < 3 || len(bucket) > 63 {
		return invalid(op, errors.ErrInvalidBucketName, "bucket name must be between 3 and 63 characters long")
	}

	return nil
}

// validateBucketNameCharacters validates allowed characters in bucket names
func validateBucketNameCharacters(bucket string) *errors.Error {
	for _, char := range bucket {
		if !isValidBucketChar(char) {
			return invalid("validateBucketName", errors.ErrInvalidBucketName,
				"bucket name can only contain lowercase letters, numbers, dots, and hyphens")
		}
	}
	return nil
}

// validateBucketNameStructure validates bucket name structural requirements
func validateBucketNameStructure(bucket string) *errors.Error {
	const op = "validateBucketName"

	first, last := bucket[0], bucket[len(bucket)-1]
	switch {
	case first == '-' || first == '.' || last == '-' || last == '.':
		return invalid(op, errors.ErrInvalidBucketName, "bucket name cannot start or end with a hyphen or dot")
	case isIPAddress(bucket):
		return invalid(op, errors.ErrInvalidBucketName, "bucket name cannot be formatted as an IP address")
	case strings.Contains(bucket, "..") || strings.Contains(bucket, "--"):
		return invalid(op, errors.ErrInvalidBucketName, "bucket name cannot contain two adjacent periods or hyphens")
	case bucket == "localhost":
		return invalid(op, errors.ErrInvalidBucketName, "bucket name cannot be a reserved word")
	}
	return nil
}

func isValidBucketChar(char rune) bool {
	return (char >= '0' && char <= '9') || (char >= 'a' && char <= 'z') || char == '.' || char == '-'
}

// isIPAddress checks if a string is formatted as an IPv4 address
func isIPAddress(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return false
	}

	for _, part := range parts {
		if part == "" || len(part) > 3 {
			return false
		}
		num := 0
		for _, char := range part {
			if char < '0' || char > '9' {
				return false
			}
			num = num*10 + int(char-'0')
		}
		if num > 255 {
			return false
		}
	}

	return true
}

func hasControlCharacters(key string) bool {
	return strings.IndexFunc(key, unicode.IsControl) >= 0
}

// validateMetadataKey validates a metadata key according to S3 rules
func validateMetadataKey(key string) error {
	const op = "validateMetadata"

	if key == "" {
		return invalid(op, errors.ErrInvalidInput, "metadata key cannot be empty")
	}
	if len(key) > 128 {
		return invalid(op, errors.ErrInvalidInput, "metadata key cannot exceed 128 characters")
	}

	// Keys cannot start with prefixes reserved by AWS
	lower := strings.ToLower(key)
	for _, prefix := range []string{"aws:", "x-amz-", "x-amz:"} {
		if strings.HasPrefix(lower, prefix) {
			return invalid(op, errors.ErrInvalidInput,
				fmt.Sprintf("metadata key cannot start with reserved prefix: %s", prefix))
		}
	}

	// Printable ASCII without spaces
	for _, char := range key {
		if char <= 32 || char > 126 {
			return invalid(op, errors.ErrInvalidInput, "metadata key can only contain printable ASCII characters")
		}
	}

	return nil
}

// validateMetadataValue validates a metadata value according to S3 rules
func validateMetadataValue(value string) error {
	const op = "validateMetadata"

	if len(value) > 2048 {
		return invalid(op, errors.ErrInvalidInput, "metadata value cannot exceed 2048 characters")
	}
	for _, char := range value {
		if !unicode.IsPrint(char) && char != '\t' {
			return invalid(op, errors.ErrInvalidInput, "metadata value can only contain printable characters")
		}
	}
	return nil
}
