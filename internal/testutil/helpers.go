// Package testutil provides test helper functions.
package testutil

import (
	"context"
	"crypto/md5"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// MiB is one mebibyte.
const MiB = 1024 * 1024

// StringPtr returns a pointer to the given string.
// This is useful for AWS SDK inputs that require string pointers.
func StringPtr(s string) *string {
	return aws.String(s)
}

// GenerateRandomData generates random bytes of the specified size.
// This is useful for creating test data for uploads.
func GenerateRandomData(size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(rand.Intn(256))
	}
	return data
}

// GenerateTestKey generates a test S3 object key with optional prefix.
// This helps ensure test isolation by using unique keys.
func GenerateTestKey(prefix string) string {
	timestamp := time.Now().UnixNano()
	random := rand.Int63n(100000)
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return fmt.Sprintf("%stest-object-%d-%d", prefix, timestamp, random)
}

// GenerateTestBucketName generates a valid test bucket name.
// Bucket names must be DNS-compliant and globally unique.
func GenerateTestBucketName(prefix string) string {
	timestamp := time.Now().Unix()
	random := rand.Int31n(10000)
	name := fmt.Sprintf("%s-%d-%d", prefix, timestamp, random)
	// Ensure DNS compliance
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "_", "-")
	if len(name) > 63 {
		name = name[:63]
	}
	return name
}

// CalculateETag calculates the ETag S3 reports for a single uploaded part.
func CalculateETag(data []byte) string {
	h := md5.Sum(data)
	return fmt.Sprintf(`"%x"`, h)
}

// CleanupTestBucket creates a function to clean up a test bucket.
// This should be used with t.Cleanup() to ensure buckets are deleted after tests.
func CleanupTestBucket(client *s3.Client, bucket string) func() {
	return func() {
		ctx := context.Background()
		listInput := &s3.ListObjectsV2Input{
			Bucket: StringPtr(bucket),
		}
		for {
			listOutput, err := client.ListObjectsV2(ctx, listInput)
			if err != nil || len(listOutput.Contents) == 0 {
				break
			}
			objects := make([]types.ObjectIdentifier, 0, len(listOutput.Contents))
			for _, obj := range listOutput.Contents {
				objects = append(objects, types.ObjectIdentifier{Key: obj.Key})
			}
			_, _ = client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
				Bucket: StringPtr(bucket),
				Delete: &types.Delete{Objects: objects},
			})
			if !aws.ToBool(listOutput.IsTruncated) {
				break
			}
			listInput.ContinuationToken = listOutput.NextContinuationToken
		}
		_, _ = client.DeleteBucket(ctx, &s3.DeleteBucketInput{
			Bucket: StringPtr(bucket),
		})
	}
}
