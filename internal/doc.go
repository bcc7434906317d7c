// Package internal contains private implementation details for the s3stream module.
// These packages are not intended for external use and may change without notice.
//
// The internal packages are organized as follows:
//   - s3api: The store interface and its MinIO adapter
//   - transfer: Part buffering and the multipart session
//   - validation: Input validation logic
//   - pool: Part buffer reuse
//   - testutil: Mocks, an in-memory store and LocalStack helpers for tests
package internal
