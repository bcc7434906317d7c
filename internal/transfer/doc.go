// Package transfer manages streaming multipart transfers.
// This includes the multipart session state machine and the buffer
// accumulator that turns arbitrary writes into store-compliant parts.
//
// The stream adapter in the root package composes the two and owns the
// concurrency bound.
package transfer
