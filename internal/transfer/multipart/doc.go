// Package multipart drives the lifecycle of a single multipart upload.
// This includes creation, part numbering and bookkeeping, concurrent part
// uploads and the one-time commit of the ordered manifest.
//
// A Session latches the first store error and ignores every later callback,
// so callers observe exactly one terminal outcome.
package multipart
