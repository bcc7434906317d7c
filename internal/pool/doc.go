// Package pool provides memory management optimizations.
// This includes buffer pooling to reduce allocations.
//
// The pool package helps optimize performance for high-throughput uploads
// by reusing part-sized buffers once the store has acknowledged a part.
package pool
