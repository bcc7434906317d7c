// Package testutil provides test utilities for progress tracking.
package testutil

import "sync"

// MockProgressTracker is a mock implementation of ProgressTracker for testing.
// It is safe for concurrent use since parts complete on their own goroutines.
type MockProgressTracker struct {
	mu sync.Mutex

	updateCalled     bool
	completeCalls    int
	errorCalls       int
	bytesTransferred int64
	lastError        error
	updates          []ProgressUpdate
}

// ProgressUpdate represents a single progress update event.
type ProgressUpdate struct {
	Transferred int64
	Total       int64
}

// Update records a progress update.
func (m *MockProgressTracker) Update(bytesTransferred, totalBytes int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalled = true
	m.bytesTransferred = bytesTransferred
	m.updates = append(m.updates, ProgressUpdate{
		Transferred: bytesTransferred,
		Total:       totalBytes,
	})
}

// Complete marks the operation as complete.
func (m *MockProgressTracker) Complete() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completeCalls++
}

// Error records an error.
func (m *MockProgressTracker) Error(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCalls++
	m.lastError = err
}

// UpdateCalled reports whether Update was called at least once.
func (m *MockProgressTracker) UpdateCalled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateCalled
}

// CompleteCalls returns how many times Complete was called.
func (m *MockProgressTracker) CompleteCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.completeCalls
}

// ErrorCalls returns how many times Error was called.
func (m *MockProgressTracker) ErrorCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errorCalls
}

// BytesTransferred returns the last reported transferred byte count.
func (m *MockProgressTracker) BytesTransferred() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bytesTransferred
}

// LastError returns the last reported error.
func (m *MockProgressTracker) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastError
}

// Updates returns a copy of all recorded updates.
func (m *MockProgressTracker) Updates() []ProgressUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ProgressUpdate(nil), m.updates...)
}
