// Package testutil provides an in-memory multipart store for deterministic tests.
package testutil

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/internal/s3api"
)

// Op names a store operation observed by MemoryStore.
type Op string

// Operations recorded by MemoryStore.
const (
	OpCreate     Op = "CreateMultipartUpload"
	OpUploadPart Op = "UploadPart"
	OpComplete   Op = "CompleteMultipartUpload"
)

// Call describes one store call. It is passed to the Hook and kept in the call log.
type Call struct {
	Op         Op
	Bucket     string
	Key        string
	UploadID   string
	PartNumber int32
	Size       int64
	// Parts is the manifest size for OpComplete.
	Parts int
}

// StoredObject is an object assembled by a successful commit.
type StoredObject struct {
	Data         []byte
	ContentType  string
	Metadata     map[string]string
	StorageClass string
	ACL          string
	PartNumbers  []int32
	PartSizes    []int64
}

type memPart struct {
	data []byte
	etag string
}

type memUpload struct {
	bucket       string
	key          string
	contentType  string
	metadata     map[string]string
	storageClass string
	acl          string
	parts        map[int32]memPart
}

// MemoryStore is an in-memory implementation of s3api.S3API.
// It validates commit manifests the way S3 does and records every call.
type MemoryStore struct {
	// Hook, if set, runs at the start of every call after it is recorded.
	// It may block to control scheduling or return an error to fail the call.
	Hook func(ctx context.Context, call Call) error

	// MinPartSize, if positive, rejects commits whose non-final parts are smaller.
	MinPartSize int64

	mu          sync.Mutex
	uploads     map[string]*memUpload
	objects     map[string]*StoredObject
	calls       []Call
	inFlight    int
	maxInFlight int
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		uploads: make(map[string]*memUpload),
		objects: make(map[string]*StoredObject),
	}
}

func objectKey(bucket, key string) string {
	return bucket + "/" + key
}

func apiError(code, msg string) error {
	return &smithy.GenericAPIError{Code: code, Message: msg, Fault: smithy.FaultClient}
}

func (m *MemoryStore) record(call Call) {
	m.mu.Lock()
	m.calls = append(m.calls, call)
	m.mu.Unlock()
}

func (m *MemoryStore) runHook(ctx context.Context, call Call) error {
	if m.Hook == nil {
		return nil
	}
	return m.Hook(ctx, call)
}

// CreateMultipartUpload starts a new upload and returns a random upload id.
func (m *MemoryStore) CreateMultipartUpload(
	ctx context.Context,
	params *s3.CreateMultipartUploadInput,
	_ ...func(*s3.Options),
) (*s3.CreateMultipartUploadOutput, error) {
	call := Call{Op: OpCreate, Bucket: aws.ToString(params.Bucket), Key: aws.ToString(params.Key)}
	m.record(call)
	if err := m.runHook(ctx, call); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	m.mu.Lock()
	m.uploads[id] = &memUpload{
		bucket:       call.Bucket,
		key:          call.Key,
		contentType:  aws.ToString(params.ContentType),
		metadata:     params.Metadata,
		storageClass: string(params.StorageClass),
		acl:          string(params.ACL),
		parts:        make(map[int32]memPart),
	}
	m.mu.Unlock()

	return &s3.CreateMultipartUploadOutput{
		Bucket:   params.Bucket,
		Key:      params.Key,
		UploadId: aws.String(id),
	}, nil
}

// UploadPart stores a copy of the part body.
func (m *MemoryStore) UploadPart(
	ctx context.Context,
	params *s3.UploadPartInput,
	_ ...func(*s3.Options),
) (*s3.UploadPartOutput, error) {
	var data []byte
	if params.Body != nil {
		var err error
		data, err = io.ReadAll(params.Body)
		if err != nil {
			return nil, fmt.Errorf("read part body: %w", err)
		}
	}

	call := Call{
		Op:         OpUploadPart,
		Bucket:     aws.ToString(params.Bucket),
		Key:        aws.ToString(params.Key),
		UploadID:   aws.ToString(params.UploadId),
		PartNumber: aws.ToInt32(params.PartNumber),
		Size:       int64(len(data)),
	}

	m.mu.Lock()
	m.calls = append(m.calls, call)
	m.inFlight++
	if m.inFlight > m.maxInFlight {
		m.maxInFlight = m.inFlight
	}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if err := m.runHook(ctx, call); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	up, ok := m.uploads[call.UploadID]
	if !ok {
		return nil, apiError("NoSuchUpload", "the specified upload does not exist")
	}
	if call.PartNumber < 1 || call.PartNumber > 10000 {
		return nil, apiError("InvalidArgument", "part number must be between 1 and 10000")
	}
	etag := CalculateETag(data)
	up.parts[call.PartNumber] = memPart{data: data, etag: etag}

	return &s3.UploadPartOutput{ETag: aws.String(etag)}, nil
}

// CompleteMultipartUpload validates the manifest and assembles the object.
func (m *MemoryStore) CompleteMultipartUpload(
	ctx context.Context,
	params *s3.CompleteMultipartUploadInput,
	_ ...func(*s3.Options),
) (*s3.CompleteMultipartUploadOutput, error) {
	call := Call{
		Op:       OpComplete,
		Bucket:   aws.ToString(params.Bucket),
		Key:      aws.ToString(params.Key),
		UploadID: aws.ToString(params.UploadId),
	}
	if params.MultipartUpload != nil {
		call.Parts = len(params.MultipartUpload.Parts)
	}
	m.record(call)
	if err := m.runHook(ctx, call); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	up, ok := m.uploads[call.UploadID]
	if !ok {
		return nil, apiError("NoSuchUpload", "the specified upload does not exist")
	}
	if call.Parts == 0 {
		return nil, apiError("MalformedXML", "the manifest must contain at least one part")
	}

	manifest := params.MultipartUpload.Parts
	if len(manifest) != len(up.parts) {
		return nil, apiError("InvalidPart",
			fmt.Sprintf("manifest lists %d parts but %d were uploaded", len(manifest), len(up.parts)))
	}

	obj := &StoredObject{
		ContentType:  up.contentType,
		Metadata:     up.metadata,
		StorageClass: up.storageClass,
		ACL:          up.acl,
	}
	var (
		buf     bytes.Buffer
		digests []byte
		prev    int32
	)
	for i, cp := range manifest {
		n := aws.ToInt32(cp.PartNumber)
		if n <= prev {
			return nil, apiError("InvalidPartOrder", "parts must be listed in ascending order")
		}
		prev = n

		p, ok := up.parts[n]
		if !ok || p.etag != aws.ToString(cp.ETag) {
			return nil, apiError("InvalidPart", fmt.Sprintf("part %d was not found or its ETag does not match", n))
		}
		if m.MinPartSize > 0 && i < len(manifest)-1 && int64(len(p.data)) < m.MinPartSize {
			return nil, apiError("EntityTooSmall", fmt.Sprintf("part %d is smaller than the minimum allowed size", n))
		}

		buf.Write(p.data)
		sum := md5.Sum(p.data)
		digests = append(digests, sum[:]...)
		obj.PartNumbers = append(obj.PartNumbers, n)
		obj.PartSizes = append(obj.PartSizes, int64(len(p.data)))
	}
	obj.Data = buf.Bytes()

	m.objects[objectKey(call.Bucket, call.Key)] = obj
	delete(m.uploads, call.UploadID)

	sum := md5.Sum(digests)
	return &s3.CompleteMultipartUploadOutput{
		Bucket:   params.Bucket,
		Key:      params.Key,
		Location: aws.String("memory://" + objectKey(call.Bucket, call.Key)),
		ETag:     aws.String(fmt.Sprintf(`"%s-%d"`, hex.EncodeToString(sum[:]), len(manifest))),
	}, nil
}

// Object returns the committed object at bucket/key.
func (m *MemoryStore) Object(bucket, key string) (*StoredObject, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[objectKey(bucket, key)]
	return obj, ok
}

// Calls returns a copy of the call log in arrival order.
func (m *MemoryStore) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// CallCount returns how many calls of op were made.
func (m *MemoryStore) CallCount(op Op) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// InFlight returns the number of UploadPart calls currently running.
func (m *MemoryStore) InFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inFlight
}

// MaxInFlight returns the highest number of concurrent UploadPart calls seen.
func (m *MemoryStore) MaxInFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxInFlight
}

// OpenUploads returns the number of uploads that were created but not committed.
func (m *MemoryStore) OpenUploads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.uploads)
}

var _ s3api.S3API = (*MemoryStore)(nil)

// PartGate holds UploadPart calls until a test releases them by part number.
// Use its Hook as MemoryStore.Hook.
type PartGate struct {
	mu      sync.Mutex
	gates   map[int32]chan struct{}
	errs    map[int32]error
	open    bool
	arrived chan int32
}

// NewPartGate creates a gate with every part held.
func NewPartGate() *PartGate {
	return &PartGate{
		gates:   make(map[int32]chan struct{}),
		errs:    make(map[int32]error),
		arrived: make(chan int32, 1024),
	}
}

func (g *PartGate) gate(n int32) chan struct{} {
	ch, ok := g.gates[n]
	if !ok {
		ch = make(chan struct{})
		if g.open {
			close(ch)
		}
		g.gates[n] = ch
	}
	return ch
}

// Hook blocks UploadPart calls until their part is released.
func (g *PartGate) Hook(ctx context.Context, call Call) error {
	if call.Op != OpUploadPart {
		return nil
	}
	g.mu.Lock()
	ch := g.gate(call.PartNumber)
	g.mu.Unlock()

	g.arrived <- call.PartNumber

	select {
	case <-ch:
	case <-ctx.Done():
		return ctx.Err()
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	return g.errs[call.PartNumber]
}

// Arrived delivers part numbers as their UploadPart calls reach the gate.
func (g *PartGate) Arrived() <-chan int32 {
	return g.arrived
}

// Release lets part n proceed.
func (g *PartGate) Release(n int32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch := g.gate(n)
	select {
	case <-ch:
	default:
		close(ch)
	}
}

// Fail lets part n proceed and makes its call return err.
func (g *PartGate) Fail(n int32, err error) {
	g.mu.Lock()
	g.errs[n] = err
	g.mu.Unlock()
	g.Release(n)
}

// ReleaseAll lets every current and future part proceed.
func (g *PartGate) ReleaseAll() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.open = true
	for _, ch := range g.gates {
		select {
		case <-ch:
		default:
			close(ch)
		}
	}
}
