package multipart

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awstypes "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/internal/s3api"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/s3types"
)

// Destination identifies the object being uploaded.
type Destination struct {
	Bucket string
	Key    string
}

// Config holds object attributes sent with CreateMultipartUpload.
type Config struct {
	ContentType  string
	Metadata     map[string]string
	StorageClass s3types.StorageClass
	ACL          s3types.ObjectACL
}

// CompletedPart is passed to a part's completion callback once the store
// acknowledged it.
type CompletedPart struct {
	PartNumber int32
	ETag       string
	Size       int64
}

type part struct {
	number     int32
	data       []byte
	onComplete func(CompletedPart)
}

// Session is one multipart upload. Parts may be submitted before the
// upload id is known; they are queued and released in submission order
// once CreateMultipartUpload succeeds.
type Session struct {
	ctx       context.Context
	api       s3api.S3API
	dest      Destination
	cfg       Config
	logger    *slog.Logger
	startTime time.Time

	mu         sync.Mutex
	uploadID   string
	started    bool
	closed     bool
	committing bool
	nextPart   int32
	pending    int
	parts      []awstypes.CompletedPart // indexed by part number - 1
	filled     int
	totalSize  int64
	queued     []*part

	once   sync.Once
	done   chan struct{}
	result *s3types.UploadResult
	err    error
}

// NewSession validates the destination and starts creating the upload in
// the background. ctx bounds every store call the session makes.
func NewSession(
	ctx context.Context,
	api s3api.S3API,
	dest Destination,
	cfg Config,
	logger *slog.Logger,
) (*Session, error) {
	if api == nil {
		return nil, errors.NewConfigError("newSession", errors.ErrInvalidInput).
			WithMessage("store client is required")
	}
	if err := validation.ValidateDestination(dest.Bucket, dest.Key); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Session{
		ctx:       ctx,
		api:       api,
		dest:      dest,
		cfg:       cfg,
		logger:    logger.With("bucket", dest.Bucket, "key", dest.Key),
		startTime: time.Now(),
		done:      make(chan struct{}),
	}

	go s.create()

	return s, nil
}

// SubmitPart assigns the next part number to data and uploads it once the
// session has started. onComplete runs after the store acknowledges the
// part and before any commit it triggers. The session keeps a reference to
// data until then.
func (s *Session) SubmitPart(data []byte, onComplete func(CompletedPart)) (int32, error) {
	s.mu.Lock()

	if s.isDone() && s.err != nil {
		err := s.err
		s.mu.Unlock()
		return 0, err
	}
	if s.closed || s.isDone() {
		s.mu.Unlock()
		return 0, s.wrap(errors.NewError("submitPart", errors.ErrSessionClosed))
	}
	if s.nextPart >= s3types.MaxParts {
		s.mu.Unlock()
		err := s.wrap(errors.NewProtocolError("submitPart", errors.ErrTooManyParts).
			WithMessage(fmt.Sprintf("limit is %d parts", s3types.MaxParts)))
		s.fail(err)
		return 0, err
	}

	s.nextPart++
	p := &part{number: s.nextPart, data: data, onComplete: onComplete}
	s.pending++
	s.parts = append(s.parts, awstypes.CompletedPart{})

	started, uploadID := s.started, s.uploadID
	if !started {
		s.queued = append(s.queued, p)
	}
	s.mu.Unlock()

	if started {
		go s.upload(uploadID, p)
	}
	return p.number, nil
}

// Close marks the end of input. The commit is issued as soon as every
// submitted part is acknowledged. Close is idempotent and does not block.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	commit := s.shouldCommitLocked()
	s.mu.Unlock()

	if commit {
		go s.commit()
	}
}

// Abandon ends the session with err without calling the store again.
// The upload id, if any, is left for the store's lifecycle rules.
// It has no effect once the session is terminal.
func (s *Session) Abandon(err error) {
	s.fail(err)
}

// Done is closed when the session reaches its terminal outcome.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err returns the latched error, or nil while the session is running or
// after it committed.
func (s *Session) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// Result returns the commit result, or nil until the session committed.
func (s *Session) Result() *s3types.UploadResult {
	select {
	case <-s.done:
		return s.result
	default:
		return nil
	}
}

// Wait blocks until the session finishes or ctx is done.
func (s *Session) Wait(ctx context.Context) (*s3types.UploadResult, error) {
	select {
	case <-s.done:
		return s.result, s.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// UploadID returns the store's upload id, or "" before creation completed.
func (s *Session) UploadID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uploadID
}

// Pending returns the number of submitted parts whose acknowledgement and
// completion callback have not both finished.
func (s *Session) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Destination returns the bucket and key of the upload.
func (s *Session) Destination() Destination {
	return s.dest
}

func (s *Session) create() {
	input := &s3.CreateMultipartUploadInput{
		Bucket: aws.String(s.dest.Bucket),
		Key:    aws.String(s.dest.Key),
	}
	if s.cfg.ContentType != "" {
		input.ContentType = aws.String(s.cfg.ContentType)
	}
	if s.cfg.StorageClass != "" {
		input.StorageClass = awstypes.StorageClass(s.cfg.StorageClass)
	}
	if s.cfg.ACL != "" {
		input.ACL = awstypes.ObjectCannedACL(s.cfg.ACL)
	}
	if len(s.cfg.Metadata) > 0 {
		input.Metadata = s.cfg.Metadata
	}

	s.logger.DebugContext(s.ctx, "creating multipart upload")

	output, err := s.api.CreateMultipartUpload(s.ctx, input)
	if err != nil {
		s.fail(s.wrap(errors.NewStoreError("createMultipartUpload", err)))
		return
	}
	uploadID := aws.ToString(output.UploadId)
	if uploadID == "" {
		s.fail(s.wrap(errors.NewProtocolError("createMultipartUpload",
			fmt.Errorf("store returned an empty upload id"))))
		return
	}

	s.mu.Lock()
	if s.isDone() {
		s.mu.Unlock()
		return
	}
	s.uploadID = uploadID
	s.started = true
	queued := s.queued
	s.queued = nil
	commit := s.shouldCommitLocked()
	s.mu.Unlock()

	s.logger.DebugContext(s.ctx, "multipart upload created",
		"upload_id", uploadID,
		"queued_parts", len(queued))

	for _, p := range queued {
		go s.upload(uploadID, p)
	}
	if commit {
		s.commit()
	}
}

func (s *Session) upload(uploadID string, p *part) {
	if s.isDone() {
		return
	}

	size := int64(len(p.data))
	output, err := s.api.UploadPart(s.ctx, &s3.UploadPartInput{
		Bucket:        aws.String(s.dest.Bucket),
		Key:           aws.String(s.dest.Key),
		UploadId:      aws.String(uploadID),
		PartNumber:    aws.Int32(p.number),
		Body:          bytes.NewReader(p.data),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		s.fail(s.wrap(errors.NewStoreError("uploadPart", err)).WithPart(p.number))
		return
	}
	etag := aws.ToString(output.ETag)

	s.mu.Lock()
	if s.isDone() {
		s.mu.Unlock()
		return
	}
	s.parts[p.number-1] = awstypes.CompletedPart{
		PartNumber: aws.Int32(p.number),
		ETag:       aws.String(etag),
	}
	s.filled++
	s.totalSize += size
	uploading := s.pending - 1
	s.mu.Unlock()

	p.data = nil

	s.logger.DebugContext(s.ctx, "part uploaded",
		"part", p.number,
		"size", size,
		"uploading", uploading)

	// The part stays pending until its callback returned, so the commit
	// never overtakes a completion.
	if p.onComplete != nil {
		p.onComplete(CompletedPart{PartNumber: p.number, ETag: etag, Size: size})
	}

	s.mu.Lock()
	s.pending--
	commit := s.shouldCommitLocked()
	s.mu.Unlock()

	if commit {
		s.commit()
	}
}

// shouldCommitLocked decides the commit exactly once. s.mu must be held.
func (s *Session) shouldCommitLocked() bool {
	if !s.closed || !s.started || s.pending != 0 || s.committing {
		return false
	}
	s.committing = true
	return true
}

func (s *Session) commit() {
	if s.isDone() {
		return
	}

	s.mu.Lock()
	manifest := make([]awstypes.CompletedPart, len(s.parts))
	copy(manifest, s.parts)
	filled, size, uploadID := s.filled, s.totalSize, s.uploadID
	s.mu.Unlock()

	if filled != len(manifest) {
		s.fail(s.wrap(errors.NewProtocolError("completeMultipartUpload", errors.ErrIncompleteManifest).
			WithMessage(fmt.Sprintf("%d of %d parts acknowledged", filled, len(manifest)))))
		return
	}

	s.logger.DebugContext(s.ctx, "completing multipart upload",
		"upload_id", uploadID,
		"parts", len(manifest))

	output, err := s.api.CompleteMultipartUpload(s.ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(s.dest.Bucket),
		Key:      aws.String(s.dest.Key),
		UploadId: aws.String(uploadID),
		MultipartUpload: &awstypes.CompletedMultipartUpload{
			Parts: manifest,
		},
	})
	if err != nil {
		s.fail(s.wrap(errors.NewStoreError("completeMultipartUpload", err)))
		return
	}

	result := &s3types.UploadResult{
		Bucket:    s.dest.Bucket,
		Key:       s.dest.Key,
		UploadID:  uploadID,
		Location:  aws.ToString(output.Location),
		Size:      size,
		Parts:     len(manifest),
		ETag:      aws.ToString(output.ETag),
		VersionID: aws.ToString(output.VersionId),
		Duration:  time.Since(s.startTime),
	}
	if s.finish(result, nil) {
		s.logger.DebugContext(s.ctx, "multipart upload completed",
			"upload_id", uploadID,
			"size", size,
			"parts", len(manifest),
			"duration", result.Duration)
	}
}

func (s *Session) wrap(err *errors.Error) *errors.Error {
	return err.WithBucket(s.dest.Bucket).WithKey(s.dest.Key)
}

func (s *Session) fail(err error) {
	if s.finish(nil, err) {
		s.logger.ErrorContext(s.ctx, "multipart upload failed",
			"upload_id", s.UploadID(),
			"error", err)
	}
}

// finish latches the terminal outcome. It reports whether this call won.
func (s *Session) finish(result *s3types.UploadResult, err error) bool {
	won := false
	s.once.Do(func() {
		s.result = result
		s.err = err
		close(s.done)
		won = true
	})
	return won
}

func (s *Session) isDone() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}
