package s3stream

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/internal/pool"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/internal/s3api"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/internal/transfer/buffer"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/internal/transfer/multipart"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/s3types"
)

// Stream is an io.WriteCloser that uploads everything written to it as one
// object through a multipart upload.
//
// Writes are buffered until at least the part size is held, then the whole
// buffer becomes the next part. At most the configured number of parts are
// in flight; further writes block until one is acknowledged. Close uploads
// the remaining bytes as the last part and waits for the commit.
//
// Part boundaries follow the writes: each drain takes everything buffered,
// so a single large Write becomes a single part. io.Copy only goes through
// ReadFrom, and its 64 KiB reads, when the source does not implement
// io.WriterTo. Sources such as *bytes.Reader, *bytes.Buffer and
// *bufio.Reader write themselves in one call and produce one part per Write.
//
// Write, ReadFrom and Close must not be called concurrently with each other
// by more than one goroutine; calls are serialized internally.
type Stream struct {
	session *multipart.Session
	acc     *buffer.Accumulator
	sem     *semaphore.Weighted
	tracker s3types.ProgressTracker
	logger  *slog.Logger

	// ctx is cancelled once the session is terminal, releasing blocked writers
	ctx    context.Context
	cancel context.CancelFunc

	writeMu   sync.Mutex
	state     atomic.Int32
	closeOnce sync.Once
	closeErr  error
	done      chan struct{}

	progressMu     sync.Mutex
	bytesWritten   atomic.Int64
	bytesUploaded  int64
	partsSubmitted atomic.Int64
	partsUploaded  atomic.Int64
	inFlight       atomic.Int64
}

// NewStream starts a multipart upload to bucket/key on api and returns a
// stream that feeds it. ctx bounds every store call and every blocked
// write. Configuration errors are returned before any store call.
func NewStream(
	ctx context.Context,
	api s3api.S3API,
	bucket, key string,
	logger *slog.Logger,
	opts ...s3types.StreamOption,
) (*Stream, error) {
	cfg := &s3types.StreamConfig{
		ACL:         s3types.ACLPrivate,
		PartSize:    s3types.MinPartSize,
		Concurrency: s3types.DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return newStream(ctx, api, bucket, key, cfg, logger)
}

func validateStreamConfig(cfg *s3types.StreamConfig) error {
	if err := validation.ValidatePartSize(cfg.PartSize); err != nil {
		return err
	}
	if err := validation.ValidateConcurrency(cfg.Concurrency); err != nil {
		return err
	}
	if err := validation.ValidateContentType(cfg.ContentType); err != nil {
		return err
	}
	if err := validation.ValidateACL(cfg.ACL); err != nil {
		return err
	}
	return validation.ValidateMetadata(cfg.Metadata)
}

func newStream(
	ctx context.Context,
	api s3api.S3API,
	bucket, key string,
	cfg *s3types.StreamConfig,
	logger *slog.Logger,
) (*Stream, error) {
	if err := validateStreamConfig(cfg); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	session, err := multipart.NewSession(ctx, api,
		multipart.Destination{Bucket: bucket, Key: key},
		multipart.Config{
			ContentType:  cfg.ContentType,
			Metadata:     cfg.Metadata,
			StorageClass: cfg.StorageClass,
			ACL:          cfg.ACL,
		},
		logger,
	)
	if err != nil {
		return nil, err
	}

	sctx, cancel := context.WithCancel(ctx)
	s := &Stream{
		session: session,
		acc:     buffer.NewAccumulator(int(cfg.PartSize)),
		sem:     semaphore.NewWeighted(int64(cfg.Concurrency)),
		tracker: cfg.ProgressTracker,
		logger:  logger.With("bucket", bucket, "key", key),
		ctx:     sctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	s.state.Store(int32(s3types.StateOpen))

	go s.watch()

	return s, nil
}

// watch observes the session's terminal outcome exactly once.
func (s *Stream) watch() {
	<-s.session.Done()

	if err := s.session.Err(); err != nil {
		s.state.Store(int32(s3types.StateFailed))
		s.logger.Debug("stream failed", "error", err)
		if s.tracker != nil {
			s.tracker.Error(err)
		}
	} else {
		s.state.Store(int32(s3types.StateDone))
		s.logger.Debug("stream done")
		if s.tracker != nil {
			s.tracker.Complete()
		}
	}

	s.cancel()
	close(s.done)
}

// Write buffers p and cuts a part once the buffer reaches the part size.
// It blocks while the in-flight bound is reached. After a failure every
// call returns the upload's error.
func (s *Stream) Write(p []byte) (int, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.writable(); err != nil {
		return 0, err
	}

	s.acc.Push(p)
	s.bytesWritten.Add(int64(len(p)))

	if !s.acc.Ready() {
		return len(p), nil
	}
	if err := s.flush(); err != nil {
		return 0, err
	}
	return len(p), nil
}

// ReadFrom writes everything read from r to the stream. It does not close
// the stream.
func (s *Stream) ReadFrom(r io.Reader) (int64, error) {
	buf := make([]byte, pool.SlackSize)
	var total int64
	for {
		n, rerr := r.Read(buf)
		if n > 0 {
			if _, err := s.Write(buf[:n]); err != nil {
				return total, err
			}
			total += int64(n)
		}
		if rerr == io.EOF {
			return total, nil
		}
		if rerr != nil {
			return total, rerr
		}
	}
}

// Close uploads any buffered bytes as the final part, signals end of input
// and blocks until the upload commits or fails. Later calls return the same
// outcome without doing anything else.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.writeMu.Lock()
		defer s.writeMu.Unlock()
		s.closeErr = s.end()
	})
	return s.closeErr
}

// Abort ends the upload with err without committing it. Blocked writers
// are released and Close returns err, wrapped in *errors.Error unless it
// already is one. A nil err aborts with ErrStreamClosed. Parts already uploaded are left for
// the store's lifecycle rules. It has no effect once the stream is terminal.
func (s *Stream) Abort(err error) {
	if err == nil {
		err = errors.ErrStreamClosed
	}
	var e *errors.Error
	if !stderrors.As(err, &e) {
		dest := s.session.Destination()
		err = errors.NewError("abort", err).WithBucket(dest.Bucket).WithKey(dest.Key)
	}
	s.session.Abandon(err)
	<-s.done
}

func (s *Stream) end() error {
	if s.session.Err() == nil && s.state.CompareAndSwap(int32(s3types.StateOpen), int32(s3types.StateEnding)) {
		s.logger.Debug("stream ending", "buffered", s.acc.Len())
		if s.acc.Len() > 0 {
			if err := s.flush(); err != nil {
				s.session.Abandon(err)
			}
		}
	}
	s.session.Close()
	<-s.done
	return s.session.Err()
}

func (s *Stream) writable() error {
	if err := s.session.Err(); err != nil {
		return err
	}
	if s3types.StreamState(s.state.Load()) != s3types.StateOpen {
		return errors.NewError("write", errors.ErrStreamClosed)
	}
	return nil
}

// flush submits the whole buffer as one part once an in-flight slot is free.
func (s *Stream) flush() error {
	if err := s.sem.Acquire(s.ctx, 1); err != nil {
		if serr := s.session.Err(); serr != nil {
			return serr
		}
		// The caller's context ended while waiting for a slot.
		dest := s.session.Destination()
		s.session.Abandon(errors.NewStoreError("write", err).WithBucket(dest.Bucket).WithKey(dest.Key))
		return s.session.Err()
	}

	data := s.acc.Drain()
	s.inFlight.Add(1)

	n, err := s.session.SubmitPart(data, func(p multipart.CompletedPart) {
		s.partDone(p, data)
	})
	if err != nil {
		s.inFlight.Add(-1)
		s.sem.Release(1)
		s.acc.Release(data)
		return err
	}
	s.partsSubmitted.Add(1)

	s.logger.Debug("part submitted",
		"part", n,
		"size", len(data),
		"in_flight", s.inFlight.Load())
	return nil
}

func (s *Stream) partDone(p multipart.CompletedPart, data []byte) {
	s.inFlight.Add(-1)
	s.partsUploaded.Add(1)
	s.sem.Release(1)
	s.acc.Release(data)

	s.progressMu.Lock()
	defer s.progressMu.Unlock()
	s.bytesUploaded += p.Size
	if s.tracker != nil {
		s.tracker.Update(s.bytesUploaded, s.bytesWritten.Load())
	}
}

// State returns the stream's lifecycle state.
func (s *Stream) State() s3types.StreamState {
	return s3types.StreamState(s.state.Load())
}

// Progress returns a snapshot of the stream's progress.
func (s *Stream) Progress() s3types.Progress {
	s.progressMu.Lock()
	uploaded := s.bytesUploaded
	s.progressMu.Unlock()

	return s3types.Progress{
		BytesWritten:   s.bytesWritten.Load(),
		BytesUploaded:  uploaded,
		PartsSubmitted: int(s.partsSubmitted.Load()),
		PartsUploaded:  int(s.partsUploaded.Load()),
		InFlight:       int(s.inFlight.Load()),
	}
}

// Done is closed once the stream reaches DONE or FAILED.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Err returns the upload's error once it failed, nil otherwise.
func (s *Stream) Err() error {
	return s.session.Err()
}

// Result returns the commit result once the stream is DONE, nil otherwise.
func (s *Stream) Result() *s3types.UploadResult {
	return s.session.Result()
}

// UploadID returns the store's upload id, or "" until the upload was created.
func (s *Stream) UploadID() string {
	return s.session.UploadID()
}

var (
	_ io.WriteCloser = (*Stream)(nil)
	_ io.ReaderFrom  = (*Stream)(nil)
)
