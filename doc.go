// Package s3stream uploads unbounded byte streams to Amazon S3 and
// S3-compatible stores through the multipart upload API.
//
// A Stream is an io.WriteCloser. Writes are buffered until a part's worth of
// bytes is held, and each part is uploaded concurrently with the ones before
// it while the caller keeps writing. The number of parts in flight is
// bounded; once the bound is reached Write blocks until a part is
// acknowledged. Close uploads the remainder and commits the ordered part
// manifest.
//
// Key features:
//   - Every part but the last meets the store's 5 MiB minimum
//   - Configurable in-flight bound with FIFO backpressure on writers
//   - The first failure is latched and reported exactly once
//   - AWS SDK v2 or MinIO transports behind one interface
//   - Structured logging through log/slog
//
// Example usage:
//
//	client, err := s3stream.New(s3stream.WithRegion("eu-west-1"))
//	if err != nil {
//	    return err
//	}
//
//	stream, err := client.NewStream(ctx, "my-bucket", "logs/app.log",
//	    s3stream.WithStreamConcurrency(4),
//	    s3stream.WithContentType("text/plain"),
//	)
//	if err != nil {
//	    return err
//	}
//	if _, err := io.Copy(stream, src); err != nil {
//	    stream.Abort(err)
//	    return err
//	}
//	if err := stream.Close(); err != nil {
//	    return err
//	}
//
// Parts are cut from whatever the writes deliver. io.Copy from a source that
// implements io.WriterTo, such as *bytes.Reader, *bytes.Buffer or
// *bufio.Reader, arrives as one Write and therefore as one part; wrap the
// source in a plain io.Reader or call Stream.ReadFrom to upload it in
// part-sized pieces.
//
// Uploads that fail are not aborted; configure a lifecycle rule on the
// bucket to expire incomplete multipart uploads.
package s3stream
