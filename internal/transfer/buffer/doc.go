// Package buffer accumulates stream writes until they are large enough to
// become a multipart upload part.
package buffer
