package reporting

import (
	"bytes"
	"fmt"
	"os"
)

// FileSink writes emissions to a file, truncating it on every Reset so each
// emission fully replaces the previous one.
type FileSink struct {
	file *os.File
}

// NewFileSink creates (or truncates) the file at path.
func NewFileSink(path string) (*FileSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file %s: %w", path, err)
	}
	return &FileSink{file: f}, nil
}

func (s *FileSink) Write(p []byte) (int, error) {
	return s.file.Write(p)
}

// Reset rewinds and truncates the file for a full rewrite.
func (s *FileSink) Reset() error {
	if _, err := s.file.Seek(0, 0); err != nil {
		return err
	}
	return s.file.Truncate(0)
}

// Close flushes and closes the underlying file.
func (s *FileSink) Close() error {
	return s.file.Close()
}

// BufferSink collects the most recent emission in memory. Used by tests and
// for writing to non-seekable streams at run end.
type BufferSink struct {
	buf bytes.Buffer
}

// NewBufferSink creates an empty buffer sink.
func NewBufferSink() *BufferSink {
	return &BufferSink{}
}

func (s *BufferSink) Write(p []byte) (int, error) {
	return s.buf.Write(p)
}

// Reset discards the previous emission.
func (s *BufferSink) Reset() error {
	s.buf.Reset()
	return nil
}

// String returns the most recent emission.
func (s *BufferSink) String() string {
	return s.buf.String()
}
