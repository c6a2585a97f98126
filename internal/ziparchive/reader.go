package ziparchive

import (
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zip"
)

// ErrNonSeekableRewind is returned by [EntryReader.ForwardTo] when asked to
// rewind a stream whose underlying reader cannot seek backwards.
var ErrNonSeekableRewind = errors.New("cannot rewind non-seekable entry stream")

// EntryReader is a forward-or-random-access reader over one archive entry.
// It is not itself thread-safe; callers serialize access via the owning
// [Archive]'s positioning token, per spec.md §5.
type EntryReader struct {
	file   *zip.File
	reader io.Reader
	offset int64
}

// OpenEntry opens f for reading, starting at offset zero.
func OpenEntry(f *zip.File) (*EntryReader, error) {
	r, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open entry %q: %w", f.Name, err)
	}

	return &EntryReader{file: f, reader: r}, nil
}

// ForwardTo advances (or, if the underlying stream supports it, rewinds)
// the reader to offset, returning the resulting offset. Rewinding a
// non-seekable stream returns [ErrNonSeekableRewind]; the caller is
// expected to reopen the entry and retry in that case.
func (er *EntryReader) ForwardTo(offset int64) (int64, error) {
	if offset == er.offset {
		return er.offset, nil
	}

	if seeker, ok := er.reader.(io.Seeker); ok {
		n, err := seeker.Seek(offset, io.SeekStart)
		er.offset = n
		if err != nil {
			return er.offset, fmt.Errorf("seek entry %q: %w", er.file.Name, err)
		}

		return er.offset, nil
	}

	if offset < er.offset {
		return er.offset, fmt.Errorf("%w: entry %q (want %d, at %d)", ErrNonSeekableRewind, er.file.Name, offset, er.offset)
	}

	n, err := io.CopyN(io.Discard, er.reader, offset-er.offset)
	er.offset += n
	if err != nil && !errors.Is(err, io.EOF) {
		return er.offset, fmt.Errorf("discard entry %q: %w", er.file.Name, err)
	}

	return er.offset, nil
}

// ReadAt reads up to len(buf) bytes, returning fewer than len(buf) at the
// end of the entry. A premature EOF from the underlying decompressor is
// surfaced as (n, nil) — never as an error — per spec.md §7.
func (er *EntryReader) ReadAt(buf []byte) (int, error) {
	n, err := io.ReadFull(er.reader, buf)
	er.offset += int64(n)

	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return n, fmt.Errorf("read entry %q: %w", er.file.Name, err)
	}

	return n, nil
}

// Offset returns the reader's current position.
func (er *EntryReader) Offset() int64 {
	return er.offset
}

// Close releases the underlying decompressor.
func (er *EntryReader) Close() error {
	if closer, ok := er.reader.(io.Closer); ok {
		return closer.Close() //nolint:wrapcheck
	}

	return nil
}
