package jzip

import (
	"compress/flate"
	"fmt"
	"io"
)

// GetEntryDataOffset resolves e.pos to an absolute file offset, reading the
// entry's local header exactly once (spec.md §4.7). Safe to call
// repeatedly: once resolved, e.pos is positive and this is a no-op. The
// caller must hold a.mu.
func (a *Archive) GetEntryDataOffset(e *Entry) (int64, error) {
	if e.pos > 0 {
		return e.pos, nil
	}

	loc := make([]byte, locHdrSize)
	if err := readFullyAt(a.src, loc, -e.pos); err != nil {
		return 0, err
	}
	if locSignature(loc) != locSig {
		return 0, errBadLocSignature
	}
	e.pos = (-e.pos) + locHdrSize + int64(locNam(loc)) + int64(locExt(loc))
	return e.pos, nil
}

// Read reads up to len(buf) bytes of entry data starting at pos, clamped to
// the entry's remaining bytes, and returns the number of bytes transferred
// (spec.md §4.7). The caller must hold a.mu (positional reads may occur
// while the lock is held by design: the backing descriptor is shared).
func (a *Archive) Read(e *Entry, pos int64, buf []byte) (int, error) {
	entrySize := int64(e.Size)
	if e.CSize != 0 {
		entrySize = int64(e.CSize)
	}

	if pos < 0 || pos > entrySize-1 {
		return 0, errReadOffsetOutOfRange
	}
	if len(buf) == 0 {
		return 0, nil
	}
	n := int64(len(buf))
	if n > entrySize-pos {
		n = entrySize - pos
	}

	start, err := a.GetEntryDataOffset(e)
	if err != nil {
		return 0, err
	}
	start += pos

	if start+n > a.length {
		return 0, errCorruptEntrySize
	}

	if err := readFullyAt(a.src, buf[:n], start); err != nil {
		return 0, err
	}
	return int(n), nil
}

// entryCursor adapts Archive.Read into an io.Reader over one entry's
// compressed bytes, feeding compress/flate's reader chunk by chunk the way
// InflateFully in zip_util.c feeds inflate() (spec.md §4.7). Each call
// takes and releases a.mu individually rather than holding it for the
// whole decompression, so other goroutines can use the archive between
// chunks.
type entryCursor struct {
	a   *Archive
	e   *Entry
	pos int64
}

func (c *entryCursor) Read(p []byte) (int, error) {
	if c.pos >= int64(c.e.CSize) {
		return 0, io.EOF
	}
	c.a.mu.Lock()
	n, err := c.a.Read(c.e, c.pos, p)
	c.a.mu.Unlock()
	if n > 0 {
		c.pos += int64(n)
	}
	if err != nil {
		return n, err
	}
	if n == 0 {
		return 0, errUnexpectedEndOfFile
	}
	return n, nil
}

// InflateFully drives a streaming raw-deflate decompression of a
// compressed entry into buf, which must be exactly e.Size bytes long
// (spec.md §4.7). It is an error to call this on a stored entry
// (e.CSize == 0).
//
// compress/flate's reader already implements the "window bits = -15, no
// zlib header/trailer" raw framing spec.md calls for; see SPEC_FULL.md §1
// for why no third-party codec is substituted here.
func (a *Archive) InflateFully(e *Entry, buf []byte) error {
	if e.CSize == 0 {
		return errNotCompressed
	}
	if int64(len(buf)) != int64(e.Size) {
		return fmt.Errorf("jzip: InflateFully: buffer size %d does not match entry size %d", len(buf), e.Size)
	}

	fr := flate.NewReader(&entryCursor{a: a, e: e})
	defer fr.Close()

	n, err := io.ReadFull(fr, buf)
	if err != nil {
		return err
	}
	if int64(n) != int64(e.Size) {
		return errUnexpectedEndOfStream
	}

	// Confirm the stream actually ended where expected: one more byte read
	// should report EOF, not more data.
	var probe [1]byte
	if m, perr := fr.Read(probe[:]); m != 0 || perr != io.EOF {
		return errUnexpectedEndOfStream
	}

	return nil
}

// ReadEntry reads an entire entry (auto-decompressing if needed) and then
// releases it back to the MRU cache, matching ZIP_ReadEntry's contract
// (spec.md §6).
func (a *Archive) ReadEntry(e *Entry) ([]byte, error) {
	buf := make([]byte, e.Size)
	var err error
	if e.CSize == 0 {
		a.mu.Lock()
		var pos int64
		for pos < int64(e.Size) {
			var n int
			n, err = a.Read(e, pos, buf[pos:])
			if err != nil || n == 0 {
				break
			}
			pos += int64(n)
		}
		a.mu.Unlock()
	} else {
		err = a.InflateFully(e, buf)
	}
	a.FreeEntry(e)
	if err != nil {
		return nil, err
	}
	return buf, nil
}
