package jzip

import (
	"bytes"
	"crypto/rand"
	"path/filepath"
	"testing"
)

func TestReadEntry_StoredRoundTrip(t *testing.T) {
	t.Parallel()

	want := []byte("the quick brown fox jumps over the lazy dog")

	root := t.TempDir()
	path := filepath.Join(root, "a.zip")
	mustCreateZip(t, path, map[string][]byte{"stored.txt": want}, map[string]bool{"stored.txt": true})

	a, err := Open(path, 0)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer func() { _ = Close(a) }()

	e, ok := a.GetEntry("stored.txt", 0)
	if !ok {
		t.Fatalf("GetEntry() not found")
	}
	if e.CSize != 0 {
		t.Fatalf("CSize = %d, want 0 (stored)", e.CSize)
	}

	got, err := a.ReadEntry(e)
	if err != nil {
		t.Fatalf("ReadEntry() error = %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("ReadEntry() = %q, want %q", got, want)
	}
}

func TestReadEntry_DeflateRoundTrip(t *testing.T) {
	t.Parallel()

	// Highly compressible content exercises the deflate path without
	// relying on incompressible random bytes tripping a "stored instead"
	// heuristic in some writer implementations.
	want := bytes.Repeat([]byte("go gophers go gophers go gophers "), 200)

	root := t.TempDir()
	path := filepath.Join(root, "a.zip")
	mustCreateZip(t, path, map[string][]byte{"deflated.txt": want}, nil)

	a, err := Open(path, 0)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer func() { _ = Close(a) }()

	e, ok := a.GetEntry("deflated.txt", 0)
	if !ok {
		t.Fatalf("GetEntry() not found")
	}
	if e.CSize == 0 {
		t.Fatalf("CSize = 0, want compressed size > 0")
	}

	got, err := a.ReadEntry(e)
	if err != nil {
		t.Fatalf("ReadEntry() error = %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("ReadEntry() length = %d, want length %d (content mismatch)", len(got), len(want))
	}
}

func TestInflateFully_RejectsStoredEntry(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	path := filepath.Join(root, "a.zip")
	mustCreateZip(t, path, map[string][]byte{"stored.txt": []byte("x")}, map[string]bool{"stored.txt": true})

	a, err := Open(path, 0)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer func() { _ = Close(a) }()

	e, ok := a.GetEntry("stored.txt", 0)
	if !ok {
		t.Fatalf("GetEntry() not found")
	}

	buf := make([]byte, e.Size)
	if err := a.InflateFully(e, buf); err != errNotCompressed {
		t.Fatalf("InflateFully() error = %v, want errNotCompressed", err)
	}
}

func TestRead_OutOfRangeOffset(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	path := filepath.Join(root, "a.zip")
	mustCreateZip(t, path, map[string][]byte{"stored.txt": []byte("hello")}, map[string]bool{"stored.txt": true})

	a, err := Open(path, 0)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer func() { _ = Close(a) }()

	e, ok := a.GetEntry("stored.txt", 0)
	if !ok {
		t.Fatalf("GetEntry() not found")
	}

	a.Lock()
	defer a.Unlock()

	buf := make([]byte, 1)
	if _, err := a.Read(e, int64(e.Size), buf); err != errReadOffsetOutOfRange {
		t.Fatalf("Read() at offset == size error = %v, want errReadOffsetOutOfRange", err)
	}
	if _, err := a.Read(e, -1, buf); err != errReadOffsetOutOfRange {
		t.Fatalf("Read() at negative offset error = %v, want errReadOffsetOutOfRange", err)
	}
}

func TestReadEntry_BigStoredEntry(t *testing.T) {
	t.Parallel()

	want := make([]byte, 5*1024*1024)
	if _, err := rand.Read(want); err != nil {
		t.Fatalf("rand.Read() error = %v", err)
	}

	root := t.TempDir()
	path := filepath.Join(root, "a.zip")
	mustCreateZip(t, path, map[string][]byte{"big.bin": want}, map[string]bool{"big.bin": true})

	a, err := Open(path, 0)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer func() { _ = Close(a) }()

	e, ok := a.GetEntry("big.bin", 0)
	if !ok {
		t.Fatalf("GetEntry() not found")
	}

	got, err := a.ReadEntry(e)
	if err != nil {
		t.Fatalf("ReadEntry() error = %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("ReadEntry() of large stored entry mismatched")
	}
}
