package jzip

import (
	"bytes"
	"path/filepath"
	"testing"
)

func TestOpen_StubPrefixedSelfExtractor(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	path := filepath.Join(root, "selfextract.jar")
	mustCreateZipWithPrefix(t, path, 4096, map[string][]byte{
		"Main.class": {0xCA, 0xFE, 0xBA, 0xBE},
	}, map[string]bool{"Main.class": true})

	a, err := Open(path, 0)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer func() { _ = Close(a) }()

	e, ok := a.GetEntry("Main.class", 0)
	if !ok {
		t.Fatalf("GetEntry() not found in stub-prefixed archive")
	}
	got, err := a.ReadEntry(e)
	if err != nil {
		t.Fatalf("ReadEntry() error = %v", err)
	}
	if !bytes.Equal(got, []byte{0xCA, 0xFE, 0xBA, 0xBE}) {
		t.Fatalf("ReadEntry() = %x, want CAFEBABE", got)
	}
}

func TestFindEnd_NotAZip(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	path := filepath.Join(root, "notazip.bin")
	mustWriteFile(t, path, []byte("this is not a zip archive at all"))

	a, err := Open(path, 0)
	if err == nil {
		_ = Close(a)
		t.Fatalf("Open() of a non-zip file unexpectedly succeeded")
	}
}

func TestFindEnd_EmptyFile(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	path := filepath.Join(root, "empty.zip")
	mustWriteFile(t, path, nil)

	if _, err := Open(path, 0); err == nil {
		t.Fatalf("Open() of an empty file unexpectedly succeeded")
	}
}

func TestOpen_MaxLengthComment(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	path := filepath.Join(root, "commented.zip")
	mustCreateZip(t, path, map[string][]byte{"a.txt": []byte("x")}, nil)

	// Append a 0xFFFF-byte comment directly onto the END record, which is
	// exactly the maximum the 16-bit comment-length field can describe.
	data := mustReadFile(t, path)
	comment := bytes.Repeat([]byte{'c'}, 0xFFFF)

	// Patch the comment-length field (last 2 bytes of the original END
	// record, bytes [len-2:len] before appending) and append the comment.
	patched := make([]byte, len(data))
	copy(patched, data)
	patched[len(patched)-2] = byte(len(comment))
	patched[len(patched)-1] = byte(len(comment) >> 8)
	patched = append(patched, comment...)

	mustWriteFile(t, path, patched)

	a, err := Open(path, 0)
	if err != nil {
		t.Fatalf("Open() with max-length comment error = %v", err)
	}
	defer func() { _ = Close(a) }()

	if a.Total() != 1 {
		t.Fatalf("Total() = %d, want 1", a.Total())
	}
}
