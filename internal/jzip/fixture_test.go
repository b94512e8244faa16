package jzip

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
)

// mustCreateZip builds a .zip fixture via the standard library's writer --
// test tooling, not a repository feature (this engine never writes
// archives). storedNames selects which entries are written with Store
// instead of Deflate.
func mustCreateZip(t *testing.T, path string, entries map[string][]byte, storedNames map[string]bool) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer func() { _ = f.Close() }()

	zw := zip.NewWriter(f)
	for name, data := range entries {
		method := zip.Deflate
		if storedNames[name] {
			method = zip.Store
		}
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:   name,
			Method: method,
		})
		if err != nil {
			t.Fatalf("CreateHeader(%q): %v", name, err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatalf("write entry %q: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip writer: %v", err)
	}
}

// mustCreateZipWithPrefix prepends stubLen junk bytes before the zip data,
// simulating a self-extractor stub (spec.md "Archives may have a stub
// prefix").
func mustCreateZipWithPrefix(t *testing.T, path string, stubLen int, entries map[string][]byte, storedNames map[string]bool) {
	t.Helper()

	tmp := filepath.Join(t.TempDir(), "inner.zip")
	mustCreateZip(t, tmp, entries, storedNames)

	inner, err := os.ReadFile(tmp)
	if err != nil {
		t.Fatalf("read inner zip: %v", err)
	}

	stub := make([]byte, stubLen)
	for i := range stub {
		stub[i] = byte(i)
	}

	out, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer func() { _ = out.Close() }()

	if _, err := out.Write(stub); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	if _, err := out.Write(inner); err != nil {
		t.Fatalf("write inner zip: %v", err)
	}
}

func mustWriteFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func mustReadFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return data
}
