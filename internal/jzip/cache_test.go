package jzip

import (
	"path/filepath"
	"sync"
	"testing"
)

func TestOpen_CacheIdentity(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	path := filepath.Join(root, "a.zip")
	mustCreateZip(t, path, map[string][]byte{"hello.txt": []byte("hi")}, nil)

	a1, err := Open(path, 0)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	a2, err := Open(path, 0)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if a1 != a2 {
		t.Fatalf("two Open() calls on the same canonical path returned different handles")
	}
	if a1.refs != 2 {
		t.Fatalf("refs = %d, want 2", a1.refs)
	}

	if err := Close(a1); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if a1.refs != 1 {
		t.Fatalf("refs after one Close() = %d, want 1", a1.refs)
	}
	if err := Close(a2); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}

func TestOpen_ConcurrentOpenCollapses(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	path := filepath.Join(root, "a.zip")
	mustCreateZip(t, path, map[string][]byte{"hello.txt": []byte("hi")}, nil)

	const n = 16
	archives := make([]*Archive, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			archives[i], errs[i] = Open(path, 0)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("Open() [%d] error = %v", i, err)
		}
	}
	first := archives[0]
	for i, a := range archives {
		if a != first {
			t.Fatalf("Open() [%d] returned a different handle than [0]; concurrent opens did not collapse", i)
		}
	}
	if first.refs != n {
		t.Fatalf("refs = %d, want %d", first.refs, n)
	}

	for _, a := range archives {
		if err := Close(a); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
	}
}

func TestOpen_NotFound(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	path := filepath.Join(root, "missing.zip")

	if _, err := Open(path, 0); err == nil {
		t.Fatalf("Open() of a nonexistent file succeeded")
	}
}

func TestOpen_NameTooLong(t *testing.T) {
	t.Parallel()

	long := make([]byte, maxNameLen+1)
	for i := range long {
		long[i] = 'a'
	}

	if _, err := Open(string(long), 0); err != errNameTooLong {
		t.Fatalf("Open() error = %v, want errNameTooLong", err)
	}
}
