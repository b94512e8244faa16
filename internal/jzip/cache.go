package jzip

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/singleflight"
)

// maxNameLen mirrors the reference implementation's PATH_MAX-style guard:
// an implementation detail of canonicalization, not a ZIP format limit.
const maxNameLen = 4096

// registry is the process-wide archive cache (spec.md §3 "Global state",
// §4.8 "Archive cache"). A map keyed by canonical path, guarded by a single
// mutex, stands in for zip_util.c's singly-linked `zfiles` list under one
// global lock — same contract ("open-same-canonical-path returns the same
// underlying index"), better than O(n) lookup (spec.md §9 "Global
// linked-list registry -> central-registry pattern").
type registry struct {
	mu    sync.Mutex
	byKey map[string]*Archive

	// group collapses concurrent Open calls for the same canonical path
	// into a single build (spec.md §8 S6), so only one goroutine ever runs
	// the End locator / Directory loader / Index builder sequence for a
	// given path at a time.
	group singleflight.Group
}

var globalRegistry = &registry{byKey: make(map[string]*Archive)}

// openOptions configures a single Open call. Functional options keep the
// common case (Open(path, 0)) free of boilerplate while still letting
// callers opt into the mmap directory strategy.
type openOptions struct {
	useMmap bool
	mp      mapper
}

// Option configures optional Open behavior.
type Option func(*openOptions)

// WithMemoryMap selects the mmap directory-loading strategy instead of the
// default heap strategy (spec.md §4.2). Only takes effect on platforms with
// a working mapper (see mapper_unix.go / mapper_other.go); on platforms
// without one, Open falls back to heap and the option is a no-op.
func WithMemoryMap(enabled bool) Option {
	return func(o *openOptions) { o.useMmap = enabled }
}

func cacheKey(canonical string, lastModified int64) string {
	return canonical
}

// cacheHitLocked reports whether key names a reusable archive under the
// "lastModified == 0 or matches (or the cached handle never stat'd its own
// file)" rule of spec.md §4.8, without touching its ref count. Caller must
// hold globalRegistry.mu.
func cacheHitLocked(key string, lastModified int64) (*Archive, bool) {
	a, ok := globalRegistry.byKey[key]
	if !ok || a.refs >= maxRefs {
		return nil, false
	}
	if lastModified == 0 || a.lastModified == lastModified || a.lastModified == 0 {
		return a, true
	}
	return nil, false
}

// Open resolves name to an Archive, building a fresh index on a cold path
// or cache miss and sharing an existing one (with an incremented ref
// count) on a hit (spec.md §4.8). lastModified is the caller's last-known
// modification time for the file; 0 means "don't check" and matches any
// cached handle regardless of its own lastModified (spec.md Open Question,
// preserved deliberately -- see DESIGN.md).
//
// Every successful call increments the returned Archive's ref count by
// exactly one, including calls that race with a concurrent build of the
// same canonical path and are collapsed by singleflight (spec.md §8 S6):
// the dedup only suppresses redundant End-locator/Directory-loader/
// Index-builder work, never a caller's own ref-count contribution, so the
// function below performs the increment itself, once per call, after
// group.Do returns -- not inside the deduplicated function, which would
// under-count every collapsed duplicate caller.
func Open(name string, lastModified int64, opts ...Option) (*Archive, error) {
	if len(name) > maxNameLen {
		return nil, errNameTooLong
	}

	o := &openOptions{}
	for _, opt := range opts {
		opt(o)
	}

	canonical, err := filepath.Abs(filepath.Clean(name))
	if err != nil {
		return nil, fmt.Errorf("jzip: canonicalize %q: %w", name, err)
	}

	key := cacheKey(canonical, lastModified)

	globalRegistry.mu.Lock()
	if a, ok := cacheHitLocked(key, lastModified); ok {
		a.refs++
		globalRegistry.mu.Unlock()
		return a, nil
	}
	globalRegistry.mu.Unlock()

	v, err, _ := globalRegistry.group.Do(key, func() (interface{}, error) {
		globalRegistry.mu.Lock()
		if a, ok := cacheHitLocked(key, lastModified); ok {
			globalRegistry.mu.Unlock()
			return a, nil
		}
		globalRegistry.mu.Unlock()

		a, buildErr := build(canonical, lastModified, o)
		if buildErr != nil {
			return nil, buildErr
		}

		globalRegistry.mu.Lock()
		if existing, ok := cacheHitLocked(key, lastModified); ok {
			globalRegistry.mu.Unlock()
			_ = a.close()
			return existing, nil
		}
		globalRegistry.byKey[key] = a
		globalRegistry.mu.Unlock()
		return a, nil
	})
	if err != nil {
		return nil, err
	}
	a := v.(*Archive)

	globalRegistry.mu.Lock()
	if a.refs < maxRefs {
		a.refs++
	}
	globalRegistry.mu.Unlock()
	return a, nil
}

// OpenGeneric is Open with an explicit OS open-mode, named in spec.md §6's
// external interface table as a distinct entry point for callers that need
// to open a file descriptor themselves (e.g. with O_RDWR for an in-place
// integrity check) rather than letting Open default to read-only.
func OpenGeneric(name string, mode int, lastModified int64, opts ...Option) (*Archive, error) {
	if mode == 0 {
		mode = os.O_RDONLY
	}
	return openWithMode(name, mode, lastModified, opts...)
}

func openWithMode(name string, mode int, lastModified int64, opts ...Option) (*Archive, error) {
	if mode == os.O_RDONLY {
		return Open(name, lastModified, opts...)
	}

	if len(name) > maxNameLen {
		return nil, errNameTooLong
	}

	o := &openOptions{}
	for _, opt := range opts {
		opt(o)
	}

	canonical, err := filepath.Abs(filepath.Clean(name))
	if err != nil {
		return nil, fmt.Errorf("jzip: canonicalize %q: %w", name, err)
	}

	f, err := os.OpenFile(canonical, mode, 0)
	if err != nil {
		return nil, err
	}
	a, err := buildFromFile(canonical, f, lastModified, o)
	if err != nil {
		return nil, err
	}
	// The private handle is never in the registry; its single reference
	// belongs to the caller and is released by Close.
	a.refs = 1
	return a, nil
}

// build opens name read-only and constructs a fresh Archive (the cache-miss
// path of spec.md §4.8: file open -> End locator -> Directory loader ->
// Index builder).
func build(canonical string, lastModified int64, o *openOptions) (*Archive, error) {
	f, err := os.Open(canonical)
	if err != nil {
		return nil, err
	}
	return buildFromFile(canonical, f, lastModified, o)
}

func buildFromFile(canonical string, f *os.File, lastModified int64, o *openOptions) (*Archive, error) {
	src := &osSource{f: f}
	size, err := src.Size()
	if err != nil {
		_ = src.Close()
		return nil, err
	}

	a := &Archive{
		name:         canonical,
		src:          src,
		length:       size,
		lastModified: lastModified,
	}

	if o.useMmap {
		mp := o.mp
		if mp == nil {
			mp = newDefaultMapper()
		}
		a.mp = mp
		a.usesMmap = true
	}

	cenpos, err := buildIndex(a, unknownTotal)
	if err != nil {
		if a.usesMmap && a.maddr != nil {
			_ = a.mp.Unmap(a.maddr)
		}
		_ = src.Close()
		return nil, err
	}
	if cenpos == 0 {
		_ = src.Close()
		return nil, fmt.Errorf("jzip: %s: %w", canonical, ErrNotFound)
	}

	return a, nil
}

// Close decrements the archive's reference count, tearing it down and
// removing it from the registry only when the count reaches zero (spec.md
// §4.8). Close is idempotent with respect to over-release only insofar as
// the reference discipline of the caller is balanced; calling Close more
// times than Open was called is a caller bug, matching the reference
// implementation.
func Close(a *Archive) error {
	if a == nil {
		return nil
	}

	globalRegistry.mu.Lock()
	a.refs--
	if a.refs > 0 {
		globalRegistry.mu.Unlock()
		return nil
	}
	if globalRegistry.byKey[a.name] == a {
		delete(globalRegistry.byKey, a.name)
	}
	globalRegistry.mu.Unlock()

	return a.close()
}
