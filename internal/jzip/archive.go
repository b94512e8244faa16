package jzip

import "sync"

// seqPage is the one-page (8 KiB) sequential directory-read cache described
// in spec.md §4.4, used only by the heap (non-mmap) directory strategy.
type seqPage struct {
	data []byte
	pos  int64 // absolute file offset the page's first byte corresponds to
}

// Archive represents one open archive (spec.md §3 "Archive handle"). It is
// created and destroyed exclusively through the process-wide cache in
// cache.go; callers never construct one directly.
type Archive struct {
	name         string // canonical file name
	src          fileSource
	length       int64
	locpos       int64 // file offset of the first LOC header (spec.md §6)
	lastModified int64 // caller-supplied; 0 means "don't check" (spec.md §4.8)

	// Immutable after a successful build (spec.md §3 invariants): safe to
	// read without the per-archive lock.
	entries   []cell
	table     []int32
	tablelen  int32
	total     int32
	metaNames []string

	usesMmap  bool
	maddr     []byte // retained mmap region, only set when usesMmap
	mapOffset int64  // page-aligned file offset the mmap region starts at
	mp        mapper

	// Mutable fields, covered by mu (spec.md §5): the MRU slot and the
	// heap-strategy sequential directory page.
	mu  sync.Mutex
	mru *Entry
	seq *seqPage

	refs uint32 // guarded by the process-wide cache's lock, not mu
}

// MAXREFS mirrors zip_util.c's MAXREFS: the ref count saturates here
// rather than overflowing or wrapping.
const maxRefs = 0xFFFF

// Lock/Unlock expose the per-archive lock for callers that need multi-call
// atomicity across Lookup/Read pairs (spec.md §6 External Interfaces).
func (a *Archive) Lock()   { a.mu.Lock() }
func (a *Archive) Unlock() { a.mu.Unlock() }

// Name returns the archive's canonical file name.
func (a *Archive) Name() string { return a.name }

// Total returns the number of entries in the archive.
func (a *Archive) Total() int { return int(a.total) }

// MetaNames returns the names of entries that begin, case-insensitively,
// with "META-INF/" (spec.md GLOSSARY "Meta-name").
func (a *Archive) MetaNames() []string { return a.metaNames }

// UsesMmap reports whether this archive's central directory was loaded via
// the memory-map strategy (spec.md §4.2) rather than the heap strategy.
func (a *Archive) UsesMmap() bool { return a.usesMmap }

// close tears down every resource owned by the archive: the per-archive
// lock's cached MRU entry, the mmap region or nothing (the heap strategy
// retains no directory buffer after buildIndex), and the underlying file.
// Called by the cache exactly once, when the ref count reaches zero.
func (a *Archive) close() error {
	a.mu.Lock()
	a.mru = nil
	a.seq = nil
	a.mu.Unlock()

	var err error
	if a.usesMmap && a.maddr != nil {
		err = a.mp.Unmap(a.maddr)
		a.maddr = nil
	}
	if cerr := a.src.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
