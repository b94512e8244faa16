package jziphost

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"jzipmount/internal/jzip"
)

// ArchiveOpener wraps jzip.Open/jzip.Close with a bound on concurrent
// archive builds (CEN parses are not cheap for large archives) and a
// bounded LRU of pinned-open archives that keeps hot archives resident in
// jzip's process-wide cache across requests instead of every request
// tearing its handle back down to ref-count zero.
//
// Grounded on the teacher's ZipPartCache (zip_cache.go): same shape (a
// size-bounded LRU of open handles keyed by path, with one entry pinning
// one underlying handle open), simplified to a single (unsharded) LRU
// because jzip.Open/Close already does its own mutex- and
// singleflight-guarded dedup per canonical path; this layer only needs to
// decide which paths stay warm.
type ArchiveOpener struct {
	metrics *Metrics
	useMmap bool
	openSem *semaphore.Weighted

	mmapOpen int64 // atomic: current archives open via the mmap strategy
	heapOpen int64 // atomic: current archives open via the heap strategy

	mu        sync.Mutex
	pinned    map[string]*list.Element
	lru       *list.List
	maxPinned int
}

// pinnedEntry is the LRU list payload: path plus the *jzip.Archive the
// opener pinned open for it (one extra reference, held until eviction).
type pinnedEntry struct {
	path    string
	archive *jzip.Archive
}

// NewArchiveOpener constructs an ArchiveOpener. maxConcurrentBuilds bounds
// how many archive opens may be mid-build (file open through index build)
// at once, protecting a cold mount-root scan from causing an I/O storm.
// maxPinnedArchives bounds how many distinct archives the opener keeps
// pinned open at once (0 or negative disables pinning: every request
// opens and closes its own reference, with no warm cache).
func NewArchiveOpener(maxConcurrentBuilds, maxPinnedArchives int, useMmap bool, metrics *Metrics) *ArchiveOpener {
	if maxConcurrentBuilds <= 0 {
		maxConcurrentBuilds = 16
	}
	return &ArchiveOpener{
		metrics:   metrics,
		useMmap:   useMmap,
		openSem:   semaphore.NewWeighted(int64(maxConcurrentBuilds)),
		pinned:    make(map[string]*list.Element),
		lru:       list.New(),
		maxPinned: maxPinnedArchives,
	}
}

// Open opens or reuses a cached archive handle for path. The returned
// handle holds one reference that the caller must release via Close.
func (o *ArchiveOpener) Open(ctx context.Context, path string) (*jzip.Archive, error) {
	if err := o.openSem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire archive open semaphore: %w", err)
	}
	defer o.openSem.Release(1)

	var opts []jzip.Option
	if o.useMmap {
		opts = append(opts, jzip.WithMemoryMap(true))
	}

	a, err := jzip.Open(path, 0, opts...)
	if err != nil {
		return nil, err
	}
	if a.UsesMmap() {
		atomic.AddInt64(&o.mmapOpen, 1)
	} else {
		atomic.AddInt64(&o.heapOpen, 1)
	}
	if o.metrics != nil {
		o.metrics.IncArchiveOpens()
		o.metrics.SetArchivesOpen(int(atomic.LoadInt64(&o.mmapOpen)), int(atomic.LoadInt64(&o.heapOpen)))
	}

	o.touchPinned(path, opts)

	return a, nil
}

// touchPinned records path as recently used in the opener's pinned LRU,
// acquiring a second, opener-owned reference to keep the archive resident
// in jzip's registry across requests. It never fails the caller's Open:
// pinning is a best-effort warm cache, not a correctness requirement.
func (o *ArchiveOpener) touchPinned(path string, opts []jzip.Option) {
	if o.maxPinned <= 0 {
		return
	}

	o.mu.Lock()
	if elem, ok := o.pinned[path]; ok {
		o.lru.MoveToFront(elem)
		o.mu.Unlock()
		return
	}
	o.mu.Unlock()

	pin, err := jzip.Open(path, 0, opts...)
	if err != nil {
		// Pinning failed; the caller's own handle (already returned) still
		// works, it just won't be kept warm. Nothing further to clean up.
		return
	}

	o.mu.Lock()
	if elem, ok := o.pinned[path]; ok {
		// Lost the race against another goroutine pinning the same path.
		o.lru.MoveToFront(elem)
		o.mu.Unlock()
		_ = jzip.Close(pin)
		return
	}

	elem := o.lru.PushFront(pinnedEntry{path: path, archive: pin})
	o.pinned[path] = elem

	var evicted *pinnedEntry
	if o.lru.Len() > o.maxPinned {
		back := o.lru.Back()
		if back != nil {
			o.lru.Remove(back)
			e := back.Value.(pinnedEntry)
			delete(o.pinned, e.path)
			evicted = &e
		}
	}
	pinnedCount := o.lru.Len()
	o.mu.Unlock()

	if evicted != nil {
		_ = jzip.Close(evicted.archive)
		if o.metrics != nil {
			o.metrics.IncArchiveCacheEvictions()
		}
	}
	if o.metrics != nil {
		o.metrics.SetArchiveCachePinned(pinnedCount)
	}
}

// Evict drops any pinned reference the opener holds for path, if one
// exists. jzip.Open's lastModified == 0 calling convention (spec.md §9's
// Open Question) means jzip's own registry will otherwise keep serving
// the stale handle forever once something has replaced the file on disk;
// MountIndex calls this (via its onInvalidate hook) the moment it detects
// that path's mtime or size changed or that the file disappeared. In-flight
// requests already holding their own reference to the evicted handle are
// unaffected: the handle is only freed, and dropped from jzip's registry,
// once every reference, pinned or not, has been released. From then on the
// next Open rebuilds from the new bytes; an Open made while such a request
// still holds its reference shares the old handle.
func (o *ArchiveOpener) Evict(path string) {
	o.mu.Lock()
	elem, ok := o.pinned[path]
	if !ok {
		o.mu.Unlock()
		return
	}
	o.lru.Remove(elem)
	delete(o.pinned, path)
	pinnedCount := o.lru.Len()
	o.mu.Unlock()

	entry := elem.Value.(pinnedEntry)
	_ = jzip.Close(entry.archive)

	if o.metrics != nil {
		o.metrics.IncArchiveCacheEvictions()
		o.metrics.SetArchiveCachePinned(pinnedCount)
	}
}

// Close releases an archive handle previously obtained from Open.
func (o *ArchiveOpener) Close(a *jzip.Archive) {
	if a == nil {
		return
	}
	usesMmap := a.UsesMmap()
	_ = jzip.Close(a)
	if usesMmap {
		atomic.AddInt64(&o.mmapOpen, -1)
	} else {
		atomic.AddInt64(&o.heapOpen, -1)
	}
	if o.metrics != nil {
		o.metrics.IncArchiveCloses()
		o.metrics.SetArchivesOpen(int(atomic.LoadInt64(&o.mmapOpen)), int(atomic.LoadInt64(&o.heapOpen)))
	}
}
