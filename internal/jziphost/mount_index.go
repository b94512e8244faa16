package jziphost

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// MountSnapshot is an immutable view of the currently discovered archive
// files under a mount root.
type MountSnapshot struct {
	// Archives maps archive file name (base name, e.g. "app.jar") to its
	// full path on disk.
	Archives map[string]string
}

// archiveStat is the (ModTime, Size) pair MountIndex remembers per mounted
// path between refreshes, purely to detect in-place file changes; it is
// never exposed through MountSnapshot.
type archiveStat struct {
	modTime time.Time
	size    int64
}

// MountIndex maintains an in-memory view of archive files discovered
// directly under a configured root directory.
//
// The request hot path MUST consult this in-memory snapshot and MUST NOT
// rescan disk: a class-loader-style host mounts individual JARs, and must
// answer "does this archive exist" without a syscall per request.
//
// It also tracks, across refreshes, whether a previously-mounted file has
// been replaced in place or removed. jzip's own archive cache (spec.md
// §4.8, §9 "lastModified == 0" Open Question) is keyed purely by
// canonical path and, with the host layer's lastModified == 0 calling
// convention, never notices a changed mtime on its own; MountIndex is the
// only place in this process that watches the filesystem, so it owns
// telling downstream caches (the archive opener's pinned archives, the
// decompressed entry content cache) that a given archive's on-disk bytes
// are no longer the ones they have indexed or cached.
type MountIndex struct {
	root    string
	readDir func(string) ([]os.DirEntry, error)

	logger  *slog.Logger
	metrics *Metrics

	snap atomic.Value // stores MountSnapshot

	// refreshMu serializes refresh operations so a slow scan can't overlap
	// with the next scheduled one.
	refreshMu sync.Mutex

	// lastStat records (modTime, size) per full path as of the last
	// successful scan, so refreshOnce can detect in-place replacement or
	// removal of a previously-mounted archive. Guarded by refreshMu.
	lastStat map[string]archiveStat

	// onInvalidate, if set, is called once per archive name whose
	// backing file was replaced or removed since the last scan, with its
	// last-known full path. Set via SetOnInvalidate.
	onInvalidate func(archiveName, path string)
}

// mountableExt is the set of file extensions MountIndex discovers.
var mountableExt = map[string]bool{
	".jar": true,
	".zip": true,
}

func NewMountIndex(root string, logger *slog.Logger, metrics *Metrics) (*MountIndex, error) {
	mi := &MountIndex{
		root:    root,
		readDir: os.ReadDir,
		logger:  logger,
		metrics: metrics,
	}

	if logger != nil {
		logger.Debug("building initial mount snapshot", "mount_root", root)
	}
	snap, stats, err := scanMountRoot(root, mi.readDir, logger)
	if err != nil {
		return nil, err
	}
	if logger != nil {
		logger.Debug("mount snapshot built", "archive_count", len(snap.Archives))
	}
	mi.snap.Store(snap)
	mi.lastStat = stats
	mi.updateResourceMetrics(snap)

	return mi, nil
}

// SetOnInvalidate registers a callback invoked once per archive name whose
// backing file was replaced in place (different size or mtime) or removed
// since the previous scan. fn receives the archive's base name and its
// last-known full path -- its own most recent call, not necessarily where
// the file still is. Passing nil disables the callback. Not safe to call
// concurrently with Start's refresh loop; call it once during wiring,
// before Start.
func (mi *MountIndex) SetOnInvalidate(fn func(archiveName, path string)) {
	if mi == nil {
		return
	}
	mi.onInvalidate = fn
}

// Start launches the periodic refresh loop, stopping when ctx is canceled.
func (mi *MountIndex) Start(ctx context.Context, interval time.Duration) {
	if mi == nil {
		return
	}

	t := time.NewTicker(interval)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				mi.refreshOnce()
			}
		}
	}()
}

// Lookup returns the full path of the named archive file, or ("", false)
// if it is not currently mounted.
func (mi *MountIndex) Lookup(archiveName string) (string, bool) {
	if mi == nil {
		return "", false
	}
	val := mi.snap.Load()
	if val == nil {
		return "", false
	}
	snap, ok := val.(MountSnapshot)
	if !ok {
		panic("mount index: invalid type in atomic.Value")
	}
	p, ok := snap.Archives[archiveName]
	return p, ok
}

// Snapshot returns the current discovered set of archives.
func (mi *MountIndex) Snapshot() MountSnapshot {
	if mi == nil {
		return MountSnapshot{Archives: make(map[string]string)}
	}
	val := mi.snap.Load()
	if val == nil {
		return MountSnapshot{Archives: make(map[string]string)}
	}
	snap, ok := val.(MountSnapshot)
	if !ok {
		panic("mount index: invalid type in atomic.Value")
	}
	return snap
}

func (mi *MountIndex) refreshOnce() {
	mi.refreshMu.Lock()
	defer mi.refreshMu.Unlock()

	snap, stats, err := scanMountRoot(mi.root, mi.readDir, mi.logger)
	if err != nil {
		if mi.logger != nil {
			mi.logger.Error("mount refresh failed", "error", err)
		}
		return
	}

	mi.invalidateChangedLocked(snap, stats)

	mi.snap.Store(snap)
	mi.lastStat = stats
	mi.updateResourceMetrics(snap)
}

// invalidateChangedLocked compares the previous scan's (modTime, size) per
// path against the new one and, for every previously-mounted path that was
// replaced in place or disappeared, calls mi.onInvalidate with that
// archive's name and its last-known path. Caller must hold mi.refreshMu.
func (mi *MountIndex) invalidateChangedLocked(newSnap MountSnapshot, newStats map[string]archiveStat) {
	if mi.onInvalidate == nil || mi.lastStat == nil {
		return
	}

	prevPathToName := make(map[string]string, len(mi.lastStat))
	for name, path := range mi.prevSnapArchivesLocked() {
		prevPathToName[path] = name
	}

	for path, prevStat := range mi.lastStat {
		name, mounted := prevPathToName[path]
		if !mounted {
			continue
		}
		newStat, stillPresent := newStats[path]
		if !stillPresent || !newStat.modTime.Equal(prevStat.modTime) || newStat.size != prevStat.size {
			if mi.logger != nil {
				mi.logger.Info("archive changed or removed, invalidating caches", "archive", name, "path", path)
			}
			mi.onInvalidate(name, path)
		}
	}
}

// prevSnapArchivesLocked returns the archive-name -> path map from the
// previously stored snapshot, or an empty map if none has been stored yet.
// Caller must hold mi.refreshMu.
func (mi *MountIndex) prevSnapArchivesLocked() map[string]string {
	val := mi.snap.Load()
	if val == nil {
		return nil
	}
	snap, ok := val.(MountSnapshot)
	if !ok {
		return nil
	}
	return snap.Archives
}

func (mi *MountIndex) updateResourceMetrics(snap MountSnapshot) {
	if mi.metrics == nil {
		return
	}
	mi.metrics.SetArchivesMounted(len(snap.Archives))
}

// buildMountSnapshot scans root for mountable archive files and returns
// just the name->path snapshot, discarding per-file stat info. Kept as its
// own entry point for callers (and tests) that only need the snapshot;
// scanMountRoot is the one that also tracks staleness.
func buildMountSnapshot(root string, readDir func(string) ([]os.DirEntry, error), logger *slog.Logger) (MountSnapshot, error) {
	snap, _, err := scanMountRoot(root, readDir, logger)
	return snap, err
}

// scanMountRoot scans root for mountable archive files, returning both the
// name->path snapshot and a path->(modTime, size) map used to detect
// in-place file changes across refreshes.
func scanMountRoot(root string, readDir func(string) ([]os.DirEntry, error), logger *slog.Logger) (MountSnapshot, map[string]archiveStat, error) {
	if readDir == nil {
		readDir = os.ReadDir
	}

	entries, err := readDir(root)
	if err != nil {
		return MountSnapshot{}, nil, fmt.Errorf("read mount root: %w", err)
	}

	archives := make(map[string]string)
	stats := make(map[string]archiveStat)
	for _, ent := range entries {
		if ent.IsDir() {
			continue
		}
		name := ent.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if !mountableExt[ext] {
			continue
		}
		path := filepath.Join(root, name)
		archives[name] = path

		if info, err := ent.Info(); err == nil {
			stats[path] = archiveStat{modTime: info.ModTime(), size: info.Size()}
		}
	}

	if logger != nil {
		names := make([]string, 0, len(archives))
		for n := range archives {
			names = append(names, n)
		}
		sort.Strings(names)
		logger.Debug("mount snapshot scanned", "root", root, "archives", names)
	}

	return MountSnapshot{Archives: archives}, stats, nil
}
