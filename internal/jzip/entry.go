package jzip

// endChain is the sentinel terminating a hash-table chain (spec.md
// GLOSSARY: END-CHAIN).
const endChain = int32(-1)

// cell is the compact, fixed-size per-entry record that lives in the hash
// table built by the index builder (spec.md §3 "Entry cell"). It never
// holds the entry's name, size or CRC — those are read lazily by the
// materializer.
type cell struct {
	cenpos int64  // absolute file offset of this entry's CEN header
	hash   uint32 // multiplier-31 hash of the raw name bytes (spec.md §4.3)
	next   int32  // index of the next cell in this bucket's chain, or endChain
}

// Entry is a heap-owned, materialized snapshot of one archive entry
// (spec.md §3 "Materialized entry"). A caller owns an *Entry until it
// releases it via Archive.FreeEntry, at which point it may be reused by
// the archive's single-slot MRU cache.
type Entry struct {
	Name    string
	Extra   []byte // 2-byte little-endian length prefix followed by the raw extra bytes, or nil
	Comment string
	comment bool // distinguishes "" from absent when Comment == ""

	Time  uint32 // DOS-encoded modification time
	Size  uint64 // uncompressed size
	CSize uint64 // compressed size; 0 means the entry is stored, not compressed
	CRC32 uint32

	// pos is the dual-purpose offset field described in spec.md §3 and §9:
	// negative before resolution (encodes -(locpos + CENOFF)), positive
	// once GetEntryDataOffset has resolved it to an absolute data offset.
	// It is mutated only while the owning archive's lock is held.
	pos int64
}

// HasComment reports whether the entry carries a non-absent comment (which
// may still be the empty string).
func (e *Entry) HasComment() bool { return e.comment }
