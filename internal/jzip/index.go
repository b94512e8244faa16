package jzip

import (
	"fmt"
)

// unknownTotal is the sentinel knownTotal value meaning "trust ENDTOT",
// passed at the top-level call. A concrete value is only ever passed by
// the one-level recursive restart described in spec.md §4.3.
const unknownTotal = -1

// ampleCenHeaderSize is the small fixed window the random-access
// materializer reads first, before growing if a header's variable-length
// tail doesn't fit (spec.md §4.4).
const ampleCenHeaderSize = 160

// cencachePageSize is the heap strategy's sequential directory-page size
// (spec.md §4.4).
const cencachePageSize = 8192

// buildIndex implements spec.md §4.1-§4.3: locate the END record, load the
// central directory into a contiguous buffer (heap or mmap, per
// a.usesMmap), and parse it into a.entries/a.table/a.metaNames.
//
// Returns the file position of the first CEN header (success), 0 (END not
// found), or a non-nil error (I/O or format error).
func buildIndex(a *Archive, knownTotal int) (int64, error) {
	endpos, endbuf, err := findEnd(a.src, a.length)
	if err != nil {
		return 0, err
	}
	if endpos == 0 {
		return 0, nil
	}

	cenlen := int64(endSiz(endbuf))
	if cenlen > endpos {
		return 0, errBadEndHeader
	}
	cenpos := endpos - cenlen
	locpos := cenpos - int64(endOff(endbuf))
	if locpos < 0 {
		return 0, errBadEndOffset
	}

	var cenbuf []byte
	if a.usesMmap {
		if a.maddr != nil {
			// A prior call (the one-level recursive recount restart) already
			// mapped the directory; drop it before remapping so we don't
			// leak the earlier region.
			_ = a.mp.Unmap(a.maddr)
			a.maddr = nil
		}
		pagesize := int64(a.mp.PageSize())
		aligned := int64(0)
		if cenpos > pagesize {
			aligned = cenpos &^ (pagesize - 1)
		}
		mlen := cenpos - aligned + cenlen + endHdrSize
		fdSrc, ok := a.src.(interface{ fd() uintptr })
		if !ok {
			return 0, fmt.Errorf("jzip: memory-mapped source does not expose a file descriptor")
		}
		maddr, merr := a.mp.Map(fdSrc.fd(), aligned, int(mlen))
		if merr != nil {
			// No working mapper: fall back to the heap strategy below.
			a.usesMmap = false
		} else {
			a.maddr = maddr
			a.mapOffset = aligned
			cenbuf = maddr[cenpos-aligned : cenpos-aligned+cenlen]
		}
	}
	if !a.usesMmap {
		cenbuf = make([]byte, cenlen)
		if err := readFullyAt(a.src, cenbuf, cenpos); err != nil {
			return 0, err
		}
	}

	total := knownTotal
	if total == unknownTotal {
		total = int(endTot(endbuf))
	}

	entries := make([]cell, total)
	tablelen := int32((total/2)|1)
	if tablelen < 1 {
		tablelen = 1
	}
	table := make([]int32, tablelen)
	for j := range table {
		table[j] = endChain
	}

	var metaNames []string
	cenend := int64(len(cenbuf))
	i := 0
	cp := int64(0)
	for cp+cenHdrSize <= cenend {
		if i >= total {
			// ENDTOT under-counted (more than 65535 entries): recount
			// exactly and restart once, per spec.md §4.3.
			if knownTotal != unknownTotal {
				return 0, fmt.Errorf("jzip: central directory entry count mismatch after recount")
			}
			return buildIndex(a, countCENHeaders(cenbuf))
		}

		hdr := cenbuf[cp:]
		if cenSignature(hdr) != cenSig {
			return 0, errBadCenSignature
		}
		if cenFlg(hdr)&1 != 0 {
			return 0, errEncryptedEntry
		}
		method := cenHow(hdr)
		if method != methodStored && method != methodDeflate {
			return 0, errBadMethod
		}
		nlen := int64(cenNam(hdr))
		if cp+cenHdrSize+nlen > cenend {
			return 0, errBadCenHeaderSize
		}

		name := hdr[cenHdrSize : cenHdrSize+nlen]
		if isMetaName(name) {
			metaNames = append(metaNames, string(name))
		}

		entries[i].cenpos = cenpos + cp
		entries[i].hash = hashBytes(name)
		bucket := entries[i].hash % uint32(tablelen)
		entries[i].next = table[bucket]
		table[bucket] = int32(i)

		cp += censize(hdr)
		i++
	}
	if cp != cenend {
		return 0, errBadCenHeaderSize
	}

	a.entries = entries
	a.table = table
	a.tablelen = tablelen
	a.total = int32(i)
	a.metaNames = metaNames
	a.locpos = locpos

	// The heap strategy retains no directory buffer here; the
	// materializer re-reads headers from the file as needed (spec.md §4.4).
	return cenpos, nil
}

// countCENHeaders performs the bounded linear walk of spec.md §4.3's
// adaptive-sizing recovery: it might return a bogus count on a corrupt
// archive, but it never walks past end.
func countCENHeaders(buf []byte) int {
	count := 0
	end := int64(len(buf))
	for i := int64(0); i+cenHdrSize <= end; i += censize(buf[i:]) {
		count++
	}
	return count
}
