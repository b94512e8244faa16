package jzip

// accessHint selects between the random-access and sequential-access
// materialization strategies of spec.md §4.4.
type accessHint int

const (
	accessRandom accessHint = iota
	accessSequential
)

// materialize builds a full Entry from a hash cell, reading its CEN header
// via the archive's directory strategy (mmap, random heap read, or the
// sequential heap page cache). The caller must hold a.mu.
func (a *Archive) materialize(c *cell, hint accessHint) (*Entry, error) {
	var hdr []byte
	if a.usesMmap {
		start := c.cenpos - a.mapOffset
		hdr = a.maddr[start:]
	} else {
		var err error
		if hint == accessRandom {
			hdr, err = a.readCenHeaderRandom(c.cenpos)
		} else {
			hdr, err = a.readCenHeaderSequential(c.cenpos)
		}
		if err != nil {
			return nil, err
		}
	}

	nlen := int64(cenNam(hdr))
	elen := int64(cenExt(hdr))
	clen := int64(cenCom(hdr))

	e := &Entry{
		Time:  cenTim(hdr),
		Size:  uint64(cenLen(hdr)),
		CRC32: cenCrc(hdr),
		pos:   -(a.locpos + int64(cenOff(hdr))),
	}
	if cenHow(hdr) == methodStored {
		e.CSize = 0
	} else {
		e.CSize = uint64(cenSiz(hdr))
	}

	name := make([]byte, nlen)
	copy(name, hdr[cenHdrSize:cenHdrSize+nlen])
	e.Name = string(name)

	if elen > 0 {
		extra := make([]byte, elen+2)
		extra[0] = byte(elen)
		extra[1] = byte(elen >> 8)
		copy(extra[2:], hdr[cenHdrSize+nlen:cenHdrSize+nlen+elen])
		e.Extra = extra
	}

	if clen > 0 {
		e.comment = true
		e.Comment = string(hdr[cenHdrSize+nlen+elen : cenHdrSize+nlen+elen+clen])
	}

	return e, nil
}

// readCenHeaderRandom reads a small fixed window at cenpos, growing it if
// the header's variable-length tail doesn't fit (spec.md §4.4 "Random heap
// path"). The returned slice is a private, freshly allocated buffer.
func (a *Archive) readCenHeaderRandom(cenpos int64) ([]byte, error) {
	bufsize := int64(ampleCenHeaderSize)
	if bufsize > a.length-cenpos {
		bufsize = a.length - cenpos
	}
	buf := make([]byte, bufsize)
	if err := readFullyAt(a.src, buf, cenpos); err != nil {
		return nil, err
	}
	censz := censize(buf)
	if censz <= bufsize {
		return buf, nil
	}
	grown := make([]byte, censz)
	copy(grown, buf)
	if err := readFullyAt(a.src, grown[bufsize:], cenpos+bufsize); err != nil {
		return nil, err
	}
	return grown, nil
}

// readCenHeaderSequential serves a CEN header from the archive's one-page
// (8 KiB) directory cache, refilling it on a miss (spec.md §4.4
// "Sequential heap path"). The caller must not free or retain the returned
// slice beyond the next call: it aliases the cached page.
func (a *Archive) readCenHeaderSequential(cenpos int64) ([]byte, error) {
	if a.seq != nil && cenpos >= a.seq.pos && cenpos+cenHdrSize <= a.seq.pos+int64(len(a.seq.data)) {
		hdr := a.seq.data[cenpos-a.seq.pos:]
		if cenpos+censize(hdr) <= a.seq.pos+int64(len(a.seq.data)) {
			return hdr, nil
		}
	}

	bufsize := int64(cencachePageSize)
	if bufsize > a.length-cenpos {
		bufsize = a.length - cenpos
	}
	page := make([]byte, bufsize)
	if err := readFullyAt(a.src, page, cenpos); err != nil {
		return nil, err
	}
	a.seq = &seqPage{data: page, pos: cenpos}
	return a.seq.data, nil
}
