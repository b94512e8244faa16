package jzip

// GetEntry resolves name to a materialized entry (spec.md §4.5). ulen is
// either 0 (strict: no slash-retry) or the byte length of name; any
// non-zero value enables one retry with "/" appended. GetEntry builds the
// slash-appended name itself, so the caller reserves no extra space.
//
// Returns (entry, true) on a match, or (nil, false) if no entry (with or
// without a trailing slash) matches.
func (a *Archive) GetEntry(name string, ulen int) (*Entry, bool) {
	h := hashBytes([]byte(name))

	a.mu.Lock()
	defer a.mu.Unlock()

	for {
		if a.mru != nil && a.mru.Name == name {
			e := a.mru
			a.mru = nil
			return e, true
		}

		idx := a.table[h%uint32(a.tablelen)]
		for idx != endChain {
			c := &a.entries[idx]
			if c.hash == h {
				// A 32-bit hash collision without a name match should be
				// very rare. The reference implementation's "unlock
				// around the free" discipline for this branch has no
				// equivalent here (nothing to free: the GC reclaims the
				// discarded entry).
				e, err := a.materialize(c, accessRandom)
				if err == nil && e.Name == name {
					return e, true
				}
			}
			idx = c.next
		}

		if ulen == 0 || len(name) > 0 && name[len(name)-1] == '/' {
			return nil, false
		}

		name = name + "/"
		h = hashAppend(h, '/')
		ulen = 0
	}
}

// FindEntry is the convenience form named in spec.md §6: it resolves name
// with no slash-retry and also reports the entry's uncompressed size and
// name length.
func (a *Archive) FindEntry(name string) (entry *Entry, size int64, nameLen int, ok bool) {
	e, ok := a.GetEntry(name, 0)
	if !ok {
		return nil, 0, 0, false
	}
	return e, int64(e.Size), len(e.Name), true
}

// GetNextEntry returns the n'th (zero-based) entry using the sequential
// access hint, or (nil, false) if n is out of range (spec.md §6).
func (a *Archive) GetNextEntry(n int) (*Entry, bool) {
	if n < 0 || n >= int(a.total) {
		return nil, false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	e, err := a.materialize(&a.entries[n], accessSequential)
	if err != nil {
		return nil, false
	}
	return e, true
}

// FreeEntry releases a previously materialized entry back to the archive's
// single-slot MRU cache (spec.md §4.6). The previously cached entry, if
// any, is freed outside the lock (in Go: simply dropped for the GC),
// mirroring the take-under-lock/drop-unlocked discipline the design notes
// call out.
func (a *Archive) FreeEntry(e *Entry) {
	if e == nil {
		return
	}
	a.mu.Lock()
	a.mru = e
	a.mu.Unlock()
}
