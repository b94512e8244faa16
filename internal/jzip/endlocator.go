package jzip

// readBlockSz is the size of the overlapping blocks findEnd scans backward
// through. Overlap equals endHdrSize so a signature straddling a block
// boundary is always seen whole (spec.md §4.1).
const readBlockSz = 128

// findEnd scans backward from the end of the archive for the
// End-Of-Central-Directory record signature, verifying that the comment
// length recorded in a candidate record exactly consumes the remainder of
// the file (spec.md §4.1's second check, which rejects signatures that
// happen to appear inside embedded data).
//
// Returns the absolute file offset of the END record and its fixed
// 22-byte body, or (0, nil, nil) if no END record was found, or
// (0, nil, err) on I/O failure.
func findEnd(src fileSource, length int64) (int64, []byte, error) {
	minHDR := length - endMaxLen
	if minHDR < 0 {
		minHDR = 0
	}
	minPos := minHDR - (readBlockSz - endHdrSize)

	buf := make([]byte, readBlockSz)
	for pos := length - readBlockSz; pos >= minPos; pos -= (readBlockSz - endHdrSize) {
		off := int64(0)
		if pos < 0 {
			// Virtually pad the low bytes with zeros (spec.md §4.1).
			off = -pos
			for i := int64(0); i < off; i++ {
				buf[i] = 0
			}
		}

		if err := readFullyAt(src, buf[off:], pos+off); err != nil {
			return 0, nil, err
		}

		for i := len(buf) - endHdrSize; i >= 0; i-- {
			if buf[i] == 'P' && buf[i+1] == 'K' && buf[i+2] == 5 && buf[i+3] == 6 {
				rec := buf[i : i+endHdrSize]
				if pos+int64(i)+endHdrSize+int64(endCom(rec)) == length {
					out := make([]byte, endHdrSize)
					copy(out, rec)
					return pos + int64(i), out, nil
				}
			}
		}
	}
	return 0, nil, nil
}
