package jzip

import "strings"

// hashBytes is the multiplier-31 accumulator from spec.md §4.3, computed
// over raw name bytes interpreted as signed (matching zip_util.c's
// `h = 31*h + (signed char)c`, the historical hashing this format relies
// on for compatibility).
func hashBytes(name []byte) uint32 {
	h := int32(0)
	for _, c := range name {
		h = 31*h + int32(int8(c))
	}
	return uint32(h)
}

// hashAppend extends a running hash with one more byte, used by the lookup
// engine's lazy slash-append retry (spec.md §4.5 step 4).
func hashAppend(h uint32, c byte) uint32 {
	return uint32(int32(h)*31 + int32(int8(c)))
}

const metaPrefix = "META-INF/"

// isMetaName reports whether name begins, case-insensitively, with
// "META-INF/" (spec.md GLOSSARY "Meta-name").
func isMetaName(name []byte) bool {
	if len(name) < len(metaPrefix) {
		return false
	}
	return strings.EqualFold(string(name[:len(metaPrefix)]), metaPrefix)
}
