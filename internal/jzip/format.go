package jzip

import "encoding/binary"

// On-disk ZIP record layout, little-endian throughout. Field names follow
// the traditional CEN*/LOC*/END* accessor naming from the zip format
// (and from the JDK's zip_util.c, where this engine's algorithms are
// grounded) rather than Go naming conventions, since they name specific
// fixed-width wire fields rather than in-memory values.

const (
	// endHdrSize is the fixed portion of the End-Of-Central-Directory record.
	endHdrSize = 22
	endSig     = 0x06054b50

	// cenHdrSize is the fixed portion of a Central Directory header.
	cenHdrSize = 46
	cenSig     = 0x02014b50

	// locHdrSize is the fixed portion of a Local File header.
	locHdrSize = 30
	locSig     = 0x04034b50

	methodStored  = 0
	methodDeflate = 8

	// endMaxLen bounds how far back the end locator must scan: the ZIP
	// comment length is a 16-bit field.
	endMaxLen = 0xFFFF + endHdrSize
)

func getSig(b []byte) uint32 { return binary.LittleEndian.Uint32(b[0:4]) }

// End-Of-Central-Directory accessors (offsets relative to the record start).
func endTot(b []byte) uint16 { return binary.LittleEndian.Uint16(b[10:12]) }
func endSiz(b []byte) uint32 { return binary.LittleEndian.Uint32(b[12:16]) }
func endOff(b []byte) uint32 { return binary.LittleEndian.Uint32(b[16:20]) }
func endCom(b []byte) uint16 { return binary.LittleEndian.Uint16(b[20:22]) }

// Central Directory header accessors (offsets relative to the header start).
func cenSignature(b []byte) uint32 { return getSig(b) }
func cenFlg(b []byte) uint16       { return binary.LittleEndian.Uint16(b[8:10]) }
func cenHow(b []byte) uint16       { return binary.LittleEndian.Uint16(b[10:12]) }
func cenTim(b []byte) uint32       { return binary.LittleEndian.Uint32(b[12:16]) }
func cenCrc(b []byte) uint32       { return binary.LittleEndian.Uint32(b[16:20]) }
func cenSiz(b []byte) uint32       { return binary.LittleEndian.Uint32(b[20:24]) }
func cenLen(b []byte) uint32       { return binary.LittleEndian.Uint32(b[24:28]) }
func cenNam(b []byte) uint16       { return binary.LittleEndian.Uint16(b[28:30]) }
func cenExt(b []byte) uint16       { return binary.LittleEndian.Uint16(b[30:32]) }
func cenCom(b []byte) uint16       { return binary.LittleEndian.Uint16(b[32:34]) }
func cenOff(b []byte) uint32       { return binary.LittleEndian.Uint32(b[42:46]) }

// censize returns the total byte length of the CEN header at b, including
// its variable-length name/extra/comment tail.
func censize(b []byte) int64 {
	return cenHdrSize + int64(cenNam(b)) + int64(cenExt(b)) + int64(cenCom(b))
}

// Local File header accessors.
func locSignature(b []byte) uint32 { return getSig(b) }
func locNam(b []byte) uint16       { return binary.LittleEndian.Uint16(b[26:28]) }
func locExt(b []byte) uint16       { return binary.LittleEndian.Uint16(b[28:30]) }
