//go:build unix

package jzip

import "golang.org/x/sys/unix"

// unixMapper backs the directory loader's memory-map strategy with real
// mmap/munmap, as zip_util.c does under USE_MMAP.
type unixMapper struct{}

func newDefaultMapper() mapper { return unixMapper{} }

func (unixMapper) Map(fd uintptr, offset int64, length int) ([]byte, error) {
	return unix.Mmap(int(fd), offset, length, unix.PROT_READ, unix.MAP_SHARED)
}

func (unixMapper) Unmap(b []byte) error {
	return unix.Munmap(b)
}

func (unixMapper) PageSize() int {
	return unix.Getpagesize()
}
