//go:build !unix

package jzip

import "errors"

// noMapper reports every Map call as unsupported; callers fall back to the
// heap directory-loader strategy, matching a JDK build without USE_MMAP.
type noMapper struct{}

func newDefaultMapper() mapper { return noMapper{} }

func (noMapper) Map(fd uintptr, offset int64, length int) ([]byte, error) {
	return nil, errors.New("jzip: memory mapping not supported on this platform")
}

func (noMapper) Unmap(b []byte) error { return nil }

func (noMapper) PageSize() int { return 4096 }
