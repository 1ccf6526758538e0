//go:build linux || darwin || freebsd

// virtmem_unix.go - executable memory mapping for Linux, macOS, FreeBSD
package jasm

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// VirtAlloc maps size bytes (rounded up to whole pages) of read-write
// memory for the translator to emit code into. Release with VirtRelease.
func VirtAlloc(size int) ([]byte, error) {
	if size < 1 {
		return nil, ErrInvalidArgument
	}
	mem, err := unix.Mmap(-1, 0, pageCeil(size),
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, errors.Wrap(err, "mmap")
	}
	return mem, nil
}

// VirtProtectExec flips a VirtAlloc mapping to read-execute once the
// emitted code is final.
func VirtProtectExec(mem []byte) error {
	if err := unix.Mprotect(mem, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		return errors.Wrap(err, "mprotect")
	}
	return nil
}

// VirtRelease unmaps a VirtAlloc mapping.
func VirtRelease(mem []byte) error {
	if err := unix.Munmap(mem); err != nil {
		return errors.Wrap(err, "munmap")
	}
	return nil
}
