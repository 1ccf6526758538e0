// virtmem.go - page-granular memory for emitted machine code
package jasm

import (
	"os"
)

// PageSize returns the system page size, the granularity of VirtAlloc.
func PageSize() int {
	return os.Getpagesize()
}

// pageCeil rounds n up to a whole number of pages.
func pageCeil(n int) int {
	page := PageSize()
	return (n + page - 1) &^ (page - 1)
}
