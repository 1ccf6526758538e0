// arena.go - bump allocator backing all transient allocator state
package jasm

import (
	"github.com/xyproto/env/v2"
)

// arenaOverhead approximates the per-chunk bookkeeping cost so that the
// default 8 KiB chunk stays under one page pair.
const arenaOverhead = 64

// DefaultArenaChunk is the initial chunk size in bytes, overridable with
// the JASM_ARENA_CHUNK environment variable.
var DefaultArenaChunk = env.Int("JASM_ARENA_CHUNK", 8192) - arenaOverhead

// Arena is a bump allocator. Everything the register allocation context
// creates for one function (liveness bitmaps, scratch buffers) comes from
// here and is released in one shot by Reset. Not safe for concurrent use;
// each RAContext owns exactly one Arena.
type Arena struct {
	words     []uint64 // current word chunk
	wordsUsed int

	chunkWords int // words per fresh chunk
	allocated  int // bytes handed out since the last Reset
	limit      int // max bytes handed out, 0 means unlimited
}

// NewArena returns an arena whose chunks hold chunkSize bytes.
// A chunkSize below one word is raised to the default.
func NewArena(chunkSize int) *Arena {
	if chunkSize < 8 {
		chunkSize = DefaultArenaChunk
	}
	return &Arena{
		chunkWords: chunkSize / 8,
		limit:      env.Int("JASM_ARENA_LIMIT", 0),
	}
}

// SetLimit caps the total bytes the arena will hand out before reporting
// ErrNoHeapMemory. A limit of 0 removes the cap.
func (a *Arena) SetLimit(limit int) {
	a.limit = limit
}

// Allocated reports the bytes handed out since the last Reset.
func (a *Arena) Allocated() int {
	return a.allocated
}

// AllocWords returns a zeroed word slice of length n carved from the
// arena, or ErrNoHeapMemory if the configured limit would be exceeded.
// Requests larger than the chunk size get a dedicated chunk.
func (a *Arena) AllocWords(n int) ([]uint64, error) {
	if n < 0 {
		return nil, ErrInvalidArgument
	}
	if a.limit > 0 && a.allocated+n*8 > a.limit {
		return nil, ErrNoHeapMemory
	}
	if a.wordsUsed+n > len(a.words) {
		size := a.chunkWords
		if n > size {
			size = n
		}
		a.words = make([]uint64, size)
		a.wordsUsed = 0
	}
	out := a.words[a.wordsUsed : a.wordsUsed+n : a.wordsUsed+n]
	a.wordsUsed += n
	a.allocated += n * 8
	return out, nil
}

// Reserve accounts n bytes of object storage against the arena limit
// without carving slab space. Used for records whose storage the runtime
// manages but whose lifetime is tied to the arena.
func (a *Arena) Reserve(n int) error {
	if n < 0 {
		return ErrInvalidArgument
	}
	if a.limit > 0 && a.allocated+n > a.limit {
		return ErrNoHeapMemory
	}
	a.allocated += n
	return nil
}

// Reset drops every chunk. All slices previously returned become garbage
// at once; the arena is immediately reusable.
func (a *Arena) Reset() {
	a.words = nil
	a.wordsUsed = 0
	a.allocated = 0
}
