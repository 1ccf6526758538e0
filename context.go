// context.go - per-function register allocation context and pipeline
package jasm

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Backend supplies the target-specific ends of the pipeline. Fetch runs
// first and must attach work-data to every reachable node (BaseFetch does
// this for backends without special needs); Translate runs last and
// assigns physical registers using the liveness results.
type Backend interface {
	Fetch(rc *RAContext) error
	Translate(rc *RAContext) error
}

// RAContext carries everything one function compilation needs: the
// virtual register registry, the frame cells, the control-flow work
// lists, and the scratch arena they all live in. One context per
// function; contexts are reusable after Cleanup and Reset.
type RAContext struct {
	holder   *Holder
	compiler *Compiler
	arena    *Arena
	backend  Backend

	fn         *Node // the NodeFunc being compiled
	stop       *Node // node after the function end, or nil
	extraBlock *Node // the function end sentinel

	// Work lists populated by fetch.
	unreachableList []*Node
	returningList   []*Node
	jccList         []*Node

	// contextVd is the virtual register registry; slice index == localId.
	contextVd []*VirtReg

	// Frame cells and counters.
	memVarCells   *RACell
	memStackCells *RACell

	mem1ByteVarsUsed  int
	mem2ByteVarsUsed  int
	mem4ByteVarsUsed  int
	mem8ByteVarsUsed  int
	mem16ByteVarsUsed int
	mem32ByteVarsUsed int
	mem64ByteVarsUsed int
	memStackCellsUsed int

	memMaxAlign   int
	memVarTotal   int
	memStackTotal int
	memAllTotal   int

	annotationLength int
}

// NewRAContext returns a fresh context bound to the compiler and backend.
func NewRAContext(compiler *Compiler, backend Backend) *RAContext {
	rc := &RAContext{
		holder:   compiler.Holder(),
		compiler: compiler,
		arena:    NewArena(DefaultArenaChunk),
		backend:  backend,
	}
	rc.reset(true)
	return rc
}

// Compiler returns the owning compiler.
func (rc *RAContext) Compiler() *Compiler { return rc.compiler }

// Holder returns the assembler-global context.
func (rc *RAContext) Holder() *Holder { return rc.holder }

// Arena returns the scratch arena.
func (rc *RAContext) Arena() *Arena { return rc.arena }

// Func returns the function entry node, valid during Compile.
func (rc *RAContext) Func() *Node { return rc.fn }

// Stop returns the end-of-function sentinel's successor, or nil.
func (rc *RAContext) Stop() *Node { return rc.stop }

// ExtraBlock returns the node translators append epilog code after,
// valid between Compile and Cleanup.
func (rc *RAContext) ExtraBlock() *Node { return rc.extraBlock }

// Registry returns the virtual register registry; index equals localId.
func (rc *RAContext) Registry() []*VirtReg { return rc.contextVd }

// JccList returns the conditional jumps found by fetch, for Translate.
func (rc *RAContext) JccList() []*Node { return rc.jccList }

// ReturningList returns the function exit nodes found by fetch.
func (rc *RAContext) ReturningList() []*Node { return rc.returningList }

// MemAllTotal returns the total frame bytes after ResolveCellOffsets.
func (rc *RAContext) MemAllTotal() int { return rc.memAllTotal }

// MemMaxAlign returns the largest alignment any cell ever requested.
func (rc *RAContext) MemMaxAlign() int { return rc.memMaxAlign }

// MemVarTotal returns the bytes used by variable cells.
func (rc *RAContext) MemVarTotal() int { return rc.memVarTotal }

// MemStackTotal returns the bytes used by explicit stack cells.
func (rc *RAContext) MemStackTotal() int { return rc.memStackTotal }

// registerVReg assigns v the next dense local id, once.
func (rc *RAContext) registerVReg(v *VirtReg) {
	if v.localID == invalidID {
		v.localID = len(rc.contextVd)
		rc.contextVd = append(rc.contextVd, v)
	}
}

// newBits allocates a zeroed liveness bitmap from the arena.
func (rc *RAContext) newBits(words int) (BitArray, error) {
	w, err := rc.arena.AllocWords(words)
	if err != nil {
		return nil, rc.compiler.SetLastError(err)
	}
	return BitArray(w), nil
}

// copyBits allocates a bitmap holding a copy of src.
func (rc *RAContext) copyBits(src BitArray) (BitArray, error) {
	b, err := rc.newBits(len(src))
	if err != nil {
		return nil, err
	}
	b.CopyFrom(src)
	return b, nil
}

// Compile runs the full pipeline over fn:
//
//	fetch -> removeUnreachableCode -> livenessAnalysis -> [annotate] -> translate
//
// and fails fast on the first error. On success the compiler cursor is
// cleared; inserting nodes after compilation is forbidden.
func (rc *RAContext) Compile(fn *Node) error {
	if fn == nil || fn.typ != NodeFunc || fn.funcEnd == nil {
		return rc.compiler.SetLastError(ErrInvalidState)
	}
	end := fn.funcEnd
	rc.fn = fn
	rc.stop = end.next
	rc.extraBlock = end

	if err := rc.backend.Fetch(rc); err != nil {
		return errors.Wrap(err, "fetch")
	}
	if err := rc.removeUnreachableCode(); err != nil {
		return errors.Wrap(err, "remove unreachable code")
	}
	if err := rc.livenessAnalysis(); err != nil {
		return errors.Wrap(err, "liveness analysis")
	}
	if rc.holder.HasLogger() {
		if err := rc.annotate(); err != nil {
			return errors.Wrap(err, "annotate")
		}
	}
	if err := rc.backend.Translate(rc); err != nil {
		return errors.Wrap(err, "translate")
	}

	rc.holder.trace("function compiled", logrus.Fields{
		"vregs":    len(rc.contextVd),
		"frame":    rc.memAllTotal,
		"maxAlign": rc.memMaxAlign,
	})

	// The cursor no longer points at anything meaningful - nodes may have
	// disappeared and adding code after compilation is forbidden.
	rc.compiler.SetCursor(nil)
	return nil
}

// Cleanup scrubs the per-function ids off the virtual registers, which
// outlive the context, and clears the registry. Arena memory is released
// separately by Reset.
func (rc *RAContext) Cleanup() {
	for _, v := range rc.contextVd {
		v.resetIDs()
	}
	rc.contextVd = rc.contextVd[:0]
	rc.extraBlock = nil
}

// Reset releases the arena and restores the context to its initial
// state, ready for the next function.
func (rc *RAContext) Reset() {
	rc.reset(true)
}

func (rc *RAContext) reset(releaseMemory bool) {
	if releaseMemory {
		rc.arena.Reset()
	}

	rc.fn = nil
	rc.stop = nil
	rc.extraBlock = nil

	rc.unreachableList = nil
	rc.returningList = nil
	rc.jccList = nil
	rc.contextVd = nil

	rc.memVarCells = nil
	rc.memStackCells = nil

	rc.mem1ByteVarsUsed = 0
	rc.mem2ByteVarsUsed = 0
	rc.mem4ByteVarsUsed = 0
	rc.mem8ByteVarsUsed = 0
	rc.mem16ByteVarsUsed = 0
	rc.mem32ByteVarsUsed = 0
	rc.mem64ByteVarsUsed = 0
	rc.memStackCellsUsed = 0

	rc.memMaxAlign = 0
	rc.memVarTotal = 0
	rc.memStackTotal = 0
	rc.memAllTotal = 0

	rc.annotationLength = rc.holder.AnnotationLength()
}
