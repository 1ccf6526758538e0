package jasm

import (
	"testing"
)

// runLiveness drives fetch, sweep, and liveness over fn.
func runLiveness(t *testing.T, rc *RAContext, fn *Node) {
	t.Helper()
	prepare(rc, fn)
	if err := BaseFetch(rc); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if err := rc.removeUnreachableCode(); err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if err := rc.livenessAnalysis(); err != nil {
		t.Fatalf("Liveness failed: %v", err)
	}
}

// liveAt reports whether v is in node's stored liveness set.
func liveAt(t *testing.T, node *Node, v *VirtReg) bool {
	t.Helper()
	wd := node.WorkData()
	if wd == nil || wd.Liveness == nil {
		t.Fatalf("Node %v has no liveness bitmap", node.Type())
	}
	return wd.Liveness.Get(v.LocalID())
}

func read(v *VirtReg) TiedReg  { return TiedReg{VReg: v, Flags: TiedRReg} }
func write(v *VirtReg) TiedReg { return TiedReg{VReg: v, Flags: TiedWReg} }
func lastUse(v *VirtReg) TiedReg {
	return TiedReg{VReg: v, Flags: TiedRReg | TiedUnuse}
}

func TestLivenessStraightLine(t *testing.T) {
	c := NewCompiler(NewHolder())
	rc := NewRAContext(c, passBackend{})

	a, _ := c.NewVirtReg("a", 8)

	fn := c.Func()
	def := c.Inst("mov a, 1", write(a))
	use := c.Inst("add a, a", lastUse(a))
	c.Ret()
	c.EndFunc(fn)

	runLiveness(t, rc, fn)

	if !liveAt(t, use, a) {
		t.Fatal("a must be live at its read")
	}
	if !liveAt(t, def, a) {
		t.Fatal("a is touched at its definition, bit must be set")
	}
	// The write kills a upstream: not live at function entry.
	if liveAt(t, fn, a) {
		t.Fatal("a must not be live at function entry")
	}
}

func TestLivenessWriteOnlyKills(t *testing.T) {
	c := NewCompiler(NewHolder())
	rc := NewRAContext(c, passBackend{})

	a, _ := c.NewVirtReg("a", 4)
	b, _ := c.NewVirtReg("b", 4)

	fn := c.Func()
	pre := c.Inst("mov b, 2", write(b))
	c.Inst("mov a, b", write(a), read(b))
	c.Inst("use a", lastUse(a))
	c.Ret()
	c.EndFunc(fn)

	runLiveness(t, rc, fn)

	// b flows into the pre node's set, a does not survive past its def.
	if !liveAt(t, pre, b) {
		t.Fatal("b must be live at its definition")
	}
	if liveAt(t, pre, a) {
		t.Fatal("a is killed by its write-only def, must not reach pre")
	}
	if liveAt(t, fn, a) || liveAt(t, fn, b) {
		t.Fatal("Nothing is live at function entry")
	}
}

func TestLivenessDiamond(t *testing.T) {
	c := NewCompiler(NewHolder())
	rc := NewRAContext(c, passBackend{})

	v, _ := c.NewVirtReg("v", 8)

	lElse := c.NewLabel()
	lMerge := c.NewLabel()

	fn := c.Func()
	jcc := c.Jcc(lElse)
	thenDef := c.Inst("then: mov v", write(v))
	jmp := c.Jmp(lMerge)
	c.Bind(lElse)
	elseDef := c.Inst("else: mov v", write(v))
	c.Bind(lMerge)
	c.Inst("use v", lastUse(v))
	c.Ret()
	c.EndFunc(fn)

	runLiveness(t, rc, fn)

	// v crosses the merge label and both branch tails.
	if !liveAt(t, lMerge, v) {
		t.Fatal("v must be live across the merge label")
	}
	if !liveAt(t, jmp, v) {
		t.Fatal("v must be live at the then-branch tail")
	}
	if !liveAt(t, elseDef, v) {
		t.Fatal("v must be live at the else-branch def")
	}
	if !liveAt(t, thenDef, v) {
		t.Fatal("v must be live at the then-branch def")
	}
	// Both paths define v before the merge, so it is dead above the split.
	if liveAt(t, jcc, v) {
		t.Fatal("v must not be live at the conditional jump")
	}
	if liveAt(t, fn, v) {
		t.Fatal("v must not be live at function entry")
	}
}

func TestLivenessLoop(t *testing.T) {
	c := NewCompiler(NewHolder())
	rc := NewRAContext(c, passBackend{})

	v, _ := c.NewVirtReg("v", 8)

	head := c.NewLabel()

	fn := c.Func()
	init := c.Inst("mov v, 0", write(v))
	c.Bind(head)
	c.Inst("body: use v", read(v))
	back := c.Jcc(head)
	c.Ret()
	c.EndFunc(fn)

	runLiveness(t, rc, fn)

	// The read inside the loop keeps v live at the header and across the
	// back-edge after patching.
	if !liveAt(t, head, v) {
		t.Fatal("v must be live at the loop header")
	}
	if !liveAt(t, back, v) {
		t.Fatal("v must be live at the back-edge jump")
	}
	if !liveAt(t, init, v) {
		t.Fatal("v is touched by its init, bit must be set")
	}
	if liveAt(t, fn, v) {
		t.Fatal("v must not be live at function entry")
	}
}

func TestLivenessNoRegisters(t *testing.T) {
	c := NewCompiler(NewHolder())
	rc := NewRAContext(c, passBackend{})

	fn := c.Func()
	nop := c.Inst("nop")
	c.Ret()
	c.EndFunc(fn)

	prepare(rc, fn)
	if err := BaseFetch(rc); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	allocated := rc.Arena().Allocated()
	if err := rc.livenessAnalysis(); err != nil {
		t.Fatalf("Liveness with no registers failed: %v", err)
	}
	if rc.Arena().Allocated() != allocated {
		t.Fatal("Liveness with no registers must not allocate")
	}
	if nop.WorkData().Liveness != nil {
		t.Fatal("No bitmaps expected with an empty registry")
	}
}

func TestLivenessIdempotent(t *testing.T) {
	c := NewCompiler(NewHolder())
	rc := NewRAContext(c, passBackend{})

	v, _ := c.NewVirtReg("v", 8)
	w, _ := c.NewVirtReg("w", 4)

	head := c.NewLabel()

	fn := c.Func()
	c.Inst("mov v, 0", write(v))
	c.Inst("mov w, 0", write(w))
	c.Bind(head)
	c.Inst("body", read(v), read(w))
	c.Jcc(head)
	c.Ret()
	c.EndFunc(fn)

	runLiveness(t, rc, fn)

	// Snapshot every bitmap, run again, compare bitwise.
	type snap struct {
		node *Node
		bits []uint64
	}
	var snaps []snap
	for n := fn; n != nil; n = n.Next() {
		if wd := n.WorkData(); wd != nil && wd.Liveness != nil {
			bits := make([]uint64, len(wd.Liveness))
			copy(bits, wd.Liveness)
			snaps = append(snaps, snap{n, bits})
		}
		if n.Type() == NodeSentinel {
			break
		}
	}
	if len(snaps) == 0 {
		t.Fatal("No bitmaps recorded")
	}

	if err := rc.livenessAnalysis(); err != nil {
		t.Fatalf("Second liveness run failed: %v", err)
	}
	for _, s := range snaps {
		live := s.node.WorkData().Liveness
		for i := range s.bits {
			if live[i] != s.bits[i] {
				t.Fatalf("Bitmap changed on second run at %v node", s.node.Type())
			}
		}
	}
}

func TestLivenessMissingReturnList(t *testing.T) {
	c := NewCompiler(NewHolder())
	rc := NewRAContext(c, passBackend{})

	// One register so bLen > 0, but no return anywhere.
	v, err := c.NewVirtReg("v", 8)
	if err != nil {
		t.Fatalf("NewVirtReg failed: %v", err)
	}
	rc.registerVReg(v)

	fn := c.Func()
	c.Inst("nop")
	c.EndFunc(fn)

	prepare(rc, fn)
	if err := rc.livenessAnalysis(); err != ErrInvalidState {
		t.Fatalf("Expected ErrInvalidState, got %v", err)
	}
}
