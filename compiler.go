// compiler.go - IR builder owning the node list the passes operate on
package jasm

import (
	"github.com/sirupsen/logrus"
)

// Compiler owns the linearized IR of one or more functions: the doubly
// linked node list, the insertion cursor, the virtual registers, and the
// canonical last-error channel. The allocation context mutates the list
// strictly through RemoveNode and reads registers it does not own.
type Compiler struct {
	holder *Holder

	first  *Node
	last   *Node
	cursor *Node

	vregs     []*VirtReg
	lastError error
}

// NewCompiler returns an empty compiler bound to the given holder.
func NewCompiler(holder *Holder) *Compiler {
	if holder == nil {
		holder = NewHolder()
	}
	return &Compiler{holder: holder}
}

// Holder returns the assembler-global context.
func (c *Compiler) Holder() *Holder { return c.holder }

// First returns the first node of the list, or nil.
func (c *Compiler) First() *Node { return c.first }

// Last returns the last node of the list, or nil.
func (c *Compiler) Last() *Node { return c.last }

// Cursor returns the current insertion point, or nil.
func (c *Compiler) Cursor() *Node { return c.cursor }

// SetCursor moves the insertion point. Passing nil forbids further
// insertion, which is what the pipeline does once compilation is done.
func (c *Compiler) SetCursor(n *Node) { c.cursor = n }

// SetLastError records the first error of a compilation and returns it,
// so call sites can `return c.SetLastError(err)`.
func (c *Compiler) SetLastError(err error) error {
	if c.lastError == nil {
		c.lastError = err
	}
	return err
}

// LastError returns the recorded error, or nil.
func (c *Compiler) LastError() error { return c.lastError }

// ClearLastError resets the error channel for a new compilation.
func (c *Compiler) ClearLastError() { c.lastError = nil }

// addNode appends n after the cursor (or at the end of the list) and
// makes n the new cursor.
func (c *Compiler) addNode(n *Node) *Node {
	at := c.cursor
	if at == nil {
		at = c.last
	}
	if at == nil {
		c.first = n
		c.last = n
	} else {
		n.prev = at
		n.next = at.next
		if at.next != nil {
			at.next.prev = n
		} else {
			c.last = n
		}
		at.next = n
	}
	c.cursor = n
	return n
}

// RemoveNode unlinks n from the list. A removed jump is also unlinked
// from its target label's from-chain so later passes never follow a
// back-edge into deleted code.
func (c *Compiler) RemoveNode(n *Node) {
	if n.typ == NodeJump && n.target != nil {
		c.unlinkJump(n)
	}
	if n.prev != nil {
		n.prev.next = n.next
	} else if c.first == n {
		c.first = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else if c.last == n {
		c.last = n.prev
	}
	if c.cursor == n {
		c.cursor = n.prev
	}
	n.prev = nil
	n.next = nil
	c.holder.trace("node removed", logrus.Fields{
		"type":    n.typ.String(),
		"comment": n.comment,
	})
}

func (c *Compiler) unlinkJump(jump *Node) {
	label := jump.target
	pp := &label.from
	for *pp != nil {
		if *pp == jump {
			*pp = jump.jumpNext
			label.numRefs--
			break
		}
		pp = &(*pp).jumpNext
	}
	jump.target = nil
	jump.jumpNext = nil
}

// Func appends a function entry node and returns it. The body follows
// until EndFunc closes it.
func (c *Compiler) Func() *Node {
	return c.addNode(&Node{typ: NodeFunc})
}

// EndFunc appends the sentinel closing fn's body and returns it.
func (c *Compiler) EndFunc(fn *Node) *Node {
	end := c.addNode(&Node{typ: NodeSentinel})
	fn.funcEnd = end
	return end
}

// NewLabel creates a label that is not yet part of the list; jumps may
// already reference it. Bind inserts it.
func (c *Compiler) NewLabel() *Node {
	return &Node{typ: NodeLabel}
}

// Bind inserts a label created with NewLabel at the cursor.
func (c *Compiler) Bind(label *Node) *Node {
	return c.addNode(label)
}

// Inst appends a regular instruction. operands declare the register
// effects; the fetch stage turns them into the tied list.
func (c *Compiler) Inst(comment string, operands ...TiedReg) *Node {
	return c.addNode(&Node{
		typ:       NodeInst,
		removable: true,
		comment:   comment,
		operands:  operands,
	})
}

// Ret appends a return instruction, a root of the liveness analysis.
func (c *Compiler) Ret(operands ...TiedReg) *Node {
	n := c.Inst("ret", operands...)
	n.ret = true
	return n
}

// Jmp appends an unconditional jump to label. Control never falls
// through, so whatever follows is a candidate for the unreachable sweep.
func (c *Compiler) Jmp(label *Node) *Node {
	return c.addJump(label, false)
}

// Jcc appends a conditional jump to label.
func (c *Compiler) Jcc(label *Node) *Node {
	return c.addJump(label, true)
}

func (c *Compiler) addJump(label *Node, conditional bool) *Node {
	n := &Node{
		typ:         NodeJump,
		removable:   true,
		conditional: conditional,
		target:      label,
	}
	n.jumpNext = label.from
	label.from = n
	label.numRefs++
	return c.addNode(n)
}

// Directive appends a non-removable directive (alignment, data).
func (c *Compiler) Directive(text string) *Node {
	return c.addNode(&Node{typ: NodeDirective, comment: text})
}

// Comment appends an informative node.
func (c *Compiler) Comment(text string) *Node {
	return c.addNode(&Node{typ: NodeComment, removable: true, comment: text})
}

// NewVirtReg creates a virtual register of the given width. Width must be
// a power of two between 1 and 64 bytes.
func (c *Compiler) NewVirtReg(name string, size int) (*VirtReg, error) {
	switch size {
	case 1, 2, 4, 8, 16, 32, 64:
	default:
		return nil, ErrInvalidArgument
	}
	v := &VirtReg{
		name:      name,
		size:      size,
		alignment: size,
		localID:   invalidID,
		physID:    invalidID,
	}
	c.vregs = append(c.vregs, v)
	return v, nil
}

// NewStackSlot creates a virtual register backed by an explicit stack
// allocation of arbitrary size. alignment 0 derives from size.
func (c *Compiler) NewStackSlot(name string, size, alignment int) (*VirtReg, error) {
	if size < 1 {
		return nil, ErrInvalidArgument
	}
	v := &VirtReg{
		name:      name,
		size:      size,
		alignment: alignment,
		isStack:   true,
		localID:   invalidID,
		physID:    invalidID,
	}
	c.vregs = append(c.vregs, v)
	return v, nil
}
