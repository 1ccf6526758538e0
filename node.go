// node.go - doubly linked IR node list consumed by the allocation passes
package jasm

// NodeType discriminates the IR node kinds the allocation context cares
// about. Anything else a target backend emits can ride on NodeDirective.
type NodeType int

const (
	NodeNone NodeType = iota
	// NodeInst is a regular instruction, including returns.
	NodeInst
	// NodeLabel is a jump target.
	NodeLabel
	// NodeJump is an unconditional or conditional jump to a label.
	NodeJump
	// NodeDirective is an alignment or data directive that must survive
	// in the emitted stream.
	NodeDirective
	// NodeComment is an informative node with no encoding.
	NodeComment
	// NodeFunc marks the top of the function being compiled.
	NodeFunc
	// NodeSentinel marks the end of the function body.
	NodeSentinel
)

func (t NodeType) String() string {
	switch t {
	case NodeInst:
		return "inst"
	case NodeLabel:
		return "label"
	case NodeJump:
		return "jump"
	case NodeDirective:
		return "directive"
	case NodeComment:
		return "comment"
	case NodeFunc:
		return "func"
	case NodeSentinel:
		return "sentinel"
	default:
		return "none"
	}
}

// Node is one unit of the linearized IR. A single struct carries the
// per-kind fields; only the fields matching typ are meaningful.
type Node struct {
	prev, next *Node
	typ        NodeType

	removable bool
	comment   string

	// workData is attached by fetch to every reachable node and owns the
	// liveness bitmap. Nil on unreachable or not-yet-fetched nodes.
	workData *RAData

	// Instruction fields. operands declares the register effects; fetch
	// turns them into the workData tied list. ret marks a function exit.
	operands []TiedReg
	ret      bool

	// Label fields. numRefs counts referencing jumps; from heads the
	// chain of jumps targeting this label, linked through jumpNext.
	numRefs int
	from    *Node

	// Jump fields.
	target      *Node // the label jumped to
	jumpNext    *Node // next jump targeting the same label
	conditional bool

	// Func fields.
	funcEnd *Node // the NodeSentinel closing the function body
}

// Type returns the node kind.
func (n *Node) Type() NodeType { return n.typ }

// Prev returns the previous node in the list, or nil.
func (n *Node) Prev() *Node { return n.prev }

// Next returns the next node in the list, or nil.
func (n *Node) Next() *Node { return n.next }

// IsRemovable reports whether the unreachable-code sweeper may delete
// this node once a label has been crossed.
func (n *Node) IsRemovable() bool { return n.removable }

// Comment returns the inline comment, possibly rewritten by annotate.
func (n *Node) Comment() string { return n.comment }

// SetComment replaces the inline comment.
func (n *Node) SetComment(s string) { n.comment = s }

// WorkData returns the per-node allocation record, or nil.
func (n *Node) WorkData() *RAData { return n.workData }

// IsRet reports whether this instruction exits the function.
func (n *Node) IsRet() bool { return n.typ == NodeInst && n.ret }

// IsJmp reports whether this is an unconditional jump.
func (n *Node) IsJmp() bool { return n.typ == NodeJump && !n.conditional }

// Target returns the label a jump targets, or nil.
func (n *Node) Target() *Node { return n.target }

// JumpNext returns the next jump in the target label's from-chain.
func (n *Node) JumpNext() *Node { return n.jumpNext }

// NumRefs returns the number of jumps referencing a label.
func (n *Node) NumRefs() int { return n.numRefs }

// From returns the first jump in a label's from-chain, or nil.
func (n *Node) From() *Node { return n.from }

// FuncEnd returns the sentinel that closes a NodeFunc's body.
func (n *Node) FuncEnd() *Node { return n.funcEnd }
