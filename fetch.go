// fetch.go - base fetch stage: reachability walk and work-data setup
package jasm

// BaseFetch is the target-independent fetch stage. It walks the function
// body from the entry node following fall-through and jump edges,
// attaches a work-data record to every node it can reach, assigns dense
// local ids to the virtual registers the instructions declare, and
// populates the unreachable, returning, and jcc work lists.
//
// Backends with no target-specific fetch needs can use it directly:
//
//	type myBackend struct{}
//	func (myBackend) Fetch(rc *RAContext) error { return BaseFetch(rc) }
//
// Jump nodes must not declare tied registers; a jump's live-in must equal
// its target label's live-in for the backward walk to terminate at jumps,
// and that only holds when the jump itself touches nothing.
func BaseFetch(rc *RAContext) error {
	fn := rc.fn
	stop := rc.stop

	// The closing sentinel is part of the function no matter what the
	// control flow does; giving it work-data keeps it off every
	// unreachable run.
	if fn.funcEnd != nil && fn.funcEnd.workData == nil {
		fn.funcEnd.workData = &RAData{}
	}

	worklist := []*Node{fn}

	for len(worklist) > 0 {
		node := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]

		if node == nil || node == stop || node.workData != nil {
			continue
		}

		wd := &RAData{}
		node.workData = wd

		switch node.typ {
		case NodeInst:
			if len(node.operands) > 0 {
				wd.Tied = append(wd.Tied, node.operands...)
				for i := range wd.Tied {
					rc.registerVReg(wd.Tied[i].VReg)
				}
			}
			if node.ret {
				rc.returningList = append(rc.returningList, node)
				// Control stops here; whatever follows is suspect.
				rc.suspectUnreachable(node.next)
				continue
			}

		case NodeJump:
			if len(node.operands) > 0 {
				return rc.compiler.SetLastError(ErrInvalidState)
			}
			if node.target != nil {
				worklist = append(worklist, node.target)
			}
			if node.conditional {
				rc.jccList = append(rc.jccList, node)
			} else {
				rc.suspectUnreachable(node.next)
				continue
			}

		case NodeSentinel:
			// End of the function body.
			continue
		}

		worklist = append(worklist, node.next)
	}

	return nil
}

// suspectUnreachable queues a node for the unreachable sweep. Nodes that
// turn out reachable through a label keep their work-data and make the
// sweeper skip the run.
func (rc *RAContext) suspectUnreachable(node *Node) {
	if node != nil && node != rc.stop {
		rc.unreachableList = append(rc.unreachableList, node)
	}
}
