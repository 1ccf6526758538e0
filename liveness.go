// liveness.go - backward liveness analysis over the node list
package jasm

// livenessTarget tracks a label while its back-edges are traversed. The
// targets form a stack (prev links); exhausted records are parked on a
// free list and reused.
type livenessTarget struct {
	prev *livenessTarget
	node *Node // the label
	from *Node // the back-edge currently being propagated
}

// livenessTargetBytes is the arena accounting cost of one target record.
const livenessTargetBytes = 24

// livenessStep enumerates the states of the traversal machine: one
// tagged loop instead of labelled jumps across scopes.
type livenessStep int

const (
	stepVisit livenessStep = iota
	stepPatch
	stepTarget
	stepTargetLoop
	stepJumpNext
	stepTargetDone
	stepDone
)

// livenessAnalysis computes, for every fetched node, the set of virtual
// registers live before the node executes. The analysis walks backward
// from every return, visiting nodes the first time (allocate and install
// a bitmap, apply the transfer function) and patching them on revisits
// (union in new bits, stop as soon as nothing changes). Labels fork the
// walk across their back-edges through the target stack.
func (rc *RAContext) livenessAnalysis() error {
	bLen := bitWords(len(rc.contextVd))
	if bLen == 0 {
		// No virtual registers, nothing to compute.
		return nil
	}

	if len(rc.returningList) == 0 {
		return rc.compiler.SetLastError(ErrInvalidState)
	}

	fn := rc.fn
	retIdx := 0
	node := rc.returningList[0]

	var from *Node
	var ltCur, ltUnused *livenessTarget

	bCur, err := rc.newBits(bLen)
	if err != nil {
		return err
	}

	st := stepVisit
	for {
		switch st {

		case stepVisit:
			// First-time walk: install bitmaps until a visited node, a
			// label, or the function entry stops us.
			for {
				wd := node.workData
				if wd == nil {
					return rc.compiler.SetLastError(ErrInvalidState)
				}
				if wd.Liveness != nil {
					if addBitsDelSource(wd.Liveness, bCur) {
						st = stepPatch
					} else {
						st = stepDone
					}
					break
				}

				bTmp, err := rc.copyBits(bCur)
				if err != nil {
					return err
				}
				wd.Liveness = bTmp

				for i := range wd.Tied {
					tied := &wd.Tied[i]
					localID := tied.VReg.localID

					if tied.Flags&TiedWAll != 0 && tied.Flags&TiedRAll == 0 {
						// Write-only: live here, killed upstream.
						bTmp.Set(localID)
						bCur.Del(localID)
					} else {
						// Read or read-write: live here and upstream.
						bTmp.Set(localID)
						bCur.Set(localID)
					}
				}

				if node.typ == NodeLabel {
					st = stepTarget
					break
				}
				if node == fn {
					st = stepDone
					break
				}
				node = node.prev
				if node == nil {
					return rc.compiler.SetLastError(ErrInvalidState)
				}
			}

		case stepPatch:
			// Revisit walk: union bCur into already-installed bitmaps and
			// keep climbing while something still changes.
			for {
				wd := node.workData
				if wd == nil || wd.Liveness == nil {
					return rc.compiler.SetLastError(ErrInvalidState)
				}
				if !addBitsDelSource(wd.Liveness, bCur) {
					st = stepDone
					break
				}
				if node.typ == NodeLabel {
					st = stepTarget
					break
				}
				if node == fn {
					st = stepDone
					break
				}
				node = node.prev
				if node == nil {
					return rc.compiler.SetLastError(ErrInvalidState)
				}
			}

		case stepTarget:
			// node is a label. Fork across its back-edges, unless nothing
			// references it and it is fall-through only.
			if node.numRefs != 0 {
				if ltCur == nil || ltCur.node != node {
					lt := ltUnused
					if lt != nil {
						ltUnused = ltUnused.prev
					} else {
						if err := rc.arena.Reserve(livenessTargetBytes + bLen*8); err != nil {
							return rc.compiler.SetLastError(ErrNoHeapMemory)
						}
						lt = &livenessTarget{}
					}
					lt.prev = ltCur
					lt.node = node
					ltCur = lt

					from = node.from
					if from == nil {
						return rc.compiler.SetLastError(ErrInvalidState)
					}
					st = stepTargetLoop
				} else {
					from = ltCur.from
					st = stepJumpNext
				}
			} else {
				st = stepTargetDone
			}

		case stepTargetLoop:
			// Start (or continue) propagating through back-edge `from`.
			ltCur.from = from
			bCur.CopyFrom(node.workData.Liveness)

			fwd := from.workData
			if fwd == nil {
				return rc.compiler.SetLastError(ErrInvalidState)
			}
			if fwd.Liveness == nil {
				node = from
				st = stepVisit
			} else {
				st = stepJumpNext
			}

		case stepJumpNext:
			// Patch the jump again if bCur still carries bits the jump
			// has not seen; important when a revisit grew the label's set.
			if delBits(bCur, from.workData.Liveness) {
				node = from
				st = stepPatch
				break
			}
			from = from.jumpNext
			if from != nil {
				st = stepTargetLoop
			} else {
				lt := ltCur
				ltCur = lt.prev
				lt.prev = ltUnused
				ltUnused = lt
				node = lt.node
				st = stepTargetDone
			}

		case stepTargetDone:
			// All back-edges handled; continue into the label's linear
			// predecessor, unless it is a jump (control never falls
			// through it) or unreachable.
			bCur.CopyFrom(node.workData.Liveness)
			node = node.prev
			if node == nil || node.IsJmp() || node.workData == nil {
				st = stepDone
				break
			}
			wd := node.workData
			if wd.Liveness == nil {
				st = stepVisit
			} else if delBits(bCur, wd.Liveness) {
				st = stepPatch
			} else {
				st = stepDone
			}

		case stepDone:
			// Resume a suspended label first, then the next return.
			if ltCur != nil {
				node = ltCur.node
				from = ltCur.from
				st = stepJumpNext
				break
			}
			retIdx++
			if retIdx < len(rc.returningList) {
				node = rc.returningList[retIdx]
				st = stepVisit
				break
			}
			return nil
		}
	}
}
