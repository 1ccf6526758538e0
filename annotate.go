// annotate.go - human-readable liveness strips for logged output
package jasm

// FormatInlineComment renders node's inline comment followed by its
// liveness strip and appends the result to dst. The strip starts at the
// configured annotation column and holds one character per virtual
// register: ' ' dead and untouched, '.' live, r/w/x/u for the tied usage
// at this node, uppercased when the register dies here.
func (rc *RAContext) FormatInlineComment(dst []byte, node *Node) []byte {
	dst = append(dst, node.comment...)

	wd := node.workData
	if wd == nil || wd.Liveness == nil {
		return dst
	}

	for len(dst) < rc.annotationLength {
		dst = append(dst, ' ')
	}

	vdCount := len(rc.contextVd)
	offset := len(dst) + 1

	dst = append(dst, '[')
	for i := 0; i < vdCount; i++ {
		dst = append(dst, ' ')
	}
	dst = append(dst, ']')

	for i := 0; i < vdCount; i++ {
		if wd.Liveness.Get(i) {
			dst[offset+i] = '.'
		}
	}

	for i := range wd.Tied {
		tied := &wd.Tied[i]
		dst[offset+tied.VReg.localID] = tied.usageChar()
	}

	return dst
}

// annotate rewrites the inline comment of every fetched node with its
// liveness strip. Runs only when the holder has a logger attached.
func (rc *RAContext) annotate() error {
	stop := rc.stop

	for node := rc.fn; node != nil && node != stop; node = node.next {
		if node.workData == nil {
			continue
		}
		buf := rc.FormatInlineComment(nil, node)
		if err := rc.arena.Reserve(len(buf)); err != nil {
			return rc.compiler.SetLastError(ErrNoHeapMemory)
		}
		node.comment = string(buf)
	}
	return nil
}
