// workdata.go - per-node scratch record attached by the fetch stage
package jasm

// RAData is attached to every node the fetch stage can reach. Nodes in
// unreachable regions never receive one, which is exactly how the
// unreachable-code sweeper tells the two apart.
type RAData struct {
	// Liveness is the live-in set of the node: bit i means virtual
	// register i is read on some path from here before being written.
	// Nil until the liveness pass first visits the node.
	Liveness BitArray

	// Tied lists the node's effects on virtual registers.
	Tied []TiedReg
}

// TiedTotal returns the number of tied register effects.
func (wd *RAData) TiedTotal() int {
	return len(wd.Tied)
}
