package core

import (
	"fmt"
	"sort"

	"github.com/comalice/formchart/internal/primitives"
)

// isDescendant reports whether n lies strictly below ancestor.
func (m *Machine[C]) isDescendant(n, ancestor int) bool {
	for p := m.nodes[n].parent; p != noNode; p = m.nodes[p].parent {
		if p == ancestor {
			return true
		}
	}
	return false
}

// computeDomain returns the node whose active descendants a transition exits.
// It is the declaring node when the target lies strictly inside it, otherwise
// the least common proper ancestor of declaring node and target. A self-loop
// on a leaf therefore exits and re-enters that leaf.
func (m *Machine[C]) computeDomain(owner, target int) int {
	if m.isDescendant(target, owner) {
		return owner
	}
	for a := m.nodes[owner].parent; a != noNode; a = m.nodes[a].parent {
		if m.isDescendant(target, a) {
			return a
		}
	}
	return 0
}

// activeNodes expands active leaves to every active node (leaves plus ancestors).
func (m *Machine[C]) activeNodes(leaves []int) map[int]bool {
	active := make(map[int]bool, len(leaves)*4)
	for _, leaf := range leaves {
		for n := leaf; n != noNode && !active[n]; n = m.nodes[n].parent {
			active[n] = true
		}
	}
	return active
}

// getExitStates returns the active descendants of domain, innermost first.
// Nodes at equal depth exit in reverse document order.
func (m *Machine[C]) getExitStates(leaves []int, domain int) []int {
	var exits []int
	for n := range m.activeNodes(leaves) {
		if m.isDescendant(n, domain) {
			exits = append(exits, n)
		}
	}
	sort.Slice(exits, func(i, j int) bool {
		di, dj := m.nodes[exits[i]].depth, m.nodes[exits[j]].depth
		if di != dj {
			return di > dj
		}
		return exits[i] > exits[j]
	})
	return exits
}

// getEntryStates returns the nodes entered below domain on the way to target,
// outermost first. Compound nodes off the target chain descend through their
// initial child; parallel nodes enter every region.
func (m *Machine[C]) getEntryStates(domain, target int) []int {
	chain := make(map[int]bool)
	for n := target; n != domain && n != noNode; n = m.nodes[n].parent {
		chain[n] = true
	}

	var entries []int
	var enterChildren func(n int)
	enter := func(n int) {
		entries = append(entries, n)
		enterChildren(n)
	}
	enterChildren = func(n int) {
		nd := &m.nodes[n]
		switch {
		case nd.isLeaf():
		case nd.typ == primitives.Parallel:
			for _, c := range nd.children {
				enter(c)
			}
		default:
			next := nd.initial
			for _, c := range nd.children {
				if chain[c] {
					next = c
					break
				}
			}
			enter(next)
		}
	}
	enterChildren(domain)
	return entries
}

// resolveInitialLeaves returns the leaves activated when entering n by default.
func (m *Machine[C]) resolveInitialLeaves(n int) []int {
	var leaves []int
	for _, e := range append([]int{n}, m.getEntryStates(n, n)...) {
		if m.nodes[e].isLeaf() {
			leaves = append(leaves, e)
		}
	}
	return leaves
}

// nextLeaves keeps active leaves outside domain and adds entered leaves,
// returned in document order.
func (m *Machine[C]) nextLeaves(leaves []int, domain int, entered []int) []int {
	next := make([]int, 0, len(leaves)+len(entered))
	for _, leaf := range leaves {
		if !m.isDescendant(leaf, domain) {
			next = append(next, leaf)
		}
	}
	for _, e := range entered {
		if m.nodes[e].isLeaf() {
			next = append(next, e)
		}
	}
	sort.Ints(next)
	return next
}

// selectDeclaring returns the deepest active node that declares event, and the
// active leaf it was reached from. Leaves are scanned in document order and
// ties keep the first node found, so a node in a later parallel region beats a
// shallower shared ancestor.
func (m *Machine[C]) selectDeclaring(leaves []int, event string) (owner, source int) {
	owner, source = noNode, noNode
	visited := make(map[int]bool)
	for _, leaf := range leaves {
		for n := leaf; n != noNode && !visited[n]; n = m.nodes[n].parent {
			visited[n] = true
			if _, ok := m.nodes[n].on[event]; !ok {
				continue
			}
			if owner == noNode || m.nodes[n].depth > m.nodes[owner].depth {
				owner, source = n, leaf
			}
			break
		}
	}
	return owner, source
}

// checkConfiguration reports ErrUnknownState unless leaves (sorted, distinct)
// is a legal active set: starting at the root, each active compound state
// has exactly one active child and each active parallel state has all of its
// regions active.
func (m *Machine[C]) checkConfiguration(leaves []int) error {
	for i := 1; i < len(leaves); i++ {
		if leaves[i] == leaves[i-1] {
			return fmt.Errorf("%w %q listed twice", ErrUnknownState, m.nodes[leaves[i]].path)
		}
	}
	active := m.activeNodes(leaves)
	var check func(n int) error
	check = func(n int) error {
		nd := &m.nodes[n]
		if nd.isLeaf() {
			return nil
		}
		var on []int
		for _, c := range nd.children {
			if active[c] {
				on = append(on, c)
			}
		}
		switch {
		case nd.typ == primitives.Parallel && len(on) != len(nd.children):
			return fmt.Errorf("%w: parallel state %q has %d of %d regions active", ErrUnknownState, statePath(nd.path), len(on), len(nd.children))
		case nd.typ != primitives.Parallel && len(on) != 1:
			return fmt.Errorf("%w: state %q has %d active children, want 1", ErrUnknownState, statePath(nd.path), len(on))
		}
		for _, c := range on {
			if err := check(c); err != nil {
				return err
			}
		}
		return nil
	}
	return check(0)
}

func statePath(path string) string {
	if path == "" {
		return "(root)"
	}
	return path
}
