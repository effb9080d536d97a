package instr

import (
	"slices"
	"strconv"

	"reform/pkg/form"
	"reform/pkg/vm"
)

// DefaultMaxDepth is the deepest a group may sit below the root.
const DefaultMaxDepth = 2

// NodeID addresses a node inside its Tree. Ids are never reused.
type NodeID int

// NoNode is the parent of the root and of detached nodes.
const NoNode NodeID = -1

type nodeKind int

const (
	kindEmpty nodeKind = iota
	kindSingle
	kindGroup
)

type node struct {
	kind        nodeKind
	instruction Instruction
	group       GroupInstruction
	children    []NodeID
	parent      NodeID
	depth       int
}

// Tree is an arena of instruction nodes. Node 0 is the root, a Sequence
// group. Nodes created with NewNode or NewGroupNode start detached and join
// the tree through AppendChild, AppendSibling, PrependSibling or
// ReplaceWithNode.
//
// Structural edits report false and change nothing when the target is not
// of the right shape.
type Tree struct {
	nodes []node
	// MaxDepth bounds the depth of group nodes. The root is at depth 0.
	MaxDepth int
}

// NewTree returns a tree holding only its root.
func NewTree() *Tree {
	t := &Tree{MaxDepth: DefaultMaxDepth}
	t.nodes = append(t.nodes, node{kind: kindGroup, group: Sequence{}, parent: NoNode})
	return t
}

func (t *Tree) Root() NodeID { return 0 }

func (t *Tree) valid(id NodeID) bool { return id >= 0 && int(id) < len(t.nodes) }

func (t *Tree) add(n node) NodeID {
	n.parent = NoNode
	t.nodes = append(t.nodes, n)
	return NodeID(len(t.nodes) - 1)
}

// NewEmptyNode allocates a detached node without content.
func (t *Tree) NewEmptyNode() NodeID { return t.add(node{}) }

// NewNode allocates a detached node holding ins.
func (t *Tree) NewNode(ins Instruction) NodeID {
	return t.add(node{kind: kindSingle, instruction: ins})
}

// NewGroupNode allocates a detached group node with the given children,
// which must themselves be detached.
func (t *Tree) NewGroupNode(g GroupInstruction, children ...NodeID) NodeID {
	id := t.add(node{kind: kindGroup, group: g})
	for _, c := range children {
		t.AppendChild(id, c)
	}
	return id
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

func (t *Tree) Parent(id NodeID) NodeID {
	if !t.valid(id) {
		return NoNode
	}
	return t.nodes[id].parent
}

func (t *Tree) Depth(id NodeID) int {
	if !t.valid(id) {
		return 0
	}
	return t.nodes[id].depth
}

func (t *Tree) Children(id NodeID) []NodeID {
	if !t.valid(id) {
		return nil
	}
	return slices.Clone(t.nodes[id].children)
}

// Instruction returns the payload of a single node.
func (t *Tree) Instruction(id NodeID) (Instruction, bool) {
	if !t.valid(id) || t.nodes[id].kind != kindSingle {
		return nil, false
	}
	return t.nodes[id].instruction, true
}

// Group returns the payload of a group node.
func (t *Tree) Group(id NodeID) (GroupInstruction, bool) {
	if !t.valid(id) || t.nodes[id].kind != kindGroup {
		return nil, false
	}
	return t.nodes[id].group, true
}

func (t *Tree) IsEmpty(id NodeID) bool { return !t.valid(id) || t.nodes[id].kind == kindEmpty }

// Target is the form a single node acts on, or 0.
func (t *Tree) Target(id NodeID) form.ID {
	if ins, ok := t.Instruction(id); ok {
		return ins.Target()
	}
	return 0
}

// IsDegenerated reports whether evaluating id can have no effect: an empty
// node, a group without children or with a degenerate payload, or a single
// node whose instruction is degenerate.
func (t *Tree) IsDegenerated(id NodeID) bool {
	if !t.valid(id) {
		return true
	}
	n := t.nodes[id]
	switch n.kind {
	case kindSingle:
		return n.instruction.IsDegenerated()
	case kindGroup:
		return len(n.children) == 0 || n.group.IsDegenerated()
	}
	return true
}

// Attached reports whether id is reachable from the root.
func (t *Tree) Attached(id NodeID) bool {
	for t.valid(id) {
		if id == t.Root() {
			return true
		}
		id = t.nodes[id].parent
	}
	return false
}

// Walk visits id and its descendants depth first, parents before children.
// Returning false from fn skips the children of that node.
func (t *Tree) Walk(id NodeID, fn func(id NodeID) bool) {
	if !t.valid(id) || !fn(id) {
		return
	}
	for _, c := range t.nodes[id].children {
		t.Walk(c, fn)
	}
}

// Len is the number of nodes attached to the root, the root included.
func (t *Tree) Len() int {
	n := 0
	t.Walk(t.Root(), func(NodeID) bool { n++; return true })
	return n
}

// ---------------------------------------------------------------------------
// Structural edits
// ---------------------------------------------------------------------------

func (t *Tree) detached(id NodeID) bool {
	return t.valid(id) && id != t.Root() && t.nodes[id].parent == NoNode
}

// groupDepth is the depth of the deepest group in the subtree of id, or -1.
func (t *Tree) groupDepth(id NodeID) int {
	deepest := -1
	t.Walk(id, func(n NodeID) bool {
		if t.nodes[n].kind == kindGroup {
			deepest = max(deepest, t.nodes[n].depth)
		}
		return true
	})
	return deepest
}

// fits reports whether the subtree of child, placed at depth, keeps every
// group within MaxDepth.
func (t *Tree) fits(child NodeID, depth int) bool {
	g := t.groupDepth(child)
	return g < 0 || g-t.nodes[child].depth+depth <= t.MaxDepth
}

func (t *Tree) setDepth(id NodeID, depth int) {
	t.nodes[id].depth = depth
	for _, c := range t.nodes[id].children {
		t.setDepth(c, depth+1)
	}
}

func (t *Tree) attach(parent NodeID, at int, child NodeID) {
	p := &t.nodes[parent]
	p.children = slices.Insert(p.children, at, child)
	t.nodes[child].parent = parent
	t.setDepth(child, p.depth+1)
}

func (t *Tree) indexInParent(id NodeID) int {
	p := t.nodes[id].parent
	if p == NoNode {
		return -1
	}
	return slices.Index(t.nodes[p].children, id)
}

// AppendChild adds the detached node child as the last child of the group
// node parent.
func (t *Tree) AppendChild(parent, child NodeID) bool {
	if !t.valid(parent) || t.nodes[parent].kind != kindGroup || !t.detached(child) || parent == child {
		return false
	}
	if t.isAncestor(child, parent) || !t.fits(child, t.nodes[parent].depth+1) {
		return false
	}
	t.attach(parent, len(t.nodes[parent].children), child)
	return true
}

// AppendSibling inserts the detached node sib right after id.
func (t *Tree) AppendSibling(id, sib NodeID) bool { return t.insertSibling(id, sib, 1) }

// PrependSibling inserts the detached node sib right before id.
func (t *Tree) PrependSibling(id, sib NodeID) bool { return t.insertSibling(id, sib, 0) }

func (t *Tree) insertSibling(id, sib NodeID, offset int) bool {
	if !t.valid(id) || !t.detached(sib) || id == sib || t.isAncestor(sib, id) {
		return false
	}
	parent := t.nodes[id].parent
	if parent == NoNode || !t.fits(sib, t.nodes[id].depth) {
		return false
	}
	t.attach(parent, t.indexInParent(id)+offset, sib)
	return true
}

// isAncestor reports whether a is an ancestor of b.
func (t *Tree) isAncestor(a, b NodeID) bool {
	for p := t.nodes[b].parent; p != NoNode; p = t.nodes[p].parent {
		if p == a {
			return true
		}
	}
	return false
}

// RemoveFromParent detaches id with its subtree. The root cannot be removed.
func (t *Tree) RemoveFromParent(id NodeID) bool {
	if !t.valid(id) || t.nodes[id].parent == NoNode {
		return false
	}
	p := &t.nodes[t.nodes[id].parent]
	p.children = slices.DeleteFunc(p.children, func(c NodeID) bool { return c == id })
	t.nodes[id].parent = NoNode
	t.setDepth(id, 0)
	return true
}

// ReplaceWithInstruction turns id into a single node holding ins. Its
// children are detached. The root stays a group.
func (t *Tree) ReplaceWithInstruction(id NodeID, ins Instruction) bool {
	if !t.valid(id) || id == t.Root() || ins == nil {
		return false
	}
	t.dropChildren(id)
	n := &t.nodes[id]
	n.kind, n.instruction, n.group = kindSingle, ins, nil
	return true
}

// ReplaceWithGroup turns id into a group node. A node that already was a
// group keeps its children, any other node gets one empty child.
func (t *Tree) ReplaceWithGroup(id NodeID, g GroupInstruction) bool {
	if !t.valid(id) || g == nil {
		return false
	}
	n := &t.nodes[id]
	if n.kind == kindGroup {
		n.group = g
		return true
	}
	if n.depth > t.MaxDepth {
		return false
	}
	n.kind, n.instruction, n.group = kindGroup, nil, g
	t.attach(id, 0, t.NewEmptyNode())
	return true
}

// ReplaceWithNode moves the content and children of the detached node other
// into id. other is left empty.
func (t *Tree) ReplaceWithNode(id, other NodeID) bool {
	if !t.valid(id) || !t.detached(other) || id == other || t.isAncestor(other, id) {
		return false
	}
	if id == t.Root() && t.nodes[other].kind != kindGroup {
		return false
	}
	if t.nodes[other].kind == kindGroup && !t.fits(other, t.nodes[id].depth) {
		return false
	}
	t.dropChildren(id)
	src := t.nodes[other]
	n := &t.nodes[id]
	n.kind, n.instruction, n.group = src.kind, src.instruction, src.group
	t.nodes[other] = node{parent: NoNode}
	for i, c := range src.children {
		t.nodes[c].parent = NoNode
		t.attach(id, i, c)
	}
	return true
}

func (t *Tree) dropChildren(id NodeID) {
	for _, c := range t.nodes[id].children {
		t.nodes[c].parent = NoNode
		t.setDepth(c, 0)
	}
	t.nodes[id].children = nil
}

// WrapIn puts id inside a new group node that takes its place. It refuses
// empty nodes, the root and wraps that would push a group past MaxDepth.
// It returns the new group node.
func (t *Tree) WrapIn(id NodeID, g GroupInstruction) (NodeID, bool) {
	if !t.valid(id) || g == nil || t.nodes[id].kind == kindEmpty || t.nodes[id].parent == NoNode {
		return NoNode, false
	}
	depth := t.nodes[id].depth
	if depth > t.MaxDepth || !t.fits(id, depth+1) {
		return NoNode, false
	}
	parent, at := t.nodes[id].parent, t.indexInParent(id)
	p := &t.nodes[parent]
	p.children = slices.Delete(p.children, at, at+1)
	t.nodes[id].parent = NoNode

	w := t.add(node{kind: kindGroup, group: g})
	t.attach(parent, at, w)
	t.attach(w, 0, id)
	return w, true
}

// Unwrap splices the children of the group node id into its place and
// detaches id.
func (t *Tree) Unwrap(id NodeID) bool {
	if !t.valid(id) || t.nodes[id].kind != kindGroup || t.nodes[id].parent == NoNode {
		return false
	}
	parent, at := t.nodes[id].parent, t.indexInParent(id)
	children := t.nodes[id].children
	t.nodes[id].children = nil
	p := &t.nodes[parent]
	p.children = slices.Delete(p.children, at, at+1)
	t.nodes[id].parent = NoNode
	t.setDepth(id, 0)
	for i, c := range children {
		t.attach(parent, at+i, c)
	}
	return true
}

// ---------------------------------------------------------------------------
// Evaluation
// ---------------------------------------------------------------------------

// NodeRef is a comparable handle on a node that the runtime can evaluate
// and listeners can key errors by.
type NodeRef struct {
	tree *Tree
	id   NodeID
}

func (t *Tree) Ref(id NodeID) NodeRef { return NodeRef{tree: t, id: id} }

func (r NodeRef) ID() NodeID     { return r.id }
func (r NodeRef) Tree() *Tree    { return r.tree }
func (r NodeRef) IsZero() bool   { return r.tree == nil }
func (r NodeRef) Valid() bool    { return r.tree != nil && r.tree.valid(r.id) }
func (r NodeRef) String() string { return "node " + strconv.Itoa(int(r.id)) }

// Evaluate runs the node. Children of a group run in order until the
// runtime asks to stop.
func (r NodeRef) Evaluate(rt *vm.Runtime) {
	if !r.Valid() {
		return
	}
	n := r.tree.nodes[r.id]
	switch n.kind {
	case kindSingle:
		rt.Eval(r, func() { n.instruction.Evaluate(rt) })
	case kindGroup:
		rt.Eval(r, func() {
			n.group.Evaluate(rt, func() {
				for _, c := range r.tree.nodes[r.id].children {
					if rt.ShouldStop() {
						return
					}
					r.tree.Ref(c).Evaluate(rt)
				}
			})
		})
	}
}

// Evaluate runs the whole tree on rt.
func (t *Tree) Evaluate(rt *vm.Runtime) { t.Ref(t.Root()).Evaluate(rt) }
