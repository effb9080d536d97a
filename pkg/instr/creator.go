package instr

// ErrorLookup tells whether a node failed in the last evaluation.
type ErrorLookup interface {
	HasError(ref NodeRef) bool
}

type noErrors struct{}

func (noErrors) HasError(NodeRef) bool { return false }

// Creator turns a stream of proposed instructions, such as the steps of a
// drag, into one tree edit. Every proposal is merged with the focused
// instruction as it was when the gesture began: a match amends the focused
// node in place, anything else goes into a draft node next to it.
type Creator struct {
	tree   *Tree
	errors ErrorLookup

	active   bool
	focus    NodeID
	original Instruction
	amended  bool
	draft    NodeID
}

// NewCreator edits t. errs may be nil.
func NewCreator(t *Tree, errs ErrorLookup) *Creator {
	if errs == nil {
		errs = noErrors{}
	}
	return &Creator{tree: t, errors: errs, focus: NoNode, draft: NoNode}
}

// Begin starts a gesture. focus is the selected node: a single node is the
// merge candidate and new nodes go after it, a group receives new nodes as
// its last child. NoNode appends to the root. A gesture still in progress
// is cancelled.
func (c *Creator) Begin(focus NodeID) {
	if c.active {
		c.Cancel()
	}
	c.active = true
	c.focus = focus
	c.original, _ = c.tree.Instruction(focus)
	c.amended = false
	c.draft = NoNode
}

func (c *Creator) Active() bool { return c.active }

// Propose applies ins as the current state of the gesture and returns the
// node now holding it.
func (c *Creator) Propose(ins Instruction) (NodeID, bool) {
	if !c.active || ins == nil {
		return NoNode, false
	}
	if c.original != nil {
		force := c.errors.HasError(c.tree.Ref(c.focus))
		if merged, ok := c.original.MergeWith(ins, force); ok {
			c.dropDraft()
			c.tree.ReplaceWithInstruction(c.focus, merged)
			c.amended = true
			return c.focus, true
		}
		c.restore()
	}
	if c.draft != NoNode {
		c.tree.ReplaceWithInstruction(c.draft, ins)
		return c.draft, true
	}
	draft := c.tree.NewNode(ins)
	if !c.place(draft) {
		return NoNode, false
	}
	c.draft = draft
	return draft, true
}

func (c *Creator) place(draft NodeID) bool {
	switch {
	case c.focus == NoNode || !c.tree.valid(c.focus):
		return c.tree.AppendChild(c.tree.Root(), draft)
	case c.tree.nodes[c.focus].kind == kindGroup:
		return c.tree.AppendChild(c.focus, draft)
	default:
		return c.tree.AppendSibling(c.focus, draft)
	}
}

func (c *Creator) dropDraft() {
	if c.draft != NoNode {
		c.tree.RemoveFromParent(c.draft)
		c.draft = NoNode
	}
}

func (c *Creator) restore() {
	if c.amended {
		c.tree.ReplaceWithInstruction(c.focus, c.original)
		c.amended = false
	}
}

// Commit ends the gesture. A draft that does nothing is discarded and an
// amended node that no longer does anything is removed. It returns the
// node holding the edit, if one remains.
func (c *Creator) Commit() (NodeID, bool) {
	if !c.active {
		return NoNode, false
	}
	defer c.reset()
	switch {
	case c.draft != NoNode:
		if c.tree.IsDegenerated(c.draft) {
			c.dropDraft()
			return NoNode, false
		}
		return c.draft, true
	case c.amended:
		if c.tree.IsDegenerated(c.focus) {
			c.tree.RemoveFromParent(c.focus)
			return NoNode, false
		}
		return c.focus, true
	}
	return NoNode, false
}

// Cancel ends the gesture and undoes everything it changed.
func (c *Creator) Cancel() {
	if !c.active {
		return
	}
	c.dropDraft()
	c.restore()
	c.reset()
}

func (c *Creator) reset() {
	c.active = false
	c.focus = NoNode
	c.original = nil
	c.amended = false
	c.draft = NoNode
}
