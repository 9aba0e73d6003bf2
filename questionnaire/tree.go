package questionnaire

// Handle addresses a node of a Tree. Handles are stable for the lifetime of
// the tree: removing a node never renumbers the others.
type Handle int

const NoHandle Handle = -1

// Slot names the child list of a node.
type Slot int

const (
	SlotRoot Slot = iota
	SlotItems
	SlotYes
	SlotNo
)

func (s Slot) String() string {
	switch s {
	case SlotRoot:
		return "root"
	case SlotItems:
		return "items"
	case SlotYes:
		return "yes"
	case SlotNo:
		return "no"
	}
	return "unknown"
}

// Node is one arena entry. Item holds the node's own attributes; its child
// lists live in Items, Yes and No as handles.
type Node struct {
	Item   Item
	Parent Handle
	Slot   Slot
	Items  []Handle
	Yes    []Handle
	No     []Handle

	removed bool
}

// Tree is an arena-indexed questionnaire.
type Tree struct {
	nodes []Node
	roots []Handle
}

func NewTree(items []Item) *Tree {
	t := &Tree{}
	t.roots = t.add(items, NoHandle, SlotRoot)
	return t
}

func (t *Tree) add(items []Item, parent Handle, slot Slot) []Handle {
	if len(items) == 0 {
		return nil
	}
	handles := make([]Handle, 0, len(items))
	for _, it := range items {
		handles = append(handles, t.addOne(it, parent, slot))
	}
	return handles
}

func (t *Tree) addOne(it Item, parent Handle, slot Slot) Handle {
	h := Handle(len(t.nodes))
	t.nodes = append(t.nodes, Node{Item: it, Parent: parent, Slot: slot})

	switch it := it.(type) {
	case Block:
		children := t.add(it.Items, h, SlotItems)
		t.nodes[h].Items = children
	case YesNo:
		yes := t.add(it.Yes, h, SlotYes)
		no := t.add(it.No, h, SlotNo)
		t.nodes[h].Yes = yes
		t.nodes[h].No = no
	}
	return h
}

// Len returns the arena size, including removed nodes.
func (t *Tree) Len() int {
	return len(t.nodes)
}

func (t *Tree) Roots() []Handle {
	return t.roots
}

func (t *Tree) Node(h Handle) *Node {
	if !t.Valid(h) {
		return nil
	}
	return &t.nodes[h]
}

func (t *Tree) Valid(h Handle) bool {
	return h >= 0 && int(h) < len(t.nodes) && !t.nodes[h].removed
}

// Find returns the first node in document order carrying id.
func (t *Tree) Find(id string) (Handle, bool) {
	found := NoHandle
	t.Walk(func(h Handle, n *Node, depth int) bool {
		if found == NoHandle && id != "" && IDOf(n.Item) == id {
			found = h
		}
		return found == NoHandle
	})
	return found, found != NoHandle
}

// Walk visits every live node in document order: each node, then its block
// items, then its yes branch, then its no branch. Returning false from fn
// skips the node's children.
func (t *Tree) Walk(fn func(h Handle, n *Node, depth int) bool) {
	t.walk(t.roots, 0, fn)
}

func (t *Tree) walk(handles []Handle, depth int, fn func(Handle, *Node, int) bool) {
	for _, h := range handles {
		n := &t.nodes[h]
		if n.removed {
			continue
		}
		if !fn(h, n, depth) {
			continue
		}
		t.walk(n.Items, depth+1, fn)
		t.walk(n.Yes, depth+1, fn)
		t.walk(n.No, depth+1, fn)
	}
}

// Items rebuilds the nested item list from the arena.
func (t *Tree) Items() []Item {
	return t.materialize(t.roots)
}

func (t *Tree) materialize(handles []Handle) []Item {
	var items []Item
	for _, h := range handles {
		n := &t.nodes[h]
		if n.removed {
			continue
		}
		switch it := n.Item.(type) {
		case Block:
			it.Items = t.materialize(n.Items)
			items = append(items, it)
		case YesNo:
			it.Yes = t.materialize(n.Yes)
			it.No = t.materialize(n.No)
			items = append(items, it)
		default:
			items = append(items, it)
		}
	}
	return items
}

func (t *Tree) children(h Handle, slot Slot) *[]Handle {
	if slot == SlotRoot {
		if h != NoHandle {
			return nil
		}
		return &t.roots
	}
	n := t.Node(h)
	if n == nil {
		return nil
	}
	switch n.Item.(type) {
	case Block:
		if slot == SlotItems {
			return &n.Items
		}
	case YesNo:
		switch slot {
		case SlotYes:
			return &n.Yes
		case SlotNo:
			return &n.No
		}
	}
	return nil
}

func (t *Tree) markRemoved(h Handle) {
	n := &t.nodes[h]
	n.removed = true
	for _, list := range [][]Handle{n.Items, n.Yes, n.No} {
		for _, child := range list {
			t.markRemoved(child)
		}
	}
}
