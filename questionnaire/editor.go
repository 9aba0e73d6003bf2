package questionnaire

import (
	"errors"
)

var (
	ErrNoSuchItem = errors.New("no such item")
	ErrBadSlot    = errors.New("item cannot hold children in that slot")
	ErrOutOfRange = errors.New("position out of range")
)

// Editor is one authoring session over a template. All state lives in the
// Editor value; callers keep one per open editor.
type Editor struct {
	version  int
	tree     *Tree
	selected Handle
}

func NewEditor(doc *Document) *Editor {
	return &Editor{
		version:  doc.Version,
		tree:     NewTree(doc.Items),
		selected: NoHandle,
	}
}

func (e *Editor) Tree() *Tree {
	return e.tree
}

func (e *Editor) Select(h Handle) error {
	if !e.tree.Valid(h) {
		return ErrNoSuchItem
	}
	e.selected = h
	return nil
}

// Selected returns the item being edited, or NoHandle.
func (e *Editor) Selected() Handle {
	if !e.tree.Valid(e.selected) {
		return NoHandle
	}
	return e.selected
}

// Insert adds it at index of the parent's slot. Use NoHandle with SlotRoot for
// top-level items; index -1 appends.
func (e *Editor) Insert(parent Handle, slot Slot, index int, it Item) (Handle, error) {
	list := e.tree.children(parent, slot)
	if list == nil {
		if parent != NoHandle && !e.tree.Valid(parent) {
			return NoHandle, ErrNoSuchItem
		}
		return NoHandle, ErrBadSlot
	}
	if index < 0 {
		index = len(*list)
	}
	if index > len(*list) {
		return NoHandle, ErrOutOfRange
	}

	h := e.tree.addOne(it, parent, slot)
	// addOne may grow the arena, so the slice header must be looked up again.
	list = e.tree.children(parent, slot)
	*list = append(*list, NoHandle)
	copy((*list)[index+1:], (*list)[index:])
	(*list)[index] = h
	return h, nil
}

// Remove deletes h and everything below it.
func (e *Editor) Remove(h Handle) error {
	n := e.tree.Node(h)
	if n == nil {
		return ErrNoSuchItem
	}
	list := e.tree.children(n.Parent, n.Slot)
	for i, sibling := range *list {
		if sibling == h {
			*list = append((*list)[:i], (*list)[i+1:]...)
			break
		}
	}
	e.tree.markRemoved(h)
	return nil
}

// Replace swaps the attributes of h for those of it. Children already in the
// tree are kept when it can still hold them; child lists carried by it itself
// are ignored.
func (e *Editor) Replace(h Handle, it Item) error {
	n := e.tree.Node(h)
	if n == nil {
		return ErrNoSuchItem
	}

	switch it := it.(type) {
	case Block:
		e.drop(&n.Yes)
		e.drop(&n.No)
		it.Items = nil
		n.Item = it
	case YesNo:
		e.drop(&n.Items)
		it.Yes, it.No = nil, nil
		n.Item = it
	default:
		e.drop(&n.Items)
		e.drop(&n.Yes)
		e.drop(&n.No)
		n.Item = it
	}
	return nil
}

func (e *Editor) drop(list *[]Handle) {
	for _, h := range *list {
		e.tree.markRemoved(h)
	}
	*list = nil
}

// Move shifts h by delta positions among its siblings.
func (e *Editor) Move(h Handle, delta int) error {
	n := e.tree.Node(h)
	if n == nil {
		return ErrNoSuchItem
	}
	list := *e.tree.children(n.Parent, n.Slot)
	from := -1
	for i, sibling := range list {
		if sibling == h {
			from = i
			break
		}
	}
	to := from + delta
	if from < 0 || to < 0 || to >= len(list) {
		return ErrOutOfRange
	}
	if from < to {
		copy(list[from:to], list[from+1:to+1])
	} else {
		copy(list[to+1:from+1], list[to:from])
	}
	list[to] = h
	return nil
}

// Document returns the edited questionnaire as a fresh value.
func (e *Editor) Document() *Document {
	return &Document{Version: e.version, Items: e.tree.Items()}
}

func (e *Editor) Validate() ValidationErrors {
	return Validate(e.Document())
}
