package questionnaire

import "math"

// Presentation is a rendered questionnaire: the document tree plus, for every
// node, whether it is currently mounted and visible. It is built once per
// fill session by Render and kept current with Recompute.
type Presentation struct {
	tree    *Tree
	answers Answers
	mounted []bool
	visible []bool
}

// Entry is one mounted node of a Presentation in document order.
type Entry struct {
	Handle  Handle `json:"handle"`
	Item    Item   `json:"item"`
	Depth   int    `json:"depth"`
	Value   string `json:"value,omitempty"`
	Visible bool   `json:"visible"`
}

type Progress struct {
	Answered int `json:"answered"`
	Total    int `json:"total"`
	Percent  int `json:"percent"`
}

// Render lays out doc against answers. doc is not modified.
func Render(doc *Document, answers Answers) *Presentation {
	tree := NewTree(doc.Items)
	p := &Presentation{
		tree:    tree,
		mounted: make([]bool, tree.Len()),
		visible: make([]bool, tree.Len()),
	}
	p.Recompute(answers)
	return p
}

// Recompute re-evaluates every condition and yesno branch against answers,
// reusing the tree built by Render.
func (p *Presentation) Recompute(answers Answers) {
	p.answers = answers.Clone()
	for i := range p.mounted {
		p.mounted[i] = false
		p.visible[i] = false
	}
	p.mount(p.tree.Roots(), true)
}

func (p *Presentation) mount(handles []Handle, parentVisible bool) {
	for _, h := range handles {
		n := p.tree.Node(h)
		visible := parentVisible && Evaluate(CondOf(n.Item), p.answers)
		p.mounted[h] = true
		p.visible[h] = visible

		switch it := n.Item.(type) {
		case Block:
			p.mount(n.Items, visible)
		case YesNo:
			// Only an exact "yes" or "no" mounts a branch.
			switch p.answers[it.ID] {
			case "yes":
				p.mount(n.Yes, visible)
			case "no":
				p.mount(n.No, visible)
			}
		}
	}
}

func (p *Presentation) Tree() *Tree {
	return p.tree
}

func (p *Presentation) Mounted(h Handle) bool {
	return p.tree.Valid(h) && p.mounted[h]
}

// Visible reports whether h is mounted, its condition holds and all of its
// ancestors are visible.
func (p *Presentation) Visible(h Handle) bool {
	return p.tree.Valid(h) && p.visible[h]
}

// VisibleID reports whether the question with id is mounted and visible.
func (p *Presentation) VisibleID(id string) bool {
	visible := false
	p.tree.Walk(func(h Handle, n *Node, _ int) bool {
		if !p.mounted[h] {
			return false
		}
		if IDOf(n.Item) == id && p.visible[h] {
			visible = true
		}
		return !visible
	})
	return visible
}

// Entries lists the mounted nodes in document order.
func (p *Presentation) Entries() []Entry {
	var entries []Entry
	p.tree.Walk(func(h Handle, n *Node, depth int) bool {
		if !p.mounted[h] {
			return false
		}
		entries = append(entries, Entry{
			Handle:  h,
			Item:    n.Item,
			Depth:   depth,
			Value:   p.valueOf(n.Item),
			Visible: p.visible[h],
		})
		return true
	})
	return entries
}

func (p *Presentation) valueOf(it Item) string {
	id := IDOf(it)
	if id == "" {
		return ""
	}
	value, ok := p.answers[id]
	if !ok {
		if group, isGroup := it.(RadioGroup); isGroup {
			return group.DefaultChoice
		}
	}
	return value
}

// Progress counts the visible answerable questions and how many of them hold
// a non-empty answer.
func (p *Presentation) Progress() Progress {
	var progress Progress
	p.tree.Walk(func(h Handle, n *Node, _ int) bool {
		if !p.mounted[h] {
			return false
		}
		if !p.visible[h] || !IsAnswerable(n.Item) {
			return true
		}
		progress.Total++
		if p.answers[IDOf(n.Item)] != "" {
			progress.Answered++
		}
		return true
	})
	if progress.Total > 0 {
		progress.Percent = int(math.Round(100 * float64(progress.Answered) / float64(progress.Total)))
	}
	return progress
}
