package questionnaire

import (
	"encoding/json"
)

const (
	TypeBlock      = "block"
	TypeInfo       = "info"
	TypeTip        = "tip"
	TypeSpacer     = "spacer"
	TypeLine       = "line"
	TypeBox        = "box"
	TypeCheck      = "check"
	TypeYesNo      = "yesno"
	TypeRadio      = "radio"
	TypeRadioGroup = "radiogroup"
	TypeCheckGroup = "checkgroup"
)

// Item is one node of a questionnaire. The set of implementations is closed:
// every switch over items in this package lists all of them.
type Item interface {
	Type() string
	isItem()
}

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
)

type Block struct {
	Text  string    `json:"text,omitempty"`
	Cond  Condition `json:"cond,omitempty"`
	Items []Item    `json:"items,omitempty"`
}

type Info struct {
	Text string `json:"text,omitempty"`
}

type Tip struct {
	ID       string   `json:"id,omitempty"`
	Text     string   `json:"text,omitempty"`
	Severity Severity `json:"severity,omitempty"`
	Why      string   `json:"why,omitempty"`
	Name     string   `json:"name,omitempty"`
	Warn     bool     `json:"warn,omitempty"`
}

type Spacer struct{}

type Line struct {
	ID          string    `json:"id,omitempty"`
	Text        string    `json:"text,omitempty"`
	Required    bool      `json:"required,omitempty"`
	Placeholder string    `json:"placeholder,omitempty"`
	Cond        Condition `json:"cond,omitempty"`
}

type Box struct {
	ID          string    `json:"id,omitempty"`
	Text        string    `json:"text,omitempty"`
	Required    bool      `json:"required,omitempty"`
	Placeholder string    `json:"placeholder,omitempty"`
	Cond        Condition `json:"cond,omitempty"`
}

// Check stores "yes" when ticked and "no" when cleared.
type Check struct {
	ID       string    `json:"id,omitempty"`
	Text     string    `json:"text,omitempty"`
	Required bool      `json:"required,omitempty"`
	Cond     Condition `json:"cond,omitempty"`
}

// YesNo mounts Yes when answered exactly "yes" and No when answered exactly "no".
type YesNo struct {
	ID       string    `json:"id,omitempty"`
	Text     string    `json:"text,omitempty"`
	Required bool      `json:"required,omitempty"`
	Cond     Condition `json:"cond,omitempty"`
	Yes      []Item    `json:"yes,omitempty"`
	No       []Item    `json:"no,omitempty"`
}

type Choice struct {
	Value string `json:"value"`
	Text  string `json:"text,omitempty"`
}

type Radio struct {
	ID      string    `json:"id,omitempty"`
	Text    string    `json:"text,omitempty"`
	Choices []Choice  `json:"choices,omitempty"`
	Cond    Condition `json:"cond,omitempty"`
}

// GroupChoice is serialized as a single-key object {id: label}.
type GroupChoice struct {
	ID    string
	Label string
}

func (c GroupChoice) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{c.ID: c.Label})
}

// RadioGroup stores the id of the selected choice under the group id.
type RadioGroup struct {
	ID            string        `json:"id,omitempty"`
	Text          string        `json:"text,omitempty"`
	Required      bool          `json:"required,omitempty"`
	Choices       []GroupChoice `json:"choices,omitempty"`
	DefaultChoice string        `json:"defaultChoice,omitempty"`
	Cond          Condition     `json:"cond,omitempty"`
}

// CheckGroup stores one "yes"/"no" answer per choice id.
type CheckGroup struct {
	ID            string        `json:"id,omitempty"`
	Text          string        `json:"text,omitempty"`
	Required      bool          `json:"required,omitempty"`
	Choices       []GroupChoice `json:"choices,omitempty"`
	DefaultChoice string        `json:"defaultChoice,omitempty"`
	Cond          Condition     `json:"cond,omitempty"`
}

// Unknown keeps items of an unrecognised type verbatim. They are never rendered.
type Unknown struct {
	Kind string
	Raw  json.RawMessage
}

func (Block) Type() string      { return TypeBlock }
func (Info) Type() string       { return TypeInfo }
func (Tip) Type() string        { return TypeTip }
func (Spacer) Type() string     { return TypeSpacer }
func (Line) Type() string       { return TypeLine }
func (Box) Type() string        { return TypeBox }
func (Check) Type() string      { return TypeCheck }
func (YesNo) Type() string      { return TypeYesNo }
func (Radio) Type() string      { return TypeRadio }
func (RadioGroup) Type() string { return TypeRadioGroup }
func (CheckGroup) Type() string { return TypeCheckGroup }
func (u Unknown) Type() string  { return u.Kind }

func (Block) isItem()      {}
func (Info) isItem()       {}
func (Tip) isItem()        {}
func (Spacer) isItem()     {}
func (Line) isItem()       {}
func (Box) isItem()        {}
func (Check) isItem()      {}
func (YesNo) isItem()      {}
func (Radio) isItem()      {}
func (RadioGroup) isItem() {}
func (CheckGroup) isItem() {}
func (Unknown) isItem()    {}

// IDOf returns the answer key of it, or "" for items that never hold an answer.
func IDOf(it Item) string {
	switch it := it.(type) {
	case Tip:
		return it.ID
	case Line:
		return it.ID
	case Box:
		return it.ID
	case Check:
		return it.ID
	case YesNo:
		return it.ID
	case Radio:
		return it.ID
	case RadioGroup:
		return it.ID
	case CheckGroup:
		return it.ID
	case Block, Info, Spacer, Unknown:
		return ""
	}
	return ""
}

func TextOf(it Item) string {
	switch it := it.(type) {
	case Block:
		return it.Text
	case Info:
		return it.Text
	case Tip:
		return it.Text
	case Line:
		return it.Text
	case Box:
		return it.Text
	case Check:
		return it.Text
	case YesNo:
		return it.Text
	case Radio:
		return it.Text
	case RadioGroup:
		return it.Text
	case CheckGroup:
		return it.Text
	case Spacer, Unknown:
		return ""
	}
	return ""
}

// CondOf returns the visibility condition of it; nil means always visible.
func CondOf(it Item) Condition {
	switch it := it.(type) {
	case Block:
		return it.Cond
	case Line:
		return it.Cond
	case Box:
		return it.Cond
	case Check:
		return it.Cond
	case YesNo:
		return it.Cond
	case Radio:
		return it.Cond
	case RadioGroup:
		return it.Cond
	case CheckGroup:
		return it.Cond
	case Info, Tip, Spacer, Unknown:
		return nil
	}
	return nil
}

// IsAnswerable reports whether it counts towards progress.
func IsAnswerable(it Item) bool {
	switch it.(type) {
	case Line, Box, Check, YesNo, Radio:
		return true
	case Block, Info, Tip, Spacer, RadioGroup, CheckGroup, Unknown:
		return false
	}
	return false
}

func (b Block) MarshalJSON() ([]byte, error) {
	type wire Block
	return json.Marshal(struct {
		Type string `json:"type"`
		wire
	}{TypeBlock, wire(b)})
}

func (i Info) MarshalJSON() ([]byte, error) {
	type wire Info
	return json.Marshal(struct {
		Type string `json:"type"`
		wire
	}{TypeInfo, wire(i)})
}

func (t Tip) MarshalJSON() ([]byte, error) {
	type wire Tip
	return json.Marshal(struct {
		Type string `json:"type"`
		wire
	}{TypeTip, wire(t)})
}

func (Spacer) MarshalJSON() ([]byte, error) {
	return []byte(`{"type":"spacer"}`), nil
}

func (l Line) MarshalJSON() ([]byte, error) {
	type wire Line
	return json.Marshal(struct {
		Type string `json:"type"`
		wire
	}{TypeLine, wire(l)})
}

func (b Box) MarshalJSON() ([]byte, error) {
	type wire Box
	return json.Marshal(struct {
		Type string `json:"type"`
		wire
	}{TypeBox, wire(b)})
}

func (c Check) MarshalJSON() ([]byte, error) {
	type wire Check
	return json.Marshal(struct {
		Type string `json:"type"`
		wire
	}{TypeCheck, wire(c)})
}

func (y YesNo) MarshalJSON() ([]byte, error) {
	type wire YesNo
	return json.Marshal(struct {
		Type string `json:"type"`
		wire
	}{TypeYesNo, wire(y)})
}

func (r Radio) MarshalJSON() ([]byte, error) {
	type wire Radio
	return json.Marshal(struct {
		Type string `json:"type"`
		wire
	}{TypeRadio, wire(r)})
}

func (g RadioGroup) MarshalJSON() ([]byte, error) {
	type wire RadioGroup
	return json.Marshal(struct {
		Type string `json:"type"`
		wire
	}{TypeRadioGroup, wire(g)})
}

func (g CheckGroup) MarshalJSON() ([]byte, error) {
	type wire CheckGroup
	return json.Marshal(struct {
		Type string `json:"type"`
		wire
	}{TypeCheckGroup, wire(g)})
}

func (u Unknown) MarshalJSON() ([]byte, error) {
	if len(u.Raw) == 0 {
		return json.Marshal(map[string]string{"type": u.Kind})
	}
	return u.Raw, nil
}
