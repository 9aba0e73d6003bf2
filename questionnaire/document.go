package questionnaire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedDocument is returned by Parse when the template cannot be read
// as a questionnaire at all.
var ErrMalformedDocument = errors.New("malformed questionnaire document")

// Document is the root of a questionnaire template.
type Document struct {
	Version int
	Items   []Item
}

// Parse reads a template document. Both the "items" key and the legacy
// "questionnaire" key are accepted for the top-level item list.
func Parse(raw []byte) (*Document, error) {
	var top struct {
		Version       int             `json:"version"`
		Items         json.RawMessage `json:"items"`
		Questionnaire json.RawMessage `json:"questionnaire"`
	}
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}

	list := top.Items
	if isAbsent(list) {
		list = top.Questionnaire
	}
	if isAbsent(list) {
		return nil, fmt.Errorf("%w: missing items", ErrMalformedDocument)
	}

	items, err := decodeItems(list)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	return &Document{Version: top.Version, Items: items}, nil
}

// ParseItem reads a single item, with its children, as it appears inside a
// document.
func ParseItem(raw []byte) (Item, error) {
	it, err := decodeItem(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	return it, nil
}

func (d *Document) UnmarshalJSON(raw []byte) error {
	parsed, err := Parse(raw)
	if err != nil {
		return err
	}
	*d = *parsed
	return nil
}

func (d Document) MarshalJSON() ([]byte, error) {
	items := d.Items
	if items == nil {
		items = []Item{}
	}
	return json.Marshal(struct {
		Version int    `json:"version"`
		Items   []Item `json:"items"`
	}{d.Version, items})
}

// rawItem is the union of every attribute any item type may carry.
type rawItem struct {
	Type          string          `json:"type"`
	ID            string          `json:"id"`
	Text          string          `json:"text"`
	Cond          json.RawMessage `json:"cond"`
	Required      bool            `json:"required"`
	Placeholder   string          `json:"placeholder"`
	Severity      Severity        `json:"severity"`
	Why           string          `json:"why"`
	Name          string          `json:"name"`
	Warn          bool            `json:"warn"`
	Items         json.RawMessage `json:"items"`
	Yes           json.RawMessage `json:"yes"`
	No            json.RawMessage `json:"no"`
	Choices       json.RawMessage `json:"choices"`
	DefaultChoice string          `json:"defaultChoice"`
}

func decodeItems(raw json.RawMessage) ([]Item, error) {
	if isAbsent(raw) {
		return nil, nil
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	items := make([]Item, 0, len(list))
	for i, elem := range list {
		it, err := decodeItem(elem)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		items = append(items, it)
	}
	return items, nil
}

func decodeItem(raw json.RawMessage) (Item, error) {
	var r rawItem
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, err
	}

	cond, err := decodeCondition(r.Cond)
	if err != nil {
		return nil, fmt.Errorf("cond: %w", err)
	}

	switch r.Type {
	case TypeBlock:
		items, err := decodeItems(r.Items)
		if err != nil {
			return nil, err
		}
		return Block{Text: r.Text, Cond: cond, Items: items}, nil
	case TypeInfo:
		return Info{Text: r.Text}, nil
	case TypeTip:
		return Tip{ID: r.ID, Text: r.Text, Severity: r.Severity, Why: r.Why, Name: r.Name, Warn: r.Warn}, nil
	case TypeSpacer:
		return Spacer{}, nil
	case TypeLine:
		return Line{ID: r.ID, Text: r.Text, Required: r.Required, Placeholder: r.Placeholder, Cond: cond}, nil
	case TypeBox:
		return Box{ID: r.ID, Text: r.Text, Required: r.Required, Placeholder: r.Placeholder, Cond: cond}, nil
	case TypeCheck:
		return Check{ID: r.ID, Text: r.Text, Required: r.Required, Cond: cond}, nil
	case TypeYesNo:
		yes, err := decodeItems(r.Yes)
		if err != nil {
			return nil, fmt.Errorf("yes: %w", err)
		}
		no, err := decodeItems(r.No)
		if err != nil {
			return nil, fmt.Errorf("no: %w", err)
		}
		return YesNo{ID: r.ID, Text: r.Text, Required: r.Required, Cond: cond, Yes: yes, No: no}, nil
	case TypeRadio:
		var choices []Choice
		if !isAbsent(r.Choices) {
			if err := json.Unmarshal(r.Choices, &choices); err != nil {
				return nil, fmt.Errorf("choices: %w", err)
			}
		}
		if len(choices) == 0 {
			choices = nil
		}
		return Radio{ID: r.ID, Text: r.Text, Choices: choices, Cond: cond}, nil
	case TypeRadioGroup, TypeCheckGroup:
		choices, err := decodeGroupChoices(r.Choices)
		if err != nil {
			return nil, fmt.Errorf("choices: %w", err)
		}
		if r.Type == TypeRadioGroup {
			return RadioGroup{ID: r.ID, Text: r.Text, Required: r.Required, Choices: choices, DefaultChoice: r.DefaultChoice, Cond: cond}, nil
		}
		return CheckGroup{ID: r.ID, Text: r.Text, Required: r.Required, Choices: choices, DefaultChoice: r.DefaultChoice, Cond: cond}, nil
	default:
		return Unknown{Kind: r.Type, Raw: append(json.RawMessage(nil), raw...)}, nil
	}
}

// decodeGroupChoices flattens [{"id": "label"}, ...] keeping key order, so a
// map carrying several keys yields several choices.
func decodeGroupChoices(raw json.RawMessage) ([]GroupChoice, error) {
	if isAbsent(raw) {
		return nil, nil
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, err
	}
	var choices []GroupChoice
	for _, elem := range list {
		members, err := objectMembers(elem)
		if err != nil {
			return nil, err
		}
		for _, m := range members {
			var label string
			if err := json.Unmarshal(m.value, &label); err != nil {
				return nil, fmt.Errorf("choice %q: %w", m.key, err)
			}
			choices = append(choices, GroupChoice{ID: m.key, Label: label})
		}
	}
	return choices, nil
}

type member struct {
	key   string
	value json.RawMessage
}

var errNotObject = errors.New("expected a JSON object")

// objectMembers lists the members of a JSON object in document order.
func objectMembers(raw json.RawMessage) ([]member, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errNotObject
	}

	var members []member
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, errNotObject
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		members = append(members, member{key, value})
	}
	return members, nil
}

func isAbsent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
