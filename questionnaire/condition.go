package questionnaire

import (
	"encoding/json"
	"errors"
	"strings"
)

// Answers maps question ids to their current values. A missing key means the
// question was never answered.
type Answers map[string]string

func (a Answers) Clone() Answers {
	out := make(Answers, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Condition is a visibility predicate over answers.
type Condition interface {
	isCondition()
}

// PathCond is the "id/value" shorthand.
type PathCond string

type AndCond []Condition

type OrCond []Condition

type NotCond struct {
	Cond Condition
}

// MatchCond is the {id: value} form. Only the first key of the object is
// kept; any further keys are dropped when the template is parsed.
type MatchCond struct {
	ID    string
	Value any
}

func (PathCond) isCondition()  {}
func (AndCond) isCondition()   {}
func (OrCond) isCondition()    {}
func (NotCond) isCondition()   {}
func (MatchCond) isCondition() {}

// Evaluate reports whether cond holds for answers. A nil condition always holds.
func Evaluate(cond Condition, answers Answers) bool {
	switch c := cond.(type) {
	case nil:
		return true
	case PathCond:
		id, value, ok := strings.Cut(string(c), "/")
		if !ok {
			return false
		}
		got, answered := answers[id]
		return answered && got == value
	case AndCond:
		for _, sub := range c {
			if !Evaluate(sub, answers) {
				return false
			}
		}
		return true
	case OrCond:
		for _, sub := range c {
			if Evaluate(sub, answers) {
				return true
			}
		}
		return false
	case NotCond:
		return !Evaluate(c.Cond, answers)
	case MatchCond:
		want, ok := c.Value.(string)
		if !ok {
			return false
		}
		got, answered := answers[c.ID]
		return answered && got == want
	}
	return false
}

func (c AndCond) MarshalJSON() ([]byte, error) {
	list := []Condition(c)
	if list == nil {
		list = []Condition{}
	}
	return json.Marshal(map[string][]Condition{"and": list})
}

func (c OrCond) MarshalJSON() ([]byte, error) {
	list := []Condition(c)
	if list == nil {
		list = []Condition{}
	}
	return json.Marshal(map[string][]Condition{"or": list})
}

func (c NotCond) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]Condition{"not": c.Cond})
}

func (c MatchCond) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{c.ID: c.Value})
}

var errBadCondition = errors.New("condition must be a string or an object")

// decodeCondition reads a cond attribute. Operator keys take precedence in
// the order and, or, not regardless of where they appear in the object.
func decodeCondition(raw json.RawMessage) (Condition, error) {
	if isAbsent(raw) {
		return nil, nil
	}

	var path string
	if err := json.Unmarshal(raw, &path); err == nil {
		return PathCond(path), nil
	}

	members, err := objectMembers(raw)
	if err != nil {
		return nil, errBadCondition
	}

	byKey := make(map[string]json.RawMessage, len(members))
	for _, m := range members {
		if _, seen := byKey[m.key]; !seen {
			byKey[m.key] = m.value
		}
	}

	if raw, ok := byKey["and"]; ok && !isAbsent(raw) {
		list, err := decodeConditionList(raw)
		return AndCond(list), err
	}
	if raw, ok := byKey["or"]; ok && !isAbsent(raw) {
		list, err := decodeConditionList(raw)
		return OrCond(list), err
	}
	if raw, ok := byKey["not"]; ok && !isAbsent(raw) {
		inner, err := decodeCondition(raw)
		if err != nil {
			return nil, err
		}
		return NotCond{Cond: inner}, nil
	}

	for _, m := range members {
		switch m.key {
		case "and", "or", "not":
			continue
		}
		var value any
		if err := json.Unmarshal(m.value, &value); err != nil {
			return nil, err
		}
		return MatchCond{ID: m.key, Value: value}, nil
	}

	// An empty object holds for every answer set.
	return AndCond{}, nil
}

func decodeConditionList(raw json.RawMessage) ([]Condition, error) {
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, err
	}
	conds := make([]Condition, 0, len(list))
	for _, elem := range list {
		c, err := decodeCondition(elem)
		if err != nil {
			return nil, err
		}
		conds = append(conds, c)
	}
	return conds, nil
}
