package questionnaire

import (
	"fmt"
	"regexp"

	"github.com/hashicorp/go-multierror"
)

var reID = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

type ErrorKind int

const (
	MissingType ErrorKind = iota
	DuplicateID
	InvalidIDFormat
	MissingID
	MissingChoices
)

func (k ErrorKind) String() string {
	switch k {
	case MissingType:
		return "missing_type"
	case DuplicateID:
		return "duplicate_id"
	case InvalidIDFormat:
		return "invalid_id_format"
	case MissingID:
		return "missing_id"
	case MissingChoices:
		return "missing_choices"
	}
	return "unknown"
}

func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ValidationError is one problem found in a template. Path is a readable
// location such as items[2].yes[0], meant for the author only.
type ValidationError struct {
	Kind ErrorKind `json:"kind"`
	ID   string    `json:"id,omitempty"`
	Type string    `json:"type,omitempty"`
	Path string    `json:"path"`
}

func (e ValidationError) Error() string {
	switch e.Kind {
	case MissingType:
		return fmt.Sprintf("item at %s: missing type", e.Path)
	case DuplicateID:
		return fmt.Sprintf("duplicate ID: %s", e.ID)
	case InvalidIDFormat:
		return fmt.Sprintf("invalid ID %q: only letters, numbers, underscore and hyphen allowed", e.ID)
	case MissingID:
		return fmt.Sprintf("%s at %s: ID is required", e.Type, e.Path)
	case MissingChoices:
		return fmt.Sprintf("%s at %s: at least one choice required", e.Type, e.Path)
	}
	return fmt.Sprintf("item at %s: invalid", e.Path)
}

type ValidationErrors []ValidationError

// Err folds the list into a single error, nil when there is nothing to report.
func (errs ValidationErrors) Err() error {
	var result *multierror.Error
	for _, e := range errs {
		result = multierror.Append(result, e)
	}
	return result.ErrorOrNil()
}

// Validate checks doc before it is stored as a template. doc is never modified.
func Validate(doc *Document) ValidationErrors {
	v := validator{seen: map[string]bool{}}
	v.items(doc.Items, "items")
	return v.errs
}

type validator struct {
	seen map[string]bool
	errs ValidationErrors
}

func (v *validator) items(items []Item, path string) {
	for i, it := range items {
		v.item(it, fmt.Sprintf("%s[%d]", path, i))
	}
}

func (v *validator) item(it Item, path string) {
	if u, ok := it.(Unknown); ok && u.Kind == "" {
		v.report(MissingType, "", "", path)
		return
	}

	if id := IDOf(it); id != "" {
		v.id(id, it.Type(), path)
	}

	switch it := it.(type) {
	case Line, Box, Check:
		v.requireID(it, path)
	case YesNo:
		v.requireID(it, path)
		v.items(it.Yes, path+".yes")
		v.items(it.No, path+".no")
	case RadioGroup:
		v.requireID(it, path)
		if len(it.Choices) == 0 {
			v.report(MissingChoices, "", it.Type(), path)
		}
		// choice ids are stored as values and appear in "group/choice" paths
		local := map[string]bool{}
		for i, c := range it.Choices {
			cpath := fmt.Sprintf("%s.choices[%d]", path, i)
			if local[c.ID] {
				v.report(DuplicateID, c.ID, it.Type(), cpath)
			}
			local[c.ID] = true
			if !reID.MatchString(c.ID) {
				v.report(InvalidIDFormat, c.ID, it.Type(), cpath)
			}
		}
	case CheckGroup:
		v.requireID(it, path)
		if len(it.Choices) == 0 {
			v.report(MissingChoices, "", it.Type(), path)
		}
		// each choice is answered under its own id
		for i, c := range it.Choices {
			v.id(c.ID, it.Type(), fmt.Sprintf("%s.choices[%d]", path, i))
		}
	case Block:
		v.items(it.Items, path+".items")
	case Info, Tip, Spacer, Radio, Unknown:
	}
}

func (v *validator) id(id, typ, path string) {
	if v.seen[id] {
		v.report(DuplicateID, id, typ, path)
	}
	v.seen[id] = true
	if !reID.MatchString(id) {
		v.report(InvalidIDFormat, id, typ, path)
	}
}

func (v *validator) requireID(it Item, path string) {
	if IDOf(it) == "" {
		v.report(MissingID, "", it.Type(), path)
	}
}

func (v *validator) report(kind ErrorKind, id, typ, path string) {
	v.errs = append(v.errs, ValidationError{Kind: kind, ID: id, Type: typ, Path: path})
}
