package questionnaire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kinds(errs ValidationErrors) []ErrorKind {
	var out []ErrorKind
	for _, e := range errs {
		out = append(out, e.Kind)
	}
	return out
}

func TestValidateValidDocument(t *testing.T) {
	errs := Validate(sampleDocument())
	assert.Empty(t, errs)
	assert.NoError(t, errs.Err())
}

func TestValidateDuplicateAcrossBranches(t *testing.T) {
	doc := mustParse(t, `{"items":[{"type":"yesno","id":"gate",
		"yes":[{"type":"line","id":"q1"}],
		"no":[{"type":"box","id":"q1"}]}]}`)

	errs := Validate(doc)
	require.Len(t, errs, 1)
	assert.Equal(t, DuplicateID, errs[0].Kind)
	assert.Equal(t, "q1", errs[0].ID)
	assert.Equal(t, "items[0].no[0]", errs[0].Path)
}

func TestValidateRules(t *testing.T) {
	tests := map[string]struct {
		raw  string
		want []ErrorKind
	}{
		"missing type": {
			raw:  `{"items":[{"id":"x"}]}`,
			want: []ErrorKind{MissingType},
		},
		"bad id charset": {
			raw:  `{"items":[{"type":"line","id":"has space"}]}`,
			want: []ErrorKind{InvalidIDFormat},
		},
		"line without id": {
			raw:  `{"items":[{"type":"line","text":"Name"}]}`,
			want: []ErrorKind{MissingID},
		},
		"box and check without id": {
			raw:  `{"items":[{"type":"box"},{"type":"check"}]}`,
			want: []ErrorKind{MissingID, MissingID},
		},
		"yesno without id": {
			raw:  `{"items":[{"type":"yesno"}]}`,
			want: []ErrorKind{MissingID},
		},
		"radiogroup without id or choices": {
			raw:  `{"items":[{"type":"radiogroup"}]}`,
			want: []ErrorKind{MissingID, MissingChoices},
		},
		"checkgroup with empty choices": {
			raw:  `{"items":[{"type":"checkgroup","id":"g","choices":[]}]}`,
			want: []ErrorKind{MissingChoices},
		},
		"checkgroup choice reuses a question id": {
			raw:  `{"items":[{"type":"line","id":"encrypt"},{"type":"checkgroup","id":"g","choices":[{"encrypt":"Encryption"},{"bad id!":"Bad"}]}]}`,
			want: []ErrorKind{DuplicateID, InvalidIDFormat},
		},
		"checkgroup choice equals its group id": {
			raw:  `{"items":[{"type":"checkgroup","id":"g","choices":[{"g":"G"}]}]}`,
			want: []ErrorKind{DuplicateID},
		},
		"radiogroup choices repeat within the group": {
			raw:  `{"items":[{"type":"radiogroup","id":"g","choices":[{"a":"A"},{"a":"Again"},{"x/y":"Slash"}]}]}`,
			want: []ErrorKind{DuplicateID, InvalidIDFormat},
		},
		"radiogroup choices may repeat question ids": {
			raw:  `{"items":[{"type":"line","id":"yes"},{"type":"radiogroup","id":"g","choices":[{"yes":"Yes"}]}]}`,
			want: nil,
		},
		"nested in block": {
			raw:  `{"items":[{"type":"block","items":[{"type":"line","id":"a"},{"type":"line","id":"a"}]}]}`,
			want: []ErrorKind{DuplicateID},
		},
		"tip ids count": {
			raw:  `{"items":[{"type":"tip","id":"a"},{"type":"line","id":"a"}]}`,
			want: []ErrorKind{DuplicateID},
		},
		"info needs no id": {
			raw:  `{"items":[{"type":"info","text":"x"},{"type":"spacer"},{"type":"block"}]}`,
			want: nil,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, kinds(Validate(mustParse(t, tc.raw))))
		})
	}
}

func TestValidateReportsChoicePath(t *testing.T) {
	doc := mustParse(t, `{"items":[{"type":"line","id":"encrypt"},{"type":"checkgroup","id":"g","choices":[{"iso":"ISO"},{"encrypt":"Encryption"}]}]}`)

	errs := Validate(doc)
	require.Len(t, errs, 1)
	assert.Equal(t, DuplicateID, errs[0].Kind)
	assert.Equal(t, "encrypt", errs[0].ID)
	assert.Equal(t, "checkgroup", errs[0].Type)
	assert.Equal(t, "items[1].choices[1]", errs[0].Path)
}

func TestValidationErrorsErr(t *testing.T) {
	errs := Validate(mustParse(t, `{"items":[{"type":"line"},{"type":"line","id":"a b"}]}`))
	require.Len(t, errs, 2)

	err := errs.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line at items[0]: ID is required")
	assert.Contains(t, err.Error(), `invalid ID "a b"`)
}

func TestValidateDoesNotMutate(t *testing.T) {
	doc := mustParse(t, `{"items":[{"type":"line"},{"type":"line","id":"a"},{"type":"line","id":"a"}]}`)
	before := mustParse(t, `{"items":[{"type":"line"},{"type":"line","id":"a"},{"type":"line","id":"a"}]}`)

	Validate(doc)
	assert.Equal(t, before, doc)
}
