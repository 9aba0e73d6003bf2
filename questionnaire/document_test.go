package questionnaire

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocument() *Document {
	return &Document{
		Version: 3,
		Items: []Item{
			Block{
				Text: "Security program",
				Items: []Item{
					Info{Text: "Answer **all** questions."},
					Tip{ID: "tip1", Text: "Keep logs", Severity: SeverityHigh, Why: "audits", Name: "Logging", Warn: true},
					Spacer{},
					Line{ID: "owner", Text: "Security owner", Required: true, Placeholder: "Name"},
					Box{ID: "summary", Text: "Summary", Cond: PathCond("owner/me")},
				},
			},
			YesNo{
				ID:   "has_sec",
				Text: "Do you have a security team?",
				Yes: []Item{
					Line{ID: "detail", Text: "Describe it"},
					Check{ID: "soc2", Text: "SOC2 certified", Cond: AndCond{PathCond("has_sec/yes"), NotCond{Cond: MatchCond{ID: "owner", Value: "nobody"}}}},
				},
				No: []Item{
					Box{ID: "why_not", Text: "Why not?", Cond: OrCond{PathCond("owner/a"), PathCond("owner/b")}},
				},
			},
			Radio{ID: "size", Text: "Company size", Choices: []Choice{{Value: "s", Text: "Small"}, {Value: "l", Text: "Large"}}},
			RadioGroup{ID: "hosting", Text: "Hosting", Choices: []GroupChoice{{ID: "cloud", Label: "Cloud"}, {ID: "onprem", Label: "On premises"}}, DefaultChoice: "cloud"},
			CheckGroup{ID: "certs", Choices: []GroupChoice{{ID: "iso", Label: "ISO 27001"}}, Cond: PathCond("size/l")},
		},
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	doc := sampleDocument()

	raw, err := json.Marshal(doc)
	require.NoError(t, err)

	parsed, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, doc, parsed)
}

func TestParseLegacyKey(t *testing.T) {
	doc, err := Parse([]byte(`{"questionnaire":[{"type":"line","id":"q1","text":"Name"}]}`))
	require.NoError(t, err)
	assert.Equal(t, []Item{Line{ID: "q1", Text: "Name"}}, doc.Items)
}

func TestParseMalformed(t *testing.T) {
	tests := map[string]string{
		"syntax error":     `{"items": [`,
		"missing items":    `{"version": 1}`,
		"null items":       `{"items": null}`,
		"items not a list": `{"items": {"type": "line"}}`,
		"not an object":    `[1, 2]`,
		"bad child":        `{"items": [{"type": "block", "items": "nope"}]}`,
	}

	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(raw))
			assert.ErrorIs(t, err, ErrMalformedDocument)
		})
	}
}

func TestParseKeepsUnknownTypes(t *testing.T) {
	raw := `{"items":[{"type":"upload","id":"file1","text":"Attach"},{"type":"line","id":"q"}]}`
	doc, err := Parse([]byte(raw))
	require.NoError(t, err)

	require.Len(t, doc.Items, 2)
	unknown, ok := doc.Items[0].(Unknown)
	require.True(t, ok)
	assert.Equal(t, "upload", unknown.Type())

	out, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":0,"items":[{"type":"upload","id":"file1","text":"Attach"},{"type":"line","id":"q"}]}`, string(out))
}

func TestParseGroupChoicesKeepOrder(t *testing.T) {
	doc, err := Parse([]byte(`{"items":[{"type":"checkgroup","id":"g","choices":[{"b":"B","a":"A"},{"c":"C"}]}]}`))
	require.NoError(t, err)

	group := doc.Items[0].(CheckGroup)
	assert.Equal(t, []GroupChoice{{ID: "b", Label: "B"}, {ID: "a", Label: "A"}, {ID: "c", Label: "C"}}, group.Choices)
}
