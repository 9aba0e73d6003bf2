package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/mbolis/vsaq/app"
	"github.com/mbolis/vsaq/config"
	"github.com/mbolis/vsaq/database"
	"github.com/mbolis/vsaq/httpx"
	"github.com/mbolis/vsaq/model"
	"github.com/mbolis/vsaq/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleContent = `{"version":1,"items":[
	{"type":"yesno","id":"has_sec","text":"Security team?","yes":[
		{"type":"line","id":"sec_size","text":"How many people?"}
	]},
	{"type":"line","id":"name","text":"Company"}
]}`

type testServer struct {
	*httptest.Server
	store *store.Store
	token string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "vsaq.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg, err := config.Load("", map[string]any{
		"token_secret": "test-secret",
		"base_url":     "https://vsaq.example.com",
	})
	require.NoError(t, err)

	st := store.New(db)
	_, err = st.CreateAdmin(context.Background(), "root", "hunter2")
	require.NoError(t, err)

	srv := httptest.NewServer(Wire(app.App{
		Store:        st,
		BearerServer: httpx.NewBearerServer(st, cfg),
		Config:       cfg,
	}))
	t.Cleanup(srv.Close)

	return &testServer{Server: srv, store: st}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("content-type", "application/json")
	if ts.token != "" {
		req.Header.Set("authorization", "Bearer "+ts.token)
	}

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func (ts *testServer) login(t *testing.T) {
	t.Helper()

	req, err := http.NewRequest("POST", ts.URL+"/api/login", nil)
	require.NoError(t, err)
	req.SetBasicAuth("root", "hunter2")

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var tokens struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tokens))
	require.NotEmpty(t, tokens.AccessToken)
	ts.token = tokens.AccessToken

	names := []string{}
	for _, c := range resp.Cookies() {
		names = append(names, c.Name)
	}
	assert.ElementsMatch(t, []string{"access_token", "refresh_token"}, names)
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

func (ts *testServer) seedInstance(t *testing.T) model.Instance {
	t.Helper()
	ctx := context.Background()
	templateId, err := ts.store.CreateTemplate(ctx, model.Template{
		Name:        "Vendor security",
		Description: "Yearly review",
		Content:     sampleContent,
	})
	require.NoError(t, err)
	in, err := ts.store.CreateInstance(ctx, model.Instance{TemplateID: templateId, TargetName: "ACME"})
	require.NoError(t, err)
	return in
}

func TestFillFlow(t *testing.T) {
	ts := newTestServer(t)
	in := ts.seedInstance(t)
	base := "/fill/" + in.UniqueLink

	resp, raw := ts.do(t, "GET", base, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	fill := decode[model.Fill](t, raw)
	assert.Equal(t, "Vendor security", fill.Name)
	assert.Equal(t, "Yearly review", fill.Description)
	assert.Equal(t, sampleContent, fill.Content)
	assert.False(t, fill.IsLocked)
	assert.Empty(t, fill.Answers)

	resp, raw = ts.do(t, "POST", base+"/save", map[string]any{"question_id": "has_sec", "answer_value": "yes", "version": 0})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	saved := decode[model.SaveResponse](t, raw)
	assert.True(t, saved.Success)
	assert.Equal(t, 1, saved.Version)

	resp, raw = ts.do(t, "POST", base+"/save", map[string]any{"question_id": "has_sec", "answer_value": "no", "version": 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, decode[model.SaveResponse](t, raw).Version)

	// a second tab still holding version 1
	resp, raw = ts.do(t, "POST", base+"/save", map[string]any{"question_id": "has_sec", "answer_value": "yes", "version": 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	conflict := decode[model.SaveResponse](t, raw)
	assert.True(t, conflict.Conflict)
	assert.False(t, conflict.Success)
	assert.Equal(t, 2, conflict.ServerVersion)

	resp, _ = ts.do(t, "POST", base+"/save", map[string]any{"answer_value": "x"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, raw = ts.do(t, "POST", base+"/submit", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"success":true}`, string(raw))

	resp, _ = ts.do(t, "POST", base+"/submit", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = ts.do(t, "POST", base+"/save", map[string]any{"question_id": "name", "answer_value": "late", "version": 0})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, raw = ts.do(t, "GET", base, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	fill = decode[model.Fill](t, raw)
	assert.True(t, fill.IsLocked)
	assert.NotNil(t, fill.SubmittedAt)
	assert.Equal(t, model.Answer{Value: "no", Version: 2, UpdatedAt: fill.Answers["has_sec"].UpdatedAt}, fill.Answers["has_sec"])
}

func TestFillUnknownLink(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := ts.do(t, "GET", "/fill/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = ts.do(t, "POST", "/fill/nope/save", map[string]any{"question_id": "q", "answer_value": "x"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = ts.do(t, "POST", "/fill/nope/submit", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAdminRequiresToken(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := ts.do(t, "GET", "/api/admin/templates", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest("POST", ts.URL+"/api/login", nil)
	require.NoError(t, err)
	req.SetBasicAuth("root", "wrong")
	resp, err = ts.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestTemplateEndpoints(t *testing.T) {
	ts := newTestServer(t)
	ts.login(t)

	resp, raw := ts.do(t, "POST", "/api/admin/templates", map[string]any{
		"name":    "Vendor security",
		"content": sampleContent,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	created := decode[struct{ ID int }](t, raw)

	resp, raw = ts.do(t, "GET", fmt.Sprintf("/api/admin/templates/%d", created.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	template := decode[model.Template](t, raw)
	assert.Equal(t, "root", template.CreatedByName)

	resp, raw = ts.do(t, "POST", "/api/admin/templates", map[string]any{
		"name":    "Broken",
		"content": `{"items":[{"type":"line","id":"a"},{"type":"line","id":"a"},{"type":"checkgroup","id":"bad id!"}]}`,
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	problems := decode[struct {
		Errors []struct {
			Kind    string `json:"kind"`
			ID      string `json:"id"`
			Message string `json:"message"`
		} `json:"errors"`
	}](t, raw)
	kinds := []string{}
	for _, e := range problems.Errors {
		kinds = append(kinds, e.Kind)
		assert.NotEmpty(t, e.Message)
	}
	assert.ElementsMatch(t, []string{"duplicate_id", "invalid_id_format", "missing_choices"}, kinds)

	resp, _ = ts.do(t, "POST", "/api/admin/templates", map[string]any{"name": "Not JSON", "content": "{"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, raw = ts.do(t, "POST", fmt.Sprintf("/api/admin/templates/%d/duplicate", created.ID), nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	dup := decode[struct{ ID int }](t, raw)

	resp, _ = ts.do(t, "POST", fmt.Sprintf("/api/admin/templates/%d/archive", dup.ID), nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, raw = ts.do(t, "GET", "/api/admin/templates", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[map[string][]model.Template](t, raw)["templates"], 1)

	resp, raw = ts.do(t, "GET", "/api/admin/templates?archived=true", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	all := decode[map[string][]model.Template](t, raw)["templates"]
	require.Len(t, all, 2)

	resp, raw = ts.do(t, "POST", "/api/admin/templates/preview", map[string]any{
		"content": sampleContent,
		"answers": map[string]string{"has_sec": "yes"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	preview := decode[struct {
		Entries []struct {
			Depth int `json:"depth"`
		} `json:"entries"`
		Progress struct {
			Answered int `json:"answered"`
			Total    int `json:"total"`
			Percent  int `json:"percent"`
		} `json:"progress"`
	}](t, raw)
	assert.Len(t, preview.Entries, 3)
	assert.Equal(t, 1, preview.Entries[1].Depth)
	assert.Equal(t, 1, preview.Progress.Answered)
	assert.Equal(t, 3, preview.Progress.Total)
	assert.Equal(t, 33, preview.Progress.Percent)

	resp, _ = ts.do(t, "PUT", fmt.Sprintf("/api/admin/templates/%d", created.ID), map[string]any{
		"name":    "Renamed",
		"content": sampleContent,
	})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = ts.do(t, "DELETE", fmt.Sprintf("/api/admin/templates/%d", dup.ID), nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = ts.do(t, "GET", fmt.Sprintf("/api/admin/templates/%d", dup.ID), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestInstanceEndpoints(t *testing.T) {
	ts := newTestServer(t)
	ts.login(t)

	templateId, err := ts.store.CreateTemplate(context.Background(), model.Template{Name: "Vendor security", Content: sampleContent})
	require.NoError(t, err)

	resp, _ := ts.do(t, "POST", "/api/admin/instances", map[string]any{"target_email": "not an email", "template_id": templateId})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = ts.do(t, "POST", "/api/admin/instances", map[string]any{"template_id": 999})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, raw := ts.do(t, "POST", "/api/admin/instances", map[string]any{
		"template_id":  templateId,
		"target_name":  "ACME",
		"target_email": "security@acme.test",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	created := decode[struct {
		ID         int    `json:"id"`
		UniqueLink string `json:"unique_link"`
		URL        string `json:"url"`
	}](t, raw)
	assert.Equal(t, "https://vsaq.example.com/fill/"+created.UniqueLink, created.URL)

	// the template is frozen once sent
	resp, _ = ts.do(t, "PUT", fmt.Sprintf("/api/admin/templates/%d", templateId), map[string]any{"name": "x", "content": sampleContent})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp, _ = ts.do(t, "DELETE", fmt.Sprintf("/api/admin/templates/%d", templateId), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	_, err = ts.store.SaveAnswer(context.Background(), created.UniqueLink, "has_sec", "yes", 0)
	require.NoError(t, err)

	resp, raw = ts.do(t, "GET", fmt.Sprintf("/api/admin/instances/%d", created.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	detail := decode[struct {
		model.Instance
		Answers  map[string]model.Answer `json:"answers"`
		Progress struct {
			Answered int `json:"answered"`
			Total    int `json:"total"`
			Percent  int `json:"percent"`
		} `json:"progress"`
	}](t, raw)
	assert.Equal(t, "ACME", detail.TargetName)
	assert.Equal(t, "yes", detail.Answers["has_sec"].Value)
	assert.Equal(t, 1, detail.Progress.Answered)
	assert.Equal(t, 3, detail.Progress.Total)

	resp, raw = ts.do(t, "GET", "/api/admin/instances", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	instances := decode[map[string][]model.Instance](t, raw)["instances"]
	require.Len(t, instances, 1)
	assert.Equal(t, 1, instances[0].AnswerCount)

	require.NoError(t, ts.store.Submit(context.Background(), created.UniqueLink))
	resp, _ = ts.do(t, "DELETE", fmt.Sprintf("/api/admin/instances/%d", created.ID), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = ts.do(t, "POST", fmt.Sprintf("/api/admin/instances/%d/unlock", created.ID), nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = ts.do(t, "DELETE", fmt.Sprintf("/api/admin/instances/%d", created.ID), nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = ts.do(t, "GET", fmt.Sprintf("/api/admin/instances/%d", created.ID), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
