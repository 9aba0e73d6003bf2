package fill

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/mbolis/vsaq/model"
	"github.com/mbolis/vsaq/store"
	"github.com/pkg/errors"
)

// Client is a Backend speaking to a running server through the respondent
// endpoints under /fill/{link}.
type Client struct {
	url  string
	http *http.Client
}

// NewClient targets fillURL, the address an admin hands to a respondent.
// A nil httpClient means http.DefaultClient.
func NewClient(fillURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		url:  strings.TrimRight(fillURL, "/"),
		http: httpClient,
	}
}

func (c *Client) Load(ctx context.Context) (fill model.Fill, err error) {
	err = c.call(ctx, "GET", c.url, nil, &fill, store.ErrLocked)
	return
}

func (c *Client) Save(ctx context.Context, questionID, value string, version int) (model.SaveResult, error) {
	req := model.SaveRequest{
		QuestionID:  questionID,
		AnswerValue: value,
		Version:     &version,
	}
	resp := model.SaveResponse{}
	err := c.call(ctx, "POST", c.url+"/save", req, &resp, store.ErrLocked)
	if err != nil {
		return model.SaveResult{}, err
	}

	if resp.Conflict {
		return model.SaveResult{
			Outcome:   model.Conflict,
			Version:   resp.ServerVersion,
			UpdatedAt: resp.UpdatedAt,
		}, nil
	}
	if !resp.Success {
		return model.SaveResult{}, errors.New("save: server reported neither success nor conflict")
	}
	return model.SaveResult{
		Outcome:   model.Accepted,
		Version:   resp.Version,
		UpdatedAt: resp.UpdatedAt,
	}, nil
}

func (c *Client) Submit(ctx context.Context) error {
	return c.call(ctx, "POST", c.url+"/submit", nil, nil, store.ErrAlreadySubmitted)
}

// call sends body as JSON and decodes a 200 response into out. 404 becomes
// store.ErrNotFound and 403 becomes forbidden.
func (c *Client) call(ctx context.Context, method, url string, body any, out any, forbidden error) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("content-type", "application/json")
	}
	req.Header.Set("accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, url)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return store.ErrNotFound
	case http.StatusForbidden:
		return forbidden
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.Errorf("%s %s: %s: %s", method, url, resp.Status, strings.TrimSpace(string(msg)))
	}

	if out == nil {
		return nil
	}
	return errors.Wrap(json.NewDecoder(resp.Body).Decode(out), "decode response")
}

// StoreBackend serves a Session straight from the database, for tools running
// next to it.
type StoreBackend struct {
	Store *store.Store
	Link  string
}

func (b StoreBackend) Load(ctx context.Context) (model.Fill, error) {
	return b.Store.GetFill(ctx, b.Link)
}

func (b StoreBackend) Save(ctx context.Context, questionID, value string, version int) (model.SaveResult, error) {
	return b.Store.SaveAnswer(ctx, b.Link, questionID, value, version)
}

func (b StoreBackend) Submit(ctx context.Context) error {
	return b.Store.Submit(ctx, b.Link)
}
