package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/wycenapp/wycena-sync/pkg/config"
	"github.com/wycenapp/wycena-sync/pkg/db/models"
	pkgerrors "github.com/wycenapp/wycena-sync/pkg/errors"
	"github.com/wycenapp/wycena-sync/pkg/types"
)

// HTTPClient talks JSON to the remote quoting API. It owns no retry logic;
// the sync queue decides what to replay.
type HTTPClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewHTTPClient builds the production remote client.
func NewHTTPClient(cfg config.RemoteConfig) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("remote base URL required")
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http:    &http.Client{Timeout: cfg.Timeout},
	}, nil
}

func (c *HTTPClient) CreateQuote(ctx context.Context, input models.Quote) (*models.Quote, error) {
	var out models.Quote
	if err := c.do(ctx, http.MethodPost, "/v1/quotes", input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) UpdateQuote(ctx context.Context, id string, input models.Quote) (*models.Quote, error) {
	var out models.Quote
	if err := c.do(ctx, http.MethodPut, "/v1/quotes/"+url.PathEscape(id), input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) DeleteQuote(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/quotes/"+url.PathEscape(id), nil, nil)
}

func (c *HTTPClient) CreateClient(ctx context.Context, input models.Client) (*models.Client, error) {
	var out models.Client
	if err := c.do(ctx, http.MethodPost, "/v1/clients", input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) UpdateClient(ctx context.Context, id string, input models.Client) (*models.Client, error) {
	var out models.Client
	if err := c.do(ctx, http.MethodPut, "/v1/clients/"+url.PathEscape(id), input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) DeleteClient(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/clients/"+url.PathEscape(id), nil, nil)
}

func (c *HTTPClient) ListQuotes(ctx context.Context, ownerID string) ([]models.Quote, error) {
	var out []models.Quote
	path := "/v1/quotes?owner_id=" + url.QueryEscape(ownerID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) ListClients(ctx context.Context, ownerID string) ([]models.Client, error) {
	var out []models.Client
	path := "/v1/clients?owner_id=" + url.QueryEscape(ownerID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body any, out any) error {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding request body")
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeRemote, err, "calling remote API")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	if out == nil {
		return nil
	}

	var envelope types.SuccessEnvelope
	raw := json.RawMessage{}
	envelope.Data = &raw
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeRemote, err, "decoding response body")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeRemote, err, "decoding response data")
	}
	return nil
}

func decodeError(resp *http.Response) error {
	var envelope types.ErrorEnvelope
	message := resp.Status
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil && envelope.Error.Message != "" {
		message = envelope.Error.Message
	}

	code := pkgerrors.CodeRemote
	switch {
	case resp.StatusCode == http.StatusNotFound:
		code = pkgerrors.CodeNotFound
	case resp.StatusCode == http.StatusConflict:
		code = pkgerrors.CodeConflict
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		code = pkgerrors.CodeValidation
	}

	return pkgerrors.New(code, message).WithDetails(map[string]any{
		"status": resp.StatusCode,
	})
}
