package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	apperrors "aicopilot/core/internal/errors"
	"aicopilot/core/internal/models"
)

// TokenFunc returns the current bearer token, or "" for unauthenticated
// requests. It is called per request so token refresh needs no client
// rebuild.
type TokenFunc func() string

// Client is the HTTP implementation of Remote, speaking the app's REST
// API: POST /{resource}, PATCH /{resource}/{id}, DELETE /{resource}/{id}.
type Client struct {
	baseURL string
	http    *http.Client
	token   TokenFunc
	logger  *slog.Logger
}

// NewClient creates an API client. baseURL is the API root without a
// trailing slash; token may be nil.
func NewClient(baseURL string, timeout time.Duration, token TokenFunc, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		token:   token,
		logger:  logger,
	}
}

func resourceFor(entityType models.EntityType) (string, error) {
	switch entityType {
	case models.EntityNote:
		return "notes", nil
	case models.EntityMessage:
		return "messages", nil
	case models.EntityFile:
		return "files", nil
	}
	return "", apperrors.New(apperrors.ErrValidation, "unknown entity type: "+string(entityType))
}

// Create implements Remote.
func (c *Client) Create(ctx context.Context, entityType models.EntityType, data json.RawMessage) (string, error) {
	resource, err := resourceFor(entityType)
	if err != nil {
		return "", err
	}
	body, err := c.do(ctx, http.MethodPost, c.baseURL+"/"+resource, data)
	if err != nil {
		return "", err
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		return "", apperrors.Wrap(apperrors.ErrServer, "decode create response", err)
	}
	if created.ID == "" {
		return "", apperrors.New(apperrors.ErrServer, "create response missing id")
	}
	return created.ID, nil
}

// Update implements Remote.
func (c *Client) Update(ctx context.Context, entityType models.EntityType, serverID string, data json.RawMessage) error {
	resource, err := resourceFor(entityType)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, http.MethodPatch, c.baseURL+"/"+resource+"/"+serverID, data)
	return err
}

// Delete implements Remote. A 404 from the server means the record is
// already gone, which is the outcome we wanted.
func (c *Client) Delete(ctx context.Context, entityType models.EntityType, serverID string) error {
	resource, err := resourceFor(entityType)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, http.MethodDelete, c.baseURL+"/"+resource+"/"+serverID, nil)
	if apperrors.Is(err, apperrors.ErrNotFound) {
		return nil
	}
	return err
}

// do issues one request and maps the outcome onto the error taxonomy:
// transport failures are NETWORK_ERROR, 5xx is SERVER_ERROR, 409/412 is
// CONFLICT, 404 is NOT_FOUND and any other 4xx is VALIDATION_ERROR.
func (c *Client) do(ctx context.Context, method, url string, payload json.RawMessage) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrNetwork, "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil {
		if tok := c.token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrNetwork, method+" "+url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrNetwork, "read response body", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}

	msg := serverMessage(body)
	c.logger.Debug("api request rejected", "method", method, "url", url, "status", resp.StatusCode, "message", msg)

	switch {
	case resp.StatusCode >= 500:
		return nil, apperrors.New(apperrors.ErrServer, fmt.Sprintf("%s: %s", resp.Status, msg))
	case resp.StatusCode == http.StatusConflict, resp.StatusCode == http.StatusPreconditionFailed:
		return nil, apperrors.New(apperrors.ErrConflict, msg)
	case resp.StatusCode == http.StatusNotFound:
		return nil, apperrors.New(apperrors.ErrNotFound, msg)
	default:
		return nil, apperrors.New(apperrors.ErrValidation, fmt.Sprintf("%s: %s", resp.Status, msg))
	}
}

// serverMessage pulls the human-readable message out of a JSON error
// body, falling back to the raw body.
func serverMessage(body []byte) string {
	var e struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.Message != "" {
		return e.Message
	}
	return strings.TrimSpace(string(body))
}
