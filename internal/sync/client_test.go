package sync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apperrors "aicopilot/core/internal/errors"
	"aicopilot/core/internal/logging"
	"aicopilot/core/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 5*time.Second, func() string { return "tok-123" }, logging.Discard())
}

func TestClientCreatePostsResource(t *testing.T) {
	var gotPath, gotAuth, gotBody string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		var buf [256]byte
		n, _ := r.Body.Read(buf[:])
		gotBody = string(buf[:n])
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"srv-42"}`))
	})

	id, err := client.Create(context.Background(), models.EntityNote, json.RawMessage(`{"title":"A"}`))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if id != "srv-42" {
		t.Errorf("id = %q, want srv-42", id)
	}
	if gotPath != "POST /notes" {
		t.Errorf("request = %q, want POST /notes", gotPath)
	}
	if gotAuth != "Bearer tok-123" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotBody != `{"title":"A"}` {
		t.Errorf("body = %q", gotBody)
	}
}

func TestClientCreateMissingIDIsServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	_, err := client.Create(context.Background(), models.EntityNote, json.RawMessage(`{}`))
	if !apperrors.Is(err, apperrors.ErrServer) {
		t.Errorf("expected server error, got %v", err)
	}
}

func TestClientUpdatePatchesResource(t *testing.T) {
	var gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	})

	err := client.Update(context.Background(), models.EntityFile, "srv-7", json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if gotPath != "PATCH /files/srv-7" {
		t.Errorf("request = %q, want PATCH /files/srv-7", gotPath)
	}
}

func TestClientDeleteTreats404AsSuccess(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"no such note"}`, http.StatusNotFound)
	})
	if err := client.Delete(context.Background(), models.EntityNote, "srv-9"); err != nil {
		t.Errorf("deleting an already-deleted record must succeed, got %v", err)
	}
}

func TestClientErrorTaxonomy(t *testing.T) {
	cases := []struct {
		status int
		want   apperrors.ErrorCode
	}{
		{http.StatusInternalServerError, apperrors.ErrServer},
		{http.StatusBadGateway, apperrors.ErrServer},
		{http.StatusConflict, apperrors.ErrConflict},
		{http.StatusPreconditionFailed, apperrors.ErrConflict},
		{http.StatusBadRequest, apperrors.ErrValidation},
		{http.StatusUnauthorized, apperrors.ErrValidation},
		{http.StatusNotFound, apperrors.ErrNotFound},
	}
	for _, c := range cases {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"message":"nope"}`, c.status)
		})
		err := client.Update(context.Background(), models.EntityNote, "srv-1", json.RawMessage(`{}`))
		if !apperrors.Is(err, c.want) {
			t.Errorf("status %d: expected %s, got %v", c.status, c.want, err)
		}
	}
}

func TestClientTransportFailureIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close() // connection refused from here on

	client := NewClient(url, time.Second, nil, logging.Discard())
	_, err := client.Create(context.Background(), models.EntityNote, json.RawMessage(`{}`))
	if !apperrors.Is(err, apperrors.ErrNetwork) {
		t.Errorf("expected network error, got %v", err)
	}
}

func TestClientUsesServerMessageInErrors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"title is required"}`, http.StatusBadRequest)
	})
	err := client.Update(context.Background(), models.EntityNote, "srv-1", json.RawMessage(`{}`))
	if err == nil {
		t.Fatal("expected error")
	}
	var appErr *apperrors.AppError
	if !apperrors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %T", err)
	}
	if appErr.Message == "" || appErr.Message == "nope" {
		t.Errorf("message = %q, want the server's text", appErr.Message)
	}
}
