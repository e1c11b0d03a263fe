package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

type staticTokens string

func (s staticTokens) AuthorizationHeader(ctx context.Context) (string, error) {
	return string(s), nil
}

func newTestClient(baseURL string) *Client {
	limiter := NewLimiter(100, time.Second)
	return NewClient(baseURL, "/v3", limiter, staticTokens("Bearer test-token"), zap.NewNop())
}

func TestClientAttachesAuthorization(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	if _, err := c.Get(context.Background(), c.URL("/contact_lists", "", "")); err != nil {
		t.Fatalf("get: %v", err)
	}
	if gotAuth != "Bearer test-token" {
		t.Fatalf("authorization header = %q", gotAuth)
	}
}

func TestClientURLBuilding(t *testing.T) {
	c := newTestClient("https://api.example.com")

	cases := []struct {
		endpoint, remoteID, suffix, want string
	}{
		{"/contacts", "", "", "https://api.example.com/v3/contacts"},
		{"/contacts", "abc", "", "https://api.example.com/v3/contacts/abc"},
		{"/contacts", "", "/sign_up_form", "https://api.example.com/v3/contacts/sign_up_form"},
		{"/emails/activities", "xyz", "/schedules", "https://api.example.com/v3/emails/activities/xyz/schedules"},
		{"/v3/contacts", "", "", "https://api.example.com/v3/contacts"},
		{"https://api.example.com/v3/contacts?cursor=next", "", "", "https://api.example.com/v3/contacts?cursor=next"},
	}
	for _, tc := range cases {
		if got := c.URL(tc.endpoint, tc.remoteID, tc.suffix); got != tc.want {
			t.Errorf("URL(%q, %q, %q) = %q, want %q", tc.endpoint, tc.remoteID, tc.suffix, got, tc.want)
		}
	}
}

func TestClientNoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	raw, err := c.Delete(context.Background(), c.URL("/contacts", "abc", ""))
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if raw != nil {
		t.Fatalf("expected nil payload for 204, got %s", raw)
	}
}

func TestClientNotFoundSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error_message":"not here"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.Get(context.Background(), c.URL("/contacts", "missing", ""))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestClientErrorArrayBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`[{"error_key":"contacts.api.bad","error_message":"email is invalid"},{"error_message":"list is required"}]`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.Post(context.Background(), c.URL("/contacts", "", ""), map[string]any{})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", apiErr.StatusCode)
	}
	if len(apiErr.Messages) != 2 || apiErr.Messages[0] != "email is invalid" {
		t.Fatalf("messages = %v", apiErr.Messages)
	}
}

func TestClientErrorObjectBodyAuthShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid_grant","error_description":"refresh token revoked"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.Get(context.Background(), c.URL("/contacts", "", ""))

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if len(apiErr.Messages) != 1 || apiErr.Messages[0] != "refresh token revoked" {
		t.Fatalf("messages = %v", apiErr.Messages)
	}
}

func TestClientErrorUnparseableBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("gateway timeout"))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.Get(context.Background(), c.URL("/contacts", "", ""))

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if len(apiErr.Messages) != 1 || apiErr.Messages[0] != "gateway timeout" {
		t.Fatalf("messages = %v", apiErr.Messages)
	}
}
