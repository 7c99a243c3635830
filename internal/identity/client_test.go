package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func TestHTTPIssuer_Issue(t *testing.T) {
	var gotBody signUpRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/accounts:signUp" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if key := r.URL.Query().Get("key"); key != "api-key" {
			t.Errorf("unexpected key %q", key)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]string{"localId": "subject-1"})
	}))
	defer server.Close()

	issuer := NewHTTPIssuer(server.URL, "api-key", zap.NewNop())
	subject, err := issuer.Issue(context.Background(), "u@example.com", "hunter22")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if subject != "subject-1" {
		t.Fatalf("expected subject-1, got %q", subject)
	}
	if gotBody.Email != "u@example.com" || gotBody.Password != "hunter22" {
		t.Fatalf("unexpected request body: %+v", gotBody)
	}
}

func TestHTTPIssuer_ClassifiesProviderErrors(t *testing.T) {
	cases := []struct {
		message string
		reason  RejectReason
	}{
		{"EMAIL_EXISTS", ReasonEmailExists},
		{"WEAK_PASSWORD : Password should be at least 6 characters", ReasonWeakSecret},
		{"INVALID_EMAIL", ReasonInvalidEmail},
		{"NEVER_SEEN_BEFORE", ReasonUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.message, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]any{"message": tc.message, "code": 400},
				})
			}))
			defer server.Close()

			issuer := NewHTTPIssuer(server.URL, "api-key", zap.NewNop())
			_, err := issuer.Issue(context.Background(), "u@example.com", "x")
			var issueErr *IssueError
			if !errors.As(err, &issueErr) {
				t.Fatalf("expected IssueError, got %v", err)
			}
			if issueErr.Reason != tc.reason {
				t.Fatalf("expected %s, got %s", tc.reason, issueErr.Reason)
			}
		})
	}
}

func TestHTTPIssuer_ServerErrorIsNotRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("{}"))
	}))
	defer server.Close()

	issuer := NewHTTPIssuer(server.URL, "api-key", zap.NewNop())
	_, err := issuer.Issue(context.Background(), "u@example.com", "hunter22")
	if err == nil {
		t.Fatal("expected error")
	}
	var issueErr *IssueError
	if errors.As(err, &issueErr) {
		t.Fatalf("a 5xx must not classify as rejection, got %v", err)
	}
}
