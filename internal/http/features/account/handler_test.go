package account

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tendant/simple-accounts/pkg/auth"
	"github.com/tendant/simple-accounts/pkg/domain"
	"github.com/tendant/simple-accounts/pkg/repository"
	"github.com/tendant/simple-accounts/pkg/token"
)

type noopNotifier struct{}

func (noopNotifier) SendConfirmationEmail(to, link string) error  { return nil }
func (noopNotifier) SendPasswordResetEmail(to, link string) error { return nil }

func newTestHandler(t *testing.T) (*Handler, *token.Provider, *repository.MemoryStore) {
	t.Helper()

	store := repository.NewMemoryStore()
	tokens, err := token.NewProvider(token.Config{
		Secret: []byte("test-secret-key-with-32-characters!"),
	}, store)
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registration := auth.NewRegistrationService(
		store, tokens, noopNotifier{}, nil, logger, "http://localhost:8080")

	return NewHandler(logger, registration), tokens, store
}

func postJSON(t *testing.T, handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func TestRegister(t *testing.T) {
	handler, _, store := newTestHandler(t)

	w := postJSON(t, handler.Register,
		`{"username": "alice", "email": "alice@example.com", "password": "Secr3t!pass"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusCreated, w.Body.String())
	}

	var resp RegisterResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Email != "alice@example.com" {
		t.Errorf("Email = %q, want %q", resp.Email, "alice@example.com")
	}

	acct, err := store.GetByEmail(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("GetByEmail failed: %v", err)
	}
	if acct.EmailConfirmed {
		t.Error("new account must start unconfirmed")
	}
}

func TestRegister_Validation(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"invalid JSON", `{invalid`, http.StatusBadRequest},
		{"missing fields", `{"username": "alice"}`, http.StatusBadRequest},
		{"bad email", `{"username": "alice", "email": "not-an-email", "password": "Secr3t!pass"}`, http.StatusBadRequest},
		{"bad username", `{"username": "-x", "email": "alice@example.com", "password": "Secr3t!pass"}`, http.StatusBadRequest},
		{"weak password", `{"username": "alice", "email": "alice@example.com", "password": "short"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, handler.Register, tt.body)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestRegister_Duplicate(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	body := `{"username": "alice", "email": "alice@example.com", "password": "Secr3t!pass"}`
	if w := postJSON(t, handler.Register, body); w.Code != http.StatusCreated {
		t.Fatalf("first register: status = %d, want %d", w.Code, http.StatusCreated)
	}
	if w := postJSON(t, handler.Register, body); w.Code != http.StatusConflict {
		t.Errorf("second register: status = %d, want %d", w.Code, http.StatusConflict)
	}
}

func TestConfirmEmail(t *testing.T) {
	handler, tokens, store := newTestHandler(t)

	if w := postJSON(t, handler.Register,
		`{"username": "alice", "email": "alice@example.com", "password": "Secr3t!pass"}`); w.Code != http.StatusCreated {
		t.Fatalf("register: status = %d, want %d", w.Code, http.StatusCreated)
	}
	acct, err := store.GetByEmail(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("GetByEmail failed: %v", err)
	}
	rawToken, err := tokens.Issue(context.Background(), acct.ID, domain.PurposeConfirmEmail)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	url := fmt.Sprintf("/v1/accounts/confirm-email?id=%s&token=%s", acct.ID, rawToken)
	req := httptest.NewRequest(http.MethodGet, url, nil)
	w := httptest.NewRecorder()
	handler.ConfirmEmail(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}

	confirmed, _ := store.GetByID(context.Background(), acct.ID)
	if !confirmed.EmailConfirmed {
		t.Error("account should be confirmed")
	}

	// A second redemption reports already confirmed.
	w = httptest.NewRecorder()
	handler.ConfirmEmail(w, httptest.NewRequest(http.MethodGet, url, nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("second redemption: status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if !strings.Contains(w.Body.String(), "already confirmed") {
		t.Errorf("body %q should mention already confirmed", w.Body.String())
	}
}

func TestConfirmEmail_BadRequests(t *testing.T) {
	handler, _, store := newTestHandler(t)

	if w := postJSON(t, handler.Register,
		`{"username": "alice", "email": "alice@example.com", "password": "Secr3t!pass"}`); w.Code != http.StatusCreated {
		t.Fatalf("register: status = %d, want %d", w.Code, http.StatusCreated)
	}
	acct, err := store.GetByEmail(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("GetByEmail failed: %v", err)
	}

	tests := []struct {
		name string
		url  string
	}{
		{"missing params", "/v1/accounts/confirm-email"},
		{"malformed id", "/v1/accounts/confirm-email?id=not-a-uuid&token=x"},
		{"wrong token", fmt.Sprintf("/v1/accounts/confirm-email?id=%s&token=bogus", acct.ID)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.ConfirmEmail(w, httptest.NewRequest(http.MethodGet, tt.url, nil))
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestResendConfirmation_UniformResponse(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	if w := postJSON(t, handler.Register,
		`{"username": "alice", "email": "alice@example.com", "password": "Secr3t!pass"}`); w.Code != http.StatusCreated {
		t.Fatalf("register: status = %d, want %d", w.Code, http.StatusCreated)
	}

	// Registered and unknown addresses get the same answer.
	for _, body := range []string{
		`{"email": "alice@example.com"}`,
		`{"email": "nobody@example.com"}`,
	} {
		w := postJSON(t, handler.ResendConfirmation, body)
		if w.Code != http.StatusAccepted {
			t.Errorf("status = %d, want %d for %s", w.Code, http.StatusAccepted, body)
		}
	}

	if w := postJSON(t, handler.ResendConfirmation, `{}`); w.Code != http.StatusBadRequest {
		t.Errorf("empty email: status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}
