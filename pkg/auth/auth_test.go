package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/tendant/simple-accounts/pkg/domain"
	"github.com/tendant/simple-accounts/pkg/repository"
	"github.com/tendant/simple-accounts/pkg/token"
)

const testTokenSecret = "test-secret-key-with-32-characters!"

// fakeNotifier records dispatched links instead of sending mail.
type fakeNotifier struct {
	confirmations []sentMail
	resets        []sentMail
	failWith      error
}

type sentMail struct {
	to   string
	link string
}

func (n *fakeNotifier) SendConfirmationEmail(to, link string) error {
	if n.failWith != nil {
		return n.failWith
	}
	n.confirmations = append(n.confirmations, sentMail{to: to, link: link})
	return nil
}

func (n *fakeNotifier) SendPasswordResetEmail(to, link string) error {
	if n.failWith != nil {
		return n.failWith
	}
	n.resets = append(n.resets, sentMail{to: to, link: link})
	return nil
}

// testKit wires the full service stack against the in-memory store.
type testKit struct {
	store        *repository.MemoryStore
	tokens       *token.Provider
	notifier     *fakeNotifier
	lockout      *LockoutPolicy
	authn        *AuthenticationService
	registration *RegistrationService
	reset        *PasswordResetService
}

func newTestKit(t *testing.T) *testKit {
	t.Helper()

	store := repository.NewMemoryStore()
	tokens, err := token.NewProvider(token.Config{
		Secret: []byte(testTokenSecret),
	}, store)
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	notifier := &fakeNotifier{}
	lockout := DefaultLockoutPolicy()
	policy := &PasswordPolicy{MinLength: 6}

	return &testKit{
		store:        store,
		tokens:       tokens,
		notifier:     notifier,
		lockout:      lockout,
		authn:        NewAuthenticationService(AuthConfig{UniformFailures: true}, store, lockout, logger),
		registration: NewRegistrationService(store, tokens, notifier, policy, logger, "http://localhost:8080"),
		reset:        NewPasswordResetService(store, tokens, notifier, policy, logger, "http://localhost:8080"),
	}
}

// registerConfirmed registers an account and confirms its email.
func (k *testKit) registerConfirmed(t *testing.T, username, email, password string) *domain.Account {
	t.Helper()

	acct, err := k.registration.Register(context.Background(), username, email, password)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	rawToken, err := k.tokens.Issue(context.Background(), acct.ID, domain.PurposeConfirmEmail)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if err := k.registration.ConfirmEmail(context.Background(), acct.ID, rawToken); err != nil {
		t.Fatalf("ConfirmEmail failed: %v", err)
	}

	confirmed, err := k.store.GetByID(context.Background(), acct.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	return confirmed
}

// fixedClock returns a controllable clock starting at a fixed instant.
type fixedClock struct {
	now time.Time
}

func newFixedClock() *fixedClock {
	return &fixedClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fixedClock) Now() time.Time {
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}
