package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/tendant/simple-accounts/pkg/domain"
)

func TestLogin_Success(t *testing.T) {
	kit := newTestKit(t)
	acct := kit.registerConfirmed(t, "alice", "alice@example.com", "Secr3t!")

	got, err := kit.authn.Login(context.Background(), "alice@example.com", "Secr3t!")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if got.ID != acct.ID {
		t.Errorf("account ID = %v, want %v", got.ID, acct.ID)
	}
}

func TestLogin_EmailCaseInsensitive(t *testing.T) {
	kit := newTestKit(t)
	kit.registerConfirmed(t, "alice", "alice@example.com", "Secr3t!")

	if _, err := kit.authn.Login(context.Background(), "ALICE@Example.COM", "Secr3t!"); err != nil {
		t.Fatalf("Login with differently-cased email failed: %v", err)
	}
}

func TestLogin_UnknownEmail_Uniform(t *testing.T) {
	kit := newTestKit(t)

	_, err := kit.authn.Login(context.Background(), "nobody@example.com", "whatever")
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("error = %v, want ErrInvalidCredentials (uniform failures)", err)
	}
}

func TestLogin_UnknownEmail_Distinct(t *testing.T) {
	kit := newTestKit(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	authn := NewAuthenticationService(AuthConfig{UniformFailures: false}, kit.store, kit.lockout, logger)

	_, err := authn.Login(context.Background(), "nobody@example.com", "whatever")
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Errorf("error = %v, want ErrAccountNotFound (distinct failures)", err)
	}
}

func TestLogin_EmailNotConfirmed(t *testing.T) {
	kit := newTestKit(t)
	acct, err := kit.registration.Register(context.Background(), "bob", "bob@example.com", "Secr3t!")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	// Even the correct password is rejected before confirmation, and
	// the attempt does not consume a lockout try.
	_, err = kit.authn.Login(context.Background(), "bob@example.com", "Secr3t!")
	if !errors.Is(err, domain.ErrEmailNotConfirmed) {
		t.Fatalf("error = %v, want ErrEmailNotConfirmed", err)
	}

	stored, err := kit.store.GetByID(context.Background(), acct.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stored.FailedAccessCount != 0 {
		t.Errorf("FailedAccessCount = %d, want 0", stored.FailedAccessCount)
	}
}

func TestLogin_WrongPassword_IncrementsCounter(t *testing.T) {
	kit := newTestKit(t)
	acct := kit.registerConfirmed(t, "alice", "alice@example.com", "Secr3t!")

	_, err := kit.authn.Login(context.Background(), "alice@example.com", "wrong")
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("error = %v, want ErrInvalidCredentials", err)
	}

	stored, err := kit.store.GetByID(context.Background(), acct.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stored.FailedAccessCount != 1 {
		t.Errorf("FailedAccessCount = %d, want 1", stored.FailedAccessCount)
	}
}

func TestLogin_LockoutEngagesAtThreshold(t *testing.T) {
	kit := newTestKit(t)
	kit.registerConfirmed(t, "alice", "alice@example.com", "Secr3t!")

	var lockedOut *domain.LockedOutError
	for i := 0; i < kit.lockout.MaxFailedAttempts; i++ {
		_, err := kit.authn.Login(context.Background(), "alice@example.com", "wrong")
		if i < kit.lockout.MaxFailedAttempts-1 {
			if !errors.Is(err, domain.ErrInvalidCredentials) {
				t.Fatalf("attempt %d: error = %v, want ErrInvalidCredentials", i+1, err)
			}
		} else {
			if !errors.As(err, &lockedOut) {
				t.Fatalf("attempt %d: error = %v, want LockedOutError", i+1, err)
			}
		}
	}

	// Correct password during the lockout window is still rejected, and
	// the password is never even verified.
	_, err := kit.authn.Login(context.Background(), "alice@example.com", "Secr3t!")
	if !errors.As(err, &lockedOut) {
		t.Fatalf("error = %v, want LockedOutError during lockout", err)
	}
	if lockedOut.Remaining(time.Now()) <= 0 {
		t.Error("LockedOutError should carry remaining duration")
	}
}

func TestLogin_SuccessResetsCounterAndLockout(t *testing.T) {
	kit := newTestKit(t)
	acct := kit.registerConfirmed(t, "alice", "alice@example.com", "Secr3t!")

	for i := 0; i < 3; i++ {
		kit.authn.Login(context.Background(), "alice@example.com", "wrong")
	}

	if _, err := kit.authn.Login(context.Background(), "alice@example.com", "Secr3t!"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	stored, err := kit.store.GetByID(context.Background(), acct.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stored.FailedAccessCount != 0 {
		t.Errorf("FailedAccessCount = %d, want 0 after success", stored.FailedAccessCount)
	}
	if stored.LockoutEnd != nil {
		t.Errorf("LockoutEnd = %v, want nil after success", stored.LockoutEnd)
	}
}

func TestLogin_RetriesOnConcurrencyConflict(t *testing.T) {
	kit := newTestKit(t)
	acct := kit.registerConfirmed(t, "alice", "alice@example.com", "Secr3t!")

	// Simulate a concurrent writer: the service reads the account, then
	// another login attempt bumps the version before the write lands.
	store := &conflictOnceStore{CredentialStore: kit.store}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	authn := NewAuthenticationService(AuthConfig{UniformFailures: true}, store, kit.lockout, logger)

	_, err := authn.Login(context.Background(), "alice@example.com", "wrong")
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("error = %v, want ErrInvalidCredentials", err)
	}

	stored, err := kit.store.GetByID(context.Background(), acct.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stored.FailedAccessCount != 1 {
		t.Errorf("FailedAccessCount = %d, want 1 (conflict retried, not lost)", stored.FailedAccessCount)
	}
	if store.conflicts != 1 {
		t.Errorf("conflicts = %d, want 1", store.conflicts)
	}
}

// conflictOnceStore fails the first Update with a concurrency conflict.
type conflictOnceStore struct {
	CredentialStore
	conflicts int
}

func (s *conflictOnceStore) Update(ctx context.Context, account *domain.Account) error {
	if s.conflicts == 0 {
		s.conflicts++
		return domain.ErrConcurrencyConflict
	}
	return s.CredentialStore.Update(ctx, account)
}
