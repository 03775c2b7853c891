package services

import (
	"context"
	"errors"
	"testing"

	"github.com/rnrnshn/alx-polly/internal/testutil"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	svc := NewAccountService(conn)
	ctx := context.Background()

	p, err := svc.Register(ctx, " Ana@Example.com ", "secret1", "Ana")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if p.Email != "ana@example.com" {
		t.Errorf("email not normalised: %q", p.Email)
	}
	if p.PasswordHash == "secret1" || p.AvatarURL == "" {
		t.Errorf("password stored in clear or avatar missing")
	}

	if _, err := svc.Register(ctx, "ana@example.com", "another1", ""); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("expected ErrEmailTaken, got %v", err)
	}

	got, err := svc.Authenticate(ctx, "ANA@example.com", "secret1")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if got.ID != p.ID {
		t.Errorf("authenticated wrong profile")
	}

	if _, err := svc.Authenticate(ctx, "ana@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "nobody@example.com", "secret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email: expected ErrInvalidCredentials, got %v", err)
	}
}

func TestRegister_Validation(t *testing.T) {
	svc := NewAccountService(testutil.SetupTestDB(t))
	ctx := context.Background()

	tests := []struct {
		name, email, password string
	}{
		{"bad email", "not-an-email", "secret1"},
		{"display form email", "Ana <ana@example.com>", "secret1"},
		{"short password", "ana@example.com", "12345"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Register(ctx, tt.email, tt.password, ""); !errors.Is(err, ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestGoogleProfile(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	svc := NewAccountService(conn)
	ctx := context.Background()

	if _, err := svc.GoogleProfile(ctx, GoogleUserInfo{ID: "g1", Email: "x@example.com"}); !errors.Is(err, ErrValidation) {
		t.Errorf("unverified email: expected ErrValidation, got %v", err)
	}

	created, err := svc.GoogleProfile(ctx, GoogleUserInfo{ID: "g1", Email: "new@example.com", VerifiedEmail: true, Name: "New"})
	if err != nil {
		t.Fatalf("GoogleProfile failed: %v", err)
	}
	if created.GoogleID != "g1" || created.DisplayName != "New" {
		t.Errorf("unexpected profile %+v", created)
	}
	again, err := svc.GoogleProfile(ctx, GoogleUserInfo{ID: "g1", Email: "new@example.com", VerifiedEmail: true})
	if err != nil || again.ID != created.ID {
		t.Errorf("second sign-in did not find the same profile: %v", err)
	}
	if _, err := svc.Authenticate(ctx, "new@example.com", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("google-only profile accepted an empty password")
	}

	existing, err := svc.Register(ctx, "old@example.com", "secret1", "")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	linked, err := svc.GoogleProfile(ctx, GoogleUserInfo{ID: "g2", Email: "old@example.com", VerifiedEmail: true})
	if err != nil {
		t.Fatalf("GoogleProfile failed: %v", err)
	}
	if linked.ID != existing.ID {
		t.Errorf("google sign-in did not link the existing profile")
	}
	reloaded, _ := svc.Get(ctx, existing.ID)
	if reloaded == nil || reloaded.GoogleID != "g2" {
		t.Errorf("google id not stored on link")
	}

	if _, err := svc.Get(ctx, "missing"); !errors.Is(err, ErrProfileMissing) {
		t.Errorf("expected ErrProfileMissing, got %v", err)
	}
}
