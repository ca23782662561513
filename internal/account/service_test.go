package account

import (
	"context"
	"errors"
	"testing"

	"stridelog/internal/crypto"
)

func testService(t *testing.T) (*Service, *MemoryStore) {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	engine, err := crypto.NewEngine(key)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	store := NewMemoryStore()
	return NewService(store, engine), store
}

func TestRegisterAndAuthenticate(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	acct, err := svc.Register(ctx, "  Runner@Example.com ", "tempo-pass-1", nil)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if acct.Email != "runner@example.com" {
		t.Fatalf("email not normalized: %q", acct.Email)
	}
	if acct.PasswordHash == "tempo-pass-1" || acct.PasswordHash == "" {
		t.Fatal("password must be stored hashed")
	}

	got, err := svc.Authenticate(ctx, "runner@example.com", "tempo-pass-1")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if got.ID != acct.ID {
		t.Fatalf("wrong account: %q vs %q", got.ID, acct.ID)
	}

	if _, err := svc.Authenticate(ctx, "runner@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "nobody@example.com", "tempo-pass-1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "runner@example.com", "tempo-pass-1", nil); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.Register(ctx, "runner@example.com", "other-pass", nil); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestProfilePersonalFieldsEncryptedAtRest(t *testing.T) {
	svc, store := testService(t)
	ctx := context.Background()

	profile := map[string]any{
		"dateOfBirth": "1990-04-12",
		"weight":      70.5,
		"displayName": "trail_fan",
	}
	acct, err := svc.Register(ctx, "runner@example.com", "tempo-pass-1", profile)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	// The caller sees plaintext.
	if acct.Profile["dateOfBirth"] != "1990-04-12" {
		t.Fatalf("returned profile not decrypted: %v", acct.Profile)
	}

	// The store holds ciphertext for personal fields and plaintext for the rest.
	raw, err := store.Find(ctx, acct.ID)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if !crypto.IsEncryptedValue(raw.Profile["dateOfBirth"]) {
		t.Fatalf("dateOfBirth stored in plaintext: %v", raw.Profile["dateOfBirth"])
	}
	if !crypto.IsEncryptedValue(raw.Profile["weight"]) {
		t.Fatalf("weight stored in plaintext: %v", raw.Profile["weight"])
	}
	if raw.Profile["displayName"] != "trail_fan" {
		t.Fatalf("non-personal field should pass through: %v", raw.Profile["displayName"])
	}

	// Reading back decrypts.
	got, err := svc.Get(ctx, acct.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Profile["dateOfBirth"] != "1990-04-12" || got.Profile["weight"] != "70.5" {
		t.Fatalf("profile not restored: %v", got.Profile)
	}
}
