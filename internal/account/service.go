package account

import (
	"context"
	"strings"

	"stridelog/internal/crypto"
	"stridelog/internal/ids"
)

// Service registers and authenticates accounts. Personal profile fields are
// replaced with their encrypted form before they reach the store and
// decrypted on the way out; a field that fails to decrypt stays encrypted
// rather than failing the whole read.
type Service struct {
	store  Store
	engine *crypto.Engine
	fields []string
}

// NewService wires the store and encryption engine. The protected field set
// defaults to the personal-data preset.
func NewService(store Store, engine *crypto.Engine) *Service {
	return &Service{
		store:  store,
		engine: engine,
		fields: crypto.FieldSetPersonal,
	}
}

// Register creates an account with a hashed password and encrypted profile.
func (s *Service) Register(ctx context.Context, email, password string, profile map[string]any) (*Account, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, ErrInvalidCredentials
	}
	if _, err := s.store.FindByEmail(ctx, email); err == nil {
		return nil, ErrAlreadyExists
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	stored := profile
	if len(profile) > 0 {
		stored, err = s.engine.EncryptFields(profile, s.fields)
		if err != nil {
			return nil, err
		}
	}
	acct := &Account{
		ID:           ids.New(),
		Email:        email,
		PasswordHash: hash,
		Profile:      stored,
	}
	if err := s.store.Create(ctx, acct); err != nil {
		return nil, err
	}
	return s.withDecryptedProfile(acct), nil
}

// Authenticate verifies credentials and returns the account. All failure
// modes collapse into ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Account, error) {
	acct, err := s.store.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := VerifyPassword(acct.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.withDecryptedProfile(acct), nil
}

// Get loads an account by id with its profile decrypted.
func (s *Service) Get(ctx context.Context, id string) (*Account, error) {
	acct, err := s.store.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.withDecryptedProfile(acct), nil
}

func (s *Service) withDecryptedProfile(acct *Account) *Account {
	if len(acct.Profile) == 0 {
		return acct
	}
	out := *acct
	out.Profile = s.engine.DecryptFields(acct.Profile, s.fields)
	return &out
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
