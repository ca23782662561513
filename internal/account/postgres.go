package account

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store on PostgreSQL. The profile column is jsonb and
// holds the already-encrypted field shapes.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Create(ctx context.Context, a *Account) error {
	profile, err := json.Marshal(a.Profile)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`insert into accounts(id, email, password_hash, profile) values($1,$2,$3,$4)`,
		a.ID, a.Email, a.PasswordHash, profile,
	)
	return err
}

func (s *PGStore) Find(ctx context.Context, id string) (*Account, error) {
	return s.scanOne(s.db.QueryRowContext(ctx,
		`select id, email, password_hash, profile, created_at, updated_at from accounts where id=$1`, id))
}

func (s *PGStore) FindByEmail(ctx context.Context, email string) (*Account, error) {
	return s.scanOne(s.db.QueryRowContext(ctx,
		`select id, email, password_hash, profile, created_at, updated_at from accounts where email=$1`, email))
}

func (s *PGStore) scanOne(row *sql.Row) (*Account, error) {
	var (
		a       Account
		profile []byte
	)
	if err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &profile, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if len(profile) > 0 {
		_ = json.Unmarshal(profile, &a.Profile)
	}
	return &a, nil
}
