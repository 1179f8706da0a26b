// Package directory looks up users owned by the external identity system.
package directory

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/uptrace/bun"

	"consultbook/backend/internal/domain"
)

var ErrUserNotFound = errors.New("user not found")

type User struct {
	bun.BaseModel `bun:"table:directory_users"`

	ID          string      `bun:"id,pk"`
	Role        domain.Role `bun:"role,notnull"`
	DisplayName string      `bun:"display_name"`
	DeletedAt   *time.Time  `bun:"deleted_at"`
}

type Directory interface {
	Lookup(ctx context.Context, userID string) (User, error)
}

// Postgres reads the directory_users read model.
type Postgres struct {
	db *bun.DB
}

func NewPostgres(db *bun.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Lookup(ctx context.Context, userID string) (User, error) {
	var u User
	err := p.db.NewSelect().
		Model(&u).
		Where("id = ?", userID).
		Where("deleted_at IS NULL").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}
	return u, nil
}

// Static is an in-memory directory for local runs and tests.
type Static struct {
	mu    sync.RWMutex
	users map[string]User
}

func NewStatic(users ...User) *Static {
	s := &Static{users: make(map[string]User, len(users))}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *Static) Put(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func (s *Static) Lookup(ctx context.Context, userID string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok || u.DeletedAt != nil {
		return User{}, ErrUserNotFound
	}
	return u, nil
}
