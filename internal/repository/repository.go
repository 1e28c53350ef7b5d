// Package repository declares the storage interfaces the portal and CLI
// depend on. Implementations live in subpackages (sqlite).
package repository

import (
	"context"
	"time"

	"github.com/sakif/xeenux-portal/internal/model"
)

// SessionRepository persists login sessions.
//
// Get returns apperror.ErrNotFound for an unknown id. Save overwrites the
// token pair and user of an existing session and bumps UpdatedAt.
// DeleteExpired returns the ids it removed.
type SessionRepository interface {
	Create(ctx context.Context, s *model.Session) error
	Get(ctx context.Context, id string) (*model.Session, error)
	Save(ctx context.Context, s *model.Session) error
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, before time.Time) ([]string, error)
}
