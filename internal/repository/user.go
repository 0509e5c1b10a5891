package repository

import (
	"context"

	"docmanager/internal/model"
)

// UserRepository resolves identities that documents are attributed to.
type UserRepository interface {
	FindByUsername(ctx context.Context, username string) (*model.User, error)
}
