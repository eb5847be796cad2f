package identity

import (
	"context"

	"github.com/medhist/annotation-iam/errors"
	"github.com/medhist/annotation-iam/models"
)

// UserLoader loads a user together with its roles and their permissions.
// A missing user is reported as errors.ErrNotFound.
type UserLoader interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// Resolver turns a verified user id into the request's Identity. It keeps no
// state: every call reads from the store so role changes apply on the next
// request.
type Resolver struct {
	users UserLoader
}

// NewResolver create to resolver instance
func NewResolver(users UserLoader) *Resolver {
	return &Resolver{users: users}
}

// Resolve fails with errors.ErrAuthentication when the user no longer exists
// or is inactive. Other store failures are returned as they are.
func (r *Resolver) Resolve(ctx context.Context, userID string) (*Identity, error) {
	if userID == "" {
		return nil, errors.AuthenticationError("user not found")
	}
	u, err := r.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.Wrap(errors.ErrAuthentication, "user not found", err)
		}
		return nil, err
	}
	if !u.IsActive {
		return nil, errors.Wrap(errors.ErrAuthentication, "user not found", errors.New("user "+userID+" is inactive"))
	}
	return FromUser(u), nil
}
