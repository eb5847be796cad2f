package identity

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medhist/annotation-iam/errors"
	"github.com/medhist/annotation-iam/models"
)

type memoryUsers map[string]*models.User

func (m memoryUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	u, ok := m[id]
	if !ok {
		return nil, errors.NotFoundError("user not found")
	}
	return u, nil
}

type failingUsers struct{ err error }

func (f failingUsers) GetByID(context.Context, string) (*models.User, error) { return nil, f.err }

func perms(names ...string) []models.Permission {
	out := make([]models.Permission, 0, len(names))
	for _, n := range names {
		out = append(out, models.Permission{ID: "p-" + n, Name: n})
	}
	return out
}

func TestResolvePermissionUnion(t *testing.T) {
	users := memoryUsers{
		"u1": {
			ID: "u1", Username: "carol", IsActive: true,
			Roles: []models.Role{
				{ID: "r1", Name: "R1", Permissions: perms("A", "B")},
				{ID: "r2", Name: "R2", Permissions: perms("B", "C")},
			},
		},
	}
	r := NewResolver(users)

	id, err := r.Resolve(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", id.UserID)
	assert.Equal(t, "carol", id.Username)
	assert.ElementsMatch(t, []string{"R1", "R2"}, id.Roles)
	assert.ElementsMatch(t, []string{"A", "B", "C"}, id.Permissions)
	assert.Len(t, id.Permissions, 3)
}

func TestResolveUserWithoutRoles(t *testing.T) {
	r := NewResolver(memoryUsers{"u1": {ID: "u1", Username: "dave", IsActive: true}})

	id, err := r.Resolve(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, id.Roles)
	assert.Empty(t, id.Permissions)
	assert.NotNil(t, id.Permissions)
}

func TestResolveMissingUser(t *testing.T) {
	r := NewResolver(memoryUsers{})

	_, err := r.Resolve(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrAuthentication))
	assert.Equal(t, 401, errors.ResponseFor(err).StatusCode)

	_, err = r.Resolve(context.Background(), "")
	assert.True(t, errors.Is(err, errors.ErrAuthentication))
}

func TestResolveInactiveUser(t *testing.T) {
	users := memoryUsers{"u1": {ID: "u1", Username: "erin", IsActive: true,
		Roles: []models.Role{{Name: models.RoleViewer, Permissions: perms("VIEW_SAMPLES")}}}}
	r := NewResolver(users)

	_, err := r.Resolve(context.Background(), "u1")
	require.NoError(t, err)

	users["u1"].IsActive = false
	_, err = r.Resolve(context.Background(), "u1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrAuthentication))
}

func TestResolveStoreFailureIsNotAuthentication(t *testing.T) {
	r := NewResolver(failingUsers{err: fmt.Errorf("connection reset")})

	_, err := r.Resolve(context.Background(), "u1")
	require.Error(t, err)
	assert.False(t, errors.Is(err, errors.ErrAuthentication))
	assert.Equal(t, 500, errors.ResponseFor(err).StatusCode)
}

func TestContextRoundTrip(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	id := &Identity{UserID: "u1"}
	got, ok := FromContext(WithIdentity(context.Background(), id))
	require.True(t, ok)
	assert.Same(t, id, got)

	_, ok = FromContext(WithIdentity(context.Background(), nil))
	assert.False(t, ok)
}
