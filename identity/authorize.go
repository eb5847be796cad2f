package identity

import (
	"strings"

	"github.com/medhist/annotation-iam/errors"
)

// Authorize all-of: every required permission must be held.
func Authorize(id *Identity, required ...string) error {
	if id == nil {
		return errors.AuthenticationError("")
	}
	if missing := id.permissionSet().Missing(required...); len(missing) > 0 {
		return errors.Wrap(errors.ErrAuthorization, "",
			errors.New("missing permissions: "+strings.Join(missing, ",")))
	}
	return nil
}

// HasRole any-of: at least one of the listed roles must be held.
func HasRole(id *Identity, roles ...string) error {
	if id == nil {
		return errors.AuthenticationError("")
	}
	if !id.roleSet().HasAny(roles...) {
		return errors.Wrap(errors.ErrAuthorization, "",
			errors.New("none of roles held: "+strings.Join(roles, ",")))
	}
	return nil
}
