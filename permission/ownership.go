package permission

import (
	"github.com/medhist/annotation-iam/errors"
)

// Owned is implemented by resources that record the user who created them.
type Owned interface {
	OwnerID() string
}

// AssertOwner fails with errors.ErrForbidden unless actingUserID created the
// resource. There is no administrative override.
func AssertOwner(resource Owned, actingUserID string) error {
	if resource == nil || actingUserID == "" || resource.OwnerID() != actingUserID {
		return errors.ForbiddenError("You do not own this resource")
	}
	return nil
}
