package auth

import "github.com/utafrali/inkwell/internal/domain"

// IsOwnerOrElevated reports whether p may mutate a resource owned by
// ownerID: owners always may, as may moderators and admins.
func IsOwnerOrElevated(ownerID int64, p domain.Principal) bool {
	return (p.ID > 0 && p.ID == ownerID) || p.Role.Elevated()
}

// Authorize returns a NOT_AUTHORIZED error unless IsOwnerOrElevated holds.
func Authorize(ownerID int64, p domain.Principal) error {
	if !IsOwnerOrElevated(ownerID, p) {
		return domain.NotAuthorizedError()
	}
	return nil
}
