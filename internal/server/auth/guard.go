package auth

import "github.com/dmitrijs2005/quillpost/internal/common"

// AuthorizeMutation allows a change only when the principal owns the resource.
// Existence must be checked by the caller beforehand.
func AuthorizeMutation(claims *Claims, ownerID string) error {
	if claims == nil || claims.UserID == "" || claims.UserID != ownerID {
		return common.ErrorForbidden
	}
	return nil
}
