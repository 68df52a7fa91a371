// Package access is the authorization decision layer consulted before every
// protected document operation. All functions are pure: the requester identity
// arrives as an explicit parameter, never from ambient state, so decisions are
// testable in isolation.
//
// Ownership always dominates; a grant can only add capability, never restrict
// the owner's.
package access

import (
	"github.com/google/uuid"
)

// RoleAdmin is the only role with capabilities beyond plain users.
const RoleAdmin = "admin"

// CanRead reports whether userID may see the document's metadata. Owners
// always can; the presence of any grant implies at least view.
func CanRead(doc *Document, userID uuid.UUID) bool {
	if doc.OwnerID == userID {
		return true
	}
	_, ok := doc.GrantFor(userID)
	return ok
}

// CanDownload reports whether userID may retrieve the stored bytes. Strictly
// stronger than CanRead: a grant must carry the download permission.
func CanDownload(doc *Document, userID uuid.UUID) bool {
	if doc.OwnerID == userID {
		return true
	}
	grant, ok := doc.GrantFor(userID)
	return ok && grant.Allows(PermissionDownload)
}

// CanMutate reports whether userID may update the document. Owner only:
// grantees never mutate, regardless of permissions.
func CanMutate(doc *Document, userID uuid.UUID) bool {
	return doc.OwnerID == userID
}

// CanDelete reports whether userID may delete the document. Owner only.
func CanDelete(doc *Document, userID uuid.UUID) bool {
	return doc.OwnerID == userID
}

// CanShare reports whether userID may add grants. Owner only: grantees never
// re-share.
func CanShare(doc *Document, userID uuid.UUID) bool {
	return doc.OwnerID == userID
}

// CanViewLogs reports whether the requester may read the audit trail of
// targetUserID: self or admin.
func CanViewLogs(targetUserID, requesterID uuid.UUID, requesterRole string) bool {
	return targetUserID == requesterID || requesterRole == RoleAdmin
}
