package access

import (
	"time"

	"github.com/google/uuid"
)

// The document model types are declared here, in the dependency-leaf access
// package, and re-exported from docvault/internal/document via type aliases.
// This breaks the import cycle document -> access -> document while keeping
// document.Document et al. as the canonical names used everywhere else.

// Permission is a capability a grant confers on a grantee.
type Permission string

const (
	PermissionView     Permission = "view"
	PermissionDownload Permission = "download"
)

// Type is the closed enumeration of document categories.
type Type string

const (
	TypePANCard           Type = "pan_card"
	TypeAadhaarCard       Type = "aadhaar_card"
	TypePassport          Type = "passport"
	TypeDrivingLicense    Type = "driving_license"
	TypeVoterID           Type = "voter_id"
	TypeMarkSheet         Type = "mark_sheet"
	TypeDegreeCertificate Type = "degree_certificate"
	TypeIncomeCertificate Type = "income_certificate"
	TypeCasteCertificate  Type = "caste_certificate"
	TypeBirthCertificate  Type = "birth_certificate"
	TypeOther             Type = "other"
)

// Grant authorizes one grantee a permission subset on a document. Grants are
// appended by the owner and never merged: one active grant per grantee.
type Grant struct {
	GranteeID   uuid.UUID    `json:"granteeId"`
	Permissions []Permission `json:"permissions"`
	GrantedAt   time.Time    `json:"grantedAt"`
	GrantedBy   uuid.UUID    `json:"grantedBy"`
}

// Allows reports whether the grant includes the permission.
func (g Grant) Allows(p Permission) bool {
	for _, perm := range g.Permissions {
		if perm == p {
			return true
		}
	}
	return false
}

// Metadata carries optional document attributes.
type Metadata struct {
	DocumentNumber   string     `json:"documentNumber,omitempty"`
	IssueDate        *time.Time `json:"issueDate,omitempty"`
	ExpiryDate       *time.Time `json:"expiryDate,omitempty"`
	IssuingAuthority string     `json:"issuingAuthority,omitempty"`
}

// Document is a registry entry: metadata, the stored-file reference, the
// owner, and the embedded grant list. The owner reference is immutable after
// creation.
type Document struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Type        Type      `json:"documentType"`
	FileName    string    `json:"fileName"`
	FileKey     string    `json:"-"`
	FileSize    int64     `json:"fileSize"`
	MimeType    string    `json:"mimeType"`
	OwnerID     uuid.UUID `json:"ownerId"`
	Grants      []Grant   `json:"sharedWith"`
	IsPublic    bool      `json:"isPublic"`
	Tags        []string  `json:"tags,omitempty"`
	Meta        Metadata  `json:"metadata"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// GrantFor returns the grant held by userID, if any.
func (d *Document) GrantFor(userID uuid.UUID) (Grant, bool) {
	for _, g := range d.Grants {
		if g.GranteeID == userID {
			return g, true
		}
	}
	return Grant{}, false
}
