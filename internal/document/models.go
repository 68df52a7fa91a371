package document

import (
	"docvault/internal/access"
)

// The model types are declared in docvault/internal/access (the dependency
// leaf) and aliased here so this package remains their canonical home for
// callers, without the document -> access -> document import cycle.

// Permission is a capability a grant confers on a grantee.
type Permission = access.Permission

const (
	PermissionView     = access.PermissionView
	PermissionDownload = access.PermissionDownload
)

// ValidPermission reports whether p is a known permission.
func ValidPermission(p Permission) bool {
	return p == PermissionView || p == PermissionDownload
}

// Type is the closed enumeration of document categories.
type Type = access.Type

const (
	TypePANCard           = access.TypePANCard
	TypeAadhaarCard       = access.TypeAadhaarCard
	TypePassport          = access.TypePassport
	TypeDrivingLicense    = access.TypeDrivingLicense
	TypeVoterID           = access.TypeVoterID
	TypeMarkSheet         = access.TypeMarkSheet
	TypeDegreeCertificate = access.TypeDegreeCertificate
	TypeIncomeCertificate = access.TypeIncomeCertificate
	TypeCasteCertificate  = access.TypeCasteCertificate
	TypeBirthCertificate  = access.TypeBirthCertificate
	TypeOther             = access.TypeOther
)

var knownTypes = map[Type]struct{}{
	TypePANCard:           {},
	TypeAadhaarCard:       {},
	TypePassport:          {},
	TypeDrivingLicense:    {},
	TypeVoterID:           {},
	TypeMarkSheet:         {},
	TypeDegreeCertificate: {},
	TypeIncomeCertificate: {},
	TypeCasteCertificate:  {},
	TypeBirthCertificate:  {},
	TypeOther:             {},
}

// ValidType reports whether t is part of the enumeration.
func ValidType(t Type) bool {
	_, ok := knownTypes[t]
	return ok
}

// Grant authorizes one grantee a permission subset on a document. Grants are
// appended by the owner and never merged: one active grant per grantee.
type Grant = access.Grant

// Metadata carries optional document attributes.
type Metadata = access.Metadata

// Document is a registry entry: metadata, the stored-file reference, the
// owner, and the embedded grant list. The owner reference is immutable after
// creation.
type Document = access.Document
