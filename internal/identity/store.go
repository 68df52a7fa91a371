package identity

import (
	"context"

	"github.com/google/uuid"

	"docvault/pkg/apierrors"
)

// Sentinel store errors. Duplicate checks happen atomically inside Create so
// concurrent registrations cannot both pass a read-then-check.
var (
	ErrNotFound            = apierrors.New(apierrors.CodeNotFound, "user not found")
	ErrDuplicateEmail      = apierrors.New(apierrors.CodeDuplicateIdentity, "email is already registered")
	ErrDuplicateNationalID = apierrors.New(apierrors.CodeDuplicateIdentity, "national id is already registered")
)

// Store persists user records. Implementations are interface-driven so the
// service stays testable against the in-memory variant.
type Store interface {
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByNationalID(ctx context.Context, nationalID string) (*User, error)
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]*User, error)
}
