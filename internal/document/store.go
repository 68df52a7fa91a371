package document

import (
	"context"

	"github.com/google/uuid"

	"docvault/pkg/apierrors"
)

// Store sentinels.
var (
	ErrNotFound      = apierrors.New(apierrors.CodeNotFound, "document not found")
	ErrAlreadyShared = apierrors.New(apierrors.CodeConflict, "document already shared with this user")
)

// Filter narrows listing queries. Search matches title, description, and tags.
type Filter struct {
	Type   Type
	Search string
	Page   int
	Limit  int
}

// Store persists document records and their share grants.
type Store interface {
	Create(ctx context.Context, doc *Document) error
	// FindByID returns the document with its grants loaded.
	FindByID(ctx context.Context, id uuid.UUID) (*Document, error)
	Update(ctx context.Context, doc *Document) error
	Delete(ctx context.Context, id uuid.UUID) error
	// ListOwned returns the owner's documents, newest-first, with the total
	// match count before pagination.
	ListOwned(ctx context.Context, ownerID uuid.UUID, filter Filter) ([]*Document, int, error)
	// ListSharedWith returns documents carrying a grant for the user.
	ListSharedWith(ctx context.Context, userID uuid.UUID, filter Filter) ([]*Document, int, error)
	// AddGrant appends a grant atomically. A grant for the same grantee
	// already present, even one racing in concurrently, yields
	// ErrAlreadyShared and leaves the existing grant untouched.
	AddGrant(ctx context.Context, docID uuid.UUID, grant Grant) error
}
