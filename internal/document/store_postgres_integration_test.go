//go:build integration

package document_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"docvault/internal/document"
	"docvault/internal/identity"
	"docvault/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *document.PostgresStore
	users    *identity.PostgresStore

	owner   uuid.UUID
	grantee uuid.UUID
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = document.NewPostgresStore(s.postgres.DB)
	s.users = identity.NewPostgresStore(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx, "documents", "document_grants", "users"))
	s.owner = s.seedUser("owner@example.com", "111111111111")
	s.grantee = s.seedUser("grantee@example.com", "222222222222")
}

func (s *PostgresStoreSuite) seedUser(email, nationalID string) uuid.UUID {
	now := time.Now().UTC()
	user := &identity.User{
		ID:           uuid.New(),
		Name:         "Test User",
		Email:        email,
		NationalID:   nationalID,
		PasswordHash: "$2a$04$hash",
		DateOfBirth:  time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
		Role:         identity.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.Require().NoError(s.users.Create(context.Background(), user))
	return user.ID
}

func (s *PostgresStoreSuite) newDoc(title string, docType document.Type) *document.Document {
	now := time.Now().UTC().Truncate(time.Microsecond)
	id := uuid.New()
	return &document.Document{
		ID:        id,
		Title:     title,
		Type:      docType,
		FileName:  "file.pdf",
		FileKey:   s.owner.String() + "/" + id.String() + ".pdf",
		FileSize:  1024,
		MimeType:  "application/pdf",
		OwnerID:   s.owner,
		Tags:      []string{"identity"},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *PostgresStoreSuite) TestCreateAndFindRoundTrip() {
	ctx := context.Background()
	issue := time.Date(2020, 4, 1, 0, 0, 0, 0, time.UTC)
	doc := s.newDoc("My PAN card", document.TypePANCard)
	doc.Meta = document.Metadata{
		DocumentNumber:   "ABCDE1234F",
		IssueDate:        &issue,
		IssuingAuthority: "Income Tax Department",
	}
	s.Require().NoError(s.store.Create(ctx, doc))

	got, err := s.store.FindByID(ctx, doc.ID)
	s.Require().NoError(err)
	s.Equal(doc.Title, got.Title)
	s.Equal(doc.FileKey, got.FileKey)
	s.Equal([]string{"identity"}, got.Tags)
	s.Equal("ABCDE1234F", got.Meta.DocumentNumber)
	s.Require().NotNil(got.Meta.IssueDate)
	s.True(issue.Equal(*got.Meta.IssueDate))
	s.Nil(got.Meta.ExpiryDate)
	s.Empty(got.Grants)
}

func (s *PostgresStoreSuite) TestFindUnknownDocument() {
	_, err := s.store.FindByID(context.Background(), uuid.New())
	s.ErrorIs(err, document.ErrNotFound)
}

func (s *PostgresStoreSuite) TestUpdateMetadata() {
	ctx := context.Background()
	doc := s.newDoc("Old", document.TypeOther)
	s.Require().NoError(s.store.Create(ctx, doc))

	doc.Title = "New"
	doc.Tags = []string{"renamed"}
	doc.UpdatedAt = time.Now().UTC()
	s.Require().NoError(s.store.Update(ctx, doc))

	got, err := s.store.FindByID(ctx, doc.ID)
	s.Require().NoError(err)
	s.Equal("New", got.Title)
	s.Equal([]string{"renamed"}, got.Tags)

	ghost := s.newDoc("Ghost", document.TypeOther)
	s.ErrorIs(s.store.Update(ctx, ghost), document.ErrNotFound)
}

func (s *PostgresStoreSuite) TestAddGrantDuplicateLoses() {
	ctx := context.Background()
	doc := s.newDoc("Shared", document.TypePassport)
	s.Require().NoError(s.store.Create(ctx, doc))

	grant := document.Grant{
		GranteeID:   s.grantee,
		Permissions: []document.Permission{document.PermissionView},
		GrantedAt:   time.Now().UTC(),
		GrantedBy:   s.owner,
	}
	s.Require().NoError(s.store.AddGrant(ctx, doc.ID, grant))

	wider := grant
	wider.Permissions = []document.Permission{document.PermissionView, document.PermissionDownload}
	s.ErrorIs(s.store.AddGrant(ctx, doc.ID, wider), document.ErrAlreadyShared)

	got, err := s.store.FindByID(ctx, doc.ID)
	s.Require().NoError(err)
	s.Require().Len(got.Grants, 1)
	s.Equal([]document.Permission{document.PermissionView}, got.Grants[0].Permissions)
}

// TestAddGrantConcurrentDuplicates verifies the UNIQUE constraint serializes
// racing shares: exactly one insert wins.
func (s *PostgresStoreSuite) TestAddGrantConcurrentDuplicates() {
	ctx := context.Background()
	doc := s.newDoc("Raced", document.TypePANCard)
	s.Require().NoError(s.store.Create(ctx, doc))

	const goroutines = 16
	var wg sync.WaitGroup
	var wins atomic.Int32
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.AddGrant(ctx, doc.ID, document.Grant{
				GranteeID:   s.grantee,
				Permissions: []document.Permission{document.PermissionView},
				GrantedAt:   time.Now().UTC(),
				GrantedBy:   s.owner,
			})
			if err == nil {
				wins.Add(1)
			} else {
				s.ErrorIs(err, document.ErrAlreadyShared)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), wins.Load(), "exactly one concurrent share may succeed")

	got, err := s.store.FindByID(ctx, doc.ID)
	s.Require().NoError(err)
	s.Len(got.Grants, 1)
}

func (s *PostgresStoreSuite) TestAddGrantUnknownDocument() {
	err := s.store.AddGrant(context.Background(), uuid.New(), document.Grant{
		GranteeID:   s.grantee,
		Permissions: []document.Permission{document.PermissionView},
		GrantedAt:   time.Now().UTC(),
		GrantedBy:   s.owner,
	})
	s.ErrorIs(err, document.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListOwnedFilterAndPagination() {
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)

	pan := s.newDoc("My PAN card", document.TypePANCard)
	pan.CreatedAt = base
	passport := s.newDoc("Passport", document.TypePassport)
	passport.Description = "Travel document"
	passport.CreatedAt = base.Add(time.Minute)
	marksheet := s.newDoc("Class XII mark sheet", document.TypeMarkSheet)
	marksheet.Tags = []string{"education"}
	marksheet.CreatedAt = base.Add(2 * time.Minute)
	for _, d := range []*document.Document{pan, passport, marksheet} {
		s.Require().NoError(s.store.Create(ctx, d))
	}

	docs, total, err := s.store.ListOwned(ctx, s.owner, document.Filter{})
	s.Require().NoError(err)
	s.Equal(3, total)
	s.Require().Len(docs, 3)
	s.Equal(marksheet.ID, docs[0].ID, "newest first")

	docs, total, err = s.store.ListOwned(ctx, s.owner, document.Filter{Type: document.TypePassport})
	s.Require().NoError(err)
	s.Equal(1, total)
	s.Equal(passport.ID, docs[0].ID)

	docs, _, err = s.store.ListOwned(ctx, s.owner, document.Filter{Search: "travel"})
	s.Require().NoError(err)
	s.Require().Len(docs, 1)
	s.Equal(passport.ID, docs[0].ID, "search matches descriptions")

	docs, _, err = s.store.ListOwned(ctx, s.owner, document.Filter{Search: "education"})
	s.Require().NoError(err)
	s.Require().Len(docs, 1)
	s.Equal(marksheet.ID, docs[0].ID, "search matches tags")

	page2, total, err := s.store.ListOwned(ctx, s.owner, document.Filter{Page: 2, Limit: 2})
	s.Require().NoError(err)
	s.Equal(3, total)
	s.Len(page2, 1)
}

func (s *PostgresStoreSuite) TestListSharedWithHydratesGrants() {
	ctx := context.Background()
	shared := s.newDoc("Shared", document.TypePANCard)
	private := s.newDoc("Private", document.TypePANCard)
	s.Require().NoError(s.store.Create(ctx, shared))
	s.Require().NoError(s.store.Create(ctx, private))
	s.Require().NoError(s.store.AddGrant(ctx, shared.ID, document.Grant{
		GranteeID:   s.grantee,
		Permissions: []document.Permission{document.PermissionView, document.PermissionDownload},
		GrantedAt:   time.Now().UTC(),
		GrantedBy:   s.owner,
	}))

	docs, total, err := s.store.ListSharedWith(ctx, s.grantee, document.Filter{})
	s.Require().NoError(err)
	s.Equal(1, total)
	s.Require().Len(docs, 1)
	s.Equal(shared.ID, docs[0].ID)
	s.Require().Len(docs[0].Grants, 1)
	s.Equal([]document.Permission{document.PermissionView, document.PermissionDownload},
		docs[0].Grants[0].Permissions)

	docs, total, err = s.store.ListSharedWith(ctx, s.owner, document.Filter{})
	s.Require().NoError(err)
	s.Zero(total)
	s.Empty(docs)
}

func (s *PostgresStoreSuite) TestDeleteCascadesGrants() {
	ctx := context.Background()
	doc := s.newDoc("Doomed", document.TypeOther)
	s.Require().NoError(s.store.Create(ctx, doc))
	s.Require().NoError(s.store.AddGrant(ctx, doc.ID, document.Grant{
		GranteeID:   s.grantee,
		Permissions: []document.Permission{document.PermissionView},
		GrantedAt:   time.Now().UTC(),
		GrantedBy:   s.owner,
	}))

	s.Require().NoError(s.store.Delete(ctx, doc.ID))
	_, err := s.store.FindByID(ctx, doc.ID)
	s.ErrorIs(err, document.ErrNotFound)

	docs, total, err := s.store.ListSharedWith(ctx, s.grantee, document.Filter{})
	s.Require().NoError(err)
	s.Zero(total)
	s.Empty(docs)

	s.ErrorIs(s.store.Delete(ctx, doc.ID), document.ErrNotFound)
}
