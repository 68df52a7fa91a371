//go:build integration

package identity_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"docvault/internal/identity"
	"docvault/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *identity.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = identity.NewPostgresStore(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "users"))
}

func (s *PostgresStoreSuite) newUser(email, nationalID string) *identity.User {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &identity.User{
		ID:           uuid.New(),
		Name:         "Asha Verma",
		Email:        email,
		NationalID:   nationalID,
		PasswordHash: "$2a$04$hash",
		Phone:        "+919876543210",
		DateOfBirth:  time.Date(1990, 6, 15, 0, 0, 0, 0, time.UTC),
		Address:      identity.Address{Street: "12 MG Road", City: "Pune", State: "MH", PostalCode: "411001"},
		Role:         identity.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (s *PostgresStoreSuite) TestCreateAndFindRoundTrip() {
	ctx := context.Background()
	user := s.newUser("asha@example.com", "123456789012")
	s.Require().NoError(s.store.Create(ctx, user))

	got, err := s.store.FindByID(ctx, user.ID)
	s.Require().NoError(err)
	s.Equal(user.Email, got.Email)
	s.Equal(user.NationalID, got.NationalID)
	s.Equal(user.Address, got.Address)
	s.Nil(got.OTP)
	s.False(got.Verified)

	byEmail, err := s.store.FindByEmail(ctx, "  ASHA@example.com ")
	s.Require().NoError(err)
	s.Equal(user.ID, byEmail.ID)

	byNationalID, err := s.store.FindByNationalID(ctx, "123456789012")
	s.Require().NoError(err)
	s.Equal(user.ID, byNationalID.ID)
}

func (s *PostgresStoreSuite) TestDuplicateConstraintsMapToSentinels() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, s.newUser("asha@example.com", "123456789012")))

	sameEmail := s.newUser("asha@example.com", "999999999999")
	s.ErrorIs(s.store.Create(ctx, sameEmail), identity.ErrDuplicateEmail)

	sameNationalID := s.newUser("other@example.com", "123456789012")
	s.ErrorIs(s.store.Create(ctx, sameNationalID), identity.ErrDuplicateNationalID)
}

func (s *PostgresStoreSuite) TestUpdatePersistsOTPAndVerification() {
	ctx := context.Background()
	user := s.newUser("asha@example.com", "123456789012")
	s.Require().NoError(s.store.Create(ctx, user))

	expires := time.Now().UTC().Add(5 * time.Minute).Truncate(time.Microsecond)
	user.OTP = &identity.OTP{Code: "123456", ExpiresAt: expires}
	user.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)
	s.Require().NoError(s.store.Update(ctx, user))

	got, err := s.store.FindByID(ctx, user.ID)
	s.Require().NoError(err)
	s.Require().NotNil(got.OTP)
	s.Equal("123456", got.OTP.Code)
	s.WithinDuration(expires, got.OTP.ExpiresAt, time.Millisecond)

	// Verification clears the code.
	user.OTP = nil
	user.Verified = true
	s.Require().NoError(s.store.Update(ctx, user))

	got, err = s.store.FindByID(ctx, user.ID)
	s.Require().NoError(err)
	s.True(got.Verified)
	s.Nil(got.OTP)
}

func (s *PostgresStoreSuite) TestUpdateUnknownUser() {
	ghost := s.newUser("ghost@example.com", "123456789012")
	s.ErrorIs(s.store.Update(context.Background(), ghost), identity.ErrNotFound)
}

func (s *PostgresStoreSuite) TestDeleteRemovesRecord() {
	ctx := context.Background()
	user := s.newUser("asha@example.com", "123456789012")
	s.Require().NoError(s.store.Create(ctx, user))

	s.Require().NoError(s.store.Delete(ctx, user.ID))
	_, err := s.store.FindByID(ctx, user.ID)
	s.ErrorIs(err, identity.ErrNotFound)
	s.ErrorIs(s.store.Delete(ctx, user.ID), identity.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListNewestFirst() {
	ctx := context.Background()
	first := s.newUser("first@example.com", "111111111111")
	first.CreatedAt = first.CreatedAt.Add(-time.Hour)
	second := s.newUser("second@example.com", "222222222222")
	s.Require().NoError(s.store.Create(ctx, first))
	s.Require().NoError(s.store.Create(ctx, second))

	users, err := s.store.List(ctx)
	s.Require().NoError(err)
	s.Require().Len(users, 2)
	s.Equal(second.ID, users[0].ID)
	s.Equal(first.ID, users[1].ID)
}
