//go:build integration

package audit_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"docvault/internal/audit"
	"docvault/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *audit.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = audit.NewPostgresStore(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "audit_entries"))
}

func (s *PostgresStoreSuite) seed() (alice, bob uuid.UUID) {
	ctx := context.Background()
	alice, bob = uuid.New(), uuid.New()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	entries := []audit.Entry{
		{ID: uuid.New(), UserID: alice, Action: audit.ActionLogin, ResourceType: audit.ResourceAuth, IPAddress: "10.0.0.9", Timestamp: base},
		{ID: uuid.New(), UserID: alice, Action: audit.ActionUploadDocument, ResourceType: audit.ResourceDocument, Timestamp: base.Add(time.Minute)},
		{ID: uuid.New(), UserID: bob, Action: audit.ActionLogin, ResourceType: audit.ResourceAuth, Timestamp: base.Add(2 * time.Minute)},
		{ID: uuid.New(), UserID: bob, Action: audit.ActionShareDocument, ResourceType: audit.ResourceDocument, Timestamp: base.Add(3 * time.Minute)},
		{ID: uuid.New(), UserID: alice, Action: audit.ActionLogin, ResourceType: audit.ResourceAuth, Timestamp: base.Add(4 * time.Minute)},
	}
	for _, entry := range entries {
		s.Require().NoError(s.store.Append(ctx, entry))
	}
	return alice, bob
}

func (s *PostgresStoreSuite) TestAppendRoundTrip() {
	ctx := context.Background()
	docID := uuid.New()
	entry := audit.Entry{
		ID:           uuid.New(),
		UserID:       uuid.New(),
		Action:       audit.ActionDownloadDocument,
		ResourceType: audit.ResourceDocument,
		ResourceID:   &docID,
		Detail:       map[string]any{"fileName": "pan.pdf"},
		IPAddress:    "203.0.113.7",
		UserAgent:    "Firefox 128 on Linux",
		Timestamp:    time.Now().UTC().Truncate(time.Microsecond),
	}
	s.Require().NoError(s.store.Append(ctx, entry))

	entries, total, err := s.store.List(ctx, audit.Filter{})
	s.Require().NoError(err)
	s.Equal(1, total)
	s.Require().Len(entries, 1)

	got := entries[0]
	s.Equal(entry.UserID, got.UserID)
	s.Equal(audit.ActionDownloadDocument, got.Action)
	s.Require().NotNil(got.ResourceID)
	s.Equal(docID, *got.ResourceID)
	s.Equal("pan.pdf", got.Detail["fileName"])
	s.Equal("203.0.113.7", got.IPAddress)
	s.Equal("Firefox 128 on Linux", got.UserAgent)
}

func (s *PostgresStoreSuite) TestListFiltersAndPagination() {
	ctx := context.Background()
	alice, _ := s.seed()

	entries, total, err := s.store.List(ctx, audit.Filter{})
	s.Require().NoError(err)
	s.Equal(5, total)
	s.Require().Len(entries, 5)
	for i := 1; i < len(entries); i++ {
		s.False(entries[i-1].Timestamp.Before(entries[i].Timestamp), "newest first")
	}

	logins, total, err := s.store.List(ctx, audit.Filter{Action: audit.ActionLogin})
	s.Require().NoError(err)
	s.Equal(3, total)
	for _, entry := range logins {
		s.Equal(audit.ActionLogin, entry.Action)
	}

	_, total, err = s.store.List(ctx, audit.Filter{UserID: alice})
	s.Require().NoError(err)
	s.Equal(3, total)

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	_, total, err = s.store.List(ctx, audit.Filter{From: base.Add(time.Minute), To: base.Add(3 * time.Minute)})
	s.Require().NoError(err)
	s.Equal(3, total)

	page3, total, err := s.store.List(ctx, audit.Filter{Page: 3, Limit: 2})
	s.Require().NoError(err)
	s.Equal(5, total)
	s.Len(page3, 1)
}

func (s *PostgresStoreSuite) TestListByUser() {
	ctx := context.Background()
	alice, _ := s.seed()

	entries, err := s.store.ListByUser(ctx, alice, 2)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal(audit.ActionLogin, entries[0].Action, "newest entry first")
	for _, entry := range entries {
		s.Equal(alice, entry.UserID)
	}
}

func (s *PostgresStoreSuite) TestStats() {
	ctx := context.Background()
	s.seed()

	stats, err := s.store.Stats(ctx)
	s.Require().NoError(err)
	s.Equal(5, stats.TotalEntries)
	s.Equal(2, stats.DistinctUsers)
	s.Require().NotEmpty(stats.Actions)
	s.Equal(audit.ActionLogin, stats.Actions[0].Action, "most frequent action first")
	s.Equal(3, stats.Actions[0].Count)
}
