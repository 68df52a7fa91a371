package identity

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// InMemoryStore keeps user records in process memory. It favors clarity over
// performance and backs both tests and the dev setup.
type InMemoryStore struct {
	mu         sync.RWMutex
	users      map[uuid.UUID]User
	byEmail    map[string]uuid.UUID
	byNational map[string]uuid.UUID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		users:      make(map[uuid.UUID]User),
		byEmail:    make(map[string]uuid.UUID),
		byNational: make(map[string]uuid.UUID),
	}
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *InMemoryStore) Create(_ context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[emailKey(user.Email)]; ok {
		return ErrDuplicateEmail
	}
	if _, ok := s.byNational[user.NationalID]; ok {
		return ErrDuplicateNationalID
	}

	s.users[user.ID] = cloneUser(*user)
	s.byEmail[emailKey(user.Email)] = user.ID
	s.byNational[user.NationalID] = user.ID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id uuid.UUID) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneUser(user)
	return &out, nil
}

func (s *InMemoryStore) FindByEmail(_ context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[emailKey(email)]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneUser(s.users[id])
	return &out, nil
}

func (s *InMemoryStore) FindByNationalID(_ context.Context, nationalID string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byNational[nationalID]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneUser(s.users[id])
	return &out, nil
}

func (s *InMemoryStore) Update(_ context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.users[user.ID]
	if !ok {
		return ErrNotFound
	}
	if emailKey(current.Email) != emailKey(user.Email) {
		if _, taken := s.byEmail[emailKey(user.Email)]; taken {
			return ErrDuplicateEmail
		}
		delete(s.byEmail, emailKey(current.Email))
		s.byEmail[emailKey(user.Email)] = user.ID
	}

	s.users[user.ID] = cloneUser(*user)
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.byEmail, emailKey(user.Email))
	delete(s.byNational, user.NationalID)
	delete(s.users, id)
	return nil
}

func (s *InMemoryStore) List(_ context.Context) ([]*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]*User, 0, len(s.users))
	for _, user := range s.users {
		out := cloneUser(user)
		users = append(users, &out)
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})
	return users, nil
}

func cloneUser(u User) User {
	if u.OTP != nil {
		otp := *u.OTP
		u.OTP = &otp
	}
	return u
}
