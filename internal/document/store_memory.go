package document

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// InMemoryStore keeps document records behind a RWMutex. Grant insertion
// happens under the write lock, which is what makes the duplicate check and
// the append one atomic step.
type InMemoryStore struct {
	mu   sync.RWMutex
	docs map[uuid.UUID]*Document
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{docs: make(map[uuid.UUID]*Document)}
}

func cloneDocument(doc *Document) *Document {
	clone := *doc
	clone.Grants = append([]Grant(nil), doc.Grants...)
	clone.Tags = append([]string(nil), doc.Tags...)
	return &clone
}

func (s *InMemoryStore) Create(_ context.Context, doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = cloneDocument(doc)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id uuid.UUID) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneDocument(doc), nil
}

func (s *InMemoryStore) Update(_ context.Context, doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.docs[doc.ID]
	if !ok {
		return ErrNotFound
	}
	updated := cloneDocument(doc)
	// Grants are owned by AddGrant; Update never rewrites them.
	updated.Grants = append([]Grant(nil), stored.Grants...)
	s.docs[doc.ID] = updated
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return ErrNotFound
	}
	delete(s.docs, id)
	return nil
}

func matchesFilter(doc *Document, filter Filter) bool {
	if filter.Type != "" && doc.Type != filter.Type {
		return false
	}
	if filter.Search != "" {
		needle := strings.ToLower(filter.Search)
		if strings.Contains(strings.ToLower(doc.Title), needle) ||
			strings.Contains(strings.ToLower(doc.Description), needle) {
			return true
		}
		for _, tag := range doc.Tags {
			if strings.Contains(strings.ToLower(tag), needle) {
				return true
			}
		}
		return false
	}
	return true
}

func paginate(docs []*Document, filter Filter) ([]*Document, int) {
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})
	total := len(docs)
	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	start := (page - 1) * limit
	if start >= total {
		return []*Document{}, total
	}
	end := min(start+limit, total)
	return docs[start:end], total
}

func (s *InMemoryStore) ListOwned(_ context.Context, ownerID uuid.UUID, filter Filter) ([]*Document, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*Document
	for _, doc := range s.docs {
		if doc.OwnerID == ownerID && matchesFilter(doc, filter) {
			matched = append(matched, cloneDocument(doc))
		}
	}
	page, total := paginate(matched, filter)
	return page, total, nil
}

func (s *InMemoryStore) ListSharedWith(_ context.Context, userID uuid.UUID, filter Filter) ([]*Document, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*Document
	for _, doc := range s.docs {
		if _, ok := doc.GrantFor(userID); ok && matchesFilter(doc, filter) {
			matched = append(matched, cloneDocument(doc))
		}
	}
	page, total := paginate(matched, filter)
	return page, total, nil
}

func (s *InMemoryStore) AddGrant(_ context.Context, docID uuid.UUID, grant Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[docID]
	if !ok {
		return ErrNotFound
	}
	if _, exists := doc.GrantFor(grant.GranteeID); exists {
		return ErrAlreadyShared
	}
	doc.Grants = append(doc.Grants, grant)
	return nil
}
