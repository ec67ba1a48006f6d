package store

import (
	"context"
	"sort"
	"sync"

	"condo/internal/notice/models"
	id "condo/pkg/domain"
	"condo/pkg/platform/sentinel"
	"condo/pkg/platform/tx"
)

type InMemory struct {
	mu      sync.RWMutex
	notices map[id.NoticeID]*models.Notice
}

func NewInMemory() *InMemory {
	return &InMemory{notices: make(map[id.NoticeID]*models.Notice)}
}

func clone(n *models.Notice) *models.Notice {
	c := *n
	if n.ValidUntil != nil {
		t := *n.ValidUntil
		c.ValidUntil = &t
	}
	if n.AuthorPersonID != nil {
		p := *n.AuthorPersonID
		c.AuthorPersonID = &p
	}
	return &c
}

// put stores n, or deletes noticeID when n is nil.
func (s *InMemory) put(noticeID id.NoticeID, n *models.Notice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n == nil {
		delete(s.notices, noticeID)
		return
	}
	s.notices[noticeID] = n
}

func (s *InMemory) Create(ctx context.Context, n *models.Notice) error {
	s.mu.Lock()
	if _, ok := s.notices[n.ID]; ok {
		s.mu.Unlock()
		return sentinel.ErrDuplicate
	}
	s.notices[n.ID] = clone(n)
	s.mu.Unlock()

	tx.AddUndo(ctx, func() { s.put(n.ID, nil) })
	return nil
}

func (s *InMemory) FindByID(_ context.Context, noticeID id.NoticeID) (*models.Notice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notices[noticeID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(n), nil
}

// List returns the most recently published notices first.
func (s *InMemory) List(_ context.Context, filter models.Filter) ([]*models.Notice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Notice, 0)
	for _, n := range s.notices {
		if filter.Matches(n) {
			out = append(out, clone(n))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PublishedAt.After(out[j].PublishedAt) })
	return out, nil
}

func (s *InMemory) Update(ctx context.Context, n *models.Notice) error {
	s.mu.Lock()
	prev, ok := s.notices[n.ID]
	if !ok {
		s.mu.Unlock()
		return sentinel.ErrNotFound
	}
	s.notices[n.ID] = clone(n)
	s.mu.Unlock()

	tx.AddUndo(ctx, func() { s.put(n.ID, prev) })
	return nil
}

func (s *InMemory) Delete(ctx context.Context, noticeID id.NoticeID) error {
	s.mu.Lock()
	prev, ok := s.notices[noticeID]
	if !ok {
		s.mu.Unlock()
		return sentinel.ErrNotFound
	}
	delete(s.notices, noticeID)
	s.mu.Unlock()

	tx.AddUndo(ctx, func() { s.put(noticeID, prev) })
	return nil
}

// ClearAuthor keeps the notices of a removed person without an author.
func (s *InMemory) ClearAuthor(ctx context.Context, personID id.PersonID) error {
	s.mu.Lock()
	var prev []*models.Notice
	for noticeID, n := range s.notices {
		if n.AuthorPersonID != nil && *n.AuthorPersonID == personID {
			prev = append(prev, n)
			next := clone(n)
			next.AuthorPersonID = nil
			s.notices[noticeID] = next
		}
	}
	s.mu.Unlock()

	if len(prev) > 0 {
		tx.AddUndo(ctx, func() {
			for _, n := range prev {
				s.put(n.ID, n)
			}
		})
	}
	return nil
}
