package testutil

import (
	"context"
	"sort"
	"sync"

	ierr "github.com/flexprice/invoicer/internal/errors"
)

// Paginated is satisfied by every filter embedding *types.QueryFilter
type Paginated interface {
	GetLimit() int
	GetOffset() int
}

type FilterFunc[T any] func(ctx context.Context, item T, filter any) bool

type SortFunc[T any] func(a, b T) bool

// InMemoryStore is a thread safe keyed store backing the test repositories
type InMemoryStore[T any] struct {
	mu    sync.RWMutex
	items map[string]T
}

func NewInMemoryStore[T any]() *InMemoryStore[T] {
	return &InMemoryStore[T]{
		items: make(map[string]T),
	}
}

func (s *InMemoryStore[T]) Create(_ context.Context, id string, item T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[id]; exists {
		return ierr.NewErrorf("item %s already exists", id).
			Mark(ierr.ErrAlreadyExists)
	}
	s.items[id] = item
	return nil
}

func (s *InMemoryStore[T]) Get(_ context.Context, id string) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, exists := s.items[id]
	if !exists {
		var zero T
		return zero, ierr.NewErrorf("item %s not found", id).
			Mark(ierr.ErrNotFound)
	}
	return item, nil
}

func (s *InMemoryStore[T]) Update(_ context.Context, id string, item T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[id]; !exists {
		return ierr.NewErrorf("item %s not found", id).
			Mark(ierr.ErrNotFound)
	}
	s.items[id] = item
	return nil
}

func (s *InMemoryStore[T]) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[id]; !exists {
		return ierr.NewErrorf("item %s not found", id).
			Mark(ierr.ErrNotFound)
	}
	delete(s.items, id)
	return nil
}

// Mutate runs fn on the stored item under the write lock
func (s *InMemoryStore[T]) Mutate(_ context.Context, id string, fn func(item T) T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, exists := s.items[id]
	if !exists {
		return ierr.NewErrorf("item %s not found", id).
			Mark(ierr.ErrNotFound)
	}
	s.items[id] = fn(item)
	return nil
}

// Filter returns every item matching filterFn, sorted, without pagination
func (s *InMemoryStore[T]) Filter(ctx context.Context, filter any, filterFn FilterFunc[T], sortFn SortFunc[T]) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]T, 0, len(s.items))
	for _, item := range s.items {
		if filterFn == nil || filterFn(ctx, item, filter) {
			out = append(out, item)
		}
	}
	if sortFn != nil {
		sort.SliceStable(out, func(i, j int) bool {
			return sortFn(out[i], out[j])
		})
	}
	return out
}

// List is Filter with the filter's limit and offset applied
func (s *InMemoryStore[T]) List(ctx context.Context, filter any, filterFn FilterFunc[T], sortFn SortFunc[T]) []T {
	out := s.Filter(ctx, filter, filterFn, sortFn)

	p, ok := filter.(Paginated)
	if !ok {
		return out
	}
	offset, limit := p.GetOffset(), p.GetLimit()
	if offset >= len(out) {
		return []T{}
	}
	end := offset + limit
	if limit <= 0 || end > len(out) {
		end = len(out)
	}
	return out[offset:end]
}

func (s *InMemoryStore[T]) Count(ctx context.Context, filter any, filterFn FilterFunc[T]) int {
	return len(s.Filter(ctx, filter, filterFn, nil))
}

func (s *InMemoryStore[T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]T)
}
