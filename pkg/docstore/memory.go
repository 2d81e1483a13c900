package docstore

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"p9e.in/hallfix/models"
)

// MemoryStore is an in-process Store. It backs tests and local development
// mode; snapshot delivery is synchronous and serialized, matching the
// single-writer callback model subscribers are written against.
type MemoryStore struct {
	mu     sync.Mutex
	docs   map[string]models.JSONMap
	subs   map[int]*memorySub
	nextID int
}

type memorySub struct {
	query  Query
	onNext func(Snapshot)
	closed bool
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string]models.JSONMap),
		subs: make(map[int]*memorySub),
	}
}

// Subscribe registers a subscriber and delivers the initial snapshot before
// returning.
func (s *MemoryStore) Subscribe(q Query, onNext func(Snapshot), onErr func(error)) Unsubscribe {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	sub := &memorySub{query: q, onNext: onNext}
	s.subs[id] = sub
	snapshot := s.evaluateLocked(q)
	s.mu.Unlock()

	onNext(snapshot)

	return func() {
		s.mu.Lock()
		if cur, ok := s.subs[id]; ok {
			cur.closed = true
			delete(s.subs, id)
		}
		s.mu.Unlock()
	}
}

// WriteFields merges fields into the document at path, creating it if absent,
// then re-notifies every subscription the path belongs to.
func (s *MemoryStore) WriteFields(_ context.Context, path string, fields models.JSONMap) error {
	s.mu.Lock()
	doc, ok := s.docs[path]
	if !ok {
		doc = make(models.JSONMap, len(fields))
		s.docs[path] = doc
	}
	for key, value := range fields {
		if value == nil {
			delete(doc, key)
			continue
		}
		doc[key] = value
	}
	s.notifyLocked(path)
	s.mu.Unlock()
	return nil
}

// CreateDoc adds a document with a generated id under collectionPath.
func (s *MemoryStore) CreateDoc(_ context.Context, collectionPath string, fields models.JSONMap) (Doc, error) {
	id := uuid.NewString()
	path := collectionPath + "/" + id

	copied := make(models.JSONMap, len(fields))
	for key, value := range fields {
		copied[key] = value
	}

	s.mu.Lock()
	s.docs[path] = copied
	s.notifyLocked(path)
	s.mu.Unlock()

	return Doc{ID: id, Path: path, Fields: copied}, nil
}

func (s *MemoryStore) Fetch(_ context.Context, collectionPath string, limit int) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evaluateLocked(Query{
		Collection:         collectionPath,
		OrderByCreatedDesc: true,
		Limit:              limit,
	}), nil
}

// DeleteDoc removes a document; used by tests to simulate retention falling
// out of the recency window.
func (s *MemoryStore) DeleteDoc(path string) {
	s.mu.Lock()
	delete(s.docs, path)
	s.notifyLocked(path)
	s.mu.Unlock()
}

func (s *MemoryStore) evaluateLocked(q Query) Snapshot {
	var out []Doc
	for path, fields := range s.docs {
		if !q.matchesPath(path) || !q.matches(fields) {
			continue
		}
		_, id := models.SplitDocPath(path)
		copied := make(models.JSONMap, len(fields))
		for key, value := range fields {
			copied[key] = value
		}
		out = append(out, Doc{ID: id, Path: path, Fields: copied})
	}
	return q.order(out)
}

// notifyLocked re-runs affected queries and invokes callbacks. Callbacks run
// under the store lock, which serializes them the way a single event loop
// would; subscribers must not call back into the store from onNext.
func (s *MemoryStore) notifyLocked(changedPath string) {
	for _, sub := range s.subs {
		if sub.closed || !sub.query.matchesPath(changedPath) {
			continue
		}
		sub.onNext(s.evaluateLocked(sub.query))
	}
}
