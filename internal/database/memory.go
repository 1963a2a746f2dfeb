package database

import (
	"context"
	"reflect"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is a process-local stand-in for the document database. Each
// collection has its own lock so a scan-then-mutate sequence is never
// interleaved with another writer on the same collection.
type MemoryStore struct {
	mu          sync.Mutex
	collections map[string]*memoryCollection
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memoryCollection)}
}

func (s *MemoryStore) Name() string { return "memory" }

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections = make(map[string]*memoryCollection)
	return nil
}

func (s *MemoryStore) Collection(name string) Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[name]
	if !ok {
		c = &memoryCollection{docs: make(map[string]Document), unique: uniqueFields[name]}
		s.collections[name] = c
	}
	return c
}

type memoryCollection struct {
	mu     sync.RWMutex
	order  []string
	docs   map[string]Document
	unique string
}

func (c *memoryCollection) FindOne(_ context.Context, filter Filter) (Document, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if id, ok := c.firstMatch(filter); ok {
		return c.docs[id].clone(), nil
	}
	return nil, ErrNoDocuments
}

func (c *memoryCollection) Find(_ context.Context, filter Filter) ([]Document, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Document, 0)
	for _, id := range c.order {
		if doc := c.docs[id]; matches(doc, filter) {
			out = append(out, doc.clone())
		}
	}
	return out, nil
}

func (c *memoryCollection) InsertOne(_ context.Context, doc Document) (string, error) {
	id := uuid.NewString()
	stored := doc.clone()
	stored[IDField] = id

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.taken(stored, "") {
		return "", ErrDuplicate
	}
	c.docs[id] = stored
	c.order = append(c.order, id)
	return id, nil
}

func (c *memoryCollection) UpdateOne(_ context.Context, filter Filter, set Document) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.firstMatch(filter)
	if !ok {
		return 0, nil
	}
	if c.taken(set, id) {
		return 0, ErrDuplicate
	}
	doc := c.docs[id]
	for k, v := range set {
		if k == IDField {
			continue
		}
		doc[k] = v
	}
	return 1, nil
}

func (c *memoryCollection) DeleteOne(_ context.Context, filter Filter) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.firstMatch(filter)
	if !ok {
		return 0, nil
	}
	delete(c.docs, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return 1, nil
}

// taken reports whether doc repeats the unique field value of a document
// other than self. It must be called with c.mu held.
func (c *memoryCollection) taken(doc Document, self string) bool {
	if c.unique == "" {
		return false
	}
	v, ok := doc[c.unique]
	if !ok || v == nil {
		return false
	}
	for _, id := range c.order {
		if id != self && reflect.DeepEqual(c.docs[id][c.unique], v) {
			return true
		}
	}
	return false
}

// firstMatch must be called with c.mu held.
func (c *memoryCollection) firstMatch(filter Filter) (string, bool) {
	for _, id := range c.order {
		if matches(c.docs[id], filter) {
			return id, true
		}
	}
	return "", false
}

func matches(doc Document, filter Filter) bool {
	for key, want := range filter {
		if !reflect.DeepEqual(doc[key], want) {
			return false
		}
	}
	return true
}
