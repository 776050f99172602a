// Package mock provides an in-memory test double for memory.Store.
package mock

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/markizano/asthralios/pkg/memory"
)

// Store is an in-memory implementation of memory.Store. Search ranks by real
// cosine distance so retrieval tests exercise the same ordering semantics as
// the Postgres store.
type Store struct {
	mu sync.Mutex

	// Docs holds every stored document keyed by ID.
	Docs map[string]memory.Document

	// UpsertErr, if non-nil, is returned by Upsert and UpsertBatch.
	UpsertErr error

	// SearchErr, if non-nil, is returned by Search.
	SearchErr error

	// SearchCalls counts Search invocations.
	SearchCalls int
}

// Compile-time check that *Store satisfies memory.Store.
var _ memory.Store = (*Store)(nil)

// NewStore returns an empty mock store.
func NewStore() *Store {
	return &Store{Docs: make(map[string]memory.Document)}
}

// Upsert stores doc by ID.
func (s *Store) Upsert(_ context.Context, doc memory.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.UpsertErr != nil {
		return s.UpsertErr
	}
	if s.Docs == nil {
		s.Docs = make(map[string]memory.Document)
	}
	s.Docs[doc.ID] = doc
	return nil
}

// UpsertBatch stores every document, or none when UpsertErr is set.
func (s *Store) UpsertBatch(ctx context.Context, docs []memory.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.UpsertErr != nil {
		return s.UpsertErr
	}
	if s.Docs == nil {
		s.Docs = make(map[string]memory.Document)
	}
	for _, doc := range docs {
		s.Docs[doc.ID] = doc
	}
	return nil
}

// Search returns the topK stored documents by ascending cosine distance.
func (s *Store) Search(_ context.Context, embedding []float32, topK int, filter memory.Filter) ([]memory.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SearchCalls++
	if s.SearchErr != nil {
		return nil, s.SearchErr
	}

	results := []memory.Result{}
	for _, doc := range s.Docs {
		if filter.Source != "" && doc.Source != filter.Source {
			continue
		}
		if filter.ContentType != "" && doc.ContentType != filter.ContentType {
			continue
		}
		results = append(results, memory.Result{
			Document: doc,
			Distance: cosineDistance(embedding, doc.Embedding),
		})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Distance < results[j].Distance })
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// DeleteSource removes every document whose Source matches.
func (s *Store) DeleteSource(_ context.Context, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, doc := range s.Docs {
		if doc.Source == source {
			delete(s.Docs, id)
		}
	}
	return nil
}

// Len returns the number of stored documents.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Docs)
}

func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 2
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}
