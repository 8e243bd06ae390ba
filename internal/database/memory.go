package database

import (
	"context"
	"sort"
	"sync"

	"github.com/nao1215/webcrawl/internal/model"
)

// MemoryStore keeps pages in memory.
type MemoryStore struct {
	mu    sync.RWMutex
	pages map[string]*model.Page
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{pages: make(map[string]*model.Page)}
}

// Store inserts page unless its URL is already present.
func (m *MemoryStore) Store(ctx context.Context, page *model.Page) (bool, error) {
	if page == nil {
		return false, &StoreError{Err: ErrNilPage}
	}
	if err := ctx.Err(); err != nil {
		return false, &StoreError{URL: page.URL, Err: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.pages[page.URL]; ok {
		return false, nil
	}
	m.pages[page.URL] = page
	return true, nil
}

// Get returns the stored page for url, or nil.
func (m *MemoryStore) Get(url string) *model.Page {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pages[url]
}

// Len returns the number of stored pages.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.pages)
}

// Records returns the stored pages without HTML, sorted by URL.
func (m *MemoryStore) Records() []PageRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := make([]PageRecord, 0, len(m.pages))
	for _, p := range m.pages {
		records = append(records, PageRecord{
			URL:         p.URL,
			FetchedAt:   p.FetchedAt,
			StatusCode:  p.StatusCode,
			ContentType: p.ContentType,
			Hash:        p.Hash,
			Size:        p.Size(),
		})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].URL < records[j].URL })
	return records
}
