// Package workitem provides access to TFS work items: the REST client used in
// production plus in-memory and snapshot-file repositories for offline runs.
package workitem

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/goccy/go-json"

	"github.com/fjglira/tfs-testcase-exporter/internal/domain"
)

// Repository fetches work items by ID.
//
// Get fails with an error wrapping domain.ErrNotFound, domain.ErrAuth or
// domain.ErrTransport.
type Repository interface {
	Get(ctx context.Context, id int) (*domain.WorkItem, error)
}

// MemoryRepository serves work items from a map. It counts fetches per ID.
type MemoryRepository struct {
	mu      sync.Mutex
	items   map[int]domain.WorkItem
	fetches map[int]int
}

// NewMemoryRepository creates a repository holding items.
func NewMemoryRepository(items ...domain.WorkItem) *MemoryRepository {
	m := &MemoryRepository{
		items:   make(map[int]domain.WorkItem),
		fetches: make(map[int]int),
	}
	for _, it := range items {
		m.Add(it)
	}
	return m
}

// Add stores or replaces a work item.
func (m *MemoryRepository) Add(item domain.WorkItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.ID] = item
}

// Get returns a copy of the stored item.
func (m *MemoryRepository) Get(_ context.Context, id int) (*domain.WorkItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches[id]++
	item, ok := m.items[id]
	if !ok {
		return nil, domain.NewItemError("fetch", id, "work item does not exist", domain.ErrNotFound)
	}
	fields := make(map[string]string, len(item.Fields))
	for k, v := range item.Fields {
		fields[k] = v
	}
	item.Fields = fields
	return &item, nil
}

// Fetches returns how many times id was requested.
func (m *MemoryRepository) Fetches(id int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetches[id]
}

// IDs returns the stored IDs in ascending order.
func (m *MemoryRepository) IDs() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int, 0, len(m.items))
	for id := range m.items {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// LoadSnapshot reads a JSON array of work items
// ([{"id":1,"typeName":"Test Case","title":"...","fields":{...}}]) into a
// MemoryRepository.
func LoadSnapshot(path string) (*MemoryRepository, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.NewErrorWithSuggestion("source", path, 0, "failed to read snapshot",
			"check the --fixtures path", err)
	}
	var items []domain.WorkItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, domain.NewError("source", path, 0, "failed to decode snapshot", err)
	}
	repo := NewMemoryRepository()
	for i, it := range items {
		if it.ID <= 0 {
			return nil, domain.NewError("source", path, 0, fmt.Sprintf("snapshot entry %d has no valid id", i), nil)
		}
		repo.Add(it)
	}
	return repo, nil
}
