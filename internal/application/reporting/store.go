package reporting

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/turtacn/OperaLab/internal/application/validation"
	"github.com/turtacn/OperaLab/pkg/errors"
)

// ReportStore keeps finished reports for later retrieval.
type ReportStore interface {
	Save(ctx context.Context, r *validation.Report) error
	Get(ctx context.Context, id string) (*validation.Report, error)
}

// DefaultMemoryCapacity bounds MemoryStore when no capacity is given.
const DefaultMemoryCapacity = 256

func reportNotFound(id string) error {
	return errors.NotFound("report not found").WithDetail(id)
}

// MemoryStore holds the most recent reports in process memory.  When full,
// the oldest report is evicted.
type MemoryStore struct {
	mu       sync.RWMutex
	capacity int
	order    []string
	reports  map[string]*validation.Report
}

// NewMemoryStore returns a store holding at most capacity reports.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &MemoryStore{capacity: capacity, reports: make(map[string]*validation.Report)}
}

// Save implements ReportStore.  Saving an id again replaces the report.
func (s *MemoryStore) Save(_ context.Context, r *validation.Report) error {
	if r == nil || strings.TrimSpace(r.ID) == "" {
		return errors.InvalidParam("report id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reports[r.ID]; !ok {
		if len(s.order) >= s.capacity {
			oldest := s.order[0]
			s.order = s.order[1:]
			delete(s.reports, oldest)
		}
		s.order = append(s.order, r.ID)
	}
	s.reports[r.ID] = r
	return nil
}

// Get implements ReportStore.
func (s *MemoryStore) Get(_ context.Context, id string) (*validation.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reports[id]
	if !ok {
		return nil, reportNotFound(id)
	}
	return r, nil
}

// Len returns the number of stored reports.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reports)
}

// Cache is the key-value contract CacheStore needs; the Redis cache
// satisfies it.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// CacheStore keeps reports in a shared cache so every API replica can serve
// them.
type CacheStore struct {
	cache Cache
	ttl   time.Duration
}

// NewCacheStore returns a store writing reports under "report:<id>" with
// ttl (0 uses the cache default).
func NewCacheStore(cache Cache, ttl time.Duration) *CacheStore {
	return &CacheStore{cache: cache, ttl: ttl}
}

func reportKey(id string) string { return "report:" + id }

// Save implements ReportStore.
func (s *CacheStore) Save(ctx context.Context, r *validation.Report) error {
	if r == nil || strings.TrimSpace(r.ID) == "" {
		return errors.InvalidParam("report id is required")
	}
	return s.cache.Set(ctx, reportKey(r.ID), r, s.ttl)
}

// Get implements ReportStore.
func (s *CacheStore) Get(ctx context.Context, id string) (*validation.Report, error) {
	var r validation.Report
	if err := s.cache.Get(ctx, reportKey(id), &r); err != nil {
		if errors.IsNotFound(err) {
			return nil, reportNotFound(id)
		}
		return nil, err
	}
	return &r, nil
}
