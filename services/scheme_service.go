package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"proposal-management-api/models"
	"proposal-management-api/repositories"
)

var schemeTTL = 5 * time.Minute

type schemeCacheEntry struct {
	schemes   []models.Scheme
	fetchedAt time.Time
}

// SchemeService serves the scheme lookup from a short-lived cache.
type SchemeService struct {
	store  repositories.Store
	logger *zap.Logger

	mu    sync.RWMutex
	cache *schemeCacheEntry
}

func NewSchemeService(store repositories.Store, logger *zap.Logger) *SchemeService {
	return &SchemeService{store: defaultStore(store), logger: defaultLogger(logger, "schemes")}
}

func (s *SchemeService) load(ctx context.Context, force bool) (*schemeCacheEntry, error) {
	s.mu.RLock()
	cached := s.cache
	s.mu.RUnlock()

	if cached != nil && !force && time.Since(cached.fetchedAt) < schemeTTL {
		return cached, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cache != nil && !force && time.Since(s.cache.fetchedAt) < schemeTTL {
		return s.cache, nil
	}

	rows, err := s.store.ListSchemes(ctx, true)
	if err != nil {
		return nil, logUnexpected(s.logger, err, "failed to load schemes")
	}
	s.cache = &schemeCacheEntry{schemes: rows, fetchedAt: time.Now()}
	return s.cache, nil
}

// Active returns the active schemes in display order.
func (s *SchemeService) Active(ctx context.Context) ([]models.Scheme, error) {
	entry, err := s.load(ctx, false)
	if err != nil {
		return nil, err
	}
	return entry.schemes, nil
}

// Clear invalidates the cache.
func (s *SchemeService) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = nil
}
