package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"MarketPulse/internal/domain"
	"MarketPulse/internal/ports"
)

// MemoryRepository keeps articles in process memory with the same
// uniqueness rules as the Postgres schema.
type MemoryRepository struct {
	mu            sync.RWMutex
	nextID        int64
	articles      map[int64]domain.Article
	byFingerprint map[string]int64
	byURL         map[string]int64
	now           func() time.Time
}

var _ ports.ArticleStore = (*MemoryRepository)(nil)

// NewMemoryRepository creates an empty store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		articles:      map[int64]domain.Article{},
		byFingerprint: map[string]int64{},
		byURL:         map[string]int64{},
		now:           time.Now,
	}
}

func (m *MemoryRepository) Exists(_ context.Context, fingerprint, url string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, fp := m.byFingerprint[fingerprint]
	_, u := m.byURL[url]
	return fp || u, nil
}

func (m *MemoryRepository) Insert(_ context.Context, article domain.Article) (int64, error) {
	if article.Fingerprint == "" {
		article.Fingerprint = domain.Fingerprint(article.URL)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byFingerprint[article.Fingerprint]; ok {
		return 0, fmt.Errorf("insert %s: %w", article.URL, domain.ErrDuplicateArticle)
	}
	if _, ok := m.byURL[article.URL]; ok {
		return 0, fmt.Errorf("insert %s: %w", article.URL, domain.ErrDuplicateArticle)
	}

	m.nextID++
	now := m.now().UTC()
	article.ID = m.nextID
	article.CreatedAt = now
	article.UpdatedAt = now

	m.articles[article.ID] = article
	m.byFingerprint[article.Fingerprint] = article.ID
	m.byURL[article.URL] = article.ID
	return article.ID, nil
}

func (m *MemoryRepository) Get(_ context.Context, id int64) (domain.Article, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.articles[id]
	if !ok {
		return domain.Article{}, fmt.Errorf("article %d: %w", id, domain.ErrArticleNotFound)
	}
	return a, nil
}

func (m *MemoryRepository) Update(_ context.Context, article domain.Article) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.articles[article.ID]
	if !ok {
		return fmt.Errorf("article %d: %w", article.ID, domain.ErrArticleNotFound)
	}

	stored.Title = article.Title
	stored.Body = article.Body
	stored.Summary = article.Summary
	stored.Suggestion = article.Suggestion
	stored.ConfidenceScore = article.ConfidenceScore
	stored.UpdatedAt = m.now().UTC()
	m.articles[article.ID] = stored
	return nil
}

func (m *MemoryRepository) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var deleted int64
	for id, a := range m.articles {
		if a.CreatedAt.Before(cutoff) {
			delete(m.articles, id)
			delete(m.byFingerprint, a.Fingerprint)
			delete(m.byURL, a.URL)
			deleted++
		}
	}
	return deleted, nil
}

// Len reports how many articles are stored.
func (m *MemoryRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.articles)
}
