package vectorstore

import (
	"context"
	"sync"

	"github.com/hyperjump/kotae/internal/models"
)

// shared holds the process-wide store. A failed open is not cached, so a store
// built after the first query becomes visible on the next call.
var shared struct {
	mu    sync.Mutex
	store *Store
}

// Shared returns the process-wide store for dir, opening it on first use.
// Calls for a different dir close the current store and open the new one.
func Shared(ctx context.Context, dir string, dims int, opts ...Option) (*Store, error) {
	shared.mu.Lock()
	defer shared.mu.Unlock()

	if shared.store != nil {
		if shared.store.dir == dir {
			return shared.store, nil
		}
		_ = shared.store.Close()
		shared.store = nil
	}
	s, err := Open(ctx, dir, dims, opts...)
	if err != nil {
		return nil, err
	}
	shared.store = s
	return s, nil
}

// ResetShared closes and forgets the process-wide store. Call it after a rebuild.
func ResetShared() error {
	shared.mu.Lock()
	defer shared.mu.Unlock()

	if shared.store == nil {
		return nil
	}
	err := shared.store.Close()
	shared.store = nil
	return err
}

// Lazy searches the shared store for Dir, opening it on the first search.
type Lazy struct {
	Dir        string
	Dimensions int
	Options    []Option
}

// Search resolves the shared store and delegates to it.
func (l *Lazy) Search(ctx context.Context, vec []float32, k int) ([]models.RetrievalResult, error) {
	s, err := Shared(ctx, l.Dir, l.Dimensions, l.Options...)
	if err != nil {
		return nil, err
	}
	return s.Search(ctx, vec, k)
}

// Stats reports the shared store's statistics.
func (l *Lazy) Stats(ctx context.Context) (models.StoreStats, error) {
	s, err := Shared(ctx, l.Dir, l.Dimensions, l.Options...)
	if err != nil {
		return models.StoreStats{}, err
	}
	return s.Stats(ctx)
}

// KeywordSearch runs a keyword lookup on the shared store.
func (l *Lazy) KeywordSearch(ctx context.Context, terms string, limit int, fuzzy bool) ([]models.KeywordHit, error) {
	s, err := Shared(ctx, l.Dir, l.Dimensions, l.Options...)
	if err != nil {
		return nil, err
	}
	return s.KeywordSearch(ctx, terms, limit, fuzzy)
}
