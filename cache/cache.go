package cache

import (
	"context"
	"encoding/json"
	"time"

	"urst/models"

	"github.com/allegro/bigcache"
)

// LinkCache holds live short links in front of the database. Implementations
// must never hand back a link whose expiry has passed.
type LinkCache interface {
	Get(ctx context.Context, code string) (*models.ShortLink, bool)
	Set(ctx context.Context, link *models.ShortLink) error
	Delete(ctx context.Context, code string) error
	Flush(ctx context.Context) error
	Close() error
}

// BigCacheStore is an in-process LinkCache backed by BigCache.
type BigCacheStore struct {
	cache *bigcache.BigCache
	now   func() time.Time
}

// NewBigCacheStore initializes a new BigCacheStore. Entries are evicted after
// lifeWindow at the latest.
func NewBigCacheStore(lifeWindow time.Duration) (*BigCacheStore, error) {
	if lifeWindow <= 0 {
		lifeWindow = 10 * time.Minute
	}
	config := bigcache.Config{
		Shards:             1024,
		LifeWindow:         lifeWindow,
		CleanWindow:        5 * time.Minute,
		MaxEntriesInWindow: 1000 * 10 * 60,
		MaxEntrySize:       500,
		HardMaxCacheSize:   8192,
		Verbose:            false,
	}
	bc, err := bigcache.NewBigCache(config)
	if err != nil {
		return nil, err
	}
	return &BigCacheStore{
		cache: bc,
		now:   time.Now,
	}, nil
}

// Get returns the cached link. An entry that has expired since it was
// cached is dropped and reported as a miss.
func (b *BigCacheStore) Get(_ context.Context, code string) (*models.ShortLink, bool) {
	data, err := b.cache.Get(code)
	if err != nil {
		return nil, false
	}
	var link models.ShortLink
	if err := json.Unmarshal(data, &link); err != nil {
		_ = b.cache.Delete(code)
		return nil, false
	}
	if link.Expired(b.now()) {
		_ = b.cache.Delete(code)
		return nil, false
	}
	return &link, true
}

// Set stores a link in the cache.
func (b *BigCacheStore) Set(_ context.Context, link *models.ShortLink) error {
	data, err := json.Marshal(link)
	if err != nil {
		return err
	}
	return b.cache.Set(link.Code, data)
}

// Delete removes a link. Deleting a missing entry is not an error.
func (b *BigCacheStore) Delete(_ context.Context, code string) error {
	if _, err := b.cache.Get(code); err != nil {
		return nil
	}
	return b.cache.Delete(code)
}

// Flush drops every entry.
func (b *BigCacheStore) Flush(_ context.Context) error {
	return b.cache.Reset()
}

// Close is a no-op, BigCache has nothing to release here.
func (b *BigCacheStore) Close() error {
	return nil
}
