package cache

import (
	"context"
	"errors"

	"urst/models"
)

// Tiered reads through a per-process cache into a shared one. Writes and
// invalidations go to both.
type Tiered struct {
	local  LinkCache
	shared LinkCache
}

func NewTiered(local, shared LinkCache) *Tiered {
	return &Tiered{local: local, shared: shared}
}

func (t *Tiered) Get(ctx context.Context, code string) (*models.ShortLink, bool) {
	if link, ok := t.local.Get(ctx, code); ok {
		return link, true
	}
	link, ok := t.shared.Get(ctx, code)
	if !ok {
		return nil, false
	}
	_ = t.local.Set(ctx, link)
	return link, true
}

func (t *Tiered) Set(ctx context.Context, link *models.ShortLink) error {
	return errors.Join(t.local.Set(ctx, link), t.shared.Set(ctx, link))
}

func (t *Tiered) Delete(ctx context.Context, code string) error {
	return errors.Join(t.local.Delete(ctx, code), t.shared.Delete(ctx, code))
}

func (t *Tiered) Flush(ctx context.Context) error {
	return errors.Join(t.local.Flush(ctx), t.shared.Flush(ctx))
}

func (t *Tiered) Close() error {
	return errors.Join(t.local.Close(), t.shared.Close())
}

// Local returns the per-process tier, which is what cross-instance
// invalidation events need to clear.
func (t *Tiered) Local() LinkCache {
	return t.local
}
