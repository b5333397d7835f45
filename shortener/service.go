// Package shortener turns long URLs into short codes and resolves them back.
package shortener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"urst/blocklist"
	"urst/cache"
	"urst/metrics"
	"urst/models"
	"urst/pubsub"
	"urst/store"
	"urst/utils"
)

// MaxAttempts is how many codes taken by other URLs Shorten tolerates before
// giving up.
const MaxAttempts = 3

const (
	DefaultRecentLimit = 3
	MaxRecentLimit     = 50
)

var (
	ErrInvalidURL  = utils.ErrInvalidURL
	ErrBlockedHost = errors.New("host is not allowed")
	ErrNotFound    = store.ErrNotFound
	ErrConflict    = store.ErrConflict
	ErrForbidden   = errors.New("link belongs to another user")
	ErrStorage     = errors.New("storage failure")
)

// LinkStore is the persistence the service needs.
type LinkStore interface {
	Put(ctx context.Context, code, url string, owner *string) (*models.ShortLink, error)
	GetFull(ctx context.Context, code string) (*models.ShortLink, error)
	ListRecent(ctx context.Context, limit int, owner *string) ([]models.ShortLink, error)
	Delete(ctx context.Context, code string) (bool, error)
	PurgeExpired(ctx context.Context) (int64, error)
}

// Publisher announces invalidations to other instances.
type Publisher interface {
	Publish(ctx context.Context, event, code string) error
}

// Result is what Shorten hands back.
type Result struct {
	Link *models.ShortLink
	// Created is false when an identical link already existed.
	Created bool
}

type Service struct {
	store     LinkStore
	cache     cache.LinkCache
	clicks    store.ClickRecorder
	blocklist *blocklist.List
	events    Publisher
	logger    *slog.Logger
}

type Option func(*Service)

func WithCache(c cache.LinkCache) Option {
	return func(s *Service) { s.cache = c }
}

func WithClickRecorder(r store.ClickRecorder) Option {
	return func(s *Service) { s.clicks = r }
}

func WithBlocklist(l *blocklist.List) Option {
	return func(s *Service) { s.blocklist = l }
}

func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.events = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func New(st LinkStore, opts ...Option) *Service {
	s := &Service{
		store:  st,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}

func ownerOf(owner *string) *string {
	if owner == nil || *owner == "" {
		return nil
	}
	return owner
}

// Shorten returns the short link for rawURL. The same URL submitted in the
// same owner context always yields the same code without inserting again.
func (s *Service) Shorten(ctx context.Context, rawURL string, owner *string) (*Result, error) {
	normalized, err := utils.NormalizeURL(rawURL)
	if err != nil {
		return nil, ErrInvalidURL
	}
	if s.blocklist.Blocked(utils.HostOf(normalized)) {
		return nil, ErrBlockedHost
	}
	owner = ownerOf(owner)

	// Rows holding the same URL for another owner are skipped without
	// counting; only codes taken by a different URL use up an attempt.
	for attempt, collisions := 0, 0; collisions < MaxAttempts; attempt++ {
		code := utils.GenerateKeyAttempt(normalized, attempt)

		existing, err := s.store.GetFull(ctx, code)
		switch {
		case err == nil:
			if existing.OriginalURL == normalized {
				if existing.SameOwner(owner) {
					return &Result{Link: existing}, nil
				}
				continue
			}
			collisions++
			metrics.CollisionRetries.Inc()
			continue
		case !errors.Is(err, store.ErrNotFound):
			return nil, storageErr("lookup", err)
		}

		link, err := s.store.Put(ctx, code, normalized, owner)
		if err == nil {
			metrics.LinksCreated.Inc()
			s.logger.Info("link created", "code", code, "owned", owner != nil)
			return &Result{Link: link, Created: true}, nil
		}
		if !errors.Is(err, store.ErrConflict) {
			return nil, storageErr("insert", err)
		}

		// Lost a race for the code; the winner may have stored the same link.
		existing, err = s.store.GetFull(ctx, code)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, storageErr("lookup", err)
		}
		if err == nil && existing.OriginalURL == normalized {
			if existing.SameOwner(owner) {
				return &Result{Link: existing}, nil
			}
			continue
		}
		collisions++
		metrics.CollisionRetries.Inc()
	}

	s.logger.Warn("short code collisions exhausted", "url", normalized)
	return nil, ErrConflict
}

// Resolve returns the redirect target for code and records a click. Unknown,
// malformed and expired codes all report ErrNotFound.
func (s *Service) Resolve(ctx context.Context, code string) (string, error) {
	link, err := s.lookup(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			metrics.Redirects.WithLabelValues("not_found").Inc()
		}
		return "", err
	}
	metrics.Redirects.WithLabelValues("found").Inc()
	if s.clicks != nil {
		s.clicks.Record(link.Code)
	}
	return utils.EnsureScheme(link.OriginalURL), nil
}

func (s *Service) lookup(ctx context.Context, code string) (*models.ShortLink, error) {
	if !utils.ValidKey(code) {
		return nil, ErrNotFound
	}
	if s.cache != nil {
		if link, ok := s.cache.Get(ctx, code); ok {
			metrics.CacheLookups.WithLabelValues("hit").Inc()
			return link, nil
		}
		metrics.CacheLookups.WithLabelValues("miss").Inc()
	}

	link, err := s.store.GetFull(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, storageErr("resolve", err)
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, link); err != nil {
			s.logger.Warn("cache set failed", "code", code, "error", err)
		}
	}
	return link, nil
}

// Stats returns the full record for code without counting a click.
func (s *Service) Stats(ctx context.Context, code string) (*models.ShortLink, error) {
	if !utils.ValidKey(code) {
		return nil, ErrNotFound
	}
	link, err := s.store.GetFull(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, storageErr("stats", err)
	}
	return link, nil
}

// Recent lists the newest live links of owner, or of the anonymous pool when
// owner is nil.
func (s *Service) Recent(ctx context.Context, owner *string, limit int) ([]models.ShortLink, error) {
	switch {
	case limit <= 0:
		limit = DefaultRecentLimit
	case limit > MaxRecentLimit:
		limit = MaxRecentLimit
	}
	links, err := s.store.ListRecent(ctx, limit, ownerOf(owner))
	if err != nil {
		return nil, storageErr("recent", err)
	}
	return links, nil
}

// Delete removes code. Owned links may only be removed by their owner;
// anonymous links by anyone.
func (s *Service) Delete(ctx context.Context, code string, caller *string) error {
	if !utils.ValidKey(code) {
		return ErrNotFound
	}
	link, err := s.store.GetFull(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return storageErr("delete lookup", err)
	}
	if link.Owned() && !link.SameOwner(ownerOf(caller)) {
		return ErrForbidden
	}

	ok, err := s.store.Delete(ctx, code)
	if err != nil {
		return storageErr("delete", err)
	}
	if !ok {
		return ErrNotFound
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, code); err != nil {
			s.logger.Warn("cache delete failed", "code", code, "error", err)
		}
	}
	s.publish(ctx, pubsub.EventLinkDeleted, code)
	s.logger.Info("link deleted", "code", code)
	return nil
}

// Cleanup purges expired links. Running it again right away is a no-op.
func (s *Service) Cleanup(ctx context.Context) (int64, error) {
	n, err := s.store.PurgeExpired(ctx)
	if err != nil {
		return 0, storageErr("cleanup", err)
	}
	metrics.LinksPurged.Add(float64(n))
	s.logger.Info("expired links purged", "count", n)
	if n == 0 {
		return 0, nil
	}

	if s.cache != nil {
		if err := s.cache.Flush(ctx); err != nil {
			s.logger.Warn("cache flush failed", "error", err)
		}
	}
	s.publish(ctx, pubsub.EventLinksPurged, "")
	return n, nil
}

func (s *Service) publish(ctx context.Context, event, code string) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event, code); err != nil {
		s.logger.Warn("publish failed", "event", event, "error", err)
	}
}
