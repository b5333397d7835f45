// Package store persists short links in the shortened_urls table.
//
// Every read filters to live rows: expires_at is NULL or in the future. A row
// past its expiry is invisible here even before PurgeExpired removes it.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"urst/models"

	"gorm.io/gorm"
)

var (
	// ErrConflict is returned by Put when the code is already taken by a live row.
	ErrConflict = errors.New("short code already exists")

	// ErrNotFound is returned when no live row has the code.
	ErrNotFound = errors.New("short code not found")
)

// ClickRecorder receives click events for asynchronous counting.
type ClickRecorder interface {
	Record(code string)
}

// Store is the URL store. It is safe for concurrent use.
type Store struct {
	db     *gorm.DB
	clicks ClickRecorder
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source; tests use it to move through expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns a Store over db.
func New(db *gorm.DB, opts ...Option) *Store {
	s := &Store{
		db:  db,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetClickRecorder wires the recorder Get uses for its click side effect.
func (s *Store) SetClickRecorder(r ClickRecorder) {
	s.clicks = r
}

func (s *Store) clock() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *Store) live(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Model(&models.ShortLink{}).
		Where("(expires_at IS NULL OR expires_at > ?)", s.clock())
}

// Put inserts a new link. Anonymous links (owner nil) expire after
// models.AnonymousTTL, owned links never do.
func (s *Store) Put(ctx context.Context, code, url string, owner *string) (*models.ShortLink, error) {
	now := s.clock()

	link := &models.ShortLink{
		Code:        code,
		OriginalURL: url,
		CreatedAt:   now,
	}
	if owner != nil && *owner != "" {
		id := *owner
		link.UserID = &id
	} else {
		expires := now.Add(models.AnonymousTTL)
		link.ExpiresAt = &expires
	}

	// An expired row that hasn't been purged yet must not block the code.
	err := s.db.WithContext(ctx).
		Where("code = ? AND expires_at IS NOT NULL AND expires_at <= ?", code, now).
		Delete(&models.ShortLink{}).Error
	if err != nil {
		return nil, fmt.Errorf("clear expired %s: %w", code, err)
	}

	if err := s.db.WithContext(ctx).Create(link).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("insert %s: %w", code, err)
	}
	return link, nil
}

// GetFull returns the live record for code without touching its click count.
func (s *Store) GetFull(ctx context.Context, code string) (*models.ShortLink, error) {
	var link models.ShortLink
	err := s.live(ctx).Where("code = ?", code).Take(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load %s: %w", code, err)
	}
	return &link, nil
}

// Get returns the original URL for a live code and records a click in the
// background. The boolean is false when the code is unknown or expired.
func (s *Store) Get(ctx context.Context, code string) (string, bool, error) {
	link, err := s.GetFull(ctx, code)
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if s.clicks != nil {
		s.clicks.Record(code)
	}
	return link.OriginalURL, true, nil
}

// Exists reports whether a live row has the code.
func (s *Store) Exists(ctx context.Context, code string) (bool, error) {
	var count int64
	if err := s.live(ctx).Where("code = ?", code).Count(&count).Error; err != nil {
		return false, fmt.Errorf("count %s: %w", code, err)
	}
	return count > 0, nil
}

// IncrementClicks adds n to the click counter in a single atomic UPDATE.
func (s *Store) IncrementClicks(ctx context.Context, code string, n int64) error {
	if n <= 0 {
		return nil
	}
	res := s.db.WithContext(ctx).
		Model(&models.ShortLink{}).
		Where("code = ?", code).
		UpdateColumn("clicks", gorm.Expr("clicks + ?", n))
	if res.Error != nil {
		return fmt.Errorf("increment %s: %w", code, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListRecent returns up to limit live links, newest first. A nil owner lists
// the anonymous pool.
func (s *Store) ListRecent(ctx context.Context, limit int, owner *string) ([]models.ShortLink, error) {
	q := s.live(ctx)
	if owner != nil && *owner != "" {
		q = q.Where("user_id = ?", *owner)
	} else {
		q = q.Where("user_id IS NULL")
	}

	var links []models.ShortLink
	if err := q.Order("created_at DESC").Limit(limit).Find(&links).Error; err != nil {
		return nil, fmt.Errorf("list recent: %w", err)
	}
	return links, nil
}

// Delete removes the row unconditionally. Authorization is the caller's job.
func (s *Store) Delete(ctx context.Context, code string) (bool, error) {
	res := s.db.WithContext(ctx).Where("code = ?", code).Delete(&models.ShortLink{})
	if res.Error != nil {
		return false, fmt.Errorf("delete %s: %w", code, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// PurgeExpired deletes every row whose expires_at has passed.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at < ?", s.clock()).
		Delete(&models.ShortLink{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge expired: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
