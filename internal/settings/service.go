// Package settings owns string-keyed settings and the company display cache.
package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	apperrors "letterdesk/internal/errors"
	"letterdesk/internal/model"
	"letterdesk/internal/repository"
)

// Editable lists the keys admins may change through Update. company_logo is
// written only by SetLogo after an upload.
var Editable = map[string]bool{
	model.SettingCompanyName:    true,
	model.SettingCEOEmail:       true,
	model.SettingAdminEmail:     true,
	model.SettingMailtrapAPIKey: true,
}

// DefaultCacheTTL bounds how long another instance's settings change can go unseen.
const DefaultCacheTTL = 5 * time.Minute

// Service reads and writes settings.
type Service struct {
	repo   repository.SettingRepository
	cache  *CompanyCache
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithCacheTTL sets how long a loaded company identity is served. Zero keeps
// it until the next invalidation.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.ttl = ttl
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a settings service with an empty cache.
func NewService(repo repository.SettingRepository, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		cache:  &CompanyCache{},
		ttl:    DefaultCacheTTL,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the value for key, or def when it is unset or empty.
func (s *Service) Get(ctx context.Context, key, def string) (string, error) {
	v, err := s.repo.Get(ctx, key)
	if errors.Is(err, apperrors.ErrNotFound) {
		return def, nil
	}
	if err != nil {
		return def, err
	}
	if v == "" {
		return def, nil
	}
	return v, nil
}

// All returns every stored setting.
func (s *Service) All(ctx context.Context) (map[string]string, error) {
	return s.repo.All(ctx)
}

// Company returns the cached company identity, loading it on a miss.
// Concurrent misses share one load.
func (s *Service) Company(ctx context.Context) (Company, error) {
	if c, _, ok := s.cache.Load(); ok && !s.cache.Expired(s.now(), s.ttl) {
		return c, nil
	}

	v, err, _ := s.group.Do("company", func() (interface{}, error) {
		_, version, _ := s.cache.Load()
		values, err := s.repo.GetMany(ctx, model.SettingCompanyName, model.SettingCompanyLogo)
		if err != nil {
			return nil, err
		}
		c := Company{Name: model.DefaultCompanyName, Logo: values[model.SettingCompanyLogo]}
		if name := values[model.SettingCompanyName]; name != "" {
			c.Name = name
		}
		s.cache.Store(version, c, s.now())
		return c, nil
	})
	if err != nil {
		return Company{Name: model.DefaultCompanyName}, fmt.Errorf("load company settings: %w", err)
	}
	return v.(Company), nil
}

// Update writes values in one transaction and invalidates the cache before
// returning. Unknown keys are rejected.
func (s *Service) Update(ctx context.Context, values map[string]string) error {
	for k := range values {
		if !Editable[k] {
			return fmt.Errorf("%w: unknown setting %q", apperrors.ErrValidation, k)
		}
	}
	if err := s.repo.SetMany(ctx, values); err != nil {
		return err
	}
	s.cache.Invalidate()
	s.logger.InfoContext(ctx, "settings updated", "keys", len(values))
	return nil
}

// SetLogo points company_logo at an uploaded blob key.
func (s *Service) SetLogo(ctx context.Context, key string) error {
	if err := s.repo.SetMany(ctx, map[string]string{model.SettingCompanyLogo: key}); err != nil {
		return err
	}
	s.cache.Invalidate()
	s.logger.InfoContext(ctx, "company logo set", "storage_key", key)
	return nil
}

// InvalidateCache forces the next Company call to reload.
func (s *Service) InvalidateCache() {
	s.cache.Invalidate()
}
