package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"letterdesk/internal/blob"
	apperrors "letterdesk/internal/errors"
	"letterdesk/internal/model"
	"letterdesk/internal/notify"
	"letterdesk/internal/policy"
	"letterdesk/internal/settings"
)

// maskedSecret replaces secrets in settings responses. Submitting it back
// leaves the stored value unchanged.
const maskedSecret = "********"

var logoTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
}

// SettingsStore is what the admin surface needs from the settings package.
type SettingsStore interface {
	Get(ctx context.Context, key, def string) (string, error)
	All(ctx context.Context) (map[string]string, error)
	Company(ctx context.Context) (settings.Company, error)
	Update(ctx context.Context, values map[string]string) error
	SetLogo(ctx context.Context, key string) error
	InvalidateCache()
}

// TestMailer sends the configuration test email.
type TestMailer interface {
	SendTest(ctx context.Context) notify.Result
}

// Logo is an open company logo. The caller closes Body.
type Logo struct {
	Body        io.ReadCloser
	ContentType string
}

// SettingsService is the admin settings surface plus the public company identity.
type SettingsService interface {
	Company(ctx context.Context) settings.Company
	Logo(ctx context.Context) (*Logo, error)
	All(ctx context.Context, actor policy.Actor) (map[string]string, error)
	Update(ctx context.Context, actor policy.Actor, values map[string]string) error
	UploadLogo(ctx context.Context, actor policy.Actor, fileName string, r io.Reader) (string, error)
	TestEmail(ctx context.Context, actor policy.Actor) (notify.Result, error)
	ClearCache(ctx context.Context, actor policy.Actor) error
}

type settingsService struct {
	store  SettingsStore
	blobs  blob.Store
	mailer TestMailer
	logger *slog.Logger
	now    func() time.Time
}

// NewSettingsService creates the settings surface.
func NewSettingsService(store SettingsStore, blobs blob.Store, mailer TestMailer, opts ...Option) SettingsService {
	o := buildOptions(opts)
	return &settingsService{
		store:  store,
		blobs:  blobs,
		mailer: mailer,
		logger: o.logger,
		now:    o.now,
	}
}

// Company never fails; the default name stands in when storage is down.
func (s *settingsService) Company(ctx context.Context) settings.Company {
	c, err := s.store.Company(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "company settings unavailable", "error", err)
	}
	return c
}

func (s *settingsService) Logo(ctx context.Context) (*Logo, error) {
	c := s.Company(ctx)
	if c.Logo == "" {
		return nil, fmt.Errorf("company logo: %w", apperrors.ErrNotFound)
	}
	body, err := s.blobs.Open(ctx, c.Logo)
	if errors.Is(err, blob.ErrNotExist) {
		return nil, fmt.Errorf("company logo: %w", apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: open logo: %w", apperrors.ErrUnavailable, err)
	}
	ct := logoTypes[strings.ToLower(filepath.Ext(c.Logo))]
	if ct == "" {
		ct = "application/octet-stream"
	}
	return &Logo{Body: body, ContentType: ct}, nil
}

func (s *settingsService) All(ctx context.Context, actor policy.Actor) (map[string]string, error) {
	if !policy.Can(actor, nil, policy.OpManageSettings) {
		return nil, apperrors.ErrForbidden
	}
	values, err := s.store.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(settings.Editable))
	for k := range settings.Editable {
		out[k] = ""
	}
	for k, v := range values {
		out[k] = v
	}
	if out[model.SettingCompanyName] == "" {
		out[model.SettingCompanyName] = model.DefaultCompanyName
	}
	if out[model.SettingMailtrapAPIKey] != "" {
		out[model.SettingMailtrapAPIKey] = maskedSecret
	}
	return out, nil
}

func (s *settingsService) Update(ctx context.Context, actor policy.Actor, values map[string]string) error {
	if !policy.Can(actor, nil, policy.OpManageSettings) {
		return apperrors.ErrForbidden
	}
	clean := make(map[string]string, len(values))
	for k, v := range values {
		v = strings.TrimSpace(v)
		if k == model.SettingMailtrapAPIKey && v == maskedSecret {
			continue
		}
		clean[k] = v
	}
	if len(clean) == 0 {
		return nil
	}
	if err := s.store.Update(ctx, clean); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "settings changed", "by", actor.ID)
	return nil
}

// UploadLogo stores a new logo and points company_logo at it. The previous
// file is removed once the setting no longer references it.
func (s *settingsService) UploadLogo(ctx context.Context, actor policy.Actor, fileName string, r io.Reader) (string, error) {
	if !policy.Can(actor, nil, policy.OpManageSettings) {
		return "", apperrors.ErrForbidden
	}
	ext := strings.ToLower(filepath.Ext(fileName))
	if _, ok := logoTypes[ext]; !ok {
		return "", fmt.Errorf("%w: logo must be png, jpg, gif or svg", apperrors.ErrValidation)
	}
	if r == nil {
		return "", fmt.Errorf("%w: no file selected", apperrors.ErrValidation)
	}

	previous, _ := s.store.Get(ctx, model.SettingCompanyLogo, "")
	key := blob.NewKey("settings", ext, s.now())
	if err := s.blobs.Save(ctx, key, r); err != nil {
		return "", fmt.Errorf("%w: store logo: %w", apperrors.ErrUnavailable, err)
	}
	if err := s.store.SetLogo(ctx, key); err != nil {
		_ = s.blobs.Delete(ctx, key)
		return "", err
	}

	if previous != "" && previous != key {
		if err := s.blobs.Delete(ctx, previous); err != nil && !errors.Is(err, blob.ErrNotExist) {
			s.logger.WarnContext(ctx, "old logo not removed", "storage_key", previous, "error", err)
		}
	}
	s.logger.InfoContext(ctx, "company logo uploaded", "storage_key", key, "by", actor.ID)
	return key, nil
}

func (s *settingsService) TestEmail(ctx context.Context, actor policy.Actor) (notify.Result, error) {
	if !policy.Can(actor, nil, policy.OpManageSettings) {
		return notify.Result{}, apperrors.ErrForbidden
	}
	res := s.mailer.SendTest(ctx)
	s.logger.InfoContext(ctx, "test email attempted", "delivered", res.Delivered, "detail", res.Detail)
	return res, nil
}

func (s *settingsService) ClearCache(ctx context.Context, actor policy.Actor) error {
	if !policy.Can(actor, nil, policy.OpManageSettings) {
		return apperrors.ErrForbidden
	}
	s.store.InvalidateCache()
	s.logger.InfoContext(ctx, "settings cache cleared", "by", actor.ID)
	return nil
}
