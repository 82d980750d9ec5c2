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
	"unicode"

	"letterdesk/internal/blob"
	apperrors "letterdesk/internal/errors"
	"letterdesk/internal/identity"
	"letterdesk/internal/metrics"
	"letterdesk/internal/model"
	"letterdesk/internal/notify"
	"letterdesk/internal/policy"
	"letterdesk/internal/repository"
)

// maxMintAttempts bounds retries when a minted number collides with a stored one.
const maxMintAttempts = 5

// defaultStem names uploads whose name has nothing printable left.
const defaultStem = "letter"

// Notifier delivers lifecycle events. Implementations log their own outcome.
type Notifier interface {
	Dispatch(ctx context.Context, ev notify.Event, r notify.Recipient) notify.Result
}

// SubmitInput is an uploaded letter.
type SubmitInput struct {
	FileName             string
	Content              io.Reader
	RequiresVerification bool
}

// LetterDetail is a letter with display names resolved.
type LetterDetail struct {
	model.Letter
	UploadedByName string `json:"uploaded_by_name"`
	VerifiedByName string `json:"verified_by_name,omitempty"`
}

// Download is an open letter file. The caller closes Body.
type Download struct {
	Body     io.ReadCloser
	FileName string
}

// DeleteResult reports a completed deletion. Warning is set when the row is
// gone but the stored file could not be removed.
type DeleteResult struct {
	Warning string `json:"warning,omitempty"`
}

// LetterService owns the letter lifecycle: Pending -> Verified | Rejected.
type LetterService interface {
	Submit(ctx context.Context, actor policy.Actor, in SubmitInput) (*model.Letter, error)
	Transition(ctx context.Context, number string, actor policy.Actor, status model.LetterStatus, comments string) (*model.Letter, error)
	Delete(ctx context.Context, number string, actor policy.Actor) (*DeleteResult, error)
	Get(ctx context.Context, number string, actor policy.Actor) (*LetterDetail, error)
	Download(ctx context.Context, number string, actor policy.Actor) (*Download, error)
	List(ctx context.Context, actor policy.Actor) ([]LetterDetail, error)
	Stats(ctx context.Context) (map[model.LetterStatus]int64, error)
	VerificationImage(ctx context.Context, number string) ([]byte, error)
}

type letterService struct {
	letters  repository.LetterRepository
	users    repository.UserRepository
	blobs    blob.Store
	ids      *identity.Generator
	notifier Notifier
	logger   *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// Option configures services in this package.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics records lifecycle counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewLetterService creates the lifecycle engine.
func NewLetterService(
	letters repository.LetterRepository,
	users repository.UserRepository,
	blobs blob.Store,
	ids *identity.Generator,
	notifier Notifier,
	opts ...Option,
) LetterService {
	o := buildOptions(opts)
	return &letterService{
		letters:  letters,
		users:    users,
		blobs:    blobs,
		ids:      ids,
		notifier: notifier,
		logger:   o.logger,
		metrics:  o.metrics,
		now:      o.now,
	}
}

// Submit stores the file, then the row. A failed insert removes the file so
// no number ever points at a missing document.
func (s *letterService) Submit(ctx context.Context, actor policy.Actor, in SubmitInput) (*model.Letter, error) {
	name, err := sanitizeFilename(in.FileName)
	if err != nil {
		return nil, err
	}
	if in.Content == nil {
		return nil, fmt.Errorf("%w: no file selected", apperrors.ErrValidation)
	}

	now := s.now()
	key := blob.NewKey("letters", "pdf", now)
	if err := s.blobs.Save(ctx, key, in.Content); err != nil {
		return nil, fmt.Errorf("%w: store file: %w", apperrors.ErrUnavailable, err)
	}

	letter, err := s.insertWithFreshNumber(ctx, actor, name, key, now, in.RequiresVerification)
	if err != nil {
		if delErr := s.blobs.Delete(ctx, key); delErr != nil {
			s.logger.ErrorContext(ctx, "orphaned upload after failed insert", "storage_key", key, "error", delErr)
		}
		return nil, err
	}

	s.metrics.IncSubmitted()
	s.logger.InfoContext(ctx, "letter submitted",
		"letter_number", letter.LetterNumber,
		"uploaded_by", actor.ID,
		"requires_verification", letter.RequiresVerification)

	if letter.RequiresVerification {
		s.notifier.Dispatch(ctx, notify.Event{
			Kind:         notify.EventSubmittedForReview,
			LetterNumber: letter.LetterNumber,
			DocumentName: letter.OriginalFilename,
			ActorName:    s.displayName(ctx, actor.ID, "Unknown"),
			Timestamp:    letter.UploadDate,
		}, notify.ReviewerRecipient())
	}
	return letter, nil
}

func (s *letterService) insertWithFreshNumber(ctx context.Context, actor policy.Actor, name, key string, now time.Time, requires bool) (*model.Letter, error) {
	for attempt := 1; attempt <= maxMintAttempts; attempt++ {
		ident, err := s.ids.Mint()
		if err != nil {
			return nil, fmt.Errorf("mint identity: %w", err)
		}
		letter := &model.Letter{
			LetterNumber:         ident.Number,
			StorageKey:           key,
			OriginalFilename:     name,
			UploadedBy:           actor.ID,
			UploadDate:           now,
			Status:               model.LetterStatusPending,
			RequiresVerification: requires,
			QRCode:               ident.Token.Base64,
		}
		err = s.letters.Create(ctx, letter)
		if err == nil {
			return letter, nil
		}
		if !errors.Is(err, apperrors.ErrConflict) {
			return nil, err
		}
		s.logger.WarnContext(ctx, "letter number collision, retrying", "letter_number", ident.Number, "attempt", attempt)
	}
	return nil, fmt.Errorf("%w: could not allocate a unique letter number", apperrors.ErrUnavailable)
}

func (s *letterService) Transition(ctx context.Context, number string, actor policy.Actor, status model.LetterStatus, comments string) (*model.Letter, error) {
	if !status.Terminal() {
		return nil, fmt.Errorf("%w: status must be %s or %s", apperrors.ErrValidation, model.LetterStatusVerified, model.LetterStatusRejected)
	}

	letter, err := s.letters.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if !policy.Can(actor, letter, policy.OpReview) {
		return nil, apperrors.ErrForbidden
	}
	if letter.Status.Terminal() {
		s.metrics.IncTransitionConflict()
		return nil, fmt.Errorf("%w: letter is already %s", apperrors.ErrInvalidTransition, letter.Status)
	}

	now := s.now()
	ok, err := s.letters.AdjudicateIfPending(ctx, number, repository.Adjudication{
		Status:     status,
		VerifiedBy: actor.ID,
		VerifiedAt: now,
		Comments:   comments,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost the race: someone else adjudicated or deleted it since the read.
		if _, err := s.letters.FindByNumber(ctx, number); errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
		s.metrics.IncTransitionConflict()
		return nil, fmt.Errorf("%w: letter is no longer pending", apperrors.ErrInvalidTransition)
	}

	reviewer := actor.ID
	letter.Status = status
	letter.VerifiedBy = &reviewer
	letter.VerifiedDate = &now
	letter.VerificationComments = comments

	s.metrics.IncTransition(string(status))
	s.logger.InfoContext(ctx, "letter adjudicated", "letter_number", number, "status", status, "reviewer", actor.ID)

	s.notifier.Dispatch(ctx, notify.Event{
		Kind:         notify.EventAdjudicated,
		LetterNumber: letter.LetterNumber,
		DocumentName: letter.OriginalFilename,
		ActorName:    s.displayName(ctx, actor.ID, "CEO"),
		Timestamp:    now,
		Status:       status,
		Comments:     comments,
	}, notify.UserRecipient(letter.UploadedBy))

	return letter, nil
}

// Delete needs no letter fields to authorize, so it is checked before the lookup.
func (s *letterService) Delete(ctx context.Context, number string, actor policy.Actor) (*DeleteResult, error) {
	if !policy.Can(actor, &model.Letter{LetterNumber: number}, policy.OpDelete) {
		return nil, apperrors.ErrForbidden
	}

	letter, err := s.letters.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if err := s.letters.Delete(ctx, number); err != nil {
		return nil, err
	}
	s.metrics.IncDeleted()

	res := &DeleteResult{}
	if err := s.blobs.Delete(ctx, letter.StorageKey); err != nil {
		res.Warning = fmt.Sprintf("letter deleted but file could not be removed: %v", err)
		s.logger.WarnContext(ctx, "letter file removal failed", "letter_number", number, "storage_key", letter.StorageKey, "error", err)
	}
	s.logger.InfoContext(ctx, "letter deleted", "letter_number", number, "deleted_by", actor.ID)
	return res, nil
}

func (s *letterService) Get(ctx context.Context, number string, actor policy.Actor) (*LetterDetail, error) {
	letter, err := s.letters.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if !policy.Can(actor, letter, policy.OpView) {
		return nil, apperrors.ErrForbidden
	}
	names := map[uint]string{}
	detail := s.detail(ctx, *letter, names)
	return &detail, nil
}

func (s *letterService) Download(ctx context.Context, number string, actor policy.Actor) (*Download, error) {
	letter, err := s.letters.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if !policy.Can(actor, letter, policy.OpDownload) {
		return nil, apperrors.ErrForbidden
	}
	body, err := s.blobs.Open(ctx, letter.StorageKey)
	if errors.Is(err, blob.ErrNotExist) {
		return nil, fmt.Errorf("file for letter %s: %w", number, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: open file: %w", apperrors.ErrUnavailable, err)
	}
	return &Download{Body: body, FileName: letter.OriginalFilename}, nil
}

// List shows reviewers every letter and users only their own.
func (s *letterService) List(ctx context.Context, actor policy.Actor) ([]LetterDetail, error) {
	var owner *uint
	if !actor.IsReviewer() {
		id := actor.ID
		owner = &id
	}
	letters, err := s.letters.List(ctx, owner)
	if err != nil {
		return nil, err
	}

	names := map[uint]string{}
	out := make([]LetterDetail, 0, len(letters))
	for _, l := range letters {
		if !policy.Can(actor, &l, policy.OpView) {
			continue
		}
		out = append(out, s.detail(ctx, l, names))
	}
	return out, nil
}

func (s *letterService) Stats(ctx context.Context) (map[model.LetterStatus]int64, error) {
	counts, err := s.letters.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	stats := map[model.LetterStatus]int64{
		model.LetterStatusPending:  0,
		model.LetterStatusVerified: 0,
		model.LetterStatusRejected: 0,
	}
	for _, c := range counts {
		stats[c.Status] = c.Count
	}
	return stats, nil
}

// VerificationImage re-derives the QR code; the stored copy is only a cache.
func (s *letterService) VerificationImage(ctx context.Context, number string) ([]byte, error) {
	if !identity.ValidNumber(number) {
		return nil, apperrors.ErrNotFound
	}
	if _, err := s.letters.FindByNumber(ctx, number); err != nil {
		return nil, err
	}
	token, err := s.ids.Token(number)
	if err != nil {
		return nil, err
	}
	return token.PNG, nil
}

func (s *letterService) detail(ctx context.Context, l model.Letter, names map[uint]string) LetterDetail {
	d := LetterDetail{Letter: l, UploadedByName: s.cachedName(ctx, l.UploadedBy, names)}
	if l.VerifiedBy != nil {
		d.VerifiedByName = s.cachedName(ctx, *l.VerifiedBy, names)
	}
	return d
}

func (s *letterService) cachedName(ctx context.Context, id uint, names map[uint]string) string {
	if n, ok := names[id]; ok {
		return n
	}
	n := s.displayName(ctx, id, "")
	names[id] = n
	return n
}

func (s *letterService) displayName(ctx context.Context, id uint, def string) string {
	return displayName(ctx, s.users, id, def)
}

func displayName(ctx context.Context, users repository.UserRepository, id uint, def string) string {
	u, err := users.FindByID(ctx, id)
	if err != nil {
		return def
	}
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

// sanitizeFilename accepts a name whose raw base ends in .pdf and returns a
// storage-safe display name. Letters and digits of any script are kept, other
// runes are dropped, and spaces become underscores.
func sanitizeFilename(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: no file selected", apperrors.ErrValidation)
	}
	base := filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	ext := filepath.Ext(base)
	if !strings.EqualFold(ext, ".pdf") || strings.TrimSpace(strings.TrimSuffix(base, ext)) == "" {
		return "", fmt.Errorf("%w: only PDF files are allowed", apperrors.ErrValidation)
	}

	var b strings.Builder
	for _, r := range strings.TrimSuffix(base, ext) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	stem := strings.Trim(b.String(), "._")
	if stem == "" {
		stem = defaultStem
	}
	return stem + ext, nil
}
