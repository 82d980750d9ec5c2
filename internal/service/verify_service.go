package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	apperrors "letterdesk/internal/errors"
	"letterdesk/internal/identity"
	"letterdesk/internal/metrics"
	"letterdesk/internal/model"
	"letterdesk/internal/repository"
)

// PublicStatus is everything an anonymous caller may learn about a letter.
// Emails, comments and storage details are deliberately absent.
type PublicStatus struct {
	LetterNumber string             `json:"letter_number"`
	Status       model.LetterStatus `json:"status"`
	UploadDate   time.Time          `json:"upload_date"`
	VerifiedDate *time.Time         `json:"verified_date,omitempty"`
	UploadedBy   string             `json:"uploaded_by"`
	VerifiedBy   string             `json:"verified_by,omitempty"`
}

// VerificationService answers anonymous "is this letter genuine" queries.
type VerificationService interface {
	Lookup(ctx context.Context, number string) (*PublicStatus, error)
}

type verificationService struct {
	letters repository.LetterRepository
	users   repository.UserRepository
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewVerificationService creates the public lookup service.
func NewVerificationService(letters repository.LetterRepository, users repository.UserRepository, opts ...Option) VerificationService {
	o := buildOptions(opts)
	return &verificationService{
		letters: letters,
		users:   users,
		logger:  o.logger,
		metrics: o.metrics,
	}
}

// Lookup reports the status of number. Malformed numbers are treated as
// unknown ones so the response never reveals anything about the format check.
func (s *verificationService) Lookup(ctx context.Context, number string) (*PublicStatus, error) {
	number = strings.ToUpper(strings.TrimSpace(number))
	if !identity.ValidNumber(number) {
		s.metrics.ObserveLookup(false)
		return nil, apperrors.ErrNotFound
	}

	letter, err := s.letters.FindByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.metrics.ObserveLookup(false)
		}
		return nil, err
	}
	s.metrics.ObserveLookup(true)

	out := &PublicStatus{
		LetterNumber: letter.LetterNumber,
		Status:       letter.Status,
		UploadDate:   letter.UploadDate,
		VerifiedDate: letter.VerifiedDate,
		UploadedBy:   displayName(ctx, s.users, letter.UploadedBy, "Unknown"),
	}
	if letter.VerifiedBy != nil {
		out.VerifiedBy = displayName(ctx, s.users, *letter.VerifiedBy, "Unknown")
	}
	return out, nil
}
