package service

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"letterdesk/internal/blob"
	apperrors "letterdesk/internal/errors"
	"letterdesk/internal/model"
	"letterdesk/internal/notify"
	"letterdesk/internal/repository"
)

// MockLetterRepository is a mock implementation of LetterRepository.
type MockLetterRepository struct {
	mock.Mock
}

func (m *MockLetterRepository) Create(ctx context.Context, letter *model.Letter) error {
	args := m.Called(ctx, letter)
	return args.Error(0)
}

func (m *MockLetterRepository) FindByNumber(ctx context.Context, number string) (*model.Letter, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Letter), args.Error(1)
}

func (m *MockLetterRepository) AdjudicateIfPending(ctx context.Context, number string, a repository.Adjudication) (bool, error) {
	args := m.Called(ctx, number, a)
	return args.Bool(0), args.Error(1)
}

func (m *MockLetterRepository) Delete(ctx context.Context, number string) error {
	args := m.Called(ctx, number)
	return args.Error(0)
}

func (m *MockLetterRepository) List(ctx context.Context, uploadedBy *uint) ([]model.Letter, error) {
	args := m.Called(ctx, uploadedBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Letter), args.Error(1)
}

func (m *MockLetterRepository) CountByStatus(ctx context.Context) ([]model.StatusCount, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.StatusCount), args.Error(1)
}

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context) ([]model.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}

// MockBlobStore is a mock implementation of blob.Store.
type MockBlobStore struct {
	mock.Mock
}

func (m *MockBlobStore) Save(ctx context.Context, key string, r io.Reader) error {
	args := m.Called(ctx, key, r)
	return args.Error(0)
}

func (m *MockBlobStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *MockBlobStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockBlobStore) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

// MockTokenStore is a mock implementation of auth.TokenStoreInterface.
type MockTokenStore struct {
	mock.Mock
}

func (m *MockTokenStore) StoreRefreshToken(ctx context.Context, tokenID string, userID uint, ttl time.Duration) error {
	args := m.Called(ctx, tokenID, userID, ttl)
	return args.Error(0)
}

func (m *MockTokenStore) GetRefreshToken(ctx context.Context, tokenID string) (uint, error) {
	args := m.Called(ctx, tokenID)
	return args.Get(0).(uint), args.Error(1)
}

func (m *MockTokenStore) DeleteRefreshToken(ctx context.Context, tokenID string) error {
	args := m.Called(ctx, tokenID)
	return args.Error(0)
}

func (m *MockTokenStore) BlacklistAccessToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	args := m.Called(ctx, tokenID, ttl)
	return args.Error(0)
}

func (m *MockTokenStore) IsAccessTokenBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	args := m.Called(ctx, tokenID)
	return args.Bool(0), args.Error(1)
}

type dispatched struct {
	Event     notify.Event
	Recipient notify.Recipient
}

// recordingNotifier captures dispatched events and answers with a fixed result.
type recordingNotifier struct {
	mu     sync.Mutex
	events []dispatched
	result notify.Result
}

func (n *recordingNotifier) Dispatch(_ context.Context, ev notify.Event, r notify.Recipient) notify.Result {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, dispatched{Event: ev, Recipient: r})
	return n.result
}

func (n *recordingNotifier) Events() []dispatched {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]dispatched(nil), n.events...)
}

// memLetters is an in-memory LetterRepository whose conditional update is
// atomic, like the SQL one.
type memLetters struct {
	mu      sync.Mutex
	letters map[string]model.Letter
	nextID  uint
}

func newMemLetters() *memLetters {
	return &memLetters{letters: map[string]model.Letter{}}
}

func (r *memLetters) Create(_ context.Context, l *model.Letter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.letters[l.LetterNumber]; ok {
		return apperrors.ErrConflict
	}
	r.nextID++
	l.ID = r.nextID
	r.letters[l.LetterNumber] = *l
	return nil
}

func (r *memLetters) FindByNumber(_ context.Context, number string) (*model.Letter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.letters[number]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &l, nil
}

func (r *memLetters) AdjudicateIfPending(_ context.Context, number string, a repository.Adjudication) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.letters[number]
	if !ok || l.Status != model.LetterStatusPending {
		return false, nil
	}
	by, at := a.VerifiedBy, a.VerifiedAt
	l.Status = a.Status
	l.VerifiedBy = &by
	l.VerifiedDate = &at
	l.VerificationComments = a.Comments
	r.letters[number] = l
	return true, nil
}

func (r *memLetters) Delete(_ context.Context, number string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.letters[number]; !ok {
		return apperrors.ErrNotFound
	}
	delete(r.letters, number)
	return nil
}

func (r *memLetters) List(_ context.Context, uploadedBy *uint) ([]model.Letter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Letter
	for _, l := range r.letters {
		if uploadedBy == nil || l.UploadedBy == *uploadedBy {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadDate.After(out[j].UploadDate) })
	return out, nil
}

func (r *memLetters) CountByStatus(_ context.Context) ([]model.StatusCount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := map[model.LetterStatus]int64{}
	for _, l := range r.letters {
		counts[l.Status]++
	}
	out := make([]model.StatusCount, 0, len(counts))
	for s, c := range counts {
		out = append(out, model.StatusCount{Status: s, Count: c})
	}
	return out, nil
}

// memBlobs is an in-memory blob.Store.
type memBlobs struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemBlobs() *memBlobs {
	return &memBlobs{files: map[string][]byte{}}
}

func (b *memBlobs) Save(_ context.Context, key string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.files[key] = data
	return nil
}

func (b *memBlobs) Open(_ context.Context, key string) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.files[key]
	if !ok {
		return nil, blob.ErrNotExist
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *memBlobs) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.files[key]; !ok {
		return blob.ErrNotExist
	}
	delete(b.files, key)
	return nil
}

func (b *memBlobs) Exists(_ context.Context, key string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.files[key]
	return ok, nil
}

func (b *memBlobs) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.files)
}
