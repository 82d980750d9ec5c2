package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	apperrors "letterdesk/internal/errors"
	"letterdesk/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.Letter{}, &model.Setting{}))
	return db
}

func seedLetter(t *testing.T, repo LetterRepository, number string, uploadedBy uint, uploaded time.Time) *model.Letter {
	t.Helper()
	letter := &model.Letter{
		LetterNumber:     number,
		StorageKey:       "letters/" + number + ".pdf",
		OriginalFilename: number + ".pdf",
		UploadedBy:       uploadedBy,
		UploadDate:       uploaded,
		Status:           model.LetterStatusPending,
	}
	require.NoError(t, repo.Create(context.Background(), letter))
	return letter
}

func TestLetterRepository_CreateAndFind(t *testing.T) {
	repo := NewLetterRepository(newTestDB(t))
	ctx := context.Background()
	seedLetter(t, repo, "AAAAAAAAAAA1", 1, time.Now())

	got, err := repo.FindByNumber(ctx, "AAAAAAAAAAA1")
	require.NoError(t, err)
	assert.Equal(t, model.LetterStatusPending, got.Status)
	assert.Nil(t, got.VerifiedBy)
	assert.Nil(t, got.VerifiedDate)

	_, err = repo.FindByNumber(ctx, "MISSING00000")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestLetterRepository_DuplicateNumberRejected(t *testing.T) {
	repo := NewLetterRepository(newTestDB(t))
	seedLetter(t, repo, "DUPDUPDUPDUP", 1, time.Now())

	err := repo.Create(context.Background(), &model.Letter{
		LetterNumber:     "DUPDUPDUPDUP",
		StorageKey:       "other.pdf",
		OriginalFilename: "other.pdf",
		UploadedBy:       2,
		UploadDate:       time.Now(),
		Status:           model.LetterStatusPending,
	})

	assert.Error(t, err)
}

func TestLetterRepository_AdjudicateIfPending(t *testing.T) {
	repo := NewLetterRepository(newTestDB(t))
	ctx := context.Background()
	seedLetter(t, repo, "CASCASCASCAS", 1, time.Now())
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	ok, err := repo.AdjudicateIfPending(ctx, "CASCASCASCAS", Adjudication{
		Status: model.LetterStatusVerified, VerifiedBy: 9, VerifiedAt: at, Comments: "ok",
	})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.AdjudicateIfPending(ctx, "CASCASCASCAS", Adjudication{
		Status: model.LetterStatusRejected, VerifiedBy: 10, VerifiedAt: at.Add(time.Hour), Comments: "late",
	})
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.FindByNumber(ctx, "CASCASCASCAS")
	require.NoError(t, err)
	assert.Equal(t, model.LetterStatusVerified, got.Status)
	require.NotNil(t, got.VerifiedBy)
	assert.Equal(t, uint(9), *got.VerifiedBy)
	assert.Equal(t, "ok", got.VerificationComments)
	require.NotNil(t, got.VerifiedDate)
	assert.True(t, at.Equal(got.VerifiedDate.UTC()))
}

func TestLetterRepository_AdjudicateUnknownNumber(t *testing.T) {
	repo := NewLetterRepository(newTestDB(t))

	ok, err := repo.AdjudicateIfPending(context.Background(), "NOPENOPENOPE", Adjudication{Status: model.LetterStatusVerified})

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLetterRepository_Delete(t *testing.T) {
	repo := NewLetterRepository(newTestDB(t))
	ctx := context.Background()
	seedLetter(t, repo, "DELDELDELDEL", 1, time.Now())

	require.NoError(t, repo.Delete(ctx, "DELDELDELDEL"))
	assert.ErrorIs(t, repo.Delete(ctx, "DELDELDELDEL"), apperrors.ErrNotFound)
}

func TestLetterRepository_ListAndCount(t *testing.T) {
	repo := NewLetterRepository(newTestDB(t))
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	seedLetter(t, repo, "LIST00000001", 1, base)
	seedLetter(t, repo, "LIST00000002", 2, base.Add(time.Hour))
	seedLetter(t, repo, "LIST00000003", 1, base.Add(2*time.Hour))
	_, err := repo.AdjudicateIfPending(ctx, "LIST00000002", Adjudication{Status: model.LetterStatusRejected, VerifiedBy: 5, VerifiedAt: base})
	require.NoError(t, err)

	all, err := repo.List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "LIST00000003", all[0].LetterNumber)

	owner := uint(1)
	own, err := repo.List(ctx, &owner)
	require.NoError(t, err)
	assert.Len(t, own, 2)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	byStatus := map[model.LetterStatus]int64{}
	for _, c := range counts {
		byStatus[c.Status] = c.Count
	}
	assert.Equal(t, int64(2), byStatus[model.LetterStatusPending])
	assert.Equal(t, int64(1), byStatus[model.LetterStatusRejected])
}

func TestSettingRepository_SetManyUpserts(t *testing.T) {
	repo := NewSettingRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.SetMany(ctx, map[string]string{model.SettingCompanyName: "Acme", model.SettingCEOEmail: "ceo@acme.test"}))
	require.NoError(t, repo.SetMany(ctx, map[string]string{model.SettingCompanyName: "Acme Ltd"}))

	name, err := repo.Get(ctx, model.SettingCompanyName)
	require.NoError(t, err)
	assert.Equal(t, "Acme Ltd", name)

	many, err := repo.GetMany(ctx, model.SettingCompanyName, model.SettingCompanyLogo)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{model.SettingCompanyName: "Acme Ltd"}, many)

	_, err = repo.Get(ctx, model.SettingAdminEmail)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUserRepository_CRUD(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))
	ctx := context.Background()

	u := &model.User{Username: "jdoe", FullName: "J Doe", Email: "j@doe.test", PasswordHash: "x", Role: model.RoleUser}
	require.NoError(t, repo.Create(ctx, u))
	require.NotZero(t, u.ID)

	u.Role = model.RoleCEO
	require.NoError(t, repo.Update(ctx, u))

	got, err := repo.FindByUsername(ctx, "jdoe")
	require.NoError(t, err)
	assert.Equal(t, model.RoleCEO, got.Role)

	require.NoError(t, repo.Delete(ctx, u.ID))
	_, err = repo.FindByID(ctx, u.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
