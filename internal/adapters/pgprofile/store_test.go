package pgprofile_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushq/portal-api/internal/adapters/pgprofile"
	domainsession "github.com/campushq/portal-api/internal/domain/session"
	apperrors "github.com/campushq/portal-api/internal/errors"
	"github.com/campushq/portal-api/internal/testutil"
)

func TestGet_RequiresID(t *testing.T) {
	store := pgprofile.NewStore(nil)

	_, err := store.Get(context.Background(), "")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, "id", apperrors.GetField(err))
}

func TestPut_Validation(t *testing.T) {
	store := pgprofile.NewStore(nil)
	ctx := context.Background()

	err := store.Put(ctx, domainsession.Profile{Role: domainsession.RoleStudent})
	require.Error(t, err)
	assert.Equal(t, "id", apperrors.GetField(err))

	err = store.Put(ctx, domainsession.Profile{ID: "p1", Role: domainsession.RoleGuest})
	require.Error(t, err)
	assert.Equal(t, "role", apperrors.GetField(err))

	err = store.Put(ctx, domainsession.Profile{ID: "p1", Role: "superuser"})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestPutAndGet(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		store := pgprofile.NewStoreWithClock(db, testutil.FixedTimeFunc(testutil.TestTime()))
		ctx := context.Background()

		p := domainsession.Profile{
			ID:          "dev-11111111-1111-1111-1111-111111111111",
			Email:       "sam@campus.example",
			DisplayName: "Sam Student",
			Role:        domainsession.RoleStudent,
			AvatarURL:   testutil.StringPtr("https://cdn.campus.example/sam.png"),
		}
		require.NoError(t, store.Put(ctx, p))

		got, err := store.Get(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, p.ID, got.ID)
		assert.Equal(t, p.Email, got.Email)
		assert.Equal(t, p.DisplayName, got.DisplayName)
		assert.Equal(t, domainsession.RoleStudent, got.Role)
		require.NotNil(t, got.AvatarURL)
		assert.Equal(t, *p.AvatarURL, *got.AvatarURL)
		assert.True(t, got.CreatedAt.Equal(testutil.TestTime()))
		assert.True(t, got.UpdatedAt.Equal(testutil.TestTime()))
	})
}

func TestGet_NotFound(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		store := pgprofile.NewStore(db)

		_, err := store.Get(context.Background(), "dev-does-not-exist")
		require.Error(t, err)
		assert.True(t, apperrors.IsProfileNotFound(err))
	})
}

func TestPut_PreservesCreatedAt(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		created := testutil.TestTime()
		store := pgprofile.NewStoreWithClock(db, testutil.FixedTimeFunc(created))
		ctx := context.Background()

		p := domainsession.Profile{
			ID:    "dev-22222222-2222-2222-2222-222222222222",
			Email: "lena@campus.example",
			Role:  domainsession.RoleLecturer,
		}
		require.NoError(t, store.Put(ctx, p))

		// Re-put the same record later with a new role.
		later := created.Add(48 * time.Hour)
		store = pgprofile.NewStoreWithClock(db, testutil.FixedTimeFunc(later))
		stored, err := store.Get(ctx, p.ID)
		require.NoError(t, err)
		stored.Role = domainsession.RoleAdmin
		require.NoError(t, store.Put(ctx, *stored))

		got, err := store.Get(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, domainsession.RoleAdmin, got.Role)
		assert.True(t, got.CreatedAt.Equal(created))
		assert.True(t, got.UpdatedAt.Equal(later))
	})
}

func TestPut_EmailConflict(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		store := pgprofile.NewStore(db)
		ctx := context.Background()

		first := domainsession.Profile{
			ID:    "dev-33333333-3333-3333-3333-333333333333",
			Email: "taken@campus.example",
			Role:  domainsession.RoleStudent,
		}
		require.NoError(t, store.Put(ctx, first))

		// Same email, different id, case-insensitively.
		second := first
		second.ID = "dev-44444444-4444-4444-4444-444444444444"
		second.Email = "Taken@Campus.Example"
		err := store.Put(ctx, second)
		require.Error(t, err)
		assert.True(t, apperrors.IsConflict(err))
	})
}
