package devseed_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/campushq/portal-api/internal/adapters/devidp"
	"github.com/campushq/portal-api/internal/devseed"
	domainsession "github.com/campushq/portal-api/internal/domain/session"
	"github.com/campushq/portal-api/internal/mocks"
)

func TestRun_SeedsOneProfilePerAssignableRole(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockProfileStore(ctrl)

	var mu sync.Mutex
	seeded := make(map[domainsession.Role]domainsession.Profile)
	store.EXPECT().
		Put(gomock.Any(), gomock.Any()).
		Times(4).
		DoAndReturn(func(_ context.Context, p domainsession.Profile) error {
			mu.Lock()
			defer mu.Unlock()
			seeded[p.Role] = p
			return nil
		})

	require.NoError(t, devseed.Run(context.Background(), store, nil))

	require.Len(t, seeded, 4)
	for _, role := range domainsession.Roles {
		p, ok := seeded[role]
		require.True(t, ok, "role %s not seeded", role)
		assert.NotEmpty(t, p.Email)
		// Seeded ids line up with the principal ids the mock identity
		// provider derives, so a dev login resolves its profile.
		assert.Equal(t, devidp.AccountID(p.Email), p.ID)
	}
}

func TestRun_PropagatesStoreError(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockProfileStore(ctrl)

	wantErr := errors.New("connection refused")
	store.EXPECT().
		Put(gomock.Any(), gomock.Any()).
		MinTimes(1).
		MaxTimes(4).
		Return(wantErr)

	err := devseed.Run(context.Background(), store, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, wantErr)
}
