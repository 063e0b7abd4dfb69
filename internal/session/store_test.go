package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-logistics/backoffice/internal/authz"
	"github.com/meridian-logistics/backoffice/internal/resources"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewStore(client, time.Hour), mr
}

func TestRefreshEmptyIsAnonymous(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.Refresh(context.Background()))

	snap := store.Snapshot()
	assert.Empty(t, snap.Credentials.Token)
	assert.Nil(t, snap.Identity)
	assert.Empty(t, snap.Grants)
}

func TestSaveRefreshRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, Snapshot{
		Credentials: Credentials{Token: "tok-1", VisitorToken: "vis-1"},
		Identity:    &authz.Identity{RoleID: 7, DisplayName: "Editor"},
		Grants: authz.Grants{
			resources.Events: authz.MaskOf(authz.OpRead, authz.OpUpdate),
		},
	}))

	// A fresh store reading the same redis must see the same state.
	other := NewStore(redis.NewClient(&redis.Options{Addr: store.client.Options().Addr}), time.Hour)
	require.NoError(t, other.Refresh(ctx))

	snap := other.Snapshot()
	assert.Equal(t, "tok-1", snap.Credentials.Token)
	assert.Equal(t, "vis-1", snap.Credentials.VisitorToken)
	require.NotNil(t, snap.Identity)
	assert.Equal(t, int64(7), snap.Identity.RoleID)
	assert.True(t, snap.Grants[resources.Events].Has(authz.OpRead))
	assert.True(t, snap.Grants[resources.Events].Has(authz.OpUpdate))
	assert.False(t, snap.Grants[resources.Events].Has(authz.OpDelete))
}

func TestRefreshSkipsMalformedGrantEntries(t *testing.T) {
	store, mr := newTestStore(t)
	mr.Set(keyGrants, `{"events":[1],"bogus-resource":[1,2],"roles":[99]}`)

	require.NoError(t, store.Refresh(context.Background()))
	snap := store.Snapshot()
	assert.True(t, snap.Grants[resources.Events].Has(authz.OpRead))
	_, hasBogus := snap.Grants[resources.Roles]
	if hasBogus {
		// Invalid codes can only narrow access, never widen it.
		assert.Equal(t, authz.OpMask(0), snap.Grants[resources.Roles])
	}
}

func TestRefreshRejectsMalformedIdentity(t *testing.T) {
	store, mr := newTestStore(t)
	mr.Set(keyIdentity, "not json")
	assert.Error(t, store.Refresh(context.Background()))
}

func TestClearRemovesEverything(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, Snapshot{
		Credentials: Credentials{Token: "tok-1"},
		Identity:    &authz.Identity{RoleID: 7},
	}))
	require.NoError(t, store.Clear(ctx))

	assert.False(t, mr.Exists(keyToken))
	assert.False(t, mr.Exists(keyIdentity))
	snap := store.Snapshot()
	assert.Empty(t, snap.Credentials.Token)
	assert.Nil(t, snap.Identity)
}

func TestCredentialsIsSynchronous(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.Save(context.Background(), Snapshot{
		Credentials: Credentials{Token: "tok-2"},
	}))
	assert.Equal(t, "tok-2", store.Credentials().Token)
}
