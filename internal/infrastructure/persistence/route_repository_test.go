package persistence

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/almi/backend/internal/domain/dispatch"
	"github.com/almi/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRoute(t *testing.T, tenantID uuid.UUID, number string) *dispatch.Route {
	t.Helper()
	route, err := dispatch.NewRoute(tenantID, number, uuid.New(), "Carlos Quispe", "ABC-123", time.Now())
	require.NoError(t, err)
	route.ClearDomainEvents()
	return route
}

func TestRouteRepository_SaveAndFind(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormRouteRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	route := newTestRoute(t, tenantID, "RT-2026-0001")
	require.NoError(t, repo.Save(ctx, route))

	found, err := repo.FindByIDForTenant(ctx, tenantID, route.ID)
	require.NoError(t, err)
	assert.Equal(t, "RT-2026-0001", found.RouteNumber)
	assert.Equal(t, dispatch.RouteStatusPlanned, found.Status)
	assert.Equal(t, "ABC-123", found.VehiclePlate)

	_, err = repo.FindByIDForTenant(ctx, uuid.New(), route.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	found, err = repo.FindByNumber(ctx, tenantID, "RT-2026-0001")
	require.NoError(t, err)
	assert.Equal(t, route.ID, found.ID)
}

func TestRouteRepository_SaveWithLock(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormRouteRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("persists lifecycle transitions", func(t *testing.T) {
		route := newTestRoute(t, tenantID, "RT-2026-0010")
		require.NoError(t, repo.Save(ctx, route))

		require.NoError(t, route.Start())
		require.NoError(t, repo.SaveWithLock(ctx, route))
		require.NoError(t, route.Complete())
		require.NoError(t, repo.SaveWithLock(ctx, route))

		found, err := repo.FindByIDForTenant(ctx, tenantID, route.ID)
		require.NoError(t, err)
		assert.Equal(t, dispatch.RouteStatusCompleted, found.Status)
		assert.NotNil(t, found.StartedAt)
		assert.NotNil(t, found.CompletedAt)
		assert.Equal(t, 3, found.Version)
	})

	t.Run("rejects a stale version", func(t *testing.T) {
		route := newTestRoute(t, tenantID, "RT-2026-0011")
		require.NoError(t, repo.Save(ctx, route))

		stale, err := repo.FindByIDForTenant(ctx, tenantID, route.ID)
		require.NoError(t, err)

		require.NoError(t, route.Start())
		require.NoError(t, repo.SaveWithLock(ctx, route))

		require.NoError(t, stale.Start())
		err = repo.SaveWithLock(ctx, stale)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "OPTIMISTIC_LOCK_FAILED", domainErr.Code)
	})
}

func TestRouteRepository_ListAndCount(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormRouteRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	active := newTestRoute(t, tenantID, "RT-2026-0020")
	require.NoError(t, active.Start())
	require.NoError(t, repo.Save(ctx, active))
	require.NoError(t, repo.Save(ctx, newTestRoute(t, tenantID, "RT-2026-0021")))
	require.NoError(t, repo.Save(ctx, newTestRoute(t, uuid.New(), "RT-2026-0022")))

	routes, err := repo.FindAllForTenant(ctx, tenantID, dispatch.RouteFilter{Filter: shared.DefaultFilter()})
	require.NoError(t, err)
	assert.Len(t, routes, 2)

	status := dispatch.RouteStatusInProgress
	routes, err = repo.FindAllForTenant(ctx, tenantID, dispatch.RouteFilter{Filter: shared.DefaultFilter(), Status: &status})
	require.NoError(t, err)
	require.Len(t, routes, 1)
	assert.Equal(t, "RT-2026-0020", routes[0].RouteNumber)

	count, err := repo.CountForTenant(ctx, tenantID, dispatch.RouteFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestRouteRepository_GenerateNumber(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormRouteRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()
	prefix := fmt.Sprintf("RT-%d-", time.Now().Year())

	number, err := repo.GenerateNumber(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, prefix+"0001", number)

	require.NoError(t, repo.Save(ctx, newTestRoute(t, tenantID, number)))

	number, err = repo.GenerateNumber(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, prefix+"0002", number)
}
