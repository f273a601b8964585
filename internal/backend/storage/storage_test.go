package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"Vigil/internal/backend/models"
	"Vigil/pkg/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func pushMonitor(id string) *models.Monitor {
	return &models.Monitor{
		ID: id, Name: id, Type: models.MonitorTypePush, Interval: 60, RetryInterval: 60,
		Active: true, Push: &models.PushSettings{Token: "token-" + id},
	}
}

func TestMemoryMonitorsAreCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemory().Monitors

	m := pushMonitor("m1")
	require.NoError(t, store.Create(ctx, m))

	m.Name = "changed"
	stored, err := store.GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "m1", stored.Name)

	stored.Push.Token = "other"
	byToken, err := store.GetByPushToken(ctx, "token-m1")
	require.NoError(t, err)
	require.NotNil(t, byToken)
	assert.Equal(t, "m1", byToken.ID)

	missing, err := store.GetByID(ctx, "nope")
	assert.NoError(t, err)
	assert.Nil(t, missing)

	assert.ErrorIs(t, store.Delete(ctx, "nope"), ErrNotFound)
	assert.Error(t, store.Create(ctx, pushMonitor("m1")))
}

func TestMemoryMonitorListAndActive(t *testing.T) {
	ctx := context.Background()
	store := NewMemory().Monitors

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.Create(ctx, pushMonitor(id)))
	}
	require.NoError(t, store.SetActive(ctx, "b", false))

	page, err := store.List(ctx, 2, 1)
	require.NoError(t, err)
	assert.Len(t, page, 2)

	empty, err := store.List(ctx, 10, 5)
	require.NoError(t, err)
	assert.Empty(t, empty)

	active, err := store.ListActive(ctx)
	require.NoError(t, err)
	ids := make([]string, 0, len(active))
	for _, m := range active {
		ids = append(ids, m.ID)
	}
	assert.ElementsMatch(t, []string{"a", "c"}, ids)
}

func TestMemoryHeartbeats(t *testing.T) {
	ctx := context.Background()
	store := NewMemory().Heartbeats

	latest, err := store.LatestHeartbeat(ctx, "m1")
	require.NoError(t, err)
	assert.Nil(t, latest)

	for i := 0; i < 3; i++ {
		require.NoError(t, store.AppendHeartbeat(ctx, &models.Heartbeat{
			MonitorID: "m1",
			Time:      t0.Add(time.Duration(i) * time.Hour),
			Status:    models.StatusUp,
		}))
	}

	latest, err = store.LatestHeartbeat(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, t0.Add(2*time.Hour), latest.Time)

	beats, err := store.ListHeartbeats(ctx, "m1", 2)
	require.NoError(t, err)
	require.Len(t, beats, 2)
	assert.True(t, beats[0].Time.After(beats[1].Time))

	deleted, err := store.DeleteOlderThan(ctx, t0.Add(90*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	beats, err = store.ListHeartbeats(ctx, "m1", 0)
	require.NoError(t, err)
	assert.Len(t, beats, 1)
}

func TestMemoryMaintenanceLinkedEitherWay(t *testing.T) {
	ctx := context.Background()
	store := NewMemory().Maintenance

	require.NoError(t, store.Create(ctx, &models.MaintenanceWindow{ID: "w1", MonitorIDs: []string{"m1"}}))
	require.NoError(t, store.Create(ctx, &models.MaintenanceWindow{ID: "w2"}))
	require.NoError(t, store.Create(ctx, &models.MaintenanceWindow{ID: "w3", MonitorIDs: []string{"m2"}}))

	windows, err := store.ListMaintenanceWindows(ctx, "m1", []string{"w2"})
	require.NoError(t, err)
	require.Len(t, windows, 2)
	assert.Equal(t, "w1", windows[0].ID)
	assert.Equal(t, "w2", windows[1].ID)

	assert.ErrorIs(t, store.SetActive(ctx, "nope", true), ErrNotFound)
}

func TestMemoryNotificationsKeepOrder(t *testing.T) {
	ctx := context.Background()
	store := NewMemory().Notifications

	for _, id := range []string{"n1", "n2", "n3"} {
		require.NoError(t, store.Create(ctx, &models.Notification{ID: id, Name: id}))
	}

	list, err := store.ListByIDs(ctx, []string{"n3", "missing", "n1"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "n3", list[0].ID)
	assert.Equal(t, "n1", list[1].ID)
}

func TestCreateDatabaseStatement(t *testing.T) {
	statement, err := CreateDatabaseStatement("uptime_kuma")
	require.NoError(t, err)
	assert.Equal(t, "CREATE DATABASE uptime_kuma", statement)

	for _, name := range []string{"db; DROP TABLE x", "a.b", ""} {
		_, err := CreateDatabaseStatement(name)
		assert.ErrorIs(t, err, validator.ErrInvalidDatabaseName, name)
	}
}

func TestPostgresStores(t *testing.T) {
	dsn := os.Getenv("VIGIL_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skipf("VIGIL_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()
	require.NoError(t, Migrate(ctx, pool))

	monitors := NewMonitorStore(pool)
	heartbeats := NewHeartbeatStore(pool)

	m := pushMonitor("")
	require.NoError(t, monitors.Create(ctx, m))
	defer monitors.Delete(ctx, m.ID)

	stored, err := monitors.GetByPushToken(ctx, m.PushToken())
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, m.ID, stored.ID)
	assert.Equal(t, models.MonitorTypePush, stored.Type)

	hb := &models.Heartbeat{MonitorID: m.ID, Time: time.Now().UTC().Truncate(time.Millisecond), Status: models.StatusDown, Important: true}
	require.NoError(t, heartbeats.AppendHeartbeat(ctx, hb))

	latest, err := heartbeats.LatestHeartbeat(ctx, m.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, hb.ID, latest.ID)
	assert.Equal(t, models.StatusDown, latest.Status)
	assert.True(t, latest.Important)
}
