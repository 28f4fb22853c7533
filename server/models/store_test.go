package models

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLStore {
	store, err := OpenSQLStore("test-passphrase", t.TempDir())
	require.Nil(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLStoreDevices(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.Device(ctx, "MEDIBOX001")
	assert.ErrorIs(t, err, ErrNotFound)

	device := Device{ID: "MEDIBOX001", GuardianFcmToken: "tok123"}
	device.Set(DOSE_MISSED_TRIGGER, time.UnixMilli(1700000000000), "evening")
	require.Nil(t, store.SaveDevice(ctx, &device))
	require.Nil(t, store.SaveDevice(ctx, &Device{ID: "MEDIBOX002"}))

	found, err := store.Device(ctx, "MEDIBOX001")
	require.Nil(t, err)
	assert.Equal(t, "tok123", found.GuardianFcmToken)
	assert.Equal(t, MissedDose{Missed: true, Compartment: "evening", Timestamp: 1700000000000}, found.MissedDose)

	devices, err := store.Devices(ctx)
	require.Nil(t, err)
	require.Len(t, devices, 2)
	assert.Equal(t, "MEDIBOX001", devices[0].ID)
}

func TestSQLStoreOwners(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.Nil(t, store.SaveDevice(ctx, &Device{ID: "MEDIBOX001"}))
	require.Nil(t, store.SaveDevice(ctx, &Device{ID: "MEDIBOX002"}))

	_, err := store.Owner(ctx, "MEDIBOX001")
	assert.ErrorIs(t, err, ErrNotFound, "no owner yet")

	require.Nil(t, store.SaveUser(ctx, &User{ID: "u1", PhoneNumber: "+94770000000", Devices: DeviceIDs{"MEDIBOX001", "MEDIBOX002"}}))

	owner, err := store.Owner(ctx, "MEDIBOX001")
	require.Nil(t, err)
	assert.Equal(t, "u1", owner.ID)
	assert.Equal(t, "+94770000000", owner.PhoneNumber)

	// A device has a single owner, moving it to u2 removes it from u1
	require.Nil(t, store.SaveUser(ctx, &User{ID: "u2", Devices: DeviceIDs{"MEDIBOX002"}}))

	users, err := store.Users(ctx)
	require.Nil(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, DeviceIDs{"MEDIBOX001"}, users[0].Devices)
	assert.Equal(t, DeviceIDs{"MEDIBOX002"}, users[1].Devices)

	// Re-saving a device keeps its owner
	require.Nil(t, store.SaveDevice(ctx, &Device{ID: "MEDIBOX001", GuardianFcmToken: "tok123"}))
	owner, err = store.Owner(ctx, "MEDIBOX001")
	require.Nil(t, err)
	assert.Equal(t, "u1", owner.ID)

	err = store.SaveUser(ctx, &User{ID: "u3", Devices: DeviceIDs{"MISSING"}})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLStoreResetTrigger(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	device := Device{ID: "MEDIBOX001"}
	device.Set(DOSE_TAKEN_TRIGGER, time.UnixMilli(1700000000000), "")
	require.Nil(t, store.SaveDevice(ctx, &device))

	reset, err := store.ResetTrigger(ctx, "MEDIBOX001", DOSE_TAKEN_TRIGGER, 1600000000000)
	require.Nil(t, err)
	assert.False(t, reset, "a different timestamp means a newer trigger")

	reset, err = store.ResetTrigger(ctx, "MEDIBOX001", DOSE_TAKEN_TRIGGER, 1700000000000)
	require.Nil(t, err)
	assert.True(t, reset)

	found, err := store.Device(ctx, "MEDIBOX001")
	require.Nil(t, err)
	set, timestamp := found.Flag(DOSE_TAKEN_TRIGGER)
	assert.False(t, set)
	assert.Equal(t, int64(1700000000000), timestamp, "only the flag is cleared")

	reset, err = store.ResetTrigger(ctx, "MEDIBOX001", DOSE_TAKEN_TRIGGER, 1700000000000)
	require.Nil(t, err)
	assert.False(t, reset, "already cleared")

	_, err = store.ResetTrigger(ctx, "MEDIBOX001", Trigger("lidOpen"), 0)
	assert.Error(t, err)
}

func TestSQLStoreRaiseTrigger(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.Nil(t, store.SaveDevice(ctx, &Device{ID: "MEDIBOX001"}))
	require.Nil(t, store.RaiseTrigger(ctx, "MEDIBOX001", DOSE_MISSED_TRIGGER, "morning"))

	found, err := store.Device(ctx, "MEDIBOX001")
	require.Nil(t, err)
	assert.True(t, found.MissedDose.Missed)
	assert.Equal(t, "morning", found.MissedDose.Compartment)
	assert.NotZero(t, found.MissedDose.Timestamp)

	assert.ErrorIs(t, store.RaiseTrigger(ctx, "MISSING", DOSE_TAKEN_TRIGGER, ""), ErrNotFound)
	assert.Nil(t, store.Checkpoint(ctx))
}
