package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/Daskott/medibox/server/models"
	"github.com/Daskott/medibox/server/work"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestWatcher(f *dispatchFixture) (*Watcher, *fakeRunner) {
	runner := newFakeRunner()
	watcher := NewWatcher(f.store, f.dispatcher, runner, zap.NewNop().Sugar())
	return watcher, runner
}

func TestWatcherRegister(t *testing.T) {
	watcher, runner := newTestWatcher(newDispatchFixture())

	err := watcher.Register("2s", "*/5 * * * *")
	require.Nil(t, err)

	assert.Contains(t, runner.handlers, POLL_DEVICES_JOB)
	assert.Contains(t, runner.handlers, SWEEP_TRIGGERS_JOB)
	assert.Contains(t, runner.handlers, DISPATCH_JOB)
	assert.Equal(t, "2s", runner.every[POLL_DEVICES_JOB])
	assert.Equal(t, "*/5 * * * *", runner.cron[SWEEP_TRIGGERS_JOB])
}

func TestWatcherPoll(t *testing.T) {
	f := newDispatchFixture()
	watcher, runner := newTestWatcher(f)
	require.Nil(t, watcher.Register("2s", "*/5 * * * *"))
	ctx := context.Background()

	// First poll sees the trigger for the first time
	require.Nil(t, runner.handlers[POLL_DEVICES_JOB](ctx, nil))
	require.Len(t, runner.jobs, 1)
	assert.Equal(t, DISPATCH_JOB, runner.jobs[0].Handler)
	assert.True(t, runner.jobs[0].Unique)
	assert.Equal(t, "dispatchTrigger:MEDIBOX001:notificationTrigger:1700000000000", runner.jobs[0].Name)

	// Same snapshot, nothing new
	require.Nil(t, runner.handlers[POLL_DEVICES_JOB](ctx, nil))
	assert.Len(t, runner.jobs, 1)

	require.Nil(t, runner.runQueued(ctx))
	assert.Len(t, f.push.sent(), 1)
	assert.Len(t, f.sms.sent(), 1)

	// Reset is observed, then firmware raises the trigger again
	require.Nil(t, runner.handlers[POLL_DEVICES_JOB](ctx, nil))
	assert.Empty(t, runner.jobs)

	f.store.raise(testDeviceID, models.DOSE_TAKEN_TRIGGER, f.at.Add(time.Hour))
	require.Nil(t, runner.handlers[POLL_DEVICES_JOB](ctx, nil))
	require.Len(t, runner.jobs, 1)

	require.Nil(t, runner.runQueued(ctx))
	assert.Len(t, f.push.sent(), 2)
}

func TestWatcherPollStoreFault(t *testing.T) {
	f := newDispatchFixture()
	f.store.deviceErr = errStoreDown
	watcher, runner := newTestWatcher(f)
	require.Nil(t, watcher.Register("2s", "*/5 * * * *"))

	err := runner.handlers[POLL_DEVICES_JOB](context.Background(), nil)
	assert.ErrorIs(t, err, ErrBackingStore)
	assert.Empty(t, runner.jobs)
}

func TestWatcherSweep(t *testing.T) {
	f := newDispatchFixture()
	watcher, runner := newTestWatcher(f)
	require.Nil(t, watcher.Register("2s", "*/5 * * * *"))
	ctx := context.Background()

	// A dispatch that couldn't be queued leaves the trigger set
	runner.err = work.ErrQueueFull
	require.Nil(t, runner.handlers[POLL_DEVICES_JOB](ctx, nil))
	assert.Empty(t, runner.jobs)

	// The poll already saw this snapshot, only the sweep picks it up again
	runner.err = nil
	require.Nil(t, runner.handlers[POLL_DEVICES_JOB](ctx, nil))
	assert.Empty(t, runner.jobs)

	require.Nil(t, runner.handlers[SWEEP_TRIGGERS_JOB](ctx, nil))
	require.Len(t, runner.jobs, 1)

	require.Nil(t, runner.runQueued(ctx))
	assert.Len(t, f.push.sent(), 1)

	set, _ := f.store.flag(testDeviceID, models.DOSE_TAKEN_TRIGGER)
	assert.False(t, set)
}

func TestWatcherDispatchJobArgs(t *testing.T) {
	f := newDispatchFixture()
	watcher, runner := newTestWatcher(f)
	require.Nil(t, watcher.Register("2s", "*/5 * * * *"))

	err := runner.handlers[DISPATCH_JOB](context.Background(), map[string]interface{}{"deviceId": testDeviceID})
	assert.ErrorIs(t, err, ErrValidation, "a job without a trigger is rejected")
	assert.Empty(t, f.push.sent())
}
