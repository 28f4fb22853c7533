package dispatch

import (
	"context"
	"fmt"
	"sync"

	"github.com/Daskott/medibox/server/models"
	"github.com/Daskott/medibox/server/work"
	"go.uber.org/zap"
)

const (
	POLL_DEVICES_JOB   = "pollDevices"
	SWEEP_TRIGGERS_JOB = "sweepTriggers"
	DISPATCH_JOB       = "dispatchTrigger"
)

// DeviceLister lists every device record, it's what the watcher polls
type DeviceLister interface {
	Devices(ctx context.Context) ([]models.Device, error)
}

// JobRunner schedules & runs the watcher's jobs, see work.WorkerPoolAdapter
type JobRunner interface {
	Register(name string, handler work.Handler) error
	Perform(job work.JobParams) error
	PerformEvery(interval string, job work.JobParams) error
	PeriodicallyPerform(cronExpression string, job work.JobParams) error
}

// Watcher turns changes to device records into dispatches. Each poll compares the
// devices with the previous poll & dispatches triggers that were raised in between.
// A slower sweep dispatches every trigger still set, which picks up dispatches that
// were dropped (store fault, full queue, restart) so a stuck trigger isn't lost.
type Watcher struct {
	devices    DeviceLister
	dispatcher *Dispatcher
	runner     JobRunner
	logg       *zap.SugaredLogger

	mu       sync.Mutex
	previous map[string]models.Device
}

func NewWatcher(devices DeviceLister, dispatcher *Dispatcher, runner JobRunner, logg *zap.SugaredLogger) *Watcher {
	return &Watcher{
		devices:    devices,
		dispatcher: dispatcher,
		runner:     runner,
		logg:       logg.Named("watcher"),
		previous:   make(map[string]models.Device),
	}
}

// Register binds the watcher's job handlers & schedules the poll every
// 'interval' and the sweep on 'sweepCron'
func (w *Watcher) Register(interval, sweepCron string) error {
	handlers := map[string]work.Handler{
		POLL_DEVICES_JOB:   w.poll,
		SWEEP_TRIGGERS_JOB: w.sweep,
		DISPATCH_JOB:       w.dispatch,
	}
	for name, handler := range handlers {
		if err := w.runner.Register(name, handler); err != nil {
			return fmt.Errorf("registering %s: %w", name, err)
		}
	}

	err := w.runner.PerformEvery(interval, work.JobParams{
		Name:    POLL_DEVICES_JOB,
		Handler: POLL_DEVICES_JOB,
		Unique:  true,
	})
	if err != nil {
		return fmt.Errorf("scheduling device poll every %q: %w", interval, err)
	}

	err = w.runner.PeriodicallyPerform(sweepCron, work.JobParams{
		Name:    SWEEP_TRIGGERS_JOB,
		Handler: SWEEP_TRIGGERS_JOB,
		Unique:  true,
	})
	if err != nil {
		return fmt.Errorf("scheduling trigger sweep %q: %w", sweepCron, err)
	}

	return nil
}

func (w *Watcher) poll(ctx context.Context, _ map[string]interface{}) error {
	devices, err := w.devices.Devices(ctx)
	if err != nil {
		return storeFault(err, "polling devices")
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	current := make(map[string]models.Device, len(devices))
	for _, device := range devices {
		var before *models.Device
		if previous, ok := w.previous[device.ID]; ok {
			before = &previous
		}

		for _, event := range ClassifyChange(before, device) {
			w.enqueue(event)
		}
		current[device.ID] = device
	}
	w.previous = current

	return nil
}

func (w *Watcher) sweep(ctx context.Context, _ map[string]interface{}) error {
	devices, err := w.devices.Devices(ctx)
	if err != nil {
		return storeFault(err, "sweeping devices")
	}

	pending := 0
	for _, device := range devices {
		for _, event := range Classify(device) {
			w.enqueue(event)
			pending++
		}
	}

	if pending > 0 {
		w.logg.Infof("Sweep found %d trigger(s) still set", pending)
	}
	return nil
}

func (w *Watcher) dispatch(ctx context.Context, args map[string]interface{}) error {
	deviceID, _ := args["deviceId"].(string)
	trigger := models.Trigger(fmt.Sprint(args["trigger"]))
	if deviceID == "" || !trigger.Valid() {
		return fmt.Errorf("%w: invalid dispatch job args %v", ErrValidation, args)
	}

	_, err := w.dispatcher.HandleDevice(ctx, deviceID, trigger)
	return err
}

// enqueue queues a dispatch for the event. Job names carry the trigger timestamp,
// so the same physical event is never queued twice while it's in flight.
func (w *Watcher) enqueue(event Event) {
	trigger := event.Kind.Trigger()
	w.logg.Infof("%s detected for device %s", trigger, event.DeviceID)

	err := w.runner.Perform(work.JobParams{
		Name:    fmt.Sprintf("%s:%s:%s:%d", DISPATCH_JOB, event.DeviceID, trigger, event.Timestamp),
		Handler: DISPATCH_JOB,
		Unique:  true,
		Args: map[string]interface{}{
			"deviceId": event.DeviceID,
			"trigger":  string(trigger),
		},
	})
	if err != nil {
		w.logg.Errorf("Could not queue dispatch for device %s, the sweep will retry: %v", event.DeviceID, err)
	}
}
