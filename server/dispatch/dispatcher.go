package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/Daskott/medibox/colors"
	"github.com/Daskott/medibox/server/models"
	"github.com/Daskott/medibox/server/sms"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PushSender delivers a single push notification & returns the network's delivery id
type PushSender interface {
	Send(ctx context.Context, token, title, body string, data map[string]string) (string, error)
}

// SMSSender delivers "{title}: {body}" to a phone number. A sender that isn't
// configured returns sms.ErrNotConfigured, the send is then counted as skipped.
type SMSSender interface {
	Send(ctx context.Context, phone, title, body string) error
}

// Result is the outcome of a dispatch. Channel errors are reported here rather
// than returned, since they never abort the dispatch.
type Result struct {
	ID       string
	Event    Event
	Contacts Contacts

	PushID  string
	PushErr error
	SMSSent bool
	SMSErr  error

	// Reset is true when the originating trigger was cleared. It stays false
	// when a newer trigger superseded the observed one or the event had no trigger.
	Reset    bool
	ResetErr error
}

func (r *Result) PushSent() bool {
	return r.PushID != "" && r.PushErr == nil
}

type dispatchOptions struct {
	requirePushToken bool
}

type Option func(*dispatchOptions)

// RequirePushToken fails the dispatch with ErrNoPushToken, before anything is
// sent, when the device has no push token
func RequirePushToken() Option {
	return func(o *dispatchOptions) { o.requirePushToken = true }
}

type Dispatcher struct {
	store    Store
	resolver *Resolver
	push     PushSender
	sms      SMSSender
	logg     *zap.SugaredLogger
	now      func() time.Time
}

func NewDispatcher(store Store, push PushSender, sms SMSSender, logg *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{
		store:    store,
		resolver: NewResolver(store, logg),
		push:     push,
		sms:      sms,
		logg:     logg,
		now:      time.Now,
	}
}

// Dispatch delivers 'event' to the device's guardian over push & sms, then resets
// the trigger the event came from. Only contact resolution can fail the dispatch,
// in which case nothing is sent & the trigger is left set.
func (d *Dispatcher) Dispatch(ctx context.Context, event Event, opts ...Option) (*Result, error) {
	options := dispatchOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	result := &Result{ID: uuid.NewString(), Event: event}
	logg := d.logg.With("dispatch", result.ID, "device", event.DeviceID, "kind", event.Kind.String())

	device, err := d.resolver.device(ctx, event.DeviceID)
	if err != nil {
		return nil, d.dropped(logg, event, err)
	}

	// Rejected before the guardian lookup, a missing token is a caller error
	// whatever state the users are in
	if options.requirePushToken && device.GuardianFcmToken == "" {
		dispatchTotal.WithLabelValues(event.Kind.String(), "rejected").Inc()
		return nil, ErrNoPushToken
	}

	contacts, err := d.resolver.contacts(ctx, device)
	if err != nil {
		return nil, d.dropped(logg, event, err)
	}
	result.Contacts = contacts

	// The two channels are independent, neither outcome affects the other or the reset
	d.sendPush(ctx, logg, event, result)
	d.sendSMS(ctx, logg, event, result)

	d.resetTrigger(ctx, logg, event, result)

	dispatchTotal.WithLabelValues(event.Kind.String(), "completed").Inc()
	logg.Infow("Dispatch completed",
		"push_sent", result.PushSent(), "sms_sent", result.SMSSent, "trigger_reset", result.Reset)

	return result, nil
}

func (d *Dispatcher) dropped(logg *zap.SugaredLogger, event Event, err error) error {
	dispatchTotal.WithLabelValues(event.Kind.String(), "failed").Inc()
	if !errors.Is(err, ErrDeviceNotFound) {
		logg.Errorf("Dropping dispatch: %v", err)
	}
	return err
}

// HandleDevice re-reads the device & dispatches the event for 'trigger' only if
// it's still set. A second call after a successful dispatch finds the trigger
// cleared & sends nothing. It returns a nil result when there was nothing to send.
func (d *Dispatcher) HandleDevice(ctx context.Context, deviceID string, trigger models.Trigger) (*Result, error) {
	device, err := d.store.Device(ctx, deviceID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, ErrDeviceNotFound
	}
	if err != nil {
		return nil, storeFault(err, "reading device "+deviceID)
	}

	event, ok := ClassifyTrigger(*device, trigger)
	if !ok {
		d.logg.Debugf("%s already cleared on device %s, nothing to send", trigger, deviceID)
		return nil, nil
	}

	return d.Dispatch(ctx, event)
}

func (d *Dispatcher) sendPush(ctx context.Context, logg *zap.SugaredLogger, event Event, result *Result) {
	prefix := colors.Channel(PUSH_CHANNEL)
	if result.Contacts.PushToken == "" {
		logg.Warn(prefix + "No FCM token for device, skipping push notification")
		deliveryTotal.WithLabelValues(PUSH_CHANNEL, "skipped").Inc()
		return
	}

	start := d.now()
	id, err := d.push.Send(ctx, result.Contacts.PushToken, event.Title, event.Body, event.Data(start))
	deliveryDuration.WithLabelValues(PUSH_CHANNEL).Observe(d.now().Sub(start).Seconds())
	if err != nil {
		result.PushErr = &DeliveryError{Channel: PUSH_CHANNEL, Err: err}
		deliveryTotal.WithLabelValues(PUSH_CHANNEL, "failed").Inc()
		logg.Errorf(prefix+"%v", result.PushErr)
		return
	}

	result.PushID = id
	deliveryTotal.WithLabelValues(PUSH_CHANNEL, "sent").Inc()
	logg.Infof(prefix+"Notification sent: %s (%s: %s)", id, event.Title, event.Body)
}

func (d *Dispatcher) sendSMS(ctx context.Context, logg *zap.SugaredLogger, event Event, result *Result) {
	prefix := colors.Channel(SMS_CHANNEL)
	if result.Contacts.Phone == "" {
		logg.Info(prefix + "No phone number configured, skipping sms")
		deliveryTotal.WithLabelValues(SMS_CHANNEL, "skipped").Inc()
		return
	}

	start := d.now()
	err := d.sms.Send(ctx, result.Contacts.Phone, event.Title, event.Body)
	deliveryDuration.WithLabelValues(SMS_CHANNEL).Observe(d.now().Sub(start).Seconds())
	if errors.Is(err, sms.ErrNotConfigured) {
		deliveryTotal.WithLabelValues(SMS_CHANNEL, "skipped").Inc()
		return
	}
	if err != nil {
		result.SMSErr = &DeliveryError{Channel: SMS_CHANNEL, Err: err}
		deliveryTotal.WithLabelValues(SMS_CHANNEL, "failed").Inc()
		logg.Errorf(prefix+"%v", result.SMSErr)
		return
	}

	result.SMSSent = true
	deliveryTotal.WithLabelValues(SMS_CHANNEL, "sent").Inc()
}

// resetTrigger runs after both sends were attempted, whatever their outcome.
// Events built from a request rather than an observed trigger have nothing to reset.
func (d *Dispatcher) resetTrigger(ctx context.Context, logg *zap.SugaredLogger, event Event, result *Result) {
	if !event.FromTrigger {
		return
	}

	trigger := event.Kind.Trigger()
	reset, err := d.store.ResetTrigger(ctx, event.DeviceID, trigger, event.Timestamp)
	switch {
	case err != nil:
		result.ResetErr = err
		triggerResetTotal.WithLabelValues(string(trigger), "error").Inc()
		logg.Errorf("Failed to reset %s: %v", trigger, err)
	case !reset:
		triggerResetTotal.WithLabelValues(string(trigger), "superseded").Inc()
		logg.Infof("%s was raised again or already cleared, leaving it for the next observation", trigger)
	default:
		result.Reset = true
		triggerResetTotal.WithLabelValues(string(trigger), "reset").Inc()
	}
}
