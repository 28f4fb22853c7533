package firebase

import (
	"context"
	"encoding/json"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/db"
	"github.com/Daskott/medibox/server/models"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	DEVICES_PATH = "devices"
	USERS_PATH   = "users"
)

// RealtimeStore reads device & user records from the firebase realtime database:
//
//	devices/{id}: {guardianFcmToken, notificationTrigger{...}, missedDose{...}}
//	users/{id}:   {devices: [...], phoneNumber}
//
// The database has no device -> owner index, so owner lookups scan users.
// Records are schemaless, a record that doesn't decode is logged & left out of listings.
type RealtimeStore struct {
	client *db.Client
	logg   *zap.SugaredLogger
}

func NewRealtimeStore(ctx context.Context, app *firebase.App, logg *zap.SugaredLogger) (*RealtimeStore, error) {
	client, err := app.Database(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewRealtimeStore: %v", err)
	}

	return &RealtimeStore{client: client, logg: logg}, nil
}

func (s *RealtimeStore) Device(ctx context.Context, id string) (*models.Device, error) {
	var device *models.Device
	err := s.client.NewRef(devicePath(id)).Get(ctx, &device)
	if err != nil {
		return nil, errors.Wrapf(err, "fetching device %s", id)
	}

	if device == nil {
		return nil, models.ErrNotFound
	}

	device.ID = id
	return device, nil
}

func (s *RealtimeStore) Devices(ctx context.Context) ([]models.Device, error) {
	records := map[string]json.RawMessage{}
	err := s.client.NewRef(DEVICES_PATH).Get(ctx, &records)
	if err != nil {
		return nil, errors.Wrap(err, "fetching devices")
	}

	devices, skipped := models.DecodeDevices(records)
	s.logSkipped(DEVICES_PATH, skipped)

	return devices, nil
}

func (s *RealtimeStore) Users(ctx context.Context) ([]models.User, error) {
	records := map[string]json.RawMessage{}
	err := s.client.NewRef(USERS_PATH).Get(ctx, &records)
	if err != nil {
		return nil, errors.Wrap(err, "fetching users")
	}

	users, skipped := models.DecodeUsers(records)
	s.logSkipped(USERS_PATH, skipped)

	return users, nil
}

func (s *RealtimeStore) logSkipped(path string, skipped map[string]error) {
	for id, err := range skipped {
		s.logg.Warnf("Skipping unreadable record %s/%s: %v", path, id, err)
	}
}

// ResetTrigger clears the trigger flag in a transaction, only when it's still set
// with the observed timestamp. Other fields of the sub-record are left as they are.
func (s *RealtimeStore) ResetTrigger(ctx context.Context, deviceID string, trigger models.Trigger, observedAt int64) (bool, error) {
	if !trigger.Valid() {
		return false, errors.Errorf("unknown trigger %q", trigger)
	}

	var reset bool
	ref := s.client.NewRef(fmt.Sprintf("%s/%s", devicePath(deviceID), trigger))
	err := ref.Transaction(ctx, func(node db.TransactionNode) (interface{}, error) {
		var current map[string]interface{}
		if err := node.Unmarshal(&current); err != nil {
			return nil, err
		}

		var next map[string]interface{}
		next, reset = clearTrigger(current, trigger, observedAt)
		return next, nil
	})
	if err != nil {
		return false, errors.Wrapf(err, "resetting %s on device %s", trigger, deviceID)
	}

	return reset, nil
}

// clearTrigger returns the sub-record with the flag cleared & true when the flag is
// set with 'observedAt', otherwise the sub-record unchanged & false
func clearTrigger(current map[string]interface{}, trigger models.Trigger, observedAt int64) (map[string]interface{}, bool) {
	if current == nil {
		return nil, false
	}

	flag := trigger.FlagField()
	if set, _ := current[flag].(bool); !set {
		return current, false
	}

	timestamp, err := models.ParseTimestamp(current["timestamp"])
	if err != nil || timestamp != observedAt {
		return current, false
	}

	next := make(map[string]interface{}, len(current))
	for key, value := range current {
		next[key] = value
	}
	next[flag] = false

	return next, true
}

func devicePath(id string) string {
	return fmt.Sprintf("%s/%s", DEVICES_PATH, id)
}
