package models

import (
	"context"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
)

// SQLStore keeps device & user records in sqlite. Unlike the realtime database it
// stores the device owner on the device row, so owner lookups are a point query.
type SQLStore struct {
	db   *gorm.DB
	path string
}

// Path is the location of the db file on disk
func (s *SQLStore) Path() string {
	return s.path
}

// Checkpoint flushes the write-ahead log into the db file, so the file alone
// holds every committed write
func (s *SQLStore) Checkpoint(ctx context.Context) error {
	return pkgerrors.Wrap(s.db.WithContext(ctx).Exec("PRAGMA wal_checkpoint(TRUNCATE)").Error, "checkpointing sqlite db")
}

func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *SQLStore) Device(ctx context.Context, id string) (*Device, error) {
	device := Device{}
	err := s.db.WithContext(ctx).First(&device, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, pkgerrors.Wrapf(err, "fetching device %s", id)
	}

	return &device, nil
}

func (s *SQLStore) Devices(ctx context.Context) ([]Device, error) {
	devices := []Device{}
	err := s.db.WithContext(ctx).Order("id").Find(&devices).Error
	if err != nil {
		return nil, pkgerrors.Wrap(err, "fetching devices")
	}

	return devices, nil
}

// Users returns every user with their owned device ids populated
func (s *SQLStore) Users(ctx context.Context) ([]User, error) {
	users := []User{}
	err := s.db.WithContext(ctx).Order("id").Find(&users).Error
	if err != nil {
		return nil, pkgerrors.Wrap(err, "fetching users")
	}

	devices := []Device{}
	err = s.db.WithContext(ctx).Select("id", "owner_id").Where("owner_id IS NOT NULL").Order("id").Find(&devices).Error
	if err != nil {
		return nil, pkgerrors.Wrap(err, "fetching device owners")
	}

	owned := make(map[string]DeviceIDs)
	for _, device := range devices {
		owned[*device.OwnerID] = append(owned[*device.OwnerID], device.ID)
	}

	for i := range users {
		users[i].Devices = owned[users[i].ID]
	}

	return users, nil
}

// Owner returns the user who owns 'deviceID' or ErrNotFound
func (s *SQLStore) Owner(ctx context.Context, deviceID string) (*User, error) {
	user := User{}
	err := s.db.WithContext(ctx).
		Joins("INNER JOIN devices ON devices.owner_id = users.id AND devices.id = ?", deviceID).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, pkgerrors.Wrapf(err, "fetching owner of device %s", deviceID)
	}

	user.Devices = DeviceIDs{deviceID}
	return &user, nil
}

// ResetTrigger clears 'trigger' on the device only if it's still set with the
// timestamp that was observed, so a newer event raised in the meantime is kept.
// It reports whether the flag was cleared.
func (s *SQLStore) ResetTrigger(ctx context.Context, deviceID string, trigger Trigger, observedAt int64) (bool, error) {
	flagColumn, timestampColumn := triggerColumns(trigger)
	if flagColumn == "" {
		return false, pkgerrors.Errorf("unknown trigger %q", trigger)
	}

	res := s.db.WithContext(ctx).Model(&Device{}).
		Where("id = ? AND "+flagColumn+" = ? AND "+timestampColumn+" = ?", deviceID, true, observedAt).
		Updates(map[string]interface{}{flagColumn: false, "updated_at": time.Now()})
	if res.Error != nil {
		return false, pkgerrors.Wrapf(res.Error, "resetting %s on device %s", trigger, deviceID)
	}

	return res.RowsAffected > 0, nil
}

// SaveDevice creates or replaces a device record, leaving its owner untouched
func (s *SQLStore) SaveDevice(ctx context.Context, device *Device) error {
	err := s.db.WithContext(ctx).Omit("owner_id").Save(device).Error
	return pkgerrors.Wrapf(err, "saving device %s", device.ID)
}

// RaiseTrigger sets 'trigger' on a device, the way firmware would
func (s *SQLStore) RaiseTrigger(ctx context.Context, deviceID string, trigger Trigger, compartment string) error {
	device, err := s.Device(ctx, deviceID)
	if err != nil {
		return err
	}

	device.Set(trigger, time.Now(), compartment)
	return s.SaveDevice(ctx, device)
}

// SaveUser creates or replaces a user & re-points each of user.Devices to it.
// A device has a single owner, assigning it here removes it from its previous owner.
func (s *SQLStore) SaveUser(ctx context.Context, user *User) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Save(user).Error
		if err != nil {
			return pkgerrors.Wrapf(err, "saving user %s", user.ID)
		}

		err = tx.Model(&Device{}).Where("owner_id = ?", user.ID).Update("owner_id", nil).Error
		if err != nil {
			return pkgerrors.Wrapf(err, "clearing devices of user %s", user.ID)
		}

		if len(user.Devices) == 0 {
			return nil
		}

		res := tx.Model(&Device{}).Where("id IN ?", []string(user.Devices)).Update("owner_id", user.ID)
		if res.Error != nil {
			return pkgerrors.Wrapf(res.Error, "assigning devices to user %s", user.ID)
		}

		if res.RowsAffected != int64(len(user.Devices)) {
			return pkgerrors.Wrapf(ErrNotFound, "assigning devices %v to user %s", user.Devices, user.ID)
		}

		return nil
	})
}

func triggerColumns(trigger Trigger) (string, string) {
	switch trigger {
	case DOSE_TAKEN_TRIGGER:
		return "trigger_triggered", "trigger_timestamp"
	case DOSE_MISSED_TRIGGER:
		return "missed_dose_missed", "missed_dose_timestamp"
	}
	return "", ""
}
