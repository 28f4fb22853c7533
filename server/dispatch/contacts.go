package dispatch

import (
	"context"
	"errors"

	"github.com/Daskott/medibox/server/models"
	"go.uber.org/zap"
)

// Store is the device/user backing store the dispatch core reads from & resets triggers in
type Store interface {
	Device(ctx context.Context, id string) (*models.Device, error)
	Users(ctx context.Context) ([]models.User, error)
	// ResetTrigger clears the trigger if it's still set with 'observedAt' & reports whether it did
	ResetTrigger(ctx context.Context, deviceID string, trigger models.Trigger, observedAt int64) (bool, error)
}

// OwnerIndex is implemented by stores that keep a device -> owner index.
// The resolver uses it instead of scanning every user.
type OwnerIndex interface {
	Owner(ctx context.Context, deviceID string) (*models.User, error)
}

// Contacts are the delivery addresses of a device's guardian. An empty field
// means that channel is skipped for the dispatch.
type Contacts struct {
	PushToken string
	Phone     string
}

type Resolver struct {
	store Store
	logg  *zap.SugaredLogger
}

func NewResolver(store Store, logg *zap.SugaredLogger) *Resolver {
	return &Resolver{store: store, logg: logg}
}

// Resolve finds the push token & phone number to notify for 'deviceID'.
// Missing token, owner or phone are not errors, ErrDeviceNotFound & ErrBackingStore are.
func (r *Resolver) Resolve(ctx context.Context, deviceID string) (Contacts, error) {
	device, err := r.device(ctx, deviceID)
	if err != nil {
		return Contacts{}, err
	}

	return r.contacts(ctx, device)
}

func (r *Resolver) device(ctx context.Context, deviceID string) (*models.Device, error) {
	device, err := r.store.Device(ctx, deviceID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, ErrDeviceNotFound
	}
	if err != nil {
		return nil, storeFault(err, "reading device "+deviceID)
	}

	return device, nil
}

func (r *Resolver) contacts(ctx context.Context, device *models.Device) (Contacts, error) {
	phone, err := r.guardianPhone(ctx, device.ID)
	if err != nil {
		return Contacts{}, err
	}

	return Contacts{PushToken: device.GuardianFcmToken, Phone: phone}, nil
}

func (r *Resolver) guardianPhone(ctx context.Context, deviceID string) (string, error) {
	owner, err := r.owner(ctx, deviceID)
	if err != nil {
		return "", err
	}

	if owner == nil {
		r.logg.Infof("No guardian found for device %s", deviceID)
		return "", nil
	}

	if owner.PhoneNumber == "" {
		if owner.LegacyPhoneNumber() != "" {
			r.logg.Warnf("User %s has a phone number under 'notifications.phoneNumber' only, "+
				"move it to 'phoneNumber' to enable sms for device %s", owner.ID, deviceID)
		} else {
			r.logg.Infof("No guardian phone configured for device %s", deviceID)
		}
		return "", nil
	}

	return owner.PhoneNumber, nil
}

// owner returns the user owning the device, or nil when no user does
func (r *Resolver) owner(ctx context.Context, deviceID string) (*models.User, error) {
	if index, ok := r.store.(OwnerIndex); ok {
		owner, err := index.Owner(ctx, deviceID)
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, storeFault(err, "reading owner of device "+deviceID)
		}
		return owner, nil
	}

	users, err := r.store.Users(ctx)
	if err != nil {
		return nil, storeFault(err, "reading users")
	}

	models.SortUsersByID(users)

	var owner *models.User
	for i := range users {
		if !users[i].OwnsDevice(deviceID) {
			continue
		}

		if owner != nil {
			r.logg.Warnf("Device %s is owned by more than one user (%s, %s), using %s",
				deviceID, owner.ID, users[i].ID, owner.ID)
			break
		}
		owner = &users[i]
	}

	return owner, nil
}
