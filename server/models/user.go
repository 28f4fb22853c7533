package models

import "sort"

type User struct {
	BaseModel
	ID          string    `json:"-" gorm:"primarykey"`
	PhoneNumber string    `json:"phoneNumber,omitempty"`
	Devices     DeviceIDs `json:"devices,omitempty" gorm:"-"`

	// Notifications is only read to detect records still using the legacy
	// 'notifications.phoneNumber' field, it's never used to send messages
	Notifications *LegacyNotificationSettings `json:"notifications,omitempty" gorm:"-"`
}

type LegacyNotificationSettings struct {
	PhoneNumber string `json:"phoneNumber,omitempty"`
}

func (user *User) OwnsDevice(deviceID string) bool {
	for _, id := range user.Devices {
		if id == deviceID {
			return true
		}
	}
	return false
}

// LegacyPhoneNumber returns the phone number stored under the legacy field, if any
func (user *User) LegacyPhoneNumber() string {
	if user.Notifications == nil {
		return ""
	}
	return user.Notifications.PhoneNumber
}

// SortUsersByID orders users by id so owner lookups are deterministic
func SortUsersByID(users []User) {
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
}
