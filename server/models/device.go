package models

import (
	"time"
)

// Trigger names a flag on a device record that firmware sets when an event happens
type Trigger string

const (
	DOSE_TAKEN_TRIGGER  Trigger = "notificationTrigger"
	DOSE_MISSED_TRIGGER Trigger = "missedDose"
)

// FlagField is the name of the boolean field inside the trigger's sub-record
func (t Trigger) FlagField() string {
	if t == DOSE_MISSED_TRIGGER {
		return "missed"
	}
	return "triggered"
}

func (t Trigger) Valid() bool {
	return t == DOSE_TAKEN_TRIGGER || t == DOSE_MISSED_TRIGGER
}

type NotificationTrigger struct {
	Triggered bool      `json:"triggered"`
	Timestamp Timestamp `json:"timestamp,omitempty"`
}

type MissedDose struct {
	Missed      bool      `json:"missed"`
	Compartment string    `json:"compartment,omitempty"`
	Timestamp   Timestamp `json:"timestamp,omitempty"`
}

type Device struct {
	BaseModel
	ID                  string              `json:"-" gorm:"primarykey"`
	GuardianFcmToken    string              `json:"guardianFcmToken,omitempty"`
	NotificationTrigger NotificationTrigger `json:"notificationTrigger" gorm:"embedded;embeddedPrefix:trigger_"`
	MissedDose          MissedDose          `json:"missedDose" gorm:"embedded;embeddedPrefix:missed_dose_"`

	// OwnerID is the reverse index (device -> user) kept by the sqlite store
	OwnerID *string `json:"-" gorm:"index"`
}

// Flag reports whether 'trigger' is set & the timestamp firmware recorded with it
func (d *Device) Flag(trigger Trigger) (bool, int64) {
	switch trigger {
	case DOSE_TAKEN_TRIGGER:
		return d.NotificationTrigger.Triggered, int64(d.NotificationTrigger.Timestamp)
	case DOSE_MISSED_TRIGGER:
		return d.MissedDose.Missed, int64(d.MissedDose.Timestamp)
	}
	return false, 0
}

// Set raises 'trigger' the way firmware does. Used by the sqlite store & tests.
func (d *Device) Set(trigger Trigger, at time.Time, compartment string) {
	ts := Timestamp(at.UnixMilli())
	switch trigger {
	case DOSE_TAKEN_TRIGGER:
		d.NotificationTrigger = NotificationTrigger{Triggered: true, Timestamp: ts}
	case DOSE_MISSED_TRIGGER:
		d.MissedDose = MissedDose{Missed: true, Compartment: compartment, Timestamp: ts}
	}
}
