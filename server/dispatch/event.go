package dispatch

import (
	"fmt"
	"strconv"
	"time"

	"github.com/Daskott/medibox/server/models"
)

type Kind int

const (
	DoseTaken Kind = iota
	DoseMissed
)

const (
	PILL_TAKEN_TYPE  = "pill_taken"
	MISSED_DOSE_TYPE = "missed_dose"

	DOSE_TAKEN_TITLE  = "Medicine Taken ✓"
	DOSE_TAKEN_BODY   = "The patient has taken their medication on time."
	DOSE_MISSED_TITLE = "Medicine Not Taken ⚠️"

	DEFAULT_COMPARTMENT = "scheduled"
)

func (k Kind) String() string {
	if k == DoseMissed {
		return "dose_missed"
	}
	return "dose_taken"
}

// Trigger is the device flag that raises events of this kind
func (k Kind) Trigger() models.Trigger {
	if k == DoseMissed {
		return models.DOSE_MISSED_TRIGGER
	}
	return models.DOSE_TAKEN_TRIGGER
}

// KindOf maps a device flag back to the event kind it raises
func KindOf(trigger models.Trigger) Kind {
	if trigger == models.DOSE_MISSED_TRIGGER {
		return DoseMissed
	}
	return DoseTaken
}

// Event is a single notification to deliver to a device's guardian
type Event struct {
	Kind        Kind
	DeviceID    string
	Compartment string
	// Timestamp is in unix millis. It's the value firmware recorded on the trigger
	// (zero when absent) & is what the trigger reset compares against.
	Timestamp int64
	Title     string
	Body      string
	Type      string

	// FromTrigger is set for events observed on a device flag, only those get a trigger reset
	FromTrigger bool
}

// NewEvent builds the standard notification for 'kind' raised by the device's trigger
func NewEvent(kind Kind, deviceID, compartment string, timestamp int64) Event {
	if kind == DoseMissed {
		if compartment == "" {
			compartment = DEFAULT_COMPARTMENT
		}
		return Event{
			Kind:        DoseMissed,
			DeviceID:    deviceID,
			Compartment: compartment,
			Timestamp:   timestamp,
			Title:       DOSE_MISSED_TITLE,
			Body:        fmt.Sprintf("Missed %s medication", compartment),
			Type:        MISSED_DOSE_TYPE,
			FromTrigger: true,
		}
	}

	return Event{
		Kind:        DoseTaken,
		DeviceID:    deviceID,
		Timestamp:   timestamp,
		Title:       DOSE_TAKEN_TITLE,
		Body:        DOSE_TAKEN_BODY,
		Type:        PILL_TAKEN_TYPE,
		FromTrigger: true,
	}
}

// FromRequest builds an event from a caller supplied notification (e.g. the device
// calling the http endpoint directly). 'missed_dose' maps to DoseMissed, any other type to DoseTaken.
func FromRequest(deviceID, title, body, eventType string) Event {
	kind := DoseTaken
	if eventType == MISSED_DOSE_TYPE {
		kind = DoseMissed
	}

	return Event{
		Kind:     kind,
		DeviceID: deviceID,
		Title:    title,
		Body:     body,
		Type:     eventType,
	}
}

// Data is the structured payload attached to the push notification
func (e Event) Data(now time.Time) map[string]string {
	timestamp := e.Timestamp
	if timestamp == 0 {
		timestamp = now.UnixMilli()
	}

	data := map[string]string{
		"deviceId":  e.DeviceID,
		"type":      e.Type,
		"timestamp": strconv.FormatInt(timestamp, 10),
	}

	if e.Kind == DoseMissed && e.Compartment != "" {
		data["compartment"] = e.Compartment
	}

	return data
}
