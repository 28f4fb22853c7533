package dispatch

import "github.com/Daskott/medibox/server/models"

var triggers = []models.Trigger{models.DOSE_TAKEN_TRIGGER, models.DOSE_MISSED_TRIGGER}

// Classify returns an event for every trigger currently set on the device.
// A device can have both a taken & a missed dose pending at once.
func Classify(device models.Device) []Event {
	events := []Event{}
	for _, trigger := range triggers {
		if set, _ := device.Flag(trigger); set {
			events = append(events, eventFor(device, trigger))
		}
	}
	return events
}

// ClassifyChange returns events for triggers that were raised between 'before' and 'after'.
// A trigger counts as raised when it's set in 'after' and either wasn't set in 'before'
// or was set with a different timestamp (firmware fired again before the reset landed).
// A nil 'before' means the device wasn't seen yet, so every set trigger counts.
func ClassifyChange(before *models.Device, after models.Device) []Event {
	if before == nil {
		return Classify(after)
	}

	events := []Event{}
	for _, trigger := range triggers {
		set, timestamp := after.Flag(trigger)
		if !set {
			continue
		}

		wasSet, previousTimestamp := before.Flag(trigger)
		if wasSet && previousTimestamp == timestamp {
			continue
		}

		events = append(events, eventFor(after, trigger))
	}
	return events
}

// ClassifyTrigger returns the event for one trigger, or false when it isn't set
func ClassifyTrigger(device models.Device, trigger models.Trigger) (Event, bool) {
	if set, _ := device.Flag(trigger); !set {
		return Event{}, false
	}
	return eventFor(device, trigger), true
}

func eventFor(device models.Device, trigger models.Trigger) Event {
	_, timestamp := device.Flag(trigger)
	return NewEvent(KindOf(trigger), device.ID, device.MissedDose.Compartment, timestamp)
}
