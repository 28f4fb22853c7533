package firebase

import (
	"testing"

	"github.com/Daskott/medibox/server/models"
	"github.com/stretchr/testify/assert"
)

func TestClearTrigger(t *testing.T) {
	cases := []struct {
		description string
		current     map[string]interface{}
		trigger     models.Trigger
		observedAt  int64
		reset       bool
	}{
		{
			description: "Should clear a set trigger with the observed timestamp",
			current:     map[string]interface{}{"triggered": true, "timestamp": float64(1700000000000)},
			trigger:     models.DOSE_TAKEN_TRIGGER,
			observedAt:  1700000000000,
			reset:       true,
		},
		{
			description: "Should clear a trigger stored with a string timestamp",
			current:     map[string]interface{}{"missed": true, "compartment": "evening", "timestamp": "1700000000000"},
			trigger:     models.DOSE_MISSED_TRIGGER,
			observedAt:  1700000000000,
			reset:       true,
		},
		{
			description: "Should clear a trigger without a timestamp when none was observed",
			current:     map[string]interface{}{"triggered": true},
			trigger:     models.DOSE_TAKEN_TRIGGER,
			observedAt:  0,
			reset:       true,
		},
		{
			description: "Should keep a trigger raised again with a newer timestamp",
			current:     map[string]interface{}{"triggered": true, "timestamp": float64(1700000060000)},
			trigger:     models.DOSE_TAKEN_TRIGGER,
			observedAt:  1700000000000,
			reset:       false,
		},
		{
			description: "Should leave a cleared trigger alone",
			current:     map[string]interface{}{"triggered": false, "timestamp": float64(1700000000000)},
			trigger:     models.DOSE_TAKEN_TRIGGER,
			observedAt:  1700000000000,
			reset:       false,
		},
		{
			description: "Should leave a missing sub-record alone",
			current:     nil,
			trigger:     models.DOSE_TAKEN_TRIGGER,
			reset:       false,
		},
	}

	for _, c := range cases {
		t.Run(c.description, func(t *testing.T) {
			next, reset := clearTrigger(c.current, c.trigger, c.observedAt)
			assert.Equal(t, c.reset, reset)

			if !c.reset {
				assert.Equal(t, c.current, next)
				return
			}

			assert.Equal(t, false, next[c.trigger.FlagField()])
			for key, value := range c.current {
				if key != c.trigger.FlagField() {
					assert.Equal(t, value, next[key], "other fields are kept")
				}
			}
			assert.Equal(t, true, c.current[c.trigger.FlagField()], "the current value isn't mutated")
		})
	}
}

func TestDevicePath(t *testing.T) {
	assert.Equal(t, "devices/MEDIBOX001", devicePath("MEDIBOX001"))
}
