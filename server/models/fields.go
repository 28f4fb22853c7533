package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Timestamp is a unix time in milliseconds. Firmware & older cloud functions wrote
// it both as a number and as a string, so both are accepted when decoding.
type Timestamp int64

func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*ts = 0
		return nil
	}

	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	parsed, err := ParseTimestamp(raw)
	if err != nil {
		return err
	}
	*ts = Timestamp(parsed)

	return nil
}

// ParseTimestamp converts a decoded json value (number or numeric string) to millis
func ParseTimestamp(value interface{}) (int64, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case float64:
		return int64(v), nil
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case json.Number:
		return v.Int64()
	case string:
		if strings.TrimSpace(v) == "" {
			return 0, nil
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid timestamp %q: %v", v, err)
		}
		return int64(parsed), nil
	}

	return 0, fmt.Errorf("invalid timestamp type %T", value)
}

// DeviceIDs is the set of devices owned by a user. The realtime database returns
// it as an array (possibly with null holes) or as an object keyed by push id.
type DeviceIDs []string

func (ids *DeviceIDs) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*ids = nil
		return nil
	}

	var list []interface{}
	if data[0] == '[' {
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*ids = collectIDs(list)
		return nil
	}

	var object map[string]interface{}
	if err := json.Unmarshal(data, &object); err != nil {
		return err
	}

	keys := make([]string, 0, len(object))
	for key := range object {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	// {"-Nx1": "MEDIBOX001"} holds ids as values, {"MEDIBOX001": true} holds them as keys
	for _, key := range keys {
		switch v := object[key].(type) {
		case string:
			list = append(list, v)
		case bool:
			if v {
				list = append(list, key)
			}
		}
	}
	*ids = collectIDs(list)

	return nil
}

func collectIDs(values []interface{}) DeviceIDs {
	ids := DeviceIDs{}
	for _, value := range values {
		if id, ok := value.(string); ok && id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// DecodeUsers decodes a users node one record at a time. Records that don't decode
// are returned in 'skipped' by id, the others are still returned.
func DecodeUsers(records map[string]json.RawMessage) ([]User, map[string]error) {
	users := make([]User, 0, len(records))
	skipped := map[string]error{}

	for _, id := range recordIDs(records) {
		user := User{}
		if err := json.Unmarshal(records[id], &user); err != nil {
			skipped[id] = err
			continue
		}
		user.ID = id
		users = append(users, user)
	}

	return users, skipped
}

// DecodeDevices is DecodeUsers for a devices node
func DecodeDevices(records map[string]json.RawMessage) ([]Device, map[string]error) {
	devices := make([]Device, 0, len(records))
	skipped := map[string]error{}

	for _, id := range recordIDs(records) {
		device := Device{}
		if err := json.Unmarshal(records[id], &device); err != nil {
			skipped[id] = err
			continue
		}
		device.ID = id
		devices = append(devices, device)
	}

	return devices, skipped
}

// recordIDs returns the ids of non-null records, sorted
func recordIDs(records map[string]json.RawMessage) []string {
	ids := make([]string, 0, len(records))
	for id, raw := range records {
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
