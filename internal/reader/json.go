package reader

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// FlexString decodes JSON strings, numbers and booleans into their text
// form. Providers disagree on whether IDs are numeric.
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = FlexString(str)
		return nil
	}
	if data[0] == '{' || data[0] == '[' {
		*s = ""
		return nil
	}
	*s = FlexString(data)
	return nil
}

func (s FlexString) String() string {
	return string(s)
}

// UnixTime decodes seconds since the epoch given either as a JSON number or
// as a numeric string.
type UnixTime struct {
	time.Time
}

func (t *UnixTime) UnmarshalJSON(data []byte) error {
	n, ok, err := parseTimestamp(data)
	if err != nil || !ok {
		t.Time = time.Time{}
		return err
	}
	t.Time = time.Unix(n, 0).UTC()
	return nil
}

// UnixMilliTime decodes milliseconds since the epoch, as sent by Feedly.
type UnixMilliTime struct {
	time.Time
}

func (t *UnixMilliTime) UnmarshalJSON(data []byte) error {
	n, ok, err := parseTimestamp(data)
	if err != nil || !ok {
		t.Time = time.Time{}
		return err
	}
	t.Time = time.UnixMilli(n).UTC()
	return nil
}

func parseTimestamp(data []byte) (int64, bool, error) {
	var raw FlexString
	if err := raw.UnmarshalJSON(data); err != nil {
		return 0, false, err
	}
	if raw == "" {
		return 0, false, nil
	}
	f, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return 0, false, fmt.Errorf("parsing unix timestamp %q: %w", raw, err)
	}
	return int64(f), true, nil
}
