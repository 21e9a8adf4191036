package time

import (
	"encoding/json"
	"time"
)

// Duration is time.Duration which is represented as "2s" in json.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var dText string
	err := json.Unmarshal(data, &dText)
	if err != nil {
		return err
	}

	dt, err := time.ParseDuration(dText)
	if err != nil {
		return err
	}

	*d = Duration(dt)
	return nil
}

// Std converts to the standard library duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Or returns fallback if duration is not set.
func (d Duration) Or(fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}

	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}
