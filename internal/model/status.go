package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Status of the device liveness.
type Status uint8

const (
	StatusUnknown Status = iota
	StatusActive
	StatusInactive
)

// StatusFromReachable converts probe result into status.
func StatusFromReachable(reachable bool) Status {
	if reachable {
		return StatusActive
	}

	return StatusInactive
}

func (s Status) String() string {
	switch s {
	case StatusUnknown:
		return "unknown"
	case StatusActive:
		return "active"
	case StatusInactive:
		return "inactive"
	default:
		return "undefined"
	}
}

// ParseStatus is the reverse of String.
func ParseStatus(v string) (Status, error) {
	switch v {
	case "unknown":
		return StatusUnknown, nil
	case "active":
		return StatusActive, nil
	case "inactive":
		return StatusInactive, nil
	default:
		return StatusUnknown, fmt.Errorf("unknown status %q", v)
	}
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}

	parsed, err := ParseStatus(v)
	if err != nil {
		return err
	}

	*s = parsed

	return nil
}

// Observation is a single completed poll of a device.
type Observation struct {
	DeviceID   DeviceID      `json:"device_id"`
	Name       string        `json:"name"`
	Address    string        `json:"address"`
	Status     Status        `json:"status"`
	Previous   Status        `json:"previous"`
	ObservedAt time.Time     `json:"observed_at"`
	Elapsed    time.Duration `json:"elapsed"`
}

// Changed reports whether the observation moved device into another status.
func (o Observation) Changed() bool { return o.Status != o.Previous }

// StatusSink receives every fresh observation. Implementations must return
// fast and must not add, edit or remove devices.
type StatusSink interface {
	OnStatusObserved(o Observation)
}

// StatusSinkFunc adapts plain function to StatusSink.
type StatusSinkFunc func(o Observation)

func (fn StatusSinkFunc) OnStatusObserved(o Observation) { fn(o) }
