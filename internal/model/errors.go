package model

import "encoding/json"

type ServiceError struct {
	Message   string `json:"message,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	// Field names the request field which was rejected.
	Field string `json:"field,omitempty"`

	Code int `json:"-"`
}

func (err ServiceError) Error() string {
	data, _ := json.Marshal(&err)

	return string(data)
}

type Error string

func (err Error) Error() string {
	return string(err)
}

const (
	ErrNotFound        Error = "device not found"
	ErrDuplicateName   Error = "device name already taken"
	ErrEmptyName       Error = "name is empty"
	ErrEmptyAddress    Error = "address is empty"
	ErrInvalidInterval Error = "refresh interval is out of range"
)
