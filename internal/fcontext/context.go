package fcontext

import (
	"context"

	"github.com/ferux/devicewatch/internal/model"
)

type requestID struct{}

type deviceID struct{}

// WithRequestID adds request id to ctx
func WithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, requestID{}, rid)
}

// RequestID gets request id from context or generates a new one
func RequestID(ctx context.Context) string {
	rid, _ := ctx.Value(requestID{}).(string)
	return rid
}

// WithDeviceID adds id of the polled device to ctx.
func WithDeviceID(ctx context.Context, id model.DeviceID) context.Context {
	return context.WithValue(ctx, deviceID{}, id)
}

// DeviceID gets device id from context. Empty if not set.
func DeviceID(ctx context.Context) model.DeviceID {
	id, _ := ctx.Value(deviceID{}).(model.DeviceID)
	return id
}
